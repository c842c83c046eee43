package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
)

// Conn is the subset of *nats.Conn the publisher needs.
type Conn interface {
	PublishMsg(m *nats.Msg) error
}

// EventPublisher publishes approval events to NATS for downstream consumers
// (notifications, payroll export).
//
// Subject convention: <prefix>.approval.<action>, for example
// events.hr.approval.approve. Callers treat errors as non-fatal.
type EventPublisher struct {
	conn   Conn
	prefix string
	log    zerolog.Logger
}

// NewEventPublisher creates a publisher on an established connection.
func NewEventPublisher(conn Conn, subjectPrefix string, log zerolog.Logger) *EventPublisher {
	return &EventPublisher{
		conn:   conn,
		prefix: strings.TrimSuffix(subjectPrefix, "."),
		log:    log,
	}
}

// Connect dials NATS with reconnect handling that logs through log.
func Connect(url, name string, log zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats: disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info().Str("url", c.ConnectedUrl()).Msg("nats: reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// Subject returns the subject for an action.
func (p *EventPublisher) Subject(action domain.Action) string {
	return fmt.Sprintf("%s.approval.%s", p.prefix, strings.ToLower(string(action)))
}

// PublishApprovalEvent marshals ev and publishes it with its event id as the
// Nats-Msg-Id header so JetStream streams can de-duplicate redeliveries.
func (p *EventPublisher) PublishApprovalEvent(_ context.Context, ev domain.ApprovalEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal approval event: %w", err)
	}

	msg := nats.NewMsg(p.Subject(ev.Action))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.EventID)

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}

	p.log.Debug().
		Str("subject", msg.Subject).
		Str("event_id", ev.EventID).
		Msg("approval event published")
	return nil
}

// LogPublisher writes events to the log instead of a broker. It is used when
// NATS is disabled.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// PublishApprovalEvent logs the event at info level.
func (p *LogPublisher) PublishApprovalEvent(_ context.Context, ev domain.ApprovalEvent) error {
	p.log.Info().
		Str("event_id", ev.EventID).
		Str("action", string(ev.Action)).
		Str("submitter", ev.SubmitterEmail).
		Str("work_date", ev.WorkDate).
		Str("approver", ev.ApproverEmail).
		Str("status", string(ev.Status)).
		Msg("approval event")
	return nil
}
