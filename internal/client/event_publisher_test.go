package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
)

type fakeConn struct {
	msgs []*nats.Msg
	err  error
}

func (c *fakeConn) PublishMsg(m *nats.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, m)
	return nil
}

func rejectedEvent(t *testing.T) domain.ApprovalEvent {
	t.Helper()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rec, err := domain.NewPendingRecord("a@x.com", now, now).Reject("b@x.com", "needs more detail", now)
	require.NoError(t, err)
	return domain.NewApprovalEvent(rec, domain.ActionReject)
}

func TestEventPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := NewEventPublisher(conn, "events.hr.", zerolog.Nop())
	ev := rejectedEvent(t)

	require.NoError(t, p.PublishApprovalEvent(context.Background(), ev))
	require.Len(t, conn.msgs, 1)

	msg := conn.msgs[0]
	assert.Equal(t, "events.hr.approval.reject", msg.Subject)
	assert.Equal(t, ev.EventID, msg.Header.Get(nats.MsgIdHdr))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "a@x.com", decoded["submitter_email"])
	assert.Equal(t, "2025-06-01", decoded["work_date"])
	assert.Equal(t, "REJECT", decoded["action"])
	assert.Equal(t, "needs more detail", decoded["rejection_reason"])
	assert.Equal(t, "REJECTED", decoded["status"])
}

func TestEventPublisher_PublishError(t *testing.T) {
	p := NewEventPublisher(&fakeConn{err: fmt.Errorf("nats: connection closed")}, "events.hr", zerolog.Nop())
	err := p.PublishApprovalEvent(context.Background(), rejectedEvent(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "events.hr.approval.reject")
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))
	require.NoError(t, p.PublishApprovalEvent(context.Background(), rejectedEvent(t)))
	assert.Contains(t, buf.String(), `"action":"REJECT"`)
}
