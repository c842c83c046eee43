package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Transitions.WithLabelValues("APPROVE", "ok").Inc()
	m.Decisions.WithLabelValues("APPROVE", "SELF_APPROVAL").Inc()
	m.Decisions.WithLabelValues("APPROVE", "SELF_APPROVAL").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "approvals_transitions_total")
	assert.Contains(t, names, "approvals_authorization_decisions_total")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("APPROVE", "SELF_APPROVAL")))
}
