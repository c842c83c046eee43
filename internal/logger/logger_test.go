package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Environment: "production", ServiceName: "be-hr-approvals", Version: "test", Output: &buf})

	log.Component("approvals").Info().Str("submitter_email", "a@x.com").Msg("Work record approved")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "be-hr-approvals", entry["service"])
	assert.Equal(t, "approvals", entry["component"])
	assert.Equal(t, "a@x.com", entry["submitter_email"])
	assert.Equal(t, "Work record approved", entry["message"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, parseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel("WARN"))
	assert.Equal(t, zerolog.DebugLevel, parseLevel(" debug "))
}
