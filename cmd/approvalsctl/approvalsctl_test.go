package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pesio-ai/be-hr-approvals/internal/config"
	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/logger"
	"github.com/pesio-ai/be-hr-approvals/internal/storage"
)

// memoryOpener shares one in-memory backend across invocations.
func memoryOpener(t *testing.T) opener {
	t.Helper()
	cfg := &config.Config{Approval: config.ApprovalConfig{Storage: config.StorageMemory}}
	stores := storage.Memory()
	return func(context.Context, openSettings) (*app, error) {
		return newApp(cfg, logger.Nop(), stores), nil
	}
}

func run(t *testing.T, open opener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSeedAndQuery(t *testing.T) {
	open := memoryOpener(t)
	seed := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(seed, []byte(`
authorities:
  - email: gm@x.com
    display_name: Grace Manager
    rank: GENERAL_MANAGER
    org_units:
      - {code: HQ, name: Headquarters}
  - {email: a@x.com, display_name: Alice, rank: EMPLOYEE}
relationships:
  - {subordinate: a@x.com, approver: gm@x.com, effective_from: 2025-01-01}
`), 0o600))

	out, err := run(t, open, "seed", seed)
	require.NoError(t, err)
	var res seedOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Authorities)
	assert.Equal(t, 1, res.Relationships)

	out, err = run(t, open, "authority", "get", "GM@x.com")
	require.NoError(t, err)
	var rec domain.AuthorityRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, domain.RankGeneralManager, rec.Rank)

	out, err = run(t, open, "authority", "org-unit", "--level", "1", "--code", "HQ")
	require.NoError(t, err)
	var recs []domain.AuthorityRecord
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "gm@x.com", recs[0].Email)

	out, err = run(t, open, "relationship", "approver", "--subordinate", "a@x.com", "--on", "2025-03-01")
	require.NoError(t, err)
	var approver map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &approver))
	assert.Equal(t, true, approver["found"])
	assert.Equal(t, "gm@x.com", approver["approver_email"])
}

func TestRelationshipLifecycle(t *testing.T) {
	open := memoryOpener(t)

	out, err := run(t, open, "relationship", "create",
		"--subordinate", "a@x.com", "--approver", "m@x.com", "--from", "2025-01-01")
	require.NoError(t, err)
	var rel domain.ApproverRelationship
	require.NoError(t, json.Unmarshal([]byte(out), &rel))
	require.NotEmpty(t, rel.ID)
	assert.Nil(t, rel.EffectiveTo)

	out, err = run(t, open, "relationship", "end", rel.ID, "--to", "2025-01-31")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &rel))
	require.NotNil(t, rel.EffectiveTo)
	assert.Equal(t, "2025-01-31", rel.EffectiveTo.Format(domain.DateLayout))

	out, err = run(t, open, "relationship", "list", "--subordinate", "a@x.com", "--from", "2025-02-01")
	require.NoError(t, err)
	var rels []domain.ApproverRelationship
	require.NoError(t, json.Unmarshal([]byte(out), &rels))
	assert.Empty(t, rels)

	out, err = run(t, open, "relationship", "subordinates", "--approver", "m@x.com", "--on", "2025-01-15")
	require.NoError(t, err)
	var subs []string
	require.NoError(t, json.Unmarshal([]byte(out), &subs))
	assert.Equal(t, []string{"a@x.com"}, subs)

	_, err = run(t, open, "relationship", "delete", rel.ID)
	require.NoError(t, err)
	_, err = run(t, open, "relationship", "end", rel.ID)
	assert.Error(t, err)
}

func TestCommandErrors(t *testing.T) {
	open := memoryOpener(t)

	_, err := run(t, open, "relationship", "create", "--subordinate", "a@x.com", "--approver", "a@x.com")
	assert.Error(t, err)

	_, err = run(t, open, "relationship", "list")
	assert.Error(t, err)

	_, err = run(t, open, "relationship", "approver", "--subordinate", "a@x.com", "--on", "01/02/2025")
	assert.Error(t, err)

	_, err = run(t, open, "migrate", "status")
	assert.ErrorContains(t, err, "APPROVAL_STORAGE")
}
