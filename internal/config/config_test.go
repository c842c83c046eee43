package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "be-hr-approvals", cfg.Service.Name)
	assert.Equal(t, StoragePostgres, cfg.Approval.Storage)
	assert.Equal(t, 8086, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.False(t, cfg.Approval.SingleApprover)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("APPROVAL_STORAGE=memory\nAPPROVAL_SINGLE_APPROVER=true\n"), 0o600))
	t.Setenv("HTTP_PORT", "9999")
	t.Cleanup(func() {
		os.Unsetenv("APPROVAL_STORAGE")
		os.Unsetenv("APPROVAL_SINGLE_APPROVER")
	})

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Approval.Storage)
	assert.True(t, cfg.Approval.SingleApprover)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Server:   ServerConfig{Port: 1, GRPCPort: 2},
		Approval: ApprovalConfig{Storage: "sqlite"},
	}
	require.Error(t, cfg.Validate())

	cfg.Approval.Storage = StorageMemory
	require.NoError(t, cfg.Validate())

	cfg.NATS = NATSConfig{Enabled: true}
	require.Error(t, cfg.Validate())
}
