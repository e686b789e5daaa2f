package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: 9090
jwt:
  secret: test-secret
billing:
  daily_limit: 15
`)
	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 15, cfg.Billing.DailyLimit)
	assert.Equal(t, 60, cfg.Billing.RescheduleWindowDays)
	assert.Equal(t, "750", cfg.Billing.HospitalCharge().String())
	assert.Equal(t, 5*time.Second, cfg.Outbox.PollInterval)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := writeConfig(t, "jwt:\n  secret: from-file\n")
	t.Setenv("FRONTDESK_JWT_SECRET", "from-env")
	t.Setenv("FRONTDESK_DATABASE_HOST", "db.internal")
	t.Setenv("FRONTDESK_BILLING_DAILY_LIMIT", "5")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5, cfg.Billing.DailyLimit)
}

func TestLoadConfig_RejectsMissingSecret(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "server:\n  port: 8080\n"))
	assert.Error(t, err)
}

func TestLoadConfig_RejectsNegativeCharge(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "jwt:\n  secret: s\nbilling:\n  default_hospital_charge: \"-1\"\n"))
	assert.Error(t, err)
}
