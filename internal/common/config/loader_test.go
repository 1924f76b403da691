package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: inventory
    user: clinic
    password: ${TEST_CLINIC_DB_PASSWORD}
  elasticsearch:
    addresses:
      - http://localhost:9200
  redis:
    address: localhost:6379
workers:
  parse-smart-search:
    enabled: true
  send-expiry-alert:
    enabled: false
    timeout: 60000
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	t.Setenv("TEST_CLINIC_DB_PASSWORD", "s3cret")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, "http://localhost:9200", cfg.Database.Elasticsearch.GetURL())

	assert.Equal(t, 300, cfg.Search.CacheTTL)
	assert.Equal(t, 50, cfg.Search.DefaultPageSize)
	assert.Equal(t, "medications", cfg.Search.DrugIndex)
	assert.Equal(t, "https://rxnav.nlm.nih.gov/REST", cfg.APIs.RxNorm.BaseURL)
	assert.Equal(t, 5, cfg.APIs.RxNorm.MaxResults)
	assert.Equal(t, "configs/activity-registry.json", cfg.RegistryPath)
	assert.Equal(t, "clinic-inventory-workers", cfg.Observability.ServiceName)

	parse := cfg.Workers["parse-smart-search"]
	assert.True(t, parse.Enabled)
	assert.Equal(t, 5, parse.MaxJobsActive)
	assert.Equal(t, 30000, parse.Timeout)

	alert := cfg.Workers["send-expiry-alert"]
	assert.False(t, alert.Enabled)
	assert.Equal(t, 60000, alert.Timeout)
}

func TestLoadFromFile_Validation(t *testing.T) {
	_, err := LoadFromFile(writeConfig(t, "database:\n  postgres:\n    host: localhost\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camunda.broker_address is required")
}

func TestLoadFromFile_EmailRequiresSender(t *testing.T) {
	content := minimalConfig + `
notifications:
  email:
    enabled: true
`
	t.Setenv("ALERT_FROM_EMAIL", "")

	_, err := LoadFromFile(writeConfig(t, content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from_email")
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWorkerConfigHelpers(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"check-out-unit": {Enabled: false, Timeout: 5000},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "check-out-unit"))
	assert.True(t, IsWorkerEnabled(cfg, "lookup-rxnorm"))
	assert.Equal(t, 30000, GetWorkerConfig(cfg, "lookup-rxnorm").Timeout)

	assert.Equal(t, 5*time.Second, GetDuration(5000))
	assert.Equal(t, 5*time.Minute, GetSeconds(300))
}
