package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.0005, cfg.Ledger.FeeRate)
	assert.Equal(t, 0.8, cfg.Ledger.RebateRate)
	assert.Equal(t, 0.0001, cfg.Ledger.DuplicateTolerance)
	assert.Equal(t, []string{"chi_sim", "eng"}, cfg.OCR.Languages)
	assert.Equal(t, "memory", cfg.Pending.Backend)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"negative fee", func(c *Config) { c.Ledger.FeeRate = -0.1 }, "ledger.fee_rate"},
		{"rebate above one", func(c *Config) { c.Ledger.RebateRate = 1.5 }, "ledger.rebate_rate"},
		{"zero tolerance", func(c *Config) { c.Ledger.DuplicateTolerance = 0 }, "ledger.duplicate_tolerance"},
		{"bad location", func(c *Config) { c.Ledger.Location = "Mars/Olympus" }, "ledger.location"},
		{"no db path", func(c *Config) { c.Journal.DBPath = "" }, "journal.db_path"},
		{"no languages", func(c *Config) { c.OCR.Languages = nil }, "ocr.languages"},
		{"small scale", func(c *Config) { c.OCR.Scale = 0.5 }, "ocr.scale"},
		{"contrast range", func(c *Config) { c.OCR.Contrast = 120 }, "ocr.contrast"},
		{"unknown backend", func(c *Config) { c.Pending.Backend = "etcd" }, "pending.backend"},
		{"redis without addr", func(c *Config) { c.Pending.Backend = "redis" }, "pending.redis_addr"},
		{"bad ttl", func(c *Config) { c.Pending.TTL = "soon" }, "pending.ttl"},
		{"no server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFromFileYAMLKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tradebook.yaml")
	data := `
ledger:
  fee_rate: 0.001
  location: Asia/Shanghai
journal:
  db_path: /tmp/book.db
pending:
  backend: redis
  redis_addr: localhost:6379
  ttl: 5m
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.001, cfg.Ledger.FeeRate)
	assert.Equal(t, 0.8, cfg.Ledger.RebateRate)
	assert.Equal(t, "/tmp/book.db", cfg.Journal.DBPath)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	ttl, err := cfg.Pending.ParseTTL()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, ttl)

	loc, err := cfg.Ledger.LoadLocation()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", loc.String())
}

func TestLoadFromFileInvalid(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("ledger:\n  fee_rate: 2\n"), 0644))
	_, err = LoadFromFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestSaveAndReload(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"cfg.yaml", "cfg.json"} {
		name := name
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), name)

			cfg := Default()
			cfg.Journal.DBPath = "book.db"
			cfg.Log.Tracing = true
			require.NoError(t, cfg.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"TRADEBOOK_FEE_RATE":      "0.0004",
		"TRADEBOOK_DB_PATH":       "/data/trades.db",
		"TRADEBOOK_OCR_LANGUAGES": "eng",
		"TRADEBOOK_REDIS_DB":      "3",
		"TRADEBOOK_TRACING":       "true",
		"TRADEBOOK_LOG_LEVEL":     "DEBUG",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, 0.0004, cfg.Ledger.FeeRate)
	assert.Equal(t, "/data/trades.db", cfg.Journal.DBPath)
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)
	assert.Equal(t, 3, cfg.Pending.RedisDB)
	assert.True(t, cfg.Log.Tracing)
	assert.Equal(t, "DEBUG", cfg.Log.Level)
	assert.Equal(t, 0.8, cfg.Ledger.RebateRate)
}

func TestApplyEnvBadValues(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"TRADEBOOK_FEE_RATE": "cheap",
		"TRADEBOOK_REDIS_DB": "x",
	}
	cfg := Default()
	err := cfg.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRADEBOOK_FEE_RATE")
	assert.Contains(t, err.Error(), "TRADEBOOK_REDIS_DB")
	assert.Equal(t, 0.0005, cfg.Ledger.FeeRate)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TRADEBOOK_TEST_DOTENV=from-file\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("TRADEBOOK_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("TRADEBOOK_TEST_DOTENV"))

	require.Error(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}
