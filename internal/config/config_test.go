package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"MATCH_THRESHOLD", "PARTITION_CACHE_SIZE", "WRITE_CHUNK_SIZE", "DB_MAX_OPEN_CONNS", "SEARCH_ALL_TERMS"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, 0.35, cfg.Matching.Threshold)
	assert.Equal(t, 0.15, cfg.Matching.PostalBonus)
	assert.Equal(t, 15, cfg.Matching.CacheSize)
	assert.Equal(t, 100, cfg.Matching.CandidateLimit)
	assert.Equal(t, 3, cfg.Matching.NeighborLimit)
	assert.Equal(t, 2, cfg.Matching.NeighborTerms)
	assert.False(t, cfg.Matching.SearchAllTerms)
	assert.Equal(t, 500, cfg.Writing.ChunkSize)
	assert.Equal(t, 3, cfg.Database.MaxOpenConns)
	assert.Equal(t, 10*time.Second, cfg.Database.KeepAlive)
	assert.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "0.5")
	t.Setenv("SEARCH_ALL_TERMS", "yes")
	t.Setenv("DB_CONNECT_TIMEOUT", "45")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "2m")
	t.Setenv("WRITE_CHUNK_SIZE", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, 0.5, cfg.Matching.Threshold)
	assert.True(t, cfg.Matching.SearchAllTerms)
	assert.Equal(t, 45*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Database.ConnMaxIdleTime)
	assert.Equal(t, 500, cfg.Writing.ChunkSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero threshold", func(c *Config) { c.Matching.Threshold = 0 }},
		{"threshold above one", func(c *Config) { c.Matching.Threshold = 1.2 }},
		{"negative bonus", func(c *Config) { c.Matching.PostalBonus = -0.1 }},
		{"zero cache", func(c *Config) { c.Matching.CacheSize = 0 }},
		{"zero candidate limit", func(c *Config) { c.Matching.CandidateLimit = 0 }},
		{"negative neighbors", func(c *Config) { c.Matching.NeighborLimit = -1 }},
		{"zero chunk", func(c *Config) { c.Writing.ChunkSize = 0 }},
		{"negative rate", func(c *Config) { c.Writing.RowsPerSecond = -1 }},
		{"zero pool", func(c *Config) { c.Database.MaxOpenConns = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := FromEnv()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidateNeighborFallbackOff(t *testing.T) {
	t.Setenv("NEIGHBOR_LIMIT", "0")
	cfg := FromEnv()
	require.NoError(t, cfg.Validate())
	assert.Zero(t, cfg.Matching.NeighborLimit)
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LR_TEST_FROM_FILE=from-file\nLR_TEST_PRESET=from-file\n"), 0o644))

	t.Setenv("LR_TEST_PRESET", "from-env")
	t.Cleanup(func() { os.Unsetenv("LR_TEST_FROM_FILE") })

	require.NoError(t, LoadEnv(filepath.Join(t.TempDir(), "missing.env"), path))
	assert.Equal(t, "from-file", GetEnv("LR_TEST_FROM_FILE", ""))
	assert.Equal(t, "from-env", GetEnv("LR_TEST_PRESET", ""))
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("LR_INT", "42")
	t.Setenv("LR_FLOAT", "0.25")
	t.Setenv("LR_BOOL", "off")
	t.Setenv("LR_BAD_BOOL", "maybe")

	assert.Equal(t, 42, GetEnvInt("LR_INT", 0))
	assert.Equal(t, 0.25, GetEnvFloat("LR_FLOAT", 0))
	assert.False(t, GetEnvBool("LR_BOOL", true))
	assert.True(t, GetEnvBool("LR_BAD_BOOL", true))
	assert.Equal(t, "fallback", GetEnv("LR_UNSET_KEY", "fallback"))
}
