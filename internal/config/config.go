package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Database holds datastore connection settings.
type Database struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnectTimeout  time.Duration
	KeepAlive       time.Duration
}

// Matching holds the engine's tuning knobs.
type Matching struct {
	Threshold      float64
	PostalBonus    float64
	CacheSize      int
	CandidateLimit int
	NeighborLimit  int // 0 disables the neighbor fallback
	NeighborTerms  int
	SearchAllTerms bool
}

// Writing holds the batch writer settings.
type Writing struct {
	ChunkSize     int
	RowsPerSecond float64
}

// Config is the full configuration of a run.
type Config struct {
	Database Database
	Matching Matching
	Writing  Writing

	ListingsFile       string
	MatchesDir         string
	PartitionGraphFile string
	MetricsFile        string
	LockFile           string

	LogLevel   string
	PrettyLogs bool
}

// Load reads the configuration from the environment, after loading any .env file.
func Load() (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() *Config {
	return &Config{
		Database: Database{
			Host:            GetEnv("PGHOST", "localhost"),
			Port:            GetEnv("PGPORT", "5432"),
			User:            GetEnv("PGUSER", "postgres"),
			Password:        GetEnv("PGPASSWORD", ""),
			Name:            GetEnv("PGDATABASE", "postgres"),
			SSLMode:         GetEnv("PGSSLMODE", "require"),
			MaxOpenConns:    GetEnvInt("DB_MAX_OPEN_CONNS", 3),
			MaxIdleConns:    GetEnvInt("DB_MAX_IDLE_CONNS", 3),
			ConnMaxIdleTime: GetEnvDuration("DB_CONN_MAX_IDLE_TIME", 60*time.Second),
			ConnectTimeout:  GetEnvDuration("DB_CONNECT_TIMEOUT", 30*time.Second),
			KeepAlive:       GetEnvDuration("DB_KEEPALIVE", 10*time.Second),
		},
		Matching: Matching{
			Threshold:      GetEnvFloat("MATCH_THRESHOLD", 0.35),
			PostalBonus:    GetEnvFloat("POSTAL_BONUS", 0.15),
			CacheSize:      GetEnvInt("PARTITION_CACHE_SIZE", 15),
			CandidateLimit: GetEnvInt("CANDIDATE_LIMIT", 100),
			NeighborLimit:  GetEnvInt("NEIGHBOR_LIMIT", 3),
			NeighborTerms:  GetEnvInt("NEIGHBOR_TERMS", 2),
			SearchAllTerms: GetEnvBool("SEARCH_ALL_TERMS", false),
		},
		Writing: Writing{
			ChunkSize:     GetEnvInt("WRITE_CHUNK_SIZE", 500),
			RowsPerSecond: GetEnvFloat("WRITE_ROWS_PER_SECOND", 0),
		},
		ListingsFile:       GetEnv("LISTINGS_FILE", filepath.Join(".enrich-data", "pj-listings.jsonl")),
		MatchesDir:         GetEnv("MATCHES_DIR", filepath.Join(".enrich-data", "matches")),
		PartitionGraphFile: GetEnv("PARTITION_GRAPH_FILE", ""),
		MetricsFile:        GetEnv("METRICS_FILE", ""),
		LockFile:           GetEnv("LOCK_FILE", filepath.Join(os.TempDir(), "listing-reconcile.lock")),
		LogLevel:           GetEnv("LOG_LEVEL", "info"),
		PrettyLogs:         GetEnvBool("PRETTY_LOGS", false),
	}
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	m := c.Matching
	if m.Threshold <= 0 || m.Threshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be in (0, 1], got %v", m.Threshold)
	}
	if m.PostalBonus < 0 {
		return fmt.Errorf("POSTAL_BONUS must not be negative, got %v", m.PostalBonus)
	}
	if m.CacheSize <= 0 {
		return fmt.Errorf("PARTITION_CACHE_SIZE must be positive, got %d", m.CacheSize)
	}
	if m.CandidateLimit <= 0 {
		return fmt.Errorf("CANDIDATE_LIMIT must be positive, got %d", m.CandidateLimit)
	}
	if m.NeighborLimit < 0 || m.NeighborTerms < 0 {
		return fmt.Errorf("NEIGHBOR_LIMIT and NEIGHBOR_TERMS must not be negative")
	}
	if c.Writing.ChunkSize <= 0 {
		return fmt.Errorf("WRITE_CHUNK_SIZE must be positive, got %d", c.Writing.ChunkSize)
	}
	if c.Writing.RowsPerSecond < 0 {
		return fmt.Errorf("WRITE_ROWS_PER_SECOND must not be negative, got %v", c.Writing.RowsPerSecond)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("DB_MAX_OPEN_CONNS must be positive, got %d", c.Database.MaxOpenConns)
	}
	return nil
}
