package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/listing-reconcile/internal/config"
)

// Connection holds the database connection pool
type Connection struct {
	DB     *sqlx.DB
	logger *zap.Logger
}

// keepAliveDialer dials with TCP keep-alive so idle pooled connections
// survive the long matching phase between partition loads.
type keepAliveDialer struct {
	d net.Dialer
}

func (k keepAliveDialer) Dial(network, address string) (net.Conn, error) {
	return k.d.Dial(network, address)
}

func (k keepAliveDialer) DialTimeout(network, address string, timeout time.Duration) (net.Conn, error) {
	d := k.d
	d.Timeout = timeout
	return d.Dial(network, address)
}

func (k keepAliveDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return k.d.DialContext(ctx, network, address)
}

// DSN renders a libpq key/value connection string.
func DSN(cfg config.Database) string {
	parts := []string{
		"host=" + quoteDSN(cfg.Host),
		"port=" + quoteDSN(cfg.Port),
		"user=" + quoteDSN(cfg.User),
		"dbname=" + quoteDSN(cfg.Name),
		"sslmode=" + quoteDSN(cfg.SSLMode),
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+quoteDSN(cfg.Password))
	}
	if cfg.ConnectTimeout > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", int(cfg.ConnectTimeout.Seconds())))
	}
	return strings.Join(parts, " ")
}

func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// NewConnection opens a small keep-alive pool and verifies it with a ping.
func NewConnection(ctx context.Context, cfg config.Database, logger *zap.Logger) (*Connection, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connector, err := pq.NewConnector(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to build connector: %w", err)
	}
	connector.Dialer(keepAliveDialer{d: net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: cfg.KeepAlive,
	}})

	sqlDB := sql.OpenDB(connector)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	conn := &Connection{DB: sqlx.NewDb(sqlDB, "postgres"), logger: logger}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout+5*time.Second)
	defer cancel()
	if err := conn.DB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("connected to database",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return conn, nil
}

// Healthy pings the pool and logs a warning on failure. The pool reconnects
// on its own, so callers keep going either way.
func (c *Connection) Healthy(ctx context.Context) bool {
	if err := c.DB.PingContext(ctx); err != nil {
		stats := c.DB.Stats()
		c.logger.Warn("database pool unhealthy, relying on reconnect",
			zap.Error(err),
			zap.Int("open", stats.OpenConnections),
			zap.Int("in_use", stats.InUse))
		return false
	}
	return true
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.DB.Close()
}
