// Package postgres implements the PostgreSQL record source. Snapshots live
// in three tables (questions, zones and zones_questions) keyed by
// snapshot_id.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrConnectionClosed indicates the connection pool is closed.
	ErrConnectionClosed = errors.New("postgres: connection pool is closed")

	// ErrSchemaFailed indicates the schema could not be applied.
	ErrSchemaFailed = errors.New("postgres: schema setup failed")
)

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTION POOL
// ══════════════════════════════════════════════════════════════════════════════

// Config holds PostgreSQL connection configuration.
type Config struct {
	// URL is a full connection string. When set it takes precedence over
	// the individual fields below.
	URL string `yaml:"url"`

	// Host is the database host.
	Host string `yaml:"host"`

	// Port is the database port.
	Port int `yaml:"port" validate:"omitempty,min=1,max=65535"`

	// Database is the database name.
	Database string `yaml:"database"`

	// User is the database user.
	User string `yaml:"user"`

	// Password is the database password.
	Password string `yaml:"password"`

	// SSLMode is the SSL mode (disable, require, verify-ca, verify-full).
	SSLMode string `yaml:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`

	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `yaml:"max_conns" validate:"min=0"`

	// MinConns is the minimum number of connections in the pool.
	MinConns int32 `yaml:"min_conns" validate:"min=0"`

	// MaxConnLifetime is the maximum lifetime of a connection.
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`

	// MaxConnIdleTime is the maximum idle time of a connection.
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`

	// HealthCheckPeriod is the interval between health checks.
	HealthCheckPeriod time.Duration `yaml:"health_check_period"`

	// ConnectTimeout is the timeout for establishing a connection.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DefaultConfig returns a configuration for a local database.
func DefaultConfig() Config {
	return Config{
		Host:              "localhost",
		Port:              5432,
		Database:          "fsscore",
		User:              "postgres",
		SSLMode:           "disable",
		MaxConns:          10,
		MinConns:          1,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   30 * time.Minute,
		HealthCheckPeriod: time.Minute,
		ConnectTimeout:    10 * time.Second,
	}
}

// DSN returns the connection string for PostgreSQL. Empty fields are
// omitted so libpq defaults apply, and values are quoted.
func (c Config) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	parts := make([]string, 0, 7)
	add := func(key, value string) {
		if value == "" {
			return
		}
		value = strings.ReplaceAll(value, `\`, `\\`)
		value = strings.ReplaceAll(value, `'`, `\'`)
		parts = append(parts, fmt.Sprintf("%s='%s'", key, value))
	}
	add("host", c.Host)
	if c.Port > 0 {
		add("port", strconv.Itoa(c.Port))
	}
	add("dbname", c.Database)
	add("user", c.User)
	add("password", c.Password)
	add("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		add("connect_timeout", strconv.Itoa(int(c.ConnectTimeout.Seconds())))
	}
	return strings.Join(parts, " ")
}

// PoolConfig returns pgxpool configuration. Zero pool settings keep the
// pgxpool defaults.
func (c Config) PoolConfig() (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(c.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse connection string: %w", err)
	}

	if c.MaxConns > 0 {
		config.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		config.MinConns = c.MinConns
	}
	if c.MaxConnLifetime > 0 {
		config.MaxConnLifetime = c.MaxConnLifetime
	}
	if c.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = c.MaxConnIdleTime
	}
	if c.HealthCheckPeriod > 0 {
		config.HealthCheckPeriod = c.HealthCheckPeriod
	}

	return config, nil
}

// Connection represents a PostgreSQL connection pool.
type Connection struct {
	pool   *pgxpool.Pool
	closed bool
	mu     sync.RWMutex
}

// NewConnection creates a connection pool and verifies it with a ping.
func NewConnection(ctx context.Context, cfg Config) (*Connection, error) {
	poolConfig, err := cfg.PoolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping database: %w", err)
	}

	return &Connection{pool: pool}, nil
}

// Close closes the connection pool.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.pool.Close()
}

// IsClosed returns true if the connection pool is closed.
func (c *Connection) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Ping checks if the database connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrConnectionClosed
	}

	return c.pool.Ping(ctx)
}

// Exec executes a statement that doesn't return rows.
func (c *Connection) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return pgconn.CommandTag{}, ErrConnectionClosed
	}

	return c.pool.Exec(ctx, sql, args...)
}

// Query executes a query that returns rows.
func (c *Connection) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, ErrConnectionClosed
	}

	return c.pool.Query(ctx, sql, args...)
}

// EnsureSchema creates the snapshot tables if they do not exist.
func (c *Connection) EnsureSchema(ctx context.Context) error {
	if _, err := c.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaFailed, err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// IsTransient reports whether err is a connection-level failure worth
// retrying: a network error, a connection exception (class 08), an
// operator intervention such as a server shutdown (class 57), or a
// serialization failure.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrConnectionClosed) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "57") ||
			pgErr.Code == "40001"
	}

	// Anything that never reached the server, such as a dial or TLS error.
	return pgconn.SafeToRetry(err) || isConnectError(err)
}

func isConnectError(err error) bool {
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
