// Package store wraps the Postgres connection behind the pipeline's idempotent write
// executor: every mutating statement sequence runs as one transaction scoped to a
// partition's time window, retried as a whole on transient store errors so partial
// application is never observable between attempts.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/lib/pq"

	"github.com/wardenfield/robot-pulse/tracker/logging"
	"github.com/wardenfield/robot-pulse/tracker/retry"
)

// Config holds database connection configuration.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns default connection-pool settings.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// Connect opens and pings a Postgres connection with the given configuration.
func Connect(cfg Config, logger logging.Logger) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	logger.WithFields(logging.Fields{
		"max_open_conns":    cfg.MaxOpenConns,
		"max_idle_conns":    cfg.MaxIdleConns,
		"conn_max_lifetime": cfg.ConnMaxLifetime.String(),
	}).Info("database connected")

	return db, nil
}

// Stmt is one SQL statement with its arguments, executed as part of a batch.
type Stmt struct {
	SQL  string
	Args []any
}

// Store executes statement batches and queries with a uniform bounded-retry discipline.
type Store struct {
	db     *sql.DB
	logger logging.Logger
	spec   retry.Spec
}

// New wraps db with the default store retry discipline (5 attempts, 1 second apart).
func New(db *sql.DB, logger logging.Logger) *Store {
	s := &Store{db: db, logger: logger}
	return s.WithRetry(retry.StoreSpec())
}

// WithRetry overrides the retry bound and inter-attempt delay. Tests inject millisecond
// delays here.
func (s *Store) WithRetry(spec retry.Spec) *Store {
	spec.OnRetry = func(err error, attempt int) {
		s.logger.WithError(err).WithField("attempt", attempt).Warn("retrying store operation after transient error")
	}
	s.spec = spec
	return s
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// ExecBatch runs the whole statement sequence inside one transaction. On a transient
// error the entire sequence is retried from BEGIN; a failed attempt rolls back, so a
// partially applied batch is never visible. Any non-transient error aborts immediately.
// Statement sequences must be idempotent as a whole (schema-create if-not-exists, then
// window-scoped delete, then insert).
func (s *Store) ExecBatch(ctx context.Context, stmts []Stmt) error {
	return retry.DoVoid(ctx, s.spec, IsTransient, func() error {
		return s.execBatchOnce(ctx, stmts)
	})
}

func (s *Store) execBatchOnce(ctx context.Context, stmts []Stmt) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.SQL, st.Args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Query runs a read under the same retry discipline as writes and streams the rows to
// scan. The scan callback runs once per attempt, so accumulation must restart inside it.
func (s *Store) Query(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	return retry.DoVoid(ctx, s.spec, IsTransient, func() error {
		return s.queryOnce(ctx, query, args, scan)
	})
}

func (s *Store) queryOnce(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	if err := scan(rows); err != nil {
		return err
	}
	return rows.Err()
}

// Transient Postgres error classes: connection exceptions, transaction rollbacks
// (serialization failures, deadlocks), and insufficient resources.
var transientPQClasses = map[string]bool{
	"08": true,
	"40": true,
	"53": true,
}

// IsTransient reports whether a store error is expected to resolve by waiting and
// retrying. Everything else is treated as a logic or data error and surfaced at once.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if transientPQClasses[string(pqErr.Code.Class())] {
			return true
		}
		if pqErr.Code == "57P03" { // cannot_connect_now
			return true
		}
	}
	return false
}
