package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"delta-scoreboard/internal/domain"
)

// Credentials identify the warehouse endpoint. The URL carries host, database
// and the access credential.
type Credentials struct {
	URL string
}

// Session is an open warehouse connection. It is an explicit, passed-around
// object owned by whoever called Connect; there is no process-wide singleton.
type Session struct {
	pool *pgxpool.Pool
}

// SQLSTATE classes for rejected credentials.
const (
	codeInvalidAuthorization = "28000"
	codeInvalidPassword      = "28P01"
)

// Connect opens a pooled session and verifies it with a ping. A rejected
// credential surfaces as domain.ErrAuth, an unreachable host as
// domain.ErrNetwork. No retries; the caller decides what is recoverable.
func Connect(ctx context.Context, creds Credentials) (*Session, error) {
	cfg, err := pgxpool.ParseConfig(creds.URL)
	if err != nil {
		return nil, fmt.Errorf("parse warehouse url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, classifyConnectErr(err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, classifyConnectErr(err)
	}
	return &Session{pool: pool}, nil
}

func classifyConnectErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidAuthorization, codeInvalidPassword:
			return fmt.Errorf("%w: warehouse: %v", domain.ErrAuth, err)
		}
	}
	return fmt.Errorf("%w: warehouse: %v", domain.ErrNetwork, err)
}

// Query runs a statement; failures wrap domain.ErrQuery.
func (s *Session) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, queryErr(err)
	}
	return rows, nil
}

// QueryRow runs a single-row statement. Scan errors should be wrapped with
// WrapQueryErr by the caller.
func (s *Session) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return s.pool.QueryRow(ctx, sql, args...)
}

// Exec runs a statement discarding its result; failures wrap domain.ErrQuery.
func (s *Session) Exec(ctx context.Context, sql string, args ...interface{}) error {
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return queryErr(err)
	}
	return nil
}

// Close releases the session unconditionally.
func (s *Session) Close() {
	s.pool.Close()
}

// WrapQueryErr tags a warehouse failure with domain.ErrQuery so callers can
// classify it with errors.Is.
func WrapQueryErr(err error) error {
	return queryErr(err)
}

func queryErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrQuery, err)
}
