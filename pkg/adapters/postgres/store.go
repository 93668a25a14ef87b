// Package postgres provides a ports.SessionStore backed by a PostgreSQL table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/yurt/pkg/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "yurt_sessions"

// PGDB is implemented by pgx.Tx, pgx.Conn & pgxpool.Pool.
type PGDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements ports.SessionStore on a single table keyed by session ID.
// Variables are kept as jsonb.
type Store struct {
	DB    PGDB
	table string
	pool  *pgxpool.Pool
}

// Migrate creates the session table if it does not exist.
func Migrate(ctx context.Context, db PGDB, table string) error {
	if table == "" {
		table = DefaultTable
	}
	_, err := db.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
		   id text PRIMARY KEY,
		   variables jsonb NOT NULL,
		   version bigint NOT NULL,
		   updated_at timestamptz NOT NULL
		 )`,
		pgx.Identifier{table}.Sanitize(),
	))
	if err != nil {
		return domain.Unavailable(fmt.Errorf("failed db schema initialization: %w", err))
	}
	return nil
}

// New connects a pool to dsn and migrates table.
func New(ctx context.Context, dsn, table string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed connection pool creation: %w", err)
	}
	if err := Migrate(ctx, pool, table); err != nil {
		pool.Close()
		return nil, err
	}
	store := NewFromDB(pool, table)
	store.pool = pool
	return store, nil
}

// NewFromDB wraps an existing connection. The table must already exist.
func NewFromDB(db PGDB, table string) *Store {
	if table == "" {
		table = DefaultTable
	}
	return &Store{DB: db, table: pgx.Identifier{table}.Sanitize()}
}

// Find retrieves a session.
func (s *Store) Find(ctx context.Context, id string) (*domain.Session, error) {
	var (
		raw     []byte
		session = domain.Session{ID: id}
	)
	row := s.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT variables, version, updated_at FROM %s WHERE id = $1`, s.table),
		id,
	)
	if err := row.Scan(&raw, &session.Version, &session.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.Unavailable(fmt.Errorf("failed loading session: %w", err))
	}
	if err := json.Unmarshal(raw, &session.Variables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Insert stores a new session.
func (s *Store) Insert(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tag, err := s.DB.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s(id, variables, version, updated_at) VALUES ($1, $2::jsonb, 1, $3)
		 ON CONFLICT (id) DO NOTHING`, s.table),
		session.ID, string(raw), updatedAt(session),
	)
	if err != nil {
		return domain.Unavailable(fmt.Errorf("failed saving session: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrWriteConflict
	}
	session.Version = 1
	return nil
}

// Update replaces an existing session. The version check runs in the
// WHERE clause so it cannot race with another writer.
func (s *Store) Update(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session.Variables)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	var version int64
	err = s.DB.QueryRow(ctx,
		fmt.Sprintf(`UPDATE %s SET variables = $2::jsonb, version = version + 1, updated_at = $3
		 WHERE id = $1 AND ($4::bigint = 0 OR version = $4::bigint)
		 RETURNING version`, s.table),
		session.ID, string(raw), updatedAt(session), session.Version,
	).Scan(&version)
	if err == nil {
		session.Version = version
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Unavailable(fmt.Errorf("failed updating session: %w", err))
	}
	if session.Version == 0 {
		return domain.ErrSessionNotFound
	}

	// nothing matched: either the row is gone or its version moved on
	var exists bool
	err = s.DB.QueryRow(ctx,
		fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, s.table),
		session.ID,
	).Scan(&exists)
	switch {
	case err != nil:
		return domain.Unavailable(fmt.Errorf("failed checking session: %w", err))
	case exists:
		return domain.ErrWriteConflict
	default:
		return domain.ErrSessionNotFound
	}
}

// Remove deletes a session. Removing an absent one is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	_, err := s.DB.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), id)
	if err != nil {
		return domain.Unavailable(fmt.Errorf("failed deleting session: %w", err))
	}
	return nil
}

// List returns every stored session ID in order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, fmt.Sprintf(`SELECT id FROM %s ORDER BY id`, s.table))
	if err != nil {
		return nil, domain.Unavailable(fmt.Errorf("failed DB.Query: %w", err))
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, domain.Unavailable(fmt.Errorf("failed pgx.CollectRows: %w", err))
	}
	return ids, nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.DB.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return domain.Unavailable(err)
	}
	return nil
}

// Close closes the pool opened by New. Stores built with NewFromDB leave
// the connection to their owner.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func updatedAt(session *domain.Session) time.Time {
	if session.UpdatedAt.IsZero() {
		return time.Now()
	}
	return session.UpdatedAt
}
