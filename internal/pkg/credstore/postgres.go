package credstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS relay_credentials (
	deployment TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

	selectRecordSQL = `SELECT record FROM relay_credentials WHERE deployment = $1`

	upsertRecordSQL = `INSERT INTO relay_credentials (deployment, record, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (deployment) DO UPDATE SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`
)

// PgxConn is the subset of *pgxpool.Pool used by PostgresBackend.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend keeps the record in one row of relay_credentials.
type PostgresBackend struct {
	conn       PgxConn
	deployment string
}

// NewPostgresBackend returns a backend keyed by deployment.
func NewPostgresBackend(conn PgxConn, deployment string) *PostgresBackend {
	return &PostgresBackend{conn: conn, deployment: deployment}
}

// EnsureSchema creates the credentials table when missing.
func (p *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := p.conn.Exec(ctx, createTableSQL); err != nil {
		return fmt.Errorf("credstore: create table: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Name() string {
	return "postgres"
}

func (p *PostgresBackend) Read(ctx context.Context) ([]byte, error) {
	var data []byte
	err := p.conn.QueryRow(ctx, selectRecordSQL, p.deployment).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: deployment %s", ErrNotFound, p.deployment)
	}
	return data, err
}

func (p *PostgresBackend) Write(ctx context.Context, data []byte) error {
	_, err := p.conn.Exec(ctx, upsertRecordSQL, p.deployment, string(data))
	return err
}
