package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ddlconv/ddlconv/internal/diag"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS ddlconv_configs (
	table_name text PRIMARY KEY,
	document   jsonb NOT NULL,
	hash       text NOT NULL,
	source     text NOT NULL DEFAULT '',
	updated_at timestamptz NOT NULL
)`

// PostgresStore keeps documents in a jsonb table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and creates the table when missing.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	cfg.MaxConns = 4
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging PostgreSQL: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating registry table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Put(ctx context.Context, rec Record) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO ddlconv_configs (table_name, document, hash, source, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (table_name) DO UPDATE
SET document = EXCLUDED.document, hash = EXCLUDED.hash, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at`,
		Key(rec.Table), string(rec.Document), rec.Hash, rec.Source, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("storing %s: %w", rec.Table, err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, table string) (*Record, error) {
	var rec Record
	var doc string
	err := p.pool.QueryRow(ctx,
		`SELECT table_name, document::text, hash, source, updated_at FROM ddlconv_configs WHERE table_name = $1`,
		Key(table)).Scan(&rec.Table, &doc, &rec.Hash, &rec.Source, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, diag.NotFoundf(table, "no published configuration")
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", table, err)
	}
	rec.Document = []byte(doc)
	return &rec, nil
}

func (p *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT table_name, hash, source, updated_at FROM ddlconv_configs ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("listing configurations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Table, &rec.Hash, &rec.Source, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning configuration: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
