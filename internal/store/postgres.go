package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	snapshotTable = "apr_snapshots"
	// BlendedProduct is the product_type of a protocol's blended APR row.
	BlendedProduct = "blended"
	// StrategyPrefix marks rows that hold a strategy APR.
	StrategyPrefix = "strategy:"

	defaultHistoryLimit = 500
	maxHistoryLimit     = 5000
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Snapshot is one recorded APR reading.
type Snapshot struct {
	CycleID     string    `json:"cycleId,omitempty"`
	Protocol    string    `json:"protocol"`
	ProductType string    `json:"productType"`
	Product     string    `json:"product,omitempty"`
	APR         float64   `json:"apr"`
	IsFallback  bool      `json:"isFallback"`
	RecordedAt  time.Time `json:"recordedAt"`
}

// HistoryQuery filters History. Zero fields are ignored.
type HistoryQuery struct {
	Protocol    string
	ProductType string
	Since       time.Time
	Limit       int
}

func insertSnapshots(rows []Snapshot) (string, []any, error) {
	b := psql.Insert(snapshotTable).
		Columns("cycle_id", "protocol", "product_type", "product", "apr", "is_fallback", "recorded_at")
	for _, r := range rows {
		b = b.Values(r.CycleID, r.Protocol, r.ProductType, r.Product, r.APR, r.IsFallback, r.RecordedAt)
	}
	return b.ToSql()
}

// RecordSnapshots writes rows in a single statement.
func (s *Store) RecordSnapshots(ctx context.Context, rows []Snapshot) error {
	if len(rows) == 0 {
		return nil
	}
	query, args, err := insertSnapshots(rows)
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = s.pool.Exec(ctx, query, args...)
	return err
}

func historyQuery(q HistoryQuery) (string, []any, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	b := psql.Select("cycle_id", "protocol", "product_type", "product", "apr", "is_fallback", "recorded_at").
		From(snapshotTable)
	if q.Protocol != "" {
		b = b.Where(sq.Eq{"protocol": q.Protocol})
	}
	if q.ProductType != "" {
		b = b.Where(sq.Eq{"product_type": q.ProductType})
	}
	if !q.Since.IsZero() {
		b = b.Where(sq.GtOrEq{"recorded_at": q.Since})
	}
	return b.OrderBy("recorded_at DESC").Limit(uint64(limit)).ToSql()
}

// History returns snapshots newest first.
func (s *Store) History(ctx context.Context, q HistoryQuery) ([]Snapshot, error) {
	query, args, err := historyQuery(q)
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Snapshot{}
	for rows.Next() {
		var r Snapshot
		if err := rows.Scan(&r.CycleID, &r.Protocol, &r.ProductType, &r.Product, &r.APR, &r.IsFallback, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune deletes snapshots older than before.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	query, args, err := psql.Delete(snapshotTable).Where(sq.Lt{"recorded_at": before}).ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
