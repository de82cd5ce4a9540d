package store

import "context"

const migrationSQL = `
CREATE TABLE IF NOT EXISTS apr_snapshots (
    id BIGSERIAL PRIMARY KEY,
    cycle_id TEXT NOT NULL DEFAULT '',
    protocol TEXT NOT NULL,
    product_type TEXT NOT NULL,
    product TEXT NOT NULL DEFAULT '',
    apr DOUBLE PRECISION NOT NULL,
    is_fallback BOOLEAN NOT NULL DEFAULT false,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS apr_snapshots_protocol_time
    ON apr_snapshots (protocol, recorded_at DESC);
`

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, migrationSQL)
	return err
}
