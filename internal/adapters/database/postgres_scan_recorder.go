package database

import (
	"context"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS scan_sessions (
  id            UUID PRIMARY KEY,
  user_id       TEXT NOT NULL,
  barcode_value TEXT,
  language      TEXT NOT NULL,
  region        TEXT NOT NULL,
  extraction_id UUID,
  captured_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_sessions_user ON scan_sessions(user_id, captured_at DESC);
CREATE TABLE IF NOT EXISTS extraction_records (
  id            UUID PRIMARY KEY,
  user_id       TEXT NOT NULL,
  brand_name    TEXT NOT NULL,
  source_kind   TEXT NOT NULL,
  medication    JSONB NOT NULL,
  quality_score DOUBLE PRECISION NOT NULL,
  risk_flags    TEXT[] NOT NULL DEFAULT '{}',
  created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extraction_records_user ON extraction_records(user_id, created_at DESC);
`

// PostgresScanRecorder persists scan sessions and extraction records in Postgres.
type PostgresScanRecorder struct {
	*sqlScanRecorder
}

// NewPostgresScanRecorder creates a recorder on the shared Postgres client.
func NewPostgresScanRecorder(client *postgres.Client) *PostgresScanRecorder {
	return &PostgresScanRecorder{
		sqlScanRecorder: newSQLScanRecorder("postgres", client.DB(), flagCodec{
			value: func(flags []string) interface{} { return pq.Array(flags) },
			scan:  func(dest *[]string) interface{} { return pq.Array(dest) },
		}),
	}
}

// EnsureSchema creates the recorder tables when missing.
func (r *PostgresScanRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, postgresSchema); err != nil {
		return apperrors.NewInternalError("failed to create scan recorder schema", err)
	}
	return nil
}
