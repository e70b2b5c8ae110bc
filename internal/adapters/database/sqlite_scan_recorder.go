package database

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/sqlite"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scan_sessions (
  id            TEXT PRIMARY KEY,
  user_id       TEXT NOT NULL,
  barcode_value TEXT,
  language      TEXT NOT NULL,
  region        TEXT NOT NULL,
  extraction_id TEXT,
  captured_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_sessions_user ON scan_sessions(user_id, captured_at);
CREATE TABLE IF NOT EXISTS extraction_records (
  id            TEXT PRIMARY KEY,
  user_id       TEXT NOT NULL,
  brand_name    TEXT NOT NULL,
  source_kind   TEXT NOT NULL,
  medication    TEXT NOT NULL,
  quality_score REAL NOT NULL,
  risk_flags    TEXT NOT NULL DEFAULT '[]',
  created_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_extraction_records_user ON extraction_records(user_id, created_at);
`

// SQLiteScanRecorder persists scan sessions and extraction records in a
// local SQLite file. Risk flags are stored as a JSON array.
type SQLiteScanRecorder struct {
	*sqlScanRecorder
}

// NewSQLiteScanRecorder creates a recorder on an open SQLite client.
func NewSQLiteScanRecorder(client *sqlite.Client) *SQLiteScanRecorder {
	return &SQLiteScanRecorder{
		sqlScanRecorder: newSQLScanRecorder("sqlite3", client.DB(), flagCodec{
			value: func(flags []string) interface{} { return jsonStrings(flags) },
			scan:  func(dest *[]string) interface{} { return (*jsonStrings)(dest) },
		}),
	}
}

// EnsureSchema creates the recorder tables when missing.
func (r *SQLiteScanRecorder) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return apperrors.NewInternalError("failed to create scan recorder schema", err)
	}
	return nil
}

// jsonStrings stores a string slice as a JSON array in a TEXT column.
type jsonStrings []string

func (s jsonStrings) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *jsonStrings) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into string list", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*s = out
	return nil
}
