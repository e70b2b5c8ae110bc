package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

const (
	sessionsTable    = "scan_sessions"
	extractionsTable = "extraction_records"
)

var (
	sessionColumns    = []interface{}{"id", "user_id", "barcode_value", "language", "region", "extraction_id", "captured_at"}
	extractionColumns = []interface{}{"id", "user_id", "medication", "quality_score", "risk_flags", "created_at"}
)

// flagCodec converts risk flags to and from the driver's column type.
type flagCodec struct {
	value func(flags []string) interface{}
	scan  func(dest *[]string) interface{}
}

// sqlScanRecorder holds the SQL shared by the Postgres and SQLite recorders.
type sqlScanRecorder struct {
	db      *sql.DB
	builder *goqu.Database
	flags   flagCodec
	metrics *observability.Metrics
	now     func() time.Time
}

func newSQLScanRecorder(dialect string, db *sql.DB, flags flagCodec) *sqlScanRecorder {
	return &sqlScanRecorder{
		db:      db,
		builder: goqu.New(dialect, db),
		flags:   flags,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetMetrics enables query latency metrics.
func (r *sqlScanRecorder) SetMetrics(metrics *observability.Metrics) {
	r.metrics = metrics
}

// CreateSession inserts a new scan session and returns its id.
func (r *sqlScanRecorder) CreateSession(ctx context.Context, userID, barcode, language, region string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", apperrors.NewValidationError("user id is required")
	}
	defer r.observe(ctx, "create_session", time.Now())

	id := uuid.NewString()
	record := goqu.Record{
		"id":            id,
		"user_id":       userID,
		"barcode_value": nullString(barcode),
		"language":      language,
		"region":        strings.ToUpper(region),
		"extraction_id": sql.NullString{},
		"captured_at":   r.now(),
	}

	query, args, err := r.builder.Insert(sessionsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build session insert query", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", apperrors.NewInternalError("failed to create scan session", err)
	}
	return id, nil
}

// CreateExtraction inserts an immutable extraction record.
func (r *sqlScanRecorder) CreateExtraction(ctx context.Context, userID string, record *entities.MedicationRecord, riskFlags []string) (string, error) {
	if record == nil {
		return "", apperrors.NewValidationError("medication record is required")
	}
	if strings.TrimSpace(userID) == "" {
		return "", apperrors.NewValidationError("user id is required")
	}
	defer r.observe(ctx, "create_extraction", time.Now())

	extraction := entities.NewExtractionRecord(userID, record, riskFlags)
	extraction.ID = uuid.NewString()
	extraction.CreatedAt = r.now()

	medication, err := json.Marshal(extraction.Medication)
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode medication record", err)
	}

	row := goqu.Record{
		"id":            extraction.ID,
		"user_id":       userID,
		"brand_name":    extraction.Medication.BrandName,
		"source_kind":   string(extraction.Medication.SourceKind),
		"medication":    string(medication),
		"quality_score": extraction.QualityScore,
		"risk_flags":    r.flags.value(extraction.RiskFlags),
		"created_at":    extraction.CreatedAt,
	}

	query, args, err := r.builder.Insert(extractionsTable).Prepared(true).Rows(row).ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build extraction insert query", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return "", apperrors.NewInternalError("failed to create extraction record", err)
	}
	return extraction.ID, nil
}

// LinkExtractionToSession sets the session's extraction id. Only the owning
// user's session is updated; anything else is reported as not found.
func (r *sqlScanRecorder) LinkExtractionToSession(ctx context.Context, userID, sessionID, extractionID string) error {
	if sessionID == "" || extractionID == "" {
		return apperrors.NewValidationError("session id and extraction id are required")
	}
	defer r.observe(ctx, "link_extraction", time.Now())

	query, args, err := r.builder.Update(sessionsTable).Prepared(true).
		Set(goqu.Record{"extraction_id": extractionID}).
		Where(goqu.Ex{"id": sessionID, "user_id": userID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build session update query", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to link extraction to session", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to link extraction to session", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("scan session %s not found", sessionID))
	}
	return nil
}

// GetSession returns one of the user's scan sessions.
func (r *sqlScanRecorder) GetSession(ctx context.Context, userID, sessionID string) (*entities.ScanSession, error) {
	defer r.observe(ctx, "get_session", time.Now())

	query, args, err := r.builder.Select(sessionColumns...).Prepared(true).
		From(sessionsTable).
		Where(goqu.Ex{"id": sessionID, "user_id": userID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build session query", err)
	}

	session := &entities.ScanSession{}
	var barcode, extractionID sql.NullString
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&session.ID,
		&session.UserID,
		&barcode,
		&session.Language,
		&session.Region,
		&extractionID,
		&session.CapturedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("scan session %s not found", sessionID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get scan session", err)
	}

	session.BarcodeValue = barcode.String
	session.ExtractionID = extractionID.String
	return session, nil
}

// GetExtraction returns one of the user's extraction records.
func (r *sqlScanRecorder) GetExtraction(ctx context.Context, userID, extractionID string) (*entities.ExtractionRecord, error) {
	defer r.observe(ctx, "get_extraction", time.Now())

	query, args, err := r.builder.Select(extractionColumns...).Prepared(true).
		From(extractionsTable).
		Where(goqu.Ex{"id": extractionID, "user_id": userID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build extraction query", err)
	}

	extraction := &entities.ExtractionRecord{}
	var medication []byte
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&extraction.ID,
		&extraction.UserID,
		&medication,
		&extraction.QualityScore,
		r.flags.scan(&extraction.RiskFlags),
		&extraction.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("extraction %s not found", extractionID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get extraction", err)
	}

	if err := json.Unmarshal(medication, &extraction.Medication); err != nil {
		return nil, apperrors.NewInternalError("failed to decode medication record", err)
	}
	extraction.Medication.EnsureLists()
	if extraction.RiskFlags == nil {
		extraction.RiskFlags = []string{}
	}
	return extraction, nil
}

func (r *sqlScanRecorder) observe(ctx context.Context, operation string, start time.Time) {
	observability.RecordDBMetric(ctx, r.metrics, operation, time.Since(start))
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}
