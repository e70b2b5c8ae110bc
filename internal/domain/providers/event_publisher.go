package providers

import (
	"context"
	"time"
)

// EventChannelScanCompleted carries one event per finished capture attempt.
const EventChannelScanCompleted = "scan:completed"

// ScanCompletedEvent is published for downstream consumers such as reminders
// and family sharing.
type ScanCompletedEvent struct {
	UserID       string    `json:"user_id"`
	SessionID    string    `json:"session_id,omitempty"`
	ExtractionID string    `json:"extraction_id,omitempty"`
	BrandName    string    `json:"brand_name"`
	SourceKind   string    `json:"source_kind"`
	Confidence   float64   `json:"confidence"`
	RiskFlags    []string  `json:"risk_flags"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// EventPublisher publishes pipeline events.
type EventPublisher interface {
	PublishScanCompleted(ctx context.Context, event *ScanCompletedEvent) error
}
