package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
)

type mockExtractionProvider struct {
	mock.Mock
}

func (m *mockExtractionProvider) ExtractMedication(ctx context.Context, req *entities.ExtractionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

type mockScanRecorder struct {
	mock.Mock
}

func (m *mockScanRecorder) CreateSession(ctx context.Context, userID, barcode, language, region string) (string, error) {
	args := m.Called(ctx, userID, barcode, language, region)
	return args.String(0), args.Error(1)
}

func (m *mockScanRecorder) CreateExtraction(ctx context.Context, userID string, record *entities.MedicationRecord, riskFlags []string) (string, error) {
	args := m.Called(ctx, userID, record, riskFlags)
	return args.String(0), args.Error(1)
}

func (m *mockScanRecorder) LinkExtractionToSession(ctx context.Context, userID, sessionID, extractionID string) error {
	args := m.Called(ctx, userID, sessionID, extractionID)
	return args.Error(0)
}

func (m *mockScanRecorder) GetSession(ctx context.Context, userID, sessionID string) (*entities.ScanSession, error) {
	args := m.Called(ctx, userID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ScanSession), args.Error(1)
}

func (m *mockScanRecorder) GetExtraction(ctx context.Context, userID, extractionID string) (*entities.ExtractionRecord, error) {
	args := m.Called(ctx, userID, extractionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ExtractionRecord), args.Error(1)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) PublishScanCompleted(ctx context.Context, event *providers.ScanCompletedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// stubDecoder returns a fixed barcode. block, when set, holds the first call
// until it is closed and signals entered.
type stubDecoder struct {
	code    string
	err     error
	block   chan struct{}
	entered chan struct{}
	once    sync.Once
}

func (d *stubDecoder) Decode(ctx context.Context, image *entities.CapturedImage) (*entities.DecodedBarcode, error) {
	if d.block != nil {
		first := false
		d.once.Do(func() { first = true })
		if first {
			close(d.entered)
			<-d.block
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.code == "" {
		return nil, nil
	}
	return &entities.DecodedBarcode{Code: d.code, Format: "EAN_13"}, nil
}

type stubRecognizer struct {
	mu        sync.Mutex
	initErrs  []error
	initCalls int
	text      string
	err       error
}

func (r *stubRecognizer) Init(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initCalls++
	if len(r.initErrs) > 0 {
		err := r.initErrs[0]
		r.initErrs = r.initErrs[1:]
		return err
	}
	return nil
}

func (r *stubRecognizer) Recognize(ctx context.Context, image *entities.CapturedImage) (*entities.RecognizedText, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &entities.RecognizedText{Text: r.text, Confidence: 0.9}, nil
}

type stateChange struct {
	attemptID uint64
	state     entities.CaptureState
}

type recordingObserver struct {
	mu      sync.Mutex
	changes []stateChange
}

func (o *recordingObserver) OnStateChange(attemptID uint64, state entities.CaptureState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, stateChange{attemptID: attemptID, state: state})
}

func (o *recordingObserver) statesFor(attemptID uint64) []entities.CaptureState {
	o.mu.Lock()
	defer o.mu.Unlock()
	var states []entities.CaptureState
	for _, c := range o.changes {
		if c.attemptID == attemptID {
			states = append(states, c.state)
		}
	}
	return states
}
