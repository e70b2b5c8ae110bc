package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/domain/repositories"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	"github.com/zatekoja/medscan/backend/pkg/config"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ErrAttemptSuperseded is returned by Capture when a newer attempt for the
// same user started before this one finished. Its result is discarded.
var ErrAttemptSuperseded = errors.New("capture attempt superseded")

const (
	messageBlocked           = "We could not identify this medication. Please try again with a clearer photo of the package."
	messageInsufficientInput = "Nothing readable was found. Try a clearer, well lit photo of the label or barcode."
	messageRetryDevice       = "The camera could not be used. Check camera and photo permissions, then try again."
	messageRetryOCR          = "The label could not be read. Make sure it is in focus and well lit, then try again."
	messageRetryExtraction   = "The identification service is unavailable right now. Please try again."
)

// CaptureOptions carries the user's locale for one capture.
type CaptureOptions struct {
	Language string
	Region   string
}

// CaptureOrchestrator drives one capture attempt from image to presented
// record. Attempts are tracked per user: starting a new attempt supersedes the
// user's previous one, whose in-flight work finishes and is discarded.
//
// The observer is invoked while the orchestrator holds its attempt lock and
// must not call back into the orchestrator.
type CaptureOrchestrator struct {
	resolver   *ResolutionService
	extractor  *ExtractionService
	validator  *ValidationService
	recorder   repositories.ScanRecorder
	decoder    providers.BarcodeDecoder
	recognizer providers.TextRecognizer
	events     providers.EventPublisher
	observer   providers.CaptureObserver
	metrics    *observability.Metrics
	cfg        config.PipelineConfig

	mu     sync.Mutex
	nextID uint64
	users  map[string]*userSlot

	ocrMu    sync.Mutex
	ocrReady bool
}

// NewCaptureOrchestrator wires the pipeline stages. recorder, decoder and
// recognizer may be nil: persistence is then skipped and the missing signal
// counts as not found.
func NewCaptureOrchestrator(
	resolver *ResolutionService,
	extractor *ExtractionService,
	validator *ValidationService,
	recorder repositories.ScanRecorder,
	decoder providers.BarcodeDecoder,
	recognizer providers.TextRecognizer,
	cfg config.PipelineConfig,
) *CaptureOrchestrator {
	return &CaptureOrchestrator{
		resolver:   resolver,
		extractor:  extractor,
		validator:  validator,
		recorder:   recorder,
		decoder:    decoder,
		recognizer: recognizer,
		cfg:        cfg,
		users:      make(map[string]*userSlot),
	}
}

// SetObserver registers the UI collaborator notified on state changes.
func (o *CaptureOrchestrator) SetObserver(observer providers.CaptureObserver) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observer = observer
}

// SetEventPublisher enables scan-completed events.
func (o *CaptureOrchestrator) SetEventPublisher(events providers.EventPublisher) {
	o.events = events
}

// SetMetrics enables pipeline metrics.
func (o *CaptureOrchestrator) SetMetrics(metrics *observability.Metrics) {
	o.metrics = metrics
}

// Retake supersedes the user's current attempt without starting a new one.
func (o *CaptureOrchestrator) Retake(userID string) uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	id := o.bumpLocked(userID)
	o.users[userID].outcome = nil
	o.notifyLocked(id, entities.CaptureStateIdle)
	return id
}

// LatestOutcome returns the outcome of the user's most recent finished
// attempt, if that attempt is still current.
func (o *CaptureOrchestrator) LatestOutcome(userID string) (*entities.CaptureOutcome, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	slot, ok := o.users[userID]
	if !ok || slot.outcome == nil {
		return nil, false
	}
	return slot.outcome, true
}

// userSlot tracks one user's current attempt id and latest finished outcome.
// Slots with nothing running are dropped once idle for OutcomeRetention.
type userSlot struct {
	attemptID uint64
	running   int
	outcome   *entities.CaptureOutcome
	touched   time.Time
}

type captureAttempt struct {
	id      uint64
	userID  string
	opts    CaptureOptions
	outcome *entities.CaptureOutcome
}

// Capture runs a full attempt. The outcome is returned for every terminal
// state. The error is non-nil for Failed (Device, OCR or Extraction error) and
// for NothingToShow (InsufficientInput, informational), and is
// ErrAttemptSuperseded with a nil outcome when a newer attempt took over.
func (o *CaptureOrchestrator) Capture(ctx context.Context, userID string, image *entities.CapturedImage, opts CaptureOptions) (*entities.CaptureOutcome, error) {
	start := time.Now()

	o.mu.Lock()
	o.pruneLocked(start)
	id := o.bumpLocked(userID)
	slot := o.users[userID]
	slot.running++
	o.notifyLocked(id, entities.CaptureStateIdle)
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		slot.running--
		slot.touched = time.Now()
		o.mu.Unlock()
	}()

	ctx, span := observability.StartSpan(ctx, "capture.attempt")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.Int64("capture.attempt_id", int64(id)),
		attribute.String("capture.language", opts.Language),
		attribute.String("capture.region", opts.Region),
	)

	a := &captureAttempt{
		id:      id,
		userID:  userID,
		opts:    opts,
		outcome: &entities.CaptureOutcome{AttemptID: id, State: entities.CaptureStateIdle},
	}

	err := o.run(ctx, a, image)
	if errors.Is(err, ErrAttemptSuperseded) {
		observability.LoggerFromContext(ctx).Debug().Uint64("attempt_id", id).Msg("capture attempt superseded, discarding result")
		return nil, ErrAttemptSuperseded
	}
	observability.RecordError(span, err)

	sourceKind := ""
	if a.outcome.Record != nil {
		sourceKind = string(a.outcome.Record.SourceKind)
		span.SetAttributes(attribute.String("medication.source_kind", sourceKind))
	}
	span.SetAttributes(attribute.String("capture.state", string(a.outcome.State)))
	observability.RecordCapture(ctx, o.metrics, string(a.outcome.State), sourceKind, time.Since(start))

	o.mu.Lock()
	defer o.mu.Unlock()
	if slot.attemptID != id {
		return nil, ErrAttemptSuperseded
	}
	slot.outcome = a.outcome
	return a.outcome, err
}

func (o *CaptureOrchestrator) run(ctx context.Context, a *captureAttempt, image *entities.CapturedImage) error {
	logger := observability.LoggerFromContext(ctx).With().Uint64("attempt_id", a.id).Logger()

	if image.IsEmpty() {
		return o.fail(a, apperrors.NewDeviceError("no image was captured", nil))
	}

	if err := o.transition(a, entities.CaptureStateBarcodeScan); err != nil {
		return err
	}

	decoded, recognized, ocrErr := o.readSignals(ctx, image)
	code := ""
	if decoded != nil {
		code = strings.TrimSpace(decoded.Code)
	}
	a.outcome.Signal.BarcodeCode = code

	if code != "" {
		if record, ok := o.resolver.ResolveByBarcode(code); ok {
			if ocrErr != nil {
				logger.Debug().Err(ocrErr).Msg("text recognition failed, barcode resolved")
			} else if recognized != nil {
				a.outcome.Signal.RecognizedText = recognized.Text
				a.outcome.Signal.OCRConfidence = recognized.Confidence
			}
			logger.Debug().Str("barcode", code).Str("brand", record.BrandName).Msg("barcode resolved from catalog")
			return o.finishBarcodeHit(ctx, a, record)
		}
		logger.Debug().Str("barcode", code).Msg("barcode not in catalog")
	}

	if err := o.transition(a, entities.CaptureStateOCR); err != nil {
		return err
	}
	if ocrErr != nil {
		return o.fail(a, ocrErr)
	}
	if recognized != nil {
		a.outcome.Signal.RecognizedText = recognized.Text
		a.outcome.Signal.OCRConfidence = recognized.Confidence
	}
	text := a.outcome.Signal.RecognizedText

	if err := o.transition(a, entities.CaptureStateTextMatch); err != nil {
		return err
	}
	if record, ok := o.resolver.ResolveByText(text); ok {
		logger.Debug().Str("brand", record.BrandName).Msg("text matched catalog entry")
		return o.finishWithPersistence(ctx, a, record, false)
	}

	if !o.extractor.HasSufficientInput(text, code) {
		a.outcome.State = entities.CaptureStateNothingToShow
		a.outcome.MessageKind = entities.MessageInsufficientInput
		a.outcome.Message = messageInsufficientInput
		if err := o.transition(a, entities.CaptureStateNothingToShow); err != nil {
			return err
		}
		return apperrors.NewInsufficientInputError("captured image has no barcode and too little text")
	}

	return o.finishWithPersistence(ctx, a, nil, true)
}

// readSignals decodes the barcode and recognizes text concurrently. A decoder
// error is a miss; a recognizer error is returned for the caller to judge.
func (o *CaptureOrchestrator) readSignals(ctx context.Context, image *entities.CapturedImage) (*entities.DecodedBarcode, *entities.RecognizedText, error) {
	var (
		decoded    *entities.DecodedBarcode
		recognized *entities.RecognizedText
		ocrErr     error
		g          errgroup.Group
	)

	if o.decoder != nil {
		g.Go(func() error {
			d, err := o.decoder.Decode(ctx, image)
			if err != nil {
				observability.LoggerFromContext(ctx).Debug().Err(err).Msg("barcode decode failed, treating as miss")
				return nil
			}
			decoded = d
			return nil
		})
	}

	if o.recognizer != nil {
		g.Go(func() error {
			if err := o.ensureOCR(ctx); err != nil {
				ocrErr = err
				return nil
			}
			r, err := o.recognizer.Recognize(ctx, image)
			if err != nil {
				ocrErr = apperrors.NewOCRError("text recognition failed", err)
				return nil
			}
			recognized = r
			return nil
		})
	}

	_ = g.Wait()
	return decoded, recognized, ocrErr
}

// ensureOCR initializes the recognizer once. A failed init is retried on the
// next attempt.
func (o *CaptureOrchestrator) ensureOCR(ctx context.Context) error {
	o.ocrMu.Lock()
	defer o.ocrMu.Unlock()
	if o.ocrReady {
		return nil
	}
	if err := o.recognizer.Init(ctx); err != nil {
		return apperrors.NewOCRError("text recognition engine is not ready", err)
	}
	o.ocrReady = true
	return nil
}

func (o *CaptureOrchestrator) finishBarcodeHit(ctx context.Context, a *captureAttempt, record *entities.MedicationRecord) error {
	if err := o.transition(a, entities.CaptureStateValidate); err != nil {
		return err
	}
	risk := o.validator.Validate(record)

	if err := o.transition(a, entities.CaptureStateSessionCreate); err != nil {
		return err
	}
	a.outcome.SessionID = o.createSession(ctx, a)

	return o.done(ctx, a, record, risk)
}

// finishWithPersistence completes the text-match path, or the AI path when
// record is nil and extract is set.
func (o *CaptureOrchestrator) finishWithPersistence(ctx context.Context, a *captureAttempt, record *entities.MedicationRecord, extract bool) error {
	if !extract {
		if err := o.transition(a, entities.CaptureStateValidate); err != nil {
			return err
		}
		risk := o.validator.Validate(record)

		if err := o.transition(a, entities.CaptureStateSessionCreate); err != nil {
			return err
		}
		a.outcome.SessionID = o.createSession(ctx, a)

		if err := o.transition(a, entities.CaptureStatePersist); err != nil {
			return err
		}
		a.outcome.ExtractionID = o.persist(ctx, a, record, risk)
		return o.done(ctx, a, record, risk)
	}

	if err := o.transition(a, entities.CaptureStateSessionCreate); err != nil {
		return err
	}
	a.outcome.SessionID = o.createSession(ctx, a)

	if err := o.transition(a, entities.CaptureStateAIExtraction); err != nil {
		return err
	}
	req := &entities.ExtractionRequest{
		Text:      a.outcome.Signal.RecognizedText,
		Barcode:   a.outcome.Signal.BarcodeCode,
		Language:  a.opts.Language,
		Region:    a.opts.Region,
		SessionID: a.outcome.SessionID,
	}
	record, err := o.extractor.Extract(ctx, req)
	if err != nil {
		if !o.stillCurrent(a) {
			return ErrAttemptSuperseded
		}
		// A barcode-only or empty capture has nothing to degrade into.
		if o.cfg.ExtractionFailurePolicy == config.FailurePolicySurface || !o.extractor.HasUsableText(req.Text) {
			return o.fail(a, err)
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).Uint64("attempt_id", a.id).Msg("ai extraction failed, degrading")
		record = o.extractor.DegradedRecord(req)
	}

	if err := o.transition(a, entities.CaptureStateValidate); err != nil {
		return err
	}
	risk := o.validator.Validate(record)

	if err := o.transition(a, entities.CaptureStatePersist); err != nil {
		return err
	}
	a.outcome.ExtractionID = o.persist(ctx, a, record, risk)
	return o.done(ctx, a, record, risk)
}

func (o *CaptureOrchestrator) createSession(ctx context.Context, a *captureAttempt) string {
	if o.recorder == nil {
		return ""
	}
	id, err := o.recorder.CreateSession(ctx, a.userID, a.outcome.Signal.BarcodeCode, a.opts.Language, a.opts.Region)
	if err != nil {
		o.swallow(ctx, a, "create_session", err)
		return ""
	}
	return id
}

func (o *CaptureOrchestrator) persist(ctx context.Context, a *captureAttempt, record *entities.MedicationRecord, risk entities.RiskAssessment) string {
	if o.recorder == nil {
		return ""
	}
	extractionID, err := o.recorder.CreateExtraction(ctx, a.userID, record, risk.Flags)
	if err != nil {
		o.swallow(ctx, a, "create_extraction", err)
		return ""
	}
	if a.outcome.SessionID != "" {
		if err := o.recorder.LinkExtractionToSession(ctx, a.userID, a.outcome.SessionID, extractionID); err != nil {
			o.swallow(ctx, a, "link_extraction", err)
		}
	}
	return extractionID
}

func (o *CaptureOrchestrator) done(ctx context.Context, a *captureAttempt, record *entities.MedicationRecord, risk entities.RiskAssessment) error {
	a.outcome.Record = record
	a.outcome.Risk = &risk
	a.outcome.State = entities.CaptureStateDone

	switch {
	case risk.BlocksPresentation:
		a.outcome.MessageKind = entities.MessageBlocked
		a.outcome.Message = messageBlocked
	case len(risk.Warnings) > 0:
		a.outcome.MessageKind = entities.MessageWarning
		a.outcome.Message = risk.Warnings[0]
	default:
		a.outcome.MessageKind = entities.MessageResult
	}

	if err := o.transition(a, entities.CaptureStateDone); err != nil {
		return err
	}
	o.publish(ctx, a, record, risk)
	return nil
}

func (o *CaptureOrchestrator) publish(ctx context.Context, a *captureAttempt, record *entities.MedicationRecord, risk entities.RiskAssessment) {
	if o.events == nil {
		return
	}
	event := &providers.ScanCompletedEvent{
		UserID:       a.userID,
		SessionID:    a.outcome.SessionID,
		ExtractionID: a.outcome.ExtractionID,
		BrandName:    record.BrandName,
		SourceKind:   string(record.SourceKind),
		Confidence:   record.ConfidenceScore,
		RiskFlags:    risk.Flags,
		OccurredAt:   time.Now().UTC(),
	}
	if err := o.events.PublishScanCompleted(ctx, event); err != nil {
		o.swallow(ctx, a, "publish_scan_completed", err)
	}
}

func (o *CaptureOrchestrator) fail(a *captureAttempt, err error) error {
	a.outcome.State = entities.CaptureStateFailed
	a.outcome.MessageKind = entities.MessageRetry
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeDevice:
		a.outcome.Message = messageRetryDevice
	case apperrors.ErrorTypeOCR:
		a.outcome.Message = messageRetryOCR
	default:
		a.outcome.Message = messageRetryExtraction
	}
	if terr := o.transition(a, entities.CaptureStateFailed); terr != nil {
		return terr
	}
	return err
}

func (o *CaptureOrchestrator) swallow(ctx context.Context, a *captureAttempt, operation string, err error) {
	observability.LoggerFromContext(ctx).Warn().
		Err(err).
		Uint64("attempt_id", a.id).
		Str("operation", operation).
		Msg("pipeline side effect failed, continuing")
	observability.RecordSwallowedFailure(ctx, o.metrics, operation)
}

// transition reports a state change for the attempt, or ErrAttemptSuperseded
// when the attempt is stale.
func (o *CaptureOrchestrator) transition(a *captureAttempt, state entities.CaptureState) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.currentLocked(a) {
		return ErrAttemptSuperseded
	}
	if !state.IsTerminal() {
		a.outcome.State = state
	}
	o.notifyLocked(a.id, state)
	return nil
}

func (o *CaptureOrchestrator) stillCurrent(a *captureAttempt) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.currentLocked(a)
}

func (o *CaptureOrchestrator) currentLocked(a *captureAttempt) bool {
	slot, ok := o.users[a.userID]
	return ok && slot.attemptID == a.id
}

func (o *CaptureOrchestrator) bumpLocked(userID string) uint64 {
	slot, ok := o.users[userID]
	if !ok {
		slot = &userSlot{}
		o.users[userID] = slot
	}
	o.nextID++
	slot.attemptID = o.nextID
	slot.touched = time.Now()
	return o.nextID
}

func (o *CaptureOrchestrator) pruneLocked(now time.Time) {
	for userID, slot := range o.users {
		if slot.running == 0 && now.Sub(slot.touched) > o.cfg.OutcomeRetention {
			delete(o.users, userID)
		}
	}
}

func (o *CaptureOrchestrator) notifyLocked(id uint64, state entities.CaptureState) {
	if o.observer != nil {
		o.observer.OnStateChange(id, state)
	}
}
