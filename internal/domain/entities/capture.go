package entities

// CapturedImage is a photo handed to the pipeline by the capture device.
// Devices that decode on-board may forward their results through the
// Decoded* fields; see the device adapters.
type CapturedImage struct {
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type,omitempty"`

	DecodedBarcode string  `json:"decoded_barcode,omitempty"`
	RecognizedText string  `json:"recognized_text,omitempty"`
	OCRConfidence  float64 `json:"ocr_confidence,omitempty"`
}

// IsEmpty reports whether there is nothing to analyze at all.
func (i *CapturedImage) IsEmpty() bool {
	return i == nil || (len(i.Data) == 0 && i.DecodedBarcode == "" && i.RecognizedText == "")
}

// DecodedBarcode is the output of the barcode decoder collaborator.
type DecodedBarcode struct {
	Code   string `json:"code"`
	Format string `json:"format,omitempty"`
}

// RecognizedText is the output of the OCR collaborator.
type RecognizedText struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// RawSignal is the pipeline input: a barcode, recognized text, or both.
// A barcode takes precedence when present.
type RawSignal struct {
	BarcodeCode    string  `json:"barcode_code,omitempty"`
	RecognizedText string  `json:"recognized_text,omitempty"`
	OCRConfidence  float64 `json:"ocr_confidence,omitempty"`
}

// HasBarcode reports whether a barcode was decoded.
func (s RawSignal) HasBarcode() bool {
	return s.BarcodeCode != ""
}

// ExtractionRequest is sent to the AI extraction fallback.
type ExtractionRequest struct {
	Text      string `json:"text"`
	Barcode   string `json:"barcode,omitempty"`
	Language  string `json:"language"`
	Region    string `json:"region"`
	SessionID string `json:"session_id,omitempty"`
}

// CaptureState is a state of the capture orchestrator.
type CaptureState string

const (
	CaptureStateIdle          CaptureState = "idle"
	CaptureStateBarcodeScan   CaptureState = "barcode_scan"
	CaptureStateOCR           CaptureState = "ocr"
	CaptureStateTextMatch     CaptureState = "text_match"
	CaptureStateSessionCreate CaptureState = "session_create"
	CaptureStateAIExtraction  CaptureState = "ai_extraction"
	CaptureStateValidate      CaptureState = "validate"
	CaptureStatePersist       CaptureState = "persist"
	CaptureStateDone          CaptureState = "done"
	CaptureStateNothingToShow CaptureState = "nothing_to_show"
	CaptureStateFailed        CaptureState = "failed"
)

// IsTerminal reports whether no further transition follows.
func (s CaptureState) IsTerminal() bool {
	switch s {
	case CaptureStateDone, CaptureStateNothingToShow, CaptureStateFailed:
		return true
	}
	return false
}

// MessageKind tells the UI collaborator how to present an outcome.
type MessageKind string

const (
	MessageResult            MessageKind = "result"
	MessageWarning           MessageKind = "warning"
	MessageBlocked           MessageKind = "blocked"
	MessageInsufficientInput MessageKind = "insufficient_input"
	MessageRetry             MessageKind = "retry"
)

// CaptureOutcome is the terminal result of one capture attempt.
type CaptureOutcome struct {
	AttemptID    uint64            `json:"attempt_id"`
	State        CaptureState      `json:"state"`
	Signal       RawSignal         `json:"signal"`
	Record       *MedicationRecord `json:"record,omitempty"`
	Risk         *RiskAssessment   `json:"risk,omitempty"`
	SessionID    string            `json:"session_id,omitempty"`
	ExtractionID string            `json:"extraction_id,omitempty"`
	MessageKind  MessageKind       `json:"message_kind"`
	Message      string            `json:"message,omitempty"`
}
