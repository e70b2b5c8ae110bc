package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/zatekoja/medscan/backend/internal/api/middleware"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

// maxBodyBytes bounds request bodies; a photo is the largest thing we accept.
const maxBodyBytes = 12 << 20

type dataEnvelope struct {
	Data interface{} `json:"data"`
}

type errorEnvelope struct {
	Error     string      `json:"error"`
	Type      string      `json:"type,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithData(w http.ResponseWriter, statusCode int, data interface{}) {
	respondWithJSON(w, statusCode, dataEnvelope{Data: data})
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, errorEnvelope{Error: message})
}

// respondWithAppError maps an error to a status code. Internal details are
// never echoed to the client.
func respondWithAppError(w http.ResponseWriter, err error, data interface{}) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithJSON(w, http.StatusInternalServerError, errorEnvelope{Error: "internal server error", Data: data})
		return
	}

	message := appErr.Message
	if appErr.Type == apperrors.ErrorTypeInternal {
		message = "internal server error"
	}
	respondWithJSON(w, statusForError(appErr.Type), errorEnvelope{
		Error:     message,
		Type:      string(appErr.Type),
		Retryable: appErr.Retryable(),
		Data:      data,
	})
}

func statusForError(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeDevice:
		return http.StatusBadRequest
	case apperrors.ErrorTypeOCR, apperrors.ErrorTypeInsufficientInput:
		return http.StatusUnprocessableEntity
	case apperrors.ErrorTypeExtraction:
		return http.StatusServiceUnavailable
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.NewValidationError("request body too large")
		}
		return apperrors.NewValidationError("invalid request body")
	}
	return nil
}

// requireUserID returns the caller's user id, writing a 401 when missing.
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(middleware.UserIDHeader))
	if userID == "" {
		respondWithError(w, http.StatusUnauthorized, middleware.UserIDHeader+" header is required")
		return "", false
	}
	return userID, true
}
