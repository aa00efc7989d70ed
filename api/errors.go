package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"

	"webstories/models"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeValidationError  = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeConflict         = "CONFLICT"
	CodePayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	CodeMediaUnavailable = "MEDIA_UNAVAILABLE"
	CodeInternalError    = "INTERNAL_ERROR"
)

// ErrorBody is the JSON shape of every error response:
// {"error": {"code": "...", "message": "..."}}.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// writeServiceError maps an engine or repository error to its response.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validation *models.ValidationError
		upstream   *models.UpstreamMediaError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &validation):
		WriteError(w, http.StatusBadRequest, CodeValidationError, validation.Error())
	case errors.Is(err, models.ErrInvalidID):
		WriteError(w, http.StatusBadRequest, CodeValidationError, err.Error())
	case errors.Is(err, models.ErrNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound, "Story not found")
	case errors.Is(err, models.ErrConflict):
		WriteError(w, http.StatusConflict, CodeConflict, err.Error())
	case errors.As(err, &tooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
			"request body exceeds "+humanize.IBytes(uint64(tooLarge.Limit)))
	case errors.As(err, &upstream):
		logger.Error("media store failure", slog.String("error", err.Error()))
		WriteError(w, http.StatusBadGateway, CodeMediaUnavailable, "media upload failed")
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		WriteError(w, http.StatusInternalServerError, CodeInternalError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
