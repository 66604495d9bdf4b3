package http

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/sheetalMehta7/chillTube-backend/pkg/errors"
	"github.com/sheetalMehta7/chillTube-backend/pkg/validator"
)

// successResponse is the envelope for every successful response.
type successResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data,omitempty"`
	Message    string `json:"message"`
}

// failureResponse is the envelope for every failed response. It never
// carries internals or stack traces.
type failureResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, successResponse{StatusCode: status, Data: data, Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	message := "Internal server error"

	var appErr *apperrors.AppError
	if status < http.StatusInternalServerError && apperrors.As(err, &appErr) {
		message = appErr.Message
	}

	writeJSON(w, status, failureResponse{StatusCode: status, Message: message})
}

func writeValidationError(w http.ResponseWriter, err error) {
	message := "request validation failed"

	var valErr *validator.ValidationError
	if apperrors.As(err, &valErr) {
		message = valErr.Error()
	}

	writeJSON(w, http.StatusBadRequest, failureResponse{
		StatusCode: http.StatusBadRequest,
		Message:    message,
	})
}
