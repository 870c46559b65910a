// Package response writes JSON and RFC 7807 problem responses.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/surfreport/hub/internal/huberrors"
)

// ErrorDetail represents a single error detail in RFC 7807 Problem Details
type ErrorDetail struct {
	Location string `json:"location,omitempty"`
	Message  string `json:"message,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// ProblemDetails represents an RFC 7807 Problem Details error response
type ProblemDetails struct {
	Type     string        `json:"type,omitempty"`
	Title    string        `json:"title"`
	Status   int           `json:"status"`
	Detail   string        `json:"detail,omitempty"`
	Instance string        `json:"instance,omitempty"`
	Errors   []ErrorDetail `json:"errors,omitempty"`
}

// RespondError writes an RFC 7807 Problem Details error response
func RespondError(w http.ResponseWriter, statusCode int, title string, detail string) {
	RespondProblem(w, ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: statusCode,
		Detail: detail,
	})
}

// RespondProblem writes problem as application/problem+json with its Status.
func RespondProblem(w http.ResponseWriter, problem ProblemDetails) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)

	if err := json.NewEncoder(w).Encode(problem); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}

// RespondBadRequest writes a 400 Bad Request error response
func RespondBadRequest(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusBadRequest, "Bad Request", detail)
}

// RespondNotFound writes a 404 Not Found error response
func RespondNotFound(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusNotFound, "Not Found", detail)
}

// RespondBadGateway writes a 502 Bad Gateway error response
func RespondBadGateway(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusBadGateway, "Bad Gateway", detail)
}

// RespondInternalServerError writes a 500 Internal Server Error response
func RespondInternalServerError(w http.ResponseWriter, detail string) {
	RespondError(w, http.StatusInternalServerError, "Internal Server Error", detail)
}

// RespondServiceError maps a service error to its status: validation 400, not found 404,
// upstream acquisition or text generation 502, anything else 500. Only classified errors
// expose their message.
func RespondServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr  *huberrors.ValidationError
		notFoundErr    *huberrors.NotFoundError
		acquisitionErr *huberrors.AcquisitionFailedError
		generationErr  *huberrors.TextGenerationFailedError
	)

	switch {
	case errors.As(err, &validationErr):
		RespondProblem(w, ProblemDetails{
			Type:   "about:blank",
			Title:  "Validation Error",
			Status: http.StatusBadRequest,
			Detail: validationErr.Error(),
			Errors: []ErrorDetail{{Location: validationErr.Field, Message: validationErr.Message}},
		})
	case errors.As(err, &notFoundErr):
		RespondNotFound(w, notFoundErr.Error())
	case errors.As(err, &acquisitionErr):
		RespondBadGateway(w, acquisitionErr.Error())
	case errors.As(err, &generationErr):
		slog.Error("text generation failed", "backend", generationErr.Backend, "error", generationErr.Err)
		RespondBadGateway(w, "report text generation failed ("+generationErr.Backend+")")
	default:
		slog.Error("unhandled service error", "error", err)
		RespondInternalServerError(w, "An unexpected error occurred")
	}
}

// RespondJSON writes a JSON response directly without wrapping
func RespondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
	}
}
