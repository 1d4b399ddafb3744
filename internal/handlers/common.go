package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"linkup-backend/internal/apperr"
	"linkup-backend/internal/middleware"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string        `json:"error"`
	Code    apperr.Kind   `json:"code,omitempty"`
	Details []FieldDetail `json:"details,omitempty"`
}

// FieldDetail describes one invalid request field
type FieldDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidArgument:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError logs a service failure and sends the matching status.
// Internal details never reach the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	var event *zerolog.Event
	if status >= http.StatusInternalServerError {
		event = log.Error()
	} else {
		event = log.Debug()
	}
	event.Err(err).
		Str("code", string(kind)).
		Str("user_id", middleware.GetUserID(r.Context())).
		Str("request_id", chiMiddleware.GetReqID(r.Context())).
		Msg(msg)

	message := http.StatusText(status)
	if kind != apperr.KindInternal {
		message = apperr.Message(err, message)
	}
	respondJSON(w, status, ErrorResponse{Error: message, Code: kind})
}

// decodeJSON decodes and validates a request body.
// It writes the 400 response itself and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			respondError(w, "Invalid request body", http.StatusBadRequest)
			return false
		}
		details := make([]FieldDetail, 0, len(validationErrors))
		for _, e := range validationErrors {
			details = append(details, FieldDetail{Field: e.Field(), Message: validationMessage(e)})
		}
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Request validation failed",
			Code:    apperr.KindInvalidArgument,
			Details: details,
		})
		return false
	}
	return true
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		return "Must be at least " + e.Param() + " characters"
	case "max":
		return "Must be at most " + e.Param() + " characters"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "url":
		return "Invalid URL format"
	default:
		return "Invalid value"
	}
}
