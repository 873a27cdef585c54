package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/OmDoke/Book-Inventory-Management-System/catalog"
	"github.com/OmDoke/Book-Inventory-Management-System/identity"
	"github.com/OmDoke/Book-Inventory-Management-System/validation"
)

var (
	errInvalidRequest  = errors.New("invalid request")
	errRequestTooLarge = errors.New("request body too large")
)

type messageResponse struct {
	Message string                   `json:"message"`
	Error   string                   `json:"error,omitempty"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

func writeValidationErrors(w http.ResponseWriter, errs validation.Errors) {
	writeJSON(w, http.StatusBadRequest, messageResponse{
		Message: "Validation failed",
		Errors:  errs,
	})
}

func (h *handlers) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := mapError(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeJSON(w, status, messageResponse{Message: message, Error: err.Error()})
		return
	}
	writeMessage(w, status, message)
}

func mapError(err error) (int, string) {
	var validationErrs validation.Errors
	switch {
	case errors.As(err, &validationErrs):
		return http.StatusBadRequest, "Validation failed"
	case errors.Is(err, errRequestTooLarge):
		return http.StatusRequestEntityTooLarge, "Request body too large"
	case errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, "Invalid request body"
	case errors.Is(err, catalog.ErrInvalidID):
		return http.StatusBadRequest, "Invalid Book ID format"
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, "Book not found"
	case errors.Is(err, identity.ErrNoToken),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrExpiredToken):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, identity.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, identity.ErrNotConfigured):
		return http.StatusInternalServerError, "Server misconfiguration: Admin credentials not set"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// decodeJSONBody decodes exactly one JSON value from the request body.
func (h *handlers) decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body is required", errInvalidRequest)
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))

	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("%w: limit %d bytes", errRequestTooLarge, maxBytesErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", errInvalidRequest)
		}
		return fmt.Errorf("%w: invalid JSON body: %v", errInvalidRequest, err)
	}
	if err := decoder.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: request body must contain exactly one JSON value", errInvalidRequest)
	}
	return nil
}
