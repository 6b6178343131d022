// Package response holds the JSON envelope shared by every handler:
// success payloads, error messages and readable validation output, plus
// the mapping from domain errors to HTTP status codes.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator"

	"github.com/lavaderos/turnos-backend/internal/models"
)

const (
	// StatusOK marks a successful response.
	StatusOK = "OK"
	// StatusError marks a failed response.
	StatusError = "Error"
)

// OKResponse is the envelope of every successful response.
type OKResponse struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse is the envelope of every failed response.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

// OKWithData wraps data in a success envelope.
func OKWithData(data any) OKResponse {
	return OKResponse{
		Status: StatusOK,
		Data:   data,
	}
}

// Error wraps a message in an error envelope.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ValidationError renders validator violations as one readable message.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too short", err.Field()))
		case "gt", "gte":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a positive number", err.Field()))
		case "datetime":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a date in format 2006-01-02", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return ErrorResponse{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}

// knownErrors are the domain errors whose text is safe to show clients.
var knownErrors = []error{
	models.ErrUnauthenticated, models.ErrForbidden, models.ErrNotFound,
	models.ErrDuplicateEmail, models.ErrDuplicateSiteName, models.ErrDuplicateProof,
	models.ErrDuplicateInvoice, models.ErrDuplicateNonWorkingDay,
	models.ErrInvalidState, models.ErrAlreadyReserved,
	models.ErrInvalidUpload, models.ErrInvalidInput, models.ErrPastDate,
}

// CodeFor maps a domain error to its HTTP status code. Unknown errors
// map to 500.
func CodeFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateEmail),
		errors.Is(err, models.ErrDuplicateSiteName),
		errors.Is(err, models.ErrDuplicateProof),
		errors.Is(err, models.ErrDuplicateInvoice),
		errors.Is(err, models.ErrDuplicateNonWorkingDay),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrAlreadyReserved):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidUpload),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrPastDate):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the public message for a domain error. Unknown errors
// fall back to the given message so internals never leak.
func Message(err error, fallback string) string {
	for _, known := range knownErrors {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return fallback
}
