// Package response provides the standard envelope for API responses.
// Every endpoint returns {data, error}: data on success, error on failure.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/concilia/pkg/errors"
)

// Response represents the standardized API response structure.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error represents an API error with code, message, and optional details.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Success creates a successful response with data.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail creates an error response.
func Fail(code, message, details string) Response {
	return Response{
		Error: &Error{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; encoding errors cannot be reported.
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes a successful response with 200 status.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// Created writes a successful response with 201 status.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Success(data))
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadRequest, Fail("BAD_REQUEST", message, details))
}

// Unauthorized writes a 401 error response.
func Unauthorized(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusUnauthorized, Fail("UNAUTHORIZED", message, details))
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusNotFound, Fail("NOT_FOUND", message, details))
}

// Conflict writes a 409 error response.
func Conflict(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusConflict, Fail("CONFLICT", message, details))
}

// Gone writes a 410 error response.
func Gone(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusGone, Fail("GONE", message, details))
}

// RequestTooLarge writes a 413 error response.
func RequestTooLarge(w http.ResponseWriter, details string) {
	JSON(w, http.StatusRequestEntityTooLarge, Fail("TOO_LARGE", "Request too large", details))
}

// UnsupportedMediaType writes a 415 error response.
func UnsupportedMediaType(w http.ResponseWriter, message string) {
	JSON(w, http.StatusUnsupportedMediaType, Fail("UNSUPPORTED_DOCUMENT", message, ""))
}

// Unprocessable writes a 422 error response.
func Unprocessable(w http.ResponseWriter, code, message string) {
	JSON(w, http.StatusUnprocessableEntity, Fail(code, message, ""))
}

// MethodNotAllowed writes a 405 error response.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	JSON(w, http.StatusMethodNotAllowed, Fail(
		"METHOD_NOT_ALLOWED",
		"Method not allowed",
		"Method "+method+" is not supported for this endpoint",
	))
}

// RateLimited writes a 429 error response.
func RateLimited(w http.ResponseWriter, message string) {
	JSON(w, http.StatusTooManyRequests, Fail("RATE_LIMITED", "Rate limit exceeded", message))
}

// InternalError writes a 500 error response. The error itself is not exposed.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail(
		"INTERNAL_ERROR",
		"Internal server error",
		"An unexpected error occurred",
	))
}

// ServiceUnavailable writes a 503 error response.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	JSON(w, http.StatusServiceUnavailable, Fail("SERVICE_UNAVAILABLE", "Service unavailable", message))
}

// GatewayTimeout writes a 504 error response.
func GatewayTimeout(w http.ResponseWriter, message string) {
	JSON(w, http.StatusGatewayTimeout, Fail("TIMEOUT", "Upstream timed out", message))
}

// ErrorFromType maps typed errors to HTTP responses.
func ErrorFromType(w http.ResponseWriter, err error) {
	switch {
	case errors.IsNotFound(err):
		NotFound(w, err.Error(), "")
	case errors.Is(err, errors.ErrIneligibleCell):
		Conflict(w, "Cell is before the client's billing start", err.Error())
	case errors.IsInvariant(err):
		Conflict(w, "Stored ledger is inconsistent for this cell", err.Error())
	case errors.IsValidationError(err):
		BadRequest(w, err.Error(), "")
	case errors.IsUnsupportedDocument(err):
		UnsupportedMediaType(w, err.Error())
	case errors.IsNothingExtracted(err):
		Unprocessable(w, "NOTHING_EXTRACTED", "No payments or clients found in the documents")
	case errors.IsRateLimited(err):
		RateLimited(w, "Extraction service quota exceeded")
	case errors.IsTimeout(err):
		GatewayTimeout(w, err.Error())
	case errors.Is(err, errors.ErrAPIKeyRequired):
		ServiceUnavailable(w, "Import is not configured")
	case errors.Is(err, errors.ErrProviderUnavailable):
		ServiceUnavailable(w, "Extraction service unavailable")
	default:
		var apiErr *errors.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			JSON(w, http.StatusBadGateway, Fail("UPSTREAM_ERROR", "Extraction service rejected the request", apiErr.Message))
			return
		}
		InternalError(w, err)
	}
}
