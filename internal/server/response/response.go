// Package response writes the JSON envelope shared by every API endpoint.
// Exactly one of data and error is non-null in a written body.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/renewals/pkg/errors"
)

// Response is the envelope around every API payload.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error is the error half of the envelope.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// codes maps the statuses the API emits to their stable error codes.
var codes = map[int]string{
	http.StatusBadRequest:          "BAD_REQUEST",
	http.StatusUnauthorized:        "UNAUTHORIZED",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusMethodNotAllowed:    "METHOD_NOT_ALLOWED",
	http.StatusTooManyRequests:     "RATE_LIMITED",
	http.StatusInternalServerError: "INTERNAL_ERROR",
	http.StatusBadGateway:          "BAD_GATEWAY",
	http.StatusServiceUnavailable:  "SERVICE_UNAVAILABLE",
}

// Code returns the error code written for status.
func Code(status int) string {
	if c, ok := codes[status]; ok {
		return c
	}
	return "ERROR"
}

// Success wraps data in an envelope.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail builds an error envelope.
func Fail(code, message, details string) Response {
	return Response{Error: &Error{Code: code, Message: message, Details: details}}
}

// JSON writes resp with the given status.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Status writes an error envelope whose code is derived from status.
func Status(w http.ResponseWriter, status int, message, details string) {
	JSON(w, status, Fail(Code(status), message, details))
}

// OK writes data with 200.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// BadRequest writes a 400.
func BadRequest(w http.ResponseWriter, message, details string) {
	Status(w, http.StatusBadRequest, message, details)
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, message, details string) {
	Status(w, http.StatusUnauthorized, message, details)
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, message, details string) {
	Status(w, http.StatusNotFound, message, details)
}

// MethodNotAllowed writes a 405 naming the rejected method.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	Status(w, http.StatusMethodNotAllowed, "Method not allowed",
		"Method "+method+" is not supported for this endpoint")
}

// RateLimited writes a 429.
func RateLimited(w http.ResponseWriter, details string) {
	Status(w, http.StatusTooManyRequests, "Rate limit exceeded", details)
}

// InternalError writes a 500. The cause is never exposed to the client.
func InternalError(w http.ResponseWriter, _ error) {
	Status(w, http.StatusInternalServerError, "Internal server error", "An unexpected error occurred")
}

// ServiceUnavailable writes a 503.
func ServiceUnavailable(w http.ResponseWriter, details string) {
	Status(w, http.StatusServiceUnavailable, "Service unavailable", details)
}

// ErrorFromType picks the status for err by its sentinel.
func ErrorFromType(w http.ResponseWriter, err error) {
	switch {
	case errors.IsValidationError(err):
		BadRequest(w, err.Error(), "")
	case errors.IsNotFound(err):
		NotFound(w, err.Error(), "")
	case errors.IsSourceUnavailable(err):
		ServiceUnavailable(w, err.Error())
	case errors.IsPersistError(err):
		Status(w, http.StatusBadGateway, "Follow-ups were not saved", err.Error())
	default:
		InternalError(w, err)
	}
}
