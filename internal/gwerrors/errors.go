// Package gwerrors defines the gateway's error kinds and the mapping
// from each kind to an HTTP status code and vendor-visible error code.
// Boundary handlers (ingress HTTP, rotation control API) translate an
// error's Kind through HTTPStatus and ErrorCode before writing the
// {errorCode, message, requestId, timestamp} Body.
package gwerrors

import (
	"errors"
	"net/http"
)

// Kind identifies one of the error categories spec'd for the gateway.
// It is never exposed directly to clients; HTTPStatus and ErrorCode
// translate it to an HTTP status and a stable errorCode string.
type Kind string

const (
	KindInvalidCredentials     Kind = "invalid_credentials"
	KindMissingCredentials     Kind = "missing_credentials"
	KindTokenInvalid           Kind = "token_invalid"
	KindVaultUnavailable       Kind = "vault_unavailable"
	KindVaultNotFound          Kind = "vault_not_found"
	KindRotationConflict       Kind = "rotation_conflict"
	KindRotationIllegalTransition Kind = "rotation_illegal_transition"
	KindRotationNotFound       Kind = "rotation_not_found"
	KindDownstream5xx          Kind = "downstream_5xx"
	KindMissingHeader          Kind = "missing_header"
	KindInternal               Kind = "internal"
)

// Error wraps a Kind with a redacted, client-safe message and an
// optional cause that is never rendered to the caller but is available
// to %w-unwrapping and to logging.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error of the given kind with a redacted message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind, keeping cause available for
// internal logging but never surfacing cause's text to the client.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, defaulting to KindInternal when err
// is not (or does not wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// httpStatus and errorCode together implement the mapping table of
// spec §7.
var httpStatus = map[Kind]int{
	KindInvalidCredentials:        http.StatusUnauthorized,
	KindMissingCredentials:        http.StatusUnauthorized,
	KindTokenInvalid:              http.StatusUnauthorized,
	KindVaultUnavailable:          http.StatusServiceUnavailable,
	KindVaultNotFound:             http.StatusUnauthorized,
	KindRotationConflict:          http.StatusConflict,
	KindRotationIllegalTransition: http.StatusBadRequest,
	KindRotationNotFound:          http.StatusNotFound,
	KindDownstream5xx:             http.StatusBadGateway,
	KindMissingHeader:             http.StatusBadRequest,
	KindInternal:                  http.StatusInternalServerError,
}

var errorCode = map[Kind]string{
	KindInvalidCredentials:        "AUTH_ERROR",
	KindMissingCredentials:        "AUTH_ERROR",
	KindTokenInvalid:              "AUTH_ERROR",
	KindVaultUnavailable:          "CONJUR_ERROR",
	KindVaultNotFound:             "AUTH_ERROR",
	KindRotationConflict:          "ROTATION_CONFLICT",
	KindRotationIllegalTransition: "ROTATION_ILLEGAL_TRANSITION",
	KindRotationNotFound:          "ROTATION_NOT_FOUND",
	KindDownstream5xx:             "DOWNSTREAM_ERROR",
	KindMissingHeader:             "MISSING_HEADER",
	KindInternal:                  "INTERNAL_ERROR",
}

// HTTPStatus returns the HTTP status code a Kind maps to.
func HTTPStatus(kind Kind) int {
	if code, ok := httpStatus[kind]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// ErrorCode returns the vendor-visible errorCode string a Kind maps to.
func ErrorCode(kind Kind) string {
	if code, ok := errorCode[kind]; ok {
		return code
	}
	return "INTERNAL_ERROR"
}

// Body is the standard JSON shape returned on every failure response.
type Body struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}
