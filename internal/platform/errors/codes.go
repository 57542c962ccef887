// Package errors provides structured error handling for the gateway.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request validation errors
	CodeMissingField Code = "VALIDATION_MISSING_FIELD"
	CodeInvalidArgs  Code = "VALIDATION_INVALID_ARGS"

	// Session errors
	CodeTokenMissing Code = "AUTH_TOKEN_MISSING"
	CodeTokenInvalid Code = "AUTH_TOKEN_INVALID"
	CodeTokenExpired Code = "AUTH_TOKEN_EXPIRED"
	CodeNoAccess     Code = "AUTH_NO_ACCESS"
	CodeLoginFailed  Code = "AUTH_LOGIN_FAILED"

	// Dispatch errors
	CodeNoTargetsResolved   Code = "DISPATCH_NO_TARGETS_RESOLVED"
	CodePartialNodeFailure  Code = "DISPATCH_PARTIAL_NODE_FAILURE"
	CodeEndorsementMismatch Code = "DISPATCH_ENDORSEMENT_MISMATCH"
	CodeNodeUnreachable     Code = "DISPATCH_NODE_UNREACHABLE"

	// Query classification errors
	CodeSoftQueryFailure      Code = "QUERY_SOFT_FAILURE"
	CodeEnrichmentUnavailable Code = "QUERY_ENRICHMENT_UNAVAILABLE"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// HTTPStatus maps domain codes to HTTP status codes. The boundary layer
// answers 200 with a success:false body for request-level failures, so this
// mapping is used only where a handler opts into transport status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeMissingField, CodeInvalidArgs:
		return http.StatusBadRequest
	case CodeTokenMissing, CodeTokenInvalid, CodeTokenExpired, CodeLoginFailed:
		return http.StatusUnauthorized
	case CodeNoAccess:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNodeUnreachable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
