// Package classify maps completed operation results and errors into the one
// outward response shape the gateway ever returns.
package classify

import "strings"

// FailureMarker is the substring the ledger query path embeds in payloads
// that encode a failure as a successful call result. Any payload containing
// it is reclassified as a failure. The substring match can in principle
// false-positive on legitimate payloads; that behaviour is deliberate and
// matches what the chaincode has always produced.
const FailureMarker = "Error:"

// Response is the uniform outward shape for every endpoint.
type Response struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Data          any    `json:"data,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// InvokeSuccess wraps a committed transaction id.
func InvokeSuccess(txID string) Response {
	return Response{Success: true, TransactionID: txID}
}

// Failure stringifies any hard failure.
func Failure(err error) Response {
	return Response{Success: false, Message: err.Error()}
}

// FailureMessage wraps an already-stringified failure.
func FailureMessage(message string) Response {
	return Response{Success: false, Message: message}
}

// QuerySuccess attaches a query payload verbatim.
func QuerySuccess(data any) Response {
	return Response{Success: true, Data: data}
}

// IsSoftFailure reports whether a successful query payload encodes a failure.
func IsSoftFailure(payload string) bool {
	return strings.Contains(payload, FailureMarker)
}

// QueryPayload classifies a successful query payload: marked payloads become
// failures carrying the payload as the message, everything else is a success
// with the payload attached unchanged.
func QueryPayload(payload string) Response {
	if IsSoftFailure(payload) {
		return FailureMessage(payload)
	}
	return QuerySuccess(payload)
}

// Canned bodies. The texts are part of the external contract and are kept
// exactly as callers have always received them.

// MissingField is the validation-error body naming the offending field.
func MissingField(field string) Response {
	return FailureMessage("'" + field + "' field is missing or Invalid in the request")
}

// NoAccess is the authorization-failure body.
func NoAccess() Response {
	return FailureMessage(" you have no access to call this service, please concat your administrator")
}

// LoginFailed is the login-failure body.
func LoginFailed() Response {
	return FailureMessage(" user id or password is incorrect!")
}

// AuthFailed is the generic authentication-failure body. It never reveals
// which check failed.
func AuthFailed() Response {
	return FailureMessage("Failed to authenticate token. Make sure to include the token returned from /users call in the authorization header as a Bearer token")
}
