package errors

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FromGRPC translates a gRPC transport error from a peer into a domain error.
// Unreachable and timed-out peers both map to CodeNodeUnreachable so the
// dispatcher treats them uniformly.
func FromGRPC(err error, peer string) *Error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return Wrap(CodeUnknown, "peer "+peer+": "+err.Error(), err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return &Error{
			Code:     CodeNodeUnreachable,
			Message:  "peer " + peer + " is unreachable: " + st.Message(),
			Metadata: map[string]string{"Peer": peer},
			Cause:    err,
		}
	case codes.NotFound:
		return &Error{
			Code:     CodeNotFound,
			Message:  "peer " + peer + ": " + st.Message(),
			Metadata: map[string]string{"Peer": peer},
			Cause:    err,
		}
	default:
		return &Error{
			Code:     CodeUnknown,
			Message:  "peer " + peer + ": " + st.Message(),
			Metadata: map[string]string{"Peer": peer},
			Cause:    err,
		}
	}
}
