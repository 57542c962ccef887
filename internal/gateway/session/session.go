package session

import (
	"context"
	"time"
)

// Session is the immutable request-scoped identity produced by Authenticate.
// A valid session always carries both an organization and a company tenant;
// absence of either is an authentication failure, never a partial session.
type Session struct {
	Subject   string
	Org       string
	Company   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// sessionContextKey is the context key for the authenticated session.
type sessionContextKey struct{}

// WithContext stores an authenticated session in context.
func WithContext(ctx context.Context, sess Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// FromContext returns the session stored in context, if any.
func FromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	sess, ok := ctx.Value(sessionContextKey{}).(Session)
	return sess, ok
}
