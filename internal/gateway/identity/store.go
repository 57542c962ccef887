// Package identity is the boundary to the credential collaborator used at
// session creation. A lookup either returns the caller profile or nothing,
// denoting an invalid credential; it never reveals why a credential failed.
package identity

import "context"

// Profile is the stored caller profile returned on a successful credential
// check. Company is the tenant stamped into the session token.
type Profile struct {
	Subject string
	Company string
}

// Store verifies caller credentials.
type Store interface {
	// Lookup returns the profile for subject when credential matches, nil
	// when the subject is unknown or the credential is wrong.
	Lookup(ctx context.Context, subject, credential string) (*Profile, error)
}
