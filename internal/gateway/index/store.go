package index

import "context"

// Record is one indexed document: the raw argument object submitted with an
// invoke, or a primary search result.
type Record = map[string]any

// Store persists records for a tenant role and answers the primary lookup of
// the correlated search.
type Store interface {
	// InsertSearchDocument persists one record under the tenant role.
	InsertSearchDocument(ctx context.Context, role string, record Record) error

	// QueryItemNumbers returns the records for the role matching every
	// criteria field by equality. Criteria values that are not scalar are
	// ignored.
	QueryItemNumbers(ctx context.Context, role string, criteria Record) ([]Record, error)
}
