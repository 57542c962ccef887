package aggregate

// State names one phase of the correlated query. Failed is reachable from
// every phase.
type State int

const (
	StateAuthorizing State = iota
	StatePrimaryQuery
	StateDeriveKeys
	StateSecondaryQuery
	StateMerge
	StateDone
	StateFailed
)

// String returns the phase name for logs and traces.
func (s State) String() string {
	switch s {
	case StateAuthorizing:
		return "authorizing"
	case StatePrimaryQuery:
		return "primary-query"
	case StateDeriveKeys:
		return "derive-keys"
	case StateSecondaryQuery:
		return "secondary-query"
	case StateMerge:
		return "merge"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
