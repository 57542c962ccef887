// Package index is the boundary to the search-index collaborator. Invoke
// submissions are forwarded here for later correlated search; the forwarding
// is detached from the transaction path, so an index failure is logged and
// never surfaces to the caller.
package index
