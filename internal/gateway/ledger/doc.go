// Package ledger defines the boundary to the permissioned ledger network.
//
// The gateway orchestrates operations across peers but does not implement the
// ledger client runtime itself: membership enrollment, cryptographic signing
// and wire encoding belong to the Client implementation plugged in at wiring
// time. This package owns the peer registry, the availability policy, and the
// contract every Client implementation must satisfy.
package ledger
