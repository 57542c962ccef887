// Package dispatch fans a ledger operation out to its target peers, collects
// one outcome per peer, and reduces the outcome set to a single verdict.
//
// Lifecycle operations (channel create/join, chaincode install/instantiate)
// require every targeted peer to succeed. Invoke collects endorsements,
// refuses to submit when reachable endorsers disagree on the execution
// result, and otherwise forwards the endorsed proposal for ordering. Query
// addresses exactly one peer. A failure on one peer never prevents attempts
// on the others, and all outcomes are retained for diagnostics.
package dispatch
