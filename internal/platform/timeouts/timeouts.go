// Package timeouts defines shared timeout constants used across the gateway.
// Centralizing these values prevents drift between the dispatch layer and the
// HTTP boundary and makes the durations discoverable.
package timeouts

import "time"

// PeerDial caps the wait time when dialing a ledger peer.
const PeerDial = 3 * time.Second

// PeerOperation caps the time dispatch waits for any single peer to complete
// one unit of work. A slow or unreachable peer must not block the others.
const PeerOperation = 45 * time.Second

// IndexWrite caps the detached search-index insert that follows an invoke.
const IndexWrite = 10 * time.Second

// RequestLifecycle bounds an entire request/response cycle. Multi-peer,
// multi-query paths can legitimately take tens of seconds.
const RequestLifecycle = 240 * time.Second

// ReadHeader limits how long the HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server waits for in-flight requests
// during graceful shutdown.
const Shutdown = 5 * time.Second
