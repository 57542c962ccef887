// Package grpcclient provides the gRPC-side plumbing for the ledger
// boundary: peer connection management and health probing. The ledger wire
// protocol itself is supplied by the runtime implementation wired in at
// startup; when none is configured every ledger verb reports the peer side
// as unavailable.
package grpcclient

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/chainbridge/ledgergate/internal/gateway/ledger"
	"github.com/chainbridge/ledgergate/internal/platform/timeouts"
)

// Pool manages one client connection per peer address. Connections are
// created lazily and shared across requests.
type Pool struct {
	mu    sync.Mutex
	conns map[string]*grpc.ClientConn
}

// NewPool creates an empty connection pool.
func NewPool() *Pool {
	return &Pool{conns: make(map[string]*grpc.ClientConn)}
}

// Conn returns the shared connection for addr, dialing if needed.
func (p *Pool) Conn(addr string) (*grpc.ClientConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conn, ok := p.conns[addr]; ok {
		return conn, nil
	}
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial peer %s: %w", addr, err)
	}
	p.conns[addr] = conn
	return conn, nil
}

// Available probes a peer's health service. Any probe failure, including a
// dial failure or timeout, counts as unavailable. Implements ledger.Prober.
func (p *Pool) Available(ctx context.Context, peer ledger.Peer) bool {
	conn, err := p.Conn(peer.Addr)
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.PeerDial)
	defer cancel()
	resp, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return false
	}
	return resp.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING
}

// Close closes every pooled connection.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for addr, conn := range p.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close conn %s: %w", addr, err)
		}
		delete(p.conns, addr)
	}
	return firstErr
}
