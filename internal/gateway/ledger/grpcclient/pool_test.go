package grpcclient

import (
	"context"
	"testing"
	"time"

	"github.com/chainbridge/ledgergate/internal/gateway/ledger"
	apperrors "github.com/chainbridge/ledgergate/internal/platform/errors"
)

func TestConnIsShared(t *testing.T) {
	pool := NewPool()
	t.Cleanup(func() { _ = pool.Close() })

	first, err := pool.Conn("192.0.2.1:7051")
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	second, err := pool.Conn("192.0.2.1:7051")
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	if first != second {
		t.Fatal("expected the same connection for the same address")
	}
}

func TestAvailableFalseForUnreachablePeer(t *testing.T) {
	pool := NewPool()
	t.Cleanup(func() { _ = pool.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// TEST-NET-1 address: the probe must fail, not hang.
	peer := ledger.Peer{Name: "peer0", Addr: "192.0.2.1:7051"}
	if pool.Available(ctx, peer) {
		t.Fatal("expected unreachable peer to be unavailable")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	pool := NewPool()
	if _, err := pool.Conn("192.0.2.1:7051"); err != nil {
		t.Fatalf("conn: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestUnconfiguredClientReportsUnreachable(t *testing.T) {
	client := UnconfiguredClient{}
	peer := ledger.Peer{Name: "peer0", Addr: "peer0:7051"}

	err := client.JoinChannel(context.Background(), peer, "mychannel")
	if apperrors.CodeOf(err) != apperrors.CodeNodeUnreachable {
		t.Fatalf("expected CodeNodeUnreachable, got %v", err)
	}

	_, err = client.Query(context.Background(), peer, "mychannel", "lenovo_bc", "query", nil)
	if apperrors.CodeOf(err) != apperrors.CodeNodeUnreachable {
		t.Fatalf("expected CodeNodeUnreachable, got %v", err)
	}
}
