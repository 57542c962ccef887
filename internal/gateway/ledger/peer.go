package ledger

import (
	"context"
	"strings"

	apperrors "github.com/chainbridge/ledgergate/internal/platform/errors"
)

// Peer identifies one node in the ledger network.
type Peer struct {
	Name string
	Addr string
}

// Prober reports whether a peer is currently reachable.
type Prober interface {
	Available(ctx context.Context, peer Peer) bool
}

// alwaysAvailable is the prober used when none is configured.
type alwaysAvailable struct{}

func (alwaysAvailable) Available(context.Context, Peer) bool { return true }

// Registry resolves caller-supplied peer names against the configured
// network and selects peers by availability when the caller names none.
type Registry struct {
	peers  []Peer
	byName map[string]Peer
	prober Prober
}

// NewRegistry builds a registry over the configured peer set. prober may be
// nil, in which case every peer is assumed reachable.
func NewRegistry(peers []Peer, prober Prober) *Registry {
	if prober == nil {
		prober = alwaysAvailable{}
	}
	byName := make(map[string]Peer, len(peers))
	for _, p := range peers {
		byName[p.Name] = p
	}
	return &Registry{
		peers:  peers,
		byName: byName,
		prober: prober,
	}
}

// Resolve maps caller-supplied names to configured peers, preserving order.
// Unknown names and an empty resolution are both NO_TARGETS_RESOLVED.
func (r *Registry) Resolve(names []string) ([]Peer, error) {
	var resolved []Peer
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		peer, ok := r.byName[name]
		if !ok {
			return nil, apperrors.WithMetadata(
				apperrors.CodeNoTargetsResolved,
				"peer "+name+" is not part of the configured network",
				map[string]string{"Peer": name},
			)
		}
		resolved = append(resolved, peer)
	}
	if len(resolved) == 0 {
		return nil, apperrors.New(apperrors.CodeNoTargetsResolved, "no target peers resolved")
	}
	return resolved, nil
}

// FirstAvailable selects one peer by availability policy: the first
// configured peer that answers a health probe.
func (r *Registry) FirstAvailable(ctx context.Context) (Peer, error) {
	for _, peer := range r.peers {
		if r.prober.Available(ctx, peer) {
			return peer, nil
		}
	}
	return Peer{}, apperrors.New(apperrors.CodeNoTargetsResolved, "no available peer in the configured network")
}

// Peers returns the configured peer set in configuration order.
func (r *Registry) Peers() []Peer {
	out := make([]Peer, len(r.peers))
	copy(out, r.peers)
	return out
}
