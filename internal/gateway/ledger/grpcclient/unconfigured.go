package grpcclient

import (
	"context"
	"encoding/json"

	"github.com/chainbridge/ledgergate/internal/gateway/ledger"
	apperrors "github.com/chainbridge/ledgergate/internal/platform/errors"
)

// UnconfiguredClient satisfies ledger.Client for deployments that have not
// wired a ledger runtime. Every verb reports the peer side as unreachable so
// the dispatch layer exercises its normal failure path.
type UnconfiguredClient struct{}

func unconfigured(peer string) error {
	return apperrors.WithMetadata(
		apperrors.CodeNodeUnreachable,
		"ledger client runtime is not configured",
		map[string]string{"Peer": peer},
	)
}

func (UnconfiguredClient) CreateChannel(context.Context, string, string) error {
	return unconfigured("orderer")
}

func (UnconfiguredClient) JoinChannel(_ context.Context, peer ledger.Peer, _ string) error {
	return unconfigured(peer.Name)
}

func (UnconfiguredClient) InstallChaincode(_ context.Context, peer ledger.Peer, _, _, _ string) error {
	return unconfigured(peer.Name)
}

func (UnconfiguredClient) InstantiateChaincode(_ context.Context, peer ledger.Peer, _, _, _, _ string, _ []string) error {
	return unconfigured(peer.Name)
}

func (UnconfiguredClient) Endorse(_ context.Context, peer ledger.Peer, _, _, _ string, _ []string) (ledger.Endorsement, error) {
	return ledger.Endorsement{}, unconfigured(peer.Name)
}

func (UnconfiguredClient) Submit(context.Context, string, string, []ledger.Endorsement) error {
	return unconfigured("orderer")
}

func (UnconfiguredClient) Query(_ context.Context, peer ledger.Peer, _, _, _ string, _ []string) (string, error) {
	return "", unconfigured(peer.Name)
}

func (UnconfiguredClient) BlockByNumber(_ context.Context, peer ledger.Peer, _ string, _ uint64) (json.RawMessage, error) {
	return nil, unconfigured(peer.Name)
}

func (UnconfiguredClient) BlockByHash(_ context.Context, peer ledger.Peer, _, _ string) (json.RawMessage, error) {
	return nil, unconfigured(peer.Name)
}

func (UnconfiguredClient) TransactionByID(_ context.Context, peer ledger.Peer, _, _ string) (json.RawMessage, error) {
	return nil, unconfigured(peer.Name)
}

func (UnconfiguredClient) ChainInfo(_ context.Context, peer ledger.Peer, _ string) (json.RawMessage, error) {
	return nil, unconfigured(peer.Name)
}

func (UnconfiguredClient) Channels(_ context.Context, peer ledger.Peer) ([]string, error) {
	return nil, unconfigured(peer.Name)
}

func (UnconfiguredClient) Chaincodes(_ context.Context, peer ledger.Peer, _ ledger.ChaincodeListKind) (json.RawMessage, error) {
	return nil, unconfigured(peer.Name)
}

var _ ledger.Client = UnconfiguredClient{}
