package ledger

import (
	"context"
	"encoding/json"
)

// Endorsement is one peer's attestation that executing a proposed transaction
// produced the payload it carries. Payloads from all reachable endorsers must
// agree before a transaction may be submitted for ordering.
type Endorsement struct {
	Peer    string
	Payload []byte
}

// ChaincodeListKind selects which chaincode listing a peer should return.
type ChaincodeListKind string

const (
	// ChaincodesInstalled lists packages installed on the peer.
	ChaincodesInstalled ChaincodeListKind = "installed"
	// ChaincodesInstantiated lists packages running on a channel.
	ChaincodesInstantiated ChaincodeListKind = "instantiated"
)

// Client is the contract the gateway requires from the ledger client runtime.
// Implementations own enrollment, signing and wire encoding; every method is
// one round-trip against a single peer unless noted otherwise.
type Client interface {
	// CreateChannel submits a channel creation transaction to the ordering
	// service. It is not peer-addressed.
	CreateChannel(ctx context.Context, channel, configRef string) error

	JoinChannel(ctx context.Context, peer Peer, channel string) error
	InstallChaincode(ctx context.Context, peer Peer, name, path, version string) error
	InstantiateChaincode(ctx context.Context, peer Peer, channel, name, version, fn string, args []string) error

	// Endorse asks one peer to simulate the transaction and attest to its
	// result. The endorsement-policy evaluation itself stays inside the
	// runtime; the gateway only compares attested payloads.
	Endorse(ctx context.Context, peer Peer, channel, chaincode, fn string, args []string) (Endorsement, error)

	// Submit forwards an endorsed proposal for ordering and commit.
	Submit(ctx context.Context, channel, txID string, endorsements []Endorsement) error

	// Query runs a read-only chaincode function on one peer. The payload is
	// returned verbatim; the ledger query path can legitimately return error
	// text as a successful call result.
	Query(ctx context.Context, peer Peer, channel, chaincode, fn string, args []string) (string, error)

	BlockByNumber(ctx context.Context, peer Peer, channel string, number uint64) (json.RawMessage, error)
	BlockByHash(ctx context.Context, peer Peer, channel, hash string) (json.RawMessage, error)
	TransactionByID(ctx context.Context, peer Peer, channel, txID string) (json.RawMessage, error)
	ChainInfo(ctx context.Context, peer Peer, channel string) (json.RawMessage, error)
	Channels(ctx context.Context, peer Peer) ([]string, error)
	Chaincodes(ctx context.Context, peer Peer, kind ChaincodeListKind) (json.RawMessage, error)
}
