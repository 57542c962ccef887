package dispatch

import "github.com/chainbridge/ledgergate/internal/gateway/ledger"

// Kind names the ledger action one dispatch performs.
type Kind string

const (
	KindCreateChannel        Kind = "create-channel"
	KindJoinChannel          Kind = "join-channel"
	KindInstallChaincode     Kind = "install-chaincode"
	KindInstantiateChaincode Kind = "instantiate-chaincode"
	KindInvoke               Kind = "invoke"
	KindQuery                Kind = "query"
)

// Request describes one operation against a set of target peers. It is built
// once per inbound call and never mutated after dispatch begins.
type Request struct {
	Kind      Kind
	Targets   []ledger.Peer
	Channel   string
	Chaincode string
	Version   string
	Path      string
	Fn        string
	Args      []string
	ConfigRef string
}

// Outcome records what one targeted peer did with the operation. The full
// outcome set is always retained, even when a single outcome determines the
// final verdict.
type Outcome struct {
	Peer    string
	OK      bool
	Payload string
	Err     error
}
