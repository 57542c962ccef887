// Package facade exposes one typed entry point per supported ledger action.
// Every entry point validates its own required fields before any I/O, builds
// a single dispatch request, and normalizes the result into the outward
// response shape.
package facade

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/chainbridge/ledgergate/internal/gateway/classify"
	"github.com/chainbridge/ledgergate/internal/gateway/dispatch"
	"github.com/chainbridge/ledgergate/internal/gateway/index"
	"github.com/chainbridge/ledgergate/internal/gateway/ledger"
)

// Facade builds and dispatches ledger operations.
type Facade struct {
	registry   *ledger.Registry
	dispatcher *dispatch.Dispatcher
	client     ledger.Client
	detached   *index.Detached
}

// New wires the facade over its collaborators. detached may be nil when no
// search index is configured.
func New(registry *ledger.Registry, dispatcher *dispatch.Dispatcher, client ledger.Client, detached *index.Detached) *Facade {
	return &Facade{
		registry:   registry,
		dispatcher: dispatcher,
		client:     client,
		detached:   detached,
	}
}

// CreateChannel submits a channel creation transaction.
func (f *Facade) CreateChannel(ctx context.Context, channel, configRef string) classify.Response {
	if strings.TrimSpace(channel) == "" {
		return classify.MissingField("channelName")
	}
	if strings.TrimSpace(configRef) == "" {
		return classify.MissingField("channelConfigPath")
	}
	outcomes := f.dispatcher.Dispatch(ctx, dispatch.Request{
		Kind:      dispatch.KindCreateChannel,
		Channel:   channel,
		ConfigRef: configRef,
	})
	if err := dispatch.ReduceAll(outcomes); err != nil {
		return classify.Failure(err)
	}
	return classify.QuerySuccess("Channel '" + channel + "' created Successfully")
}

// JoinChannel joins the named peers to a channel. All must succeed.
func (f *Facade) JoinChannel(ctx context.Context, channel string, peerNames []string) classify.Response {
	if strings.TrimSpace(channel) == "" {
		return classify.MissingField("channelName")
	}
	if len(peerNames) == 0 {
		return classify.MissingField("peers")
	}
	targets, err := f.registry.Resolve(peerNames)
	if err != nil {
		return classify.Failure(err)
	}
	outcomes := f.dispatcher.Dispatch(ctx, dispatch.Request{
		Kind:    dispatch.KindJoinChannel,
		Targets: targets,
		Channel: channel,
	})
	if err := dispatch.ReduceAll(outcomes); err != nil {
		return classify.Failure(err)
	}
	return classify.QuerySuccess("Successfully joined peers to the channel " + channel)
}

// InstallChaincode installs a code package on the named peers. All must
// succeed.
func (f *Facade) InstallChaincode(ctx context.Context, peerNames []string, name, path, version string) classify.Response {
	if len(peerNames) == 0 {
		return classify.MissingField("peers")
	}
	if strings.TrimSpace(name) == "" {
		return classify.MissingField("chaincodeName")
	}
	if strings.TrimSpace(path) == "" {
		return classify.MissingField("chaincodePath")
	}
	if strings.TrimSpace(version) == "" {
		return classify.MissingField("chaincodeVersion")
	}
	targets, err := f.registry.Resolve(peerNames)
	if err != nil {
		return classify.Failure(err)
	}
	outcomes := f.dispatcher.Dispatch(ctx, dispatch.Request{
		Kind:      dispatch.KindInstallChaincode,
		Targets:   targets,
		Chaincode: name,
		Path:      path,
		Version:   version,
	})
	if err := dispatch.ReduceAll(outcomes); err != nil {
		return classify.Failure(err)
	}
	return classify.QuerySuccess("Successfully installed chaincode " + name)
}

// InstantiateChaincode starts a code package on a channel.
func (f *Facade) InstantiateChaincode(ctx context.Context, channel, name, version, fn string, args []string) classify.Response {
	if strings.TrimSpace(name) == "" {
		return classify.MissingField("chaincodeName")
	}
	if strings.TrimSpace(version) == "" {
		return classify.MissingField("chaincodeVersion")
	}
	if strings.TrimSpace(channel) == "" {
		return classify.MissingField("channelName")
	}
	if args == nil {
		return classify.MissingField("args")
	}
	target, err := f.registry.FirstAvailable(ctx)
	if err != nil {
		return classify.Failure(err)
	}
	outcomes := f.dispatcher.Dispatch(ctx, dispatch.Request{
		Kind:      dispatch.KindInstantiateChaincode,
		Targets:   []ledger.Peer{target},
		Channel:   channel,
		Chaincode: name,
		Version:   version,
		Fn:        fn,
		Args:      args,
	})
	if err := dispatch.ReduceAll(outcomes); err != nil {
		return classify.Failure(err)
	}
	return classify.QuerySuccess("Successfully instantiated chaincode " + name + " on " + channel)
}

// Invoke submits a transaction. The argument list is JSON-serialized into a
// single string argument before dispatch, and each argument record is also
// forwarded to the search index without blocking the transaction result.
func (f *Facade) Invoke(ctx context.Context, role string, peerNames []string, channel, chaincode, fn string, args []any) classify.Response {
	if strings.TrimSpace(chaincode) == "" {
		return classify.MissingField("chaincodeName")
	}
	if strings.TrimSpace(channel) == "" {
		return classify.MissingField("channelName")
	}
	if strings.TrimSpace(fn) == "" {
		return classify.MissingField("fcn")
	}
	if args == nil {
		return classify.MissingField("args")
	}

	targets, err := f.resolveTargets(ctx, peerNames)
	if err != nil {
		return classify.Failure(err)
	}

	serialized, err := json.Marshal(args)
	if err != nil {
		return classify.Failure(err)
	}

	// Detached indexing side effect: launched before dispatch, never awaited,
	// never able to fail the transaction.
	for _, item := range args {
		record, ok := item.(map[string]any)
		if !ok {
			continue
		}
		f.detached.Insert(role, record)
	}

	txID, _, err := f.dispatcher.Invoke(ctx, dispatch.Request{
		Kind:      dispatch.KindInvoke,
		Targets:   targets,
		Channel:   channel,
		Chaincode: chaincode,
		Fn:        fn,
		Args:      []string{string(serialized)},
	})
	if err != nil {
		return classify.Failure(err)
	}
	return classify.InvokeSuccess(txID)
}

// Query runs a read-only chaincode function against one peer and classifies
// the payload, including the soft string-encoded failure channel.
func (f *Facade) Query(ctx context.Context, peerName, channel, chaincode, fn string, args []string) classify.Response {
	if strings.TrimSpace(chaincode) == "" {
		return classify.MissingField("chaincodeName")
	}
	if strings.TrimSpace(channel) == "" {
		return classify.MissingField("channelName")
	}
	if strings.TrimSpace(fn) == "" {
		return classify.MissingField("fcn")
	}
	if args == nil {
		return classify.MissingField("args")
	}

	target, err := f.resolveOne(ctx, peerName)
	if err != nil {
		return classify.Failure(err)
	}
	payload, _, err := f.dispatcher.Query(ctx, dispatch.Request{
		Kind:      dispatch.KindQuery,
		Targets:   []ledger.Peer{target},
		Channel:   channel,
		Chaincode: chaincode,
		Fn:        fn,
		Args:      args,
	})
	if err != nil {
		return classify.Failure(err)
	}
	return classify.QueryPayload(payload)
}

// QueryRaw runs a read-only chaincode function and returns the raw payload
// with a hard error, skipping classification. The aggregator uses it so soft
// failures can degrade instead of aborting.
func (f *Facade) QueryRaw(ctx context.Context, peerName, channel, chaincode, fn string, args []string) (string, error) {
	target, err := f.resolveOne(ctx, peerName)
	if err != nil {
		return "", err
	}
	payload, _, err := f.dispatcher.Query(ctx, dispatch.Request{
		Kind:      dispatch.KindQuery,
		Targets:   []ledger.Peer{target},
		Channel:   channel,
		Chaincode: chaincode,
		Fn:        fn,
		Args:      args,
	})
	return payload, err
}

// BlockByNumber fetches one block by number from a peer.
func (f *Facade) BlockByNumber(ctx context.Context, peerName, channel, blockID string) classify.Response {
	if strings.TrimSpace(blockID) == "" {
		return classify.MissingField("blockId")
	}
	number, err := strconv.ParseUint(blockID, 10, 64)
	if err != nil {
		return classify.MissingField("blockId")
	}
	target, err := f.resolveOne(ctx, peerName)
	if err != nil {
		return classify.Failure(err)
	}
	block, err := f.client.BlockByNumber(ctx, target, channel, number)
	if err != nil {
		return classify.Failure(err)
	}
	return classify.QuerySuccess(block)
}

// BlockByHash fetches one block by hash from a peer.
func (f *Facade) BlockByHash(ctx context.Context, peerName, channel, hash string) classify.Response {
	if strings.TrimSpace(hash) == "" {
		return classify.MissingField("hash")
	}
	target, err := f.resolveOne(ctx, peerName)
	if err != nil {
		return classify.Failure(err)
	}
	block, err := f.client.BlockByHash(ctx, target, channel, hash)
	if err != nil {
		return classify.Failure(err)
	}
	return classify.QuerySuccess(block)
}

// TransactionByID fetches one committed transaction from a peer.
func (f *Facade) TransactionByID(ctx context.Context, peerName, channel, txID string) classify.Response {
	if strings.TrimSpace(txID) == "" {
		return classify.MissingField("trxnId")
	}
	target, err := f.resolveOne(ctx, peerName)
	if err != nil {
		return classify.Failure(err)
	}
	txn, err := f.client.TransactionByID(ctx, target, channel, txID)
	if err != nil {
		return classify.Failure(err)
	}
	return classify.QuerySuccess(txn)
}

// ChainInfo fetches chain height and hashes for a channel.
func (f *Facade) ChainInfo(ctx context.Context, peerName, channel string) classify.Response {
	target, err := f.resolveOne(ctx, peerName)
	if err != nil {
		return classify.Failure(err)
	}
	info, err := f.client.ChainInfo(ctx, target, channel)
	if err != nil {
		return classify.Failure(err)
	}
	return classify.QuerySuccess(info)
}

// Channels lists the channels a peer has joined. The peer is required.
func (f *Facade) Channels(ctx context.Context, peerName string) classify.Response {
	if strings.TrimSpace(peerName) == "" {
		return classify.MissingField("peer")
	}
	targets, err := f.registry.Resolve([]string{peerName})
	if err != nil {
		return classify.Failure(err)
	}
	channels, err := f.client.Channels(ctx, targets[0])
	if err != nil {
		return classify.Failure(err)
	}
	return classify.QuerySuccess(channels)
}

// Chaincodes lists installed or instantiated code packages on a peer.
func (f *Facade) Chaincodes(ctx context.Context, peerName string, kind ledger.ChaincodeListKind) classify.Response {
	target, err := f.resolveOne(ctx, peerName)
	if err != nil {
		return classify.Failure(err)
	}
	if kind != ledger.ChaincodesInstalled {
		kind = ledger.ChaincodesInstantiated
	}
	listing, err := f.client.Chaincodes(ctx, target, kind)
	if err != nil {
		return classify.Failure(err)
	}
	return classify.QuerySuccess(listing)
}

// resolveTargets resolves an explicit peer list, or selects a single peer by
// availability policy when the caller names none.
func (f *Facade) resolveTargets(ctx context.Context, peerNames []string) ([]ledger.Peer, error) {
	if len(peerNames) == 0 {
		peer, err := f.registry.FirstAvailable(ctx)
		if err != nil {
			return nil, err
		}
		return []ledger.Peer{peer}, nil
	}
	return f.registry.Resolve(peerNames)
}

// resolveOne resolves a single named peer, or selects one by availability
// policy when no name is supplied.
func (f *Facade) resolveOne(ctx context.Context, peerName string) (ledger.Peer, error) {
	if strings.TrimSpace(peerName) == "" {
		return f.registry.FirstAvailable(ctx)
	}
	targets, err := f.registry.Resolve([]string{peerName})
	if err != nil {
		return ledger.Peer{}, err
	}
	return targets[0], nil
}
