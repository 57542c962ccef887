package dispatch

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chainbridge/ledgergate/internal/gateway/ledger"
	apperrors "github.com/chainbridge/ledgergate/internal/platform/errors"
	"github.com/chainbridge/ledgergate/internal/platform/requestctx"
	"github.com/chainbridge/ledgergate/internal/platform/timeouts"
)

// Dispatcher coordinates one operation across a variable set of peers.
type Dispatcher struct {
	client  ledger.Client
	timeout time.Duration
	tracer  trace.Tracer
}

// New creates a dispatcher over the given ledger client. perPeerTimeout
// bounds how long any single peer may take; zero uses the shared default.
func New(client ledger.Client, perPeerTimeout time.Duration) *Dispatcher {
	if perPeerTimeout <= 0 {
		perPeerTimeout = timeouts.PeerOperation
	}
	return &Dispatcher{
		client:  client,
		timeout: perPeerTimeout,
		tracer:  otel.Tracer("ledgergate/dispatch"),
	}
}

// Dispatch fans the request out to every target as an independent unit of
// work and returns outcomes in target order. Outcomes may resolve in any
// order internally; all are awaited before returning. A dispatch with zero
// resolvable targets is itself a failure outcome, never an empty set.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) []Outcome {
	// Reuse the boundary's correlation id when one is present so dispatch
	// log lines join up with the request that caused them.
	dispatchID := requestctx.RequestIDFromContext(ctx)
	if dispatchID == "" {
		dispatchID = uuid.NewString()
	}
	ctx, span := d.tracer.Start(ctx, "dispatch."+string(req.Kind),
		trace.WithAttributes(
			attribute.String("dispatch.id", dispatchID),
			attribute.String("dispatch.channel", req.Channel),
			attribute.Int("dispatch.targets", len(req.Targets)),
		))
	defer span.End()

	if req.Kind == KindCreateChannel {
		// Channel creation addresses the ordering service, not a peer set.
		outcome := d.run(ctx, req, ledger.Peer{Name: "orderer"})
		d.logOutcomes(req, dispatchID, []Outcome{outcome})
		return []Outcome{outcome}
	}

	if len(req.Targets) == 0 {
		return []Outcome{{
			OK:  false,
			Err: apperrors.New(apperrors.CodeNoTargetsResolved, "no target peers resolved"),
		}}
	}

	outcomes := make([]Outcome, len(req.Targets))
	var wg sync.WaitGroup
	for i, peer := range req.Targets {
		wg.Add(1)
		go func(i int, peer ledger.Peer) {
			defer wg.Done()
			outcomes[i] = d.run(ctx, req, peer)
		}(i, peer)
	}
	wg.Wait()

	d.logOutcomes(req, dispatchID, outcomes)
	return outcomes
}

// run performs the requested ledger action against one peer, bounded by the
// per-peer timeout so an unreachable peer cannot block the others. Once
// dispatched, peer work runs to completion or timeout even if the caller
// abandons the request; caller cancellation is deliberately not propagated.
func (d *Dispatcher) run(ctx context.Context, req Request, peer ledger.Peer) Outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	outcome := Outcome{Peer: peer.Name}
	var err error
	switch req.Kind {
	case KindCreateChannel:
		err = d.client.CreateChannel(ctx, req.Channel, req.ConfigRef)
	case KindJoinChannel:
		err = d.client.JoinChannel(ctx, peer, req.Channel)
	case KindInstallChaincode:
		err = d.client.InstallChaincode(ctx, peer, req.Chaincode, req.Path, req.Version)
	case KindInstantiateChaincode:
		err = d.client.InstantiateChaincode(ctx, peer, req.Channel, req.Chaincode, req.Version, req.Fn, req.Args)
	case KindInvoke:
		var endorsement ledger.Endorsement
		endorsement, err = d.client.Endorse(ctx, peer, req.Channel, req.Chaincode, req.Fn, req.Args)
		outcome.Payload = string(endorsement.Payload)
	case KindQuery:
		outcome.Payload, err = d.client.Query(ctx, peer, req.Channel, req.Chaincode, req.Fn, req.Args)
	default:
		err = apperrors.New(apperrors.CodeUnknown, "unsupported operation kind "+string(req.Kind))
	}
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.OK = true
	return outcome
}

// Invoke collects endorsements from the target set, verifies the reachable
// endorsers agree on the execution result, and forwards the endorsed
// proposal for ordering. Nothing is submitted when any reachable endorser
// signals a value mismatch.
func (d *Dispatcher) Invoke(ctx context.Context, req Request) (string, []Outcome, error) {
	outcomes := d.Dispatch(ctx, req)

	var endorsements []ledger.Endorsement
	var firstErr error
	for _, o := range outcomes {
		if !o.OK {
			if firstErr == nil {
				firstErr = o.Err
			}
			continue
		}
		endorsements = append(endorsements, ledger.Endorsement{
			Peer:    o.Peer,
			Payload: []byte(o.Payload),
		})
	}
	if len(endorsements) == 0 {
		if firstErr == nil {
			firstErr = apperrors.New(apperrors.CodeNoTargetsResolved, "no target peers resolved")
		}
		return "", outcomes, firstErr
	}
	for _, e := range endorsements[1:] {
		if string(e.Payload) != string(endorsements[0].Payload) {
			return "", outcomes, apperrors.WithMetadata(
				apperrors.CodeEndorsementMismatch,
				"endorsers returned mismatched results",
				map[string]string{"Peers": endorsements[0].Peer + "," + e.Peer},
			)
		}
	}

	txID := uuid.NewString()
	if err := d.client.Submit(ctx, req.Channel, txID, endorsements); err != nil {
		return "", outcomes, err
	}
	return txID, outcomes, nil
}

// Query runs a read-only operation against exactly one peer and returns its
// payload verbatim.
func (d *Dispatcher) Query(ctx context.Context, req Request) (string, []Outcome, error) {
	if len(req.Targets) != 1 {
		err := apperrors.New(apperrors.CodeNoTargetsResolved, "query requires exactly one answering peer")
		return "", []Outcome{{OK: false, Err: err}}, err
	}
	outcomes := d.Dispatch(ctx, req)
	if !outcomes[0].OK {
		return "", outcomes, outcomes[0].Err
	}
	return outcomes[0].Payload, outcomes, nil
}

// logOutcomes records every per-peer outcome, success or failure, so a
// partial failure still leaves a full diagnostic trail.
func (d *Dispatcher) logOutcomes(req Request, dispatchID string, outcomes []Outcome) {
	for _, o := range outcomes {
		if o.OK {
			log.Printf("dispatch %s [%s]: peer %s ok", req.Kind, dispatchID, o.Peer)
			continue
		}
		log.Printf("dispatch %s [%s]: peer %s failed: %v", req.Kind, dispatchID, o.Peer, o.Err)
	}
}
