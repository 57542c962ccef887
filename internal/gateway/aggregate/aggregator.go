// Package aggregate implements the correlated search: a primary lookup, a
// ledger query derived from its result, and a composite-key join of the two
// record sets into one denormalized answer.
//
// The two queries are strictly sequential because the second query's input
// is a function of the first's result. The secondary query is best-effort:
// enrichment data may legitimately not exist yet for a given order line, so
// a secondary failure degrades to "no enrichment available" and never masks
// the primary result.
package aggregate

import (
	"context"
	"encoding/json"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chainbridge/ledgergate/internal/gateway/classify"
	"github.com/chainbridge/ledgergate/internal/gateway/facade"
	"github.com/chainbridge/ledgergate/internal/gateway/index"
	"github.com/chainbridge/ledgergate/internal/gateway/session"
)

// secondaryKeyPrefix is the key namespace of the enrichment records on the
// ledger side.
const secondaryKeyPrefix = "PO"

// Querier runs one raw ledger query. *facade.Facade satisfies it.
type Querier interface {
	QueryRaw(ctx context.Context, peerName, channel, chaincode, fn string, args []string) (string, error)
}

// Params carries the caller-supplied inputs of one correlated search.
type Params struct {
	Role      string
	Peer      string
	Channel   string
	Chaincode string
	Fn        string
	Args      index.Record
}

// keyTuple is the derived secondary-query input for one primary record. The
// field names are the chaincode's range-query contract.
type keyTuple struct {
	KeyPrefix string   `json:"KeyPrefix"`
	KeysStart []string `json:"KeysStart"`
	KeysEnd   []string `json:"KeysEnd"`
}

// Aggregator executes the correlated search as an explicit state machine.
type Aggregator struct {
	store   index.Store
	querier Querier
	tracer  trace.Tracer
}

// New wires the aggregator over the primary lookup store and the ledger
// querier.
func New(store index.Store, querier Querier) *Aggregator {
	return &Aggregator{
		store:   store,
		querier: querier,
		tracer:  otel.Tracer("ledgergate/aggregate"),
	}
}

// Run drives the state machine to completion for one request. Independent
// invocations share no state and run fully concurrently.
func (a *Aggregator) Run(ctx context.Context, sess session.Session, p Params) classify.Response {
	ctx, span := a.tracer.Start(ctx, "aggregate.correlated-search",
		trace.WithAttributes(attribute.String("aggregate.role", p.Role)))
	defer span.End()

	state := StateAuthorizing
	var primary []index.Record
	var keys []keyTuple
	var secondary []index.Record

	for {
		switch state {
		case StateAuthorizing:
			// Authorization gate, not a data filter: mismatch means no
			// further I/O at all.
			if p.Role != sess.Company {
				log.Printf("aggregate: role %q does not match session company %q", p.Role, sess.Company)
				span.SetAttributes(attribute.String("aggregate.state", StateFailed.String()))
				return classify.NoAccess()
			}
			state = StatePrimaryQuery

		case StatePrimaryQuery:
			records, err := a.primaryQuery(ctx, p)
			if err != nil {
				span.SetAttributes(attribute.String("aggregate.state", StateFailed.String()))
				return classify.Failure(err)
			}
			primary = records
			span.SetAttributes(attribute.Int("aggregate.primary_records", len(primary)))
			state = StateDeriveKeys

		case StateDeriveKeys:
			keys = deriveKeys(primary)
			state = StateSecondaryQuery

		case StateSecondaryQuery:
			secondary = a.secondaryQuery(ctx, p, keys)
			state = StateMerge

		case StateMerge:
			merge(primary, secondary)
			state = StateDone

		case StateDone:
			span.SetAttributes(attribute.String("aggregate.state", StateDone.String()))
			return classify.QuerySuccess(primary)
		}
	}
}

// primaryQuery resolves the caller's search arguments into the primary
// record set: an index lookup followed by one role-scoped ledger query
// seeded with the lookup result. Failures here, including soft payload
// failures, are terminal.
func (a *Aggregator) primaryQuery(ctx context.Context, p Params) ([]index.Record, error) {
	items, err := a.store.QueryItemNumbers(ctx, p.Role, p.Args)
	if err != nil {
		return nil, err
	}
	seed, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	args := facade.PrepareArgs(p.Role, []string{string(seed)})
	payload, err := a.querier.QueryRaw(ctx, p.Peer, p.Channel, p.Chaincode, p.Fn, args)
	if err != nil {
		return nil, err
	}
	if classify.IsSoftFailure(payload) {
		return nil, &softFailure{payload: payload}
	}
	var records []index.Record
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// secondaryQuery fetches the enrichment record set for the derived keys.
// Every failure mode degrades to nil: the primary result must still be
// returned.
func (a *Aggregator) secondaryQuery(ctx context.Context, p Params, keys []keyTuple) []index.Record {
	if len(keys) == 0 {
		return nil
	}
	encoded, err := json.Marshal(keys)
	if err != nil {
		log.Printf("aggregate: encode derived keys: %v", err)
		return nil
	}
	args := facade.PrepareArgs(p.Role, []string{string(encoded)})
	payload, err := a.querier.QueryRaw(ctx, p.Peer, p.Channel, p.Chaincode, p.Fn, args)
	if err != nil {
		log.Printf("aggregate: secondary query failed, returning primary without enrichment: %v", err)
		return nil
	}
	if classify.IsSoftFailure(payload) {
		log.Printf("aggregate: secondary query soft failure, returning primary without enrichment: %s", payload)
		return nil
	}
	var records []index.Record
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		log.Printf("aggregate: decode secondary records: %v", err)
		return nil
	}
	return records
}

// deriveKeys emits one key tuple per primary record carrying a non-empty
// order identifier. Records lacking it are simply not enriched.
func deriveKeys(primary []index.Record) []keyTuple {
	var keys []keyTuple
	for _, record := range primary {
		orderID := stringField(record, "PONO")
		if orderID == "" {
			continue
		}
		keys = append(keys, keyTuple{
			KeyPrefix: secondaryKeyPrefix,
			KeysStart: []string{orderID, stringField(record, "POITEM")},
			KeysEnd:   []string{},
		})
	}
	return keys
}

// merge attaches each matching secondary record's enrichment payload onto
// its primary record in place. Primary and secondary name the composite key
// differently (POITEM vs POItemNO) but both refer to the same order line.
// Unmatched primary records pass through unchanged; the output is always
// count-preserving on the primary side.
func merge(primary, secondary []index.Record) {
	for _, item := range primary {
		if stringField(item, "PONO") == "" {
			continue
		}
		for _, enrichment := range secondary {
			if stringField(item, "PONO") == stringField(enrichment, "PONO") &&
				stringField(item, "POITEM") == stringField(enrichment, "POItemNO") {
				item["GRInfos"] = enrichment["GRInfos"]
			}
		}
	}
}

func stringField(record index.Record, key string) string {
	value, _ := record[key].(string)
	return value
}

// softFailure carries a payload-encoded failure out of the primary query.
type softFailure struct {
	payload string
}

func (e *softFailure) Error() string {
	return e.payload
}
