package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/chainbridge/ledgergate/internal/gateway/classify"
	"github.com/chainbridge/ledgergate/internal/gateway/index"
	"github.com/chainbridge/ledgergate/internal/gateway/session"
)

type fakeStore struct {
	items []index.Record
	err   error
	calls int
	role  string
}

func (s *fakeStore) InsertSearchDocument(ctx context.Context, role string, record index.Record) error {
	return nil
}

func (s *fakeStore) QueryItemNumbers(ctx context.Context, role string, criteria index.Record) ([]index.Record, error) {
	s.calls++
	s.role = role
	return s.items, s.err
}

type queryCall struct {
	peer, channel, chaincode, fn string
	args                         []string
}

// fakeQuerier returns scripted payloads in call order.
type fakeQuerier struct {
	payloads []string
	errs     []error
	calls    []queryCall
}

func (q *fakeQuerier) QueryRaw(ctx context.Context, peer, channel, chaincode, fn string, args []string) (string, error) {
	i := len(q.calls)
	q.calls = append(q.calls, queryCall{peer: peer, channel: channel, chaincode: chaincode, fn: fn, args: args})
	if i >= len(q.payloads) {
		return "", fmt.Errorf("unexpected query call %d", i)
	}
	var err error
	if i < len(q.errs) {
		err = q.errs[i]
	}
	return q.payloads[i], err
}

func testParams() Params {
	return Params{
		Role:      "acme",
		Peer:      "peer0",
		Channel:   "orders",
		Chaincode: "procurement",
		Fn:        "search",
		Args:      index.Record{"PlantCode": "W1"},
	}
}

func testSession() session.Session {
	return session.Session{Subject: "alice", Org: "Org1", Company: "acme"}
}

func TestRunMergesEnrichmentOntoPrimary(t *testing.T) {
	store := &fakeStore{items: []index.Record{{"PONO": "P1"}, {"PONO": "P2"}}}
	querier := &fakeQuerier{payloads: []string{
		`[{"PONO":"P1","POITEM":"10"},{"PONO":"P2","POITEM":"20"}]`,
		`[{"PONO":"P1","POItemNO":"10","GRInfos":"X"}]`,
	}}
	agg := New(store, querier)

	resp := agg.Run(context.Background(), testSession(), testParams())
	if !resp.Success {
		t.Fatalf("Run failed: %s", resp.Message)
	}
	records, ok := resp.Data.([]index.Record)
	if !ok {
		t.Fatalf("Data = %T, want []index.Record", resp.Data)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if got := records[0]["GRInfos"]; got != "X" {
		t.Errorf("records[0][GRInfos] = %v, want X", got)
	}
	if _, ok := records[1]["GRInfos"]; ok {
		t.Errorf("records[1] was enriched without a matching order line")
	}
}

func TestRunRoleScopesBothQueries(t *testing.T) {
	store := &fakeStore{items: []index.Record{{"PONO": "P1"}}}
	querier := &fakeQuerier{payloads: []string{
		`[{"PONO":"P1","POITEM":"10"}]`,
		`[]`,
	}}
	agg := New(store, querier)

	resp := agg.Run(context.Background(), testSession(), testParams())
	if !resp.Success {
		t.Fatalf("Run failed: %s", resp.Message)
	}
	if store.role != "acme" {
		t.Errorf("store queried as role %q, want acme", store.role)
	}
	if len(querier.calls) != 2 {
		t.Fatalf("got %d query calls, want 2", len(querier.calls))
	}
	for i, call := range querier.calls {
		if len(call.args) != 2 || call.args[0] != "acme" {
			t.Errorf("call %d args = %v, want role-prefixed pair", i, call.args)
		}
	}

	// The primary query is seeded with the index lookup result, the
	// secondary with the keys derived from the primary result.
	if want := `[{"PONO":"P1"}]`; querier.calls[0].args[1] != want {
		t.Errorf("primary seed = %s, want %s", querier.calls[0].args[1], want)
	}
	var keys []keyTuple
	if err := json.Unmarshal([]byte(querier.calls[1].args[1]), &keys); err != nil {
		t.Fatalf("decode derived keys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("got %d derived keys, want 1", len(keys))
	}
	if keys[0].KeyPrefix != "PO" {
		t.Errorf("KeyPrefix = %q, want PO", keys[0].KeyPrefix)
	}
	if len(keys[0].KeysStart) != 2 || keys[0].KeysStart[0] != "P1" || keys[0].KeysStart[1] != "10" {
		t.Errorf("KeysStart = %v, want [P1 10]", keys[0].KeysStart)
	}
	if len(keys[0].KeysEnd) != 0 {
		t.Errorf("KeysEnd = %v, want empty", keys[0].KeysEnd)
	}
}

func TestRunRejectsForeignRoleBeforeAnyQuery(t *testing.T) {
	store := &fakeStore{}
	querier := &fakeQuerier{}
	agg := New(store, querier)

	sess := testSession()
	sess.Company = "rival"
	resp := agg.Run(context.Background(), sess, testParams())
	if resp.Success {
		t.Fatal("Run succeeded for a foreign role")
	}
	if want := classify.NoAccess(); resp != want {
		t.Errorf("resp = %+v, want %+v", resp, want)
	}
	if store.calls != 0 {
		t.Errorf("index store was queried %d times after rejection", store.calls)
	}
	if len(querier.calls) != 0 {
		t.Errorf("ledger was queried %d times after rejection", len(querier.calls))
	}
}

func TestRunPrimarySoftFailureIsTerminal(t *testing.T) {
	store := &fakeStore{items: []index.Record{{"PONO": "P1"}}}
	querier := &fakeQuerier{payloads: []string{`Error: query processing failed`}}
	agg := New(store, querier)

	resp := agg.Run(context.Background(), testSession(), testParams())
	if resp.Success {
		t.Fatal("Run succeeded on a marked payload")
	}
	if resp.Message != "Error: query processing failed" {
		t.Errorf("Message = %q, want the payload verbatim", resp.Message)
	}
	if len(querier.calls) != 1 {
		t.Errorf("got %d query calls after terminal failure, want 1", len(querier.calls))
	}
}

func TestRunPrimaryHardFailureIsTerminal(t *testing.T) {
	store := &fakeStore{items: []index.Record{{"PONO": "P1"}}}
	querier := &fakeQuerier{payloads: []string{""}, errs: []error{errors.New("peer0: connection refused")}}
	agg := New(store, querier)

	resp := agg.Run(context.Background(), testSession(), testParams())
	if resp.Success {
		t.Fatal("Run succeeded on a failed primary query")
	}
	if resp.Message != "peer0: connection refused" {
		t.Errorf("Message = %q", resp.Message)
	}
}

func TestRunIndexFailureIsTerminal(t *testing.T) {
	store := &fakeStore{err: errors.New("index unavailable")}
	querier := &fakeQuerier{}
	agg := New(store, querier)

	resp := agg.Run(context.Background(), testSession(), testParams())
	if resp.Success {
		t.Fatal("Run succeeded on a failed index lookup")
	}
	if len(querier.calls) != 0 {
		t.Errorf("ledger was queried %d times after index failure", len(querier.calls))
	}
}

func TestRunSecondaryFailureDegradesToPrimary(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		err     error
	}{
		{name: "hard failure", payload: "", err: errors.New("peer0: deadline exceeded")},
		{name: "soft failure", payload: "Error: range query failed"},
		{name: "malformed payload", payload: `{"not":"an array"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{items: []index.Record{{"PONO": "P1"}}}
			querier := &fakeQuerier{
				payloads: []string{`[{"PONO":"P1","POITEM":"10"},{"PONO":"P2","POITEM":"20"}]`, tc.payload},
				errs:     []error{nil, tc.err},
			}
			agg := New(store, querier)

			resp := agg.Run(context.Background(), testSession(), testParams())
			if !resp.Success {
				t.Fatalf("Run failed: %s", resp.Message)
			}
			records := resp.Data.([]index.Record)
			if len(records) != 2 {
				t.Fatalf("got %d records, want the full primary set", len(records))
			}
			for i, record := range records {
				if _, ok := record["GRInfos"]; ok {
					t.Errorf("records[%d] was enriched from a failed secondary query", i)
				}
			}
		})
	}
}

func TestRunSkipsSecondaryQueryWithoutDerivableKeys(t *testing.T) {
	store := &fakeStore{items: []index.Record{{"PlantCode": "W1"}}}
	querier := &fakeQuerier{payloads: []string{`[{"POITEM":"10"},{"PONO":"","POITEM":"20"}]`}}
	agg := New(store, querier)

	resp := agg.Run(context.Background(), testSession(), testParams())
	if !resp.Success {
		t.Fatalf("Run failed: %s", resp.Message)
	}
	if len(querier.calls) != 1 {
		t.Errorf("got %d query calls, want the secondary query skipped", len(querier.calls))
	}
	if records := resp.Data.([]index.Record); len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}
}

func TestRunEmptyPrimaryResult(t *testing.T) {
	store := &fakeStore{}
	querier := &fakeQuerier{payloads: []string{`[]`}}
	agg := New(store, querier)

	resp := agg.Run(context.Background(), testSession(), testParams())
	if !resp.Success {
		t.Fatalf("Run failed: %s", resp.Message)
	}
	if len(querier.calls) != 1 {
		t.Errorf("got %d query calls, want 1", len(querier.calls))
	}
}
