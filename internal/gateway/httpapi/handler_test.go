package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/chainbridge/ledgergate/internal/gateway/aggregate"
	"github.com/chainbridge/ledgergate/internal/gateway/classify"
	"github.com/chainbridge/ledgergate/internal/gateway/identity"
	"github.com/chainbridge/ledgergate/internal/gateway/ledger"
	"github.com/chainbridge/ledgergate/internal/gateway/session"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeLedger records the last facade call and answers a canned response.
type fakeLedger struct {
	resp classify.Response

	method    string
	role      string
	peer      string
	peers     []string
	channel   string
	chaincode string
	fn        string
	strArgs   []string
	anyArgs   []any
	ref       string
	kind      ledger.ChaincodeListKind
}

func (f *fakeLedger) CreateChannel(ctx context.Context, channel, configRef string) classify.Response {
	f.method, f.channel, f.ref = "CreateChannel", channel, configRef
	return f.resp
}

func (f *fakeLedger) JoinChannel(ctx context.Context, channel string, peerNames []string) classify.Response {
	f.method, f.channel, f.peers = "JoinChannel", channel, peerNames
	return f.resp
}

func (f *fakeLedger) InstallChaincode(ctx context.Context, peerNames []string, name, path, version string) classify.Response {
	f.method, f.peers, f.chaincode, f.ref = "InstallChaincode", peerNames, name, path
	return f.resp
}

func (f *fakeLedger) InstantiateChaincode(ctx context.Context, channel, name, version, fn string, args []string) classify.Response {
	f.method, f.channel, f.chaincode, f.fn, f.strArgs = "InstantiateChaincode", channel, name, fn, args
	return f.resp
}

func (f *fakeLedger) Invoke(ctx context.Context, role string, peerNames []string, channel, chaincode, fn string, args []any) classify.Response {
	f.method, f.role, f.peers, f.channel, f.chaincode, f.fn, f.anyArgs = "Invoke", role, peerNames, channel, chaincode, fn, args
	return f.resp
}

func (f *fakeLedger) Query(ctx context.Context, peerName, channel, chaincode, fn string, args []string) classify.Response {
	f.method, f.peer, f.channel, f.chaincode, f.fn, f.strArgs = "Query", peerName, channel, chaincode, fn, args
	return f.resp
}

func (f *fakeLedger) BlockByNumber(ctx context.Context, peerName, channel, blockID string) classify.Response {
	f.method, f.peer, f.channel, f.ref = "BlockByNumber", peerName, channel, blockID
	return f.resp
}

func (f *fakeLedger) BlockByHash(ctx context.Context, peerName, channel, hash string) classify.Response {
	f.method, f.peer, f.channel, f.ref = "BlockByHash", peerName, channel, hash
	return f.resp
}

func (f *fakeLedger) TransactionByID(ctx context.Context, peerName, channel, txID string) classify.Response {
	f.method, f.peer, f.channel, f.ref = "TransactionByID", peerName, channel, txID
	return f.resp
}

func (f *fakeLedger) ChainInfo(ctx context.Context, peerName, channel string) classify.Response {
	f.method, f.peer, f.channel = "ChainInfo", peerName, channel
	return f.resp
}

func (f *fakeLedger) Channels(ctx context.Context, peerName string) classify.Response {
	f.method, f.peer = "Channels", peerName
	return f.resp
}

func (f *fakeLedger) Chaincodes(ctx context.Context, peerName string, kind ledger.ChaincodeListKind) classify.Response {
	f.method, f.peer, f.kind = "Chaincodes", peerName, kind
	return f.resp
}

type fakeSearch struct {
	resp   classify.Response
	called bool
	sess   session.Session
	params aggregate.Params
}

func (f *fakeSearch) Run(ctx context.Context, sess session.Session, p aggregate.Params) classify.Response {
	f.called = true
	f.sess = sess
	f.params = p
	return f.resp
}

type fakeIdentities struct {
	profiles map[string]identity.Profile
	secrets  map[string]string
}

func (f *fakeIdentities) Lookup(ctx context.Context, subject, credential string) (*identity.Profile, error) {
	if f.secrets[subject] != credential {
		return nil, nil
	}
	profile, ok := f.profiles[subject]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

type fixture struct {
	handler *Handler
	ledger  *fakeLedger
	search  *fakeSearch
	tokens  *session.Authenticator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := session.NewAuthenticator("thisismysecret", time.Hour, func() time.Time { return fixedNow })
	if err != nil {
		t.Fatalf("new authenticator: %v", err)
	}
	identities := &fakeIdentities{
		profiles: map[string]identity.Profile{"jim": {Subject: "jim", Company: "lenovo"}},
		secrets:  map[string]string{"jim": "secret"},
	}
	ops := &fakeLedger{resp: classify.QuerySuccess("ok")}
	search := &fakeSearch{resp: classify.QuerySuccess(nil)}
	return &fixture{
		handler: NewHandler(tokens, identities, ops, search),
		ledger:  ops,
		search:  search,
		tokens:  tokens,
	}
}

func (f *fixture) request(t *testing.T, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) token(t *testing.T) string {
	t.Helper()
	token, err := f.tokens.Issue("jim", "Org1", "lenovo")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) classify.Response {
	t.Helper()
	var resp classify.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/users", `{"username":"jim","orgName":"Org1","password":"secret"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success {
		t.Fatalf("login failed: %s", resp.Message)
	}
	sess, err := f.tokens.Authenticate(resp.Token)
	if err != nil {
		t.Fatalf("returned token does not authenticate: %v", err)
	}
	if sess.Company != "lenovo" {
		t.Errorf("session company = %q, want lenovo", sess.Company)
	}
}

func TestLoginValidatesFields(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/users", `{"orgName":"Org1"}`, "")
	if got := decodeResponse(t, rec).Message; got != "'username' field is missing or Invalid in the request" {
		t.Errorf("message = %q", got)
	}

	rec = f.request(t, http.MethodPost, "/users", `{"username":"jim"}`, "")
	if got := decodeResponse(t, rec).Message; got != "'orgName' field is missing or Invalid in the request" {
		t.Errorf("message = %q", got)
	}
}

func TestLoginRejectsBadCredential(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/users", `{"username":"jim","orgName":"Org1","password":"wrong"}`, "")
	resp := decodeResponse(t, rec)
	if resp.Success {
		t.Fatal("login succeeded with a wrong password")
	}
	if want := classify.LoginFailed().Message; resp.Message != want {
		t.Errorf("message = %q, want %q", resp.Message, want)
	}
}

func TestBearerGateRejectsMissingToken(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/channels?peer=peer0", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if want := classify.AuthFailed().Message; decodeResponse(t, rec).Message != want {
		t.Errorf("body is not the canned authentication failure")
	}
	if f.ledger.method != "" {
		t.Errorf("ledger was called without a valid token: %s", f.ledger.method)
	}
}

func TestBearerGateRejectsForgedToken(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodGet, "/channels?peer=peer0", "", "not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestInvokeRoute(t *testing.T) {
	f := newFixture(t)

	body := `{"peers":["peer0","peer1"],"fcn":"createPO","args":[{"PONO":"P1"}]}`
	rec := f.request(t, http.MethodPost, "/lenovo/channels/orders/chaincodes/procurement", body, f.token(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.ledger.method != "Invoke" {
		t.Fatalf("method = %q, want Invoke", f.ledger.method)
	}
	if f.ledger.role != "lenovo" || f.ledger.channel != "orders" || f.ledger.chaincode != "procurement" || f.ledger.fn != "createPO" {
		t.Errorf("invoke got role=%q channel=%q chaincode=%q fn=%q", f.ledger.role, f.ledger.channel, f.ledger.chaincode, f.ledger.fn)
	}
	if len(f.ledger.peers) != 2 || len(f.ledger.anyArgs) != 1 {
		t.Errorf("invoke got peers=%v args=%v", f.ledger.peers, f.ledger.anyArgs)
	}
}

func TestQueryRouteNormalizesRelaxedQuoting(t *testing.T) {
	f := newFixture(t)

	target := "/lenovo/channels/orders/chaincodes/procurement?fcn=readPO&args=" + url.QueryEscape(`['a','b']`)
	rec := f.request(t, http.MethodGet, target, "", f.token(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.ledger.method != "Query" {
		t.Fatalf("method = %q, want Query", f.ledger.method)
	}
	if len(f.ledger.strArgs) != 2 || f.ledger.strArgs[0] != "a" || f.ledger.strArgs[1] != "b" {
		t.Errorf("args = %v, want [a b]", f.ledger.strArgs)
	}
}

func TestRoleQueryRoutePrefixesArgs(t *testing.T) {
	f := newFixture(t)

	body := `{"fcn":"readPO","args":["{\"PONO\":\"P1\"}"]}`
	rec := f.request(t, http.MethodPost, "/lenovo/channels/orders/chaincodes/procurement/query?peer=peer1", body, f.token(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f.ledger.peer != "peer1" {
		t.Errorf("peer = %q, want peer1", f.ledger.peer)
	}
	if len(f.ledger.strArgs) != 2 || f.ledger.strArgs[0] != "lenovo" {
		t.Errorf("args = %v, want role-prefixed pair", f.ledger.strArgs)
	}
}

func TestSearchRouteUppercasesKeyPrefixAndPassesSession(t *testing.T) {
	f := newFixture(t)

	body := `{"fcn":"searchPO","args":{"PlantCode":"W1"}}`
	rec := f.request(t, http.MethodPost, "/lenovo/channels/orders/chaincodes/procurement/po/search?peer=peer0", body, f.token(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !f.search.called {
		t.Fatal("searcher was not called")
	}
	if f.search.sess.Company != "lenovo" {
		t.Errorf("session company = %q, want lenovo", f.search.sess.Company)
	}
	p := f.search.params
	if p.Role != "lenovo" || p.Peer != "peer0" || p.Channel != "orders" || p.Chaincode != "procurement" || p.Fn != "searchPO" {
		t.Errorf("params = %+v", p)
	}
	if got := p.Args["keyprefix"]; got != "PO" {
		t.Errorf("keyprefix = %v, want PO (uppercased)", got)
	}
	if got := p.Args["PlantCode"]; got != "W1" {
		t.Errorf("criteria lost: PlantCode = %v", got)
	}
}

func TestSearchRouteValidatesBody(t *testing.T) {
	f := newFixture(t)

	rec := f.request(t, http.MethodPost, "/lenovo/channels/orders/chaincodes/procurement/po/search", `{"args":{"a":"b"}}`, f.token(t))
	if got := decodeResponse(t, rec).Message; got != "'fcn' field is missing or Invalid in the request" {
		t.Errorf("message = %q", got)
	}
	if f.search.called {
		t.Error("searcher was called on a validation failure")
	}
}

func TestIntrospectionRoutes(t *testing.T) {
	cases := []struct {
		name   string
		target string
		method string
		ref    string
	}{
		{name: "block by number", target: "/channels/orders/blocks/7?peer=peer0", method: "BlockByNumber", ref: "7"},
		{name: "block by hash", target: "/channels/orders/blocks?hash=abc&peer=peer0", method: "BlockByHash", ref: "abc"},
		{name: "transaction", target: "/channels/orders/transactions/tx42?peer=peer0", method: "TransactionByID", ref: "tx42"},
		{name: "chain info", target: "/channels/orders?peer=peer0", method: "ChainInfo"},
		{name: "channels", target: "/channels?peer=peer0", method: "Channels"},
		{name: "chaincodes", target: "/chaincodes?peer=peer0&type=installed", method: "Chaincodes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.request(t, http.MethodGet, tc.target, "", f.token(t))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			if f.ledger.method != tc.method {
				t.Fatalf("method = %q, want %q", f.ledger.method, tc.method)
			}
			if tc.ref != "" && f.ledger.ref != tc.ref {
				t.Errorf("ref = %q, want %q", f.ledger.ref, tc.ref)
			}
			if f.ledger.peer != "peer0" {
				t.Errorf("peer = %q, want peer0", f.ledger.peer)
			}
		})
	}
}

func TestChaincodesRoutePassesListKind(t *testing.T) {
	f := newFixture(t)

	f.request(t, http.MethodGet, "/chaincodes?peer=peer0&type=installed", "", f.token(t))
	if f.ledger.kind != ledger.ChaincodesInstalled {
		t.Errorf("kind = %q, want installed", f.ledger.kind)
	}
}
