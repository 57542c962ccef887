// Package httpapi is the HTTP boundary of the gateway. Handlers decode the
// request, delegate to the facade or the aggregator, and write exactly one
// of the classified response shapes. Request-level failures answer 200 with
// a success:false body, matching what callers of this API have always
// consumed; only the authentication gate uses transport status codes.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/chainbridge/ledgergate/internal/gateway/aggregate"
	"github.com/chainbridge/ledgergate/internal/gateway/classify"
	"github.com/chainbridge/ledgergate/internal/gateway/facade"
	"github.com/chainbridge/ledgergate/internal/gateway/identity"
	"github.com/chainbridge/ledgergate/internal/gateway/index"
	"github.com/chainbridge/ledgergate/internal/gateway/ledger"
	"github.com/chainbridge/ledgergate/internal/gateway/session"
	apperrors "github.com/chainbridge/ledgergate/internal/platform/errors"
)

// Ledger is the facade surface the handlers dispatch ledger operations
// through. *facade.Facade satisfies it.
type Ledger interface {
	CreateChannel(ctx context.Context, channel, configRef string) classify.Response
	JoinChannel(ctx context.Context, channel string, peerNames []string) classify.Response
	InstallChaincode(ctx context.Context, peerNames []string, name, path, version string) classify.Response
	InstantiateChaincode(ctx context.Context, channel, name, version, fn string, args []string) classify.Response
	Invoke(ctx context.Context, role string, peerNames []string, channel, chaincode, fn string, args []any) classify.Response
	Query(ctx context.Context, peerName, channel, chaincode, fn string, args []string) classify.Response
	BlockByNumber(ctx context.Context, peerName, channel, blockID string) classify.Response
	BlockByHash(ctx context.Context, peerName, channel, hash string) classify.Response
	TransactionByID(ctx context.Context, peerName, channel, txID string) classify.Response
	ChainInfo(ctx context.Context, peerName, channel string) classify.Response
	Channels(ctx context.Context, peerName string) classify.Response
	Chaincodes(ctx context.Context, peerName string, kind ledger.ChaincodeListKind) classify.Response
}

// Searcher runs the correlated search. *aggregate.Aggregator satisfies it.
type Searcher interface {
	Run(ctx context.Context, sess session.Session, p aggregate.Params) classify.Response
}

// Handler routes the gateway's REST surface.
type Handler struct {
	mux        *http.ServeMux
	tokens     *session.Authenticator
	identities identity.Store
	ledger     Ledger
	search     Searcher
}

// NewHandler builds the route table. Every route except the session mint is
// behind the bearer-token gate.
func NewHandler(tokens *session.Authenticator, identities identity.Store, ops Ledger, search Searcher) *Handler {
	h := &Handler{
		mux:        http.NewServeMux(),
		tokens:     tokens,
		identities: identities,
		ledger:     ops,
		search:     search,
	}

	h.mux.HandleFunc("POST /users", h.handleLogin)

	h.mux.HandleFunc("POST /channels", h.withSession(h.handleCreateChannel))
	h.mux.HandleFunc("POST /channels/{channel}/peers", h.withSession(h.handleJoinChannel))
	h.mux.HandleFunc("POST /chaincodes", h.withSession(h.handleInstallChaincode))
	h.mux.HandleFunc("POST /channels/{channel}/chaincodes", h.withSession(h.handleInstantiateChaincode))

	h.mux.HandleFunc("POST /{role}/channels/{channel}/chaincodes/{chaincode}", h.withSession(h.handleInvoke))
	h.mux.HandleFunc("GET /{role}/channels/{channel}/chaincodes/{chaincode}", h.withSession(h.handleQuery))
	h.mux.HandleFunc("POST /{role}/channels/{channel}/chaincodes/{chaincode}/query", h.withSession(h.handleRoleQuery))
	h.mux.HandleFunc("POST /{role}/channels/{channel}/chaincodes/{chaincode}/{keyprefix}/search", h.withSession(h.handleSearch))

	h.mux.HandleFunc("GET /channels/{channel}/blocks/{block}", h.withSession(h.handleBlockByNumber))
	h.mux.HandleFunc("GET /channels/{channel}/blocks", h.withSession(h.handleBlockByHash))
	h.mux.HandleFunc("GET /channels/{channel}/transactions/{tx}", h.withSession(h.handleTransaction))
	h.mux.HandleFunc("GET /channels/{channel}", h.withSession(h.handleChainInfo))
	h.mux.HandleFunc("GET /channels", h.withSession(h.handleChannels))
	h.mux.HandleFunc("GET /chaincodes", h.withSession(h.handleChaincodes))

	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// withSession authenticates the bearer token and stamps the decoded session
// into the request context.
func (h *Handler) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer"))
		sess, err := h.tokens.Authenticate(raw)
		if err != nil {
			writeJSON(w, apperrors.CodeOf(err).HTTPStatus(), classify.AuthFailed())
			return
		}
		next(w, r.WithContext(session.WithContext(r.Context(), sess)))
	}
}

type loginRequest struct {
	Username string `json:"username"`
	OrgName  string `json:"orgName"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
}

// handleLogin checks the caller credential and mints a session token
// stamping the caller's company tenant.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusOK, classify.MissingField("username"))
		return
	}
	if req.Username == "" {
		writeJSON(w, http.StatusOK, classify.MissingField("username"))
		return
	}
	if req.OrgName == "" {
		writeJSON(w, http.StatusOK, classify.MissingField("orgName"))
		return
	}
	profile, err := h.identities.Lookup(r.Context(), req.Username, req.Password)
	if err != nil {
		log.Printf("httpapi: credential lookup for %q: %v", req.Username, err)
		writeJSON(w, http.StatusOK, classify.LoginFailed())
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusOK, classify.LoginFailed())
		return
	}
	token, err := h.tokens.Issue(req.Username, req.OrgName, profile.Company)
	if err != nil {
		writeJSON(w, http.StatusOK, classify.Failure(err))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: req.Username + " enrolled Successfully",
		Token:   token,
	})
}

type createChannelRequest struct {
	ChannelName       string `json:"channelName"`
	ChannelConfigPath string `json:"channelConfigPath"`
}

func (h *Handler) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var req createChannelRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusOK, classify.MissingField("channelName"))
		return
	}
	writeJSON(w, http.StatusOK, h.ledger.CreateChannel(r.Context(), req.ChannelName, req.ChannelConfigPath))
}

type joinChannelRequest struct {
	Peers []string `json:"peers"`
}

func (h *Handler) handleJoinChannel(w http.ResponseWriter, r *http.Request) {
	var req joinChannelRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusOK, classify.MissingField("peers"))
		return
	}
	writeJSON(w, http.StatusOK, h.ledger.JoinChannel(r.Context(), r.PathValue("channel"), req.Peers))
}

type installChaincodeRequest struct {
	Peers            []string `json:"peers"`
	ChaincodeName    string   `json:"chaincodeName"`
	ChaincodePath    string   `json:"chaincodePath"`
	ChaincodeVersion string   `json:"chaincodeVersion"`
}

func (h *Handler) handleInstallChaincode(w http.ResponseWriter, r *http.Request) {
	var req installChaincodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusOK, classify.MissingField("chaincodeName"))
		return
	}
	writeJSON(w, http.StatusOK, h.ledger.InstallChaincode(r.Context(), req.Peers, req.ChaincodeName, req.ChaincodePath, req.ChaincodeVersion))
}

type instantiateChaincodeRequest struct {
	ChaincodeName    string   `json:"chaincodeName"`
	ChaincodeVersion string   `json:"chaincodeVersion"`
	Fn               string   `json:"fcn"`
	Args             []string `json:"args"`
}

func (h *Handler) handleInstantiateChaincode(w http.ResponseWriter, r *http.Request) {
	var req instantiateChaincodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusOK, classify.MissingField("chaincodeName"))
		return
	}
	writeJSON(w, http.StatusOK, h.ledger.InstantiateChaincode(r.Context(), r.PathValue("channel"), req.ChaincodeName, req.ChaincodeVersion, req.Fn, req.Args))
}

type invokeRequest struct {
	Peers []string `json:"peers"`
	Fn    string   `json:"fcn"`
	Args  []any    `json:"args"`
}

func (h *Handler) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusOK, classify.MissingField("args"))
		return
	}
	resp := h.ledger.Invoke(r.Context(), r.PathValue("role"), req.Peers,
		r.PathValue("channel"), r.PathValue("chaincode"), req.Fn, req.Args)
	writeJSON(w, http.StatusOK, resp)
}

// handleQuery is the GET query path. Its args arrive URL-encoded with
// relaxed quoting and are normalized to strict JSON before dispatch.
func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("fcn") == "" {
		writeJSON(w, http.StatusOK, classify.MissingField("fcn"))
		return
	}
	raw := q.Get("args")
	if raw == "" {
		writeJSON(w, http.StatusOK, classify.MissingField("args"))
		return
	}
	args, err := facade.NormalizeArgs(raw)
	if err != nil {
		writeJSON(w, http.StatusOK, classify.Failure(err))
		return
	}
	resp := h.ledger.Query(r.Context(), q.Get("peer"),
		r.PathValue("channel"), r.PathValue("chaincode"), q.Get("fcn"), args)
	writeJSON(w, http.StatusOK, resp)
}

type roleQueryRequest struct {
	Fn   string   `json:"fcn"`
	Args []string `json:"args"`
}

// handleRoleQuery is the POST query path. Its args are prefixed with the
// caller's declared role before dispatch.
func (h *Handler) handleRoleQuery(w http.ResponseWriter, r *http.Request) {
	var req roleQueryRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusOK, classify.MissingField("args"))
		return
	}
	if len(req.Args) == 0 {
		writeJSON(w, http.StatusOK, classify.MissingField("args"))
		return
	}
	args := facade.PrepareArgs(r.PathValue("role"), req.Args)
	resp := h.ledger.Query(r.Context(), r.URL.Query().Get("peer"),
		r.PathValue("channel"), r.PathValue("chaincode"), req.Fn, args)
	writeJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	Fn   string       `json:"fcn"`
	Args index.Record `json:"args"`
}

// handleSearch runs the correlated search. The key-prefix path segment is
// folded into the lookup criteria uppercased, matching the key namespace on
// the ledger side.
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := decodeBody(r, &req); err != nil {
		writeJSON(w, http.StatusOK, classify.MissingField("args"))
		return
	}
	if req.Fn == "" {
		writeJSON(w, http.StatusOK, classify.MissingField("fcn"))
		return
	}
	if req.Args == nil {
		writeJSON(w, http.StatusOK, classify.MissingField("args"))
		return
	}
	req.Args["keyprefix"] = strings.ToUpper(r.PathValue("keyprefix"))

	sess, _ := session.FromContext(r.Context())
	resp := h.search.Run(r.Context(), sess, aggregate.Params{
		Role:      r.PathValue("role"),
		Peer:      r.URL.Query().Get("peer"),
		Channel:   r.PathValue("channel"),
		Chaincode: r.PathValue("chaincode"),
		Fn:        req.Fn,
		Args:      req.Args,
	})
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBlockByNumber(w http.ResponseWriter, r *http.Request) {
	resp := h.ledger.BlockByNumber(r.Context(), r.URL.Query().Get("peer"),
		r.PathValue("channel"), r.PathValue("block"))
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleBlockByHash(w http.ResponseWriter, r *http.Request) {
	resp := h.ledger.BlockByHash(r.Context(), r.URL.Query().Get("peer"),
		r.PathValue("channel"), r.URL.Query().Get("hash"))
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleTransaction(w http.ResponseWriter, r *http.Request) {
	resp := h.ledger.TransactionByID(r.Context(), r.URL.Query().Get("peer"),
		r.PathValue("channel"), r.PathValue("tx"))
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleChainInfo(w http.ResponseWriter, r *http.Request) {
	resp := h.ledger.ChainInfo(r.Context(), r.URL.Query().Get("peer"), r.PathValue("channel"))
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.Channels(r.Context(), r.URL.Query().Get("peer")))
}

func (h *Handler) handleChaincodes(w http.ResponseWriter, r *http.Request) {
	kind := ledger.ChaincodeListKind(r.URL.Query().Get("type"))
	writeJSON(w, http.StatusOK, h.ledger.Chaincodes(r.Context(), r.URL.Query().Get("peer"), kind))
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("httpapi: encode response: %v", err)
	}
}
