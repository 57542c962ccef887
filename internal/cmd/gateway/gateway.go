// Package gateway wires the ledger gateway process: configuration, stores,
// peer registry, facade, aggregator and the HTTP boundary.
package gateway

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chainbridge/ledgergate/internal/gateway/aggregate"
	"github.com/chainbridge/ledgergate/internal/gateway/dispatch"
	"github.com/chainbridge/ledgergate/internal/gateway/facade"
	"github.com/chainbridge/ledgergate/internal/gateway/httpapi"
	identitysqlite "github.com/chainbridge/ledgergate/internal/gateway/identity/sqlite"
	"github.com/chainbridge/ledgergate/internal/gateway/index"
	indexsqlite "github.com/chainbridge/ledgergate/internal/gateway/index/sqlite"
	"github.com/chainbridge/ledgergate/internal/gateway/ledger"
	"github.com/chainbridge/ledgergate/internal/gateway/ledger/grpcclient"
	"github.com/chainbridge/ledgergate/internal/gateway/session"
	"github.com/chainbridge/ledgergate/internal/platform/config"
	"github.com/chainbridge/ledgergate/internal/platform/otel"
	"github.com/chainbridge/ledgergate/internal/platform/timeouts"
)

// Config holds the gateway command configuration.
type Config struct {
	Addr          string        `env:"LEDGERGATE_HTTP_ADDR" envDefault:"localhost:4000"`
	Peers         string        `env:"LEDGERGATE_PEERS"`
	JWTSecret     string        `env:"LEDGERGATE_JWT_SECRET" envDefault:"thisismysecret"`
	TokenLifetime time.Duration `env:"LEDGERGATE_JWT_LIFETIME" envDefault:"10h"`
	IndexDB       string        `env:"LEDGERGATE_INDEX_DB" envDefault:"ledgergate-index.db"`
	IdentityDB    string        `env:"LEDGERGATE_IDENTITY_DB" envDefault:"ledgergate-identity.db"`
	MaxConns      int           `env:"LEDGERGATE_MAX_CONNS" envDefault:"256"`
}

// ParseConfig parses the environment and flags into a Config. Flags win over
// environment values. environ may be nil to read the process environment.
func ParseConfig(fs *flag.FlagSet, args []string, environ map[string]string) (Config, error) {
	var cfg Config
	var err error
	if environ == nil {
		err = config.ParseEnv(&cfg)
	} else {
		err = config.ParseEnvFrom(&cfg, environ)
	}
	if err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.Peers, "peers", cfg.Peers, "peer network as name=addr pairs, comma separated")
	fs.StringVar(&cfg.IndexDB, "index-db", cfg.IndexDB, "search index database path")
	fs.StringVar(&cfg.IdentityDB, "identity-db", cfg.IdentityDB, "identity database path")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParsePeers decodes the configured peer network. Blank entries are skipped;
// a malformed entry is an error rather than a silently smaller network.
func ParsePeers(spec string) ([]ledger.Peer, error) {
	var peers []ledger.Peer
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, addr, ok := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		addr = strings.TrimSpace(addr)
		if !ok || name == "" || addr == "" {
			return nil, fmt.Errorf("malformed peer entry %q, want name=addr", entry)
		}
		peers = append(peers, ledger.Peer{Name: name, Addr: addr})
	}
	return peers, nil
}

// Run starts the gateway and blocks until the context ends.
func Run(ctx context.Context, cfg Config) error {
	shutdownTracing, err := otel.Setup(ctx, "ledgergate")
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	peers, err := ParsePeers(cfg.Peers)
	if err != nil {
		return fmt.Errorf("parse peers: %w", err)
	}

	indexStore, err := indexsqlite.Open(cfg.IndexDB)
	if err != nil {
		return fmt.Errorf("open index store: %w", err)
	}
	defer func() {
		if err := indexStore.Close(); err != nil {
			log.Printf("close index store: %v", err)
		}
	}()

	identityStore, err := identitysqlite.Open(cfg.IdentityDB)
	if err != nil {
		return fmt.Errorf("open identity store: %w", err)
	}
	defer func() {
		if err := identityStore.Close(); err != nil {
			log.Printf("close identity store: %v", err)
		}
	}()

	pool := grpcclient.NewPool()
	defer func() {
		if err := pool.Close(); err != nil {
			log.Printf("close peer connections: %v", err)
		}
	}()

	registry := ledger.NewRegistry(peers, pool)

	// The wire-level ledger runtime is deployment-specific; without one
	// every verb answers through the normal unreachable-peer path.
	var client ledger.Client = grpcclient.UnconfiguredClient{}

	dispatcher := dispatch.New(client, timeouts.PeerOperation)
	detached := index.NewDetached(indexStore)
	ops := facade.New(registry, dispatcher, client, detached)
	search := aggregate.New(indexStore, ops)

	tokens, err := session.NewAuthenticator(cfg.JWTSecret, cfg.TokenLifetime, time.Now)
	if err != nil {
		return fmt.Errorf("init authenticator: %w", err)
	}

	handler := httpapi.NewHandler(tokens, identityStore, ops, search)
	server, err := httpapi.NewServer(httpapi.Config{Addr: cfg.Addr, MaxConns: cfg.MaxConns}, handler)
	if err != nil {
		return fmt.Errorf("init gateway server: %w", err)
	}

	if err := server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("serve gateway: %w", err)
	}
	detached.Wait()
	return nil
}
