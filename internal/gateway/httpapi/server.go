package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/chainbridge/ledgergate/internal/platform/requestctx"
	"github.com/chainbridge/ledgergate/internal/platform/timeouts"
)

// defaultMaxConns caps concurrent gateway connections. Peer fan-out
// multiplies every accepted request, so the listener is bounded rather than
// the dispatcher.
const defaultMaxConns = 256

// Config defines the inputs for the gateway HTTP server.
type Config struct {
	Addr     string
	MaxConns int
}

// Server hosts the gateway REST surface.
type Server struct {
	addr       string
	maxConns   int
	httpServer *http.Server
}

// NewServer builds a configured gateway server around a handler.
func NewServer(config Config, handler http.Handler) (*Server, error) {
	addr := strings.TrimSpace(config.Addr)
	if addr == "" {
		return nil, errors.New("http address is required")
	}
	if config.MaxConns <= 0 {
		config.MaxConns = defaultMaxConns
	}
	return &Server{
		addr:     addr,
		maxConns: config.MaxConns,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           withLifecycleCeiling(handler),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}, nil
}

// withLifecycleCeiling bounds every request, ledger dispatch included, to
// the gateway's lifecycle ceiling, and stamps a correlation id so downstream
// log lines can be joined back to the request.
func withLifecycleCeiling(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.RequestLifecycle)
		defer cancel()
		ctx = requestctx.WithRequestID(ctx, uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ListenAndServe runs the HTTP server until the context ends, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil {
		return errors.New("gateway server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	limited := netutil.LimitListener(listener, s.maxConns)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("gateway listening on %s", s.addr)
		if err := s.httpServer.Serve(limited); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return group.Wait()
}
