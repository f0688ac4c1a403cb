package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/felixge/httpsnoop"
	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gridsolph/gridsolph/pkg/log"
	"github.com/gridsolph/gridsolph/pkg/metrics"
	"github.com/gridsolph/gridsolph/pkg/storage"
	"github.com/gridsolph/gridsolph/pkg/types"
)

const defaultMaxBodyBytes = 16 << 20

type contextKey string

const (
	emailContextKey contextKey = "email"
	runIDContextKey contextKey = "runID"
)

// tokenVerifier is a function that validates an OIDC ID Token.
type tokenVerifier func(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)

// Server exposes model compilation, optimization and snapshot management
// over HTTP. Every request works on its own energy system.
type Server struct {
	storage storage.Database

	listenAddr string
	httpServer *http.Server

	verifier      tokenVerifier
	allowedEmails []string
	bypassAuth    bool
	serverName    string
	solveDir      string
	defaultSolver string
	maxBodyBytes  int64
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(s storage.Database) *Server {
	srv := &Server{
		storage:      s,
		serverName:   "gridsolph",
		maxBodyBytes: defaultMaxBodyBytes,
	}
	revision := os.Getenv("K_REVISION")
	if revision != "" {
		srv.serverName = revision
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		// otherwise default to 8080
		port = "8080"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	oidcIssuer := lflag.String("oidc-issuer", "https://accounts.google.com", "issuer of the id tokens to accept")
	oidcAudience := lflag.String("oidc-audience", "", "audience of the id tokens to accept, auth is disabled if empty")
	allowedEmails := lflag.String("allowed-emails", "", "comma-delimited list of email addresses allowed to use the API, empty allows any verified token")
	solveDir := lflag.String("solve-dir", "", "directory for solver work files (default system temp dir)")
	defaultSolver := lflag.String("default-solver", types.DefaultSolver, "solver used when a model does not name one")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.solveDir = *solveDir
		srv.defaultSolver = *defaultSolver
		if *allowedEmails != "" {
			srv.allowedEmails = strings.Split(*allowedEmails, ",")
			for i, email := range srv.allowedEmails {
				srv.allowedEmails[i] = strings.TrimSpace(email)
			}
		}
		if *oidcAudience == "" {
			log.Ctx(context.Background()).Warn("no oidc audience configured, authentication is disabled")
			srv.bypassAuth = true
			return
		}
		provider, err := oidc.NewProvider(context.Background(), *oidcIssuer)
		if err != nil {
			log.Ctx(context.Background()).Error("failed to initialize OIDC provider", slog.String("issuer", *oidcIssuer), slog.Any("error", err))
			os.Exit(1)
		}
		srv.verifier = provider.Verifier(&oidc.Config{ClientID: *oidcAudience}).Verify
	})

	return srv
}

// handle registers an instrumented handler for the pattern.
func handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, instrument(pattern, h))
}

func instrument(route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(h, w, r)
		metrics.ObserveRequest(route, strconv.Itoa(m.Code), m.Duration)
	})
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	handle(apiMux, "POST /api/lp", s.handleLP)
	handle(apiMux, "POST /api/optimize", s.handleOptimize)
	handle(apiMux, "GET /api/snapshots", s.handleListSnapshots)
	handle(apiMux, "GET /api/snapshots/{name}", s.handleGetSnapshot)
	handle(apiMux, "PUT /api/snapshots/{name}", s.handlePutSnapshot)
	handle(apiMux, "DELETE /api/snapshots/{name}", s.handleDeleteSnapshot)
	handle(apiMux, "POST /api/snapshots/{name}/optimize", s.handleOptimizeSnapshot)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.authMiddleware(apiMux))
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:        s.listenAddr,
		Handler:     s.setupHandler(),
		ReadTimeout: 15 * time.Second,
		// solves can take a while
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		// Context canceled, shut down gracefully
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}
