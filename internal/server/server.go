// Package server exposes validation and run history over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapcheck/internal/engine"
	"github.com/leapstack-labs/leapcheck/internal/server/notifier"
	"github.com/leapstack-labs/leapcheck/internal/watch"
	"github.com/leapstack-labs/leapcheck/pkg/core"
	"github.com/leapstack-labs/leapcheck/pkg/source"
)

// Config holds configuration for the API server.
type Config struct {
	Engine *engine.Engine
	// Rules are applied to uploads without rule fields and to watched files.
	Rules core.RuleSet
	Port  int
	// WatchDir is re-validated on change when set.
	WatchDir string
	Debounce time.Duration
	// MaxUploadBytes bounds the request body of /api/validate.
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	engine    *engine.Engine
	rules     core.RuleSet
	port      int
	watchDir  string
	debounce  time.Duration
	maxUpload int64
	logger    *slog.Logger
	notifier  *notifier.Notifier
}

// New creates a new API server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Server{
		engine:    cfg.Engine,
		rules:     cfg.Rules,
		port:      cfg.Port,
		watchDir:  cfg.WatchDir,
		debounce:  cfg.Debounce,
		maxUpload: maxUpload,
		logger:    logger,
		notifier:  notifier.New(),
	}
}

// Notifier returns the server's notifier for SSE updates.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.requestLogger,
		middleware.Recoverer,
	)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/validate", s.handleValidate)
		r.Get("/checks", s.handleChecks)
		r.Route("/runs", func(r chi.Router) {
			r.Get("/", s.handleListRuns)
			r.Get("/stream", s.handleStream)
			r.Get("/{id}", s.handleGetRun)
			r.Get("/{id}/issues.csv", s.handleIssuesCSV)
		})
	})
	return r
}

// Serve starts the server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("starting API server", "addr", fmt.Sprintf("http://localhost:%d", s.port))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.watchDir != "" {
		eg.Go(func() error {
			w := watch.New(watch.Config{
				Paths:      []string{s.watchDir},
				Extensions: watchedExtensions,
				Debounce:   s.debounce,
				Logger:     s.logger,
			}, s.revalidate)
			return w.Run(egctx)
		})
	}

	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down API server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

var watchedExtensions = []string{".csv", ".tsv", ".parquet", ".json", ".jsonl", ".ndjson"}

// revalidate validates a changed file and announces the run.
func (s *Server) revalidate(ctx context.Context, path string) {
	cfg := source.Config{Path: path, Type: source.DetectType(path)}
	rep, err := s.engine.Validate(ctx, engine.Request{Source: cfg, Rules: s.rules, Save: true})
	if err != nil {
		s.logger.Error("revalidation failed", "path", filepath.Base(path), "error", err)
		return
	}
	s.announce(rep)
}

func (s *Server) announce(rep *engine.Report) {
	s.notifier.Broadcast(notifier.Event{
		RunID:   rep.Run.ID,
		Source:  rep.Run.Source,
		Summary: rep.Run.Summary,
	})
}

// requestLogger logs one line per request with slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("elapsed", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		}()
		next.ServeHTTP(ww, r)
	})
}
