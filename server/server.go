// Package server exposes the image pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/leeforge/picpipe/http/middleware"
	"github.com/leeforge/picpipe/http/responder"
	"github.com/leeforge/picpipe/logging"
	"github.com/leeforge/picpipe/media/processor"
	"github.com/leeforge/picpipe/media/queue"
	"github.com/leeforge/picpipe/metrics"
)

// Options configures a Server.
type Options struct {
	Addr         string
	MaxUpload    int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Logger       logging.Logger
	Metrics      *metrics.Collector
	// Queue, when set, accepts uploads sent with async=true.
	Queue        *queue.AsyncProcessor
	// RateLimit caps image requests per client per minute. Zero disables it.
	RateLimit    int
}

// Server routes image requests to a processor.Pipeline.
type Server struct {
	pipeline *processor.Pipeline
	opts     Options
	logger   logging.Logger
	metrics  *metrics.Collector
	router   chi.Router
}

// New builds the router. Warnings and errors logged by the server are
// counted in the log_entries_total metric.
func New(pipeline *processor.Pipeline, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewCollector()
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 32 << 20
	}
	collector := opts.Metrics
	logger := logging.WithHooks(opts.Logger.Named("server"), logging.LevelCounter(zapcore.WarnLevel, func(level string) {
		collector.IncCounter("log_entries_total", map[string]string{"level": level})
	}))

	s := &Server{
		pipeline: pipeline,
		opts:     opts,
		logger:   logger,
		metrics:  collector,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.TraceIDMiddleware(),
		middleware.TimingMiddleware(),
		logging.HTTPMiddleware(s.logger),
		logging.RecoveryMiddleware(s.logger),
		metrics.Middleware(s.metrics, routePattern),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responder.NotFound(w, r, "route not found")
	})
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(s.metrics))

	r.Route("/v1/images", func(r chi.Router) {
		r.Use(middleware.RateLimitMiddleware(middleware.NewMemoryBackend(), middleware.RateLimitConfig{
			Rate:      s.opts.RateLimit,
			OnLimited: limited,
		}))
		r.Post("/resize", s.handleResize)
		r.Post("/upload", s.handleUpload)
		r.Post("/colors", s.handleColors)
	})
	return r
}

func limited(w http.ResponseWriter, r *http.Request) {
	responder.WriteError(w, r, http.StatusTooManyRequests, responder.NewError(responder.ErrCodeTooManyRequests, ""))
}

// routePattern reports the chi pattern so metrics group by route.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.opts.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}
