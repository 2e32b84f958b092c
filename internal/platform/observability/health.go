package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownTimeout = 5 * time.Second
	readHeaderTimeout      = 10 * time.Second
	writeTimeout           = 30 * time.Second
)

// RouteRegistrar mounts application routes on the server's router.
type RouteRegistrar func(r chi.Router)

type Server struct {
	port            int
	shutdownTimeout time.Duration
	trustProxy      bool
	logger          *zerolog.Logger
	routes          []RouteRegistrar
	ready           atomic.Bool
}

// NewServer builds the HTTP server. With trustProxy set, the client address is
// taken from X-Forwarded-For or X-Real-IP, which only a fronting proxy may set.
func NewServer(port int, shutdownTimeout time.Duration, trustProxy bool, logger *zerolog.Logger, routes ...RouteRegistrar) *Server {
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	return &Server{
		port:            port,
		shutdownTimeout: shutdownTimeout,
		trustProxy:      trustProxy,
		logger:          logger,
		routes:          routes,
	}
}

// Router builds the handler tree: probes, metrics and the registered routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)

	if s.trustProxy {
		r.Use(chiMiddleware.RealIP)
	}

	r.Use(chiMiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !s.ready.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprint(w, "starting")

			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "OK")
	})

	r.Handle("/metrics", promhttp.Handler())

	for _, register := range s.routes {
		register(r)
	}

	return r
}

// SetReady flips the readiness probe.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
	}

	go func() {
		<-ctx.Done()

		s.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)

		defer cancel()

		//nolint:errcheck,contextcheck // shutdown in signal handler is best-effort, non-inherited context intentional
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int("port", s.port).Msg("Preview server starting")
	s.SetReady(true)

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}
