// Package app provides the application bootstrap.
//
// The App type wires the preview fetcher, the batch service and the HTTP
// endpoint together and exposes two operational modes:
//
//   - Serve mode: HTTP server with the batch preview endpoint, probes and metrics
//   - Fetch mode: one-shot preview of a single listing, printed as JSON
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/vrental/internal/core/previews"
	"github.com/lueurxax/vrental/internal/platform/config"
	"github.com/lueurxax/vrental/internal/platform/observability"
	"github.com/lueurxax/vrental/internal/platform/worker"
	"github.com/lueurxax/vrental/internal/previewapi"
)

const (
	clientSweeperName  = "client-limiter-sweeper"
	minSweepInterval   = time.Minute
	sweepIntervalRatio = 2
)

// App holds the application dependencies.
type App struct {
	cfg     *config.Config
	logger  *zerolog.Logger
	fetcher *previews.Fetcher
	service *previews.Service
}

// New creates a new App instance with the given configuration.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	sources := previews.DefaultSources(cfg.Sources.QuestStoreOrigin, cfg.Sources.ExperienceOrigin, logger)

	fetcher := previews.NewFetcher(sources, previews.FetcherOptions{
		Timeout:      cfg.Preview.FetchTimeout,
		MaxBodyBytes: cfg.Preview.MaxBodyBytes,
		GlobalRPS:    cfg.Preview.FetchRPS,
		DomainRPS:    cfg.Preview.DomainRPS,
		DomainBurst:  cfg.Preview.DomainBurst,

		AllowPrivateHosts: cfg.Preview.AllowPrivateHosts,
	}, logger)

	return &App{
		cfg:     cfg,
		logger:  logger,
		fetcher: fetcher,
		service: previews.NewService(fetcher, logger),
	}
}

// Handler returns the batch preview endpoint handler.
func (a *App) Handler() *previewapi.Handler {
	return previewapi.NewHandler(a.service, previewapi.Options{
		MaxItems:    a.cfg.Preview.BatchMax,
		ClientRPM:   a.cfg.Preview.ClientRPM,
		ClientBurst: a.cfg.Preview.ClientBurst,
	}, a.logger)
}

// NewServer builds the HTTP server with the given preview handler mounted.
func (a *App) NewServer(handler *previewapi.Handler) *observability.Server {
	return observability.NewServer(a.cfg.HTTPPort, a.cfg.ShutdownTimeout, a.cfg.TrustProxyHeaders, a.logger, func(r chi.Router) {
		previewapi.RegisterPreviewRoutes(r, handler)
	})
}

// Serve runs the HTTP server and the idle limiter sweeper until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	handler := a.Handler()
	server := a.NewServer(handler)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Start(gctx)
	})

	g.Go(func() error {
		return worker.TickerLoop(gctx, a.sweeperConfig(handler))
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve: %w", err)
	}

	return nil
}

func (a *App) sweeperConfig(handler *previewapi.Handler) worker.TickerConfig {
	ttl := a.cfg.Preview.ClientIdleTTL

	interval := ttl / sweepIntervalRatio
	if interval < minSweepInterval {
		interval = minSweepInterval
	}

	return worker.TickerConfig{
		Name:     clientSweeperName,
		Interval: interval,
		OnTick: func(context.Context) {
			clients := handler.EvictIdleClients(ttl)
			domains := a.fetcher.EvictIdleDomains(ttl)

			if clients > 0 || domains > 0 {
				a.logger.Debug().Int("clients", clients).Int("domains", domains).Msg("evicted idle rate limiters")
			}
		},
		Logger: a.logger,
	}
}

// FetchOne previews a single listing through the batch service and writes
// the result as indented JSON to w, in the same shape the API returns.
func (a *App) FetchOne(ctx context.Context, gameID, rawURL string, w io.Writer) error {
	id, ok := previews.ParseGameID(gameID)
	if !ok {
		return fmt.Errorf("invalid game id %q", gameID)
	}

	res := a.service.FetchBatch(ctx, []previews.RequestItem{{ID: id, SourceURL: rawURL}})
	if len(res.Errors) > 0 {
		return fmt.Errorf("fetch preview: %s", res.Errors[0].Message)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(res.Previews[0]); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}

	return nil
}
