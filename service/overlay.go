// Package service wires the overlay service: upstream fetching, the
// comparison engine, run recording and the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cmlane/overlay/compare"
	"github.com/cmlane/overlay/database"
	"github.com/cmlane/overlay/fetch"
	"github.com/cmlane/overlay/shared"
	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

const (
	// shutdownTimeout is the maximum time to wait for the http server to
	// drain on shutdown.
	shutdownTimeout = time.Second * 5
)

// OverlayConfig represents the configuration struct for the overlay service.
type OverlayConfig struct {
	// UpstreamURL is the upstream market data API endpoint.
	UpstreamURL string
	// APIKey is the upstream API key.
	APIKey string
	// ListenAddr is the http API listen address.
	ListenAddr string
	// DatabaseEndpoint represents the database connection endpoint. Optional.
	DatabaseEndpoint string
	// DatabaseUser is the database user.
	DatabaseUser string
	// DatabasePass is the database user pass.
	DatabasePass string
	// RefreshIntervalSecs re-runs the most recent comparison on the provided
	// interval when positive.
	RefreshIntervalSecs int
	// Cancel is the context cancellation function.
	Cancel context.CancelFunc
}

// Validate asserts the config has sane inputs.
func (cfg *OverlayConfig) Validate() error {
	var errs error

	if cfg.UpstreamURL == "" {
		errs = errors.Join(errs, fmt.Errorf("upstream url cannot be an empty string"))
	}
	if cfg.ListenAddr == "" {
		errs = errors.Join(errs, fmt.Errorf("listen address cannot be an empty string"))
	}
	if cfg.RefreshIntervalSecs < 0 {
		errs = errors.Join(errs, fmt.Errorf("refresh interval cannot be negative"))
	}
	if cfg.Cancel == nil {
		errs = errors.Join(errs, fmt.Errorf("context cancellation function cannot be nil"))
	}

	return errs
}

// Overlay represents the comparison chart service.
type Overlay struct {
	cfg          *OverlayConfig
	fetchManager *fetch.Manager
	engine       *compare.Engine
	db           *database.Database
	server       *http.Server
	jobScheduler *gocron.Scheduler
	logger       *zerolog.Logger
	wg           sync.WaitGroup
}

// NewOverlay initializes a new overlay service.
func NewOverlay(ctx context.Context, cfg *OverlayConfig) (*Overlay, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validating overlay config: %w", err)
	}

	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	logger := log.With().Str("service", "overlay").Logger()

	client, err := fetch.NewClient(&fetch.ClientConfig{
		BaseURL: cfg.UpstreamURL,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating upstream client: %v", err)
	}

	fetchLogger := logger.With().Str("component", "fetchmanager").Logger()
	fetchMgr := fetch.NewManager(&fetch.ManagerConfig{
		Fetcher: client,
		Logger:  &fetchLogger,
	})

	var db *database.Database
	var recordRun func(ctx context.Context, run *compare.RunRecord)
	if cfg.DatabaseEndpoint != "" {
		dbLogger := logger.With().Str("component", "database").Logger()
		db, err = database.NewDatabase(ctx, &database.DatabaseConfig{
			Endpoint: cfg.DatabaseEndpoint,
			User:     cfg.DatabaseUser,
			Pass:     cfg.DatabasePass,
			Logger:   &dbLogger,
		})
		if err != nil {
			return nil, fmt.Errorf("creating database: %v", err)
		}

		recordRun = func(ctx context.Context, run *compare.RunRecord) {
			err := db.PersistRun(ctx, run)
			if err != nil {
				dbLogger.Error().Msgf("recording comparison run: %v", err)
			}
		}
	}

	engineLogger := logger.With().Str("component", "compareengine").Logger()
	engine, err := compare.NewEngine(&compare.EngineConfig{
		FetchSet:  fetchMgr.FetchSet,
		RecordRun: recordRun,
		Logger:    &engineLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating comparison engine: %v", err)
	}

	_, loc, err := shared.NewYorkTime()
	if err != nil {
		return nil, fmt.Errorf("fetching new york time: %v", err)
	}

	apiLogger := logger.With().Str("component", "api").Logger()
	handler := newAPIHandler(engine, &apiLogger)
	mux := http.NewServeMux()
	handler.registerRoutes(mux)

	overlay := &Overlay{
		cfg:          cfg,
		fetchManager: fetchMgr,
		engine:       engine,
		db:           db,
		jobScheduler: gocron.NewScheduler(loc),
		server: &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: mux,
		},
		logger: &logger,
	}

	return overlay, nil
}

// Run manages the lifecycle processes of the overlay service.
func (o *Overlay) Run(ctx context.Context) {
	if o.cfg.RefreshIntervalSecs > 0 {
		_, err := o.jobScheduler.Every(o.cfg.RefreshIntervalSecs).Seconds().Do(o.engine.RefreshLast)
		if err != nil {
			o.logger.Error().Msgf("scheduling comparison refresh: %v", err)
		}
		o.jobScheduler.StartAsync()
	}

	o.wg.Add(2)
	go func() {
		defer o.wg.Done()
		o.engine.Run(ctx)
	}()
	go func() {
		defer o.wg.Done()
		<-ctx.Done()

		o.jobScheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := o.server.Shutdown(shutdownCtx)
		if err != nil {
			o.logger.Error().Msgf("shutting down http server: %v", err)
		}
	}()

	o.logger.Info().Msgf("overlay service listening on %s", o.cfg.ListenAddr)
	err := o.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		o.logger.Error().Msgf("serving http: %v", err)
		o.cfg.Cancel()
	}

	o.wg.Wait()
}
