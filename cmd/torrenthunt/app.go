package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/litescript/torrenthunt/internal/config"
	"github.com/litescript/torrenthunt/internal/metrics"
	"github.com/litescript/torrenthunt/internal/search"
	"github.com/litescript/torrenthunt/internal/source"
)

// app holds the persistent flags and what setup builds from them.
type app struct {
	configPath  string
	logLevel    string
	metricsAddr string
	offline     bool

	cfg      config.Config
	engine   *search.Engine
	closeLog func() error
	server   *http.Server
}

// setup loads the config, configures logging and builds the engine. With
// console set logs go to stderr; otherwise to the rotating log file only.
func (a *app) setup(ctx context.Context, console bool) error {
	path := a.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	a.configPath = path

	stored, err := config.LoadFrom(path)
	if err != nil {
		return errors.Wrapf(err, "could not load config %s", path)
	}

	// Overrides apply to the running copy only; saves go through update
	cfg := stored.WithEnv(os.Getenv)
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	a.cfg = cfg

	closeLog, err := config.SetupLogging(cfg.Log, console)
	if err != nil {
		return errors.Wrap(err, "could not set up logging")
	}
	a.closeLog = closeLog

	reg, err := source.NewRegistry(cfg.Search.APIURL, cfg.CustomSources()...)
	if err != nil {
		return errors.Wrap(err, "invalid sources")
	}

	var clients map[source.ID]source.Client
	if a.offline {
		clients = source.DemoClients(reg)
		log.Info().Msg("offline mode: results are demo data")
	} else {
		clients = source.NewClients(reg, source.ClientOptions{
			APIKey:  cfg.Search.APIKey,
			Timeout: cfg.Search.Timeout(),
			Retries: uint(cfg.Search.Retries),
		})
	}

	logger := log.With().Str("component", "engine").Logger()
	a.engine = search.NewEngine(reg, clients, search.Options{
		PerCallTimeout: cfg.Search.Timeout(),
		MaxConcurrent:  cfg.Search.MaxConcurrent,
		RatePerSecond:  cfg.Search.RatePerSecond,
		Logger:         &logger,
	})

	if a.metricsAddr != "" {
		a.startMetrics(ctx)
	}

	log.Debug().
		Str("config", path).
		Int("sources", len(reg.IDs())).
		Bool("offline", a.offline).
		Msg("torrenthunt ready")
	return nil
}

func (a *app) startMetrics(ctx context.Context) {
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Warn().Err(err).Msg("metrics already registered")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:              a.metricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	go func() {
		log.Info().Str("addr", a.metricsAddr).Msg("serving metrics")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// update changes the config file it was loaded from. Only the fields set by
// mutate are written; the running config is left to the caller.
func (a *app) update(mutate func(*config.Config)) error {
	return config.Update(a.configPath, mutate)
}

func (a *app) close() {
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}
