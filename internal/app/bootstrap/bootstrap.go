package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	roundlifecycle "curator/contexts/curation/round-lifecycle"
	"curator/contexts/curation/round-lifecycle/adapters/interop"
	"curator/contexts/curation/round-lifecycle/adapters/osuapi"
	postgresadapter "curator/contexts/curation/round-lifecycle/adapters/postgres"
	"curator/contexts/curation/round-lifecycle/adapters/render"
	"curator/internal/platform/config"
	"curator/internal/platform/db"
	"curator/internal/platform/httpserver"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	if strings.TrimSpace(cfg.InteropBaseURL) == "" {
		return nil, errors.New("INTEROP_BASE_URL is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	repo := postgresadapter.NewRepository(pg.DB, logger)
	provider := interop.NewProvider(cfg.InteropBaseURL, cfg.InteropKey, logger)
	gateway := osuapi.NewClient(cfg.OsuBaseURL, cfg.OsuClientID, cfg.OsuClientSecret, logger)

	module := roundlifecycle.NewModule(roundlifecycle.Dependencies{
		Provider:   provider,
		Registry:   repo,
		Polls:      repo,
		Gateway:    gateway,
		Renderer:   render.NewRenderer(),
		Clock:      postgresadapter.SystemClock{},
		IDGen:      postgresadapter.UUIDGenerator{},
		ForumID:    cfg.ForumID,
		SiteURL:    cfg.SiteURL,
		ListingURL: cfg.ListingURL,
		Logger:     logger,
	})

	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
