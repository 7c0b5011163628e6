package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xiaot623/unfiltered/internal/adapter/llm"
	"github.com/xiaot623/unfiltered/internal/config"
	"github.com/xiaot623/unfiltered/internal/metrics"
	"github.com/xiaot623/unfiltered/internal/repository"
	"github.com/xiaot623/unfiltered/internal/service"
	"github.com/xiaot623/unfiltered/internal/tools"
	"github.com/xiaot623/unfiltered/policy"
)

// app holds the wired components shared by commands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *repository.SQLiteStore
	metrics *metrics.Recorder
	svc     *service.Service
}

// openApp loads the configuration and wires the application.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, newLogger(cfg.LogLevel))
}

// newApp wires store, gateway, tools, policy and service from cfg. Extra
// options are applied to the service.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...service.Option) (*app, error) {
	store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	gateway, err := llm.NewGateway(cfg.IsMock(), cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.RequestTimeout, cfg.GatewayRPS, cfg.GatewayBurst, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	registry := tools.NewDefaultRegistry(tools.Deps{
		Completer: gateway,
		Records:   store,
		Model:     cfg.Model,
	})
	recorder := metrics.New()

	opts = append([]service.Option{
		service.WithLogger(logger),
		service.WithMetrics(recorder),
	}, opts...)
	svc := service.New(store, gateway, registry, policyEngine, cfg, opts...)

	return &app{cfg: cfg, logger: logger, store: store, metrics: recorder, svc: svc}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
