// Package service implements the assistant run orchestrator.
package service

import (
	"context"
	"log/slog"

	"github.com/xiaot623/unfiltered/internal/adapter/llm"
	"github.com/xiaot623/unfiltered/internal/config"
	"github.com/xiaot623/unfiltered/internal/domain"
	"github.com/xiaot623/unfiltered/internal/metrics"
	"github.com/xiaot623/unfiltered/internal/repository"
	"github.com/xiaot623/unfiltered/internal/tools"
	"github.com/xiaot623/unfiltered/policy"
)

// PolicyEvaluator decides whether a tool call may run.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, input policy.Input) (string, string, error)
}

// Notifier receives run progress for stream subscribers of a thread.
type Notifier interface {
	Publish(threadID string, update domain.RunUpdate)
}

type Service struct {
	store        repository.Store
	gateway      llm.Gateway
	registry     *tools.Registry
	policyEngine PolicyEvaluator
	config       *config.Config
	clock        Clock
	metrics      *metrics.Recorder
	notifier     Notifier
	logger       *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for polling delays and timeouts.
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithMetrics records run and tool counters.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier publishes run updates, typically to the WebSocket hub.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func New(store repository.Store, gateway llm.Gateway, registry *tools.Registry, policyEngine PolicyEvaluator, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		store:        store,
		gateway:      gateway,
		registry:     registry,
		policyEngine: policyEngine,
		config:       cfg,
		clock:        realClock{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) notify(update domain.RunUpdate) {
	if s.notifier == nil {
		return
	}
	update.Ts = s.clock.Now().UnixMilli()
	s.notifier.Publish(update.ThreadID, update)
}
