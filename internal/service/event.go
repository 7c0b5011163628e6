package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/xiaot623/unfiltered/internal/domain"
)

// recordEvent records an event to the store.
func (s *Service) recordEvent(ctx context.Context, runID string, eventType domain.EventType, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &domain.Event{
		EventID: "evt_" + uuid.New().String()[:8],
		RunID:   runID,
		Ts:      s.clock.Now().UnixMilli(),
		Type:    eventType,
		Payload: payloadBytes,
	}

	return s.store.CreateEvent(ctx, event)
}

// journal records an event and only logs when that fails.
func (s *Service) journal(ctx context.Context, runID string, eventType domain.EventType, payload interface{}) {
	if err := s.recordEvent(ctx, runID, eventType, payload); err != nil {
		s.logger.Warn("failed to record event", "run_id", runID, "type", eventType, "error", err)
	}
}

// GetRun returns a journaled run with its tool calls.
func (s *Service) GetRun(ctx context.Context, runID string) (*domain.RunResponse, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, runID)
	}
	calls, err := s.store.ListToolCalls(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool calls: %w", err)
	}
	return &domain.RunResponse{Run: run, ToolCalls: calls}, nil
}

// GetRunEvents lists journal events of a run. HasMore is set when more
// than q.Limit events match; NextCursor then resumes after the last event.
func (s *Service) GetRunEvents(ctx context.Context, runID string, q domain.EventQuery) (*domain.EventsResponse, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: run %s", domain.ErrNotFound, runID)
	}

	limit := q.Limit
	if limit > 0 {
		q.Limit = limit + 1
	}
	events, err := s.store.GetEvents(ctx, runID, q)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}

	resp := &domain.EventsResponse{RunID: runID, Events: events}
	if limit > 0 && len(events) > limit {
		resp.Events = events[:limit]
		resp.HasMore = true
		resp.NextCursor = resp.Events[limit-1].EventID
	}
	return resp, nil
}
