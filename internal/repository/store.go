// Package repository persists caller records and the run journal.
package repository

import (
	"context"
	"encoding/json"

	"github.com/xiaot623/unfiltered/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Record operations
	GetRecord(ctx context.Context, callerID, key string) (json.RawMessage, error)
	PutRecord(ctx context.Context, callerID, key string, value json.RawMessage) error

	// Run operations
	CreateRun(ctx context.Context, run *domain.AssistantRun) error
	GetRun(ctx context.Context, runID string) (*domain.AssistantRun, error)
	UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error
	UpdateRunToolCalls(ctx context.Context, runID string, calls []domain.ToolCall) error
	UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, output []byte, errData []byte) error

	// ToolCall operations
	CreateToolCall(ctx context.Context, call *domain.ToolCallRecord) error
	UpdateToolCallResult(ctx context.Context, toolCallID string, status domain.ToolCallStatus, result []byte, errData []byte) (bool, error)
	ListToolCalls(ctx context.Context, runID string) ([]domain.ToolCallRecord, error)

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, runID string, q domain.EventQuery) ([]domain.Event, error)

	// Lifecycle
	Close() error
}
