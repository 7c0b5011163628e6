package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/xiaot623/unfiltered/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStoreRecords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	got, err := store.GetRecord(ctx, "u1", domain.RecordPriorities)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing record, got %s", got)
	}

	if err := store.PutRecord(ctx, "u1", domain.RecordPriorities, json.RawMessage(`[ {"title": "ship"} ]`)); err != nil {
		t.Fatalf("PutRecord failed: %v", err)
	}
	if err := store.PutRecord(ctx, "u1", domain.RecordPriorities, json.RawMessage(`[{"title":"rest"}]`)); err != nil {
		t.Fatalf("PutRecord overwrite failed: %v", err)
	}
	got, err = store.GetRecord(ctx, "u1", domain.RecordPriorities)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if string(got) != `[{"title":"rest"}]` {
		t.Fatalf("unexpected record: %s", got)
	}

	other, err := store.GetRecord(ctx, "u2", domain.RecordPriorities)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if other != nil {
		t.Fatalf("records must be scoped per caller, got %s", other)
	}
}

func TestSQLiteStorePutRecordRejectsNonArray(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	for _, value := range []string{`{"a":1}`, `null`, `"x"`, `[1,`} {
		err := store.PutRecord(ctx, "u1", "k", json.RawMessage(value))
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("value %s: expected ErrInvalidArgument, got %v", value, err)
		}
	}
	if err := store.PutRecord(ctx, "", "k", json.RawMessage(`[]`)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty caller, got %v", err)
	}
}

func TestSQLiteStoreRunLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	run := &domain.AssistantRun{
		RunID:       "run_1",
		ThreadID:    "thread_1",
		AssistantID: "asst_1",
		CallerID:    "u1",
		ForcedTool:  domain.ToolAnalyzeDecision,
		Status:      domain.RunStatusQueued,
		StartedAt:   time.Now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if err := store.UpdateRunStatus(ctx, "run_1", domain.RunStatusRequiresAction); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}
	calls := []domain.ToolCall{{ID: "call_a", ToolName: domain.ToolAnalyzeDecision, Arguments: json.RawMessage(`{"dilemma":"x"}`)}}
	if err := store.UpdateRunToolCalls(ctx, "run_1", calls); err != nil {
		t.Fatalf("UpdateRunToolCalls failed: %v", err)
	}

	got, err := store.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.Status != domain.RunStatusRequiresAction || got.ForcedTool != domain.ToolAnalyzeDecision {
		t.Fatalf("unexpected run: %+v", got)
	}
	if len(got.RequiredToolCalls) != 1 || got.RequiredToolCalls[0].ID != "call_a" {
		t.Fatalf("unexpected tool calls: %+v", got.RequiredToolCalls)
	}

	if err := store.UpdateRunCompleted(ctx, "run_1", domain.RunStatusCompleted, []byte(`{"ok":true}`), nil); err != nil {
		t.Fatalf("UpdateRunCompleted failed: %v", err)
	}
	got, err = store.GetRun(ctx, "run_1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.EndedAt == nil || string(got.Output) != `{"ok":true}` || got.Error != nil {
		t.Fatalf("unexpected completed run: %+v", got)
	}

	missing, err := store.GetRun(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil run, got %+v (%v)", missing, err)
	}
}

func TestSQLiteStoreToolCallsAndEvents(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.CreateRun(ctx, &domain.AssistantRun{RunID: "run_1", ThreadID: "t", AssistantID: "a", Status: domain.RunStatusQueued, StartedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	now := time.Now()
	for i, id := range []string{"call_a", "call_b"} {
		call := &domain.ToolCallRecord{
			ToolCallID: id,
			RunID:      "run_1",
			ToolName:   domain.ToolGenerateDailyInsights,
			Status:     domain.ToolCallStatusDispatched,
			CreatedAt:  now.Add(time.Duration(i) * time.Millisecond),
		}
		if err := store.CreateToolCall(ctx, call); err != nil {
			t.Fatalf("CreateToolCall failed: %v", err)
		}
	}
	updated, err := store.UpdateToolCallResult(ctx, "call_a", domain.ToolCallStatusSucceeded, []byte(`{"insights":[]}`), nil)
	if err != nil || !updated {
		t.Fatalf("UpdateToolCallResult: updated=%v err=%v", updated, err)
	}
	updated, err = store.UpdateToolCallResult(ctx, "call_a", domain.ToolCallStatusFailed, nil, []byte(`{"message":"late"}`))
	if err != nil || updated {
		t.Fatalf("completed tool call must not be updated again: updated=%v err=%v", updated, err)
	}

	calls, err := store.ListToolCalls(ctx, "run_1")
	if err != nil {
		t.Fatalf("ListToolCalls failed: %v", err)
	}
	if len(calls) != 2 || calls[0].ToolCallID != "call_a" || calls[0].Status != domain.ToolCallStatusSucceeded || calls[0].CompletedAt == nil {
		t.Fatalf("unexpected tool calls: %+v", calls)
	}

	events := []domain.Event{
		{EventID: "e1", RunID: "run_1", Ts: 100, Type: domain.EventTypeRunStarted},
		{EventID: "e2", RunID: "run_1", Ts: 200, Type: domain.EventTypeToolDispatched, Payload: json.RawMessage(`{"tool_call_id":"call_a"}`)},
		{EventID: "e3", RunID: "run_1", Ts: 300, Type: domain.EventTypeRunDone},
	}
	for i := range events {
		if err := store.CreateEvent(ctx, &events[i]); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	got, err := store.GetEvents(ctx, "run_1", domain.EventQuery{AfterTs: 100})
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(got) != 2 || got[0].EventID != "e2" {
		t.Fatalf("unexpected events after ts: %+v", got)
	}

	got, err = store.GetEvents(ctx, "run_1", domain.EventQuery{Types: []string{string(domain.EventTypeRunDone)}, Limit: 10})
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(got) != 1 || got[0].EventID != "e3" || got[0].Payload != nil {
		t.Fatalf("unexpected filtered events: %+v", got)
	}

	got, err = store.GetEvents(ctx, "run_1", domain.EventQuery{Limit: 1})
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}
}

func TestGetEventsCursorWithinSameTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, &domain.AssistantRun{RunID: "run_1", ThreadID: "t", AssistantID: "a", Status: domain.RunStatusQueued, StartedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	for _, id := range []string{"e1", "e2", "e3"} {
		if err := store.CreateEvent(ctx, &domain.Event{EventID: id, RunID: "run_1", Ts: 100, Type: domain.EventTypeRunStatusChanged}); err != nil {
			t.Fatalf("CreateEvent failed: %v", err)
		}
	}

	got, err := store.GetEvents(ctx, "run_1", domain.EventQuery{Limit: 2})
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(got) != 2 || got[1].EventID != "e2" {
		t.Fatalf("unexpected first page: %+v", got)
	}

	got, err = store.GetEvents(ctx, "run_1", domain.EventQuery{After: "e2", Limit: 2})
	if err != nil {
		t.Fatalf("GetEvents failed: %v", err)
	}
	if len(got) != 1 || got[0].EventID != "e3" {
		t.Fatalf("expected e3 after cursor e2, got %+v", got)
	}

	_, err = store.GetEvents(ctx, "run_1", domain.EventQuery{After: "nope"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for unknown cursor, got %v", err)
	}
}
