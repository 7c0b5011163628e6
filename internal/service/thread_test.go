package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/unfiltered/internal/domain"
)

func TestAddMessagePrefixesRawJSONInstruction(t *testing.T) {
	gw := &fakeGateway{}
	env := newTestEnv(t, gw, nil)

	require.NoError(t, env.svc.AddMessage(context.Background(), "thread_1", "Should I move?"))
	require.Len(t, gw.messages, 1)
	assert.True(t, strings.HasPrefix(gw.messages[0], "Please reply in raw JSON format."))
	assert.True(t, strings.HasSuffix(gw.messages[0], "\n\nShould I move?"))

	assert.ErrorIs(t, env.svc.AddMessage(context.Background(), "thread_1", "  "), domain.ErrInvalidArgument)
	assert.ErrorIs(t, env.svc.AddMessage(context.Background(), "", "hi"), domain.ErrInvalidArgument)
}

func TestCreateAssistantAdvertisesRegisteredTools(t *testing.T) {
	gw := &fakeGateway{}
	env := newTestEnv(t, gw, nil)

	id, err := env.svc.CreateAssistant(context.Background(), "Sam")
	require.NoError(t, err)
	assert.Equal(t, "asst_1", id)

	require.Len(t, gw.assistants, 1)
	req := gw.assistants[0]
	assert.Equal(t, "Sam's Personal Assistant", req.Name)
	assert.Equal(t, "gpt-4o", req.Model)
	assert.NotEmpty(t, req.Instructions)

	names := make([]string, 0, len(req.Tools))
	for _, tool := range req.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		domain.ToolGenerateDailyInsights,
		domain.ToolAnalyzeDecision,
		domain.ToolAssessProgressAndSuggest,
	}, names)

	_, err = env.svc.CreateAssistant(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Personal Assistant", gw.assistants[1].Name)
}

func TestCreateThread(t *testing.T) {
	env := newTestEnv(t, &fakeGateway{}, nil)
	id, err := env.svc.CreateThread(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "thread_1", id)
}

func TestRecordsRoundTrip(t *testing.T) {
	env := newTestEnv(t, &fakeGateway{}, nil)
	ctx := context.Background()

	_, err := env.svc.GetRecord(ctx, "u1", domain.RecordCalendarEvents)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, env.svc.PutRecord(ctx, "u1", domain.RecordCalendarEvents, json.RawMessage(`[{"title":"gym","date":"2024-02-03"}]`)))
	got, err := env.svc.GetRecord(ctx, "u1", domain.RecordCalendarEvents)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"title":"gym","date":"2024-02-03"}]`, string(got.Value))

	assert.ErrorIs(t, env.svc.PutRecord(ctx, "u1", domain.RecordCalendarEvents, json.RawMessage(`{}`)), domain.ErrInvalidArgument)
}

func TestGetRunEventsPaging(t *testing.T) {
	env := newTestEnv(t, &fakeGateway{}, nil)
	ctx := context.Background()

	_, err := env.svc.GetRunEvents(ctx, "missing", domain.EventQuery{Limit: 10})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.svc.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, env.store.CreateRun(ctx, &domain.AssistantRun{RunID: "run_9", ThreadID: "t", AssistantID: "a", Status: domain.RunStatusQueued, StartedAt: env.clock.Now()}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, env.store.CreateEvent(ctx, &domain.Event{
			EventID: fmt.Sprintf("e%d", i),
			RunID:   "run_9",
			Ts:      int64(i * 100),
			Type:    domain.EventTypeRunStatusChanged,
		}))
	}

	page, err := env.svc.GetRunEvents(ctx, "run_9", domain.EventQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Events, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "e2", page.NextCursor)

	page, err = env.svc.GetRunEvents(ctx, "run_9", domain.EventQuery{AfterTs: 200, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Events, 1)
	assert.False(t, page.HasMore)
	assert.Empty(t, page.NextCursor)
}

func TestGetRunEventsCursorKeepsSameMillisecondEvents(t *testing.T) {
	env := newTestEnv(t, &fakeGateway{}, nil)
	ctx := context.Background()

	require.NoError(t, env.store.CreateRun(ctx, &domain.AssistantRun{RunID: "run_9", ThreadID: "t", AssistantID: "a", Status: domain.RunStatusQueued, StartedAt: env.clock.Now()}))
	for i := 1; i <= 3; i++ {
		require.NoError(t, env.store.CreateEvent(ctx, &domain.Event{
			EventID: fmt.Sprintf("e%d", i),
			RunID:   "run_9",
			Ts:      100,
			Type:    domain.EventTypeRunStatusChanged,
		}))
	}

	var seen []string
	q := domain.EventQuery{Limit: 2}
	for {
		page, err := env.svc.GetRunEvents(ctx, "run_9", q)
		require.NoError(t, err)
		for _, e := range page.Events {
			seen = append(seen, e.EventID)
		}
		if !page.HasMore {
			break
		}
		q.After = page.NextCursor
	}
	assert.Equal(t, []string{"e1", "e2", "e3"}, seen)
}
