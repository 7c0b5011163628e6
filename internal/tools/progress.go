package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xiaot623/unfiltered/internal/domain"
	"github.com/xiaot623/unfiltered/internal/normalize"
)

const progressSystemPrompt = "You are a progress analyst and productivity coach."

// assessProgressHandler ignores the call arguments and reads the caller's
// stored collections instead. Events and decisions are limited to the
// current month; priorities are passed through whole.
func assessProgressHandler(d Deps) HandlerFunc {
	return func(ctx context.Context, inv Invocation) (json.RawMessage, error) {
		since := startOfMonth(d.now())

		events, err := loadCollection(ctx, d.Records, inv.CallerID, domain.RecordCalendarEvents)
		if err != nil {
			return nil, err
		}
		decisions, err := loadCollection(ctx, d.Records, inv.CallerID, domain.RecordDecisionHistory)
		if err != nil {
			return nil, err
		}
		priorities, err := loadCollection(ctx, d.Records, inv.CallerID, domain.RecordPriorities)
		if err != nil {
			return nil, err
		}

		prompt, err := buildProgressPrompt(
			filterSince(events, "date", since),
			filterSince(decisions, "timestamp", since),
			priorities,
		)
		if err != nil {
			return nil, err
		}

		text, err := d.complete(ctx, progressSystemPrompt, prompt)
		if err != nil {
			return nil, err
		}

		result, err := parseProgress(text)
		if err != nil {
			return nil, err
		}
		return json.Marshal(result)
	}
}

func startOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func loadCollection(ctx context.Context, records RecordReader, callerID, key string) ([]json.RawMessage, error) {
	if records == nil {
		return nil, nil
	}
	raw, err := records.GetRecord(ctx, callerID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("record %s is not a JSON array: %w", key, err)
	}
	return items, nil
}

// filterSince keeps the items whose field holds a time on or after since.
// Items with a missing or unparseable time are dropped.
func filterSince(items []json.RawMessage, field string, since time.Time) []json.RawMessage {
	kept := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		var obj map[string]any
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		ts, ok := parseRecordTime(obj[field], since.Location())
		if !ok || ts.Before(since) {
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

var recordTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseRecordTime understands epoch milliseconds, RFC 3339 and plain dates.
// Layouts without a zone are read in loc.
func parseRecordTime(v any, loc *time.Location) (time.Time, bool) {
	switch val := v.(type) {
	case float64:
		return time.UnixMilli(int64(val)).In(loc), true
	case string:
		s := strings.TrimSpace(val)
		for _, layout := range recordTimeLayouts {
			if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}

func buildProgressPrompt(events, decisions, priorities []json.RawMessage) (string, error) {
	marshal := func(items []json.RawMessage) (string, error) {
		if items == nil {
			items = []json.RawMessage{}
		}
		data, err := json.Marshal(items)
		return string(data), err
	}
	eventsJSON, err := marshal(events)
	if err != nil {
		return "", err
	}
	decisionsJSON, err := marshal(decisions)
	if err != nil {
		return "", err
	}
	prioritiesJSON, err := marshal(priorities)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`Analyze the user's progress this month.

Calendar Events: %s
Decisions Made: %s
Active Priorities: %s

Respond ONLY with raw JSON, without markdown or code fences, using this structure:
{
  "assessment": "string",
  "achievements": ["string", "string", "string"],
  "improvements": ["string", "string"],
  "recommendations": ["string", "string", "string"]
}`, eventsJSON, decisionsJSON, prioritiesJSON), nil
}

// parseProgress forwards all four requested fields; missing lists become
// empty lists.
func parseProgress(text string) (*domain.ProgressAssessmentResult, error) {
	var obj map[string]any
	if err := normalize.DecodeStrict(text, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: progress output is not a JSON object", domain.ErrMalformedToolOutput)
	}
	assessment, _ := obj["assessment"].(string)
	return &domain.ProgressAssessmentResult{
		Assessment:      strings.TrimSpace(assessment),
		Achievements:    stringList(obj["achievements"]),
		Improvements:    stringList(obj["improvements"]),
		Recommendations: stringList(obj["recommendations"]),
	}, nil
}
