package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/unfiltered/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS records (
			caller_id TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (caller_id, key)
		)`,
		`CREATE TABLE IF NOT EXISTS assistant_runs (
			run_id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			assistant_id TEXT NOT NULL,
			caller_id TEXT,
			forced_tool TEXT,
			status TEXT NOT NULL,
			required_tool_calls TEXT,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			output TEXT,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assistant_runs_thread ON assistant_runs(thread_id, started_at)`,
		`CREATE TABLE IF NOT EXISTS tool_calls (
			tool_call_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			status TEXT NOT NULL,
			args TEXT,
			result TEXT,
			error TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			completed_at DATETIME,
			FOREIGN KEY (run_id) REFERENCES assistant_runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tool_calls_run ON tool_calls(run_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (run_id) REFERENCES assistant_runs(run_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetRecord returns the stored value, or nil when the key was never written.
func (s *SQLiteStore) GetRecord(ctx context.Context, callerID, key string) (json.RawMessage, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM records WHERE caller_id = ? AND key = ?`,
		callerID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(value), nil
}

// PutRecord replaces the value of a record. Values must be JSON arrays.
func (s *SQLiteStore) PutRecord(ctx context.Context, callerID, key string, value json.RawMessage) error {
	if callerID == "" || key == "" {
		return fmt.Errorf("%w: caller_id and key are required", domain.ErrInvalidArgument)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(value, &items); err != nil || items == nil {
		return fmt.Errorf("%w: record %s must be a JSON array", domain.ErrInvalidArgument, key)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return fmt.Errorf("%w: record %s: %w", domain.ErrInvalidArgument, key, err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (caller_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(caller_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		callerID, key, compact.String(), time.Now())
	return err
}

// CreateRun inserts a new run.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *domain.AssistantRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assistant_runs (run_id, thread_id, assistant_id, caller_id, forced_tool, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.ThreadID, run.AssistantID, nullString(run.CallerID), nullString(run.ForcedTool), run.Status, run.StartedAt)
	return err
}

// GetRun returns the run, or nil when it does not exist.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*domain.AssistantRun, error) {
	var run domain.AssistantRun
	var callerID, forcedTool, toolCalls, output, errData sql.NullString
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, thread_id, assistant_id, caller_id, forced_tool, status, required_tool_calls, started_at, ended_at, output, error FROM assistant_runs WHERE run_id = ?`,
		runID).Scan(&run.RunID, &run.ThreadID, &run.AssistantID, &callerID, &forcedTool, &run.Status, &toolCalls, &run.StartedAt, &endedAt, &output, &errData)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.CallerID = callerID.String
	run.ForcedTool = forcedTool.String
	if toolCalls.Valid && toolCalls.String != "" {
		if err := json.Unmarshal([]byte(toolCalls.String), &run.RequiredToolCalls); err != nil {
			return nil, fmt.Errorf("failed to decode tool calls of run %s: %w", runID, err)
		}
	}
	if endedAt.Valid {
		run.EndedAt = &endedAt.Time
	}
	if output.Valid {
		run.Output = json.RawMessage(output.String)
	}
	if errData.Valid {
		run.Error = json.RawMessage(errData.String)
	}
	return &run, nil
}

// UpdateRunStatus records the latest gateway status of a run.
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE assistant_runs SET status = ? WHERE run_id = ?`,
		status, runID)
	return err
}

// UpdateRunToolCalls stores the tool calls of the latest requires_action batch.
func (s *SQLiteStore) UpdateRunToolCalls(ctx context.Context, runID string, calls []domain.ToolCall) error {
	data, err := json.Marshal(calls)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE assistant_runs SET required_tool_calls = ? WHERE run_id = ?`,
		string(data), runID)
	return err
}

// UpdateRunCompleted finishes a run with its output or error.
func (s *SQLiteStore) UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, output []byte, errData []byte) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE assistant_runs SET status = ?, ended_at = ?, output = ?, error = ? WHERE run_id = ?`,
		status, time.Now(), nullStringBytes(output), nullStringBytes(errData), runID)
	return err
}

// CreateToolCall inserts a dispatched tool call.
func (s *SQLiteStore) CreateToolCall(ctx context.Context, call *domain.ToolCallRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tool_calls (tool_call_id, run_id, tool_name, status, args, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		call.ToolCallID, call.RunID, call.ToolName, call.Status, nullStringBytes(call.Args), call.CreatedAt)
	return err
}

// UpdateToolCallResult completes a tool call still in the dispatched state.
// It reports whether a row was updated.
func (s *SQLiteStore) UpdateToolCallResult(ctx context.Context, toolCallID string, status domain.ToolCallStatus, result []byte, errData []byte) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tool_calls SET status = ?, result = ?, error = ?, completed_at = ? WHERE tool_call_id = ? AND status = ?`,
		status, nullStringBytes(result), nullStringBytes(errData), time.Now(), toolCallID, domain.ToolCallStatusDispatched)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListToolCalls returns the tool calls of a run in dispatch order.
func (s *SQLiteStore) ListToolCalls(ctx context.Context, runID string) ([]domain.ToolCallRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT tool_call_id, run_id, tool_name, status, args, result, error, created_at, completed_at FROM tool_calls WHERE run_id = ? ORDER BY created_at ASC, rowid ASC`,
		runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calls := make([]domain.ToolCallRecord, 0)
	for rows.Next() {
		var call domain.ToolCallRecord
		var args, result, errData sql.NullString
		var completedAt sql.NullTime
		if err := rows.Scan(&call.ToolCallID, &call.RunID, &call.ToolName, &call.Status, &args, &result, &errData, &call.CreatedAt, &completedAt); err != nil {
			return nil, err
		}
		if args.Valid {
			call.Args = json.RawMessage(args.String)
		}
		if result.Valid {
			call.Result = json.RawMessage(result.String)
		}
		if errData.Valid {
			call.Error = json.RawMessage(errData.String)
		}
		if completedAt.Valid {
			call.CompletedAt = &completedAt.Time
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

// CreateEvent appends an event to the run journal.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	payload := ""
	if event.Payload != nil {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, run_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.RunID, event.Ts, event.Type, payload)
	return err
}

// GetEvents lists events of a run in journal order (ts, then insertion).
// q.After is an event_id cursor; an unknown cursor is ErrInvalidArgument.
func (s *SQLiteStore) GetEvents(ctx context.Context, runID string, q domain.EventQuery) ([]domain.Event, error) {
	query := `SELECT event_id, run_id, ts, type, payload FROM events WHERE run_id = ?`
	args := []interface{}{runID}

	if q.After != "" {
		var cursorTs, cursorRow int64
		err := s.db.QueryRowContext(ctx,
			`SELECT ts, rowid FROM events WHERE event_id = ? AND run_id = ?`, q.After, runID,
		).Scan(&cursorTs, &cursorRow)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: unknown event cursor %q", domain.ErrInvalidArgument, q.After)
		}
		if err != nil {
			return nil, err
		}
		query += ` AND (ts > ? OR (ts = ? AND rowid > ?))`
		args = append(args, cursorTs, cursorTs, cursorRow)
	}

	if q.AfterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, q.AfterTs)
	}

	if len(q.Types) > 0 {
		placeholders := make([]string, len(q.Types))
		for i, t := range q.Types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.RunID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
