package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xiaot623/unfiltered/internal/adapter/llm"
	"github.com/xiaot623/unfiltered/internal/domain"
	"github.com/xiaot623/unfiltered/internal/normalize"
)

const cancelTimeout = 10 * time.Second

// runState is the bookkeeping of one RunAssistant call.
type runState struct {
	run      *domain.AssistantRun
	started  time.Time
	attempts int
	answered map[string]bool

	output   string
	toolName string
	recorded bool
}

// RunAssistant runs the assistant on a thread and drives it to completion:
// pending tool calls are dispatched locally and their outputs submitted until
// the gateway reports a final status. The result is the first output of the
// last tool call batch, parsed as a JSON object.
func (s *Service) RunAssistant(ctx context.Context, req domain.RunAssistantRequest) (*domain.RunResult, error) {
	if req.AssistantID == "" {
		return nil, fmt.Errorf("%w: assistant_id is required", domain.ErrInvalidArgument)
	}
	if req.ThreadID == "" {
		return nil, fmt.Errorf("%w: thread_id is required", domain.ErrInvalidArgument)
	}
	if req.Tool != "" && !s.registry.Has(req.Tool) {
		return nil, fmt.Errorf("%w: forced tool %q is not registered", domain.ErrUnknownTool, req.Tool)
	}

	created, err := s.gateway.CreateRun(ctx, &llm.CreateRunRequest{
		ThreadID:    req.ThreadID,
		AssistantID: req.AssistantID,
		ForcedTool:  req.Tool,
	})
	if err != nil {
		s.metrics.RunFinished(domain.ErrorCode(err), 0)
		return nil, err
	}

	st := &runState{
		run: &domain.AssistantRun{
			RunID:       created.ID,
			ThreadID:    req.ThreadID,
			AssistantID: req.AssistantID,
			CallerID:    req.CallerID,
			ForcedTool:  req.Tool,
			Status:      created.Status,
			StartedAt:   s.clock.Now(),
		},
		answered: make(map[string]bool),
	}
	st.started = st.run.StartedAt

	if err := s.store.CreateRun(ctx, st.run); err != nil {
		s.logger.Warn("failed to save run", "run_id", st.run.RunID, "error", err)
	}
	toolChoice := "auto"
	if req.Tool != "" {
		toolChoice = req.Tool
	}
	s.journal(ctx, st.run.RunID, domain.EventTypeRunStarted, domain.RunStartedPayload{
		ThreadID:    req.ThreadID,
		AssistantID: req.AssistantID,
		CallerID:    req.CallerID,
		ToolChoice:  toolChoice,
	})
	s.notify(domain.RunUpdate{Type: "run_started", RunID: st.run.RunID, ThreadID: st.run.ThreadID, Status: st.run.Status})
	s.logger.Info("run started", "run_id", st.run.RunID, "thread_id", req.ThreadID, "tool_choice", toolChoice)

	if err := s.poll(ctx, st); err != nil {
		return nil, s.failRun(ctx, st, err)
	}
	return s.finishRun(ctx, st)
}

// poll re-fetches the run until it leaves the active statuses.
func (s *Service) poll(ctx context.Context, st *runState) error {
	for {
		if err := ctx.Err(); err != nil {
			s.cancelRemote(ctx, st)
			return err
		}

		current, err := s.gateway.RetrieveRun(ctx, st.run.ThreadID, st.run.RunID)
		if err != nil {
			if ctx.Err() != nil {
				s.cancelRemote(ctx, st)
				return ctx.Err()
			}
			return err
		}
		st.attempts++
		s.observeStatus(ctx, st, current)

		if !current.Status.IsActive() {
			return nil
		}

		pending := st.pending(current)
		if current.Status == domain.RunStatusRequiresAction && len(pending) > 0 {
			if err := s.answer(ctx, st, pending); err != nil {
				return err
			}
		} else if err := s.wait(ctx, st); err != nil {
			return err
		}

		if err := s.checkBounds(ctx, st); err != nil {
			return err
		}
	}
}

// pending returns the tool calls of the run not answered yet.
func (st *runState) pending(run *llm.Run) []domain.ToolCall {
	var out []domain.ToolCall
	for _, call := range run.ToolCalls {
		if !st.answered[call.ID] {
			out = append(out, call)
		}
	}
	return out
}

func (s *Service) observeStatus(ctx context.Context, st *runState, current *llm.Run) {
	if current.Status == st.run.Status {
		return
	}
	from := st.run.Status
	st.run.Status = current.Status
	s.journal(ctx, st.run.RunID, domain.EventTypeRunStatusChanged, domain.RunStatusChangedPayload{
		From:    from,
		To:      current.Status,
		Attempt: st.attempts,
	})
	if err := s.store.UpdateRunStatus(ctx, st.run.RunID, current.Status); err != nil {
		s.logger.Warn("failed to update run status", "run_id", st.run.RunID, "error", err)
	}
	s.notify(domain.RunUpdate{Type: "run_status", RunID: st.run.RunID, ThreadID: st.run.ThreadID, Status: current.Status})
	s.logger.Debug("run status changed", "run_id", st.run.RunID, "from", from, "to", current.Status, "attempt", st.attempts)
}

// answer dispatches one batch of tool calls and submits every output at once.
func (s *Service) answer(ctx context.Context, st *runState, calls []domain.ToolCall) error {
	st.run.RequiredToolCalls = calls
	if err := s.store.UpdateRunToolCalls(ctx, st.run.RunID, calls); err != nil {
		s.logger.Warn("failed to save tool calls", "run_id", st.run.RunID, "error", err)
	}

	outputs, err := s.dispatch(ctx, st.run, calls)
	if err != nil {
		s.cancelRemote(ctx, st)
		return err
	}

	if _, err := s.gateway.SubmitToolOutputs(ctx, st.run.ThreadID, st.run.RunID, outputs); err != nil {
		s.cancelRemote(ctx, st)
		return err
	}

	ids := make([]string, len(outputs))
	for i, o := range outputs {
		ids[i] = o.ToolCallID
		st.answered[o.ToolCallID] = true
	}
	st.output = outputs[0].Output
	st.toolName = calls[0].ToolName
	st.recorded = true

	s.journal(ctx, st.run.RunID, domain.EventTypeToolOutputsSubmitted, domain.ToolOutputsSubmittedPayload{ToolCallIDs: ids})
	s.notify(domain.RunUpdate{Type: "tool_outputs_submitted", RunID: st.run.RunID, ThreadID: st.run.ThreadID, Status: st.run.Status, ToolName: st.toolName})
	return nil
}

func (s *Service) wait(ctx context.Context, st *runState) error {
	select {
	case <-ctx.Done():
		s.cancelRemote(ctx, st)
		return ctx.Err()
	case <-s.clock.After(s.config.PollInterval):
		return nil
	}
}

func (s *Service) checkBounds(ctx context.Context, st *runState) error {
	elapsed := s.clock.Now().Sub(st.started)
	if st.attempts < s.config.MaxPollAttempts && elapsed < s.config.RunTimeout {
		return nil
	}
	s.cancelRemote(ctx, st)
	return fmt.Errorf("%w: run %s still %s after %d polls (%s)", domain.ErrRunTimeout, st.run.RunID, st.run.Status, st.attempts, elapsed.Round(time.Millisecond))
}

// cancelRemote asks the gateway to stop the run. Failures are only logged.
func (s *Service) cancelRemote(ctx context.Context, st *runState) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if err := s.gateway.CancelRun(cctx, st.run.ThreadID, st.run.RunID); err != nil {
		s.logger.Warn("failed to cancel run", "run_id", st.run.RunID, "error", err)
	}
}

// finishRun turns the recorded output into the run result.
func (s *Service) finishRun(ctx context.Context, st *runState) (*domain.RunResult, error) {
	if !st.recorded {
		return nil, s.failRun(ctx, st, fmt.Errorf("%w: run %s ended %s without tool calls", domain.ErrNoToolOutput, st.run.RunID, st.run.Status))
	}

	data, err := normalize.ParseObject(st.output)
	if err != nil {
		return nil, s.failRun(ctx, st, fmt.Errorf("run %s: %w", st.run.RunID, err))
	}
	if st.run.Status != domain.RunStatusCompleted {
		s.logger.Warn("run ended without completing, returning recorded output", "run_id", st.run.RunID, "status", st.run.Status)
	}

	output := json.RawMessage(st.output)
	if err := s.store.UpdateRunCompleted(ctx, st.run.RunID, st.run.Status, output, nil); err != nil {
		s.logger.Warn("failed to complete run", "run_id", st.run.RunID, "error", err)
	}
	s.journal(ctx, st.run.RunID, domain.EventTypeRunDone, domain.RunDonePayload{
		Status:   st.run.Status,
		ToolName: st.toolName,
		Attempts: st.attempts,
	})
	s.notify(domain.RunUpdate{Type: "run_done", RunID: st.run.RunID, ThreadID: st.run.ThreadID, Status: st.run.Status, ToolName: st.toolName})
	s.metrics.RunFinished(string(st.run.Status), st.attempts)
	s.logger.Info("run done", "run_id", st.run.RunID, "status", st.run.Status, "tool", st.toolName, "attempts", st.attempts)

	return &domain.RunResult{
		RunID:    st.run.RunID,
		ThreadID: st.run.ThreadID,
		Status:   st.run.Status,
		ToolName: st.toolName,
		Output:   output,
		Data:     data,
	}, nil
}

// failRun journals the failure and returns err unchanged.
func (s *Service) failRun(ctx context.Context, st *runState, err error) error {
	code := domain.ErrorCode(err)
	jctx := context.WithoutCancel(ctx)

	errData, _ := json.Marshal(domain.RunFailedPayload{Code: code, Message: err.Error()})
	status := st.run.Status
	if status.IsActive() {
		status = domain.RunStatusFailed
	}
	if errors.Is(err, context.Canceled) {
		status = domain.RunStatusCancelled
	}
	if uerr := s.store.UpdateRunCompleted(jctx, st.run.RunID, status, nil, errData); uerr != nil {
		s.logger.Warn("failed to complete run", "run_id", st.run.RunID, "error", uerr)
	}
	s.journal(jctx, st.run.RunID, domain.EventTypeRunFailed, domain.RunFailedPayload{Code: code, Message: err.Error()})
	s.notify(domain.RunUpdate{Type: "run_failed", RunID: st.run.RunID, ThreadID: st.run.ThreadID, Status: status, Error: err.Error()})
	s.metrics.RunFinished(code, st.attempts)
	s.logger.Error("run failed", "run_id", st.run.RunID, "code", code, "error", err)
	return err
}
