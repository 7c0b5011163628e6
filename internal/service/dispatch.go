package service

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/unfiltered/internal/domain"
	"github.com/xiaot623/unfiltered/internal/tools"
	"github.com/xiaot623/unfiltered/policy"
)

// dispatch runs a batch of tool calls concurrently and returns one output per
// call, in call order. The first failing call cancels the others and fails
// the batch.
func (s *Service) dispatch(ctx context.Context, run *domain.AssistantRun, calls []domain.ToolCall) ([]domain.ToolOutput, error) {
	outputs := make([]domain.ToolOutput, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			out, err := s.executeToolCall(gctx, run, call)
			if err != nil {
				return err
			}
			outputs[i] = domain.ToolOutput{ToolCallID: call.ID, Output: string(out)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (s *Service) executeToolCall(ctx context.Context, run *domain.AssistantRun, call domain.ToolCall) (json.RawMessage, error) {
	if !s.registry.Has(call.ToolName) {
		s.metrics.ToolCall(call.ToolName, "unknown")
		return nil, fmt.Errorf("%w: %q (tool call %s)", domain.ErrUnknownTool, call.ToolName, call.ID)
	}

	record := &domain.ToolCallRecord{
		ToolCallID: call.ID,
		RunID:      run.RunID,
		ToolName:   call.ToolName,
		Status:     domain.ToolCallStatusDispatched,
		Args:       call.Arguments,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.CreateToolCall(ctx, record); err != nil {
		s.logger.Warn("failed to save tool call", "tool_call_id", call.ID, "error", err)
	}

	if err := s.checkPolicy(ctx, run, call); err != nil {
		s.completeToolCall(ctx, call, domain.ToolCallStatusBlocked, nil, err)
		return nil, err
	}

	s.journal(ctx, run.RunID, domain.EventTypeToolDispatched, domain.ToolDispatchedPayload{
		ToolCallID: call.ID,
		ToolName:   call.ToolName,
	})
	s.logger.Debug("dispatching tool call", "run_id", run.RunID, "tool_call_id", call.ID, "tool", call.ToolName)

	out, err := s.registry.Execute(ctx, call.ToolName, tools.Invocation{
		CallID:    call.ID,
		CallerID:  run.CallerID,
		Arguments: call.Arguments,
	})
	if err != nil {
		err = fmt.Errorf("tool %s (call %s): %w", call.ToolName, call.ID, err)
		s.completeToolCall(ctx, call, domain.ToolCallStatusFailed, nil, err)
		return nil, err
	}
	s.completeToolCall(ctx, call, domain.ToolCallStatusSucceeded, out, nil)
	return out, nil
}

func (s *Service) checkPolicy(ctx context.Context, run *domain.AssistantRun, call domain.ToolCall) error {
	if s.policyEngine == nil {
		return nil
	}
	decision, reason, err := s.policyEngine.Evaluate(ctx, policy.Input{
		ToolName:      call.ToolName,
		CallerID:      run.CallerID,
		DisabledTools: s.config.DisabledTools,
	})
	if err != nil {
		return fmt.Errorf("policy evaluation failed: %w", err)
	}

	s.journal(ctx, run.RunID, domain.EventTypePolicyDecision, domain.PolicyDecisionPayload{
		ToolCallID: call.ID,
		ToolName:   call.ToolName,
		Decision:   decision,
		Reason:     reason,
	})

	if decision != policy.DecisionAllow {
		return fmt.Errorf("%w: %s (tool call %s): %s", domain.ErrToolBlocked, call.ToolName, call.ID, reason)
	}
	return nil
}

func (s *Service) completeToolCall(ctx context.Context, call domain.ToolCall, status domain.ToolCallStatus, result []byte, callErr error) {
	var errData []byte
	if callErr != nil {
		errData, _ = json.Marshal(domain.ErrorDetail{Code: domain.ErrorCode(callErr), Message: callErr.Error()})
	}
	if _, err := s.store.UpdateToolCallResult(context.WithoutCancel(ctx), call.ID, status, result, errData); err != nil {
		s.logger.Warn("failed to update tool call", "tool_call_id", call.ID, "error", err)
	}
	s.metrics.ToolCall(call.ToolName, string(status))
}
