package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xiaot623/unfiltered/internal/adapter/llm"
	"github.com/xiaot623/unfiltered/internal/domain"
	"github.com/xiaot623/unfiltered/internal/tools"
)

// rawJSONPrefix is prepended to every user message.
const rawJSONPrefix = "Please reply in raw JSON format. Do NOT include any markdown or code block fences.\n\n"

// CreateThread opens a new conversation thread on the gateway.
func (s *Service) CreateThread(ctx context.Context) (string, error) {
	threadID, err := s.gateway.CreateThread(ctx)
	if err != nil {
		return "", err
	}
	s.logger.Debug("thread created", "thread_id", threadID)
	return threadID, nil
}

// AddMessage appends a user message to a thread.
func (s *Service) AddMessage(ctx context.Context, threadID, content string) error {
	if threadID == "" {
		return fmt.Errorf("%w: thread_id is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is required", domain.ErrInvalidArgument)
	}
	return s.gateway.AddMessage(ctx, threadID, rawJSONPrefix+content)
}

// CreateAssistant registers the coaching assistant with every registered
// tool. owner is the profile name used to label the assistant.
func (s *Service) CreateAssistant(ctx context.Context, owner string) (string, error) {
	name := "Personal Assistant"
	if owner = strings.TrimSpace(owner); owner != "" {
		name = owner + "'s Personal Assistant"
	}
	assistantID, err := s.gateway.CreateAssistant(ctx, &llm.CreateAssistantRequest{
		Name:         name,
		Model:        s.config.Model,
		Instructions: tools.AssistantInstructions,
		Tools:        s.registry.Definitions(),
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("assistant created", "assistant_id", assistantID, "name", name)
	return assistantID, nil
}
