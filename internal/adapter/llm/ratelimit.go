package llm

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/xiaot623/unfiltered/internal/domain"
)

// RateLimitedGateway paces every request to the wrapped gateway.
type RateLimitedGateway struct {
	next    Gateway
	limiter *rate.Limiter
}

// NewRateLimitedGateway wraps next with a token bucket of rps requests per
// second. A non-positive rps disables pacing and returns next unchanged.
func NewRateLimitedGateway(next Gateway, rps float64, burst int) Gateway {
	if rps <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedGateway{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (g *RateLimitedGateway) CreateAssistant(ctx context.Context, req *CreateAssistantRequest) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return g.next.CreateAssistant(ctx, req)
}

func (g *RateLimitedGateway) CreateThread(ctx context.Context) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return g.next.CreateThread(ctx)
}

func (g *RateLimitedGateway) AddMessage(ctx context.Context, threadID, content string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	return g.next.AddMessage(ctx, threadID, content)
}

func (g *RateLimitedGateway) CreateRun(ctx context.Context, req *CreateRunRequest) (*Run, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.next.CreateRun(ctx, req)
}

func (g *RateLimitedGateway) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.next.RetrieveRun(ctx, threadID, runID)
}

func (g *RateLimitedGateway) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.ToolOutput) (*Run, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.next.SubmitToolOutputs(ctx, threadID, runID, outputs)
}

func (g *RateLimitedGateway) CancelRun(ctx context.Context, threadID, runID string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	return g.next.CancelRun(ctx, threadID, runID)
}

func (g *RateLimitedGateway) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.next.CreateChatCompletion(ctx, req)
}
