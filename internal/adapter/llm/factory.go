package llm

import (
	"log/slog"
	"time"
)

// NewGateway creates a gateway. With mock set it returns a MockClient;
// otherwise a real Client is created, paced by rps/burst when rps is
// positive.
func NewGateway(mock bool, baseURL, apiKey string, timeout time.Duration, rps float64, burst int, logger *slog.Logger) (Gateway, error) {
	if mock {
		logger.Info("mock mode detected, using mock gateway")
		return NewMockClient(), nil
	}

	client, err := NewClient(baseURL, apiKey, timeout)
	if err != nil {
		return nil, err
	}
	return NewRateLimitedGateway(client, rps, burst), nil
}
