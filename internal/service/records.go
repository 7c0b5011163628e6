package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xiaot623/unfiltered/internal/domain"
)

// GetRecord reads a caller record. Missing records are ErrNotFound.
func (s *Service) GetRecord(ctx context.Context, callerID, key string) (*domain.RecordResponse, error) {
	value, err := s.store.GetRecord(ctx, callerID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	if value == nil {
		return nil, fmt.Errorf("%w: record %s for caller %s", domain.ErrNotFound, key, callerID)
	}
	return &domain.RecordResponse{CallerID: callerID, Key: key, Value: value}, nil
}

// PutRecord replaces a caller record. The value must be a JSON array.
func (s *Service) PutRecord(ctx context.Context, callerID, key string, value json.RawMessage) error {
	return s.store.PutRecord(ctx, callerID, key, value)
}
