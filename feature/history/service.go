package history

import (
	"context"

	"exam-mirror/feature/history/models"

	"go.uber.org/zap"
)

// RunDetail is a run together with its decisions.
type RunDetail struct {
	models.Run
	Decisions int `json:"decision_count"`
}

// Service serves read access to the ledger.
type Service struct {
	store  *Store
	logger *zap.Logger
}

// NewService creates a new ledger service.
func NewService(store *Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// ListRuns returns the most recent runs.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	return s.store.ListRuns(ctx, limit)
}

// GetRun returns one run with the number of recorded decisions.
func (s *Service) GetRun(ctx context.Context, id string) (*RunDetail, error) {
	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	decisions, err := s.store.ListDecisions(ctx, id, "")
	if err != nil {
		return nil, err
	}
	return &RunDetail{Run: *run, Decisions: len(decisions)}, nil
}

// ListDecisions returns the decisions of an existing run.
func (s *Service) ListDecisions(ctx context.Context, runID, kind string) ([]models.Decision, error) {
	if _, err := s.store.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.store.ListDecisions(ctx, runID, kind)
}
