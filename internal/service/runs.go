package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/guttosm/nsepulse/internal/domain/models"
	"github.com/guttosm/nsepulse/internal/storage"
)

// RunDetail is a stored run together with its per-symbol rows.
type RunDetail struct {
	Summary models.RunSummary
	Results []models.ScreeningResult
}

// RunService exposes the recorded screening history.
type RunService interface {
	LatestRun(ctx context.Context) (*RunDetail, error)
	RunByID(ctx context.Context, id uuid.UUID) (*RunDetail, error)
}

type runService struct {
	repo storage.RunsRepository
}

func NewRunService(repo storage.RunsRepository) RunService {
	return &runService{repo: repo}
}

// LatestRun returns nil, nil when no run has been recorded yet.
func (s *runService) LatestRun(ctx context.Context) (*RunDetail, error) {
	sum, err := s.repo.GetLatestRun()
	if err != nil || sum == nil {
		return nil, err
	}
	return s.withResults(ctx, sum)
}

// RunByID returns nil, nil when id is unknown.
func (s *runService) RunByID(ctx context.Context, id uuid.UUID) (*RunDetail, error) {
	sum, err := s.repo.GetRun(id)
	if err != nil || sum == nil {
		return nil, err
	}
	return s.withResults(ctx, sum)
}

func (s *runService) withResults(ctx context.Context, sum *models.RunSummary) (*RunDetail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListResults(sum.ID)
	if err != nil {
		return nil, err
	}
	return &RunDetail{Summary: *sum, Results: rows}, nil
}
