package repository

import (
	"context"
	"errors"

	"tesim/internal/domain"
)

// ErrNotFound is returned when a run does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for run and tick persistence
type Repository interface {
	// Runs
	CreateRun(ctx context.Context, run *domain.Run) error
	UpdateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	ListRuns(ctx context.Context) ([]*domain.Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Ticks
	AppendTicks(ctx context.Context, ticks []domain.Tick) error
	ListTicks(ctx context.Context, runID string) ([]domain.Tick, error)

	// Close releases resources
	Close() error
}
