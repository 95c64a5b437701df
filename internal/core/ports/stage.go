package ports

import (
	"context"

	"go.trai.ch/brisk/internal/core/domain"
)

// Stage transforms a set of in-memory files.
// A stage is complete when it has returned its whole output; it never writes to disk.
//
//go:generate mockgen -source=stage.go -destination=mocks/mock_stage.go -package=mocks
type Stage interface {
	// Name identifies the stage in logs and errors.
	Name() string
	// Apply consumes files and returns the transformed set.
	Apply(ctx context.Context, files []domain.File) ([]domain.File, error)
}
