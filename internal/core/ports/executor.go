// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/brisk/internal/core/domain"
)

// Executor defines the interface for running external tools.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs cmd attached to a pseudo-terminal and streams its combined
	// output to out. It returns an error carrying the exit code if the command fails.
	Execute(ctx context.Context, cmd *domain.Command, out io.Writer) error

	// Capture runs cmd with stdin as its standard input and returns its standard output.
	// Standard error is copied to stderr and attached to the returned error on failure.
	Capture(ctx context.Context, cmd *domain.Command, stdin []byte, stderr io.Writer) ([]byte, error)
}
