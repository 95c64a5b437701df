package ports

import "go.trai.ch/brisk/internal/core/domain"

// ConfigLoader defines the interface for loading the build configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load returns the configuration for the project rooted at cwd.
	// Values missing from the project file fall back to the built-in defaults.
	Load(cwd string) (*domain.Config, error)
}
