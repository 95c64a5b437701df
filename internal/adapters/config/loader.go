// Package config provides the configuration loader for brisk.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/brisk/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using an optional YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load returns the default configuration overlaid with brisk.yaml from cwd, if present.
func (l *Loader) Load(cwd string) (*domain.Config, error) {
	cfg := domain.DefaultConfig()
	configPath := filepath.Join(cwd, domain.ConfigFileName)

	// #nosec G304 -- configPath is the fixed project file name under cwd
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		l.Logger.Debug("No " + domain.ConfigFileName + " found, using defaults")
	case err != nil:
		return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigReadFailed.Error()), "file", configPath)
	default:
		var file Brisk
		if err := decodeStrict(data, &file); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrConfigParseFailed.Error()), "file", configPath)
		}
		apply(&cfg, &file)
		l.Logger.Debug("Loaded configuration from " + configPath)
	}

	if err := cfg.Validate(); err != nil {
		return nil, zerr.With(err, "file", configPath)
	}

	return &cfg, nil
}

// decodeStrict unmarshals data and rejects unknown keys. An empty document is valid.
func decodeStrict(data []byte, target *Brisk) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func apply(cfg *domain.Config, file *Brisk) {
	if file.Port != nil {
		cfg.Port = *file.Port
	}
	if file.LivereloadPort != nil {
		cfg.LivereloadPort = *file.LivereloadPort
	}
	if p := file.Paths; p != nil {
		overrideString(&cfg.Paths.App, p.App)
		overrideString(&cfg.Paths.Temp, p.Temp)
		overrideString(&cfg.Paths.Dist, p.Dist)
		overrideString(&cfg.Paths.Bower, p.Bower)
	}
	if p := file.Proxy; p != nil {
		overrideString(&cfg.Proxy.Root, p.Root)
		if p.Paths != nil {
			cfg.Proxy.Paths = p.Paths
		}
	}
}

func overrideString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
