// Package bower lists the main files of installed bower packages.
package bower

import (
	"encoding/json"
	"errors"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/brisk/internal/core/domain"
	"go.trai.ch/zerr"
)

// Manifest is the subset of bower.json and .bower.json that is read.
type Manifest struct {
	Name         string            `json:"name"`
	Main         Main              `json:"main"`
	Dependencies map[string]string `json:"dependencies"`
}

// Main is the "main" field, which bower allows as a string or a list.
type Main []string

// UnmarshalJSON accepts a string or an array of strings.
func (m *Main) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*m = Main{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*m = list
	return nil
}

// MainFiles returns the main files of every package reachable from the project's
// bower.json, dependencies before dependents. Paths are slash-separated and
// relative to componentsDir. A project without bower.json has no main files.
func MainFiles(projectDir, componentsDir string) ([]string, error) {
	root, err := readManifest(filepath.Join(projectDir, domain.BowerManifest))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	visited := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		visited[name] = true

		pkg, err := readPackage(filepath.Join(componentsDir, name))
		if err != nil {
			return zerr.With(err, "package", name)
		}

		for _, dep := range sortedKeys(pkg.Dependencies) {
			if err := visit(dep); err != nil {
				return err
			}
		}

		for _, main := range pkg.Main {
			files = append(files, path.Join(name, path.Clean(strings.TrimPrefix(main, "./"))))
		}
		return nil
	}

	for _, dep := range sortedKeys(root.Dependencies) {
		if err := visit(dep); err != nil {
			return nil, err
		}
	}

	return files, nil
}

// readPackage prefers the .bower.json written at install time over the package's own bower.json.
func readPackage(dir string) (*Manifest, error) {
	m, err := readManifest(filepath.Join(dir, domain.BowerInstalledManifest))
	if errors.Is(err, os.ErrNotExist) {
		m, err = readManifest(filepath.Join(dir, domain.BowerManifest))
	}
	if errors.Is(err, os.ErrNotExist) {
		return &Manifest{}, nil
	}
	return m, err
}

func readManifest(file string) (*Manifest, error) {
	data, err := os.ReadFile(file) //nolint:gosec // manifests live under the project
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, zerr.With(zerr.With(zerr.Wrap(domain.ErrManifestParseFailed, "invalid bower manifest"),
			"file", file), "reason", err.Error())
	}
	return &m, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
