// Package local implements a publish target backed by a local directory,
// typically a static site's content folder.
package local

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Config captures the parameters for the directory target.
type Config struct {
	// Dir is where published units are written.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Target writes published units to a directory.
type Target struct {
	dir string
}

// New creates the directory when missing and verifies it is writable.
func New(cfg Config) (*Target, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("publish directory is required")
	}

	info, err := os.Stat(cfg.Dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if mkErr := os.MkdirAll(cfg.Dir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create publish directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat publish directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("publish path is not a directory")
	}

	probe := filepath.Join(cfg.Dir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("publish directory is not writable: %w", err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}
	return &Target{dir: cfg.Dir}, nil
}

// Dir returns the target directory.
func (t *Target) Dir() string {
	return t.dir
}

func (t *Target) resolve(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("name is required")
	}
	full := filepath.Clean(filepath.Join(t.dir, name))
	if !strings.HasPrefix(full, filepath.Clean(t.dir)+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return full, nil
}

// Exists reports whether a unit with this name was already written.
func (t *Target) Exists(_ context.Context, name string) (bool, error) {
	full, err := t.resolve(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat %s: %w", name, err)
	}
}

// Write stores data under name, replacing any previous content, and returns
// a file:// URI.
func (t *Target) Write(_ context.Context, name string, data []byte) (string, error) {
	full, err := t.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}
	tmp := full + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return "file://" + full, nil
}

// List returns the names of the files directly under the directory.
func (t *Target) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return nil, fmt.Errorf("read publish directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a unit. Missing units are not an error.
func (t *Target) Delete(_ context.Context, name string) error {
	full, err := t.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}
