// Package modelstore persists trained ETA model artifacts.
package modelstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/kilianp07/eta/core/regression"
)

// ErrNotFound is returned when no artifact exists at the configured path.
var ErrNotFound = errors.New("model artifact not found")

// FileStore keeps a single artifact on the local filesystem.
type FileStore struct {
	Path string
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

// Save writes the artifact through a temporary file and renames it into
// place so readers never observe a partial model.
func (s *FileStore) Save(m regression.Model, meta regression.Metadata) error {
	if s.Path == "" {
		return errors.New("model path is empty")
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := regression.WriteArtifact(tmp, m, meta); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// LoadModel reads, decodes and schema-checks the artifact.
func (s *FileStore) LoadModel() (regression.Model, regression.Metadata, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, regression.Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, s.Path)
		}
		return nil, regression.Metadata{}, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()

	m, meta, err := regression.ReadArtifact(f)
	if err != nil {
		return nil, regression.Metadata{}, fmt.Errorf("%s: %w", s.Path, err)
	}
	if err := regression.CheckCompatible(meta); err != nil {
		return nil, regression.Metadata{}, err
	}
	return m, meta, nil
}
