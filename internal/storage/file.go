package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/prasenjit/go-pact/internal/generators"
	"github.com/prasenjit/go-pact/internal/logging"
	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/pactspec"
)

// FileStorage keeps pacts as <consumer>-<provider>.json files in a directory
type FileStorage struct {
	mu       sync.Mutex
	basePath string
	version  pactspec.Version
	registry *generators.Registry
	logger   *slog.Logger
	memory   *MemoryStorage
}

// NewFileStorage opens the pact directory at basePath, creating it when
// needed, and loads the pact files already there. Pacts are written in
// version.
func NewFileStorage(basePath string, version pactspec.Version, logger *slog.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", basePath, err)
	}

	fs := &FileStorage{
		basePath: basePath,
		version:  version,
		registry: generators.DefaultRegistry(),
		logger:   logging.OrNop(logger),
		memory:   NewMemoryStorage(),
	}

	if err := fs.loadAll(); err != nil {
		return nil, err
	}

	return fs, nil
}

// loadAll reads every pact file in the directory. Unreadable files are
// logged and skipped.
func (f *FileStorage) loadAll() error {
	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(f.basePath, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			f.logger.Warn("skipping pact file", "path", path, "error", err)
			continue
		}

		p, warnings, err := models.DecodePact(data, f.registry)
		if err != nil {
			f.logger.Warn("skipping pact file", "path", path, "error", err)
			continue
		}
		for _, w := range warnings {
			f.logger.Warn("pact file warning", "path", path, "warning", w)
		}

		f.memory.pacts[p.ID()] = p
	}

	return nil
}

// PactPath is the file a pact with the given id is stored in
func (f *FileStorage) PactPath(id string) string {
	name := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, id)
	return filepath.Join(f.basePath, name+".json")
}

func (f *FileStorage) writePact(p *models.Pact) error {
	version := f.version
	if version == pactspec.Unknown {
		version = p.Version
	}
	data, err := models.EncodePact(p, version)
	if err != nil {
		return fmt.Errorf("encoding pact %s: %w", p.ID(), err)
	}

	path := f.PactPath(p.ID())
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// SavePact merges p into the stored pact and rewrites its file
func (f *FileStorage) SavePact(p *models.Pact) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.SavePact(p); err != nil {
		return err
	}
	stored, err := f.memory.GetPact(p.ID())
	if err != nil {
		return err
	}
	return f.writePact(stored)
}

// GetPact retrieves a pact by ID
func (f *FileStorage) GetPact(id string) (*models.Pact, error) {
	return f.memory.GetPact(id)
}

// GetAllPacts returns every pact sorted by ID
func (f *FileStorage) GetAllPacts() ([]*models.Pact, error) {
	return f.memory.GetAllPacts()
}

// DeletePact removes a pact and its file
func (f *FileStorage) DeletePact(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.memory.DeletePact(id); err != nil {
		return err
	}
	if err := os.Remove(f.PactPath(id)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close closes the storage
func (f *FileStorage) Close() error {
	return nil
}
