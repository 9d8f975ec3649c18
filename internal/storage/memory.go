package storage

import (
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/prasenjit/go-pact/internal/models"
)

// MemoryStorage implements Storage in memory
type MemoryStorage struct {
	mu    sync.RWMutex
	pacts map[string]*models.Pact
}

// NewMemoryStorage creates a new in-memory storage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		pacts: make(map[string]*models.Pact),
	}
}

// SavePact stores or merges a pact
func (m *MemoryStorage) SavePact(p *models.Pact) error {
	if p.Consumer == "" || p.Provider == "" {
		return fmt.Errorf("pact needs both a consumer and a provider name")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.pacts[p.ID()] = merged(m.pacts[p.ID()], p)
	return nil
}

// merged returns a new pact holding existing's interactions with p's merged
// in. Neither argument is modified.
func merged(existing, p *models.Pact) *models.Pact {
	out := clonePact(p)
	if existing == nil {
		return out
	}
	base := clonePact(existing)
	base.Merge(out)
	maps.Copy(base.Metadata, out.Metadata)
	return base
}

func clonePact(p *models.Pact) *models.Pact {
	c := *p
	c.Interactions = append([]*models.Interaction(nil), p.Interactions...)
	c.Metadata = maps.Clone(p.Metadata)
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	return &c
}

// GetPact retrieves a pact by ID
func (m *MemoryStorage) GetPact(id string) (*models.Pact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, exists := m.pacts[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPactNotFound, id)
	}

	return clonePact(p), nil
}

// GetAllPacts returns every pact sorted by ID
func (m *MemoryStorage) GetAllPacts() ([]*models.Pact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pacts := make([]*models.Pact, 0, len(m.pacts))
	for _, p := range m.pacts {
		pacts = append(pacts, clonePact(p))
	}

	sort.Slice(pacts, func(i, j int) bool {
		return pacts[i].ID() < pacts[j].ID()
	})

	return pacts, nil
}

// DeletePact deletes a pact
func (m *MemoryStorage) DeletePact(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.pacts[id]; !exists {
		return fmt.Errorf("%w: %s", ErrPactNotFound, id)
	}

	delete(m.pacts, id)
	return nil
}

// Close is a no-op for memory storage
func (m *MemoryStorage) Close() error {
	return nil
}
