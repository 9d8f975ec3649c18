package storage

import (
	"errors"

	"github.com/prasenjit/go-pact/internal/models"
)

// ErrPactNotFound is returned when no pact has the requested ID
var ErrPactNotFound = errors.New("pact not found")

// Storage persists pacts keyed by their consumer/provider ID
type Storage interface {
	// SavePact stores p, merging its interactions into any stored pact with
	// the same ID. Interactions with the same key are replaced.
	SavePact(p *models.Pact) error
	GetPact(id string) (*models.Pact, error)
	GetAllPacts() ([]*models.Pact, error)
	DeletePact(id string) error

	Close() error
}
