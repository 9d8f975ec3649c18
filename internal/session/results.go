package session

import (
	"github.com/prasenjit/go-pact/internal/matching"
	"github.com/prasenjit/go-pact/internal/models"
)

// PartialMismatch is a request that resembled an interaction but differed
type PartialMismatch struct {
	Interaction *models.Interaction
	Request     *models.Request
	Mismatches  []matching.Mismatch
}

// RequestError is a request whose handling failed
type RequestError struct {
	Request *models.Request
	Error   string
}

// Results are the accumulated outcomes of a session
type Results struct {
	SessionID     string
	State         State
	Matched       []*models.Interaction
	AlmostMatched []PartialMismatch
	Missing       []*models.Interaction
	Unexpected    []*models.Request
	Errors        []RequestError
}

// AllMatched holds when nothing is missing and nothing unexpected arrived
func (r Results) AllMatched() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0
}
