package models

import (
	"github.com/prasenjit/go-pact/internal/pactspec"
)

// Pact is a contract between a consumer and a provider
type Pact struct {
	Consumer     string
	Provider     string
	Interactions []*Interaction
	Metadata     map[string]any
	Version      pactspec.Version
}

// ID names the pact by its participants
func (p *Pact) ID() string {
	return p.Consumer + "-" + p.Provider
}

// Find returns the interaction with the given unique key
func (p *Pact) Find(key string) (*Interaction, bool) {
	for _, i := range p.Interactions {
		if i.UniqueKey() == key {
			return i, true
		}
	}
	return nil, false
}

// Merge adds the interactions of other, replacing those with the same key
func (p *Pact) Merge(other *Pact) {
	index := make(map[string]int, len(p.Interactions))
	for idx, i := range p.Interactions {
		index[i.UniqueKey()] = idx
	}
	for _, i := range other.Interactions {
		if idx, ok := index[i.UniqueKey()]; ok {
			p.Interactions[idx] = i
			continue
		}
		index[i.UniqueKey()] = len(p.Interactions)
		p.Interactions = append(p.Interactions, i)
	}
	if other.Version > p.Version {
		p.Version = other.Version
	}
}
