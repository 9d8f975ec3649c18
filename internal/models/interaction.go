package models

import (
	"crypto/sha256"
	"encoding/hex"
	"maps"
	"strings"
)

// ProviderState is a named precondition and its parameters
type ProviderState struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// Interaction is one expected request/response exchange
type Interaction struct {
	Key            string
	Description    string
	ProviderStates []ProviderState
	Request        *Request
	Response       *Response
	// Pending interactions do not fail verification
	Pending bool
}

// UniqueKey identifies the interaction within a pact. The explicit key is
// used when present, otherwise a hash of the description, provider states
// and request line.
func (i *Interaction) UniqueKey() string {
	if i.Key != "" {
		return i.Key
	}
	h := sha256.New()
	h.Write([]byte(i.Description))
	for _, s := range i.ProviderStates {
		h.Write([]byte{0})
		h.Write([]byte(s.Name))
	}
	if i.Request != nil {
		h.Write([]byte{0})
		h.Write([]byte(i.Request.Method + " " + i.Request.Path + "?" + i.Request.QueryString()))
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ProviderStateParams merges the parameters of every provider state, later
// states overriding earlier ones
func (i *Interaction) ProviderStateParams() map[string]any {
	params := make(map[string]any)
	for _, s := range i.ProviderStates {
		maps.Copy(params, s.Params)
	}
	return params
}

// ProviderStateNames returns the state names joined for display
func (i *Interaction) ProviderStateNames() string {
	names := make([]string, len(i.ProviderStates))
	for idx, s := range i.ProviderStates {
		names[idx] = s.Name
	}
	return strings.Join(names, ", ")
}
