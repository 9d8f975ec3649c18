package api

import (
	"github.com/prasenjit/go-pact/internal/matching"
	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/session"
)

type interactionView struct {
	Key            string                  `json:"key"`
	Description    string                  `json:"description"`
	ProviderStates []models.ProviderState  `json:"providerStates,omitempty"`
	Method         string                  `json:"method"`
	Path           string                  `json:"path"`
	Status         int                     `json:"status"`
	Pending        bool                    `json:"pending,omitempty"`
	Stats          *models.InteractionStat `json:"stats,omitempty"`
}

func newInteractionView(in *models.Interaction) interactionView {
	v := interactionView{
		Key:            in.UniqueKey(),
		Description:    in.Description,
		ProviderStates: in.ProviderStates,
		Pending:        in.Pending,
	}
	if in.Request != nil {
		v.Method, v.Path = in.Request.Method, in.Request.Path
	}
	if in.Response != nil {
		v.Status = in.Response.Status
	}
	return v
}

type requestView struct {
	Method string              `json:"method"`
	Path   string              `json:"path"`
	Query  map[string][]string `json:"query,omitempty"`
}

func newRequestView(r *models.Request) requestView {
	return requestView{Method: r.Method, Path: r.Path, Query: r.Query}
}

type partialView struct {
	Interaction string              `json:"interaction"`
	Request     requestView         `json:"request"`
	Mismatches  []matching.Mismatch `json:"mismatches"`
}

type errorView struct {
	Request requestView `json:"request"`
	Error   string      `json:"error"`
}

type resultsView struct {
	SessionID     string        `json:"sessionId"`
	State         string        `json:"state"`
	AllMatched    bool          `json:"allMatched"`
	Matched       []string      `json:"matched"`
	AlmostMatched []partialView `json:"almostMatched"`
	Missing       []string      `json:"missing"`
	Unexpected    []requestView `json:"unexpected"`
	Errors        []errorView   `json:"errors"`
}

func newResultsView(r session.Results) resultsView {
	v := resultsView{
		SessionID:     r.SessionID,
		State:         r.State.String(),
		AllMatched:    r.AllMatched(),
		Matched:       make([]string, 0, len(r.Matched)),
		AlmostMatched: make([]partialView, 0, len(r.AlmostMatched)),
		Missing:       make([]string, 0, len(r.Missing)),
		Unexpected:    make([]requestView, 0, len(r.Unexpected)),
		Errors:        make([]errorView, 0, len(r.Errors)),
	}
	for _, in := range r.Matched {
		v.Matched = append(v.Matched, in.Description)
	}
	for _, pm := range r.AlmostMatched {
		v.AlmostMatched = append(v.AlmostMatched, partialView{
			Interaction: pm.Interaction.Description,
			Request:     newRequestView(pm.Request),
			Mismatches:  pm.Mismatches,
		})
	}
	for _, in := range r.Missing {
		v.Missing = append(v.Missing, in.Description)
	}
	for _, req := range r.Unexpected {
		v.Unexpected = append(v.Unexpected, newRequestView(req))
	}
	for _, e := range r.Errors {
		v.Errors = append(v.Errors, errorView{Request: newRequestView(e.Request), Error: e.Error})
	}
	return v
}
