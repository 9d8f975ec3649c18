package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prasenjit/go-pact/internal/logging"
	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/pactspec"
	"github.com/prasenjit/go-pact/internal/parser"
	"github.com/prasenjit/go-pact/internal/session"
	"github.com/prasenjit/go-pact/internal/stats"
	"github.com/prasenjit/go-pact/internal/storage"
	"github.com/prasenjit/go-pact/internal/tracing"
	"github.com/prasenjit/go-pact/internal/verification"
)

// MockServer is the running mock server the admin API reports on
type MockServer interface {
	URL() string
	Session() *session.Session
}

// Handler handles admin API requests
type Handler struct {
	server         MockServer
	store          storage.Storage
	statsCollector *stats.Collector
	tracingService *tracing.Service
	parser         *parser.Parser
	version        pactspec.Version
	logger         *slog.Logger
}

// NewHandler creates a new API handler
func NewHandler(deps Dependencies) *Handler {
	version := deps.SpecVersion
	if version == pactspec.Unknown {
		version = pactspec.Default
	}
	return &Handler{
		server:         deps.Server,
		store:          deps.Store,
		statsCollector: deps.Stats,
		tracingService: deps.Tracing,
		parser:         parser.NewParser(),
		version:        version,
		logger:         logging.OrNop(deps.Logger).With("component", "admin"),
	}
}

func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	if h.server == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No mock server running"})
		return nil, false
	}
	return h.server.Session(), true
}

// GetSession describes the running session
func (h *Handler) GetSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":           s.ID(),
		"state":        s.State().String(),
		"url":          h.server.URL(),
		"interactions": len(s.Interactions()),
		"allMatched":   s.AllMatched(),
	})
}

// ListInteractions returns the interactions served by the mock server
func (h *Handler) ListInteractions(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	result := make([]interactionView, 0, len(s.Interactions()))
	for _, in := range s.Interactions() {
		result = append(result, newInteractionView(in))
	}
	c.JSON(http.StatusOK, result)
}

// GetInteraction returns one interaction with its statistics
func (h *Handler) GetInteraction(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	key := c.Param("key")
	for _, in := range s.Interactions() {
		if in.UniqueKey() == key {
			view := newInteractionView(in)
			if h.statsCollector != nil {
				view.Stats = h.statsCollector.GetInteractionStats(key)
			}
			c.JSON(http.StatusOK, view)
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "Interaction not found"})
}

// GetResults returns a snapshot of the session results
func (h *Handler) GetResults(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newResultsView(s.Results()))
}

// GetVerification returns the verdict the session would have if it ended now
func (h *Handler) GetVerification(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	result := verification.FromResults(s.Results())
	c.JSON(http.StatusOK, gin.H{
		"passed":      result.Passed,
		"matched":     result.Matched,
		"failures":    result.Failures,
		"pending":     result.Pending,
		"description": result.Description(),
	})
}

type verifyResponseInput struct {
	InteractionKey string              `json:"interactionKey" binding:"required"`
	Status         int                 `json:"status" binding:"required"`
	Headers        map[string][]string `json:"headers"`
	Body           string              `json:"body"`
}

// VerifyResponse checks a provider response against an interaction
func (h *Handler) VerifyResponse(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var input verifyResponseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var in *models.Interaction
	for _, candidate := range s.Interactions() {
		if candidate.UniqueKey() == input.InteractionKey {
			in = candidate
			break
		}
	}
	if in == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Interaction not found"})
		return
	}

	actual := models.NewResponse(input.Status)
	for k, v := range input.Headers {
		actual.Headers[k] = v
	}
	contentType, _ := actual.Header("Content-Type")
	actual.Body = models.NewBody([]byte(input.Body), contentType)

	result := verification.VerifyResponse(in, actual)
	c.JSON(http.StatusOK, gin.H{
		"passed":      result.Passed,
		"failures":    result.Failures,
		"pending":     result.Pending,
		"description": result.Description(),
	})
}

// GetGlobalStats returns global statistics
func (h *Handler) GetGlobalStats(c *gin.Context) {
	total := 0
	if h.server != nil {
		total = len(h.server.Session().Interactions())
	}
	c.JSON(http.StatusOK, h.statsCollector.GetGlobalStats(total))
}

// GetInteractionStats returns statistics for an interaction
func (h *Handler) GetInteractionStats(c *gin.Context) {
	stat := h.statsCollector.GetInteractionStats(c.Param("key"))
	if stat == nil {
		c.JSON(http.StatusOK, gin.H{"message": "No statistics available"})
		return
	}
	c.JSON(http.StatusOK, stat)
}

// ResetStats resets all statistics
func (h *Handler) ResetStats(c *gin.Context) {
	h.statsCollector.Reset()
	c.JSON(http.StatusOK, gin.H{"message": "Statistics reset"})
}

// ListTraces returns traces matching the query filters
func (h *Handler) ListTraces(c *gin.Context) {
	filter := &models.TraceFilter{
		Classification: c.Query("classification"),
		InteractionKey: c.Query("interactionKey"),
		Method:         c.Query("method"),
		Path:           c.Query("path"),
		Limit:          100,
	}

	var err error
	if v := c.Query("statusCode"); v != "" {
		if filter.StatusCode, err = strconv.Atoi(v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "statusCode must be a number"})
			return
		}
	}
	if v := c.Query("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative number"})
			return
		}
	}
	if v := c.Query("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil || filter.Offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative number"})
			return
		}
	}
	if v := c.Query("since"); v != "" {
		if filter.StartTime, err = time.Parse(time.RFC3339, v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC 3339 time"})
			return
		}
	}
	if v := c.Query("until"); v != "" {
		if filter.EndTime, err = time.Parse(time.RFC3339, v); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "until must be an RFC 3339 time"})
			return
		}
	}

	c.JSON(http.StatusOK, h.tracingService.GetTraces(filter))
}

// GetTrace returns a single trace
func (h *Handler) GetTrace(c *gin.Context) {
	trace := h.tracingService.GetTrace(c.Param("id"))
	if trace == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Trace not found"})
		return
	}
	c.JSON(http.StatusOK, trace)
}

// ClearTraces removes all traces, or those of one session
func (h *Handler) ClearTraces(c *gin.Context) {
	if id := c.Query("sessionId"); id != "" {
		h.tracingService.ClearTracesBySession(id)
	} else {
		h.tracingService.ClearTraces()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Traces cleared"})
}

// ListPacts returns the stored pacts
func (h *Handler) ListPacts(c *gin.Context) {
	pacts, err := h.store.GetAllPacts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	result := make([]gin.H, 0, len(pacts))
	for _, p := range pacts {
		result = append(result, gin.H{
			"id":           p.ID(),
			"consumer":     p.Consumer,
			"provider":     p.Provider,
			"version":      p.Version.String(),
			"interactions": len(p.Interactions),
		})
	}
	c.JSON(http.StatusOK, result)
}

// GetPact returns a stored pact as a pact file
func (h *Handler) GetPact(c *gin.Context) {
	p, err := h.store.GetPact(c.Param("id"))
	if errors.Is(err, storage.ErrPactNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pact not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	data, err := models.EncodePact(p, h.version)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// CreatePact parses an uploaded pact file and stores it
func (h *Handler) CreatePact(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.parser.Parse(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pact: " + err.Error()})
		return
	}
	if err := h.store.SavePact(result.Pact); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("pact stored", "id", result.Pact.ID(), "interactions", len(result.Pact.Interactions))

	c.JSON(http.StatusCreated, gin.H{
		"id":           result.Pact.ID(),
		"version":      result.Version.String(),
		"interactions": len(result.Pact.Interactions),
		"warnings":     result.Warnings,
		"diagnostics":  result.Diagnostics,
	})
}

// DeletePact deletes a stored pact
func (h *Handler) DeletePact(c *gin.Context) {
	err := h.store.DeletePact(c.Param("id"))
	if errors.Is(err, storage.ErrPactNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pact not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Pact deleted"})
}

// HealthCheck returns health status
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
