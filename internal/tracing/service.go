// Package tracing keeps a bounded history of classified mock server requests
// and streams new ones to websocket subscribers.
package tracing

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/session"
)

// maxBodyChars bounds the body text kept per trace
const maxBodyChars = 64 << 10

// Service manages request/response tracing
type Service struct {
	mu          sync.RWMutex
	traces      []*models.Trace
	maxTraces   int
	subscribers map[string]chan *models.Trace
}

// NewService creates a new tracing service
func NewService(maxTraces int) *Service {
	if maxTraces <= 0 {
		maxTraces = 1000
	}

	return &Service{
		traces:      make([]*models.Trace, 0),
		maxTraces:   maxTraces,
		subscribers: make(map[string]chan *models.Trace),
	}
}

// Observe records a trace for a classified request
func (s *Service) Observe(e session.Event) {
	trace := &models.Trace{
		SessionID:      e.SessionID,
		Timestamp:      e.Received,
		Duration:       e.Duration.Nanoseconds(),
		Classification: e.Classification.String(),
	}
	if e.Request != nil {
		trace.Request = models.TraceRequest{
			Method:  e.Request.Method,
			Path:    e.Request.Path,
			Query:   e.Request.Query,
			Headers: e.Request.Headers,
			Body:    clip(e.Request.Body.String()),
		}
	}
	if e.Response != nil {
		trace.Response = models.TraceResponse{
			StatusCode: e.Response.Status,
			Headers:    e.Response.Headers,
			Body:       clip(e.Response.Body.String()),
		}
	}
	if e.Interaction != nil {
		trace.InteractionKey = e.Interaction.UniqueKey()
		trace.Interaction = e.Interaction.Description
	}
	for _, m := range e.Mismatches {
		trace.Mismatches = append(trace.Mismatches, m.String())
	}
	s.RecordTrace(trace)
}

func clip(s string) string {
	if len(s) > maxBodyChars {
		return s[:maxBodyChars] + "..."
	}
	return s
}

// RecordTrace records a new trace
func (s *Service) RecordTrace(trace *models.Trace) {
	s.mu.Lock()

	if trace.ID == "" {
		trace.ID = uuid.New().String()
	}
	if trace.Timestamp.IsZero() {
		trace.Timestamp = time.Now()
	}

	s.traces = append(s.traces, trace)
	if len(s.traces) > s.maxTraces {
		s.traces = s.traces[len(s.traces)-s.maxTraces:]
	}

	// non-blocking sends under the lock; Unsubscribe closes channels
	for _, ch := range s.subscribers {
		select {
		case ch <- trace:
		default:
			// subscriber is behind, drop
		}
	}
	s.mu.Unlock()
}

// GetTraces returns traces matching the filter, newest first
func (s *Service) GetTraces(filter *models.TraceFilter) []*models.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Trace, 0)
	skipped := 0

	for i := len(s.traces) - 1; i >= 0; i-- {
		trace := s.traces[i]

		if filter != nil {
			if !matches(trace, filter) {
				continue
			}
			if skipped < filter.Offset {
				skipped++
				continue
			}
		}

		result = append(result, trace)

		if filter != nil && filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}

	return result
}

func matches(trace *models.Trace, filter *models.TraceFilter) bool {
	switch {
	case filter.Classification != "" && trace.Classification != filter.Classification:
		return false
	case filter.InteractionKey != "" && trace.InteractionKey != filter.InteractionKey:
		return false
	case filter.Method != "" && !strings.EqualFold(trace.Request.Method, filter.Method):
		return false
	case filter.Path != "" && !strings.HasPrefix(trace.Request.Path, filter.Path):
		return false
	case filter.StatusCode != 0 && trace.Response.StatusCode != filter.StatusCode:
		return false
	case !filter.StartTime.IsZero() && trace.Timestamp.Before(filter.StartTime):
		return false
	case !filter.EndTime.IsZero() && trace.Timestamp.After(filter.EndTime):
		return false
	}
	return true
}

// GetTrace returns a single trace by ID
func (s *Service) GetTrace(id string) *models.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, trace := range s.traces {
		if trace.ID == id {
			return trace
		}
	}

	return nil
}

// ClearTraces removes all traces
func (s *Service) ClearTraces() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.traces = make([]*models.Trace, 0)
}

// ClearTracesBySession removes the traces of one session
func (s *Service) ClearTracesBySession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]*models.Trace, 0, len(s.traces))
	for _, trace := range s.traces {
		if trace.SessionID != sessionID {
			filtered = append(filtered, trace)
		}
	}
	s.traces = filtered
}

// Subscribe creates a subscription for live traces
func (s *Service) Subscribe() (string, chan *models.Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan *models.Trace, 100)
	s.subscribers[id] = ch

	return id, ch
}

// Unsubscribe removes a subscription
func (s *Service) Unsubscribe(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[id]; ok {
		close(ch)
		delete(s.subscribers, id)
	}
}

// GetStats returns tracing statistics
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"totalTraces":       len(s.traces),
		"maxTraces":         s.maxTraces,
		"activeSubscribers": len(s.subscribers),
	}
}
