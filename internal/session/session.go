// Package session classifies the requests received by a mock server against
// the interactions of a pact and accumulates the results of the run.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prasenjit/go-pact/internal/generators"
	"github.com/prasenjit/go-pact/internal/logging"
	"github.com/prasenjit/go-pact/internal/matching"
	"github.com/prasenjit/go-pact/internal/models"
)

// UnexpectedRequestHeader marks responses to requests that did not match
const UnexpectedRequestHeader = "X-Pact-Unexpected-Request"

// ErrFinalized is returned when the results of a session are read twice
var ErrFinalized = errors.New("session already finalized")

// State is the lifecycle stage of a session
type State int

const (
	Idle State = iota
	Armed
	Running
	Finalized
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Running:
		return "running"
	case Finalized:
		return "finalized"
	}
	return "unknown"
}

// Classification is the outcome of matching one request
type Classification int

const (
	FullMatch Classification = iota
	PartialMatch
	NoMatch
	// Failed means classification or response generation panicked
	Failed
)

func (c Classification) String() string {
	switch c {
	case FullMatch:
		return "full_match"
	case PartialMatch:
		return "partial_match"
	case NoMatch:
		return "no_match"
	case Failed:
		return "error"
	}
	return "unknown"
}

// MarshalText renders the classification by name
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Event is passed to observers after every request
type Event struct {
	SessionID      string
	Request        *models.Request
	Response       *models.Response
	Classification Classification
	// Interaction is the matched interaction, or the closest one for a
	// partial match
	Interaction *models.Interaction
	Mismatches  []matching.Mismatch
	Received    time.Time
	Duration    time.Duration
}

// Observer is notified after each request has been classified
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logging.OrNop(logger) }
}

// WithHandlers sets the content-type handlers used to apply body generators
func WithHandlers(handlers generators.HandlerTable) Option {
	return func(s *Session) { s.handlers = handlers }
}

// WithMockServerURL sets the base URL used by mock server URL generators
func WithMockServerURL(url string) Option {
	return func(s *Session) { s.mockServerURL = url }
}

// WithObserver adds an observer
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// Session is the state of one mock server run
type Session struct {
	id            string
	interactions  []*models.Interaction
	logger        *slog.Logger
	handlers      generators.HandlerTable
	mockServerURL string
	observers     []Observer
	now           func() time.Time

	mu       sync.Mutex
	drained  *sync.Cond
	state    State
	closing  bool
	inFlight int
	results  Results
}

// New creates a session for the given interactions. The interactions are
// not modified.
func New(interactions []*models.Interaction, opts ...Option) *Session {
	s := &Session{
		id:           uuid.NewString(),
		interactions: interactions,
		logger:       logging.Nop(),
		handlers:     generators.DefaultHandlers(),
		now:          time.Now,
	}
	s.drained = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}
	if len(interactions) > 0 {
		s.state = Armed
	}
	return s
}

// ID identifies the session in logs and traces
func (s *Session) ID() string {
	return s.id
}

// Interactions returns the expected interactions
func (s *Session) Interactions() []*models.Interaction {
	return s.interactions
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ReceiveRequest classifies req and returns the response to send. Matched
// requests get the interaction's response with its generators applied;
// everything else gets InvalidRequestResponse.
func (s *Session) ReceiveRequest(ctx context.Context, req *models.Request) (resp *models.Response, class Classification) {
	received := s.now()
	if !s.enter() {
		s.logger.WarnContext(ctx, "request received after the session was closed", "request", req.Describe())
		return InvalidRequestResponse(req), NoMatch
	}
	defer s.leave()

	var out outcome
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic while handling request",
				"request", req.Describe(), "panic", r, "stack", string(debug.Stack()))
			err := fmt.Errorf("panic: %v", r)
			s.mu.Lock()
			s.results.Errors = append(s.results.Errors, RequestError{Request: req, Error: err.Error()})
			s.mu.Unlock()
			resp, class = ErrorResponse(err), Failed
			out = outcome{class: Failed}
		}
		s.notify(Event{
			SessionID:      s.id,
			Request:        req,
			Response:       resp,
			Classification: class,
			Interaction:    out.interaction,
			Mismatches:     out.mismatches,
			Received:       received,
			Duration:       s.now().Sub(received),
		})
	}()

	out = s.classify(req)
	if out.class == FullMatch {
		s.logger.DebugContext(ctx, "request matched", "request", req.Describe(), "interaction", out.interaction.Description)
		// a match is only recorded once its response has been built
		resp = s.respond(ctx, out.interaction)
		s.record(req, out)
		return resp, FullMatch
	}
	s.record(req, out)

	switch out.class {
	case PartialMatch:
		s.logger.InfoContext(ctx, "request partially matched",
			"request", req.Describe(), "interaction", out.interaction.Description, "mismatches", len(out.mismatches))
	default:
		s.logger.InfoContext(ctx, "unexpected request", "request", req.Describe())
	}
	return InvalidRequestResponse(req), out.class
}

type outcome struct {
	class       Classification
	interaction *models.Interaction
	mismatches  []matching.Mismatch
}

// classify compares req with every interaction. The first full match wins;
// otherwise the partial match with the fewest mismatches is reported.
func (s *Session) classify(req *models.Request) outcome {
	best := outcome{class: NoMatch}
	for _, in := range s.interactions {
		if in.Request == nil {
			continue
		}
		res := matching.MatchRequest(in.Request, req)
		if res.IsFullMatch() {
			return outcome{class: FullMatch, interaction: in}
		}
		if res.IsPartialMatch() && (best.class == NoMatch || res.Count() < len(best.mismatches)) {
			best = outcome{class: PartialMatch, interaction: in, mismatches: res.Mismatches}
		}
	}
	return best
}

func (s *Session) record(req *models.Request, out outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch out.class {
	case FullMatch:
		s.results.Matched = append(s.results.Matched, out.interaction)
	case PartialMatch:
		s.results.AlmostMatched = append(s.results.AlmostMatched, PartialMismatch{
			Interaction: out.interaction,
			Request:     req,
			Mismatches:  out.mismatches,
		})
	default:
		s.results.Unexpected = append(s.results.Unexpected, req)
	}
}

// respond builds the response for a matched interaction. All date and time
// generators of one response share a single sampled time.
func (s *Session) respond(ctx context.Context, in *models.Interaction) *models.Response {
	if in.Response == nil {
		return models.NewResponse(200)
	}
	gctx := generators.NewContext(generators.Consumer)
	gctx.Now = s.now()
	gctx.MockServerURL = s.mockServerURL
	gctx.ProviderState = in.ProviderStateParams()

	resp, err := in.Response.Generate(gctx, s.handlers)
	if err != nil {
		s.logger.WarnContext(ctx, "generators failed, example values kept",
			"interaction", in.Description, "error", err)
	}
	return resp
}

func (s *Session) notify(e Event) {
	for _, o := range s.observers {
		o.Observe(e)
	}
}

func (s *Session) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.inFlight++
	if s.state == Armed || s.state == Idle {
		s.state = Running
	}
	return true
}

func (s *Session) leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	if s.inFlight == 0 {
		s.drained.Broadcast()
	}
}

// Results returns a snapshot of the results so far. Missing is computed
// against the matches seen up to now.
func (s *Session) Results() Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Session) snapshot() Results {
	r := Results{
		SessionID:     s.id,
		State:         s.state,
		Matched:       append([]*models.Interaction(nil), s.results.Matched...),
		AlmostMatched: append([]PartialMismatch(nil), s.results.AlmostMatched...),
		Unexpected:    append([]*models.Request(nil), s.results.Unexpected...),
		Errors:        append([]RequestError(nil), s.results.Errors...),
	}
	r.Missing = missing(s.interactions, r.Matched)
	return r
}

// RemainingResults stops accepting requests, waits for requests in flight
// to finish and returns the final results. It may only succeed once. When
// ctx ends first the session accepts requests again and the call can be
// retried.
func (s *Session) RemainingResults(ctx context.Context) (Results, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Finalized {
		return Results{}, ErrFinalized
	}
	s.closing = true

	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.drained.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	for s.inFlight > 0 {
		if err := ctx.Err(); err != nil {
			s.closing = false
			return Results{}, fmt.Errorf("waiting for %d requests in flight: %w", s.inFlight, err)
		}
		s.drained.Wait()
	}

	s.state = Finalized
	return s.snapshot(), nil
}

// AllMatched reports whether every interaction was matched and no
// unexpected request arrived. Partial matches are not considered.
func (s *Session) AllMatched() bool {
	r := s.Results()
	return r.AllMatched()
}

// missing returns the interactions that never matched, in load order
func missing(expected, matched []*models.Interaction) []*models.Interaction {
	seen := make(map[string]bool, len(matched))
	for _, in := range matched {
		seen[in.UniqueKey()] = true
	}
	var out []*models.Interaction
	for _, in := range expected {
		if !seen[in.UniqueKey()] {
			out = append(out, in)
		}
	}
	return out
}

// InvalidRequestResponse is sent for requests that did not fully match
func InvalidRequestResponse(req *models.Request) *models.Response {
	return jsonError(map[string]string{"error": "Unexpected request : " + req.Describe()})
}

// ErrorResponse is sent when handling a request failed
func ErrorResponse(err error) *models.Response {
	return jsonError(map[string]string{"error": err.Error()})
}

func jsonError(body map[string]string) *models.Response {
	resp := models.NewResponse(500)
	resp.Headers["Content-Type"] = []string{"application/json"}
	resp.Headers[UnexpectedRequestHeader] = []string{"1"}
	data, _ := json.Marshal(body)
	resp.Body = models.NewBody(data, "application/json")
	return resp
}
