package tracing

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/prasenjit/go-pact/internal/matching"
	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/session"
)

func trace(method, path string, status int, class string) *models.Trace {
	return &models.Trace{
		SessionID:      "s1",
		Classification: class,
		Request:        models.TraceRequest{Method: method, Path: path},
		Response:       models.TraceResponse{StatusCode: status},
	}
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name        string
		maxTraces   int
		expectedMax int
	}{
		{"positive max", 500, 500},
		{"zero max defaults to 1000", 0, 1000},
		{"negative max defaults to 1000", -1, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(tt.maxTraces)
			if s.maxTraces != tt.expectedMax {
				t.Errorf("Expected maxTraces %d, got %d", tt.expectedMax, s.maxTraces)
			}
		})
	}
}

func TestRecordTrace(t *testing.T) {
	s := NewService(100)
	tr := trace("GET", "/users", 200, "full_match")

	s.RecordTrace(tr)

	if tr.ID == "" {
		t.Error("Expected trace ID to be generated")
	}
	if tr.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
	if got := len(s.GetTraces(nil)); got != 1 {
		t.Errorf("Expected 1 trace, got %d", got)
	}
}

func TestRecordTrace_MaxLimit(t *testing.T) {
	s := NewService(5)
	for i := 0; i < 10; i++ {
		s.RecordTrace(trace("GET", fmt.Sprintf("/users/%d", i), 200, "full_match"))
	}

	traces := s.GetTraces(nil)
	if len(traces) != 5 {
		t.Fatalf("Expected 5 traces, got %d", len(traces))
	}
	if traces[0].Request.Path != "/users/9" {
		t.Errorf("Expected newest trace first, got %s", traces[0].Request.Path)
	}
	if traces[4].Request.Path != "/users/5" {
		t.Errorf("Expected oldest kept trace /users/5, got %s", traces[4].Request.Path)
	}
}

func TestRecordTrace_PreservesIDAndTimestamp(t *testing.T) {
	s := NewService(10)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tr := trace("GET", "/", 200, "full_match")
	tr.ID = "custom"
	tr.Timestamp = ts

	s.RecordTrace(tr)

	if tr.ID != "custom" {
		t.Errorf("Expected ID custom, got %s", tr.ID)
	}
	if !tr.Timestamp.Equal(ts) {
		t.Errorf("Expected timestamp %v, got %v", ts, tr.Timestamp)
	}
}

func TestGetTraces_Filters(t *testing.T) {
	s := NewService(100)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	entries := []*models.Trace{
		trace("GET", "/users/1", 200, "full_match"),
		trace("POST", "/users", 201, "full_match"),
		trace("GET", "/orders/7", 500, "no_match"),
		trace("DELETE", "/users/1", 500, "partial_match"),
	}
	for i, e := range entries {
		e.Timestamp = base.Add(time.Duration(i) * time.Minute)
		if e.Classification == "full_match" {
			e.InteractionKey = fmt.Sprintf("key-%d", i)
		}
		s.RecordTrace(e)
	}

	tests := []struct {
		name     string
		filter   *models.TraceFilter
		expected int
	}{
		{"no filter", &models.TraceFilter{}, 4},
		{"classification", &models.TraceFilter{Classification: "full_match"}, 2},
		{"interaction key", &models.TraceFilter{InteractionKey: "key-1"}, 1},
		{"method case-insensitive", &models.TraceFilter{Method: "get"}, 2},
		{"path prefix", &models.TraceFilter{Path: "/users"}, 3},
		{"status code", &models.TraceFilter{StatusCode: 500}, 2},
		{"start time", &models.TraceFilter{StartTime: base.Add(2 * time.Minute)}, 2},
		{"end time", &models.TraceFilter{EndTime: base.Add(time.Minute)}, 2},
		{"limit", &models.TraceFilter{Limit: 3}, 3},
		{"offset", &models.TraceFilter{Offset: 3}, 1},
		{"offset past end", &models.TraceFilter{Offset: 10}, 0},
		{"combined", &models.TraceFilter{Method: "GET", StatusCode: 500}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(s.GetTraces(tt.filter)); got != tt.expected {
				t.Errorf("Expected %d traces, got %d", tt.expected, got)
			}
		})
	}
}

func TestGetTraces_OffsetAndLimitPage(t *testing.T) {
	s := NewService(100)
	for i := 0; i < 5; i++ {
		s.RecordTrace(trace("GET", fmt.Sprintf("/p/%d", i), 200, "full_match"))
	}

	page := s.GetTraces(&models.TraceFilter{Offset: 1, Limit: 2})
	if len(page) != 2 {
		t.Fatalf("Expected 2 traces, got %d", len(page))
	}
	if page[0].Request.Path != "/p/3" || page[1].Request.Path != "/p/2" {
		t.Errorf("Unexpected page: %s, %s", page[0].Request.Path, page[1].Request.Path)
	}
}

func TestGetTrace(t *testing.T) {
	s := NewService(10)
	tr := trace("GET", "/", 200, "full_match")
	s.RecordTrace(tr)

	if got := s.GetTrace(tr.ID); got != tr {
		t.Error("Expected to find recorded trace")
	}
	if got := s.GetTrace("missing"); got != nil {
		t.Error("Expected nil for unknown trace")
	}
}

func TestClearTraces(t *testing.T) {
	s := NewService(10)
	s.RecordTrace(trace("GET", "/", 200, "full_match"))
	s.ClearTraces()

	if got := len(s.GetTraces(nil)); got != 0 {
		t.Errorf("Expected 0 traces after clear, got %d", got)
	}
}

func TestClearTracesBySession(t *testing.T) {
	s := NewService(10)
	a := trace("GET", "/a", 200, "full_match")
	b := trace("GET", "/b", 200, "full_match")
	b.SessionID = "s2"
	s.RecordTrace(a)
	s.RecordTrace(b)

	s.ClearTracesBySession("s1")

	traces := s.GetTraces(nil)
	if len(traces) != 1 || traces[0].SessionID != "s2" {
		t.Errorf("Expected only s2 traces to remain, got %+v", traces)
	}
}

func TestObserve(t *testing.T) {
	s := NewService(10)
	req := models.NewRequest("POST", "/users")
	req.Body = models.NewBody([]byte(`{"name":"a"}`), "application/json")
	resp := models.NewResponse(500)
	resp.Body = models.NewBody([]byte(`{"error":"x"}`), "application/json")
	in := &models.Interaction{Key: "create-user", Description: "create a user"}
	received := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Observe(session.Event{
		SessionID:      "sess",
		Request:        req,
		Response:       resp,
		Classification: session.PartialMatch,
		Interaction:    in,
		Mismatches: []matching.Mismatch{
			{Kind: matching.BodyMismatch, Path: "$.name", Message: "Expected 'b' but received 'a'"},
		},
		Received: received,
		Duration: 3 * time.Millisecond,
	})

	traces := s.GetTraces(nil)
	if len(traces) != 1 {
		t.Fatalf("Expected 1 trace, got %d", len(traces))
	}
	tr := traces[0]
	if tr.SessionID != "sess" || tr.InteractionKey != "create-user" || tr.Interaction != "create a user" {
		t.Errorf("Unexpected identity fields: %+v", tr)
	}
	if tr.Classification != "partial_match" {
		t.Errorf("Expected partial_match, got %s", tr.Classification)
	}
	if tr.Request.Body != `{"name":"a"}` || tr.Response.StatusCode != 500 {
		t.Errorf("Unexpected captured exchange: %+v", tr)
	}
	if !tr.Timestamp.Equal(received) || tr.Duration != (3*time.Millisecond).Nanoseconds() {
		t.Errorf("Unexpected timing: %v %d", tr.Timestamp, tr.Duration)
	}
	if len(tr.Mismatches) != 1 || !strings.Contains(tr.Mismatches[0], "$.name") {
		t.Errorf("Unexpected mismatches: %v", tr.Mismatches)
	}
}

func TestObserve_Unmatched(t *testing.T) {
	s := NewService(10)
	s.Observe(session.Event{
		Request:        models.NewRequest("GET", "/nope"),
		Response:       models.NewResponse(500),
		Classification: session.NoMatch,
	})

	tr := s.GetTraces(nil)[0]
	if tr.InteractionKey != "" || tr.Classification != "no_match" {
		t.Errorf("Unexpected trace: %+v", tr)
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	s := NewService(10)
	id, ch := s.Subscribe()
	if id == "" || ch == nil {
		t.Fatal("Expected subscription")
	}
	if got := s.GetStats()["activeSubscribers"]; got != 1 {
		t.Errorf("Expected 1 subscriber, got %v", got)
	}

	s.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed")
	}
	if got := s.GetStats()["activeSubscribers"]; got != 0 {
		t.Errorf("Expected 0 subscribers, got %v", got)
	}
	s.Unsubscribe(id)
}

func TestSubscriberReceivesTraces(t *testing.T) {
	s := NewService(10)
	id, ch := s.Subscribe()
	defer s.Unsubscribe(id)

	tr := trace("GET", "/live", 200, "full_match")
	s.RecordTrace(tr)

	select {
	case got := <-ch:
		if got.ID != tr.ID {
			t.Errorf("Expected trace %s, got %s", tr.ID, got.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for trace")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewService(500)
	id, _ := s.Subscribe()
	defer s.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			s.RecordTrace(trace("GET", "/", 200, "full_match"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RecordTrace blocked on a full subscriber")
	}
}

func TestGetStats(t *testing.T) {
	s := NewService(50)
	s.RecordTrace(trace("GET", "/", 200, "full_match"))

	stats := s.GetStats()
	if stats["totalTraces"] != 1 {
		t.Errorf("Expected totalTraces 1, got %v", stats["totalTraces"])
	}
	if stats["maxTraces"] != 50 {
		t.Errorf("Expected maxTraces 50, got %v", stats["maxTraces"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := NewService(100)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.RecordTrace(trace("GET", "/", 200, "full_match"))
		}()
		go func() {
			defer wg.Done()
			_ = s.GetTraces(&models.TraceFilter{Limit: 5})
		}()
	}
	wg.Wait()

	if got := len(s.GetTraces(nil)); got != 20 {
		t.Errorf("Expected 20 traces, got %d", got)
	}
}

func TestWebSocketStreamsTraces(t *testing.T) {
	s := NewService(10)
	srv := httptest.NewServer(NewWebSocketHandler(s, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.GetStats()["activeSubscribers"] != 1 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.RecordTrace(trace("GET", "/streamed", 200, "full_match"))

	var got models.Trace
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Request.Path != "/streamed" {
		t.Errorf("Expected /streamed, got %s", got.Request.Path)
	}
}
