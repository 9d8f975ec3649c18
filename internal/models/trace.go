package models

import (
	"time"
)

// Trace is the record of one request handled by a mock server
type Trace struct {
	ID             string        `json:"id"`
	SessionID      string        `json:"sessionId"`
	Timestamp      time.Time     `json:"timestamp"`
	Duration       int64         `json:"duration"` // nanoseconds
	Request        TraceRequest  `json:"request"`
	Response       TraceResponse `json:"response"`
	Classification string        `json:"classification"`
	InteractionKey string        `json:"interactionKey,omitempty"`
	Interaction    string        `json:"interaction,omitempty"` // description of the matched interaction
	Mismatches     []string      `json:"mismatches,omitempty"`
}

// TraceRequest is the captured request
type TraceRequest struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   map[string][]string `json:"query"`
	Headers map[string][]string `json:"headers"`
	Body    string              `json:"body"`
}

// TraceResponse is the captured response
type TraceResponse struct {
	StatusCode int                 `json:"statusCode"`
	Headers    map[string][]string `json:"headers"`
	Body       string              `json:"body"`
}

// TraceFilter selects traces
type TraceFilter struct {
	Classification string    `json:"classification,omitempty"`
	InteractionKey string    `json:"interactionKey,omitempty"`
	Method         string    `json:"method,omitempty"`
	Path           string    `json:"path,omitempty"`
	StatusCode     int       `json:"statusCode,omitempty"`
	StartTime      time.Time `json:"startTime,omitempty"`
	EndTime        time.Time `json:"endTime,omitempty"`
	Limit          int       `json:"limit,omitempty"`
	Offset         int       `json:"offset,omitempty"`
}
