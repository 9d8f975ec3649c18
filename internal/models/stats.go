package models

import (
	"sync/atomic"
	"time"
)

// GlobalStats summarises the traffic seen by a mock server
type GlobalStats struct {
	TotalRequests     int64             `json:"totalRequests"`
	FullMatches       int64             `json:"fullMatches"`
	PartialMatches    int64             `json:"partialMatches"`
	Unexpected        int64             `json:"unexpected"`
	Errors            int64             `json:"errors"`
	Interactions      int               `json:"interactions"`
	AvgResponseTimeMs float64           `json:"avgResponseTimeMs"`
	RequestsPerSecond float64           `json:"requestsPerSecond"`
	StartTime         time.Time         `json:"startTime"`
	Uptime            string            `json:"uptime"`
	TopInteractions   []InteractionStat `json:"topInteractions"`
	RecentMismatches  []MismatchStat    `json:"recentMismatches"`
	RequestsByHour    []HourlyStat      `json:"requestsByHour"`
}

// InteractionStat holds the statistics of one interaction
type InteractionStat struct {
	InteractionKey    string  `json:"interactionKey"`
	Description       string  `json:"description"`
	Method            string  `json:"method"`
	Path              string  `json:"path"`
	TotalRequests     int64   `json:"totalRequests"`
	TotalMismatches   int64   `json:"totalMismatches"`
	AvgResponseTimeMs float64 `json:"avgResponseTimeMs"`
	MinResponseTimeMs float64 `json:"minResponseTimeMs"`
	MaxResponseTimeMs float64 `json:"maxResponseTimeMs"`
	LastRequestTime   string  `json:"lastRequestTime,omitempty"`
}

// MismatchStat records one request that did not fully match
type MismatchStat struct {
	Timestamp      time.Time `json:"timestamp"`
	InteractionKey string    `json:"interactionKey,omitempty"`
	Method         string    `json:"method"`
	Path           string    `json:"path"`
	Classification string    `json:"classification"`
	Mismatches     []string  `json:"mismatches,omitempty"`
}

// HourlyStat represents hourly request statistics
type HourlyStat struct {
	Hour       string `json:"hour"`
	Requests   int64  `json:"requests"`
	Mismatches int64  `json:"mismatches"`
}

// AtomicInteractionStat is the lock-free accumulator behind InteractionStat
type AtomicInteractionStat struct {
	InteractionKey  string
	Description     string
	Method          string
	Path            string
	TotalRequests   atomic.Int64
	TotalMismatches atomic.Int64
	TotalTimeNs     atomic.Int64
	MinTimeNs       atomic.Int64
	MaxTimeNs       atomic.Int64
	LastRequestTime atomic.Value // stores time.Time
}

// ToInteractionStat converts to a regular InteractionStat
func (a *AtomicInteractionStat) ToInteractionStat() InteractionStat {
	totalReqs := a.TotalRequests.Load()
	totalTimeNs := a.TotalTimeNs.Load()
	var avgMs float64
	if totalReqs > 0 {
		avgMs = float64(totalTimeNs) / float64(totalReqs) / 1e6
	}

	var lastReqTime string
	if t, ok := a.LastRequestTime.Load().(time.Time); ok && !t.IsZero() {
		lastReqTime = t.Format(time.RFC3339)
	}

	return InteractionStat{
		InteractionKey:    a.InteractionKey,
		Description:       a.Description,
		Method:            a.Method,
		Path:              a.Path,
		TotalRequests:     totalReqs,
		TotalMismatches:   a.TotalMismatches.Load(),
		AvgResponseTimeMs: avgMs,
		MinResponseTimeMs: float64(a.MinTimeNs.Load()) / 1e6,
		MaxResponseTimeMs: float64(a.MaxTimeNs.Load()) / 1e6,
		LastRequestTime:   lastReqTime,
	}
}
