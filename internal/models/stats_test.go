package models

import (
	"testing"
	"time"
)

func TestAtomicInteractionStat_ToInteractionStat(t *testing.T) {
	ais := &AtomicInteractionStat{
		InteractionKey: "abc123",
		Description:    "get user",
		Method:         "GET",
		Path:           "/users/1",
	}

	ais.TotalRequests.Store(100)
	ais.TotalMismatches.Store(5)
	ais.TotalTimeNs.Store(1000000000) // 1s
	ais.MinTimeNs.Store(5000000)
	ais.MaxTimeNs.Store(50000000)
	ais.LastRequestTime.Store(time.Now())

	stat := ais.ToInteractionStat()

	if stat.InteractionKey != "abc123" {
		t.Errorf("Expected key 'abc123', got %q", stat.InteractionKey)
	}
	if stat.Description != "get user" {
		t.Errorf("Expected description 'get user', got %q", stat.Description)
	}
	if stat.TotalRequests != 100 {
		t.Errorf("Expected 100 requests, got %d", stat.TotalRequests)
	}
	if stat.TotalMismatches != 5 {
		t.Errorf("Expected 5 mismatches, got %d", stat.TotalMismatches)
	}
	if stat.AvgResponseTimeMs != 10.0 {
		t.Errorf("Expected avg 10ms, got %v", stat.AvgResponseTimeMs)
	}
	if stat.MinResponseTimeMs != 5.0 {
		t.Errorf("Expected min 5ms, got %v", stat.MinResponseTimeMs)
	}
	if stat.MaxResponseTimeMs != 50.0 {
		t.Errorf("Expected max 50ms, got %v", stat.MaxResponseTimeMs)
	}
	if stat.LastRequestTime == "" {
		t.Error("Expected non-empty last request time")
	}
}

func TestAtomicInteractionStat_ZeroRequests(t *testing.T) {
	ais := &AtomicInteractionStat{InteractionKey: "k"}

	stat := ais.ToInteractionStat()

	if stat.TotalRequests != 0 {
		t.Errorf("Expected 0 requests, got %d", stat.TotalRequests)
	}
	if stat.AvgResponseTimeMs != 0 {
		t.Errorf("Expected avg 0, got %v", stat.AvgResponseTimeMs)
	}
	if stat.LastRequestTime != "" {
		t.Errorf("Expected empty last request time, got %q", stat.LastRequestTime)
	}
}
