// Package stats aggregates per-interaction request statistics for the admin
// API and exports them as Prometheus metrics.
package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/prasenjit/go-pact/internal/models"
	"github.com/prasenjit/go-pact/internal/session"
)

// unmatchedKey groups requests that resembled no interaction
const unmatchedKey = "unmatched"

// Collector collects and aggregates statistics. It observes a session and
// is registered with Prometheus when a registerer is given.
type Collector struct {
	mu               sync.RWMutex
	startTime        time.Time
	interactions     map[string]*models.AtomicInteractionStat // interaction key -> stats
	classifications  map[session.Classification]int64
	recentMismatches []models.MismatchStat
	hourlyStats      map[string]*hourlyCounter // "YYYY-MM-DD-HH" -> counter
	maxMismatches    int
	maxHourlySlots   int

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mismatchesTotal *prometheus.CounterVec
}

type hourlyCounter struct {
	Hour       string
	Requests   int64
	Mismatches int64
}

// NewCollector creates a collector. Metrics are registered with reg unless
// it is nil.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		startTime:        time.Now(),
		interactions:     make(map[string]*models.AtomicInteractionStat),
		classifications:  make(map[session.Classification]int64),
		recentMismatches: make([]models.MismatchStat, 0),
		hourlyStats:      make(map[string]*hourlyCounter),
		maxMismatches:    100,
		maxHourlySlots:   168, // 7 days
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "gopact_requests_total", Help: "Requests received by the mock server"},
			[]string{"classification"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gopact_request_duration_seconds",
				Help:    "Time to classify a request and build its response",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"classification"},
		),
		mismatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "gopact_mismatches_total", Help: "Mismatches found in partially matched requests"},
			[]string{"kind"},
		),
	}

	if reg != nil {
		reg.MustRegister(c.requestsTotal, c.requestDuration, c.mismatchesTotal)
	}

	return c
}

// Observe records a classified request
func (c *Collector) Observe(e session.Event) {
	key, description := unmatchedKey, "unmatched requests"
	if e.Interaction != nil {
		key, description = e.Interaction.UniqueKey(), e.Interaction.Description
	}

	var mismatches []string
	for _, m := range e.Mismatches {
		mismatches = append(mismatches, m.String())
		c.mismatchesTotal.WithLabelValues(string(m.Kind)).Inc()
	}
	c.requestsTotal.WithLabelValues(e.Classification.String()).Inc()
	c.requestDuration.WithLabelValues(e.Classification.String()).Observe(e.Duration.Seconds())

	method, path := "", ""
	if e.Request != nil {
		method, path = e.Request.Method, e.Request.Path
	}
	c.RecordRequest(key, description, method, path, e.Duration, e.Classification, mismatches)
}

// RecordRequest records a request for statistics
func (c *Collector) RecordRequest(key, description, method, path string, duration time.Duration, class session.Classification, mismatches []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stat, ok := c.interactions[key]
	if !ok {
		stat = &models.AtomicInteractionStat{
			InteractionKey: key,
			Description:    description,
			Method:         method,
			Path:           path,
		}
		stat.MinTimeNs.Store(duration.Nanoseconds())
		c.interactions[key] = stat
	}

	stat.TotalRequests.Add(1)
	stat.TotalTimeNs.Add(duration.Nanoseconds())
	stat.LastRequestTime.Store(time.Now())

	durationNs := duration.Nanoseconds()
	for {
		currentMin := stat.MinTimeNs.Load()
		if durationNs >= currentMin || stat.MinTimeNs.CompareAndSwap(currentMin, durationNs) {
			break
		}
	}
	for {
		currentMax := stat.MaxTimeNs.Load()
		if durationNs <= currentMax || stat.MaxTimeNs.CompareAndSwap(currentMax, durationNs) {
			break
		}
	}

	c.classifications[class]++
	failed := class != session.FullMatch
	if failed {
		stat.TotalMismatches.Add(1)
		c.recentMismatches = append(c.recentMismatches, models.MismatchStat{
			Timestamp:      time.Now(),
			InteractionKey: key,
			Method:         method,
			Path:           path,
			Classification: class.String(),
			Mismatches:     mismatches,
		})
		if len(c.recentMismatches) > c.maxMismatches {
			c.recentMismatches = c.recentMismatches[1:]
		}
	}

	hourKey := time.Now().Format("2006-01-02-15")
	hourly, ok := c.hourlyStats[hourKey]
	if !ok {
		hourly = &hourlyCounter{Hour: hourKey}
		c.hourlyStats[hourKey] = hourly
		c.cleanupOldHourlyStats()
	}
	hourly.Requests++
	if failed {
		hourly.Mismatches++
	}
}

// cleanupOldHourlyStats removes hourly stats older than maxHourlySlots
func (c *Collector) cleanupOldHourlyStats() {
	if len(c.hourlyStats) <= c.maxHourlySlots {
		return
	}

	keys := make([]string, 0, len(c.hourlyStats))
	for k := range c.hourlyStats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	toRemove := len(keys) - c.maxHourlySlots
	for i := 0; i < toRemove; i++ {
		delete(c.hourlyStats, keys[i])
	}
}

// GetGlobalStats returns global statistics
func (c *Collector) GetGlobalStats(totalInteractions int) *models.GlobalStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var totalRequests, totalTimeNs int64

	stats := make([]models.InteractionStat, 0, len(c.interactions))
	for _, in := range c.interactions {
		stat := in.ToInteractionStat()
		stats = append(stats, stat)
		totalRequests += stat.TotalRequests
		totalTimeNs += in.TotalTimeNs.Load()
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalRequests != stats[j].TotalRequests {
			return stats[i].TotalRequests > stats[j].TotalRequests
		}
		return stats[i].InteractionKey < stats[j].InteractionKey
	})

	top := stats
	if len(top) > 10 {
		top = top[:10]
	}

	var avgResponseTimeMs float64
	if totalRequests > 0 {
		avgResponseTimeMs = float64(totalTimeNs) / float64(totalRequests) / 1e6
	}

	uptime := time.Since(c.startTime).Seconds()
	var requestsPerSecond float64
	if uptime > 0 {
		requestsPerSecond = float64(totalRequests) / uptime
	}

	return &models.GlobalStats{
		TotalRequests:     totalRequests,
		FullMatches:       c.classifications[session.FullMatch],
		PartialMatches:    c.classifications[session.PartialMatch],
		Unexpected:        c.classifications[session.NoMatch],
		Errors:            c.classifications[session.Failed],
		Interactions:      totalInteractions,
		AvgResponseTimeMs: avgResponseTimeMs,
		RequestsPerSecond: requestsPerSecond,
		StartTime:         c.startTime,
		Uptime:            formatDuration(time.Since(c.startTime)),
		TopInteractions:   top,
		RecentMismatches:  append([]models.MismatchStat(nil), c.recentMismatches...),
		RequestsByHour:    c.buildHourlyStats(),
	}
}

// GetInteractionStats returns statistics for one interaction
func (c *Collector) GetInteractionStats(key string) *models.InteractionStat {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if in, ok := c.interactions[key]; ok {
		stat := in.ToInteractionStat()
		return &stat
	}

	return nil
}

// buildHourlyStats returns the last 24 hours, oldest first
func (c *Collector) buildHourlyStats() []models.HourlyStat {
	now := time.Now()
	stats := make([]models.HourlyStat, 0, 24)

	for i := 23; i >= 0; i-- {
		hour := now.Add(-time.Duration(i) * time.Hour)
		stat := models.HourlyStat{Hour: hour.Format("15:00")}

		if hourly, ok := c.hourlyStats[hour.Format("2006-01-02-15")]; ok {
			stat.Requests = hourly.Requests
			stat.Mismatches = hourly.Mismatches
		}

		stats = append(stats, stat)
	}

	return stats
}

// Reset resets all statistics. Prometheus counters keep counting.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.startTime = time.Now()
	c.interactions = make(map[string]*models.AtomicInteractionStat)
	c.classifications = make(map[session.Classification]int64)
	c.recentMismatches = make([]models.MismatchStat, 0)
	c.hourlyStats = make(map[string]*hourlyCounter)
}

// formatDuration formats a duration in a human-readable format
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return d.Round(time.Minute).String()
	case d >= time.Minute:
		return d.Round(time.Second).String()
	}
	return d.Round(time.Millisecond).String()
}
