// Package metrics tracks in-process request counters and latency samples,
// exposed by the health endpoint. It holds no external reporting
// dependency; everything lives for the life of the process.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// SlowRequestCallback is invoked, outside any lock, whenever a request's
// latency meets or exceeds the configured slow-request threshold.
type SlowRequestCallback func(route string, latency time.Duration, timestamp time.Time)

const maxSamplesPerRoute = 1000

// Metrics accumulates per-route request counts, error counts, and bounded
// latency samples for the life of the process.
type Metrics struct {
	mu sync.RWMutex

	counts  map[string]int64
	errors  map[string]int64
	samples map[string][]time.Duration

	slowThreshold time.Duration
	slowCallback  SlowRequestCallback
	slowCounts    map[string]int64

	startTime time.Time
}

// New returns an empty Metrics collector with slow-request detection
// disabled until SetSlowThreshold is called with a positive duration.
func New() *Metrics {
	return &Metrics{
		counts:    make(map[string]int64),
		errors:    make(map[string]int64),
		samples:   make(map[string][]time.Duration),
		slowCounts: make(map[string]int64),
		startTime: time.Now(),
	}
}

// SetSlowThreshold sets the latency at or above which a request is counted
// as slow and reported via the callback. A zero threshold disables the
// check.
func (m *Metrics) SetSlowThreshold(threshold time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slowThreshold = threshold
}

// SetSlowCallback registers the function invoked for each slow request.
func (m *Metrics) SetSlowCallback(cb SlowRequestCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slowCallback = cb
}

// RecordRequest records one completed request against route, with ok
// indicating whether it succeeded (status < 500).
func (m *Metrics) RecordRequest(route string, latency time.Duration, ok bool) {
	now := time.Now()
	var callback SlowRequestCallback
	var slow bool

	m.mu.Lock()
	m.counts[route]++
	if !ok {
		m.errors[route]++
	}

	samples := m.samples[route]
	if len(samples) >= maxSamplesPerRoute {
		samples = samples[1:]
	}
	m.samples[route] = append(samples, latency)

	if m.slowThreshold > 0 && latency >= m.slowThreshold {
		slow = true
		m.slowCounts[route]++
		callback = m.slowCallback
	}
	m.mu.Unlock()

	if slow && callback != nil {
		callback(route, latency, now)
	}
}

// RouteStats summarizes one route's request volume, error rate, and
// latency distribution.
type RouteStats struct {
	Route        string       `json:"route"`
	TotalCount   int64        `json:"total_count"`
	ErrorCount   int64        `json:"error_count"`
	SlowCount    int64        `json:"slow_count"`
	Latency      LatencyStats `json:"latency"`
}

// LatencyStats reports percentile latencies, in milliseconds, over a
// route's bounded sample window.
type LatencyStats struct {
	MinMS float64 `json:"min_ms"`
	P50MS float64 `json:"p50_ms"`
	P95MS float64 `json:"p95_ms"`
	P99MS float64 `json:"p99_ms"`
	MaxMS float64 `json:"max_ms"`
	AvgMS float64 `json:"avg_ms"`
}

// Snapshot is a point-in-time view of every route's accumulated metrics.
type Snapshot struct {
	UptimeSeconds float64      `json:"uptime_seconds"`
	Routes        []RouteStats `json:"routes"`
}

// Snapshot computes a consistent point-in-time view of all recorded
// metrics. Percentile computation happens outside the lock.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	routeSet := make(map[string]struct{}, len(m.counts))
	for route := range m.counts {
		routeSet[route] = struct{}{}
	}

	counts := make(map[string]int64, len(routeSet))
	errs := make(map[string]int64, len(routeSet))
	slow := make(map[string]int64, len(routeSet))
	samples := make(map[string][]time.Duration, len(routeSet))
	for route := range routeSet {
		counts[route] = m.counts[route]
		errs[route] = m.errors[route]
		slow[route] = m.slowCounts[route]
		samples[route] = append([]time.Duration(nil), m.samples[route]...)
	}
	m.mu.RUnlock()

	routes := make([]RouteStats, 0, len(routeSet))
	for route := range routeSet {
		routes = append(routes, RouteStats{
			Route:      route,
			TotalCount: counts[route],
			ErrorCount: errs[route],
			SlowCount:  slow[route],
			Latency:    latencyStats(samples[route]),
		})
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].TotalCount > routes[j].TotalCount })

	return Snapshot{
		UptimeSeconds: time.Since(m.startTime).Seconds(),
		Routes:        routes,
	}
}

func latencyStats(samples []time.Duration) LatencyStats {
	if len(samples) == 0 {
		return LatencyStats{}
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	p50 := sorted[minInt(n-1, n*50/100)]
	p95 := sorted[minInt(n-1, n*95/100)]
	p99 := sorted[minInt(n-1, n*99/100)]

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	avg := sum / time.Duration(n)

	toMS := func(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

	return LatencyStats{
		MinMS: toMS(sorted[0]),
		P50MS: toMS(p50),
		P95MS: toMS(p95),
		P99MS: toMS(p99),
		MaxMS: toMS(sorted[n-1]),
		AvgMS: toMS(avg),
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
