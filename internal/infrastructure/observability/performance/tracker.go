package performance

import (
	"sort"
	"sync"
	"time"
)

// Tracker hands out markers and folds completed ones into per-operation
// stats. Only the most recent markers are retained.
type Tracker struct {
	stats   map[string]*OperationStats
	recent  []*Marker
	mu      sync.RWMutex
	started time.Time
	config  *TrackerConfig
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxRecent     int           `json:"maxRecent"`     // Completed markers kept for inspection
	SlowThreshold time.Duration `json:"slowThreshold"` // Operations slower than this count as slow
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxRecent:     100,
		SlowThreshold: 500 * time.Millisecond,
	}
}

// Summary is the tracker's report.
type Summary struct {
	Uptime     time.Duration    `json:"uptime"`
	Operations []OperationStats `json:"operations"`
	Recent     []Marker         `json:"recent"`
}

// NewTracker creates a new performance tracker with the given configuration
func NewTracker(config *TrackerConfig) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	return &Tracker{
		stats:   make(map[string]*OperationStats),
		recent:  make([]*Marker, 0, config.MaxRecent),
		started: time.Now(),
		config:  config,
	}
}

// StartOperation creates a marker for an operation. Finish it with
// CompleteOperation.
func (t *Tracker) StartOperation(operation string) *Marker {
	return &Marker{
		Operation: operation,
		StartTime: time.Now(),
		Success:   true, // Assume success until proven otherwise
	}
}

// CompleteOperation completes the marker and records it. Completing a
// marker twice records it once.
func (t *Tracker) CompleteOperation(marker *Marker) {
	if marker == nil || marker.Completed {
		return
	}
	marker.Complete()

	t.mu.Lock()
	defer t.mu.Unlock()

	stats, ok := t.stats[marker.Operation]
	if !ok {
		stats = &OperationStats{Operation: marker.Operation}
		t.stats[marker.Operation] = stats
	}
	stats.add(marker, t.config.SlowThreshold)

	if t.config.MaxRecent <= 0 {
		return
	}
	if len(t.recent) >= t.config.MaxRecent {
		t.recent = t.recent[1:]
	}
	t.recent = append(t.recent, marker)
}

// Stats returns the aggregate for one operation.
func (t *Tracker) Stats(operation string) (OperationStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	stats, ok := t.stats[operation]
	if !ok {
		return OperationStats{}, false
	}
	return *stats, true
}

// Summary returns every operation's stats, slowest average first, and the
// recent markers, newest first.
func (t *Tracker) Summary() Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ops := make([]OperationStats, 0, len(t.stats))
	for _, s := range t.stats {
		ops = append(ops, *s)
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Average != ops[j].Average {
			return ops[i].Average > ops[j].Average
		}
		return ops[i].Operation < ops[j].Operation
	})

	recent := make([]Marker, len(t.recent))
	for i, m := range t.recent {
		recent[len(t.recent)-1-i] = *m
	}
	return Summary{Uptime: time.Since(t.started), Operations: ops, Recent: recent}
}

// Reset drops all recorded data.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = make(map[string]*OperationStats)
	t.recent = t.recent[:0]
	t.started = time.Now()
}
