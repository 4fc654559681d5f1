// Package stores provides concrete cache store implementations
package stores

import (
	"sort"
	"sync"
	"time"

	"github.com/AtRiskMedia/atomic-builder-go/internal/domain/geometry"
	"github.com/AtRiskMedia/atomic-builder-go/internal/infrastructure/observability/logging"
)

// RenderSignature identifies the pixels a cached crop was taken from: the
// source image, a digest of its data and the region's box in image space.
// Any change to these, including a move of an ancestor region or a resave of
// the image, produces a different signature.
type RenderSignature struct {
	ImageID int          `json:"imageId"`
	Source  string       `json:"source"`
	Box     geometry.Box `json:"box"`
}

// RenderEntry is one cached crop.
type RenderEntry struct {
	RegionID  int             `json:"regionId"`
	Signature RenderSignature `json:"signature"`
	Data      string          `json:"-"`
	Bytes     int             `json:"bytes"`
	CachedAt  time.Time       `json:"cachedAt"`
}

// RenderStats summarises the store's contents.
type RenderStats struct {
	Entries int   `json:"entries"`
	Bytes   int   `json:"bytes"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// RenderStore caches region bitmaps keyed by region id. A lookup only hits
// when the stored signature equals the one asked for.
type RenderStore struct {
	entries map[int]*RenderEntry
	hits    int64
	misses  int64
	mu      sync.RWMutex
	logger  *logging.ChanneledLogger
}

// NewRenderStore creates an empty render cache
func NewRenderStore(logger *logging.ChanneledLogger) *RenderStore {
	if logger != nil {
		logger.Cache().Info("Initializing render cache store")
	}
	return &RenderStore{
		entries: make(map[int]*RenderEntry),
		logger:  logger,
	}
}

// Get returns the cached bitmap for a region if it was cropped from the
// same image content and box.
func (rs *RenderStore) Get(regionID int, sig RenderSignature) (string, bool) {
	start := time.Now()
	rs.mu.Lock()
	entry, exists := rs.entries[regionID]
	hit := exists && entry.Signature == sig
	if hit {
		rs.hits++
	} else {
		rs.misses++
	}
	rs.mu.Unlock()

	if rs.logger != nil {
		rs.logger.LogCacheOperation("get", regionID, hit, time.Since(start))
	}
	if !hit {
		return "", false
	}
	return entry.Data, true
}

// Set stores a bitmap for a region, replacing any previous entry.
func (rs *RenderStore) Set(regionID int, sig RenderSignature, data string) {
	rs.mu.Lock()
	rs.entries[regionID] = &RenderEntry{
		RegionID:  regionID,
		Signature: sig,
		Data:      data,
		Bytes:     len(data),
		CachedAt:  time.Now().UTC(),
	}
	rs.mu.Unlock()

	if rs.logger != nil {
		rs.logger.Cache().Debug("Cache operation", "operation", "set", "regionId", regionID, "bytes", len(data))
	}
}

// Invalidate drops the entry for a region. It reports whether one existed.
func (rs *RenderStore) Invalidate(regionID int) bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	_, exists := rs.entries[regionID]
	delete(rs.entries, regionID)
	return exists
}

// Prune drops every entry for which keep returns false and returns the
// number of entries removed.
func (rs *RenderStore) Prune(keep func(regionID int, sig RenderSignature) bool) int {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	removed := 0
	for id, entry := range rs.entries {
		if !keep(id, entry.Signature) {
			delete(rs.entries, id)
			removed++
		}
	}
	return removed
}

// Clear empties the cache.
func (rs *RenderStore) Clear() {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.entries = make(map[int]*RenderEntry)
}

// Len returns the number of cached entries.
func (rs *RenderStore) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.entries)
}

// Entries lists cached entries ordered by region id, without bitmap data.
func (rs *RenderStore) Entries() []RenderEntry {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]RenderEntry, 0, len(rs.entries))
	for _, entry := range rs.entries {
		e := *entry
		e.Data = ""
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegionID < out[j].RegionID })
	return out
}

// Stats returns entry counts and hit ratios.
func (rs *RenderStore) Stats() RenderStats {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	stats := RenderStats{Entries: len(rs.entries), Hits: rs.hits, Misses: rs.misses}
	for _, entry := range rs.entries {
		stats.Bytes += entry.Bytes
	}
	return stats
}
