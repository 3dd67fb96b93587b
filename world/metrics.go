package world

import (
	"maps"
	"sync"
	"time"
)

// Metrics tracks generation counters for observability. All methods are
// nil-safe so wiring metrics stays optional.
type Metrics struct {
	mu sync.Mutex

	cacheHits        uint64
	cacheMisses      uint64
	regionsGenerated uint64
	chunksProduced   uint64
	layerDurations   map[string]time.Duration
}

// NewMetrics creates an empty metrics registry.
func NewMetrics() *Metrics {
	return &Metrics{layerDurations: make(map[string]time.Duration)}
}

// IncCacheHit increments the region cache hit counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.cacheHits++
	m.mu.Unlock()
}

// IncCacheMiss increments the region cache miss counter.
func (m *Metrics) IncCacheMiss() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.cacheMisses++
	m.mu.Unlock()
}

// AddRegion records a completed region generation and the number of chunks it
// produced.
func (m *Metrics) AddRegion(chunks int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.regionsGenerated++
	m.chunksProduced += uint64(chunks)
	m.mu.Unlock()
}

// AddLayerDuration accumulates processing time for a layer.
func (m *Metrics) AddLayerDuration(layer string, d time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.layerDurations[layer] += d
	m.mu.Unlock()
}

// Stats is a point-in-time snapshot of generation metrics.
type Stats struct {
	CacheHits        uint64
	CacheMisses      uint64
	RegionsGenerated uint64
	ChunksProduced   uint64
	LayerDurations   map[string]time.Duration
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() Stats {
	if m == nil {
		return Stats{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		CacheHits:        m.cacheHits,
		CacheMisses:      m.cacheMisses,
		RegionsGenerated: m.regionsGenerated,
		ChunksProduced:   m.chunksProduced,
		LayerDurations:   maps.Clone(m.layerDurations),
	}
}
