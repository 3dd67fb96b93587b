package world

import (
	"container/list"
	"fmt"
	"log/slog"
	"sync"
)

// RegionView is the read-only result of a region resolution: chunk value
// copies keyed by their position in the final coordinate space. Mutating a
// view never affects cached state.
type RegionView map[ChunkPos]Chunk

// CoordinatorConfig configures a cache Coordinator.
type CoordinatorConfig struct {
	// Log is the logger for cache events. Defaults to slog.Default().
	Log *slog.Logger
	// Seed is the world seed passed to every generation context.
	Seed int64
	// BaseChunkSize is the tile size of chunks before subdivision. Defaults
	// to 16.
	BaseChunkSize int
	// Pipeline generates regions on cache misses. Required.
	Pipeline *Pipeline
	// RegionSize is the side length in chunks of the cache granule. Chosen
	// larger than one chunk so neighbour lookups stay local within a cached
	// unit. Defaults to 4.
	RegionSize int
	// Capacity is the maximum number of cached regions before LRU eviction.
	// Defaults to 64. Ignored when Unbounded is set.
	Capacity int
	// Unbounded disables eviction entirely.
	Unbounded bool
	// Metrics, if set, records hits, misses and generated regions.
	Metrics *Metrics
}

func (c CoordinatorConfig) withDefaults() CoordinatorConfig {
	if c.Log == nil {
		c.Log = slog.Default()
	}
	if c.BaseChunkSize <= 0 {
		c.BaseChunkSize = 16
	}
	if c.RegionSize <= 0 {
		c.RegionSize = 4
	}
	if c.Capacity <= 0 && !c.Unbounded {
		c.Capacity = 64
	}
	return c
}

type regionEntry struct {
	key    Bounds
	chunks map[ChunkPos]*Chunk
	elem   *list.Element
}

type inflight struct {
	done   chan struct{}
	chunks map[ChunkPos]*Chunk
	err    error
}

// Coordinator normalises bounds requests to region-aligned bounds, memoises
// pipeline results per region and applies LRU eviction. It is the only shared
// mutable state of the generation system: concurrent resolutions of the same
// missing region are deduplicated so the pipeline runs at most once per key.
type Coordinator struct {
	conf CoordinatorConfig

	mu       sync.Mutex
	entries  map[Bounds]*regionEntry
	lru      *list.List // front is most recently used
	inflight map[Bounds]*inflight
}

// NewCoordinator builds a cache coordinator.
func NewCoordinator(conf CoordinatorConfig) (*Coordinator, error) {
	if conf.Pipeline == nil {
		return nil, &ConfigError{Layer: "cache", Param: "Pipeline", Value: nil, Want: "a pipeline"}
	}
	conf = conf.withDefaults()
	return &Coordinator{
		conf:     conf,
		entries:  make(map[Bounds]*regionEntry),
		lru:      list.New(),
		inflight: make(map[Bounds]*inflight),
	}, nil
}

// Normalize returns the smallest region-aligned bounds enclosing the request.
// Identical sub-bounds of one region share the same normalised key.
func (c *Coordinator) Normalize(b Bounds) Bounds {
	return b.AlignedTo(c.conf.RegionSize)
}

// Resolve returns the chunks of the region covering the requested bounds,
// generating them through the pipeline on a cache miss. The returned view
// covers at least the requested bounds (in final, possibly subdivided,
// coordinates) and is a read-only copy.
func (c *Coordinator) Resolve(b Bounds) (RegionView, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("invalid bounds %v", b)
	}
	key := c.Normalize(b)

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.lru.MoveToFront(e.elem)
		view := viewOf(e.chunks)
		c.mu.Unlock()
		c.conf.Metrics.IncCacheHit()
		return view, nil
	}
	if fl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-fl.done
		if fl.err != nil {
			return nil, fl.err
		}
		c.conf.Metrics.IncCacheHit()
		return viewOf(fl.chunks), nil
	}
	fl := &inflight{done: make(chan struct{})}
	c.inflight[key] = fl
	c.mu.Unlock()

	c.conf.Metrics.IncCacheMiss()
	chunks, err := c.generate(key)

	c.mu.Lock()
	delete(c.inflight, key)
	fl.chunks, fl.err = chunks, err
	if err == nil {
		err = c.storeLocked(key, chunks)
		if err != nil {
			fl.err = err
		}
	}
	c.mu.Unlock()
	close(fl.done)

	if err != nil {
		return nil, err
	}
	return viewOf(chunks), nil
}

// generate runs the pipeline over the normalised bounds with a fresh context.
// Nothing of a failed run is ever cached.
func (c *Coordinator) generate(key Bounds) (map[ChunkPos]*Chunk, error) {
	ctx := NewContext(c.conf.Seed, c.conf.BaseChunkSize)
	c.conf.Log.Debug("generating region", "run", ctx.RunID, "bounds", key.String())

	if _, err := c.conf.Pipeline.Process(ctx, key); err != nil {
		return nil, err
	}
	chunks := make(map[ChunkPos]*Chunk, ctx.ChunkCount())
	ctx.EachChunk(func(ch *Chunk) {
		chunks[ch.Pos] = ch
	})
	c.conf.Metrics.AddRegion(len(chunks))
	return chunks, nil
}

// storeLocked inserts the generated region and evicts least-recently-used
// entries beyond capacity. The entry just inserted is never evicted; if it
// alone exceeds the capacity a ResourceError is returned.
func (c *Coordinator) storeLocked(key Bounds, chunks map[ChunkPos]*Chunk) error {
	e := &regionEntry{key: key, chunks: chunks}
	e.elem = c.lru.PushFront(key)
	c.entries[key] = e

	if c.conf.Unbounded {
		return nil
	}
	for len(c.entries) > c.conf.Capacity {
		back := c.lru.Back()
		victim := back.Value.(Bounds)
		if victim == key {
			return &ResourceError{Capacity: c.conf.Capacity, Entries: len(c.entries)}
		}
		c.lru.Remove(back)
		delete(c.entries, victim)
		c.conf.Log.Debug("evicted region", "bounds", victim.String())
	}
	return nil
}

// Len returns the number of cached regions.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func viewOf(chunks map[ChunkPos]*Chunk) RegionView {
	view := make(RegionView, len(chunks))
	for pos, ch := range chunks {
		view[pos] = ch.copied()
	}
	return view
}
