package world

import (
	"slices"

	"github.com/google/uuid"
)

// Context carries the state of one pipeline invocation. It owns the sparse
// chunk store for the run, records which layers have processed it and offers
// a per-layer scratch area for intermediate state that does not belong on
// individual chunks. A context is created fresh on every cache miss and is
// never shared between in-flight runs.
type Context struct {
	// RunID identifies this generation run in logs and diagnostics.
	RunID uuid.UUID
	// Seed is the world seed all deterministic draws derive from.
	Seed int64
	// BaseSize is the side length in tiles of chunks produced by the
	// classification layer, before any subdivision.
	BaseSize int

	chunks    map[ChunkPos]*Chunk
	processed []string
	scratch   map[string]map[string]any
}

// NewContext creates an empty generation context for the given world seed and
// base chunk size.
func NewContext(seed int64, baseSize int) *Context {
	return &Context{
		RunID:    uuid.New(),
		Seed:     seed,
		BaseSize: baseSize,
		chunks:   make(map[ChunkPos]*Chunk, 64),
		scratch:  make(map[string]map[string]any),
	}
}

// Chunk returns the chunk stored at the position, if any.
func (c *Context) Chunk(pos ChunkPos) (*Chunk, bool) {
	ch, ok := c.chunks[pos]
	return ch, ok
}

// SetChunk stores a chunk in the context, replacing any chunk at its position.
func (c *Context) SetChunk(ch *Chunk) {
	c.chunks[ch.Pos] = ch
}

// ChunkCount returns the number of chunks currently stored.
func (c *Context) ChunkCount() int {
	return len(c.chunks)
}

// EachChunk calls fn for every stored chunk. Iteration order is unspecified.
func (c *Context) EachChunk(fn func(ch *Chunk)) {
	for _, ch := range c.chunks {
		fn(ch)
	}
}

// replaceChunks swaps the entire chunk store. Used by refinement layers that
// re-materialise the grid in a subdivided coordinate space.
func (c *Context) replaceChunks(chunks map[ChunkPos]*Chunk) {
	c.chunks = chunks
}

// coverage returns the bounds spanned by all stored chunks. The second return
// value is false if the store is empty.
func (c *Context) coverage() (Bounds, bool) {
	if len(c.chunks) == 0 {
		return Bounds{}, false
	}
	first := true
	var b Bounds
	for pos := range c.chunks {
		if first {
			b = BoundsOf(pos)
			first = false
			continue
		}
		b.MinX = min(b.MinX, pos.X)
		b.MinY = min(b.MinY, pos.Y)
		b.MaxX = max(b.MaxX, pos.X)
		b.MaxY = max(b.MaxY, pos.Y)
	}
	return b, true
}

// markProcessed appends the layer name to the processed-layer trail. The
// trail is append-only and keeps first occurrences only.
func (c *Context) markProcessed(name string) {
	if !slices.Contains(c.processed, name) {
		c.processed = append(c.processed, name)
	}
}

// Processed reports whether the named layer has already run on this context.
func (c *Context) Processed(name string) bool {
	return slices.Contains(c.processed, name)
}

// ProcessedLayers returns the ordered names of the layers that have processed
// this context.
func (c *Context) ProcessedLayers() []string {
	return slices.Clone(c.processed)
}

// Scratch returns the scratch area of the named layer, creating it on first
// use. Layers use it for multi-scale sampling state and processing statistics
// that should not live on individual chunks.
func (c *Context) Scratch(layer string) map[string]any {
	s, ok := c.scratch[layer]
	if !ok {
		s = make(map[string]any)
		c.scratch[layer] = s
	}
	return s
}
