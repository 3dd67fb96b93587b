package world

import (
	"fmt"
	"maps"
)

// Class is the land classification of a chunk.
type Class uint8

const (
	// ClassWater marks a chunk as open water.
	ClassWater Class = iota
	// ClassLand marks a chunk as land.
	ClassLand
)

// String returns the lower-case name of the classification.
func (c Class) String() string {
	if c == ClassLand {
		return "land"
	}
	return "water"
}

// ChunkPos is the position of a chunk in chunk coordinates. Chunk coordinates
// may be negative: the grid is unbounded in all directions.
type ChunkPos struct {
	X, Y int
}

// String implements fmt.Stringer.
func (p ChunkPos) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// pack folds a chunk position into a single int64 so positions can be used as
// keys of flat integer maps. The low/high 32 bits hold Y and X respectively,
// which keeps negative coordinates distinct.
func (p ChunkPos) pack() int64 {
	return int64(uint64(uint32(p.X))<<32 | uint64(uint32(p.Y)))
}

// Chunk is a fixed-size square cell of the world, the atomic unit of
// generation. Once any layer has written a chunk, its Size and Class are
// always set. Parent and Depth are lineage fields filled in only after a
// refinement layer subdivided the chunk out of a coarser one.
type Chunk struct {
	Pos ChunkPos
	// Size is the number of tiles per side covered by this chunk.
	Size int
	// Class is the land classification of the chunk.
	Class Class
	// Parent is the position of the chunk this one was subdivided from.
	// Only meaningful if Depth > 0.
	Parent ChunkPos
	// Depth is the number of subdivisions applied to reach this chunk.
	// Zero for chunks produced directly by a classification layer.
	Depth int
	// Props holds additional properties contributed by layers. A layer must
	// leave keys it does not explicitly update untouched.
	Props map[string]any
}

// Subdivided reports whether any refinement layer has touched the chunk.
func (c *Chunk) Subdivided() bool {
	return c.Depth > 0
}

// SetProp stores a layer-contributed property on the chunk.
func (c *Chunk) SetProp(key string, value any) {
	if c.Props == nil {
		c.Props = make(map[string]any, 4)
	}
	c.Props[key] = value
}

// Prop returns a layer-contributed property of the chunk.
func (c *Chunk) Prop(key string) (any, bool) {
	v, ok := c.Props[key]
	return v, ok
}

// copied returns a value copy of the chunk with its property map cloned, so
// that callers holding the copy cannot mutate cached state.
func (c *Chunk) copied() Chunk {
	cp := *c
	cp.Props = maps.Clone(c.Props)
	return cp
}

// Tile describes a single world tile as returned by tile queries.
type Tile struct {
	// X and Y are the absolute tile coordinates the query was made for.
	X, Y int
	// ChunkPos is the position of the owning chunk in the final, possibly
	// subdivided chunk coordinate space.
	ChunkPos ChunkPos
	// ChunkSize is the side length of the owning chunk in tiles.
	ChunkSize int
	// Class is the land classification of the owning chunk.
	Class Class
	// Parent and Depth mirror the owning chunk's lineage fields.
	Parent ChunkPos
	Depth  int
	// Props is a copy of the owning chunk's layer-contributed properties.
	Props map[string]any
}
