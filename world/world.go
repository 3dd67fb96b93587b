package world

import (
	"fmt"
	"log/slog"
)

// Config contains options for assembling a terrain generation World.
type Config struct {
	// Log is the Logger used for debug logging of generation runs and cache
	// events. Defaults to slog.Default().
	Log *slog.Logger
	// Seed is the world seed. The entire world is a pure function of the
	// seed and the layer configuration: no state is persisted.
	Seed int64
	// ChunkSize is the tile size of chunks produced by the classification
	// layer. Defaults to 16.
	ChunkSize int
	// RegionSize is the cache granularity in chunks per side. Defaults to 4.
	RegionSize int
	// CacheCapacity is the maximum number of cached regions. Defaults to 64.
	CacheCapacity int
	// CacheUnbounded disables cache eviction.
	CacheUnbounded bool
	// Layers is the ordered pipeline description. Required.
	Layers []LayerSpec
	// Observer, if set, is invoked after each pipeline layer completes. It
	// must be read-only.
	Observer Observer
}

// New validates the configuration, constructs every layer and assembles the
// world. Configuration errors surface here, before any bounds are processed.
func (conf Config) New() (*World, error) {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	if conf.ChunkSize == 0 {
		conf.ChunkSize = 16
	}
	if conf.ChunkSize < 1 {
		return nil, &ConfigError{Layer: "world", Param: "ChunkSize", Value: conf.ChunkSize, Want: ">= 1"}
	}
	if len(conf.Layers) == 0 {
		return nil, ErrNoLayers
	}

	metrics := NewMetrics()
	pipeline, err := NewPipelineFromSpecs(PipelineConfig{
		Log:      conf.Log,
		Observer: conf.Observer,
		Metrics:  metrics,
	}, conf.Layers)
	if err != nil {
		return nil, err
	}
	coord, err := NewCoordinator(CoordinatorConfig{
		Log:           conf.Log,
		Seed:          conf.Seed,
		BaseChunkSize: conf.ChunkSize,
		Pipeline:      pipeline,
		RegionSize:    conf.RegionSize,
		Capacity:      conf.CacheCapacity,
		Unbounded:     conf.CacheUnbounded,
		Metrics:       metrics,
	})
	if err != nil {
		return nil, err
	}
	return &World{
		log:       conf.Log,
		pipeline:  pipeline,
		coord:     coord,
		metrics:   metrics,
		baseSize:  conf.ChunkSize,
		scale:     pipeline.SubdivisionScale(),
		finalSize: pipeline.FinalChunkSize(conf.ChunkSize),
	}, nil
}

// World is the tile/chunk query surface over the generation pipeline and its
// region cache. It is safe for concurrent use: resolutions of independent
// regions run in parallel and duplicate requests for one region share a
// single pipeline run.
type World struct {
	log      *slog.Logger
	pipeline *Pipeline
	coord    *Coordinator
	metrics  *Metrics

	baseSize  int
	scale     int
	finalSize int
}

// TileAt returns the properties of the tile at absolute tile coordinates,
// generating the owning region on demand. The chunk owning a tile is found by
// floor division, so negative coordinates map correctly: with chunk size 16,
// tile -1 belongs to chunk -1, tile -17 to chunk -2.
func (w *World) TileAt(x, y int) (Tile, error) {
	base := ChunkPos{X: floorDiv(x, w.baseSize), Y: floorDiv(y, w.baseSize)}
	view, err := w.coord.Resolve(BoundsOf(base))
	if err != nil {
		return Tile{}, err
	}
	pos := ChunkPos{X: floorDiv(x, w.finalSize), Y: floorDiv(y, w.finalSize)}
	ch, ok := view[pos]
	if !ok {
		return Tile{}, fmt.Errorf("tile (%d, %d): chunk %v: %w", x, y, pos, ErrChunkMissing)
	}
	return Tile{
		X:         x,
		Y:         y,
		ChunkPos:  pos,
		ChunkSize: ch.Size,
		Class:     ch.Class,
		Parent:    ch.Parent,
		Depth:     ch.Depth,
		Props:     ch.Props,
	}, nil
}

// Region resolves the chunks covering the bounds, given in base chunk
// coordinates, through the cache. The returned view is keyed by final chunk
// coordinates and covers at least the requested area.
func (w *World) Region(b Bounds) (RegionView, error) {
	return w.coord.Resolve(b)
}

// ChunkSize returns the base chunk size in tiles.
func (w *World) ChunkSize() int {
	return w.baseSize
}

// FinalChunkSize returns the chunk size in tiles after all subdivisions.
func (w *World) FinalChunkSize() int {
	return w.finalSize
}

// SubdivisionScale returns the ratio between final and base chunk
// coordinates.
func (w *World) SubdivisionScale() int {
	return w.scale
}

// PipelineInfo returns the ordered layer names and per-layer configuration
// summaries.
func (w *World) PipelineInfo() PipelineInfo {
	return w.pipeline.Info()
}

// Stats returns a snapshot of the generation metrics.
func (w *World) Stats() Stats {
	return w.metrics.Snapshot()
}
