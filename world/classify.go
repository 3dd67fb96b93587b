package world

// LayerLandsAndSeas is the registered name of the classification layer that
// establishes the base land/water distribution.
const LayerLandsAndSeas = "lands_and_seas"

// AlgorithmRandomChunks draws every chunk independently against the land
// ratio. It is currently the only classification algorithm.
const AlgorithmRandomChunks = "random_chunks"

func init() {
	RegisterLayer(LayerLandsAndSeas, func(conf LayerConfig) (Layer, error) {
		return NewClassifyLayer(conf)
	})
}

// ClassifyLayer is the foundation layer of the pipeline. It produces exactly
// one chunk per position in the requested bounds, classified Land or Water by
// a deterministic per-position draw, and does not depend on any previously
// existing chunk data.
type ClassifyLayer struct {
	ratio     int
	algorithm string
	id        uint64
}

// NewClassifyLayer builds a classification layer from its configuration.
//
// Keys: land_ratio (1..10, default 4; 1 = 10% land, 10 = 100%) and algorithm
// (default "random_chunks"). An unrecognised algorithm is rejected here, not
// when bounds are processed.
func NewClassifyLayer(conf LayerConfig) (*ClassifyLayer, error) {
	ratio, err := conf.intVal(LayerLandsAndSeas, "land_ratio", 4)
	if err != nil {
		return nil, err
	}
	if ratio < 1 || ratio > 10 {
		return nil, &ConfigError{Layer: LayerLandsAndSeas, Param: "land_ratio", Value: ratio, Want: "1..10"}
	}
	algorithm, err := conf.stringVal(LayerLandsAndSeas, "algorithm", AlgorithmRandomChunks)
	if err != nil {
		return nil, err
	}
	if algorithm != AlgorithmRandomChunks {
		return nil, &ConfigError{Layer: LayerLandsAndSeas, Param: "algorithm", Value: algorithm, Want: `"` + AlgorithmRandomChunks + `"`}
	}
	return &ClassifyLayer{
		ratio:     ratio,
		algorithm: algorithm,
		id:        layerID(LayerLandsAndSeas),
	}, nil
}

// Name returns the registered layer name.
func (l *ClassifyLayer) Name() string {
	return LayerLandsAndSeas
}

// Process materialises one chunk per position in the bounds with a
// classification derived from an independent draw in [1,10]: Land if the draw
// does not exceed the configured ratio.
func (l *ClassifyLayer) Process(ctx *Context, b Bounds) (Bounds, error) {
	for x := b.MinX; x <= b.MaxX; x++ {
		for y := b.MinY; y <= b.MaxY; y++ {
			class := ClassWater
			r := stream(ctx.Seed, x, y, l.id, 0)
			if r.IntN(10)+1 <= l.ratio {
				class = ClassLand
			}
			ctx.SetChunk(&Chunk{
				Pos:   ChunkPos{X: x, Y: y},
				Size:  ctx.BaseSize,
				Class: class,
			})
		}
	}
	return b, nil
}

// Summary returns the effective configuration for diagnostics.
func (l *ClassifyLayer) Summary() map[string]any {
	return map[string]any{
		"land_ratio": l.ratio,
		"algorithm":  l.algorithm,
	}
}
