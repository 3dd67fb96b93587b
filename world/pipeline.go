package world

import (
	"fmt"
	"log/slog"
	"time"
)

// Observer is the optional hook invoked after each layer of a pipeline
// completes. Observers are strictly read-only diagnostics: they must not
// mutate the context and must not consume any deterministic random stream, or
// determinism breaks.
type Observer func(layer string, ctx *Context, b Bounds)

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// Log is the logger used for per-run debug logging. Defaults to
	// slog.Default().
	Log *slog.Logger
	// Layers is the ordered list of transform stages.
	Layers []Layer
	// Observer, if set, is invoked after each layer completes.
	Observer Observer
	// Metrics, if set, records per-layer processing durations.
	Metrics *Metrics
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	if c.Log == nil {
		c.Log = slog.Default()
	}
	return c
}

// Pipeline is an ordered composition of generation layers run sequentially
// over one bounds request.
type Pipeline struct {
	log      *slog.Logger
	layers   []Layer
	observer Observer
	metrics  *Metrics
}

// NewPipeline builds a pipeline from the configuration.
func NewPipeline(conf PipelineConfig) *Pipeline {
	conf = conf.withDefaults()
	return &Pipeline{
		log:      conf.Log,
		layers:   conf.Layers,
		observer: conf.Observer,
		metrics:  conf.Metrics,
	}
}

// NewPipelineFromSpecs constructs every layer named by the ordered specs and
// builds a pipeline from them. Construction stops at the first configuration
// error.
func NewPipelineFromSpecs(conf PipelineConfig, specs []LayerSpec) (*Pipeline, error) {
	layers := make([]Layer, 0, len(specs))
	for _, spec := range specs {
		l, err := NewLayer(spec.Name, spec.Config)
		if err != nil {
			return nil, err
		}
		layers = append(layers, l)
	}
	conf.Layers = layers
	return NewPipeline(conf), nil
}

// Process runs every layer in order over the context, passing each layer's
// output bounds to the next. The first failure aborts the run; no partial
// result is returned or cached.
func (p *Pipeline) Process(ctx *Context, b Bounds) (Bounds, error) {
	if len(p.layers) == 0 {
		return b, ErrNoLayers
	}
	if !b.Valid() {
		return b, fmt.Errorf("invalid bounds %v", b)
	}
	for _, l := range p.layers {
		start := time.Now()
		next, err := l.Process(ctx, b)
		if err != nil {
			return b, fmt.Errorf("process layer %q: %w", l.Name(), err)
		}
		ctx.markProcessed(l.Name())
		p.metrics.AddLayerDuration(l.Name(), time.Since(start))
		p.log.Debug("layer processed", "run", ctx.RunID, "layer", l.Name(), "bounds", next.String(), "chunks", ctx.ChunkCount())
		if p.observer != nil {
			p.observer(l.Name(), ctx, next)
		}
		b = next
	}
	return b, nil
}

// SubdivisionScale returns the product of the subdivision factors of all
// refinement layers: the ratio between final and base chunk coordinates.
func (p *Pipeline) SubdivisionScale() int {
	scale := 1
	for _, l := range p.layers {
		if r, ok := l.(interface{ Factor() int }); ok {
			scale *= r.Factor()
		}
	}
	return scale
}

// FinalChunkSize returns the tile size of chunks after all subdivisions of a
// base chunk of the given size. Subdivision never shrinks a chunk below one
// tile.
func (p *Pipeline) FinalChunkSize(baseSize int) int {
	size := baseSize
	for _, l := range p.layers {
		if r, ok := l.(interface{ Factor() int }); ok {
			size = max(1, size/r.Factor())
		}
	}
	return size
}

// LayerInfo describes one layer of a pipeline.
type LayerInfo struct {
	Name   string
	Config map[string]any
}

// PipelineInfo is the diagnostics summary of a pipeline.
type PipelineInfo struct {
	Layers []LayerInfo
}

// Info returns the ordered layer names with their effective configuration.
func (p *Pipeline) Info() PipelineInfo {
	info := PipelineInfo{Layers: make([]LayerInfo, 0, len(p.layers))}
	for _, l := range p.layers {
		info.Layers = append(info.Layers, LayerInfo{Name: l.Name(), Config: l.Summary()})
	}
	return info
}
