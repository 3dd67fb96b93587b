package world

import (
	"errors"
	"testing"
)

// markerLayer stamps a property on every chunk in bounds, counting its runs.
type markerLayer struct {
	key   string
	value any
	runs  int
}

func (l *markerLayer) Name() string { return "marker_" + l.key }

func (l *markerLayer) Process(ctx *Context, b Bounds) (Bounds, error) {
	l.runs++
	ctx.EachChunk(func(ch *Chunk) {
		ch.SetProp(l.key, l.value)
	})
	return b, nil
}

func (l *markerLayer) Summary() map[string]any {
	return map[string]any{"key": l.key}
}

// failingLayer always fails processing.
type failingLayer struct{}

func (failingLayer) Name() string { return "failing" }

func (failingLayer) Process(ctx *Context, b Bounds) (Bounds, error) {
	return b, &ProcessError{Layer: "failing", Err: errors.New("boom")}
}

func (failingLayer) Summary() map[string]any { return nil }

func TestPipelineRunsLayersInOrder(t *testing.T) {
	classify, err := NewClassifyLayer(nil)
	if err != nil {
		t.Fatalf("construct layer: %v", err)
	}
	marker := &markerLayer{key: "height", value: 3}
	p := NewPipeline(PipelineConfig{Layers: []Layer{classify, marker}})

	ctx := NewContext(1, 16)
	if _, err := p.Process(ctx, Bounds{0, 0, 1, 1}); err != nil {
		t.Fatalf("process: %v", err)
	}
	want := []string{LayerLandsAndSeas, "marker_height"}
	got := ctx.ProcessedLayers()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("processed trail %v, want %v", got, want)
	}
	if !ctx.Processed(LayerLandsAndSeas) {
		t.Fatal("Processed does not report the classification layer")
	}
}

func TestPipelinePropertyPreservation(t *testing.T) {
	classify, err := NewClassifyLayer(LayerConfig{"land_ratio": 8})
	if err != nil {
		t.Fatalf("construct layer: %v", err)
	}
	marker := &markerLayer{key: "height", value: 7}
	islands, err := NewIslandsLayer(nil)
	if err != nil {
		t.Fatalf("construct layer: %v", err)
	}
	p := NewPipeline(PipelineConfig{Layers: []Layer{classify, marker, islands}})

	ctx := NewContext(21, 16)
	if _, err := p.Process(ctx, Bounds{0, 0, 3, 3}); err != nil {
		t.Fatalf("process: %v", err)
	}
	ctx.EachChunk(func(ch *Chunk) {
		if v, ok := ch.Prop("height"); !ok || v != 7 {
			t.Errorf("chunk %v lost property set by earlier layer: %v (%v)", ch.Pos, v, ok)
		}
	})
}

func TestPipelineAbortsOnFailure(t *testing.T) {
	classify, err := NewClassifyLayer(nil)
	if err != nil {
		t.Fatalf("construct layer: %v", err)
	}
	marker := &markerLayer{key: "unreached"}
	p := NewPipeline(PipelineConfig{Layers: []Layer{classify, failingLayer{}, marker}})

	ctx := NewContext(1, 16)
	_, err = p.Process(ctx, Bounds{0, 0, 0, 0})
	var procErr *ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("got %v, want a wrapped ProcessError", err)
	}
	if marker.runs != 0 {
		t.Fatal("layer after the failure still ran")
	}
	if ctx.Processed("failing") {
		t.Fatal("failed layer marked as processed")
	}
}

func TestPipelineNoLayers(t *testing.T) {
	p := NewPipeline(PipelineConfig{})
	if _, err := p.Process(NewContext(1, 16), Bounds{0, 0, 0, 0}); !errors.Is(err, ErrNoLayers) {
		t.Fatalf("got %v, want ErrNoLayers", err)
	}
}

func TestPipelineObserver(t *testing.T) {
	classify, err := NewClassifyLayer(nil)
	if err != nil {
		t.Fatalf("construct layer: %v", err)
	}
	var seen []string
	p := NewPipeline(PipelineConfig{
		Layers: []Layer{classify, &markerLayer{key: "k"}},
		Observer: func(layer string, ctx *Context, b Bounds) {
			seen = append(seen, layer)
		},
	})
	if _, err := p.Process(NewContext(1, 16), Bounds{0, 0, 0, 0}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(seen) != 2 || seen[0] != LayerLandsAndSeas || seen[1] != "marker_k" {
		t.Fatalf("observer saw %v", seen)
	}
}

func TestPipelineInfo(t *testing.T) {
	p, err := NewPipelineFromSpecs(PipelineConfig{}, []LayerSpec{
		{Name: LayerLandsAndSeas, Config: LayerConfig{"land_ratio": 3}},
		{Name: LayerZoom, Config: LayerConfig{"subdivision_factor": 4}},
	})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}
	info := p.Info()
	if len(info.Layers) != 2 {
		t.Fatalf("info has %d layers, want 2", len(info.Layers))
	}
	if info.Layers[0].Name != LayerLandsAndSeas || info.Layers[0].Config["land_ratio"] != 3 {
		t.Fatalf("classification summary = %+v", info.Layers[0])
	}
	if info.Layers[1].Config["subdivision_factor"] != 4 {
		t.Fatalf("zoom summary = %+v", info.Layers[1])
	}
	if p.SubdivisionScale() != 4 {
		t.Fatalf("subdivision scale %d, want 4", p.SubdivisionScale())
	}
	if p.FinalChunkSize(16) != 4 {
		t.Fatalf("final chunk size %d, want 4", p.FinalChunkSize(16))
	}
}

func TestPipelineFromSpecsBadConfig(t *testing.T) {
	_, err := NewPipelineFromSpecs(PipelineConfig{}, []LayerSpec{
		{Name: LayerLandsAndSeas, Config: LayerConfig{"land_ratio": 99}},
	})
	var confErr *ConfigError
	if !errors.As(err, &confErr) {
		t.Fatalf("got %v, want a ConfigError", err)
	}
}
