package world

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// countingLayer materialises land chunks for the bounds and counts pipeline
// executions, optionally stalling to widen race windows.
type countingLayer struct {
	runs  atomic.Int32
	delay time.Duration
}

func (l *countingLayer) Name() string { return "counting" }

func (l *countingLayer) Process(ctx *Context, b Bounds) (Bounds, error) {
	l.runs.Add(1)
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	for x := b.MinX; x <= b.MaxX; x++ {
		for y := b.MinY; y <= b.MaxY; y++ {
			ctx.SetChunk(&Chunk{Pos: ChunkPos{X: x, Y: y}, Size: ctx.BaseSize, Class: ClassLand})
		}
	}
	return b, nil
}

func (l *countingLayer) Summary() map[string]any { return nil }

func newTestCoordinator(t *testing.T, layer Layer, conf CoordinatorConfig) *Coordinator {
	t.Helper()
	conf.Pipeline = NewPipeline(PipelineConfig{Layers: []Layer{layer}})
	c, err := NewCoordinator(conf)
	if err != nil {
		t.Fatalf("build coordinator: %v", err)
	}
	return c
}

func TestCoordinatorDedupOverlappingRequests(t *testing.T) {
	layer := &countingLayer{}
	c := newTestCoordinator(t, layer, CoordinatorConfig{RegionSize: 4})

	if _, err := c.Resolve(Bounds{0, 0, 1, 1}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := c.Resolve(Bounds{2, 2, 3, 3}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := layer.runs.Load(); got != 1 {
		t.Fatalf("pipeline ran %d times for one region, want 1", got)
	}
	if keyA, keyB := c.Normalize(Bounds{0, 0, 1, 1}), c.Normalize(Bounds{2, 2, 3, 3}); keyA != keyB {
		t.Fatalf("sub-bounds of one region normalise to different keys: %v vs %v", keyA, keyB)
	}
}

func TestCoordinatorMissGeneratesOncePerRegion(t *testing.T) {
	layer := &countingLayer{}
	c := newTestCoordinator(t, layer, CoordinatorConfig{RegionSize: 4})

	if _, err := c.Resolve(Bounds{0, 0, 0, 0}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := c.Resolve(Bounds{4, 0, 4, 0}); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := layer.runs.Load(); got != 2 {
		t.Fatalf("pipeline ran %d times for two regions, want 2", got)
	}
}

func TestCoordinatorViewCoversRequest(t *testing.T) {
	c := newTestCoordinator(t, &countingLayer{}, CoordinatorConfig{RegionSize: 4})
	view, err := c.Resolve(Bounds{1, 1, 2, 2})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(view) != 16 {
		t.Fatalf("view has %d chunks, want the full 4x4 region", len(view))
	}
	for x := 1; x <= 2; x++ {
		for y := 1; y <= 2; y++ {
			if _, ok := view[ChunkPos{X: x, Y: y}]; !ok {
				t.Fatalf("requested chunk (%d, %d) missing from view", x, y)
			}
		}
	}
}

func TestCoordinatorViewIsReadOnly(t *testing.T) {
	marker := &markerLayer{key: "k", value: "original"}
	pipeline := NewPipeline(PipelineConfig{Layers: []Layer{&countingLayer{}, marker}})
	c, err := NewCoordinator(CoordinatorConfig{Pipeline: pipeline, RegionSize: 4})
	if err != nil {
		t.Fatalf("build coordinator: %v", err)
	}

	view, err := c.Resolve(Bounds{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	mutated := view[ChunkPos{}]
	mutated.Props["k"] = "changed"
	mutated.Class = ClassWater

	again, err := c.Resolve(Bounds{0, 0, 0, 0})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if again[ChunkPos{}].Props["k"] != "original" {
		t.Fatal("mutating a view changed cached properties")
	}
	if again[ChunkPos{}].Class != ClassLand {
		t.Fatal("mutating a view changed cached classification")
	}
}

func TestCoordinatorLRUEviction(t *testing.T) {
	layer := &countingLayer{}
	c := newTestCoordinator(t, layer, CoordinatorConfig{RegionSize: 4, Capacity: 2})

	regions := []Bounds{{0, 0, 0, 0}, {4, 0, 4, 0}, {8, 0, 8, 0}}
	for _, b := range regions {
		if _, err := c.Resolve(b); err != nil {
			t.Fatalf("resolve %v: %v", b, err)
		}
	}
	if c.Len() != 2 {
		t.Fatalf("cache holds %d regions, want capacity 2", c.Len())
	}

	// The first region was evicted, so resolving it again re-runs the
	// pipeline; the most recent one is still cached.
	before := layer.runs.Load()
	if _, err := c.Resolve(regions[2]); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if layer.runs.Load() != before {
		t.Fatal("most recently used region was evicted")
	}
	if _, err := c.Resolve(regions[0]); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if layer.runs.Load() != before+1 {
		t.Fatal("least recently used region was not evicted")
	}
}

func TestCoordinatorLRUTouchOnHit(t *testing.T) {
	layer := &countingLayer{}
	c := newTestCoordinator(t, layer, CoordinatorConfig{RegionSize: 4, Capacity: 2})

	a, b, d := Bounds{0, 0, 0, 0}, Bounds{4, 0, 4, 0}, Bounds{8, 0, 8, 0}
	for _, bounds := range []Bounds{a, b, a, d} {
		if _, err := c.Resolve(bounds); err != nil {
			t.Fatalf("resolve %v: %v", bounds, err)
		}
	}
	// a was touched after b, so inserting d evicted b, not a.
	before := layer.runs.Load()
	if _, err := c.Resolve(a); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if layer.runs.Load() != before {
		t.Fatal("recently touched region was evicted")
	}
}

func TestCoordinatorConcurrentSameKey(t *testing.T) {
	layer := &countingLayer{delay: 20 * time.Millisecond}
	c := newTestCoordinator(t, layer, CoordinatorConfig{RegionSize: 4})

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Resolve(Bounds{0, 0, 3, 3}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent resolve: %v", err)
	}
	if got := layer.runs.Load(); got != 1 {
		t.Fatalf("pipeline ran %d times for concurrent requests of one key, want 1", got)
	}
}

func TestCoordinatorFailureNotCached(t *testing.T) {
	pipeline := NewPipeline(PipelineConfig{Layers: []Layer{failingLayer{}}})
	c, err := NewCoordinator(CoordinatorConfig{Pipeline: pipeline})
	if err != nil {
		t.Fatalf("build coordinator: %v", err)
	}
	if _, err := c.Resolve(Bounds{0, 0, 0, 0}); err == nil {
		t.Fatal("expected processing failure")
	}
	if c.Len() != 0 {
		t.Fatal("failed run left an entry in the cache")
	}
}

func TestCoordinatorRequiresPipeline(t *testing.T) {
	if _, err := NewCoordinator(CoordinatorConfig{}); err == nil {
		t.Fatal("expected configuration error for missing pipeline")
	}
}
