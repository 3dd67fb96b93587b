package world

import (
	"errors"
	"fmt"

	"github.com/brentp/intintmap"
)

// LayerZoom is the registered name of the refinement layer that subdivides
// chunks and smooths classification boundaries with cellular automata.
const LayerZoom = "zoom"

// Stream purposes separating the independent draws the zoom layer makes for
// one cell in one iteration.
const (
	purposeErosion uint64 = iota + 1
	purposeNoise
	purposeEdgeNoise
)

func init() {
	RegisterLayer(LayerZoom, func(conf LayerConfig) (Layer, error) {
		return NewRefineLayer(conf)
	})
}

// RefinePass is the parameter record of one cellular-automata pass. Passes
// run strictly in order, each on the cumulative output of the previous one.
type RefinePass struct {
	Iterations         int
	ExpansionThreshold int
	ErosionProbability float64
}

// RefineLayer increases spatial resolution by an integer subdivision factor
// and refines the land classification with iterative neighbour-counting
// rules. It may be chained multiple times to progressively add detail while
// keeping the overall geography from earlier layers.
type RefineLayer struct {
	factor    int
	passes    []RefinePass
	multiPass bool

	protectInterior   bool
	interiorThreshold int
	moore             bool

	preserveIslands bool
	minIslandSize   int

	addNoise      bool
	noiseProb     float64
	edgeBoost     bool
	edgeNoiseProb float64

	// missing is the classification assumed for neighbours that were never
	// materialised. Defaults to water, which biases erosion inward at region
	// seams; the policy is deliberately configurable.
	missing Class

	id uint64
}

// NewRefineLayer builds a refinement layer from its configuration.
//
// Keys and defaults: subdivision_factor 2 (≥1), iterations 6,
// land_expansion_threshold 3, erosion_probability 0.25, use_multi_pass true,
// passes (ordered records with iterations/expansion_threshold/
// erosion_probability, default two passes (3,2,0.1) and (3,4,0.3)),
// protect_interior false, interior_threshold 8, use_moore_neighborhood true,
// preserve_islands true, min_island_size 1, add_noise true,
// noise_probability 0.15, edge_noise_boost true, edge_noise_probability 0.25,
// missing_neighbor "water".
func NewRefineLayer(conf LayerConfig) (*RefineLayer, error) {
	l := &RefineLayer{id: layerID(LayerZoom)}

	var err error
	if l.factor, err = conf.intVal(LayerZoom, "subdivision_factor", 2); err != nil {
		return nil, err
	}
	if l.factor < 1 {
		return nil, &ConfigError{Layer: LayerZoom, Param: "subdivision_factor", Value: l.factor, Want: ">= 1"}
	}
	iterations, err := conf.intVal(LayerZoom, "iterations", 6)
	if err != nil {
		return nil, err
	}
	expansion, err := conf.intVal(LayerZoom, "land_expansion_threshold", 3)
	if err != nil {
		return nil, err
	}
	erosion, err := conf.floatVal(LayerZoom, "erosion_probability", 0.25)
	if err != nil {
		return nil, err
	}
	if iterations < 0 {
		return nil, &ConfigError{Layer: LayerZoom, Param: "iterations", Value: iterations, Want: ">= 0"}
	}
	if erosion < 0 || erosion > 1 {
		return nil, &ConfigError{Layer: LayerZoom, Param: "erosion_probability", Value: erosion, Want: "0.0..1.0"}
	}
	if l.multiPass, err = conf.boolVal(LayerZoom, "use_multi_pass", true); err != nil {
		return nil, err
	}
	if l.passes, err = parsePasses(conf, l.multiPass, iterations, expansion, erosion); err != nil {
		return nil, err
	}
	if l.protectInterior, err = conf.boolVal(LayerZoom, "protect_interior", false); err != nil {
		return nil, err
	}
	if l.interiorThreshold, err = conf.intVal(LayerZoom, "interior_threshold", 8); err != nil {
		return nil, err
	}
	if l.interiorThreshold < 0 {
		return nil, &ConfigError{Layer: LayerZoom, Param: "interior_threshold", Value: l.interiorThreshold, Want: ">= 0"}
	}
	if l.moore, err = conf.boolVal(LayerZoom, "use_moore_neighborhood", true); err != nil {
		return nil, err
	}
	if l.preserveIslands, err = conf.boolVal(LayerZoom, "preserve_islands", true); err != nil {
		return nil, err
	}
	if l.minIslandSize, err = conf.intVal(LayerZoom, "min_island_size", 1); err != nil {
		return nil, err
	}
	if l.minIslandSize < 0 {
		return nil, &ConfigError{Layer: LayerZoom, Param: "min_island_size", Value: l.minIslandSize, Want: ">= 0"}
	}
	if l.addNoise, err = conf.boolVal(LayerZoom, "add_noise", true); err != nil {
		return nil, err
	}
	if l.noiseProb, err = conf.floatVal(LayerZoom, "noise_probability", 0.15); err != nil {
		return nil, err
	}
	if l.noiseProb < 0 || l.noiseProb > 1 {
		return nil, &ConfigError{Layer: LayerZoom, Param: "noise_probability", Value: l.noiseProb, Want: "0.0..1.0"}
	}
	if l.edgeBoost, err = conf.boolVal(LayerZoom, "edge_noise_boost", true); err != nil {
		return nil, err
	}
	if l.edgeNoiseProb, err = conf.floatVal(LayerZoom, "edge_noise_probability", 0.25); err != nil {
		return nil, err
	}
	if l.edgeNoiseProb < 0 || l.edgeNoiseProb > 1 {
		return nil, &ConfigError{Layer: LayerZoom, Param: "edge_noise_probability", Value: l.edgeNoiseProb, Want: "0.0..1.0"}
	}
	if l.missing, err = conf.classVal(LayerZoom, "missing_neighbor", ClassWater); err != nil {
		return nil, err
	}
	return l, nil
}

// parsePasses resolves the ordered pass records. Single-pass mode is
// multi-pass with one implicit pass built from the top-level parameters.
func parsePasses(conf LayerConfig, multiPass bool, iterations, expansion int, erosion float64) ([]RefinePass, error) {
	if !multiPass {
		return []RefinePass{{Iterations: iterations, ExpansionThreshold: expansion, ErosionProbability: erosion}}, nil
	}
	raw, ok := conf["passes"]
	if !ok {
		// The documented default pass pair: aggressive expansion for rough
		// shape, then detail refinement.
		return []RefinePass{
			{Iterations: 3, ExpansionThreshold: 2, ErosionProbability: 0.1},
			{Iterations: 3, ExpansionThreshold: 4, ErosionProbability: 0.3},
		}, nil
	}
	records, err := passRecords(raw)
	if err != nil {
		return nil, err
	}
	passes := make([]RefinePass, 0, len(records))
	for i, rec := range records {
		param := fmt.Sprintf("passes[%d]", i)
		p := RefinePass{}
		if p.Iterations, err = rec.intVal(LayerZoom, "iterations", iterations); err != nil {
			return nil, err
		}
		if p.ExpansionThreshold, err = rec.intVal(LayerZoom, "expansion_threshold", expansion); err != nil {
			return nil, err
		}
		if p.ErosionProbability, err = rec.floatVal(LayerZoom, "erosion_probability", erosion); err != nil {
			return nil, err
		}
		if p.Iterations < 0 {
			return nil, &ConfigError{Layer: LayerZoom, Param: param + ".iterations", Value: p.Iterations, Want: ">= 0"}
		}
		if p.ErosionProbability < 0 || p.ErosionProbability > 1 {
			return nil, &ConfigError{Layer: LayerZoom, Param: param + ".erosion_probability", Value: p.ErosionProbability, Want: "0.0..1.0"}
		}
		passes = append(passes, p)
	}
	if len(passes) == 0 {
		return nil, &ConfigError{Layer: LayerZoom, Param: "passes", Value: raw, Want: "at least one pass record"}
	}
	return passes, nil
}

// passRecords coerces the decoded "passes" value into configuration mappings.
// TOML decoders produce either []map[string]any or []any depending on the
// surrounding structure.
func passRecords(raw any) ([]LayerConfig, error) {
	switch v := raw.(type) {
	case []LayerConfig:
		return v, nil
	case []map[string]any:
		records := make([]LayerConfig, len(v))
		for i, m := range v {
			records[i] = LayerConfig(m)
		}
		return records, nil
	case []any:
		records := make([]LayerConfig, len(v))
		for i, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				return nil, &ConfigError{Layer: LayerZoom, Param: "passes", Value: e, Want: "a list of pass records"}
			}
			records[i] = LayerConfig(m)
		}
		return records, nil
	}
	return nil, &ConfigError{Layer: LayerZoom, Param: "passes", Value: raw, Want: "a list of pass records"}
}

// Name returns the registered layer name.
func (l *RefineLayer) Name() string {
	return LayerZoom
}

// Factor returns the subdivision factor applied by the layer.
func (l *RefineLayer) Factor() int {
	return l.factor
}

// Process subdivides every stored chunk into factor² children and runs the
// configured cellular-automata passes over the subdivided grid.
func (l *RefineLayer) Process(ctx *Context, b Bounds) (Bounds, error) {
	if ctx.ChunkCount() == 0 {
		return b, &ProcessError{Layer: LayerZoom, Err: errors.New("no classified chunks to refine")}
	}

	// Subdivision: each parent tile of F² children inherits the parent
	// classification and records lineage. Properties other than the
	// explicitly inherited fields do not propagate to children.
	grid := make(map[ChunkPos]*Chunk, ctx.ChunkCount()*l.factor*l.factor)
	var perr error
	ctx.EachChunk(func(parent *Chunk) {
		if parent.Size < 1 {
			if perr == nil {
				perr = &ProcessError{Layer: LayerZoom, Pos: parent.Pos, Err: fmt.Errorf("invalid chunk size %d", parent.Size)}
			}
			return
		}
		childSize := max(1, parent.Size/l.factor)
		for i := 0; i < l.factor; i++ {
			for j := 0; j < l.factor; j++ {
				pos := ChunkPos{X: parent.Pos.X*l.factor + i, Y: parent.Pos.Y*l.factor + j}
				grid[pos] = &Chunk{
					Pos:    pos,
					Size:   childSize,
					Class:  parent.Class,
					Parent: parent.Pos,
					Depth:  parent.Depth + 1,
				}
			}
		}
	})
	if perr != nil {
		return b, perr
	}
	ctx.replaceChunks(grid)

	// The working bounds below are those of the subdivided grid, which may
	// exceed the scaled request if earlier layers materialised margin.
	sub, _ := ctx.coverage()

	cur := snapshot(grid)
	for pi, pass := range l.passes {
		for it := 0; it < pass.Iterations; it++ {
			cur = l.iterate(ctx, grid, cur, sub, pi, it, pass)
		}
	}
	for pos, ch := range grid {
		if v, ok := cur.Get(pos.pack()); ok {
			ch.Class = Class(v)
		}
	}
	return sub, nil
}

// snapshot captures the classification of every grid cell in a flat integer
// map keyed by packed position.
func snapshot(grid map[ChunkPos]*Chunk) *intintmap.Map {
	m := intintmap.New(len(grid)*2, 0.60)
	for pos, ch := range grid {
		m.Put(pos.pack(), int64(ch.Class))
	}
	return m
}

// iterate performs one cellular-automata sweep. All reads go through the
// previous snapshot so the sweep never observes partially-updated state.
func (l *RefineLayer) iterate(ctx *Context, grid map[ChunkPos]*Chunk, cur *intintmap.Map, b Bounds, pass, iter int, p RefinePass) *intintmap.Map {
	var exempt map[ChunkPos]struct{}
	if l.preserveIslands {
		exempt = l.smallIslands(grid, cur, b)
	}

	next := intintmap.New(len(grid)*2, 0.60)
	for pos := range grid {
		class := classAt(cur, pos, l.missing)
		if !b.Contains(pos) {
			next.Put(pos.pack(), int64(class))
			continue
		}
		land, total := l.countNeighbours(cur, grid, pos)
		out := class
		if class == ClassWater {
			if land >= p.ExpansionThreshold {
				out = ClassLand
			}
		} else {
			_, keep := exempt[pos]
			switch {
			case keep:
				// Small island, exempt from erosion this sweep.
			case land == total:
				// Full enclosure: erosion never applies.
			case l.protectInterior && land >= l.interiorThreshold:
			default:
				r := stream(ctx.Seed, pos.X, pos.Y, l.id, passID(pass, iter, purposeErosion))
				if r.Float64() < p.ErosionProbability {
					out = ClassWater
				}
			}
		}
		if l.addNoise {
			prob, purpose := l.noiseProb, purposeNoise
			if l.edgeBoost && l.atBoundary(cur, grid, pos) {
				prob, purpose = l.edgeNoiseProb, purposeEdgeNoise
			}
			r := stream(ctx.Seed, pos.X, pos.Y, l.id, passID(pass, iter, purpose))
			if r.Float64() < prob {
				if out == ClassLand {
					out = ClassWater
				} else {
					out = ClassLand
				}
			}
		}
		next.Put(pos.pack(), int64(out))
	}
	return next
}

func classAt(cur *intintmap.Map, pos ChunkPos, missing Class) Class {
	if v, ok := cur.Get(pos.pack()); ok {
		return Class(v)
	}
	return missing
}

var (
	mooreOffsets = [8][2]int{
		{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1},
	}
	vonNeumannOffsets = [4][2]int{
		{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	}
)

func (l *RefineLayer) offsets() [][2]int {
	if l.moore {
		return mooreOffsets[:]
	}
	return vonNeumannOffsets[:]
}

// countNeighbours counts Land cells around pos. Neighbours that were
// materialised by this or earlier layers are read from the snapshot;
// neighbours that were never materialised take the configured missing-class
// fallback.
func (l *RefineLayer) countNeighbours(cur *intintmap.Map, grid map[ChunkPos]*Chunk, pos ChunkPos) (land, total int) {
	offsets := l.offsets()
	for _, off := range offsets {
		npos := ChunkPos{X: pos.X + off[0], Y: pos.Y + off[1]}
		class := l.missing
		if _, ok := grid[npos]; ok {
			class = classAt(cur, npos, l.missing)
		}
		if class == ClassLand {
			land++
		}
	}
	return land, len(offsets)
}

// atBoundary reports whether the cell has at least one materialised neighbour
// with a different classification.
func (l *RefineLayer) atBoundary(cur *intintmap.Map, grid map[ChunkPos]*Chunk, pos ChunkPos) bool {
	class := classAt(cur, pos, l.missing)
	for _, off := range mooreOffsets {
		npos := ChunkPos{X: pos.X + off[0], Y: pos.Y + off[1]}
		if _, ok := grid[npos]; !ok {
			continue
		}
		if classAt(cur, npos, l.missing) != class {
			return true
		}
	}
	return false
}

// smallIslands flood-fills connected Land components over the grid and
// returns the cells of components smaller than the configured minimum. Those
// cells are exempt from erosion for the sweep regardless of probability.
func (l *RefineLayer) smallIslands(grid map[ChunkPos]*Chunk, cur *intintmap.Map, b Bounds) map[ChunkPos]struct{} {
	exempt := make(map[ChunkPos]struct{})
	visited := make(map[ChunkPos]struct{}, len(grid))

	for x := b.MinX; x <= b.MaxX; x++ {
		for y := b.MinY; y <= b.MaxY; y++ {
			start := ChunkPos{X: x, Y: y}
			if _, seen := visited[start]; seen {
				continue
			}
			if _, ok := grid[start]; !ok {
				continue
			}
			if classAt(cur, start, l.missing) != ClassLand {
				continue
			}
			component := floodFill(grid, cur, start, visited, b, l.missing)
			if len(component) < l.minIslandSize {
				for _, pos := range component {
					exempt[pos] = struct{}{}
				}
			}
		}
	}
	return exempt
}

// floodFill collects the edge-connected Land component containing start.
func floodFill(grid map[ChunkPos]*Chunk, cur *intintmap.Map, start ChunkPos, visited map[ChunkPos]struct{}, b Bounds, missing Class) []ChunkPos {
	var component []ChunkPos
	stack := []ChunkPos{start}
	for len(stack) > 0 {
		pos := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := visited[pos]; seen {
			continue
		}
		if !b.Contains(pos) {
			continue
		}
		if _, ok := grid[pos]; !ok {
			continue
		}
		if classAt(cur, pos, missing) != ClassLand {
			continue
		}
		visited[pos] = struct{}{}
		component = append(component, pos)
		for _, off := range vonNeumannOffsets {
			stack = append(stack, ChunkPos{X: pos.X + off[0], Y: pos.Y + off[1]})
		}
	}
	return component
}

// Summary returns the effective configuration for diagnostics.
func (l *RefineLayer) Summary() map[string]any {
	passes := make([]map[string]any, 0, len(l.passes))
	for _, p := range l.passes {
		passes = append(passes, map[string]any{
			"iterations":          p.Iterations,
			"expansion_threshold": p.ExpansionThreshold,
			"erosion_probability": p.ErosionProbability,
		})
	}
	return map[string]any{
		"subdivision_factor":     l.factor,
		"use_multi_pass":         l.multiPass,
		"passes":                 passes,
		"protect_interior":       l.protectInterior,
		"interior_threshold":     l.interiorThreshold,
		"use_moore_neighborhood": l.moore,
		"preserve_islands":       l.preserveIslands,
		"min_island_size":        l.minIslandSize,
		"add_noise":              l.addNoise,
		"noise_probability":      l.noiseProb,
		"edge_noise_boost":       l.edgeBoost,
		"edge_noise_probability": l.edgeNoiseProb,
		"missing_neighbor":       l.missing.String(),
	}
}
