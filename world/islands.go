package world

import (
	"errors"
	"fmt"
)

// LayerIslands is the registered name of the layer that converts isolated
// water chunks enclosed by land into land, filling gaps inside landmasses.
const LayerIslands = "islands"

const purposeConversion uint64 = 1

func init() {
	RegisterLayer(LayerIslands, func(conf LayerConfig) (Layer, error) {
		return NewIslandsLayer(conf)
	})
}

// IslandsLayer finds water chunks surrounded by land and converts them with a
// configured probability. It updates classification only; every other field
// and property of the chunk is preserved.
type IslandsLayer struct {
	conversion       float64
	moore            bool
	minLandNeighbors int
	requireAll       bool
	id               uint64
}

// NewIslandsLayer builds an islands layer from its configuration.
//
// Keys and defaults: conversion_probability 0.8 (0..1),
// use_moore_neighborhood true, min_land_neighbors 8 (at most the neighbour
// count of the chosen neighbourhood), require_all_neighbors true.
func NewIslandsLayer(conf LayerConfig) (*IslandsLayer, error) {
	l := &IslandsLayer{id: layerID(LayerIslands)}

	var err error
	if l.conversion, err = conf.floatVal(LayerIslands, "conversion_probability", 0.8); err != nil {
		return nil, err
	}
	if l.conversion < 0 || l.conversion > 1 {
		return nil, &ConfigError{Layer: LayerIslands, Param: "conversion_probability", Value: l.conversion, Want: "0.0..1.0"}
	}
	if l.moore, err = conf.boolVal(LayerIslands, "use_moore_neighborhood", true); err != nil {
		return nil, err
	}
	maxNeighbors := 4
	if l.moore {
		maxNeighbors = 8
	}
	if l.minLandNeighbors, err = conf.intVal(LayerIslands, "min_land_neighbors", maxNeighbors); err != nil {
		return nil, err
	}
	if l.minLandNeighbors < 1 || l.minLandNeighbors > maxNeighbors {
		return nil, &ConfigError{Layer: LayerIslands, Param: "min_land_neighbors", Value: l.minLandNeighbors, Want: fmt.Sprintf("1..%d", maxNeighbors)}
	}
	if l.requireAll, err = conf.boolVal(LayerIslands, "require_all_neighbors", true); err != nil {
		return nil, err
	}
	return l, nil
}

// Name returns the registered layer name.
func (l *IslandsLayer) Name() string {
	return LayerIslands
}

// Process converts qualifying water chunks to land. Candidate and conversion
// counts are recorded in the layer's scratch area for diagnostics.
func (l *IslandsLayer) Process(ctx *Context, b Bounds) (Bounds, error) {
	if ctx.ChunkCount() == 0 {
		return b, &ProcessError{Layer: LayerIslands, Err: errors.New("no classified chunks")}
	}

	offsets := vonNeumannOffsets[:]
	if l.moore {
		offsets = mooreOffsets[:]
	}

	var candidates []ChunkPos
	for x := b.MinX; x <= b.MaxX; x++ {
		for y := b.MinY; y <= b.MaxY; y++ {
			pos := ChunkPos{X: x, Y: y}
			ch, ok := ctx.Chunk(pos)
			if !ok || ch.Class != ClassWater {
				continue
			}
			land, present := 0, 0
			for _, off := range offsets {
				n, ok := ctx.Chunk(ChunkPos{X: pos.X + off[0], Y: pos.Y + off[1]})
				if !ok {
					continue
				}
				present++
				if n.Class == ClassLand {
					land++
				}
			}
			if l.requireAll {
				// Missing neighbours at the edge of the materialised area
				// disqualify the chunk: enclosure cannot be proven.
				if present == len(offsets) && land == len(offsets) {
					candidates = append(candidates, pos)
				}
			} else if land >= l.minLandNeighbors {
				candidates = append(candidates, pos)
			}
		}
	}

	converted := 0
	for _, pos := range candidates {
		r := stream(ctx.Seed, pos.X, pos.Y, l.id, purposeConversion)
		if r.Float64() < l.conversion {
			ch, _ := ctx.Chunk(pos)
			ch.Class = ClassLand
			converted++
		}
	}

	scratch := ctx.Scratch(LayerIslands)
	scratch["candidates_found"] = len(candidates)
	scratch["conversions_made"] = converted

	return b, nil
}

// Summary returns the effective configuration for diagnostics.
func (l *IslandsLayer) Summary() map[string]any {
	return map[string]any{
		"conversion_probability": l.conversion,
		"use_moore_neighborhood": l.moore,
		"min_land_neighbors":     l.minLandNeighbors,
		"require_all_neighbors":  l.requireAll,
	}
}
