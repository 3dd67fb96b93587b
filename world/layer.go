package world

import (
	"fmt"
	"math"
	"sort"
)

// Layer is one deterministic transform stage of the generation pipeline. A
// layer validates its configuration at construction and processes the chunk
// store of a context within given bounds when the pipeline runs. Process
// returns the bounds its output covers, which may be wider than the input if
// the layer materialised margin for neighbour lookups.
type Layer interface {
	// Name returns the registered name of the layer.
	Name() string
	// Process transforms the context within the bounds.
	Process(ctx *Context, b Bounds) (Bounds, error)
	// Summary returns the effective configuration of the layer for
	// diagnostics.
	Summary() map[string]any
}

// LayerFunc constructs a layer from a flat configuration mapping. Unspecified
// keys fall back to documented defaults; invalid values yield a ConfigError.
type LayerFunc func(conf LayerConfig) (Layer, error)

var layerFuncs = map[string]LayerFunc{}

// RegisterLayer registers a layer constructor under a name, making it
// available to NewLayer and to pipelines built from configuration. It panics
// if the name is already taken.
func RegisterLayer(name string, fn LayerFunc) {
	if _, ok := layerFuncs[name]; ok {
		panic("world: layer " + name + " registered twice")
	}
	layerFuncs[name] = fn
}

// NewLayer constructs the named layer from its configuration. An unregistered
// name is a configuration error.
func NewLayer(name string, conf LayerConfig) (Layer, error) {
	fn, ok := layerFuncs[name]
	if !ok {
		return nil, &ConfigError{Layer: name, Param: "name", Value: name, Want: "one of " + registeredLayerNames()}
	}
	return fn(conf)
}

func registeredLayerNames() string {
	names := make([]string, 0, len(layerFuncs))
	for name := range layerFuncs {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprint(names)
}

// LayerSpec pairs a registered layer name with its configuration. Pipelines
// are described by an ordered list of specs.
type LayerSpec struct {
	Name   string
	Config LayerConfig
}

// LayerConfig is the flat key-value mapping a layer consumes. Values usually
// come from decoded TOML, so the typed accessors accept the numeric types a
// TOML decoder produces.
type LayerConfig map[string]any

// intVal returns the integer stored under key, or def if the key is absent.
func (c LayerConfig) intVal(layer, key string, def int) (int, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	}
	return 0, &ConfigError{Layer: layer, Param: key, Value: v, Want: "an integer"}
}

// floatVal returns the float stored under key, or def if the key is absent.
func (c LayerConfig) floatVal(layer, key string, def float64) (float64, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, &ConfigError{Layer: layer, Param: key, Value: v, Want: "a number"}
}

// boolVal returns the boolean stored under key, or def if the key is absent.
func (c LayerConfig) boolVal(layer, key string, def bool) (bool, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ConfigError{Layer: layer, Param: key, Value: v, Want: "a boolean"}
	}
	return b, nil
}

// stringVal returns the string stored under key, or def if the key is absent.
func (c LayerConfig) stringVal(layer, key string, def string) (string, error) {
	v, ok := c[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ConfigError{Layer: layer, Param: key, Value: v, Want: "a string"}
	}
	return s, nil
}

// classVal returns the land classification named under key, or def if the key
// is absent. Valid values are "land" and "water".
func (c LayerConfig) classVal(layer, key string, def Class) (Class, error) {
	s, err := c.stringVal(layer, key, def.String())
	if err != nil {
		return def, err
	}
	switch s {
	case "land":
		return ClassLand, nil
	case "water":
		return ClassWater, nil
	}
	return def, &ConfigError{Layer: layer, Param: key, Value: s, Want: `"land" or "water"`}
}
