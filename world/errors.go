package world

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLayers is returned when a pipeline without layers is asked to
	// process bounds.
	ErrNoLayers = errors.New("pipeline has no layers configured")
	// ErrChunkMissing is returned by tile queries when the owning chunk was
	// not materialised by the pipeline.
	ErrChunkMissing = errors.New("chunk not materialised by pipeline")
)

// ConfigError reports an invalid or out-of-range layer parameter. It is
// raised at layer construction, before any bounds are processed, and is never
// retried: identical configuration yields an identical failure.
type ConfigError struct {
	// Layer is the name of the layer the parameter belongs to.
	Layer string
	// Param is the configuration key that failed validation.
	Param string
	// Value is the rejected value.
	Value any
	// Want describes the valid range or type of the parameter.
	Want string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("layer %q: parameter %q = %v (want %s)", e.Layer, e.Param, e.Value, e.Want)
}

// ProcessError reports malformed upstream chunk data encountered mid-pipeline.
// It aborts the current run; any partial context built so far is discarded and
// never cached.
type ProcessError struct {
	// Layer is the name of the layer that hit the malformed data.
	Layer string
	// Pos is the chunk position involved, if any.
	Pos ChunkPos
	// Err describes the problem.
	Err error
}

// Error implements the error interface.
func (e *ProcessError) Error() string {
	return fmt.Sprintf("layer %q: chunk %v: %v", e.Layer, e.Pos, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// ResourceError reports that the region cache could not evict enough entries
// to respect its configured capacity.
type ResourceError struct {
	// Capacity is the configured maximum entry count.
	Capacity int
	// Entries is the number of entries held when eviction gave up.
	Entries int
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return fmt.Sprintf("region cache over capacity: %d entries, capacity %d", e.Entries, e.Capacity)
}
