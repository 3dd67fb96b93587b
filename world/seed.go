package world

import (
	"encoding/binary"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
	"github.com/segmentio/fasthash/fnv1a"
)

// All randomness in the generation pipeline derives from pure functions of
// (world seed, coordinates, layer, pass). Layers never hold a stateful
// generator across calls: they derive a fresh stream per decision point, so
// results are identical regardless of call order, bounds slicing or parallel
// evaluation of independent regions.

// layerID returns the stable numeric identity of a layer name used in stream
// derivation. Renaming a layer changes every draw it makes on purpose.
func layerID(name string) uint64 {
	return fnv1a.HashString64(name)
}

// passID folds a pass index, iteration index and purpose tag into a single
// stream discriminator. Purposes separate the independent draws a layer makes
// for the same cell in the same iteration.
func passID(pass, iteration int, purpose uint64) uint64 {
	return uint64(pass)<<40 | uint64(iteration)<<16 | purpose
}

// stream derives a reproducible random stream for one decision point. The
// inputs are packed and mixed through xxhash; the two halves of the digest
// seed a PCG source.
func stream(seed int64, x, y int, layer, pass uint64) *rand.Rand {
	var buf [40]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(int64(x)))
	binary.LittleEndian.PutUint64(buf[16:], uint64(int64(y)))
	binary.LittleEndian.PutUint64(buf[24:], layer)
	binary.LittleEndian.PutUint64(buf[32:], pass)

	hi := xxhash.Sum64(buf[:])
	// Re-mix with a flipped seed word for the second PCG state so the pair
	// is not trivially correlated.
	binary.LittleEndian.PutUint64(buf[0:], uint64(seed)^0x9e3779b97f4a7c15)
	lo := xxhash.Sum64(buf[:])

	return rand.New(rand.NewPCG(hi, lo))
}
