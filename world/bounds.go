package world

import "fmt"

// Bounds is an inclusive axis-aligned rectangle of chunk coordinates. It
// defines the working set of one generation request.
type Bounds struct {
	MinX, MinY, MaxX, MaxY int
}

// BoundsOf returns the bounds covering exactly the single chunk position.
func BoundsOf(p ChunkPos) Bounds {
	return Bounds{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
}

// Valid reports whether the rectangle is non-empty.
func (b Bounds) Valid() bool {
	return b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

// Width returns the number of chunk columns covered.
func (b Bounds) Width() int {
	return b.MaxX - b.MinX + 1
}

// Height returns the number of chunk rows covered.
func (b Bounds) Height() int {
	return b.MaxY - b.MinY + 1
}

// Count returns the number of chunk positions covered.
func (b Bounds) Count() int {
	return b.Width() * b.Height()
}

// Contains reports whether the position lies within the rectangle.
func (b Bounds) Contains(p ChunkPos) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}

// Covers reports whether o lies entirely within b.
func (b Bounds) Covers(o Bounds) bool {
	return o.MinX >= b.MinX && o.MaxX <= b.MaxX && o.MinY >= b.MinY && o.MaxY <= b.MaxY
}

// Scaled returns the bounds in a coordinate space subdivided by factor: every
// chunk position splits into factor² positions tiling the same area.
func (b Bounds) Scaled(factor int) Bounds {
	return Bounds{
		MinX: b.MinX * factor,
		MinY: b.MinY * factor,
		MaxX: b.MaxX*factor + factor - 1,
		MaxY: b.MaxY*factor + factor - 1,
	}
}

// AlignedTo returns the smallest rectangle that contains b and whose edges lie
// on multiples of the region size. This is the normalisation applied by the
// region cache, correct for negative coordinates.
func (b Bounds) AlignedTo(region int) Bounds {
	return Bounds{
		MinX: floorDiv(b.MinX, region) * region,
		MinY: floorDiv(b.MinY, region) * region,
		MaxX: floorDiv(b.MaxX, region)*region + region - 1,
		MaxY: floorDiv(b.MaxY, region)*region + region - 1,
	}
}

// String implements fmt.Stringer.
func (b Bounds) String() string {
	return fmt.Sprintf("[%d,%d..%d,%d]", b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// floorDiv divides a by b rounding towards negative infinity. Go's integer
// division truncates towards zero, which maps tile -1 to chunk 0 instead of
// chunk -1.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
