package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

// Axis aligned bounding box, also caching the mid point of each axis
type BoundingBox struct {
	Xmin, Xmax, Ymin, Ymax, Zmin, Zmax float64
	Xmid, Ymid, Zmid                   float64
}

// Constructor to properly initialize the boundingBox struct computing the mids
func NewBoundingBox(Xmin, Xmax, Ymin, Ymax, Zmin, Zmax float64) *BoundingBox {
	return &BoundingBox{
		Xmin: Xmin,
		Xmax: Xmax,
		Ymin: Ymin,
		Ymax: Ymax,
		Zmin: Zmin,
		Zmax: Zmax,
		Xmid: (Xmin + Xmax) / 2,
		Ymid: (Ymin + Ymax) / 2,
		Zmid: (Zmin + Zmax) / 2,
	}
}

// Builds the box enclosing the given world space corners
func NewBoundingBoxFromCorners(corners [8]r3.Vector) *BoundingBox {
	minX, minY, minZ := math.Inf(1), math.Inf(1), math.Inf(1)
	maxX, maxY, maxZ := math.Inf(-1), math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		minX, maxX = math.Min(minX, c.X), math.Max(maxX, c.X)
		minY, maxY = math.Min(minY, c.Y), math.Max(maxY, c.Y)
		minZ, maxZ = math.Min(minZ, c.Z), math.Max(maxZ, c.Z)
	}
	return NewBoundingBox(minX, maxX, minY, maxY, minZ, maxZ)
}

// Returns the box covering the given quadrant of the parent. Only X and Y are split, Z is inherited.
func NewBoundingBoxFromParent(parent *BoundingBox, quadrant uint8) *BoundingBox {
	xMin, xMax := parent.Xmin, parent.Xmid
	yMin, yMax := parent.Ymin, parent.Ymid
	if quadrant&1 == 1 {
		xMin, xMax = parent.Xmid, parent.Xmax
	}
	if quadrant&2 == 2 {
		yMin, yMax = parent.Ymid, parent.Ymax
	}
	return NewBoundingBox(xMin, xMax, yMin, yMax, parent.Zmin, parent.Zmax)
}

// Returns the quadrant index (0..3) of the point relative to the given center.
// Points lying exactly on a split line belong to the greater side.
func QuadrantOf(point r3.Vector, centerX, centerY float64) uint8 {
	var result uint8 = 0
	if point.X >= centerX {
		result += 1
	}
	if point.Y >= centerY {
		result += 2
	}
	return result
}

func (b *BoundingBox) Center() r3.Vector {
	return r3.Vector{X: b.Xmid, Y: b.Ymid, Z: b.Zmid}
}

func (b *BoundingBox) HalfExtents() r3.Vector {
	return r3.Vector{
		X: (b.Xmax - b.Xmin) / 2,
		Y: (b.Ymax - b.Ymin) / 2,
		Z: (b.Zmax - b.Zmin) / 2,
	}
}

// Reports whether other lies inside b on the X and Y axes, within tolerance eps
func (b *BoundingBox) ContainsXY(other *BoundingBox, eps float64) bool {
	return other.Xmin >= b.Xmin-eps && other.Xmax <= b.Xmax+eps &&
		other.Ymin >= b.Ymin-eps && other.Ymax <= b.Ymax+eps
}

// Returns the smallest box enclosing both b and other
func (b *BoundingBox) Union(other *BoundingBox) *BoundingBox {
	return NewBoundingBox(
		math.Min(b.Xmin, other.Xmin), math.Max(b.Xmax, other.Xmax),
		math.Min(b.Ymin, other.Ymin), math.Max(b.Ymax, other.Ymax),
		math.Min(b.Zmin, other.Zmin), math.Max(b.Zmax, other.Zmax),
	)
}
