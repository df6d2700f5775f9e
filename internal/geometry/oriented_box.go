package geometry

import (
	"math"

	"github.com/golang/geo/r3"
)

// 3D Tiles box bounding volume: the center followed by the x, y and z half-axis vectors.
// Boxes built from world space bounds are axis aligned, so only the diagonal half-axis terms are set.
type OrientedBox [12]float64

// Computes the oriented box enclosing the 8 world space corners of a mesh bound box
func ComputeOrientedBox(corners [8]r3.Vector) OrientedBox {
	return NewOrientedBox(NewBoundingBoxFromCorners(corners))
}

func NewOrientedBox(bbox *BoundingBox) OrientedBox {
	half := bbox.HalfExtents()
	return OrientedBox{
		bbox.Xmid, bbox.Ymid, bbox.Zmid,
		half.X, 0, 0,
		0, half.Y, 0,
		0, 0, half.Z,
	}
}

func (b OrientedBox) Center() r3.Vector {
	return r3.Vector{X: b[0], Y: b[1], Z: b[2]}
}

func (b OrientedBox) HalfAxes() [3]r3.Vector {
	return [3]r3.Vector{
		{X: b[3], Y: b[4], Z: b[5]},
		{X: b[6], Y: b[7], Z: b[8]},
		{X: b[9], Y: b[10], Z: b[11]},
	}
}

// Returns the axis aligned box described by this volume
func (b OrientedBox) BoundingBox() *BoundingBox {
	axes := b.HalfAxes()
	hx, hy, hz := axes[0].Norm(), axes[1].Norm(), axes[2].Norm()
	return NewBoundingBox(b[0]-hx, b[0]+hx, b[1]-hy, b[1]+hy, b[2]-hz, b[2]+hz)
}

// Computes the geometric error as half of the box diagonal
func (b OrientedBox) GeometricError() float64 {
	axes := b.HalfAxes()
	var sum float64
	for _, axis := range axes {
		l := 2 * axis.Norm()
		sum += l * l
	}
	return math.Sqrt(sum) / 2
}

func (b OrientedBox) GetAsArray() []float64 {
	out := make([]float64, len(b))
	copy(out, b[:])
	return out
}
