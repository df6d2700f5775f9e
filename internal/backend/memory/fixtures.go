package memory

import (
	"image"
	"image/color"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Builds a planar grid of cols x rows quads lying on z = 0, with UVs spanning the unit square
func GridInput(name string, cols, rows int, size float64) MeshInput {
	in := MeshInput{Name: name}
	index := func(i, j int) int { return j*(cols+1) + i }
	for j := 0; j <= rows; j++ {
		for i := 0; i <= cols; i++ {
			in.Positions = append(in.Positions, r3.Vector{X: float64(i) * size, Y: float64(j) * size})
			in.UVs = append(in.UVs, r2.Point{X: float64(i) / float64(cols), Y: float64(j) / float64(rows)})
		}
	}
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			in.Faces = append(in.Faces, []int{index(i, j), index(i+1, j), index(i+1, j+1), index(i, j+1)})
		}
	}
	return in
}

// Returns an opaque image whose red and green channels encode the pixel coordinates
func GradientImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 255 / maxInt(width-1, 1)),
				G: uint8(y * 255 / maxInt(height-1, 1)),
				B: 128,
				A: 255,
			})
		}
	}
	return img
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
