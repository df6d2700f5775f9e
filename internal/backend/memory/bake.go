package memory

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
)

// Rasterizes every face into the target image through the target layer. Each covered pixel takes
// the color of the face material texture, looked up through the interpolated source UV.
func (s *Scene) BakeDiffuseColor(h backend.MeshHandle, opts backend.BakeOptions) error {
	m, err := s.mesh(h)
	if err != nil {
		return err
	}
	src, err := m.layer(opts.SourceLayer)
	if err != nil {
		return err
	}
	dst, err := m.layer(opts.TargetLayer)
	if err != nil {
		return err
	}
	target, err := s.texture(opts.Target)
	if err != nil {
		return err
	}

	sources := make([]*image.NRGBA, len(m.materials))
	for i, mh := range m.materials {
		mat, err := s.material(mh)
		if err != nil {
			return err
		}
		if len(mat.textures) == 0 {
			continue
		}
		t, err := s.texture(mat.textures[0])
		if err != nil {
			return err
		}
		sources[i] = t.img
	}

	img := target.img
	w, ht := img.Bounds().Dx(), img.Bounds().Dy()
	filled := make([]bool, w*ht)
	for fi, f := range m.faces {
		if f.material >= len(sources) || sources[f.material] == nil {
			return errors.Errorf("mesh %q: face %d has no texture to bake from", m.name, fi)
		}
		tex := sources[f.material]
		for i := 1; i+1 < len(f.verts); i++ {
			tri := [3]int{f.verts[0], f.verts[i], f.verts[i+1]}
			rasterTriangle(img, filled, tex,
				[3]r2.Point{dst.uvs[tri[0]], dst.uvs[tri[1]], dst.uvs[tri[2]]},
				[3]r2.Point{src.uvs[tri[0]], src.uvs[tri[1]], src.uvs[tri[2]]})
		}
	}
	for i := 0; i < opts.MarginPx; i++ {
		if !dilate(img, filled) {
			break
		}
	}
	return nil
}

func rasterTriangle(img *image.NRGBA, filled []bool, tex *image.NRGBA, target, source [3]r2.Point) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	var px [3]r2.Point
	for i, t := range target {
		px[i] = r2.Point{X: t.X * float64(w), Y: (1 - t.Y) * float64(h)}
	}
	area := (px[1].X-px[0].X)*(px[2].Y-px[0].Y) - (px[2].X-px[0].X)*(px[1].Y-px[0].Y)
	if math.Abs(area) < 1e-12 {
		return
	}
	minX := clampInt(int(math.Floor(math.Min(px[0].X, math.Min(px[1].X, px[2].X)))), 0, w-1)
	maxX := clampInt(int(math.Ceil(math.Max(px[0].X, math.Max(px[1].X, px[2].X)))), 0, w-1)
	minY := clampInt(int(math.Floor(math.Min(px[0].Y, math.Min(px[1].Y, px[2].Y)))), 0, h-1)
	maxY := clampInt(int(math.Ceil(math.Max(px[0].Y, math.Max(px[1].Y, px[2].Y)))), 0, h-1)

	const eps = 1e-9
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			cx, cy := float64(x)+0.5, float64(y)+0.5
			w0 := ((px[1].X-cx)*(px[2].Y-cy) - (px[2].X-cx)*(px[1].Y-cy)) / area
			w1 := ((px[2].X-cx)*(px[0].Y-cy) - (px[0].X-cx)*(px[2].Y-cy)) / area
			w2 := 1 - w0 - w1
			if w0 < -eps || w1 < -eps || w2 < -eps {
				continue
			}
			u := w0*source[0].X + w1*source[1].X + w2*source[2].X
			v := w0*source[0].Y + w1*source[1].Y + w2*source[2].Y
			c := sampleBilinear(tex, u, v)
			i := img.PixOffset(x, y)
			for k := 0; k < 4; k++ {
				img.Pix[i+k] = uint8(math.Round(c[k]))
			}
			filled[y*w+x] = true
		}
	}
}

// Grows the filled area by one pixel, averaging the filled neighbours. Reports whether any pixel changed.
func dilate(img *image.NRGBA, filled []bool) bool {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	var grown []int
	var colors [][4]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if filled[y*w+x] {
				continue
			}
			var sum [4]int
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= w || ny >= h || !filled[ny*w+nx] {
						continue
					}
					i := img.PixOffset(nx, ny)
					for k := 0; k < 4; k++ {
						sum[k] += int(img.Pix[i+k])
					}
					n++
				}
			}
			if n == 0 {
				continue
			}
			grown = append(grown, y*w+x)
			colors = append(colors, [4]uint8{uint8(sum[0] / n), uint8(sum[1] / n), uint8(sum[2] / n), uint8(sum[3] / n)})
		}
	}
	for j, p := range grown {
		i := img.PixOffset(p%w, p/w)
		copy(img.Pix[i:i+4], colors[j][:])
		filled[p] = true
	}
	return len(grown) > 0
}
