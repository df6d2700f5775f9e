package memory

import (
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
)

func (s *Scene) NewImage(name string, width, height int, transparent bool) (backend.ImageHandle, error) {
	if width < 1 || height < 1 {
		return 0, errors.Errorf("image %q: invalid size %dx%d", name, width, height)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	if !transparent {
		draw.Draw(img, img.Bounds(), &image.Uniform{C: color.NRGBA{A: 255}}, image.Point{}, draw.Src)
	}
	h := backend.ImageHandle(s.handle())
	s.images[h] = &texture{name: name, img: img}
	return h, nil
}

func (s *Scene) CopyImage(h backend.ImageHandle, name string) (backend.ImageHandle, error) {
	t, err := s.texture(h)
	if err != nil {
		return 0, err
	}
	dst := backend.ImageHandle(s.handle())
	s.images[dst] = &texture{name: name, img: cloneNRGBA(t.img)}
	return dst, nil
}

// Resamples the image in place
func (s *Scene) ScaleImage(h backend.ImageHandle, width, height int) error {
	t, err := s.texture(h)
	if err != nil {
		return err
	}
	if width < 1 || height < 1 {
		return errors.Errorf("image %q: invalid size %dx%d", t.name, width, height)
	}
	if t.img.Bounds().Dx() == width && t.img.Bounds().Dy() == height {
		return nil
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), t.img, t.img.Bounds(), draw.Src, nil)
	t.img = dst
	return nil
}

func (s *Scene) ImageSize(h backend.ImageHandle) (int, int, error) {
	t, err := s.texture(h)
	if err != nil {
		return 0, 0, err
	}
	return t.img.Bounds().Dx(), t.img.Bounds().Dy(), nil
}

// Returns the pixels of the image, for inspection
func (s *Scene) Image(h backend.ImageHandle) (*image.NRGBA, error) {
	t, err := s.texture(h)
	if err != nil {
		return nil, err
	}
	return t.img, nil
}

func cloneNRGBA(img *image.NRGBA) *image.NRGBA {
	out := &image.NRGBA{
		Pix:    make([]uint8, len(img.Pix)),
		Stride: img.Stride,
		Rect:   img.Rect,
	}
	copy(out.Pix, img.Pix)
	return out
}

// Bilinear lookup at UV coordinates, v pointing up
func sampleBilinear(img *image.NRGBA, u, v float64) [4]float64 {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	x := u*float64(w) - 0.5
	y := (1-v)*float64(h) - 0.5
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0

	at := func(px, py int) [4]float64 {
		px = clampInt(px, 0, w-1)
		py = clampInt(py, 0, h-1)
		i := img.PixOffset(px, py)
		return [4]float64{float64(img.Pix[i]), float64(img.Pix[i+1]), float64(img.Pix[i+2]), float64(img.Pix[i+3])}
	}
	c00, c10 := at(int(x0), int(y0)), at(int(x0)+1, int(y0))
	c01, c11 := at(int(x0), int(y0)+1), at(int(x0)+1, int(y0)+1)

	var out [4]float64
	for k := 0; k < 4; k++ {
		top := c00[k]*(1-fx) + c10[k]*fx
		bottom := c01[k]*(1-fx) + c11[k]*fx
		out[k] = top*(1-fy) + bottom*fy
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
