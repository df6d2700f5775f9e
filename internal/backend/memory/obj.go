package memory

import (
	"bufio"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
)

type objVertexKey struct {
	v, vt int
}

type objReader struct {
	dir       string
	yUp       bool
	positions []r3.Vector
	texcoords []r2.Point
	materials []string
	libraries []string
	input     MeshInput
	vertices  map[objVertexKey]int
	current   int
}

// Imports a Wavefront OBJ file together with its MTL libraries and diffuse textures.
// Vertices are split per (position, texcoord) pair.
func (s *Scene) ImportMesh(path string, opts backend.ImportOptions) (backend.MeshHandle, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "import")
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	r := &objReader{
		dir:      filepath.Dir(path),
		yUp:      opts.YUp,
		vertices: make(map[objVertexKey]int),
		input:    MeshInput{Name: name},
		current:  -1,
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if err := r.parseLine(scanner.Text()); err != nil {
			return 0, errors.Wrapf(err, "%s:%d", path, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, errors.Wrap(err, path)
	}

	mats, err := s.loadMaterials(r)
	if err != nil {
		return 0, err
	}
	r.input.Materials = mats
	for i := range r.input.FaceMaterials {
		if r.input.FaceMaterials[i] < 0 {
			r.input.FaceMaterials[i] = 0
		}
	}
	glog.V(1).Infof("imported %s: %d vertices, %d faces, %d materials", path, len(r.input.Positions), len(r.input.Faces), len(mats))
	return s.CreateMesh(r.input)
}

func (r *objReader) parseLine(text string) error {
	fields := strings.Fields(text)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		p := r3.Vector{X: v[0], Y: v[1], Z: v[2]}
		if r.yUp {
			p = r3.Vector{X: p.X, Y: -p.Z, Z: p.Y}
		}
		r.positions = append(r.positions, p)
	case "vt":
		v, err := parseFloats(fields[1:], 2)
		if err != nil {
			return err
		}
		r.texcoords = append(r.texcoords, r2.Point{X: v[0], Y: v[1]})
	case "f":
		return r.parseFace(fields[1:])
	case "usemtl":
		if len(fields) < 2 {
			return errors.New("usemtl without a name")
		}
		r.current = r.materialSlot(strings.Join(fields[1:], " "))
	case "mtllib":
		r.libraries = append(r.libraries, fields[1:]...)
	}
	return nil
}

func (r *objReader) materialSlot(name string) int {
	for i, m := range r.materials {
		if m == name {
			return i
		}
	}
	r.materials = append(r.materials, name)
	return len(r.materials) - 1
}

func (r *objReader) parseFace(refs []string) error {
	if len(refs) < 3 {
		return errors.Errorf("face with %d vertices", len(refs))
	}
	face := make([]int, len(refs))
	for i, ref := range refs {
		parts := strings.Split(ref, "/")
		v, err := resolveIndex(parts[0], len(r.positions))
		if err != nil {
			return err
		}
		vt := -1
		if len(parts) > 1 && parts[1] != "" {
			if vt, err = resolveIndex(parts[1], len(r.texcoords)); err != nil {
				return err
			}
		}
		key := objVertexKey{v: v, vt: vt}
		idx, ok := r.vertices[key]
		if !ok {
			idx = len(r.input.Positions)
			r.vertices[key] = idx
			r.input.Positions = append(r.input.Positions, r.positions[v])
			uv := r2.Point{}
			if vt >= 0 {
				uv = r.texcoords[vt]
			}
			r.input.UVs = append(r.input.UVs, uv)
		}
		face[i] = idx
	}
	r.input.Faces = append(r.input.Faces, face)
	r.input.FaceMaterials = append(r.input.FaceMaterials, r.current)
	return nil
}

// OBJ indices are 1 based, negative values count back from the last element
func resolveIndex(s string, n int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "index %q", s)
	}
	if i < 0 {
		i = n + i
	} else {
		i--
	}
	if i < 0 || i >= n {
		return 0, errors.Errorf("index %s out of range (%d elements)", s, n)
	}
	return i, nil
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) < n {
		return nil, errors.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, errors.Wrapf(err, "value %q", fields[i])
		}
		out[i] = v
	}
	return out, nil
}

// Creates one scene material per usemtl name, with a texture node when the MTL names a map_Kd
func (s *Scene) loadMaterials(r *objReader) ([]backend.MaterialHandle, error) {
	textures := make(map[string]string)
	for _, lib := range r.libraries {
		maps, err := parseMtl(filepath.Join(r.dir, lib))
		if err != nil {
			return nil, err
		}
		for k, v := range maps {
			textures[k] = v
		}
	}

	names := r.materials
	if len(names) == 0 {
		names = []string{"Material"}
	}
	images := make(map[string]backend.ImageHandle)
	out := make([]backend.MaterialHandle, len(names))
	for i, name := range names {
		mat := s.NewMaterial(name)
		out[i] = mat
		texPath, ok := textures[name]
		if !ok {
			glog.Warningf("material %s has no diffuse texture", name)
			continue
		}
		img, ok := images[texPath]
		if !ok {
			decoded, err := decodeImage(texPath)
			if err != nil {
				return nil, err
			}
			img = s.AddImage(filepath.Base(texPath), decoded)
			images[texPath] = img
		}
		if err := s.SetTextureNodes(mat, img); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Returns the absolute map_Kd path of every material in the library
func parseMtl(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "mtl")
	}
	defer f.Close()

	out := make(map[string]string)
	current := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "newmtl":
			current = strings.Join(fields[1:], " ")
		case "map_Kd":
			// options like -bm come first, the file name is last
			tex := fields[len(fields)-1]
			if !filepath.IsAbs(tex) {
				tex = filepath.Join(filepath.Dir(path), tex)
			}
			out[current] = tex
		}
	}
	return out, errors.Wrap(scanner.Err(), path)
}

func decodeImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "texture")
	}
	defer f.Close()

	// decoded by extension, tga registers an empty magic string matching any input
	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		img, err = png.Decode(f)
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(f)
	case ".bmp":
		img, err = bmp.Decode(f)
	case ".tif", ".tiff":
		img, err = tiff.Decode(f)
	case ".tga":
		img, err = tga.Decode(f)
	default:
		return nil, errors.Errorf("unsupported texture format %s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}
