package memory

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
)

const DefaultUVLayer = "UVMap"

type polygon struct {
	verts    []int
	material int
}

type uvLayer struct {
	name string
	uvs  []r2.Point
}

// Vertices carry one UV per layer, so UV seams are represented by split vertices
type mesh struct {
	name      string
	positions []r3.Vector
	layers    []*uvLayer
	active    int
	faces     []polygon
	materials []backend.MaterialHandle
	transform mgl64.Mat4
}

// Input of CreateMesh
type MeshInput struct {
	Name          string
	Positions     []r3.Vector
	UVs           []r2.Point // one per position
	Faces         [][]int
	FaceMaterials []int // material slot per face, all zero when empty
	Materials     []backend.MaterialHandle
}

// Adds a mesh built from raw arrays to the scene
func (s *Scene) CreateMesh(in MeshInput) (backend.MeshHandle, error) {
	if len(in.UVs) != 0 && len(in.UVs) != len(in.Positions) {
		return 0, errors.Errorf("mesh %q: %d uvs for %d positions", in.Name, len(in.UVs), len(in.Positions))
	}
	if len(in.FaceMaterials) != 0 && len(in.FaceMaterials) != len(in.Faces) {
		return 0, errors.Errorf("mesh %q: %d face materials for %d faces", in.Name, len(in.FaceMaterials), len(in.Faces))
	}
	for _, mat := range in.Materials {
		if _, err := s.material(mat); err != nil {
			return 0, err
		}
	}

	uvs := make([]r2.Point, len(in.Positions))
	copy(uvs, in.UVs)
	m := &mesh{
		name:      s.uniqueMeshName(in.Name),
		positions: append([]r3.Vector(nil), in.Positions...),
		layers:    []*uvLayer{{name: DefaultUVLayer, uvs: uvs}},
		materials: append([]backend.MaterialHandle(nil), in.Materials...),
		transform: mgl64.Ident4(),
	}
	for i, f := range in.Faces {
		if len(f) < 3 {
			return 0, errors.Errorf("mesh %q: face %d has %d vertices", in.Name, i, len(f))
		}
		for _, v := range f {
			if v < 0 || v >= len(in.Positions) {
				return 0, errors.Errorf("mesh %q: face %d references vertex %d", in.Name, i, v)
			}
		}
		p := polygon{verts: append([]int(nil), f...)}
		if len(in.FaceMaterials) != 0 {
			p.material = in.FaceMaterials[i]
		}
		m.faces = append(m.faces, p)
	}
	return s.addMesh(m), nil
}

func (m *mesh) world(p r3.Vector) r3.Vector {
	v := m.transform.Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

func (m *mesh) faceCenter(f polygon) r3.Vector {
	var sum r3.Vector
	for _, v := range f.verts {
		sum = sum.Add(m.positions[v])
	}
	return m.world(sum.Mul(1 / float64(len(f.verts))))
}

func (m *mesh) layer(name string) (*uvLayer, error) {
	for _, l := range m.layers {
		if l.name == name {
			return l, nil
		}
	}
	return nil, errors.Wrapf(ErrNotFound, "mesh %q: uv layer %q", m.name, name)
}

func (m *mesh) activeLayer() *uvLayer {
	if len(m.layers) == 0 {
		return nil
	}
	return m.layers[m.active]
}

// Returns a compacted copy holding only the given faces
func (m *mesh) subset(faces []int) *mesh {
	remap := make(map[int]int)
	out := &mesh{
		name:      m.name,
		active:    m.active,
		materials: append([]backend.MaterialHandle(nil), m.materials...),
		transform: m.transform,
	}
	var order []int
	for _, fi := range faces {
		f := m.faces[fi]
		p := polygon{verts: make([]int, len(f.verts)), material: f.material}
		for i, v := range f.verts {
			nv, ok := remap[v]
			if !ok {
				nv = len(order)
				remap[v] = nv
				order = append(order, v)
			}
			p.verts[i] = nv
		}
		out.faces = append(out.faces, p)
	}
	out.positions = make([]r3.Vector, len(order))
	for i, v := range order {
		out.positions[i] = m.positions[v]
	}
	for _, l := range m.layers {
		nl := &uvLayer{name: l.name, uvs: make([]r2.Point, len(order))}
		for i, v := range order {
			nl.uvs[i] = l.uvs[v]
		}
		out.layers = append(out.layers, nl)
	}
	return out
}

func (m *mesh) allFaces() []int {
	all := make([]int, len(m.faces))
	for i := range all {
		all[i] = i
	}
	return all
}

func (s *Scene) Duplicate(h backend.MeshHandle, name string) (backend.MeshHandle, error) {
	m, err := s.mesh(h)
	if err != nil {
		return 0, err
	}
	if _, taken := s.MeshByName(name); taken {
		return 0, errors.Errorf("mesh name %q already in use", name)
	}
	dup := m.subset(m.allFaces())
	dup.name = name
	return s.addMesh(dup), nil
}

func (s *Scene) SeparateByPredicate(h backend.MeshHandle, predicates ...backend.FacePredicate) ([]backend.MeshHandle, error) {
	m, err := s.mesh(h)
	if err != nil {
		return nil, err
	}
	groups := make([][]int, len(predicates))
	var rest []int
	for i, f := range m.faces {
		face := backend.Face{Index: i, Center: m.faceCenter(f), Material: f.material}
		matched := false
		for g, pred := range predicates {
			if pred(face) {
				groups[g] = append(groups[g], i)
				matched = true
				break
			}
		}
		if !matched {
			rest = append(rest, i)
		}
	}

	out := make([]backend.MeshHandle, len(predicates))
	for g, faces := range groups {
		if len(faces) == 0 {
			continue
		}
		part := m.subset(faces)
		part.name = s.uniqueMeshName(m.name)
		out[g] = s.addMesh(part)
	}
	remaining := m.subset(rest)
	m.positions, m.layers, m.faces = remaining.positions, remaining.layers, remaining.faces
	return out, nil
}

func (s *Scene) FaceCount(h backend.MeshHandle) (int, error) {
	m, err := s.mesh(h)
	if err != nil {
		return 0, err
	}
	return len(m.faces), nil
}

func (s *Scene) BoundingBoxWorldSpace(h backend.MeshHandle) ([8]r3.Vector, error) {
	var corners [8]r3.Vector
	m, err := s.mesh(h)
	if err != nil {
		return corners, err
	}
	if len(m.positions) == 0 {
		return corners, errors.Errorf("mesh %q has no vertices", m.name)
	}
	lo := r3.Vector{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi := r3.Vector{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, p := range m.positions {
		lo = r3.Vector{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
		hi = r3.Vector{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
	}
	for i := range corners {
		c := lo
		if i&1 == 1 {
			c.X = hi.X
		}
		if i&2 == 2 {
			c.Y = hi.Y
		}
		if i&4 == 4 {
			c.Z = hi.Z
		}
		corners[i] = m.world(c)
	}
	return corners, nil
}

func (s *Scene) SetTransform(h backend.MeshHandle, transform mgl64.Mat4) error {
	m, err := s.mesh(h)
	if err != nil {
		return err
	}
	m.transform = transform
	return nil
}

func (s *Scene) Transform(h backend.MeshHandle) (mgl64.Mat4, error) {
	m, err := s.mesh(h)
	if err != nil {
		return mgl64.Mat4{}, err
	}
	return m.transform, nil
}

func (s *Scene) MeshData(h backend.MeshHandle) (*backend.MeshData, error) {
	m, err := s.mesh(h)
	if err != nil {
		return nil, err
	}
	data := &backend.MeshData{
		Name:      m.name,
		Positions: make([]r3.Vector, len(m.positions)),
		UVs:       make([]r2.Point, len(m.positions)),
		Faces:     make([][]int, len(m.faces)),
	}
	for i, p := range m.positions {
		data.Positions[i] = m.world(p)
	}
	if l := m.activeLayer(); l != nil {
		copy(data.UVs, l.uvs)
	}
	for i, f := range m.faces {
		data.Faces[i] = append([]int(nil), f.verts...)
	}
	if len(m.materials) > 0 {
		if mat, err := s.material(m.materials[0]); err == nil && len(mat.textures) > 0 {
			if t, err := s.texture(mat.textures[0]); err == nil {
				data.Texture = cloneNRGBA(t.img)
			}
		}
	}
	return data, nil
}
