package memory

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
)

func (s *Scene) NewUVLayer(h backend.MeshHandle, name string) error {
	m, err := s.mesh(h)
	if err != nil {
		return err
	}
	if _, err := m.layer(name); err == nil {
		return errors.Errorf("mesh %q: uv layer %q already exists", m.name, name)
	}
	uvs := make([]r2.Point, len(m.positions))
	if l := m.activeLayer(); l != nil {
		copy(uvs, l.uvs)
	}
	m.layers = append(m.layers, &uvLayer{name: name, uvs: uvs})
	m.active = len(m.layers) - 1
	return nil
}

func (s *Scene) RemoveUVLayer(h backend.MeshHandle, name string) error {
	m, err := s.mesh(h)
	if err != nil {
		return err
	}
	for i, l := range m.layers {
		if l.name != name {
			continue
		}
		activeName := ""
		if i != m.active {
			activeName = m.activeLayer().name
		}
		m.layers = append(m.layers[:i], m.layers[i+1:]...)
		m.active = 0
		for j, rest := range m.layers {
			if rest.name == activeName {
				m.active = j
			}
		}
		return nil
	}
	return errors.Wrapf(ErrNotFound, "mesh %q: uv layer %q", m.name, name)
}

func (s *Scene) ActiveUVLayer(h backend.MeshHandle) (string, error) {
	m, err := s.mesh(h)
	if err != nil {
		return "", err
	}
	l := m.activeLayer()
	if l == nil {
		return "", errors.Errorf("mesh %q has no uv layers", m.name)
	}
	return l.name, nil
}

func (s *Scene) SetActiveUVLayer(h backend.MeshHandle, name string) error {
	m, err := s.mesh(h)
	if err != nil {
		return err
	}
	for i, l := range m.layers {
		if l.name == name {
			m.active = i
			return nil
		}
	}
	return errors.Wrapf(ErrNotFound, "mesh %q: uv layer %q", m.name, name)
}

func (s *Scene) UVLayers(h backend.MeshHandle) ([]string, error) {
	m, err := s.mesh(h)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(m.layers))
	for i, l := range m.layers {
		names[i] = l.name
	}
	return names, nil
}

func (s *Scene) UVBounds(h backend.MeshHandle, layer string) (r2.Rect, error) {
	m, err := s.mesh(h)
	if err != nil {
		return r2.EmptyRect(), err
	}
	l, err := m.layer(layer)
	if err != nil {
		return r2.EmptyRect(), err
	}
	if len(l.uvs) == 0 {
		return r2.EmptyRect(), errors.Errorf("mesh %q has no vertices", m.name)
	}
	return r2.RectFromPoints(l.uvs...), nil
}

type island struct {
	verts  []int
	faces  []int
	bounds r2.Rect
	offset r2.Point
}

// Groups faces sharing vertices into UV islands
func (m *mesh) islands(uvs []r2.Point) []*island {
	parent := make([]int, len(m.positions))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(v int) int {
		for parent[v] != v {
			parent[v] = parent[parent[v]]
			v = parent[v]
		}
		return v
	}
	for _, f := range m.faces {
		for _, v := range f.verts[1:] {
			a, b := find(f.verts[0]), find(v)
			if a != b {
				parent[b] = a
			}
		}
	}

	byRoot := make(map[int]*island)
	var out []*island
	for fi, f := range m.faces {
		root := find(f.verts[0])
		isl, ok := byRoot[root]
		if !ok {
			isl = &island{}
			byRoot[root] = isl
			out = append(out, isl)
		}
		isl.faces = append(isl.faces, fi)
	}
	seen := make([]bool, len(m.positions))
	for _, isl := range out {
		isl.bounds = r2.EmptyRect()
		for _, fi := range isl.faces {
			for _, v := range m.faces[fi].verts {
				if !seen[v] {
					seen[v] = true
					isl.verts = append(isl.verts, v)
					isl.bounds = isl.bounds.AddPoint(uvs[v])
				}
			}
		}
	}
	return out
}

func polygonArea2D(uvs []r2.Point, verts []int) float64 {
	var a float64
	for i := range verts {
		p, q := uvs[verts[i]], uvs[verts[(i+1)%len(verts)]]
		a += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(a) / 2
}

func (m *mesh) polygonArea3D(verts []int) float64 {
	var a float64
	p0 := m.world(m.positions[verts[0]])
	for i := 1; i+1 < len(verts); i++ {
		p1, p2 := m.world(m.positions[verts[i]]), m.world(m.positions[verts[i+1]])
		a += p1.Sub(p0).Cross(p2.Sub(p0)).Norm() / 2
	}
	return a
}

// Rescales every island so that all share the same UV to world area ratio
func (m *mesh) averageIslandScale(uvs []r2.Point, islands []*island) {
	ratios := make([]float64, len(islands))
	var totalUV, totalWorld float64
	for i, isl := range islands {
		var uvArea, worldArea float64
		for _, fi := range isl.faces {
			uvArea += polygonArea2D(uvs, m.faces[fi].verts)
			worldArea += m.polygonArea3D(m.faces[fi].verts)
		}
		totalUV += uvArea
		totalWorld += worldArea
		if worldArea > 0 {
			ratios[i] = math.Sqrt(uvArea / worldArea)
		}
	}
	if totalWorld == 0 || totalUV == 0 {
		return
	}
	target := math.Sqrt(totalUV / totalWorld)
	for i, isl := range islands {
		if ratios[i] == 0 {
			continue
		}
		f := target / ratios[i]
		origin := isl.bounds.Lo()
		isl.bounds = r2.EmptyRect()
		for _, v := range isl.verts {
			uvs[v] = origin.Add(uvs[v].Sub(origin).Mul(f))
			isl.bounds = isl.bounds.AddPoint(uvs[v])
		}
	}
}

// Shelf packing: islands sorted by height are laid out in rows starting at the UV origin
func (s *Scene) PackUVIslands(h backend.MeshHandle, opts backend.PackOptions) error {
	m, err := s.mesh(h)
	if err != nil {
		return err
	}
	l := m.activeLayer()
	if l == nil {
		return errors.Errorf("mesh %q has no uv layers", m.name)
	}
	if len(m.faces) == 0 {
		return nil
	}
	uvs := l.uvs
	islands := m.islands(uvs)
	if opts.AverageScale {
		m.averageIslandScale(uvs, islands)
	}

	var area, maxW float64
	for _, isl := range islands {
		size := isl.bounds.Size()
		area += size.X * size.Y
		maxW = math.Max(maxW, size.X)
	}
	rowWidth := math.Max(maxW, math.Sqrt(area))
	margin := opts.Margin * math.Max(rowWidth, 1e-12)

	order := make([]*island, len(islands))
	copy(order, islands)
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].bounds.Size().Y > order[j].bounds.Size().Y
	})

	var x, y, rowHeight, extentX, extentY float64
	for i, isl := range order {
		size := isl.bounds.Size()
		if i > 0 && x+size.X > rowWidth+1e-12 {
			x = 0
			y += rowHeight + margin
			rowHeight = 0
		}
		isl.offset = r2.Point{X: x, Y: y}
		x += size.X + margin
		rowHeight = math.Max(rowHeight, size.Y)
		extentX = math.Max(extentX, isl.offset.X+size.X)
		extentY = math.Max(extentY, isl.offset.Y+size.Y)
	}

	sx, sy := 1.0, 1.0
	if opts.Scale {
		if extentX > 0 {
			sx = 1 / extentX
		}
		if extentY > 0 {
			sy = 1 / extentY
		}
	}
	for _, isl := range islands {
		lo := isl.bounds.Lo()
		for _, v := range isl.verts {
			p := uvs[v].Sub(lo).Add(isl.offset)
			uvs[v] = r2.Point{X: p.X * sx, Y: p.Y * sy}
		}
	}
	return nil
}
