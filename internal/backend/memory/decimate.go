package memory

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
)

type edge struct {
	a, b   int
	length float64
}

// Collapses the shortest edges until the face count drops to ceil(ratio * faces) or no edge can be
// collapsed anymore. Polygons are kept as polygons unless triangulation is requested.
func (s *Scene) Decimate(h backend.MeshHandle, opts backend.DecimateOptions) error {
	m, err := s.mesh(h)
	if err != nil {
		return err
	}
	if opts.Ratio <= 0 || opts.Ratio > 1 {
		return errors.Errorf("mesh %q: decimate ratio %v out of (0, 1]", m.name, opts.Ratio)
	}
	if opts.Ratio == 1 || len(m.faces) == 0 {
		return nil
	}
	if opts.Triangulate {
		m.triangulate()
	}
	target := int(math.Ceil(opts.Ratio * float64(len(m.faces))))
	if target < 1 {
		target = 1
	}

	alive := len(m.faces)
	dead := make([]bool, len(m.faces))
	for alive > target {
		locked := m.lockedVertices(dead, opts.PreserveSeams)
		edges := m.edges(dead)
		sort.Slice(edges, func(i, j int) bool { return edges[i].length < edges[j].length })

		vertFaces := make([][]int, len(m.positions))
		for fi, f := range m.faces {
			if dead[fi] {
				continue
			}
			for _, v := range f.verts {
				vertFaces[v] = append(vertFaces[v], fi)
			}
		}

		touched := make([]bool, len(m.positions))
		collapsed := 0
		for _, e := range edges {
			if alive <= target {
				break
			}
			keep, drop := e.a, e.b
			if locked[drop] {
				keep, drop = drop, keep
			}
			if locked[drop] || touched[keep] || touched[drop] {
				continue
			}
			if !m.canCollapse(vertFaces[drop], keep, drop) {
				continue
			}
			for _, fi := range vertFaces[drop] {
				if dead[fi] {
					continue
				}
				for _, v := range m.faces[fi].verts {
					touched[v] = true
				}
				m.faces[fi].verts = replaceVertex(m.faces[fi].verts, drop, keep)
				if len(m.faces[fi].verts) < 3 {
					dead[fi] = true
					alive--
				} else {
					vertFaces[keep] = append(vertFaces[keep], fi)
				}
			}
			vertFaces[drop] = nil
			collapsed++
		}
		if collapsed == 0 {
			break
		}
	}

	var live []int
	for fi := range m.faces {
		if !dead[fi] {
			live = append(live, fi)
		}
	}
	m.compact(live)
	return nil
}

func (m *mesh) triangulate() {
	var out []polygon
	for _, f := range m.faces {
		for i := 1; i+1 < len(f.verts); i++ {
			out = append(out, polygon{verts: []int{f.verts[0], f.verts[i], f.verts[i+1]}, material: f.material})
		}
	}
	m.faces = out
}

// Vertices on open or non-manifold edges. With split seam vertices this covers UV seams as well.
func (m *mesh) lockedVertices(dead []bool, preserveSeams bool) []bool {
	locked := make([]bool, len(m.positions))
	if !preserveSeams {
		return locked
	}
	count := make(map[[2]int]int)
	for fi, f := range m.faces {
		if dead[fi] {
			continue
		}
		for i, a := range f.verts {
			count[edgeKey(a, f.verts[(i+1)%len(f.verts)])]++
		}
	}
	for k, n := range count {
		if n != 2 {
			locked[k[0]] = true
			locked[k[1]] = true
		}
	}
	return locked
}

func (m *mesh) edges(dead []bool) []edge {
	seen := make(map[[2]int]bool)
	var out []edge
	for fi, f := range m.faces {
		if dead[fi] {
			continue
		}
		for i, a := range f.verts {
			b := f.verts[(i+1)%len(f.verts)]
			k := edgeKey(a, b)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, edge{a: k[0], b: k[1], length: m.positions[a].Sub(m.positions[b]).Norm()})
		}
	}
	return out
}

// A collapse is refused when a polygon holds both vertices without them being adjacent,
// the merge would pinch it into a bow tie
func (m *mesh) canCollapse(faces []int, keep, drop int) bool {
	for _, fi := range faces {
		verts := m.faces[fi].verts
		n := len(verts)
		for i, v := range verts {
			if v != drop {
				continue
			}
			for j, w := range verts {
				if w == keep && j != (i+1)%n && i != (j+1)%n {
					return false
				}
			}
		}
	}
	return true
}

func replaceVertex(verts []int, from, to int) []int {
	out := make([]int, len(verts))
	for i, v := range verts {
		if v == from {
			v = to
		}
		out[i] = v
	}
	return dedupeLoop(out)
}

// Drops repeated consecutive vertices of a closed loop
func dedupeLoop(verts []int) []int {
	out := make([]int, 0, len(verts))
	for _, v := range verts {
		if len(out) > 0 && out[len(out)-1] == v {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Keeps the given faces and drops unused vertices
func (m *mesh) compact(faces []int) {
	c := m.subset(faces)
	m.positions, m.layers, m.faces = c.positions, c.layers, c.faces
}
