package memory

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/glog"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
)

const DefaultMergeDistance = 0.0001

func (s *Scene) CleanMesh(h backend.MeshHandle, opts backend.CleanOptions) error {
	m, err := s.mesh(h)
	if err != nil {
		return err
	}
	dist := opts.MergeDistance
	if dist <= 0 {
		dist = DefaultMergeDistance
	}

	merged := m.mergeDoubles(dist)

	var keep []int
	for fi := range m.faces {
		verts := m.faces[fi].verts
		for i := range verts {
			verts[i] = merged[verts[i]]
		}
		verts = dedupeLoop(verts)
		m.faces[fi].verts = verts
		if len(verts) < 3 || m.polygonArea3D(verts) < dist*dist {
			continue
		}
		keep = append(keep, fi)
	}
	removed := len(m.faces) - len(keep)
	before := len(m.positions)
	m.compact(keep)
	glog.V(1).Infof("clean %s: %d degenerate faces dissolved, %d vertices merged", m.name, removed, before-len(m.positions))
	return nil
}

// Maps every vertex to the first vertex lying within dist and carrying the same UVs on all layers
func (m *mesh) mergeDoubles(dist float64) []int {
	type cell [3]int64
	key := func(p r3.Vector) cell {
		return cell{int64(math.Floor(p.X / dist)), int64(math.Floor(p.Y / dist)), int64(math.Floor(p.Z / dist))}
	}
	grid := make(map[cell][]int)
	out := make([]int, len(m.positions))
	for v, p := range m.positions {
		out[v] = v
		c := key(p)
	search:
		for dx := int64(-1); dx <= 1; dx++ {
			for dy := int64(-1); dy <= 1; dy++ {
				for dz := int64(-1); dz <= 1; dz++ {
					for _, other := range grid[cell{c[0] + dx, c[1] + dy, c[2] + dz}] {
						if m.positions[other].Sub(p).Norm() <= dist && m.sameUVs(v, other) {
							out[v] = other
							break search
						}
					}
				}
			}
		}
		if out[v] == v {
			grid[c] = append(grid[c], v)
		}
	}
	return out
}

func (m *mesh) sameUVs(a, b int) bool {
	const eps = 1e-9
	for _, l := range m.layers {
		if math.Abs(l.uvs[a].X-l.uvs[b].X) > eps || math.Abs(l.uvs[a].Y-l.uvs[b].Y) > eps {
			return false
		}
	}
	return true
}
