package io

import "github.com/ecopia-map/mesh_tiler/internal/backend"

// Contains the minimal data needed to produce a single tile content, i.e. a binary .glb file.
// Data is a detached snapshot, consumers never reach back into the scene.
type WorkUnit struct {
	Name string
	URI  string
	Data *backend.MeshData
}
