package io

import "github.com/ecopia-map/mesh_tiler/internal/tileset"

// A Producer receives finished tiles from the build and submits them as WorkUnits.
// Close must be called once the build is over so that consumers can quit.
type Producer interface {
	tileset.Flusher
	Close()
}
