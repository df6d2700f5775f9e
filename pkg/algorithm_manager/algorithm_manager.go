package algorithm_manager

import (
	"github.com/ecopia-map/mesh_tiler/internal/backend"
	"github.com/ecopia-map/mesh_tiler/internal/converters"
	"github.com/ecopia-map/mesh_tiler/internal/tileset"
)

type AlgorithmManager interface {
	// A new empty scene, one per processed chunk
	GetScene() backend.Backend
	GetElevationCorrectionAlgorithm() converters.ElevationCorrector
	// nil when the output is not georeferenced
	GetCoordinateConverterAlgorithm() converters.CoordinateConverter
	GetLodPolicy() tileset.LodPolicy
}
