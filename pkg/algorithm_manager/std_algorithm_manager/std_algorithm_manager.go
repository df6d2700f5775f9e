package std_algorithm_manager

import (
	"github.com/ecopia-map/mesh_tiler/internal/backend"
	"github.com/ecopia-map/mesh_tiler/internal/backend/memory"
	"github.com/ecopia-map/mesh_tiler/internal/converters"
	"github.com/ecopia-map/mesh_tiler/internal/converters/elevation/offset_elevation_corrector"
	"github.com/ecopia-map/mesh_tiler/internal/converters/proj4_converter"
	"github.com/ecopia-map/mesh_tiler/internal/tiler"
	"github.com/ecopia-map/mesh_tiler/internal/tileset"
	"github.com/ecopia-map/mesh_tiler/pkg/algorithm_manager"
)

type StandardAlgorithmManager struct {
	options             *tiler.TilerOptions
	coordinateConverter converters.CoordinateConverter
	elevationCorrector  converters.ElevationCorrector
}

func NewAlgorithmManager(opts *tiler.TilerOptions) algorithm_manager.AlgorithmManager {
	var coordinateConverter converters.CoordinateConverter
	if opts.Georeferenced() {
		coordinateConverter = proj4_converter.NewProj4CoordinateConverter(opts.SourceProj)
	}

	return &StandardAlgorithmManager{
		options:             opts,
		coordinateConverter: coordinateConverter,
		elevationCorrector:  offset_elevation_corrector.NewOffsetElevationCorrector(opts.ZOffset),
	}
}

func (am *StandardAlgorithmManager) GetScene() backend.Backend {
	return memory.NewScene()
}

func (am *StandardAlgorithmManager) GetElevationCorrectionAlgorithm() converters.ElevationCorrector {
	return am.elevationCorrector
}

func (am *StandardAlgorithmManager) GetCoordinateConverterAlgorithm() converters.CoordinateConverter {
	return am.coordinateConverter
}

func (am *StandardAlgorithmManager) GetLodPolicy() tileset.LodPolicy {
	return tileset.DefaultLodPolicy()
}
