package pkg

import (
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
	"github.com/ecopia-map/mesh_tiler/internal/geometry"
	"github.com/ecopia-map/mesh_tiler/internal/io"
	"github.com/ecopia-map/mesh_tiler/internal/tiler"
	"github.com/ecopia-map/mesh_tiler/internal/tileset"
	"github.com/ecopia-map/mesh_tiler/pkg/algorithm_manager"
	"github.com/ecopia-map/mesh_tiler/tools"
)

// Tolerance of the parent footprint containment check, in scene units
const containmentEps = 1e-6

type TilerVerify struct {
	fileFinder       tools.FileFinder
	algorithmManager algorithm_manager.AlgorithmManager
}

func NewTilerVerify(fileFinder tools.FileFinder, algorithmManager algorithm_manager.AlgorithmManager) tiler.ITiler {
	return &TilerVerify{
		fileFinder:       fileFinder,
		algorithmManager: algorithmManager,
	}
}

// Rebuilds every chunk in memory and checks the resulting tree. All the violations found are
// returned together.
func (tilerVerify *TilerVerify) RunTiler(opts *tiler.TilerOptions) error {
	objFiles, err := tilerVerify.fileFinder.GetObjFilesToProcess(opts)
	if err != nil {
		return err
	}
	if converter := tilerVerify.algorithmManager.GetCoordinateConverterAlgorithm(); converter != nil {
		defer converter.Cleanup()
	}

	var result error
	for _, filePath := range objFiles {
		if err := tilerVerify.verifyObjFile(filePath, opts); err != nil {
			result = multierr.Append(result, wrapChunk(err, filePath))
			continue
		}
		tools.LogOutput("> verified", filepath.Base(filePath))
	}
	return result
}

func (tilerVerify *TilerVerify) verifyObjFile(filePath string, opts *tiler.TilerOptions) error {
	scene := tilerVerify.algorithmManager.GetScene()
	c, err := loadChunk(scene, filePath, opts)
	if err != nil {
		return err
	}
	buildOpts, err := buildOptions(tilerVerify.algorithmManager, opts)
	if err != nil {
		return err
	}

	built, err := tileset.Create(scene, c.Mesh, opts.MaxDepth, buildOpts...)
	if err != nil {
		return err
	}

	var result error
	result = multierr.Append(result, VerifyTileset(scene, built))

	if opts.TilerVerifyOptions != nil && opts.TilerVerifyOptions.Output != "" {
		result = multierr.Append(result, tilerVerify.compareWithOutput(built, c.Name(), opts))
	}
	return result
}

// Checks the invariants of a built tree against the scene it was built in
func VerifyTileset(scene backend.Backend, built *tileset.Tileset) error {
	var result error
	tiles := built.Tiles()

	rebuilt, err := tileset.Get(scene, built.Root.Name)
	if err != nil {
		result = multierr.Append(result, err)
	} else {
		result = multierr.Append(result, compareStructure(built.Root, rebuilt.Root))
	}

	_ = built.Walk(func(tile *tileset.Tile) error {
		for _, child := range tile.Children {
			if !tools.IsFloatLessOrEqual(child.GeometricError, tile.GeometricError) {
				result = multierr.Append(result, errors.Errorf("geometric error grows from %s (%g) to %s (%g)",
					tile.Name, tile.GeometricError, child.Name, child.GeometricError))
			}
			parentBox, childBox := tile.BoundingVolume.BoundingBox(), child.BoundingVolume.BoundingBox()
			if !parentBox.ContainsXY(childBox, containmentEps) {
				glog.Warningf("%s footprint exceeds the one of its parent %s", child.Name, tile.Name)
			}
			center := childBox.Center()
			quadrant := geometry.NewBoundingBoxFromParent(parentBox, uint8(child.Quadrant))
			if !quadrant.ContainsXY(geometry.NewBoundingBox(center.X, center.X, center.Y, center.Y, center.Z, center.Z), containmentEps) {
				glog.Warningf("%s is centered outside quadrant %d of %s", child.Name, child.Quadrant, tile.Name)
			}
		}
		return nil
	})

	// every tile owns exactly one mesh, one material and one image
	expected := backend.Stats{Meshes: len(tiles), Materials: len(tiles), Images: len(tiles)}
	if stats := scene.Stats(); stats != expected {
		result = multierr.Append(result, errors.Errorf("scene holds %+v after the build, want %+v", stats, expected))
	}

	glog.Infof("%s: %d tiles verified", built.Root.Name, len(tiles))
	return result
}

func compareStructure(built, rebuilt *tileset.Tile) error {
	if built.Name != rebuilt.Name {
		return errors.Errorf("tile %s rebuilt as %s", built.Name, rebuilt.Name)
	}
	if len(built.Children) != len(rebuilt.Children) {
		return errors.Errorf("tile %s has %d children, rebuilt with %d", built.Name, len(built.Children), len(rebuilt.Children))
	}
	var result error
	for i := range built.Children {
		result = multierr.Append(result, compareStructure(built.Children[i], rebuilt.Children[i]))
	}
	return result
}

// The tileset.json of a previous index run must reference the same contents as the rebuild
func (tilerVerify *TilerVerify) compareWithOutput(built *tileset.Tileset, chunkName string, opts *tiler.TilerOptions) error {
	kind, err := io.ParseSinkKind(opts.Package)
	if err != nil {
		return err
	}
	doc, err := io.ReadTilesetJson(kind, opts.TilerVerifyOptions.Output, chunkName)
	if err != nil {
		return errors.Wrap(err, "read previous output")
	}

	previous := make(map[string]bool)
	for _, uri := range doc.ContentURIs() {
		previous[uri] = true
	}
	var result error
	for _, tile := range built.Tiles() {
		if !previous[tile.ContentURI] {
			result = multierr.Append(result, errors.Errorf("%s is missing from the previous output", tile.ContentURI))
		}
		delete(previous, tile.ContentURI)
	}
	for uri := range previous {
		result = multierr.Append(result, errors.Errorf("%s in the previous output is not produced anymore", uri))
	}
	return result
}
