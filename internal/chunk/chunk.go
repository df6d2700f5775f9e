// Package chunk loads the textured OBJ of one grid cell into the scene and prepares it as the
// root of a tileset.
package chunk

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
)

const DefaultMaxAtlasSize = 8192

var gridFilePattern = regexp.MustCompile(`^Tile-(-?\d+)-(-?\d+)`)

type Chunk struct {
	GridX int
	GridY int
	Mesh  backend.MeshHandle
}

type LoadOptions struct {
	Scale            float64 // uniform object scale, 1 when zero
	Clean            bool    // dissolve degenerate faces and merge duplicate vertices
	CombineMaterials bool    // bake every material into a single atlas
	YUp              bool
	MaxAtlasSize     int
}

// Name of the root object of a chunk before tiling
func RootName(gridX, gridY int) string {
	return fmt.Sprintf("tile_%d_%d", gridX, gridY)
}

func (c *Chunk) Name() string {
	return RootName(c.GridX, c.GridY)
}

// Parses grid coordinates out of file names like Tile-106-69-1-1.obj
func GridFromFileName(path string) (int, int, error) {
	match := gridFilePattern.FindStringSubmatch(filepath.Base(path))
	if match == nil {
		return 0, 0, errors.Errorf("file name %s does not follow the Tile-<x>-<y> pattern", filepath.Base(path))
	}
	x, err := strconv.Atoi(match[1])
	if err != nil {
		return 0, 0, errors.Wrap(err, "grid x")
	}
	y, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, 0, errors.Wrap(err, "grid y")
	}
	return x, y, nil
}

// Imports the OBJ at path as the root object of the chunk at gridX, gridY
func Load(scene backend.Backend, path string, gridX, gridY int, opts LoadOptions) (*Chunk, error) {
	mesh, err := scene.ImportMesh(path, backend.ImportOptions{YUp: opts.YUp})
	if err != nil {
		return nil, errors.Wrapf(err, "load chunk %d %d", gridX, gridY)
	}
	c := &Chunk{GridX: gridX, GridY: gridY, Mesh: mesh}
	if err := scene.RenameMesh(mesh, c.Name()); err != nil {
		return nil, errors.Wrap(err, "rename chunk root")
	}

	scale := opts.Scale
	if scale == 0 {
		scale = 1
	}
	if err := scene.SetTransform(mesh, mgl64.Scale3D(scale, scale, scale)); err != nil {
		return nil, errors.Wrap(err, "set chunk transform")
	}

	if opts.Clean {
		if err := scene.CleanMesh(mesh, backend.CleanOptions{}); err != nil {
			return nil, errors.Wrap(err, "clean chunk")
		}
	}

	mats, err := scene.Materials(mesh)
	if err != nil {
		return nil, err
	}
	if opts.CombineMaterials && len(mats) > 1 {
		maxSize := opts.MaxAtlasSize
		if maxSize <= 0 {
			maxSize = DefaultMaxAtlasSize
		}
		if err := CombineMaterials(scene, mesh, maxSize); err != nil {
			return nil, err
		}
	}
	glog.Infof("chunk %s loaded from %s", c.Name(), path)
	return c, nil
}

// Finds a chunk root that is already present in the scene
func Lookup(scene backend.Backend, gridX, gridY int) (*Chunk, error) {
	name := RootName(gridX, gridY)
	mesh, ok := scene.MeshByName(name)
	if !ok {
		return nil, errors.Errorf("root tile %s could not be found", name)
	}
	return &Chunk{GridX: gridX, GridY: gridY, Mesh: mesh}, nil
}
