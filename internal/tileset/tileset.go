// Package tileset builds a quadtree level of detail hierarchy out of a single textured mesh.
//
// Starting from the root payload, every tile is split into up to four quadrant children down to
// the maximum depth. Each parent is then decimated and its texture downsampled according to its
// distance from the leaves, so that coarse levels are cheap to stream.
package tileset

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/glog"
	"go.uber.org/multierr"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
	"github.com/ecopia-map/mesh_tiler/internal/tiler"
)

// Top level geometric error written for every tileset
const TilesetGeometricError = 1.0

// Maps the Y-up glTF payloads back to the Z-up tileset frame: a payload position (x, z, -y)
// becomes (x, y, z) again. Column major, the rotation is (x, y, z) -> (x, -z, y).
var AxisCorrection = mgl64.Mat4{
	1, 0, 0, 0,
	0, 0, 1, 0,
	0, -1, 0, 0,
	0, 0, 0, 1,
}

type Tileset struct {
	GeometricError float64
	Root           *Tile
}

type options struct {
	policy        LodPolicy
	flusher       Flusher
	rootTransform mgl64.Mat4
}

type Option func(*options)

func WithPolicy(policy LodPolicy) Option {
	return func(o *options) { o.policy = policy }
}

// Every finished tile is handed to flusher, in post order
func WithFlusher(flusher Flusher) Option {
	return func(o *options) { o.flusher = flusher }
}

// Replaces the axis correction matrix set on the root tile, e.g. with a georeferenced frame
func WithRootTransform(transform mgl64.Mat4) Option {
	return func(o *options) { o.rootTransform = transform }
}

func newOptions(opts []Option) *options {
	o := &options{
		policy:        DefaultLodPolicy(),
		rootTransform: AxisCorrection,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Builds the whole tree out of the root mesh. The root must hold exactly one material with
// exactly one texture node. On success the root mesh and its material are renamed <name>__1.
func Create(scene backend.Backend, root backend.MeshHandle, maxDepth int, opts ...Option) (*Tileset, error) {
	o := newOptions(opts)

	name, mat, err := validateRoot(scene, root, maxDepth)
	if err != nil {
		return nil, err
	}

	rootName := name + "__1"
	if err := scene.RenameMesh(root, rootName); err != nil {
		return nil, backendError(name, "rename root", err)
	}
	if err := scene.RenameMaterial(mat, rootName); err != nil {
		return nil, backendError(rootName, "rename root material", err)
	}
	content, err := NewContent(scene, root)
	if err != nil {
		return nil, backendError(rootName, "root content", err)
	}

	glog.Infof("building tileset %s with max depth %d", rootName, maxDepth)
	b := &builder{
		policy:        o.policy,
		maxDepth:      maxDepth,
		flusher:       o.flusher,
		rootTransform: o.rootTransform,
	}
	tile, err := b.build(content, 1, -1)
	if err != nil {
		return nil, err
	}
	return &Tileset{GeometricError: TilesetGeometricError, Root: tile}, nil
}

// Collects every precondition violation before anything in the scene is touched
func validateRoot(scene backend.Backend, root backend.MeshHandle, maxDepth int) (string, backend.MaterialHandle, error) {
	var errs error
	if maxDepth < 1 {
		errs = multierr.Append(errs, fmt.Errorf("max depth %d is lower than 1", maxDepth))
	}
	name, err := scene.MeshName(root)
	if err != nil {
		return "", 0, &InvalidInputError{Err: multierr.Append(errs, err)}
	}
	mats, err := scene.Materials(root)
	if err != nil {
		return "", 0, &InvalidInputError{Err: multierr.Append(errs, err)}
	}
	var mat backend.MaterialHandle
	if len(mats) != 1 {
		errs = multierr.Append(errs, fmt.Errorf("mesh %s has %d materials, want 1", name, len(mats)))
	} else {
		mat = mats[0]
		nodes, err := scene.TextureNodes(mat)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if len(nodes) != 1 {
			errs = multierr.Append(errs, fmt.Errorf("material of mesh %s has %d texture nodes, want 1", name, len(nodes)))
		}
	}
	if errs != nil {
		return "", 0, &InvalidInputError{Err: errs}
	}
	return name, mat, nil
}

// Rebuilds the tree of an already processed root from the mesh names in the scene.
// Bounding volumes and geometric errors are recomputed from the current meshes.
func Get(scene backend.Backend, rootName string, opts ...Option) (*Tileset, error) {
	o := newOptions(opts)
	mesh, ok := scene.MeshByName(rootName)
	if !ok {
		return nil, &InvalidInputError{Err: fmt.Errorf("no mesh named %s", rootName)}
	}
	names := scene.MeshNames()
	root, err := collect(scene, names, mesh, 1, -1)
	if err != nil {
		return nil, err
	}
	transform := o.rootTransform
	root.Transform = &transform
	return &Tileset{GeometricError: TilesetGeometricError, Root: root}, nil
}

func collect(scene backend.Backend, names []string, mesh backend.MeshHandle, depth, quadrant int) (*Tile, error) {
	content, err := NewContent(scene, mesh)
	if err != nil {
		return nil, backendError(fmt.Sprint(mesh), "content", err)
	}
	box, err := content.BoundingVolume()
	if err != nil {
		return nil, err
	}
	tile := &Tile{
		Name:       content.Name(),
		Depth:      depth,
		Quadrant:   quadrant,
		Refine:     tiler.RefineModeReplace,
		ContentURI: content.URI(),
		Content:    content,
	}

	childPattern := regexp.MustCompile("^" + regexp.QuoteMeta(tile.Name) + "_([0-3])$")
	for _, name := range names {
		match := childPattern.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		q, _ := strconv.Atoi(match[1])
		childMesh, _ := scene.MeshByName(name)
		child, err := collect(scene, names, childMesh, depth+1, q)
		if err != nil {
			return nil, err
		}
		tile.Children = append(tile.Children, child)
	}
	tile.setBoundingVolume(box)
	return tile, nil
}

// Visits every tile in pre order, stopping at the first error
func (ts *Tileset) Walk(fn func(tile *Tile) error) error {
	return walk(ts.Root, fn)
}

func walk(tile *Tile, fn func(tile *Tile) error) error {
	if err := fn(tile); err != nil {
		return err
	}
	for _, child := range tile.Children {
		if err := walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}

func (ts *Tileset) Tiles() []*Tile {
	var tiles []*Tile
	_ = ts.Walk(func(tile *Tile) error {
		tiles = append(tiles, tile)
		return nil
	})
	return tiles
}
