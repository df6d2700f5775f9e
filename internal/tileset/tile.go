package tileset

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/glog"

	"github.com/ecopia-map/mesh_tiler/internal/geometry"
	"github.com/ecopia-map/mesh_tiler/internal/tiler"
)

// Tile is a node of the tileset tree. Content is nil once the payload has been released
// from the scene, ContentURI always names the persisted payload.
type Tile struct {
	Name           string
	Depth          int
	Quadrant       int // index among the parent quadrants, -1 for the root
	Transform      *mgl64.Mat4
	BoundingVolume geometry.OrientedBox
	GeometricError float64
	Refine         tiler.RefineMode
	ContentURI     string
	Content        *Content
	Children       []*Tile
}

func (t *Tile) IsRoot() bool {
	return t.Depth == 1
}

func (t *Tile) IsLeaf() bool {
	return len(t.Children) == 0
}

// Simplification may flatten a payload below the extent of its children, so the volume of a
// tile always encloses the volumes of its children as well.
func (t *Tile) setBoundingVolume(own geometry.OrientedBox) {
	bounds := own.BoundingBox()
	for _, child := range t.Children {
		bounds = bounds.Union(child.BoundingVolume.BoundingBox())
	}
	t.BoundingVolume = geometry.NewOrientedBox(bounds)
	t.GeometricError = t.BoundingVolume.GeometricError()
}

// Receives every tile once it is final, children before their parent
type Flusher interface {
	Flush(tile *Tile) error
}

type builder struct {
	policy        LodPolicy
	maxDepth      int
	flusher       Flusher
	rootTransform mgl64.Mat4
}

func (b *builder) build(content *Content, depth, quadrant int) (*Tile, error) {
	tile := &Tile{
		Name:       content.Name(),
		Depth:      depth,
		Quadrant:   quadrant,
		Refine:     tiler.RefineModeReplace,
		ContentURI: content.URI(),
		Content:    content,
	}

	if !tile.IsRoot() {
		if err := content.RemoveUnusedTexturePixels(); err != nil {
			return nil, err
		}
	}

	if depth < b.maxDepth {
		parts, err := content.Subdivide()
		if err != nil {
			return nil, err
		}
		for q, part := range parts {
			if part == nil {
				continue
			}
			child, err := b.build(part, depth+1, q)
			if err != nil {
				return nil, err
			}
			tile.Children = append(tile.Children, child)
		}
	}

	if depth != b.maxDepth {
		if err := content.Simplify(b.policy.SimplificationRatio(depth, b.maxDepth)); err != nil {
			return nil, err
		}
		if err := content.ReduceTextureResolution(b.policy.TextureScale(depth, b.maxDepth)); err != nil {
			return nil, err
		}
	}

	box, err := content.BoundingVolume()
	if err != nil {
		return nil, err
	}
	tile.setBoundingVolume(box)

	if tile.IsRoot() {
		transform := b.rootTransform
		tile.Transform = &transform
	}
	glog.V(1).Infof("%s tile built at depth %d with %d children", tile.Name, depth, len(tile.Children))

	if b.flusher != nil {
		if err := b.flusher.Flush(tile); err != nil {
			return nil, err
		}
	}
	return tile, nil
}
