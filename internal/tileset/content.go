package tileset

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
	"github.com/ecopia-map/mesh_tiler/internal/geometry"
)

// Bleed around baked islands, in pixels
const bakeMarginPx = 2

// Content is the mesh payload of a single tile: one mesh with one material holding one
// base color texture. It is exclusively owned by its tile.
type Content struct {
	scene backend.Backend
	mesh  backend.MeshHandle
	name  string
}

func NewContent(scene backend.Backend, mesh backend.MeshHandle) (*Content, error) {
	name, err := scene.MeshName(mesh)
	if err != nil {
		return nil, err
	}
	return &Content{scene: scene, mesh: mesh, name: name}, nil
}

func (c *Content) Name() string {
	return c.name
}

func (c *Content) Mesh() backend.MeshHandle {
	return c.mesh
}

func (c *Content) URI() string {
	return c.name + ".glb"
}

// Returns the single material and its single texture image, or an InvalidPayloadStateError
func (c *Content) payload() (backend.MaterialHandle, backend.ImageHandle, error) {
	mats, err := c.scene.Materials(c.mesh)
	if err != nil {
		return 0, 0, backendError(c.name, "materials", err)
	}
	if len(mats) != 1 {
		return 0, 0, &InvalidPayloadStateError{Tile: c.name, Materials: len(mats), TextureNodes: -1}
	}
	nodes, err := c.scene.TextureNodes(mats[0])
	if err != nil {
		return 0, 0, backendError(c.name, "texture nodes", err)
	}
	if len(nodes) != 1 {
		return 0, 0, &InvalidPayloadStateError{Tile: c.name, Materials: 1, TextureNodes: len(nodes)}
	}
	return mats[0], nodes[0], nil
}

// Splits the payload into up to four quadrant children around the X/Y midpoint of its world
// bounding box. Faces are assigned by centroid. Empty quadrants are returned as nil.
// The receiver is left untouched.
func (c *Content) Subdivide() ([4]*Content, error) {
	var children [4]*Content
	if _, _, err := c.payload(); err != nil {
		return children, err
	}

	corners, err := c.scene.BoundingBoxWorldSpace(c.mesh)
	if err != nil {
		return children, backendError(c.name, "bounding box", err)
	}
	bbox := geometry.NewBoundingBoxFromCorners(corners)

	temp, err := c.scene.Duplicate(c.mesh, c.name+"_temp")
	if err != nil {
		return children, backendError(c.name, "duplicate", err)
	}

	predicates := make([]backend.FacePredicate, 4)
	for q := range predicates {
		quadrant := uint8(q)
		predicates[q] = func(face backend.Face) bool {
			return geometry.QuadrantOf(face.Center, bbox.Xmid, bbox.Ymid) == quadrant
		}
	}
	parts, err := c.scene.SeparateByPredicate(temp, predicates...)
	if err != nil {
		return children, backendError(c.name, "separate", err)
	}
	if err := c.removeMesh(temp); err != nil {
		return children, err
	}

	for q, part := range parts {
		if part == 0 {
			continue
		}
		child, err := c.adoptChild(part, q)
		if err != nil {
			return children, err
		}
		children[q] = child
	}
	return children, nil
}

// Names a separated part after its quadrant and gives it its own material
func (c *Content) adoptChild(part backend.MeshHandle, quadrant int) (*Content, error) {
	name := fmt.Sprintf("%s_%d", c.name, quadrant)
	if err := c.scene.RenameMesh(part, name); err != nil {
		return nil, backendError(c.name, "rename child", err)
	}
	mats, err := c.scene.Materials(part)
	if err != nil {
		return nil, backendError(name, "materials", err)
	}
	if len(mats) != 1 {
		return nil, &InvalidPayloadStateError{Tile: name, Materials: len(mats), TextureNodes: -1}
	}
	mat, err := c.scene.CopyMaterial(mats[0], name)
	if err != nil {
		return nil, backendError(name, "copy material", err)
	}
	if err := c.scene.SetMaterials(part, mat); err != nil {
		return nil, backendError(name, "set materials", err)
	}
	glog.V(1).Infof("%s tile successfully created", name)
	return &Content{scene: c.scene, mesh: part, name: name}, nil
}

// Decimates the payload down to ratio of its faces, keeping UV seams in place
func (c *Content) Simplify(ratio float64) error {
	if ratio <= 0 || ratio > 1 {
		return &InvalidInputError{Err: fmt.Errorf("tile %s: simplification ratio %v out of (0, 1]", c.name, ratio)}
	}
	if _, _, err := c.payload(); err != nil {
		return err
	}
	if ratio == 1 {
		return nil
	}
	return backendError(c.name, "decimate", c.scene.Decimate(c.mesh, backend.DecimateOptions{
		Ratio:         ratio,
		PreserveSeams: true,
		Triangulate:   false,
	}))
}

// Swaps the texture for a copy scaled by scale on both axes. The previous image is left as is
// and released only if no other material uses it.
func (c *Content) ReduceTextureResolution(scale float64) error {
	if scale <= 0 || scale > 1 {
		return &InvalidInputError{Err: fmt.Errorf("tile %s: texture scale %v out of (0, 1]", c.name, scale)}
	}
	mat, img, err := c.payload()
	if err != nil {
		return err
	}
	if scale == 1 {
		return nil
	}
	w, h, err := c.scene.ImageSize(img)
	if err != nil {
		return backendError(c.name, "image size", err)
	}
	reduced, err := c.scene.CopyImage(img, c.name+"_texture")
	if err != nil {
		return backendError(c.name, "copy image", err)
	}
	newW, newH := atLeastOne(int(float64(w)*scale)), atLeastOne(int(float64(h)*scale))
	if err := c.scene.ScaleImage(reduced, newW, newH); err != nil {
		return backendError(c.name, "scale image", err)
	}
	return c.swapTexture(mat, img, reduced)
}

// Rebakes the texture so it only covers the UV footprint of this payload, keeping the texel density
func (c *Content) RemoveUnusedTexturePixels() error {
	mat, img, err := c.payload()
	if err != nil {
		return err
	}
	oldLayer, err := c.scene.ActiveUVLayer(c.mesh)
	if err != nil {
		return backendError(c.name, "active uv layer", err)
	}
	layer := uuid.New().String()
	if err := c.scene.NewUVLayer(c.mesh, layer); err != nil {
		return backendError(c.name, "new uv layer", err)
	}
	if err := c.scene.PackUVIslands(c.mesh, backend.PackOptions{Scale: false}); err != nil {
		return backendError(c.name, "pack uv islands", err)
	}

	w, h, err := c.scene.ImageSize(img)
	if err != nil {
		return backendError(c.name, "image size", err)
	}
	bounds, err := c.scene.UVBounds(c.mesh, layer)
	if err != nil {
		return backendError(c.name, "uv bounds", err)
	}
	size := bounds.Size()
	idealW, idealH := idealSize(w, size.X), idealSize(h, size.Y)

	trimmed, err := c.scene.NewImage(c.name+"_texture", idealW, idealH, true)
	if err != nil {
		return backendError(c.name, "new image", err)
	}
	if err := c.scene.PackUVIslands(c.mesh, backend.PackOptions{Scale: true}); err != nil {
		return backendError(c.name, "pack uv islands", err)
	}
	if err := c.scene.BakeDiffuseColor(c.mesh, backend.BakeOptions{
		SourceLayer: oldLayer,
		TargetLayer: layer,
		Target:      trimmed,
		MarginPx:    bakeMarginPx,
	}); err != nil {
		return backendError(c.name, "bake", err)
	}
	if err := c.swapTexture(mat, img, trimmed); err != nil {
		return err
	}
	glog.V(1).Infof("%s texture trimmed from %dx%d to %dx%d", c.name, w, h, idealW, idealH)
	return backendError(c.name, "remove uv layer", c.scene.RemoveUVLayer(c.mesh, oldLayer))
}

func (c *Content) swapTexture(mat backend.MaterialHandle, old, replacement backend.ImageHandle) error {
	if err := c.scene.SetTextureNodes(mat, replacement); err != nil {
		return backendError(c.name, "set texture", err)
	}
	if c.scene.ImageUsers(old) == 0 {
		return backendError(c.name, "remove image", c.scene.RemoveImage(old))
	}
	return nil
}

// Computes the box bounding volume from the current world space bounds
func (c *Content) BoundingVolume() (geometry.OrientedBox, error) {
	corners, err := c.scene.BoundingBoxWorldSpace(c.mesh)
	if err != nil {
		return geometry.OrientedBox{}, backendError(c.name, "bounding box", err)
	}
	return geometry.ComputeOrientedBox(corners), nil
}

// Snapshot of the payload, safe to hand over to other goroutines
func (c *Content) Data() (*backend.MeshData, error) {
	data, err := c.scene.MeshData(c.mesh)
	return data, backendError(c.name, "mesh data", err)
}

// Removes the mesh from the scene, together with its material and texture once unused
func (c *Content) Release() error {
	mats, err := c.scene.Materials(c.mesh)
	if err != nil {
		return backendError(c.name, "materials", err)
	}
	var images []backend.ImageHandle
	for _, mat := range mats {
		nodes, err := c.scene.TextureNodes(mat)
		if err != nil {
			return backendError(c.name, "texture nodes", err)
		}
		images = append(images, nodes...)
	}
	if err := c.scene.RemoveMesh(c.mesh); err != nil {
		return backendError(c.name, "remove mesh", err)
	}
	for _, mat := range mats {
		if c.scene.MaterialUsers(mat) == 0 {
			if err := c.scene.RemoveMaterial(mat); err != nil {
				return backendError(c.name, "remove material", err)
			}
		}
	}
	for _, img := range images {
		if c.scene.ImageUsers(img) == 0 {
			if err := c.scene.RemoveImage(img); err != nil {
				return backendError(c.name, "remove image", err)
			}
		}
	}
	return nil
}

// Removes a temporary mesh and any material nobody else references anymore
func (c *Content) removeMesh(mesh backend.MeshHandle) error {
	mats, err := c.scene.Materials(mesh)
	if err != nil {
		return backendError(c.name, "materials", err)
	}
	if err := c.scene.RemoveMesh(mesh); err != nil {
		return backendError(c.name, "remove temp mesh", err)
	}
	for _, mat := range mats {
		if c.scene.MaterialUsers(mat) == 0 {
			if err := c.scene.RemoveMaterial(mat); err != nil {
				return backendError(c.name, "remove temp material", err)
			}
		}
	}
	return nil
}

// Pixels needed to keep the texel density over a UV extent fraction, rounded half away from zero
func idealSize(pixels int, fraction float64) int {
	ideal := decimal.NewFromInt(int64(pixels)).Mul(decimal.NewFromFloat(fraction)).Round(0).IntPart()
	return atLeastOne(int(ideal))
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
