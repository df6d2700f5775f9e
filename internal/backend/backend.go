// Package backend defines the contract between the tiling core and a mesh processing scene.
//
// A scene owns every mesh, material and image. All operations take explicit handles, there
// is no notion of an active or selected object. Handles are only meaningful for the scene
// that issued them and the zero value of each handle type is never a valid handle.
package backend

import (
	"image"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

type MeshHandle uint64
type MaterialHandle uint64
type ImageHandle uint64

// Face is the view of a polygon handed to separation predicates
type Face struct {
	Index    int
	Center   r3.Vector // median of the face vertices, in world space
	Material int       // material slot index
}

type FacePredicate func(face Face) bool

type ImportOptions struct {
	// Converts Y-up input (x, y, z) into Z-up (x, -z, y)
	YUp bool
}

type CleanOptions struct {
	// Vertices closer than this and sharing all UV coordinates are merged
	MergeDistance float64
}

type DecimateOptions struct {
	Ratio         float64 // target fraction of faces, in (0, 1]
	PreserveSeams bool    // never move open boundary vertices, UV seams included
	Triangulate   bool
}

type PackOptions struct {
	// Stretch the packed layout so it fills the unit UV square on both axes
	Scale bool
	// Equalize the UV to world area ratio of all islands before packing
	AverageScale bool
	// Gap between islands in UV units
	Margin float64
}

type BakeOptions struct {
	SourceLayer string
	TargetLayer string
	Target      ImageHandle
	// Pixels of edge padding grown around the baked islands
	MarginPx int
}

// Immutable snapshot of a mesh payload, detached from the scene
type MeshData struct {
	Name      string
	Positions []r3.Vector // world space
	UVs       []r2.Point  // active layer, one per vertex
	Faces     [][]int
	Texture   image.Image // first texture node of the first material, may be nil
}

type Stats struct {
	Meshes    int
	Materials int
	Images    int
}

type Importer interface {
	ImportMesh(path string, opts ImportOptions) (MeshHandle, error)
}

type MeshEditor interface {
	// Copies the mesh geometry under a new name. Material slots keep pointing at the same materials.
	Duplicate(mesh MeshHandle, name string) (MeshHandle, error)
	// Moves every face matching predicates[i] (first match wins) into a new mesh returned at index i.
	// Empty groups yield a zero handle. Faces matching no predicate stay in the source mesh.
	SeparateByPredicate(mesh MeshHandle, predicates ...FacePredicate) ([]MeshHandle, error)
	Decimate(mesh MeshHandle, opts DecimateOptions) error
	// Dissolves degenerate faces and merges duplicate vertices
	CleanMesh(mesh MeshHandle, opts CleanOptions) error
	FaceCount(mesh MeshHandle) (int, error)
	// Returns the 8 corners of the local bound box transformed into world space
	BoundingBoxWorldSpace(mesh MeshHandle) ([8]r3.Vector, error)
	SetTransform(mesh MeshHandle, transform mgl64.Mat4) error
	Transform(mesh MeshHandle) (mgl64.Mat4, error)
	MeshData(mesh MeshHandle) (*MeshData, error)
}

type UVEditor interface {
	// Creates a layer initialized from the active one and makes it active
	NewUVLayer(mesh MeshHandle, name string) error
	RemoveUVLayer(mesh MeshHandle, name string) error
	ActiveUVLayer(mesh MeshHandle) (string, error)
	SetActiveUVLayer(mesh MeshHandle, name string) error
	UVLayers(mesh MeshHandle) ([]string, error)
	// Repacks the islands of the active layer
	PackUVIslands(mesh MeshHandle, opts PackOptions) error
	UVBounds(mesh MeshHandle, layer string) (r2.Rect, error)
}

type Baker interface {
	// Renders the diffuse color of every face, sampled from its own material texture through the
	// source layer, into the target image through the target layer
	BakeDiffuseColor(mesh MeshHandle, opts BakeOptions) error
}

type ImageEditor interface {
	NewImage(name string, width, height int, transparent bool) (ImageHandle, error)
	CopyImage(img ImageHandle, name string) (ImageHandle, error)
	ScaleImage(img ImageHandle, width, height int) error
	ImageSize(img ImageHandle) (int, int, error)
}

type Registry interface {
	MeshByName(name string) (MeshHandle, bool)
	MeshNames() []string
	MeshName(mesh MeshHandle) (string, error)
	RenameMesh(mesh MeshHandle, name string) error
	RemoveMesh(mesh MeshHandle) error

	Materials(mesh MeshHandle) ([]MaterialHandle, error)
	SetMaterials(mesh MeshHandle, materials ...MaterialHandle) error
	NewMaterial(name string) MaterialHandle
	CopyMaterial(mat MaterialHandle, name string) (MaterialHandle, error)
	MaterialName(mat MaterialHandle) (string, error)
	RenameMaterial(mat MaterialHandle, name string) error
	RemoveMaterial(mat MaterialHandle) error
	MaterialUsers(mat MaterialHandle) int
	TextureNodes(mat MaterialHandle) ([]ImageHandle, error)
	SetTextureNodes(mat MaterialHandle, images ...ImageHandle) error

	ImageName(img ImageHandle) (string, error)
	RemoveImage(img ImageHandle) error
	ImageUsers(img ImageHandle) int

	Stats() Stats
}

// Backend is the full set of scene operations the tiler relies on
type Backend interface {
	Importer
	MeshEditor
	UVEditor
	Baker
	ImageEditor
	Registry
}
