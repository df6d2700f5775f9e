package memory

import (
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftrvxmtrx/tga"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
)

func newTexturedGrid(t *testing.T, s *Scene, name string, cols, rows int) backend.MeshHandle {
	t.Helper()
	img := s.AddImage(name+".png", GradientImage(64, 64))
	mat := s.NewMaterial(name)
	test.That(t, s.SetTextureNodes(mat, img), test.ShouldBeNil)
	in := GridInput(name, cols, rows, 1)
	in.Materials = []backend.MaterialHandle{mat}
	h, err := s.CreateMesh(in)
	test.That(t, err, test.ShouldBeNil)
	return h
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	test.That(t, png.Encode(f, img), test.ShouldBeNil)
}

func TestCreateMeshValidation(t *testing.T) {
	s := NewScene()
	in := GridInput("bad", 1, 1, 1)
	in.Faces = append(in.Faces, []int{0, 1, 42})
	_, err := s.CreateMesh(in)
	test.That(t, err, test.ShouldNotBeNil)

	in = GridInput("bad", 1, 1, 1)
	in.UVs = in.UVs[:1]
	_, err = s.CreateMesh(in)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestRegistry(t *testing.T) {
	s := NewScene()
	h := newTexturedGrid(t, s, "tile", 2, 2)
	other := newTexturedGrid(t, s, "other", 1, 1)

	found, ok := s.MeshByName("tile")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, found, test.ShouldEqual, h)
	test.That(t, s.MeshNames(), test.ShouldResemble, []string{"other", "tile"})

	test.That(t, s.RenameMesh(other, "tile"), test.ShouldNotBeNil)
	test.That(t, s.RenameMesh(other, "renamed"), test.ShouldBeNil)

	mats, err := s.Materials(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mats, test.ShouldHaveLength, 1)
	test.That(t, s.RemoveMaterial(mats[0]), test.ShouldNotBeNil)

	test.That(t, s.Stats(), test.ShouldResemble, backend.Stats{Meshes: 2, Materials: 2, Images: 2})
	test.That(t, s.RemoveMesh(h), test.ShouldBeNil)
	test.That(t, s.MaterialUsers(mats[0]), test.ShouldEqual, 0)
	test.That(t, s.RemoveMaterial(mats[0]), test.ShouldBeNil)

	_, err = s.MeshName(h)
	test.That(t, errors.Is(err, ErrNotFound), test.ShouldBeTrue)
}

func TestDuplicateSharesMaterials(t *testing.T) {
	s := NewScene()
	h := newTexturedGrid(t, s, "tile", 2, 2)
	dup, err := s.Duplicate(h, "tile_temp")
	test.That(t, err, test.ShouldBeNil)

	_, err = s.Duplicate(h, "tile_temp")
	test.That(t, err, test.ShouldNotBeNil)

	a, _ := s.Materials(h)
	b, _ := s.Materials(dup)
	test.That(t, b, test.ShouldResemble, a)
	test.That(t, s.MaterialUsers(a[0]), test.ShouldEqual, 2)

	n, err := s.FaceCount(dup)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, n, test.ShouldEqual, 4)
}

func TestSeparateByPredicatePartitionsFaces(t *testing.T) {
	s := NewScene()
	h := newTexturedGrid(t, s, "tile", 4, 4)
	left := func(f backend.Face) bool { return f.Center.X < 2 }
	never := func(f backend.Face) bool { return false }
	right := func(f backend.Face) bool { return true }

	parts, err := s.SeparateByPredicate(h, left, never, right)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, parts, test.ShouldHaveLength, 3)
	test.That(t, parts[1], test.ShouldEqual, backend.MeshHandle(0))

	nLeft, _ := s.FaceCount(parts[0])
	nRight, _ := s.FaceCount(parts[2])
	nRest, _ := s.FaceCount(h)
	test.That(t, nLeft, test.ShouldEqual, 8)
	test.That(t, nRight, test.ShouldEqual, 8)
	test.That(t, nRest, test.ShouldEqual, 0)

	corners, err := s.BoundingBoxWorldSpace(parts[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corners[7], test.ShouldResemble, r3.Vector{X: 2, Y: 4, Z: 0})

	_, err = s.BoundingBoxWorldSpace(h)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBoundingBoxWorldSpaceAppliesTransform(t *testing.T) {
	s := NewScene()
	h := newTexturedGrid(t, s, "tile", 2, 2)
	test.That(t, s.SetTransform(h, mgl64.Scale3D(0.1, 0.1, 0.1)), test.ShouldBeNil)
	corners, err := s.BoundingBoxWorldSpace(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corners[7].X, test.ShouldAlmostEqual, 0.2)
	test.That(t, corners[7].Y, test.ShouldAlmostEqual, 0.2)
}

func TestDecimate(t *testing.T) {
	s := NewScene()
	h := newTexturedGrid(t, s, "tile", 6, 6)

	test.That(t, s.Decimate(h, backend.DecimateOptions{Ratio: 1}), test.ShouldBeNil)
	n, _ := s.FaceCount(h)
	test.That(t, n, test.ShouldEqual, 36)

	test.That(t, s.Decimate(h, backend.DecimateOptions{Ratio: 0}), test.ShouldNotBeNil)

	test.That(t, s.Decimate(h, backend.DecimateOptions{Ratio: 0.25, PreserveSeams: true}), test.ShouldBeNil)
	n, _ = s.FaceCount(h)
	test.That(t, n, test.ShouldBeLessThan, 36)
	test.That(t, n, test.ShouldBeGreaterThan, 0)

	// the outline is locked, so the bounds do not move
	corners, err := s.BoundingBoxWorldSpace(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corners[0], test.ShouldResemble, r3.Vector{})
	test.That(t, corners[7], test.ShouldResemble, r3.Vector{X: 6, Y: 6})
}

func TestDecimateTriangulate(t *testing.T) {
	s := NewScene()
	h := newTexturedGrid(t, s, "tile", 2, 2)
	test.That(t, s.Decimate(h, backend.DecimateOptions{Ratio: 0.99, Triangulate: true}), test.ShouldBeNil)
	data, err := s.MeshData(h)
	test.That(t, err, test.ShouldBeNil)
	for _, f := range data.Faces {
		test.That(t, f, test.ShouldHaveLength, 3)
	}
}

func TestCleanMesh(t *testing.T) {
	s := NewScene()
	in := GridInput("tile", 1, 1, 1)
	// duplicate of vertex 1 and a sliver face using it
	in.Positions = append(in.Positions, in.Positions[1])
	in.UVs = append(in.UVs, in.UVs[1])
	in.Faces = append(in.Faces, []int{1, 4, 2})
	h, err := s.CreateMesh(in)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, s.CleanMesh(h, backend.CleanOptions{}), test.ShouldBeNil)
	data, err := s.MeshData(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, data.Faces, test.ShouldHaveLength, 1)
	test.That(t, data.Positions, test.ShouldHaveLength, 4)
}

func TestUVLayers(t *testing.T) {
	s := NewScene()
	h := newTexturedGrid(t, s, "tile", 2, 2)
	test.That(t, s.NewUVLayer(h, "packed"), test.ShouldBeNil)
	test.That(t, s.NewUVLayer(h, "packed"), test.ShouldNotBeNil)

	active, err := s.ActiveUVLayer(h)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, active, test.ShouldEqual, "packed")

	test.That(t, s.RemoveUVLayer(h, DefaultUVLayer), test.ShouldBeNil)
	layers, _ := s.UVLayers(h)
	test.That(t, layers, test.ShouldResemble, []string{"packed"})
	active, _ = s.ActiveUVLayer(h)
	test.That(t, active, test.ShouldEqual, "packed")
}

func TestPackUVIslands(t *testing.T) {
	s := NewScene()
	h := newTexturedGrid(t, s, "tile", 4, 4)
	parts, err := s.SeparateByPredicate(h, func(f backend.Face) bool { return f.Center.X >= 2 && f.Center.Y >= 2 })
	test.That(t, err, test.ShouldBeNil)
	part := parts[0]

	test.That(t, s.NewUVLayer(part, "packed"), test.ShouldBeNil)
	test.That(t, s.PackUVIslands(part, backend.PackOptions{}), test.ShouldBeNil)
	bounds, err := s.UVBounds(part, "packed")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bounds.Lo().X, test.ShouldAlmostEqual, 0)
	test.That(t, bounds.Lo().Y, test.ShouldAlmostEqual, 0)
	test.That(t, bounds.Size().X, test.ShouldAlmostEqual, 0.5)
	test.That(t, bounds.Size().Y, test.ShouldAlmostEqual, 0.5)

	test.That(t, s.PackUVIslands(part, backend.PackOptions{Scale: true}), test.ShouldBeNil)
	bounds, _ = s.UVBounds(part, "packed")
	test.That(t, bounds.Size().X, test.ShouldAlmostEqual, 1)
	test.That(t, bounds.Size().Y, test.ShouldAlmostEqual, 1)

	// the source layer is left untouched
	original, _ := s.UVBounds(part, DefaultUVLayer)
	test.That(t, original.Lo().X, test.ShouldAlmostEqual, 0.5)
}

func TestBakeDiffuseColor(t *testing.T) {
	s := NewScene()
	h := newTexturedGrid(t, s, "tile", 2, 2)
	parts, err := s.SeparateByPredicate(h, func(f backend.Face) bool { return f.Center.X >= 1 && f.Center.Y < 1 })
	test.That(t, err, test.ShouldBeNil)
	part := parts[0]

	test.That(t, s.NewUVLayer(part, "baked"), test.ShouldBeNil)
	test.That(t, s.PackUVIslands(part, backend.PackOptions{Scale: true}), test.ShouldBeNil)
	target, err := s.NewImage("baked", 32, 32, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.BakeDiffuseColor(part, backend.BakeOptions{
		SourceLayer: DefaultUVLayer,
		TargetLayer: "baked",
		Target:      target,
	}), test.ShouldBeNil)

	img, err := s.Image(target)
	test.That(t, err, test.ShouldBeNil)
	// the face covers the right half of the source horizontally and its lower half vertically
	topLeft := img.NRGBAAt(0, 0)
	bottomRight := img.NRGBAAt(31, 31)
	test.That(t, topLeft.A, test.ShouldEqual, uint8(255))
	test.That(t, topLeft.R, test.ShouldBeGreaterThanOrEqualTo, uint8(120))
	test.That(t, topLeft.G, test.ShouldBeGreaterThanOrEqualTo, uint8(120))
	test.That(t, bottomRight.R, test.ShouldBeGreaterThanOrEqualTo, uint8(240))
	test.That(t, bottomRight.G, test.ShouldBeGreaterThanOrEqualTo, uint8(240))
}

func TestBakeWithoutTextureFails(t *testing.T) {
	s := NewScene()
	in := GridInput("tile", 1, 1, 1)
	in.Materials = []backend.MaterialHandle{s.NewMaterial("bare")}
	h, err := s.CreateMesh(in)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.NewUVLayer(h, "baked"), test.ShouldBeNil)
	target, _ := s.NewImage("baked", 4, 4, true)
	err = s.BakeDiffuseColor(h, backend.BakeOptions{SourceLayer: DefaultUVLayer, TargetLayer: "baked", Target: target})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestImageOperations(t *testing.T) {
	s := NewScene()
	src := s.AddImage("src", GradientImage(16, 8))
	cp, err := s.CopyImage(src, "copy")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.ScaleImage(cp, 4, 2), test.ShouldBeNil)

	w, h, err := s.ImageSize(cp)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, []int{w, h}, test.ShouldResemble, []int{4, 2})
	w, h, _ = s.ImageSize(src)
	test.That(t, []int{w, h}, test.ShouldResemble, []int{16, 8})

	test.That(t, s.ScaleImage(cp, 0, 2), test.ShouldNotBeNil)
	_, err = s.NewImage("empty", 0, 1, true)
	test.That(t, err, test.ShouldNotBeNil)

	opaque, err := s.NewImage("opaque", 2, 2, false)
	test.That(t, err, test.ShouldBeNil)
	img, _ := s.Image(opaque)
	test.That(t, img.NRGBAAt(1, 1).A, test.ShouldEqual, uint8(255))
}

func TestImportObj(t *testing.T) {
	dir := t.TempDir()
	obj := `mtllib tile.mtl
o Tile
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
v 2 0 0
v 2 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
usemtl ground
f 1/1 2/2 3/3 4/4
usemtl roofs
f 2/1 5/2 6/3 3/4
`
	mtl := `newmtl ground
map_Kd ground.png
newmtl roofs
Kd 1 0 0
`
	test.That(t, os.WriteFile(filepath.Join(dir, "Tile-1-2-1-1.obj"), []byte(obj), 0644), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "tile.mtl"), []byte(mtl), 0644), test.ShouldBeNil)
	writePNG(t, filepath.Join(dir, "ground.png"), GradientImage(4, 4))

	s := NewScene()
	h, err := s.ImportMesh(filepath.Join(dir, "Tile-1-2-1-1.obj"), backend.ImportOptions{})
	test.That(t, err, test.ShouldBeNil)

	name, _ := s.MeshName(h)
	test.That(t, name, test.ShouldEqual, "Tile-1-2-1-1")
	mats, _ := s.Materials(h)
	test.That(t, mats, test.ShouldHaveLength, 2)
	textures, _ := s.TextureNodes(mats[0])
	test.That(t, textures, test.ShouldHaveLength, 1)
	textures, _ = s.TextureNodes(mats[1])
	test.That(t, textures, test.ShouldHaveLength, 0)

	data, err := s.MeshData(h)
	test.That(t, err, test.ShouldBeNil)
	// vertices 2 and 3 carry two different texcoords and are split
	test.That(t, data.Positions, test.ShouldHaveLength, 8)
	test.That(t, data.Faces, test.ShouldHaveLength, 2)
}

func TestImportObjErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.obj")
	test.That(t, os.WriteFile(path, []byte("v 0 0 0\nf 1 2 3\n"), 0644), test.ShouldBeNil)
	_, err := NewScene().ImportMesh(path, backend.ImportOptions{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "broken.obj:2")

	_, err = NewScene().ImportMesh(filepath.Join(dir, "missing.obj"), backend.ImportOptions{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestImportObjYUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "up.obj")
	test.That(t, os.WriteFile(path, []byte("v 0 0 0\nv 1 0 0\nv 0 5 -2\nf 1 2 3\n"), 0644), test.ShouldBeNil)
	s := NewScene()
	h, err := s.ImportMesh(path, backend.ImportOptions{YUp: true})
	test.That(t, err, test.ShouldBeNil)
	data, _ := s.MeshData(h)
	test.That(t, data.Positions[2], test.ShouldResemble, r3.Vector{X: 0, Y: 2, Z: 5})
}

func TestDecodeImageFormats(t *testing.T) {
	dir := t.TempDir()
	src := GradientImage(4, 3)
	writePNG(t, filepath.Join(dir, "ortho.png"), src)

	f, err := os.Create(filepath.Join(dir, "ortho.jpg"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, jpeg.Encode(f, src, nil), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	f, err = os.Create(filepath.Join(dir, "ortho.TGA"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tga.Encode(f, src), test.ShouldBeNil)
	test.That(t, f.Close(), test.ShouldBeNil)

	for _, name := range []string{"ortho.png", "ortho.jpg", "ortho.TGA"} {
		img, err := decodeImage(filepath.Join(dir, name))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))
	}

	img, err := decodeImage(filepath.Join(dir, "ortho.png"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, color.NRGBAModel.Convert(img.At(3, 2)), test.ShouldResemble, src.At(3, 2))

	touchPath := filepath.Join(dir, "ortho.psd")
	test.That(t, os.WriteFile(touchPath, []byte("8BPS"), 0644), test.ShouldBeNil)
	_, err = decodeImage(touchPath)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported texture format")
}
