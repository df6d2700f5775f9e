package chunk

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
	"github.com/ecopia-map/mesh_tiler/internal/backend/memory"
)

const twoMaterialObj = `mtllib tile.mtl
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

const twoMaterialMtl = `newmtl ground
map_Kd ground.png
newmtl roofs
map_Kd roofs.png
`

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	test.That(t, png.Encode(f, img), test.ShouldBeNil)
}

func writeChunkFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "Tile-106-69-1-1.obj")
	test.That(t, os.WriteFile(path, []byte(twoMaterialObj), 0644), test.ShouldBeNil)
	test.That(t, os.WriteFile(filepath.Join(dir, "tile.mtl"), []byte(twoMaterialMtl), 0644), test.ShouldBeNil)
	writePNG(t, filepath.Join(dir, "ground.png"), memory.GradientImage(8, 8))
	writePNG(t, filepath.Join(dir, "roofs.png"), memory.GradientImage(8, 8))
	return path
}

func TestGridFromFileName(t *testing.T) {
	x, y, err := GridFromFileName("/data/Tile-106-69-1-1.obj")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, x, test.ShouldEqual, 106)
	test.That(t, y, test.ShouldEqual, 69)

	_, _, err = GridFromFileName("/data/mesh.obj")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestLoadCombinesMaterials(t *testing.T) {
	path := writeChunkFiles(t)
	scene := memory.NewScene()

	c, err := Load(scene, path, 106, 69, LoadOptions{Scale: 0.1, Clean: true, CombineMaterials: true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Name(), test.ShouldEqual, "tile_106_69")

	name, err := scene.MeshName(c.Mesh)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, name, test.ShouldEqual, "tile_106_69")

	mats, err := scene.Materials(c.Mesh)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mats, test.ShouldHaveLength, 1)
	nodes, err := scene.TextureNodes(mats[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, nodes, test.ShouldHaveLength, 1)
	w, h, err := scene.ImageSize(nodes[0])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, w, test.ShouldEqual, 11)
	test.That(t, h, test.ShouldEqual, 11)

	layers, err := scene.UVLayers(c.Mesh)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, layers, test.ShouldResemble, []string{atlasLayer})
	test.That(t, scene.Stats(), test.ShouldResemble, backend.Stats{Meshes: 1, Materials: 1, Images: 1})

	corners, err := scene.BoundingBoxWorldSpace(c.Mesh)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corners[7].X, test.ShouldAlmostEqual, 0.2)
	test.That(t, corners[7].Y, test.ShouldAlmostEqual, 0.1)
}

func TestLoadKeepsMaterialsWhenNotCombining(t *testing.T) {
	path := writeChunkFiles(t)
	scene := memory.NewScene()

	c, err := Load(scene, path, 106, 69, LoadOptions{})
	test.That(t, err, test.ShouldBeNil)
	mats, err := scene.Materials(c.Mesh)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mats, test.ShouldHaveLength, 2)

	corners, err := scene.BoundingBoxWorldSpace(c.Mesh)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corners[7].X, test.ShouldAlmostEqual, 2)
}

func TestLookup(t *testing.T) {
	scene := memory.NewScene()
	_, err := Lookup(scene, 1, 2)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "tile_1_2")

	path := writeChunkFiles(t)
	loaded, err := Load(scene, path, 1, 2, LoadOptions{})
	test.That(t, err, test.ShouldBeNil)
	found, err := Lookup(scene, 1, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, found.Mesh, test.ShouldEqual, loaded.Mesh)
}

func TestCombineMaterialsRequiresTextures(t *testing.T) {
	scene := memory.NewScene()
	bare := scene.NewMaterial("bare")
	in := memory.GridInput("grid", 1, 1, 1)
	in.Materials = []backend.MaterialHandle{bare}
	mesh, err := scene.CreateMesh(in)
	test.That(t, err, test.ShouldBeNil)

	err = CombineMaterials(scene, mesh, DefaultMaxAtlasSize)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bare")
}
