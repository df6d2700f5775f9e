package io

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
	"github.com/ecopia-map/mesh_tiler/internal/backend/memory"
	"github.com/ecopia-map/mesh_tiler/internal/gltf"
	"github.com/ecopia-map/mesh_tiler/internal/tileset"
)

func newTexturedGrid(t *testing.T, scene *memory.Scene, name string, cols, rows int) backend.MeshHandle {
	t.Helper()
	img := scene.AddImage(name, memory.GradientImage(8, 8))
	mat := scene.NewMaterial(name)
	test.That(t, scene.SetTextureNodes(mat, img), test.ShouldBeNil)
	in := memory.GridInput(name, cols, rows, 1)
	in.Materials = []backend.MaterialHandle{mat}
	mesh, err := scene.CreateMesh(in)
	test.That(t, err, test.ShouldBeNil)
	return mesh
}

// Runs a build through the producer and two consumers
func export(t *testing.T, scene *memory.Scene, mesh backend.MeshHandle, sink Sink, streaming bool) *tileset.Tileset {
	t.Helper()
	g, ctx := errgroup.WithContext(context.Background())
	work := make(chan *WorkUnit, 10)
	for i := 0; i < 2; i++ {
		consumer := NewStandardConsumer(sink, gltf.ImageFormatPNG)
		g.Go(func() error { return consumer.Consume(ctx, work) })
	}
	producer := NewStandardProducer(ctx, work, streaming)
	ts, buildErr := tileset.Create(scene, mesh, 2, tileset.WithFlusher(producer))
	producer.Close()
	test.That(t, buildErr, test.ShouldBeNil)
	test.That(t, g.Wait(), test.ShouldBeNil)
	test.That(t, WriteTilesetJson(sink, ts), test.ShouldBeNil)
	return ts
}

func TestDirSinkExport(t *testing.T) {
	scene := memory.NewScene()
	mesh := newTexturedGrid(t, scene, "tile_3_4", 2, 2)
	output := t.TempDir()
	sink, err := NewDirSink(output, "tile_3_4")
	test.That(t, err, test.ShouldBeNil)

	ts := export(t, scene, mesh, sink, false)
	test.That(t, sink.Close(), test.ShouldBeNil)

	for _, tile := range ts.Tiles() {
		info, err := os.Stat(filepath.Join(output, "tile_3_4", tile.ContentURI))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, info.Size()%4, test.ShouldEqual, 0)
	}

	raw, err := os.ReadFile(filepath.Join(output, "tile_3_4", TilesetFileName))
	test.That(t, err, test.ShouldBeNil)
	var doc map[string]interface{}
	test.That(t, json.Unmarshal(raw, &doc), test.ShouldBeNil)
	test.That(t, doc["asset"], test.ShouldResemble, map[string]interface{}{"version": "1.0"})
	test.That(t, doc["geometricError"], test.ShouldEqual, 1.0)

	root := doc["root"].(map[string]interface{})
	test.That(t, root["refine"], test.ShouldEqual, "REPLACE")
	test.That(t, root["content"], test.ShouldResemble, map[string]interface{}{"uri": "tile_3_4__1.glb"})
	test.That(t, root["transform"], test.ShouldHaveLength, 16)
	test.That(t, root["boundingVolume"].(map[string]interface{})["box"], test.ShouldHaveLength, 12)

	children := root["children"].([]interface{})
	test.That(t, children, test.ShouldHaveLength, 4)
	first := children[0].(map[string]interface{})
	_, hasTransform := first["transform"]
	test.That(t, hasTransform, test.ShouldBeFalse)
	test.That(t, first["content"], test.ShouldResemble, map[string]interface{}{"uri": "tile_3_4__1_0.glb"})
	_, hasChildren := first["children"]
	test.That(t, hasChildren, test.ShouldBeFalse)
}

func TestStreamingReleasesPayloads(t *testing.T) {
	scene := memory.NewScene()
	mesh := newTexturedGrid(t, scene, "tile_0_0", 2, 2)
	sink, err := NewDirSink(t.TempDir(), "tile_0_0")
	test.That(t, err, test.ShouldBeNil)

	ts := export(t, scene, mesh, sink, true)
	test.That(t, scene.Stats(), test.ShouldResemble, backend.Stats{})
	for _, tile := range ts.Tiles() {
		test.That(t, tile.Content, test.ShouldBeNil)
		test.That(t, tile.ContentURI, test.ShouldNotBeEmpty)
	}
}

func TestSQLiteSinkExport(t *testing.T) {
	scene := memory.NewScene()
	mesh := newTexturedGrid(t, scene, "tile_5_6", 2, 2)
	output := t.TempDir()
	sink, err := NewSQLiteSink(output, "tile_5_6")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sink.Path(), test.ShouldEqual, filepath.Join(output, "tile_5_6.gl"))

	export(t, scene, mesh, sink, true)
	test.That(t, sink.Close(), test.ShouldBeNil)

	db, err := gorm.Open(sqlite.Open(filepath.Join(output, "tile_5_6.gl")), &gorm.Config{})
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	var header TilesHeader
	test.That(t, db.Where("folder = ? AND json_name = ?", SQLiteRootFolder, TilesetFileName).First(&header).Error, test.ShouldBeNil)
	var doc Tileset
	test.That(t, json.Unmarshal(header.TileJson, &doc), test.ShouldBeNil)
	test.That(t, doc.Root.Children, test.ShouldHaveLength, 4)

	var count int64
	test.That(t, db.Model(&TilesByte{}).Where("folder = ?", SQLiteRootFolder).Count(&count).Error, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, 5)

	var tile TilesByte
	test.That(t, db.Where("folder = ? AND tile_name = ?", SQLiteRootFolder, "tile_5_6__1_3.glb").First(&tile).Error, test.ShouldBeNil)
	test.That(t, string(tile.TileData[0:4]), test.ShouldEqual, "glTF")
	test.That(t, indexExists(db, "idx_tiles_byte_folder_tile_name"), test.ShouldBeTrue)
}

func TestProducerStopsOnCancel(t *testing.T) {
	scene := memory.NewScene()
	mesh := newTexturedGrid(t, scene, "tile_0_0", 2, 2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// nobody reads the channel, the producer must not block
	producer := NewStandardProducer(ctx, make(chan *WorkUnit), false)
	_, err := tileset.Create(scene, mesh, 2, tileset.WithFlusher(producer))
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

func TestParseSinkKind(t *testing.T) {
	kind, err := ParseSinkKind("SQLite")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kind, test.ShouldEqual, SinkSQLite)
	kind, err = ParseSinkKind("")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kind, test.ShouldEqual, SinkDir)
	_, err = ParseSinkKind("zip")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadTilesetJson(t *testing.T) {
	for _, kind := range []SinkKind{SinkDir, SinkSQLite} {
		scene := memory.NewScene()
		mesh := newTexturedGrid(t, scene, "tile_1_2", 2, 2)
		output := t.TempDir()
		sink, err := NewSink(kind, output, "tile_1_2")
		test.That(t, err, test.ShouldBeNil)
		ts := export(t, scene, mesh, sink, false)
		test.That(t, sink.Close(), test.ShouldBeNil)

		doc, err := ReadTilesetJson(kind, output, "tile_1_2")
		test.That(t, err, test.ShouldBeNil)
		var expected []string
		for _, tile := range ts.Tiles() {
			expected = append(expected, tile.ContentURI)
		}
		test.That(t, doc.ContentURIs(), test.ShouldResemble, expected)
		test.That(t, doc.ContentURIs()[0], test.ShouldEqual, "tile_1_2__1.glb")

		_, err = ReadTilesetJson(kind, output, "tile_9_9")
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestSQLiteSinkRerunReplacesPackage(t *testing.T) {
	output := t.TempDir()
	for _, version := range []string{"0.1", "0.2"} {
		sink, err := NewSQLiteSink(output, "tile_3_3")
		test.That(t, err, test.ShouldBeNil)
		data, err := json.Marshal(&Tileset{Asset: Asset{Version: version}})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, sink.WriteTileset(data), test.ShouldBeNil)
		test.That(t, sink.WriteTile("tile_3_3__1.glb", []byte("glTF")), test.ShouldBeNil)
		test.That(t, sink.Close(), test.ShouldBeNil)
	}

	doc, err := ReadTilesetJson(SinkSQLite, output, "tile_3_3")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, doc.Asset.Version, test.ShouldEqual, "0.2")

	db, err := gorm.Open(sqlite.Open(filepath.Join(output, "tile_3_3.gl")), &gorm.Config{})
	test.That(t, err, test.ShouldBeNil)
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	var count int64
	test.That(t, db.Model(&TilesByte{}).Where("folder = ?", SQLiteRootFolder).Count(&count).Error, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, 1)
}
