package io

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Reads back the tileset.json written by a sink of the given kind for chunk under output
func ReadTilesetJson(kind SinkKind, output, chunk string) (*Tileset, error) {
	var data []byte
	var err error
	switch kind {
	case SinkSQLite:
		data, err = readSQLiteTileset(filepath.Join(output, chunk+".gl"))
	default:
		data, err = os.ReadFile(filepath.Join(output, chunk, TilesetFileName))
	}
	if err != nil {
		return nil, err
	}

	doc := &Tileset{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrapf(err, "parse %s of %s", TilesetFileName, chunk)
	}
	return doc, nil
}

func readSQLiteTileset(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	var header TilesHeader
	err = db.Where("folder = ? AND json_name = ?", SQLiteRootFolder, TilesetFileName).First(&header).Error
	if err != nil {
		return nil, errors.Wrapf(err, "read %s from %s", TilesetFileName, path)
	}
	return header.TileJson, nil
}

// Content URIs of the document, in pre order
func (ts *Tileset) ContentURIs() []string {
	uris := []string{ts.Root.Content.Url}
	var visit func(children []Child)
	visit = func(children []Child) {
		for _, child := range children {
			uris = append(uris, child.Content.Url)
			visit(child.Children)
		}
	}
	visit(ts.Root.Children)
	return uris
}
