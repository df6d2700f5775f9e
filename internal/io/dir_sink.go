package io

import (
	"os"
	"path/filepath"

	"github.com/ecopia-map/mesh_tiler/tools"
)

// Writes <output>/<chunk>/tileset.json and one .glb file per tile next to it
type DirSink struct {
	folder string
}

func NewDirSink(output, chunk string) (*DirSink, error) {
	folder := filepath.Join(output, chunk)
	if err := tools.CreateDirectoryIfDoesNotExist(folder); err != nil {
		return nil, err
	}
	return &DirSink{folder: folder}, nil
}

func (s *DirSink) WriteTile(uri string, data []byte) error {
	return os.WriteFile(filepath.Join(s.folder, uri), data, 0666)
}

func (s *DirSink) WriteTileset(data []byte) error {
	return os.WriteFile(filepath.Join(s.folder, TilesetFileName), data, 0666)
}

func (s *DirSink) Close() error {
	return nil
}
