package io

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/ecopia-map/mesh_tiler/internal/tileset"
)

// Destination of the files of one chunk tileset. WriteTile must be safe for concurrent use.
type Sink interface {
	WriteTile(uri string, data []byte) error
	WriteTileset(data []byte) error
	Close() error
}

type SinkKind string

const (
	SinkDir    SinkKind = "dir"
	SinkSQLite SinkKind = "sqlite"
)

func ParseSinkKind(value string) (SinkKind, error) {
	switch SinkKind(strings.ToLower(strings.TrimSpace(value))) {
	case "", SinkDir:
		return SinkDir, nil
	case SinkSQLite:
		return SinkSQLite, nil
	}
	return "", errors.Errorf("unsupported package kind %q, must be one of [dir|sqlite]", value)
}

// Opens the sink for the tileset named chunk under the output folder
func NewSink(kind SinkKind, output, chunk string) (Sink, error) {
	switch kind {
	case SinkSQLite:
		return NewSQLiteSink(output, chunk)
	case SinkDir, "":
		return NewDirSink(output, chunk)
	}
	return nil, errors.Errorf("unsupported package kind %q", kind)
}

// Marshals the tree and writes it as the tileset.json of the sink
func WriteTilesetJson(sink Sink, ts *tileset.Tileset) error {
	data, err := GenerateTilesetJson(ts)
	if err != nil {
		return errors.Wrap(err, "generate tileset json")
	}
	return errors.Wrap(sink.WriteTileset(data), "write tileset json")
}
