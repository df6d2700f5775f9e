package io

import (
	"context"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/mesh_tiler/internal/tileset"
)

type StandardProducer struct {
	ctx       context.Context
	work      chan<- *WorkUnit
	streaming bool
}

// With streaming enabled every tile payload is released from the scene right after the snapshot,
// so only the current root to leaf path stays resident during the build
func NewStandardProducer(ctx context.Context, work chan<- *WorkUnit, streaming bool) *StandardProducer {
	return &StandardProducer{
		ctx:       ctx,
		work:      work,
		streaming: streaming,
	}
}

// Snapshots the tile payload and submits it to the work channel. Blocks while the channel is full
// and gives up as soon as the pipeline context is cancelled.
func (p *StandardProducer) Flush(tile *tileset.Tile) error {
	if tile.Content == nil {
		return errors.Errorf("tile %s has no resident content to export", tile.Name)
	}
	data, err := tile.Content.Data()
	if err != nil {
		return err
	}

	select {
	case p.work <- &WorkUnit{Name: tile.Name, URI: tile.ContentURI, Data: data}:
	case <-p.ctx.Done():
		return p.ctx.Err()
	}

	if p.streaming {
		if err := tile.Content.Release(); err != nil {
			return err
		}
		tile.Content = nil
		glog.V(1).Infof("%s released from scene", tile.Name)
	}
	return nil
}

// Closes the work channel, signalling consumers that all work has been submitted
func (p *StandardProducer) Close() {
	close(p.work)
}
