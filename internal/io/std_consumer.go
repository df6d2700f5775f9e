package io

import (
	"context"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/mesh_tiler/internal/gltf"
)

type StandardConsumer struct {
	sink   Sink
	format gltf.ImageFormat
}

func NewStandardConsumer(sink Sink, format gltf.ImageFormat) *StandardConsumer {
	return &StandardConsumer{
		sink:   sink,
		format: format,
	}
}

// Continually consumes WorkUnits submitted to a work channel producing the corresponding .glb
// contents. Returns when the channel is closed by the producer, when the context is cancelled
// or on the first error.
func (c *StandardConsumer) Consume(ctx context.Context, work <-chan *WorkUnit) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case workUnit, ok := <-work:
			if !ok {
				// channel was closed by producer
				return nil
			}
			if err := c.doWork(workUnit); err != nil {
				return err
			}
		}
	}
}

// Encodes a WorkUnit and hands the binary content to the sink
func (c *StandardConsumer) doWork(workUnit *WorkUnit) error {
	content, err := gltf.Encode(workUnit.Data, gltf.EncodeOptions{ImageFormat: c.format})
	if err != nil {
		return errors.Wrapf(err, "encode tile %s", workUnit.Name)
	}
	if err := c.sink.WriteTile(workUnit.URI, content); err != nil {
		return errors.Wrapf(err, "write tile %s", workUnit.Name)
	}
	glog.V(1).Infof("%s written, %d bytes", workUnit.URI, len(content))
	return nil
}
