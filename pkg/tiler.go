package pkg

import (
	"context"
	"path/filepath"
	"runtime"

	"github.com/golang/geo/r3"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ecopia-map/mesh_tiler/internal/backend"
	"github.com/ecopia-map/mesh_tiler/internal/chunk"
	"github.com/ecopia-map/mesh_tiler/internal/converters"
	"github.com/ecopia-map/mesh_tiler/internal/gltf"
	"github.com/ecopia-map/mesh_tiler/internal/io"
	"github.com/ecopia-map/mesh_tiler/internal/tiler"
	"github.com/ecopia-map/mesh_tiler/internal/tileset"
	"github.com/ecopia-map/mesh_tiler/pkg/algorithm_manager"
)

// Imports the chunk OBJ at filePath into scene. Grid coordinates come from the file name and fall
// back to the configured ones.
func loadChunk(scene backend.Backend, filePath string, opts *tiler.TilerOptions) (*chunk.Chunk, error) {
	gridX, gridY, err := chunk.GridFromFileName(filePath)
	if err != nil {
		glog.Warningf("%v, using grid %d %d", err, opts.GridX, opts.GridY)
		gridX, gridY = opts.GridX, opts.GridY
	}
	return chunk.Load(scene, filePath, gridX, gridY, chunk.LoadOptions{
		Scale:            opts.Scale,
		Clean:            opts.Clean,
		CombineMaterials: opts.CombineMaterials,
		YUp:              opts.YUp,
		MaxAtlasSize:     chunk.DefaultMaxAtlasSize,
	})
}

// Build options shared by every command: the LOD policy and, when georeferenced, the root frame
func buildOptions(algorithmManager algorithm_manager.AlgorithmManager, opts *tiler.TilerOptions) ([]tileset.Option, error) {
	buildOpts := []tileset.Option{tileset.WithPolicy(algorithmManager.GetLodPolicy())}

	converter := algorithmManager.GetCoordinateConverterAlgorithm()
	if converter == nil {
		return buildOpts, nil
	}
	origin := r3.Vector{X: opts.OriginX, Y: opts.OriginY, Z: opts.OriginZ}
	transform, err := converters.GeoreferenceTransform(converter, algorithmManager.GetElevationCorrectionAlgorithm(), origin)
	if err != nil {
		return nil, err
	}
	glog.Infof("root tile georeferenced at %v", transform.Col(3))
	return append(buildOpts, tileset.WithRootTransform(transform)), nil
}

// Builds the tileset of c and exports every tile to sink while the build runs
func exportChunk(scene backend.Backend, c *chunk.Chunk, sink io.Sink, buildOpts []tileset.Option, opts *tiler.TilerOptions) (*tileset.Tileset, error) {
	format, err := gltf.ParseImageFormat(opts.TextureFormat)
	if err != nil {
		return nil, err
	}

	// a consumer goroutine per CPU
	numConsumers := opts.Workers
	if numConsumers <= 0 {
		numConsumers = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(context.Background())

	// init channel where to submit work with a buffer 5 times greater than the number of consumer
	workChannel := make(chan *io.WorkUnit, numConsumers*5)

	for i := 0; i < numConsumers; i++ {
		consumer := io.NewStandardConsumer(sink, format)
		g.Go(func() error {
			return consumer.Consume(ctx, workChannel)
		})
	}

	// the build runs on this goroutine and acts as the producer
	producer := io.NewStandardProducer(ctx, workChannel, opts.Streaming)
	ts, buildErr := tileset.Create(scene, c.Mesh, opts.MaxDepth, append(buildOpts, tileset.WithFlusher(producer))...)
	producer.Close()

	// a consumer failure cancels ctx and surfaces in the build as ctx.Err, report the root cause
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if buildErr != nil {
		return nil, buildErr
	}

	if err := io.WriteTilesetJson(sink, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

func wrapChunk(err error, filePath string) error {
	return errors.Wrapf(err, "chunk %s", filepath.Base(filePath))
}
