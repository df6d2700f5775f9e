package pkg

import (
	"path/filepath"
	"strconv"

	"github.com/golang/glog"
	"go.uber.org/multierr"

	"github.com/ecopia-map/mesh_tiler/internal/io"
	"github.com/ecopia-map/mesh_tiler/internal/tiler"
	"github.com/ecopia-map/mesh_tiler/pkg/algorithm_manager"
	"github.com/ecopia-map/mesh_tiler/tools"
)

type TilerIndex struct {
	fileFinder       tools.FileFinder
	algorithmManager algorithm_manager.AlgorithmManager
}

func NewTiler(fileFinder tools.FileFinder, algorithmManager algorithm_manager.AlgorithmManager) tiler.ITiler {
	return &TilerIndex{
		fileFinder:       fileFinder,
		algorithmManager: algorithmManager,
	}
}

// Starts the tiling process
func (tilerIndex *TilerIndex) RunTiler(opts *tiler.TilerOptions) error {
	glog.Infoln("Preparing list of files to process...")

	// Prepare list of files to process
	objFiles, err := tilerIndex.fileFinder.GetObjFilesToProcess(opts)
	if err != nil {
		return err
	}
	for i, filePath := range objFiles {
		glog.Infof("obj_file path %d [%s]", i+1, filePath)
	}

	if converter := tilerIndex.algorithmManager.GetCoordinateConverterAlgorithm(); converter != nil {
		defer converter.Cleanup()
	}

	for i, filePath := range objFiles {
		tools.LogOutput("Processing file " + strconv.Itoa(i+1) + "/" + strconv.Itoa(len(objFiles)))
		if err := tilerIndex.processObjFile(filePath, opts); err != nil {
			return wrapChunk(err, filePath)
		}
	}

	return nil
}

func (tilerIndex *TilerIndex) processObjFile(filePath string, opts *tiler.TilerOptions) (err error) {
	scene := tilerIndex.algorithmManager.GetScene()

	tools.LogOutput("> reading data from obj file...", filepath.Base(filePath))
	c, err := loadChunk(scene, filePath, opts)
	if err != nil {
		return err
	}

	buildOpts, err := buildOptions(tilerIndex.algorithmManager, opts)
	if err != nil {
		return err
	}

	kind, err := io.ParseSinkKind(opts.Package)
	if err != nil {
		return err
	}
	sink, err := io.NewSink(kind, opts.TilerIndexOptions.Output, c.Name())
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, sink.Close())
	}()

	tools.LogOutput("> building and exporting tiles...")
	ts, err := exportChunk(scene, c, sink, buildOpts, opts)
	if err != nil {
		return err
	}

	stats := scene.Stats()
	glog.Infof("%s: %d tiles, %d meshes %d materials %d images resident", c.Name(), len(ts.Tiles()), stats.Meshes, stats.Materials, stats.Images)
	tools.LogOutput("> done processing", filepath.Base(filePath))
	return nil
}
