package tools

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"github.com/ecopia-map/mesh_tiler/internal/tiler"
)

func touch(t *testing.T, path string) {
	t.Helper()
	test.That(t, os.MkdirAll(filepath.Dir(path), 0777), test.ShouldBeNil)
	test.That(t, os.WriteFile(path, nil, 0666), test.ShouldBeNil)
}

func TestIndexOptionsPriority(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "config.yaml")
	yamlContent := `
max_depth: 5
scale: 0.1
texture_format: webp
package: sqlite
index:
  output: from-config
`
	test.That(t, os.WriteFile(config, []byte(yamlContent), 0644), test.ShouldBeNil)

	flags := ParseFlagsForCommandIndex([]string{"-c", config, "-d", "2", "-input", "chunk.obj", "-streaming"})
	opts, err := flags.TilerOptions()
	test.That(t, err, test.ShouldBeNil)

	test.That(t, opts.Command, test.ShouldEqual, tiler.CommandIndex)
	// flags win over the file, shorthands included
	test.That(t, opts.MaxDepth, test.ShouldEqual, 2)
	test.That(t, opts.Input, test.ShouldEqual, "chunk.obj")
	test.That(t, opts.Streaming, test.ShouldBeTrue)
	// the file wins over the defaults
	test.That(t, opts.Scale, test.ShouldEqual, 0.1)
	test.That(t, opts.TextureFormat, test.ShouldEqual, "webp")
	test.That(t, opts.Package, test.ShouldEqual, "sqlite")
	test.That(t, opts.TilerIndexOptions.Output, test.ShouldEqual, "from-config")
	// defaults
	test.That(t, opts.RefineMode, test.ShouldEqual, tiler.RefineModeReplace)
	test.That(t, opts.CombineMaterials, test.ShouldBeTrue)
}

func TestIndexOptionsWithoutConfig(t *testing.T) {
	flags := ParseFlagsForCommandIndex([]string{"-o", "out", "-clean=false", "-proj", "+proj=utm +zone=33 +datum=WGS84"})
	opts, err := flags.TilerOptions()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.TilerIndexOptions.Output, test.ShouldEqual, "out")
	test.That(t, opts.Clean, test.ShouldBeFalse)
	test.That(t, opts.Georeferenced(), test.ShouldBeTrue)
	test.That(t, opts.MaxDepth, test.ShouldEqual, tiler.DefaultTilerOptions().MaxDepth)
}

func TestVerifyOptionsDisableStreaming(t *testing.T) {
	config := filepath.Join(t.TempDir(), "config.yaml")
	test.That(t, os.WriteFile(config, []byte("streaming: true\n"), 0644), test.ShouldBeNil)

	flags := ParseFlagsForCommandVerify([]string{"-config", config, "-o", "previous"})
	opts, err := flags.TilerOptions()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.Command, test.ShouldEqual, tiler.CommandVerify)
	test.That(t, opts.Streaming, test.ShouldBeFalse)
	test.That(t, opts.TilerVerifyOptions.Output, test.ShouldEqual, "previous")
}

func TestGetObjFilesToProcess(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "Tile-2-1.obj"))
	touch(t, filepath.Join(dir, "Tile-1-1.OBJ"))
	touch(t, filepath.Join(dir, "Tile-1-1.mtl"))
	touch(t, filepath.Join(dir, "nested", "Tile-3-3.obj"))

	finder := NewStandardFileFinder()
	files, err := finder.GetObjFilesToProcess(&tiler.TilerOptions{Input: dir, FolderProcessing: true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, files, test.ShouldResemble, []string{
		filepath.Join(dir, "Tile-1-1.OBJ"),
		filepath.Join(dir, "Tile-2-1.obj"),
	})

	files, err = finder.GetObjFilesToProcess(&tiler.TilerOptions{Input: dir, FolderProcessing: true, Recursive: true})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, files, test.ShouldHaveLength, 3)

	files, err = finder.GetObjFilesToProcess(&tiler.TilerOptions{Input: "single.obj"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, files, test.ShouldResemble, []string{"single.obj"})

	_, err = finder.GetObjFilesToProcess(&tiler.TilerOptions{Input: filepath.Join(dir, "Tile-2-1.obj"), FolderProcessing: true})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBinaryHelpers(t *testing.T) {
	test.That(t, ConvertIntToByteArray(0x01020304), test.ShouldResemble, []byte{4, 3, 2, 1})
	test.That(t, ConvertTruncateFloat64ToFloat32ByteArray([]float64{1}), test.ShouldResemble, []byte{0, 0, 0x80, 0x3f})
	test.That(t, ConvertUint32ArrayToByteArray([]uint32{1, 2}), test.ShouldResemble, []byte{1, 0, 0, 0, 2, 0, 0, 0})
	test.That(t, PadTo4([]byte("abcde"), ' '), test.ShouldResemble, []byte("abcde   "))
	test.That(t, PadTo4([]byte("abcd"), 0), test.ShouldResemble, []byte("abcd"))
}

func TestLoggerToggles(t *testing.T) {
	DisableLogger()
	DisableLoggerTimestamp()
	LogOutput("silent")
	test.That(t, isEnabled, test.ShouldBeFalse)
	test.That(t, printTimestamp, test.ShouldBeFalse)

	EnableLogger()
	EnableLoggerTimestamp()
	test.That(t, isEnabled, test.ShouldBeTrue)
	test.That(t, printTimestamp, test.ShouldBeTrue)
}

func TestIsFloatLessOrEqual(t *testing.T) {
	test.That(t, IsFloatLessOrEqual(1, 1+FloatMin/2), test.ShouldBeTrue)
	test.That(t, IsFloatLessOrEqual(1+FloatMin/2, 1), test.ShouldBeTrue)
	test.That(t, IsFloatLessOrEqual(1.1, 1), test.ShouldBeFalse)
}
