package tools

import (
	"flag"

	"github.com/ecopia-map/mesh_tiler/internal/tiler"
)

// Long name of every command flag shorthand
var flagAliases = map[string]string{}

type FlagsGlobal struct {
	Help    *bool `json:"help"`
	Version *bool `json:"version"`
}

type TilerFlags struct {
	Config           *string `json:"config"`
	Input            *string `json:"input"`
	FolderProcessing *bool
	Recursive        *bool
	MaxDepth         *int `json:"max_depth"`
	GridX            *int
	GridY            *int
	Scale            *float64
	Clean            *bool
	CombineMaterials *bool
	YUp              *bool
	TextureFormat    *string `json:"texture_format"`
	Workers          *int
	RefineMode       *string `json:"refine_mode"`
	SourceProj       *string `json:"source_proj"`
	OriginX          *float64
	OriginY          *float64
	OriginZ          *float64
	ZOffset          *float64
}

type FlagsForCommandIndex struct {
	TilerFlags
	Output       *string
	Package      *string
	Streaming    *bool
	Silent       *bool
	LogTimestamp *bool
	Help         *bool
	Version      *bool

	flagCommand *flag.FlagSet
}

type FlagsForCommandVerify struct {
	TilerFlags
	Output *string

	flagCommand *flag.FlagSet
}

// Long names of the flags set on the command line, used to let them override the config file
func (f *FlagsForCommandIndex) setFlags() map[string]bool {
	return visited(f.flagCommand)
}

func (f *FlagsForCommandVerify) setFlags() map[string]bool {
	return visited(f.flagCommand)
}

func ParseFlagsGlobal() FlagsGlobal {
	help := defineBoolFlag("help", "h", false, "Displays this help.")
	// -v belongs to glog
	version := defineBoolFlag("version", "", false, "Displays the version of mesh_tiler.")

	flag.Parse()

	return FlagsGlobal{
		Help:    help,
		Version: version,
	}
}

func defineTilerFlags(flagCommand *flag.FlagSet) TilerFlags {
	defaults := tiler.DefaultTilerOptions()
	return TilerFlags{
		Config:           defineStringFlagCommand(flagCommand, "config", "c", "", "YAML file with the tiler options. Flags set on the command line take precedence."),
		Input:            defineStringFlagCommand(flagCommand, "input", "i", "", "Specifies the input obj file/folder."),
		FolderProcessing: defineBoolFlagCommand(flagCommand, "folder", "f", false, "Enables processing of all obj files from input folder. Input must be a folder if specified"),
		Recursive:        defineBoolFlagCommand(flagCommand, "recursive", "r", false, "Enables recursive lookup for all .obj files inside the subfolders"),
		MaxDepth:         defineIntFlagCommand(flagCommand, "max-depth", "d", defaults.MaxDepth, "Depth of the tile quadtree. 1 produces the root tile only."),
		GridX:            defineIntFlagCommand(flagCommand, "grid-x", "", 0, "Grid x of the chunk, used when it cannot be parsed from a Tile-<x>-<y> file name."),
		GridY:            defineIntFlagCommand(flagCommand, "grid-y", "", 0, "Grid y of the chunk, used when it cannot be parsed from a Tile-<x>-<y> file name."),
		Scale:            defineFloat64FlagCommand(flagCommand, "scale", "", defaults.Scale, "Uniform scale applied to the chunk when loaded."),
		Clean:            defineBoolFlagCommand(flagCommand, "clean", "", defaults.Clean, "Dissolves degenerate faces and merges duplicate vertices when loading the chunk."),
		CombineMaterials: defineBoolFlagCommand(flagCommand, "combine-materials", "", defaults.CombineMaterials, "Bakes all the chunk materials in a single texture atlas when loading the chunk."),
		YUp:              defineBoolFlagCommand(flagCommand, "y-up", "", false, "Input obj files are Y-up."),
		TextureFormat:    defineStringFlagCommand(flagCommand, "texture-format", "", defaults.TextureFormat, "Image format of the tile textures, can be 'png' or 'webp'."),
		Workers:          defineIntFlagCommand(flagCommand, "workers", "w", 0, "Number of tile export workers. Defaults to one per CPU."),
		RefineMode:       defineStringFlagCommand(flagCommand, "refine-mode", "", defaults.RefineMode.String(), "Type of refine mode. Only 'REPLACE' is supported: child tiles replace their parent content."),
		SourceProj:       defineStringFlagCommand(flagCommand, "proj", "p", "", "proj4 definition of the mesh coordinates. When set the root tile is placed on the globe."),
		OriginX:          defineFloat64FlagCommand(flagCommand, "origin-x", "", 0, "X of the mesh local origin in the source projection."),
		OriginY:          defineFloat64FlagCommand(flagCommand, "origin-y", "", 0, "Y of the mesh local origin in the source projection."),
		OriginZ:          defineFloat64FlagCommand(flagCommand, "origin-z", "", 0, "Z of the mesh local origin in the source projection."),
		ZOffset:          defineFloat64FlagCommand(flagCommand, "zoffset", "z", 0, "Vertical offset to apply to the georeferenced origin, in meters."),
	}
}

func ParseFlagsForCommandIndex(args []string) FlagsForCommandIndex {
	flagCommand := flag.NewFlagSet("command-index", flag.ExitOnError)

	tilerFlags := defineTilerFlags(flagCommand)
	output := defineStringFlagCommand(flagCommand, "output", "o", "", "Specifies the output folder where to write the tileset data.")
	pkg := defineStringFlagCommand(flagCommand, "package", "", "dir", "Output layout, can be 'dir' (one folder per chunk) or 'sqlite' (one .gl file per chunk).")
	streaming := defineBoolFlagCommand(flagCommand, "streaming", "", false, "Releases every tile from memory as soon as it is exported.")
	silent := defineBoolFlagCommand(flagCommand, "silent", "s", false, "Use to suppress all the non-error messages.")
	logTimestamp := defineBoolFlagCommand(flagCommand, "timestamp", "t", false, "Adds timestamp to log messages.")
	help := defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help.")
	version := defineBoolFlagCommand(flagCommand, "version", "v", false, "Displays the version of mesh_tiler.")

	flagCommand.Parse(args)

	return FlagsForCommandIndex{
		TilerFlags:   tilerFlags,
		Output:       output,
		Package:      pkg,
		Streaming:    streaming,
		Silent:       silent,
		LogTimestamp: logTimestamp,
		Help:         help,
		Version:      version,
		flagCommand:  flagCommand,
	}
}

func ParseFlagsForCommandVerify(args []string) FlagsForCommandVerify {
	flagCommand := flag.NewFlagSet("command-verify", flag.ExitOnError)

	tilerFlags := defineTilerFlags(flagCommand)
	output := defineStringFlagCommand(flagCommand, "output", "o", "", "Folder of a previous index run whose tileset.json is compared with the rebuilt tree.")

	flagCommand.Parse(args)

	return FlagsForCommandVerify{
		TilerFlags:  tilerFlags,
		Output:      output,
		flagCommand: flagCommand,
	}
}

func visited(flagCommand *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	if flagCommand == nil {
		return set
	}
	flagCommand.Visit(func(f *flag.Flag) {
		if name, ok := flagAliases[f.Name]; ok {
			set[name] = true
			return
		}
		set[f.Name] = true
	})
	return set
}

func defineBoolFlag(name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flag.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineStringFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flagCommand.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
		flagAliases[shortHand] = name
	}

	return &output
}

func defineIntFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue int, usage string) *int {
	var output int
	flagCommand.IntVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.IntVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
		flagAliases[shortHand] = name
	}

	return &output
}

func defineFloat64FlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue float64, usage string) *float64 {
	var output float64
	flagCommand.Float64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.Float64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
		flagAliases[shortHand] = name
	}
	return &output
}

func defineBoolFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flagCommand.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
		flagAliases[shortHand] = name
	}
	return &output
}
