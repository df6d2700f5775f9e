package tools

import (
	"github.com/ecopia-map/mesh_tiler/internal/tiler"
)

// Options for the index command: defaults, then the config file, then the flags set on the command line
func (f *FlagsForCommandIndex) TilerOptions() (*tiler.TilerOptions, error) {
	opts, err := f.TilerFlags.baseOptions(tiler.CommandIndex)
	if err != nil {
		return nil, err
	}
	if opts.TilerIndexOptions == nil {
		opts.TilerIndexOptions = &tiler.TilerIndexOptions{}
	}

	set := f.setFlags()
	f.TilerFlags.apply(opts, set)
	if set["output"] {
		opts.TilerIndexOptions.Output = *f.Output
	}
	if set["package"] {
		opts.Package = *f.Package
	}
	if set["streaming"] {
		opts.Streaming = *f.Streaming
	}
	return opts, nil
}

func (f *FlagsForCommandVerify) TilerOptions() (*tiler.TilerOptions, error) {
	opts, err := f.TilerFlags.baseOptions(tiler.CommandVerify)
	if err != nil {
		return nil, err
	}
	if opts.TilerVerifyOptions == nil {
		opts.TilerVerifyOptions = &tiler.TilerVerifyOptions{}
	}

	set := f.setFlags()
	f.TilerFlags.apply(opts, set)
	if set["output"] {
		opts.TilerVerifyOptions.Output = *f.Output
	}
	// the verify rebuild keeps every tile resident
	opts.Streaming = false
	return opts, nil
}

func (f *TilerFlags) baseOptions(command string) (*tiler.TilerOptions, error) {
	opts := tiler.DefaultTilerOptions()
	if f.Config != nil && *f.Config != "" {
		if err := tiler.LoadConfigFile(opts, *f.Config); err != nil {
			return nil, err
		}
	}
	opts.Command = command
	return opts, nil
}

func (f *TilerFlags) apply(opts *tiler.TilerOptions, set map[string]bool) {
	if set["input"] {
		opts.Input = *f.Input
	}
	if set["folder"] {
		opts.FolderProcessing = *f.FolderProcessing
	}
	if set["recursive"] {
		opts.Recursive = *f.Recursive
	}
	if set["max-depth"] {
		opts.MaxDepth = *f.MaxDepth
	}
	if set["grid-x"] {
		opts.GridX = *f.GridX
	}
	if set["grid-y"] {
		opts.GridY = *f.GridY
	}
	if set["scale"] {
		opts.Scale = *f.Scale
	}
	if set["clean"] {
		opts.Clean = *f.Clean
	}
	if set["combine-materials"] {
		opts.CombineMaterials = *f.CombineMaterials
	}
	if set["y-up"] {
		opts.YUp = *f.YUp
	}
	if set["texture-format"] {
		opts.TextureFormat = *f.TextureFormat
	}
	if set["workers"] {
		opts.Workers = *f.Workers
	}
	if set["refine-mode"] {
		opts.RefineMode = tiler.ParseRefineMode(*f.RefineMode)
	}
	if set["proj"] {
		opts.SourceProj = *f.SourceProj
	}
	if set["origin-x"] {
		opts.OriginX = *f.OriginX
	}
	if set["origin-y"] {
		opts.OriginY = *f.OriginY
	}
	if set["origin-z"] {
		opts.OriginZ = *f.OriginZ
	}
	if set["zoffset"] {
		opts.ZOffset = *f.ZOffset
	}
}
