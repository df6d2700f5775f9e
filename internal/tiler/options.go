package tiler

import "strings"

type RefineMode string

const (
	RefineModeAdd     RefineMode = "ADD"
	RefineModeReplace RefineMode = "REPLACE"
)

func (e RefineMode) String() string {
	if e == RefineModeAdd {
		return "ADD"
	} else if e == RefineModeReplace {
		return "REPLACE"
	}
	return ""
}

func ParseRefineMode(value string) RefineMode {
	normalizedValue := strings.Trim(strings.ToUpper(value), " ")
	if normalizedValue == "ADD" {
		return RefineModeAdd
	} else if normalizedValue == "REPLACE" {
		return RefineModeReplace
	}
	return ""
}

const (
	CommandIndex  = "index"
	CommandVerify = "verify"
)

type ITiler interface {
	RunTiler(opts *TilerOptions) error
}

// Contains the options needed for the tiling algorithm
type TilerOptions struct {
	Input            string     `yaml:"input"`             // Input OBJ file/folder
	FolderProcessing bool       `yaml:"folder"`            // Enables the processing of all OBJ files in folder
	Recursive        bool       `yaml:"recursive"`         // Recursive lookup of OBJ files in subfolders
	MaxDepth         int        `yaml:"max_depth"`         // Depth of the quadtree, 1 means root only
	GridX            int        `yaml:"grid_x"`            // Grid coordinates, used when they cannot be parsed from the file name
	GridY            int        `yaml:"grid_y"`            //
	Scale            float64    `yaml:"scale"`             // Uniform scale applied to the chunk on load
	Clean            bool       `yaml:"clean"`             // Dissolve degenerate faces and merge duplicate vertices on load
	CombineMaterials bool       `yaml:"combine_materials"` // Bake all the chunk materials in one atlas on load
	YUp              bool       `yaml:"y_up"`              // Input OBJ is Y-up
	TextureFormat    string     `yaml:"texture_format"`    // png or webp
	Package          string     `yaml:"package"`           // dir or sqlite
	Streaming        bool       `yaml:"streaming"`         // Release tile payloads from memory as soon as they are exported
	Workers          int        `yaml:"workers"`           // Number of export consumers, one per CPU when zero
	RefineMode       RefineMode `yaml:"refine_mode"`       // Refine mode to use to generate the tileset
	SourceProj       string     `yaml:"source_proj"`       // proj4 definition of the mesh CRS, empty disables georeferencing
	OriginX          float64    `yaml:"origin_x"`          // Source CRS position of the mesh local origin
	OriginY          float64    `yaml:"origin_y"`          //
	OriginZ          float64    `yaml:"origin_z"`          //
	ZOffset          float64    `yaml:"zoffset"`           // Z Offset in meters applied to the georeferenced origin

	Command            string              `yaml:"-"`
	TilerIndexOptions  *TilerIndexOptions  `yaml:"index,omitempty"`
	TilerVerifyOptions *TilerVerifyOptions `yaml:"verify,omitempty"`
}

type TilerIndexOptions struct {
	Output string `yaml:"output"` // Output Cesium Tileset folder
}

type TilerVerifyOptions struct {
	Output string `yaml:"output"` // Folder of a previous index run to compare against, optional
}

// Options with the default values of every setting
func DefaultTilerOptions() *TilerOptions {
	return &TilerOptions{
		MaxDepth:         3,
		Scale:            1,
		Clean:            true,
		CombineMaterials: true,
		TextureFormat:    "png",
		Package:          "dir",
		RefineMode:       RefineModeReplace,
	}
}

func (opt *TilerOptions) Copy() *TilerOptions {
	newOpt := *opt
	newOpt.TilerIndexOptions = nil
	newOpt.TilerVerifyOptions = nil

	if opt.TilerIndexOptions != nil {
		indexOpt := *opt.TilerIndexOptions
		newOpt.TilerIndexOptions = &indexOpt
	}

	if opt.TilerVerifyOptions != nil {
		verifyOpt := *opt.TilerVerifyOptions
		newOpt.TilerVerifyOptions = &verifyOpt
	}

	return &newOpt
}

func (opt *TilerOptions) Georeferenced() bool {
	return strings.TrimSpace(opt.SourceProj) != ""
}
