package tools

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/ecopia-map/mesh_tiler/internal/tiler"
)

type FileFinder interface {
	GetObjFilesToProcess(opts *tiler.TilerOptions) ([]string, error)
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

func (f *StandardFileFinder) GetObjFilesToProcess(opts *tiler.TilerOptions) ([]string, error) {
	// If folder processing is not enabled then the obj file is given by -input flag, otherwise look for obj files in
	// -input folder eventually excluding nested folders if Recursive flag is disabled
	if !opts.FolderProcessing {
		return []string{opts.Input}, nil
	}

	return f.getObjFilesFromInputFolder(opts)
}

func (f *StandardFileFinder) getObjFilesFromInputFolder(opts *tiler.TilerOptions) ([]string, error) {
	var objFiles = make([]string, 0)

	baseInfo, err := os.Stat(opts.Input)
	if err != nil {
		return nil, err
	}
	if !baseInfo.IsDir() {
		return nil, errors.Errorf("input %s must be a folder when folder processing is enabled", opts.Input)
	}
	err = filepath.Walk(
		opts.Input,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() && !opts.Recursive && !os.SameFile(info, baseInfo) {
				return filepath.SkipDir
			} else {
				if !info.IsDir() && strings.ToLower(filepath.Ext(info.Name())) == ".obj" {
					objFiles = append(objFiles, path)
				}
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	sort.Strings(objFiles)
	return objFiles, nil
}
