package tiler

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Merges the YAML file at path into opts, keys missing from the file keep their current value
func LoadConfigFile(opts *TilerOptions, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	opts.RefineMode = ParseRefineMode(string(opts.RefineMode))
	return nil
}

// Writes opts as YAML to path
func SaveConfigFile(opts *TilerOptions, path string) error {
	data, err := yaml.Marshal(opts)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0644), "write config %s", path)
}

// Reports every invalid setting at once
func (opt *TilerOptions) Validate() error {
	var err error
	if opt.Input == "" {
		err = multierr.Append(err, errors.New("input is required"))
	} else if _, statErr := os.Stat(opt.Input); os.IsNotExist(statErr) {
		err = multierr.Append(err, errors.Errorf("input file/folder %s not found", opt.Input))
	}
	if opt.MaxDepth < 1 {
		err = multierr.Append(err, errors.Errorf("max depth must be at least 1, got %d", opt.MaxDepth))
	}
	if opt.Scale <= 0 {
		err = multierr.Append(err, errors.Errorf("scale must be positive, got %g", opt.Scale))
	}
	if opt.Workers < 0 {
		err = multierr.Append(err, errors.Errorf("workers cannot be negative, got %d", opt.Workers))
	}
	if opt.RefineMode != RefineModeReplace {
		err = multierr.Append(err, errors.New("refine-mode must be REPLACE, parent content is replaced by its children"))
	}
	if opt.Command == CommandIndex && (opt.TilerIndexOptions == nil || opt.TilerIndexOptions.Output == "") {
		err = multierr.Append(err, errors.New("output is required"))
	}
	return err
}
