package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// HierarchicalOptions controls layered loading.
type HierarchicalOptions struct {
	ProjectPath      string
	SystemConfigPath string
	UserConfigPath   string

	// NoInherit loads only the project layer.
	NoInherit bool
}

// HierarchicalResult is the merged configuration and what each layer
// contributed.
type HierarchicalResult struct {
	Config *Config
	Layers []Layer
}

// LoadHierarchical merges defaults with every config layer that exists,
// lowest precedence first, and validates the result. Missing layers are
// skipped; a layer that fails to parse is an error.
func LoadHierarchical(opts HierarchicalOptions) (*HierarchicalResult, error) {
	var layers []Layer
	if opts.NoInherit {
		layers = []Layer{{Path: opts.ProjectPath, Level: LevelProject}}
	} else {
		layers = DiscoverPaths(Locations{
			Project: opts.ProjectPath,
			System:  opts.SystemConfigPath,
			User:    opts.UserConfigPath,
		})
	}

	configs := []*Config{Default()}
	for i := range layers {
		if _, err := os.Stat(layers[i].Path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		cfg, err := parse(layers[i].Path)
		if err != nil {
			layers[i].Err = err
			return nil, fmt.Errorf("%s config: %w", layers[i].Level, err)
		}
		layers[i].Loaded = true
		configs = append(configs, cfg)
	}

	merged, err := MergeAll(configs)
	if err != nil {
		return nil, err
	}
	if errs := Validate(merged); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return &HierarchicalResult{Config: merged, Layers: layers}, nil
}
