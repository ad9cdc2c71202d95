package config

import "fmt"

// Merge combines two configs where overlay takes precedence over base.
// This implements the hierarchical merge semantics:
//   - version: must agree if both declare it (non-zero); fatal error on mismatch
//   - scalars and flags: overlay wins when set
//   - formatter, install: a layer that sets a command replaces the command
//     and its args together
func Merge(base, overlay *Config) (*Config, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := *base

	// Version: must agree if both are non-zero.
	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}

	// Scalars: overlay wins when set.
	result.LogLevel = pick(base.LogLevel, overlay.LogLevel)
	result.SettingsPath = pick(base.SettingsPath, overlay.SettingsPath)
	result.TargetVersion = pick(base.TargetVersion, overlay.TargetVersion)
	result.CommitEachMigration = pickBool(base.CommitEachMigration, overlay.CommitEachMigration)

	// Formatter: the command and its args travel together.
	result.Formatter.Disabled = pickBool(base.Formatter.Disabled, overlay.Formatter.Disabled)
	if overlay.Formatter.Concurrency != 0 {
		result.Formatter.Concurrency = overlay.Formatter.Concurrency
	}
	if overlay.Formatter.Command != "" {
		result.Formatter.Command = overlay.Formatter.Command
		result.Formatter.Args = overlay.Formatter.Args
	}

	// Install: same rule as the formatter.
	result.Install.Skip = pickBool(base.Install.Skip, overlay.Install.Skip)
	if overlay.Install.Command != "" {
		result.Install.Command = overlay.Install.Command
		result.Install.Args = overlay.Install.Args
	}

	return &result, nil
}

// MergeAll merges multiple configs in order (lowest precedence first).
// Returns an error if any version mismatch is found.
func MergeAll(configs []*Config) (*Config, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to merge")
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		var err error
		result, err = Merge(result, configs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case overlay == 0:
		*out = base // overlay is silent; validation catches a zero result
	case base == 0, base == overlay:
		*out = overlay
	default:
		return fmt.Errorf("config version mismatch: one layer declares version %d, another declares version %d (all config layers must agree on version)", base, overlay)
	}
	return nil
}

// pick returns overlay unless it is empty.
func pick(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func pickBool(base, overlay *bool) *bool {
	if overlay != nil {
		return overlay
	}
	return base
}
