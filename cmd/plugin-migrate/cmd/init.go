package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bianoble/plugin-migrate/internal/config"
)

var initForce bool

// initTemplate is the default plugin-migrate.yaml scaffold.
const initTemplate = `# plugin-migrate configuration
version: 1

# log_level: info            # debug, info, warn, error
# settings_path: .config/.cprc.json
# target_version: 6.1.0      # stop at this version instead of the newest
# commit_each_migration: false

formatter:
  # Touched files are piped through prettier by default.
  # command: npx
  # args: [--no-install, prettier, --stdin-filepath, "{path}"]
  # disabled: true
  concurrency: 4

install:
  # The package manager is picked from the lockfile by default.
  # command: pnpm
  # args: [install]
  # skip: true
`

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter plugin-migrate.yaml configuration",
	Long: `Creates a plugin-migrate.yaml file in the project root with every option
documented. Use --force to overwrite an existing configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outPath := configPath
		if outPath == "" {
			outPath = filepath.Join(rootDir, config.FileName)
		}
		abs, err := filepath.Abs(outPath)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		if !initForce {
			if _, err := os.Stat(abs); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", abs)
			}
		}

		if err := os.WriteFile(abs, []byte(initTemplate), 0644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		info("Created %s", abs)
		info("")
		info("Next steps:")
		info("  1. Run 'plugin-migrate status' to see pending migrations")
		info("  2. Run 'plugin-migrate preview' to review the changes")
		info("  3. Run 'plugin-migrate migrate --commit' to apply them")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config file")
	rootCmd.AddCommand(initCmd)
}
