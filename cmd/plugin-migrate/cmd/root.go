package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Build-time variables set via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Global flags.
var (
	configPath string
	rootDir    string
	noInherit  bool
	verbose    bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "plugin-migrate",
	Short: "Upgrade scaffolded Grafana plugin projects",
	Long: `plugin-migrate upgrades a scaffolded Grafana plugin project to a newer
framework version. It reads the version recorded in .config/.cprc.json,
applies every migration released since then in order, writes each one's
changes before the next runs, and records the new version once all of
them succeeded.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("plugin-migrate %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "plugin project directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default <root>/plugin-migrate.yaml)")
	rootCmd.PersistentFlags().BoolVar(&noInherit, "no-inherit", false, "ignore system and user config files")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "detailed output and diffs")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "minimal output (errors only)")

	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}
