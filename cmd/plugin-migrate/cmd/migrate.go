package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/bianoble/plugin-migrate/pkg/pluginmigrate"
)

var (
	migrateFrom   string
	migrateTo     string
	migrateCommit bool
	migrateDryRun bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	Long: `Applies every migration newer than the recorded version, up to --to or the
configured target_version, or the newest migration otherwise. Touched files
are formatted, dependencies are installed when package.json changes, and
with --commit each migration is committed on its own.

If a migration fails, the ones before it stay applied and the recorded
version is left unchanged, so running migrate again resumes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		opts := pluginmigrate.MigrateOptions{From: migrateFrom, To: migrateTo, Commit: migrateCommit}

		if migrateDryRun {
			res, err := client.PreviewAll(cmd.Context(), opts)
			if err != nil {
				return err
			}
			info("Dry run, no files written: %d migration(s) pending.", len(res.Migrations))
			return nil
		}

		res, err := client.Migrate(cmd.Context(), opts)
		if err != nil {
			var merr *pluginmigrate.MigrationError
			if errors.As(err, &merr) {
				errorf("%s failed; %d earlier migration(s) were applied and version %s is still recorded",
					merr.Migration, len(res.Applied), res.Recorded)
			}
			return err
		}

		if len(res.Applied) == 0 {
			info("Nothing to migrate: project is at %s.", res.Recorded)
			return nil
		}
		for _, a := range res.Applied {
			detail("%s: %d added, %d updated, %d deleted", a.Meta.Name, a.Counts.Added, a.Counts.Updated, a.Counts.Deleted)
		}
		info("")
		info("Migrated %s -> %s (%d migration(s)).", res.From, res.Recorded, len(res.Applied))
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFrom, "from", "", "start version (default: recorded version)")
	migrateCmd.Flags().StringVar(&migrateTo, "to", "", "target version (default: newest)")
	migrateCmd.Flags().BoolVar(&migrateCommit, "commit", false, "commit each migration separately")
	migrateCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "show the combined changes without writing files")
	rootCmd.AddCommand(migrateCmd)
}
