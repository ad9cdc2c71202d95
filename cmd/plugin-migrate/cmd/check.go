package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// errPending marks a check that found migrations to run.
var errPending = errors.New("migration(s) pending")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fail if migrations are pending",
	Long: `Compares the recorded version with the newest migration. Exit 0 if the
project is up to date; exit non-zero otherwise. Suitable for CI pipelines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		st, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}
		if len(st.Pending) == 0 {
			info("Project is at %s, nothing to migrate.", st.Recorded)
			return nil
		}
		for _, m := range st.Pending {
			info("  pending   %s (%s)", m.Name, m.Version)
		}
		return fmt.Errorf("check failed: %d %w", len(st.Pending), errPending)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
