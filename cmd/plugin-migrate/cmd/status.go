package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the recorded version and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		st, err := client.Status(cmd.Context())
		if err != nil {
			return err
		}

		recorded := st.Recorded
		if recorded == "" {
			recorded = "(none)"
		}
		info("Recorded version: %s", recorded)
		info("Latest version:   %s", st.Latest)
		if len(st.Pending) == 0 {
			info("Up to date.")
			return nil
		}
		info("")
		printMigrations(os.Stdout, st.Pending)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
