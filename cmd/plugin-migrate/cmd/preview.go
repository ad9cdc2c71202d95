package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bianoble/plugin-migrate/pkg/pluginmigrate"
)

var previewCmd = &cobra.Command{
	Use:   "preview [migration-name]",
	Short: "Show what migrations would change",
	Long: `With a name, runs that single migration in memory and prints its changes as
unified diffs. Without one, previews every pending migration and the
combined result. Nothing is written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			_, err := client.Preview(cmd.Context(), args[0])
			return err
		}
		_, err = client.PreviewAll(cmd.Context(), pluginmigrate.MigrateOptions{})
		return err
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
}
