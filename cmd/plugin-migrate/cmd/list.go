package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bianoble/plugin-migrate/pkg/pluginmigrate"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		printMigrations(os.Stdout, client.Migrations())
		return nil
	},
}

// printMigrations writes a migration table.
func printMigrations(w io.Writer, ms []pluginmigrate.Migration) {
	fmt.Fprintf(w, "%-10s %-32s %s\n", "VERSION", "NAME", "DESCRIPTION")
	for _, m := range ms {
		fmt.Fprintf(w, "%-10s %-32s %s\n", m.Version, m.Name, m.Description)
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
