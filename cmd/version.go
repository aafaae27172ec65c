package cmd

import (
	"fmt"

	"netifmgr/internal/pkg/version"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and git info",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.GetGitInfo()

		writer := table.NewWriter()
		writer.AppendHeader(table.Row{"field", "value"})
		writer.AppendRow(table.Row{"tag", info.Tag})
		writer.AppendRow(table.Row{"branch", info.Branch})
		writer.AppendRow(table.Row{"commit", info.Commit})
		writer.AppendRow(table.Row{"dirty", info.Dirty})
		fmt.Fprintln(cmd.OutOrStdout(), writer.Render())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
