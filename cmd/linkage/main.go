// Command linkage runs record deduplication from a TOML manifest: it loads
// records from SQLite or CSV, trains a match model, and writes cluster
// assignments back out.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "linkage",
		Short:         "Probabilistic record deduplication",
		Long:          "linkage deduplicates a record set described by a TOML manifest:\nblocking, Fellegi-Sunter scoring with EM-trained parameters, and\ntransitive-closure clustering.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the linkage version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "linkage", version)
		},
	}
}
