package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/conformer"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of conformer",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "conformer version %s\n", strings.TrimSpace(conformer.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
