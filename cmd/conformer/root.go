package main

import (
	"fmt"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "conformer",
	Short: "Conformer checks a build tool's debug server against scripted sessions",
	Long: `Conformer launches the build tool with its JSON debug server enabled, once per
transport method, replays a test script against it and compares every response
with the expected packets.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Config file (default ./conformer.yaml when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Write debug logs to stderr")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", domain.ErrUsage, err)
	})
}
