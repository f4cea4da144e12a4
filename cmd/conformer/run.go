package main

import (
	"fmt"

	"github.com/aretw0/conformer/internal/cli"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [<build-tool> <script> <source-dir> <build-base> <generator>]",
	Short: "Run a test script over every transport method",
	Long: `Runs the script against a fresh debug server for each transport method.

The five positional arguments follow the classic driver. Each one can also be
given with --cmake, --script, --source, --build and --generator, in the config
file or as CONFORMER_* environment variables.

Exit codes: 0 success, 1 mismatch, 2 unknown step, 3 launch failure,
4 timeout, 64 usage error, 130 interrupted, 255 connection closed.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 5 {
			return fmt.Errorf("%w: run takes 0 or 5 arguments, got %d", domain.ErrUsage, len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		opts, err := cli.LoadRunOptions(cmd.Flags(), configFile, args)
		if err != nil {
			return err
		}
		return cli.Execute(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	cli.RegisterRunFlags(runCmd.Flags())
}
