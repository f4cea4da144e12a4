package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/script"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <script>...",
	Short: "Check test scripts without running them",
	Long:  `Parses each script, reports its steps and fails on the first unknown step shape.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")
		return runValidate(cmd.OutOrStdout(), args, quiet)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolP("quiet", "q", false, "Only report failures")
}

func runValidate(out io.Writer, paths []string, quiet bool) error {
	for _, path := range paths {
		s, err := script.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %v", domain.ErrUsage, err)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if !quiet {
			printSteps(out, s)
		}
		fmt.Fprintf(out, "Script '%s' is valid (%d steps).\n", s.Name, s.Len())
	}
	return nil
}

func printSteps(out io.Writer, s *domain.Script) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, step := range s.Steps {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i, step.Kind(), describe(step))
	}
	w.Flush()
}

func describe(step domain.Step) string {
	b, ok := step.(domain.BasicMessage)
	if !ok {
		return ""
	}
	var parts []string
	if b.Note != "" {
		parts = append(parts, "message "+b.Note)
	}
	if b.SendRaw != "" {
		parts = append(parts, "sendRaw "+b.SendRaw)
	}
	if b.Send != nil {
		parts = append(parts, "send "+b.Send.String())
	}
	if b.Expect != nil {
		parts = append(parts, "recv "+b.Expect.String())
	}
	return strings.Join(parts, "; ")
}
