package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// RunInfo is what the banner announces before the first session.
type RunInfo struct {
	Script    string
	SourceDir string
	BuildDir  string
	Generator string
	Methods   []string
}

// PrintBanner writes the run header. Colours are used only when out is a
// terminal.
func PrintBanner(out io.Writer, version string, info RunInfo) {
	p := profileFor(out)
	title := p.String("conformer").Foreground(p.Color("#818cf8")).Bold()
	ver := p.String(version).Foreground(p.Color("#a78bfa"))
	label := func(s string) termenv.Style {
		return p.String(s).Foreground(p.Color("#c084fc"))
	}

	fmt.Fprintf(out, "%s %s\n", title, ver)
	fmt.Fprintf(out, "Debugger Test: %s\n", info.Script)
	fmt.Fprintf(out, "%s %s\n", label("-- SourceDir:"), info.SourceDir)
	fmt.Fprintf(out, "%s %s\n", label("-- BuildDir:"), info.BuildDir)
	fmt.Fprintf(out, "%s %s\n", label("-- Generator:"), info.Generator)
	if len(info.Methods) > 0 {
		fmt.Fprintf(out, "%s %v\n", label("-- Methods:"), info.Methods)
	}
}
