package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	return func(markdown string) (string, error) {
		if err != nil {
			return markdown, err
		}
		return r.Render(markdown)
	}
}

// SummaryMarkdown renders a report as a markdown table.
func SummaryMarkdown(report *domain.RunReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", report.Script)
	b.WriteString("| Method | Status | Steps | Received | Ignored | Detail |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, m := range report.Methods {
		detail := m.Error
		if detail == "" && m.Status == domain.StatusPassed {
			detail = m.EndedAt.Sub(m.StartedAt).Round(time.Millisecond).String()
		}
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %s |\n",
			m.Method, m.Status, m.Steps, m.Received, m.Ignored, escapeCell(Sanitize(detail)))
	}
	fmt.Fprintf(&b, "\nRun `%s`: exit code %d\n", report.ID, report.ExitCode())
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
