package tui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/conformer/pkg/domain"
)

// Console prints the driver's progress in the classic conformance test
// format: notes, every received packet with its tag, pause waits and a
// Completed line per method.
type Console struct {
	out     io.Writer
	quiet   bool
	color   bool
	methods bool
	mu      sync.Mutex
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithQuiet suppresses packet echo; notes and outcomes are still printed.
func WithQuiet(quiet bool) ConsoleOption {
	return func(c *Console) {
		c.quiet = quiet
	}
}

// WithMethodPrefix prefixes lines with the transport method, for parallel
// runs where output interleaves.
func WithMethodPrefix(enabled bool) ConsoleOption {
	return func(c *Console) {
		c.methods = enabled
	}
}

// NewConsole creates a Console writing to out.
func NewConsole(out io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{out: out, color: IsTerminal(out)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) printf(method, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.methods && method != "" {
		fmt.Fprintf(c.out, "[%s] ", method)
	}
	fmt.Fprintf(c.out, format, args...)
}

// System prints a driver message in the ">>> " style.
func (c *Console) System(format string, args ...any) {
	c.printf("", ">>> %s\n", fmt.Sprintf(format, args...))
}

// Hooks returns lifecycle hooks that print progress.
func (c *Console) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(_ context.Context, e *domain.SessionEvent) {
			c.System("Method '%s' (build dir %s)", e.Method, e.BuildDir)
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEvent) {
			if e.Err != nil {
				c.printf(e.Method, "Failed: %s\n", Sanitize(e.Err.Error()))
				return
			}
			c.printf(e.Method, "Completed\n")
		},
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			if e.Note != "" {
				c.printf(e.Method, "%s\n", Sanitize(e.Note))
			}
			if e.Kind == (domain.WaitForPause{}).Kind() {
				c.printf(e.Method, "WAIT_FOR_PAUSE:\n")
			}
		},
		OnSend: func(_ context.Context, e *domain.MessageEvent) {
			if c.quiet {
				return
			}
			if e.Raw != "" {
				c.printf(e.Method, "client (raw) %s\n", Sanitize(e.Raw))
				return
			}
			c.printf(e.Method, "client %s\n", Sanitize(e.Message.String()))
		},
		OnReceive: func(_ context.Context, e *domain.MessageEvent) {
			if c.quiet {
				return
			}
			tag := e.Tag
			if tag == domain.TagIgnored {
				tag = "(" + tag + ")"
			}
			c.printf(e.Method, "%s %s\n", tag, Sanitize(e.Message.String()))
		},
	}
}

// Summary prints the report table, rendered with glamour on terminals.
func (c *Console) Summary(report *domain.RunReport) {
	md := SummaryMarkdown(report)
	if c.color {
		if out, err := NewRenderer()(md); err == nil {
			md = out
		}
	}
	c.printf("", "%s", md)
}
