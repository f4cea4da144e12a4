// Package normalize rewrites inbound protocol messages so they compare
// equal across machines, build directories and scheduling races.
package normalize

import (
	"path/filepath"
	"strings"

	"github.com/aretw0/conformer/pkg/domain"
)

// Filter holds the context needed to normalize messages. It is immutable
// and safe to share between concurrent sessions.
type Filter struct {
	base string
}

// NewFilter creates a filter that strips sourceDir from backtrace paths.
// An empty sourceDir disables path rewriting.
func NewFilter(sourceDir string) Filter {
	if sourceDir == "" {
		return Filter{}
	}
	base := filepath.ToSlash(filepath.Clean(sourceDir))
	return Filter{base: strings.TrimSuffix(base, "/")}
}

// Base returns the prefix stripped from backtrace paths.
func (f Filter) Base() string {
	return f.base
}

// Normalize returns a rewritten copy of msg and whether it should be
// forwarded to step matching. The input message is never modified.
//
// Rules, in order: PID is removed, every backtrace frame's File loses the
// source directory prefix, and a Running state notification is suppressed.
func (f Filter) Normalize(msg domain.Message) (domain.Message, bool) {
	if msg == nil {
		return nil, false
	}
	out := msg.Clone()

	delete(out, domain.KeyPID)

	if f.base != "" {
		for _, frame := range out.Backtrace() {
			if file, ok := frame[domain.KeyFile].(string); ok {
				frame[domain.KeyFile] = f.relative(file)
			}
		}
	}

	// Running is racy: the server may finish or hit a breakpoint before the
	// notification is flushed, so it never takes part in matching.
	if out.IsState(domain.StateRunning) {
		return out, false
	}
	return out, true
}

func (f Filter) relative(file string) string {
	slashed := filepath.ToSlash(file)
	if slashed == f.base || strings.HasPrefix(slashed, f.base+"/") {
		return strings.TrimPrefix(slashed, f.base)
	}
	return file
}
