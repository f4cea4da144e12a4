package middleware

import (
	"context"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/ports"
)

type rule struct {
	dir         string
	placeholder string
}

type redactMiddleware struct {
	next  ports.ReportStore
	rules []rule
}

// NewPathRedactMiddleware creates a middleware that replaces machine-specific
// directory prefixes in saved reports with placeholders, so reports from
// different hosts compare equal. paths maps a directory to its placeholder,
// e.g. "/home/ci/src" to "$SOURCE". Empty directories, the root and "."
// are ignored.
func NewPathRedactMiddleware(paths map[string]string) Middleware {
	var rules []rule
	for dir, placeholder := range paths {
		if dir == "" {
			continue
		}
		clean := filepath.Clean(dir)
		if clean == "." || clean == ".." || clean == string(filepath.Separator) || clean == "/" {
			continue
		}
		rules = append(rules, rule{dir: clean, placeholder: placeholder})
		if slash := filepath.ToSlash(clean); slash != clean {
			rules = append(rules, rule{dir: slash, placeholder: placeholder})
		}
	}
	// Longest first, so a build directory inside the source directory wins.
	slices.SortFunc(rules, func(a, b rule) int {
		return len(b.dir) - len(a.dir)
	})

	return func(next ports.ReportStore) ports.ReportStore {
		return &redactMiddleware{next: next, rules: rules}
	}
}

func (m *redactMiddleware) Save(ctx context.Context, report *domain.RunReport) error {
	// Copy so the caller's report keeps the real paths.
	cloned := *report
	cloned.Methods = slices.Clone(report.Methods)
	for i := range cloned.Methods {
		cloned.Methods[i].Error = m.redact(cloned.Methods[i].Error)
	}
	return m.next.Save(ctx, &cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, id string) (*domain.RunReport, error) {
	return m.next.Load(ctx, id)
}

func (m *redactMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactMiddleware) redact(s string) string {
	for _, r := range m.rules {
		s = replaceDir(s, r.dir, r.placeholder)
	}
	return s
}

// replaceDir replaces dir where it is a whole path: "/src/build" matches
// neither inside "/src/buildsystem1" nor inside "/x/src/build".
func replaceDir(s, dir, placeholder string) string {
	var b strings.Builder
	// prev is the last byte written, 0 at the start of s.
	var prev byte
	for {
		i := strings.Index(s, dir)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		if i > 0 {
			prev = s[i-1]
		}
		end := i + len(dir)
		b.WriteString(s[:i])

		out := dir
		startsPath := prev == 0 || !(isNameByte(prev) || isSeparator(prev))
		if startsPath && (end == len(s) || !isNameByte(s[end])) {
			out = placeholder
		}
		b.WriteString(out)
		if out != "" {
			prev = out[len(out)-1]
		}
		s = s[end:]
	}
}

func isSeparator(c byte) bool {
	return c == '/' || c == '\\'
}

func isNameByte(c byte) bool {
	return c == '-' || c == '_' || c == '.' ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
