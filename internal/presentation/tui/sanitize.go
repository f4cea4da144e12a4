package tui

import (
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxLine caps how many bytes of a packet are echoed per line.
	DefaultMaxLine = 4096
	// EnvMaxLine overrides DefaultMaxLine.
	EnvMaxLine = "CONFORMER_MAX_LINE"
)

// Sanitize prepares server-provided text for the terminal: invalid UTF-8 is
// replaced, control characters other than tab are dropped, and the result
// is cut at the configured line limit.
func Sanitize(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}

	clean := true
	for _, r := range s {
		if unicode.IsControl(r) && r != '\t' {
			clean = false
			break
		}
	}
	if !clean {
		var b strings.Builder
		b.Grow(len(s))
		for _, r := range s {
			if !unicode.IsControl(r) || r == '\t' {
				b.WriteRune(r)
			}
		}
		s = b.String()
	}

	if limit := maxLine(); len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

func maxLine() int {
	if val := os.Getenv(EnvMaxLine); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return DefaultMaxLine
}
