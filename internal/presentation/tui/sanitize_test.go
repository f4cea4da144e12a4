package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize_ControlChars(t *testing.T) {
	tests := []struct {
		Name  string
		Input string
		Want  string
	}{
		{"Plain", `{"State":"Paused"}`, `{"State":"Paused"}`},
		{"Tab Kept", "a\tb", "a\tb"},
		{"ANSI Escape", "\x1b[31mred\x1b[0m", "[31mred[0m"},
		{"Newlines Dropped", "line1\nline2\r", "line1line2"},
		{"Bell And Null", "a\x07b\x00c", "abc"},
		{"Invalid UTF-8", "ok\xffok", "ok�ok"},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			assert.Equal(t, tt.Want, Sanitize(tt.Input))
		})
	}
}

func TestSanitize_Limit(t *testing.T) {
	t.Setenv(EnvMaxLine, "8")

	assert.Equal(t, "12345678", Sanitize("12345678"))
	assert.Equal(t, "12345678...", Sanitize("123456789"))
	// Never split a multi-byte rune.
	assert.Equal(t, "1234567...", Sanitize("1234567é"))
}

func TestSanitize_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv(EnvMaxLine, "nope")
	long := strings.Repeat("x", DefaultMaxLine+1)
	assert.Len(t, Sanitize(long), DefaultMaxLine+len("..."))
}
