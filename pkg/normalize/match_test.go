package normalize

import (
	"testing"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_Exact(t *testing.T) {
	expected := domain.Message{"State": "Paused"}

	assert.True(t, Match(MatchExact, expected, domain.Message{"State": "Paused"}))
	assert.False(t, Match(MatchExact, expected, domain.Message{"State": "Executing"}))
	assert.False(t, Match(MatchExact, expected, domain.Message{"State": "Paused", "Backtrace": []any{}}))
}

func TestMatch_Subset(t *testing.T) {
	actual := domain.Message{
		"State": "Paused",
		"Backtrace": []any{
			map[string]any{"File": "/x", "Line": float64(2), "ID": float64(0)},
		},
	}

	tests := []struct {
		name     string
		expected domain.Message
		want     bool
	}{
		{"Top Level Key", domain.Message{"State": "Paused"}, true},
		{"Nested Frame Fields", domain.Message{"Backtrace": []any{map[string]any{"File": "/x"}}}, true},
		{"Wrong Value", domain.Message{"State": "Running"}, false},
		{"Missing Key", domain.Message{"Response": "1"}, false},
		{"Length Differs", domain.Message{"Backtrace": []any{}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(MatchSubset, tt.expected, actual))
		})
	}
}

func TestParseMatchMode(t *testing.T) {
	mode, err := ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchExact, mode)

	mode, err = ParseMatchMode("subset")
	require.NoError(t, err)
	assert.Equal(t, MatchSubset, mode)

	_, err = ParseMatchMode("fuzzy")
	assert.Error(t, err)
}
