package normalize

import (
	"fmt"
	"reflect"

	"github.com/aretw0/conformer/pkg/domain"
)

// MatchMode selects how an expected packet is compared with a received one.
type MatchMode string

const (
	// MatchExact requires both packets to be deeply equal.
	MatchExact MatchMode = "exact"
	// MatchSubset requires every expected key to be present and equal;
	// extra keys in the received packet are allowed at any depth.
	MatchSubset MatchMode = "subset"
)

// ParseMatchMode validates a mode name. The empty string selects MatchExact.
func ParseMatchMode(name string) (MatchMode, error) {
	switch MatchMode(name) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchSubset:
		return MatchSubset, nil
	}
	return "", fmt.Errorf("unknown match mode %q (want %q or %q)", name, MatchExact, MatchSubset)
}

// Match reports whether actual satisfies expected under the given mode.
// Both messages must come from the same decoder family so numbers share
// a representation.
func Match(mode MatchMode, expected, actual domain.Message) bool {
	if mode == MatchSubset {
		return subset(map[string]any(expected), map[string]any(actual))
	}
	return reflect.DeepEqual(map[string]any(expected), map[string]any(actual))
}

func subset(expected, actual any) bool {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range e {
			av, present := a[k]
			if !present || !subset(ev, av) {
				return false
			}
		}
		return true
	case []any:
		a, ok := actual.([]any)
		if !ok || len(a) != len(e) {
			return false
		}
		for i := range e {
			if !subset(e[i], a[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(expected, actual)
	}
}
