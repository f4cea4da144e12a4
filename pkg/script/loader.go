// Package script loads conformance test files into domain.Script values.
//
// A test file is a JSON (or YAML) sequence of step objects. Each object is
// classified once, at load time, into a domain.Step variant; anything that
// does not match a known shape is rejected with domain.ErrUnknownStep.
package script

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/conformer/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a test file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from the file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// NameFromPath returns the file name without directory and extension.
func NameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load reads and parses the test file at path.
func Load(path string) (*domain.Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return Parse(NameFromPath(path), data, FormatFromPath(path))
}

// Parse decodes a test document and classifies its steps.
func Parse(name string, data []byte, format Format) (*domain.Script, error) {
	entries, err := decode(data, format)
	if err != nil {
		return nil, err
	}

	script := &domain.Script{Name: name, Steps: make([]domain.Step, 0, len(entries))}
	for i, entry := range entries {
		step, err := ParseStep(entry)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		script.Steps = append(script.Steps, step)
	}
	return script, nil
}

func decode(data []byte, format Format) ([]any, error) {
	var doc any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: failed to parse yaml: %v", domain.ErrInvalidScript, err)
		}
		// Round-trip through JSON so numbers and maps have the same types
		// as packets decoded from the wire.
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidScript, err)
		}
		doc = nil
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidScript, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: failed to parse json: %v", domain.ErrInvalidScript, err)
		}
	}

	entries, ok := doc.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level must be a sequence of steps", domain.ErrInvalidScript)
	}
	return entries, nil
}
