package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SchemaError reports a missing or malformed required field.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("manifest schema: field %q %s", e.Field, e.Reason)
}

// EnumError reports a value outside its closed set.
type EnumError struct {
	Field string
	Value string
}

func (e *EnumError) Error() string {
	return fmt.Sprintf("manifest enum: field %q has unsupported value %q", e.Field, e.Value)
}

// Parse decodes and validates a manifest document. JSON and YAML are both
// accepted; JSON is tried first so JSON syntax errors surface precisely.
// Performs no I/O.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		m = Manifest{}
		if yerr := yaml.Unmarshal(data, &m); yerr != nil {
			return nil, &SchemaError{Field: "(document)", Reason: fmt.Sprintf("not valid JSON or YAML: %v", yerr)}
		}
	}

	applyDefaults(&m)

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads and parses a manifest from a file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// applyDefaults fills non-security-relevant display fields. Permission flags
// deliberately have no defaulting path beyond the zero value (all false).
func applyDefaults(m *Manifest) {
	if m.Category == "" {
		m.Category = CategoryUtility
	}
	if m.Response.Format == "" {
		m.Response.Format = FormatJSON
	}
}
