// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xeipuuv/gojsonschema"
)

func LoadManifest(path string) (*SkillManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m SkillManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// SaveManifest writes m as indented JSON, creating the directory if needed.
func SaveManifest(m *SkillManifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}
	return nil
}

// Validate checks required fields, name uniqueness and that every schema
// compiles.
func (m *SkillManifest) Validate() error {
	if m.Skill == "" {
		return fmt.Errorf("manifest missing required field: skill")
	}
	if len(m.Functions) == 0 {
		return fmt.Errorf("manifest contains no functions")
	}

	names := make(map[string]bool, len(m.Functions))
	for _, fn := range m.Functions {
		if fn.Name == "" {
			return fmt.Errorf("function missing required field: name")
		}
		if names[fn.Name] {
			return fmt.Errorf("duplicate function name: %s", fn.Name)
		}
		names[fn.Name] = true

		if fn.Description == "" {
			return fmt.Errorf("function %s missing required field: description", fn.Name)
		}
		if fn.TaskType == "" {
			return fmt.Errorf("function %s missing required field: taskType", fn.Name)
		}
		props, _ := fn.InputSchema["properties"].(map[string]interface{})
		for _, p := range fn.Parameters {
			if _, ok := props[p.Name]; !ok {
				return fmt.Errorf("function %s parameter %s missing from inputSchema", fn.Name, p.Name)
			}
		}
		if err := compile(fn.InputSchema); err != nil {
			return fmt.Errorf("function %s inputSchema: %w", fn.Name, err)
		}
		if err := compile(fn.OutputSchema); err != nil {
			return fmt.Errorf("function %s outputSchema: %w", fn.Name, err)
		}
	}
	return nil
}

func compile(schema map[string]interface{}) error {
	if schema == nil {
		return fmt.Errorf("schema is required")
	}
	_, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	return err
}
