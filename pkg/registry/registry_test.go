package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEntry(name string) FunctionEntry {
	return FunctionEntry{
		Name:        name,
		Description: "does " + name,
		TaskType:    "skill." + name,
		Parameters:  []Parameter{{Name: "workspaceName", Required: true}},
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"workspaceName": map[string]interface{}{"type": "string"},
			},
		},
		OutputSchema: map[string]interface{}{"type": "object"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *SkillManifest)
		wantErr string
	}{
		{"valid", func(m *SkillManifest) {}, ""},
		{"no skill", func(m *SkillManifest) { m.Skill = "" }, "skill"},
		{"no functions", func(m *SkillManifest) { m.Functions = nil }, "no functions"},
		{"duplicate", func(m *SkillManifest) { m.Functions = append(m.Functions, validEntry("A")) }, "duplicate function name"},
		{"no task type", func(m *SkillManifest) { m.Functions[0].TaskType = "" }, "taskType"},
		{"parameter not in schema", func(m *SkillManifest) {
			m.Functions[0].Parameters = append(m.Functions[0].Parameters, Parameter{Name: "tableName"})
		}, "tableName missing from inputSchema"},
		{"broken schema", func(m *SkillManifest) { m.Functions[1].OutputSchema = map[string]interface{}{"type": 5} }, "outputSchema"},
		{"missing schema", func(m *SkillManifest) { m.Functions[1].OutputSchema = nil }, "schema is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &SkillManifest{Skill: "s", Version: "1", Functions: []FunctionEntry{validEntry("A"), validEntry("B")}}
			tt.mutate(m)

			err := m.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadManifest_Errors(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "absent.json"))
	assert.True(t, os.IsNotExist(err))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))
	_, err = LoadManifest(path)
	assert.Error(t, err)
}
