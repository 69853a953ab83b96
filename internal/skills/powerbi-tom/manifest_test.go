package powerbitom

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerbi-tom-skill/internal/common/config"
	"powerbi-tom-skill/pkg/registry"
)

func TestManifest(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	app := &config.Config{Functions: map[string]config.FunctionConfig{
		"altercolumntype": {Enabled: false, Timeout: 90000},
	}}

	m := Manifest(app, "1.2.0", now)
	require.NoError(t, m.Validate())
	assert.Equal(t, SkillName, m.Skill)
	assert.Equal(t, "2024-05-01T12:00:00Z", m.LastUpdated)
	require.Len(t, m.Functions, 7)

	alter := m.Functions[4]
	assert.Equal(t, FunctionAlterColumnType, alter.Name)
	assert.Equal(t, "powerbi-tom.AlterColumnType", alter.TaskType)
	assert.True(t, alter.Mutating)
	assert.False(t, alter.Enabled)
	assert.Equal(t, "1m30s", alter.Timeout)
	assert.Zero(t, alter.Retries)
	assert.Contains(t, alter.ErrorCodes, "MODEL_COMMIT_FAILED")
	assert.Len(t, alter.Parameters, 5)

	link := m.Functions[6]
	assert.True(t, link.Enabled)
	assert.Equal(t, "1m0s", link.Timeout)
	assert.Equal(t, []string{"INPUT_INSUFFICIENT", "MEMORY_STORE_SEARCH_FAILED"}, link.ErrorCodes)
}

func TestManifest_RoundTripsThroughFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "skill-manifest.json")
	m := Manifest(nil, "1.0.0", time.Now())
	require.NoError(t, registry.SaveManifest(m, path))

	loaded, err := registry.LoadManifest(path)
	require.NoError(t, err)
	require.NoError(t, loaded.Validate())
	assert.Equal(t, len(m.Functions), len(loaded.Functions))
	assert.Equal(t, m.Functions[2].Parameters, loaded.Functions[2].Parameters)
}
