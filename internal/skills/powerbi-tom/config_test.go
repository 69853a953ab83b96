package powerbitom

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powerbi-tom-skill/internal/common/config"
)

func TestConfigFromApp(t *testing.T) {
	zero := 0.0
	tests := []struct {
		name          string
		memory        config.MemoryConfig
		wantRelevance float64
	}{
		{"unset threshold keeps default", config.MemoryConfig{}, config.DefaultMinRelevance},
		{"zero threshold is honoured", config.MemoryConfig{MinRelevance: &zero}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ConfigFromApp(&config.Config{
				Memory:  tt.memory,
				Camunda: config.CamundaConfig{MaxJobsActive: 3, Timeout: 1500},
			})
			require.NoError(t, cfg.Validate())
			assert.Equal(t, tt.wantRelevance, cfg.MinRelevance)
			assert.Equal(t, 3, cfg.MaxJobsActive)
			assert.Equal(t, 1500*time.Millisecond, cfg.Timeout)
		})
	}
}

func TestConfigFromApp_Nil(t *testing.T) {
	assert.Equal(t, DefaultConfig(), ConfigFromApp(nil))
}
