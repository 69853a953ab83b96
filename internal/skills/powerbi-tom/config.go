package powerbitom

import (
	"fmt"
	"time"

	"powerbi-tom-skill/internal/common/config"
)

type Config struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxJobsActive    int           `mapstructure:"max_jobs_active"`
	Timeout          time.Duration `mapstructure:"timeout"`
	UserDisplayName  string        `mapstructure:"user_display_name"`
	MemoryCollection string        `mapstructure:"collection"`
	MinRelevance     float64       `mapstructure:"min_relevance"`
	SettingsURL      string        `mapstructure:"settings_url"`
	SeedOnFirstUse   bool          `mapstructure:"seed_on_first_use"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:          true,
		MaxJobsActive:    5,
		Timeout:          60 * time.Second,
		UserDisplayName:  "the current user",
		MemoryCollection: config.DefaultMemoryCollection,
		MinRelevance:     config.DefaultMinRelevance,
		SettingsURL:      config.DefaultSettingsURL,
		SeedOnFirstUse:   true,
	}
}

// ConfigFromApp derives the skill configuration from the application config.
// A nil app config yields DefaultConfig.
func ConfigFromApp(app *config.Config) *Config {
	cfg := DefaultConfig()
	if app == nil {
		return cfg
	}

	if app.Skill.UserDisplayName != "" {
		cfg.UserDisplayName = app.Skill.UserDisplayName
	}
	cfg.SeedOnFirstUse = app.Skill.SeedOnFirstUse

	if app.Memory.Collection != "" {
		cfg.MemoryCollection = app.Memory.Collection
	}
	if app.Memory.MinRelevance != nil {
		cfg.MinRelevance = *app.Memory.MinRelevance
	}
	if app.Memory.SettingsURL != "" {
		cfg.SettingsURL = app.Memory.SettingsURL
	}

	if app.Camunda.MaxJobsActive > 0 {
		cfg.MaxJobsActive = app.Camunda.MaxJobsActive
	}
	if app.Camunda.Timeout > 0 {
		cfg.Timeout = config.GetDuration(app.Camunda.Timeout)
	}

	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.MemoryCollection == "" {
		return fmt.Errorf("memory collection is required")
	}
	if c.MinRelevance < 0 || c.MinRelevance > 1 {
		return fmt.Errorf("min_relevance must be between 0 and 1")
	}
	if c.SettingsURL == "" {
		return fmt.Errorf("settings_url is required")
	}
	return nil
}
