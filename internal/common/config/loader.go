// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default values shared with the skill package.
const (
	DefaultMemoryCollection = "PBIUrl"
	DefaultMinRelevance     = 0.77
	DefaultSettingsURL      = "https://app.powerbi.com/groups/me/settings/datasets?experience=power-bi"
	DefaultAPIBase          = "https://api.powerbi.com"
	DefaultAuthority        = "https://login.microsoftonline.com"
	DefaultScope            = "https://analysis.windows.net/powerbi/api/.default"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // environment overlay is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	v.SetDefault("skill.seed_on_first_use", true)
	v.SetDefault("mcp.enabled", true)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// an unset variable expands to "" so placeholders never leak through
			if expanded := os.ExpandEnv(strVal); expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from their conventional environment
// variables when the config file left them blank.
func overrideEmptyConfig(cfg *Config) {
	envOverrides := []struct {
		dst *string
		key string
	}{
		{&cfg.PowerBI.TenantID, "POWERBI_TENANT_ID"},
		{&cfg.PowerBI.ClientID, "POWERBI_CLIENT_ID"},
		{&cfg.PowerBI.ClientSecret, "POWERBI_CLIENT_SECRET"},
		{&cfg.PowerBI.SecretName, "POWERBI_APPLICATION_SECRET_NAME"},
		{&cfg.Memory.Postgres.User, "DB_USER"},
		{&cfg.Memory.Postgres.Password, "DB_PASSWORD"},
		{&cfg.Memory.Redis.Password, "REDIS_PASSWORD"},
		{&cfg.MCP.APIKey, "MCP_API_KEY"},
	}
	for _, o := range envOverrides {
		if *o.dst != "" {
			continue
		}
		if val := os.Getenv(o.key); val != "" {
			*o.dst = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "powerbi-tom-skill"
	}

	if cfg.PowerBI.APIBase == "" {
		cfg.PowerBI.APIBase = DefaultAPIBase
	}
	if cfg.PowerBI.Authority == "" {
		cfg.PowerBI.Authority = DefaultAuthority
	}
	if cfg.PowerBI.Scope == "" {
		cfg.PowerBI.Scope = DefaultScope
	}
	if cfg.PowerBI.Region == "" {
		cfg.PowerBI.Region = "us-east-1"
	}
	if cfg.PowerBI.Timeout == 0 {
		cfg.PowerBI.Timeout = 30000
	}

	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = "volatile"
	}
	if cfg.Memory.Collection == "" {
		cfg.Memory.Collection = DefaultMemoryCollection
	}
	if cfg.Memory.MinRelevance == nil {
		threshold := DefaultMinRelevance
		cfg.Memory.MinRelevance = &threshold
	}
	if cfg.Memory.SettingsURL == "" {
		cfg.Memory.SettingsURL = DefaultSettingsURL
	}
	if cfg.Memory.Redis.KeyPrefix == "" {
		cfg.Memory.Redis.KeyPrefix = "memory"
	}
	if cfg.Memory.Postgres.Port == 0 {
		cfg.Memory.Postgres.Port = 5432
	}
	if cfg.Memory.Postgres.MaxConnections == 0 {
		cfg.Memory.Postgres.MaxConnections = 5
	}
	if cfg.Memory.Postgres.MaxIdle == 0 {
		cfg.Memory.Postgres.MaxIdle = 2
	}
	if cfg.Memory.Postgres.SSLMode == "" {
		cfg.Memory.Postgres.SSLMode = "disable"
	}
	if cfg.Memory.Elasticsearch.IndexPrefix == "" {
		cfg.Memory.Elasticsearch.IndexPrefix = "memory-"
	}

	if cfg.Skill.UserDisplayName == "" {
		cfg.Skill.UserDisplayName = "the current user"
	}

	if cfg.MCP.Transport == "" {
		cfg.MCP.Transport = "stdio"
	}
	if cfg.MCP.Addr == "" {
		cfg.MCP.Addr = ":3001"
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 5
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 60000
	}
	if cfg.Camunda.ConnectTimeout == 0 {
		cfg.Camunda.ConnectTimeout = 10000
	}

	if cfg.Notifications.SNS.Region == "" {
		cfg.Notifications.SNS.Region = cfg.PowerBI.Region
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		// stdout belongs to the MCP stdio protocol stream
		cfg.Logging.Output = "stderr"
	}

	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":8080"
	}

	for name, fn := range cfg.Functions {
		if fn.Timeout == 0 {
			fn.Timeout = 60000
		}
		cfg.Functions[name] = fn
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if !cfg.PowerBI.HasInlineCredentials() && cfg.PowerBI.SecretName == "" {
		return fmt.Errorf("powerbi credentials are required: set tenant_id, client_id and client_secret, or secret_name")
	}

	if r := cfg.Memory.MinRelevance; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("memory.min_relevance must be between 0 and 1")
	}

	switch cfg.Memory.Backend {
	case "volatile":
	case "redis":
		if cfg.Memory.Redis.Address == "" {
			return fmt.Errorf("memory.redis.address is required")
		}
	case "postgres":
		if cfg.Memory.Postgres.Host == "" {
			return fmt.Errorf("memory.postgres.host is required")
		}
		if cfg.Memory.Postgres.Database == "" {
			return fmt.Errorf("memory.postgres.database is required")
		}
	case "elasticsearch":
		if len(cfg.Memory.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("memory.elasticsearch.addresses is required")
		}
	default:
		return fmt.Errorf("unknown memory.backend %q", cfg.Memory.Backend)
	}

	switch cfg.MCP.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("unknown mcp.transport %q", cfg.MCP.Transport)
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}

	if !cfg.MCP.Enabled && !cfg.Camunda.Enabled {
		return fmt.Errorf("at least one of mcp or camunda must be enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetFunctionConfig retrieves function-specific configuration with fallback to defaults
func GetFunctionConfig(cfg *Config, name string) FunctionConfig {
	if fn, exists := lookupFunction(cfg, name); exists {
		return fn
	}

	return FunctionConfig{
		Enabled: true,
		Timeout: 60000,
	}
}

// IsFunctionEnabled checks if a specific function is enabled
func IsFunctionEnabled(cfg *Config, name string) bool {
	if fn, exists := lookupFunction(cfg, name); exists {
		return fn.Enabled
	}
	return true
}

// viper lower-cases map keys, so function names are matched case-insensitively.
func lookupFunction(cfg *Config, name string) (FunctionConfig, bool) {
	if fn, exists := cfg.Functions[name]; exists {
		return fn, true
	}
	fn, exists := cfg.Functions[strings.ToLower(name)]
	return fn, exists
}
