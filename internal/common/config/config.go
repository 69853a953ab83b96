// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                 `mapstructure:"app"`
	PowerBI       PowerBIConfig             `mapstructure:"powerbi"`
	Memory        MemoryConfig              `mapstructure:"memory"`
	Skill         SkillConfig               `mapstructure:"skill"`
	Functions     map[string]FunctionConfig `mapstructure:"functions"`
	MCP           MCPConfig                 `mapstructure:"mcp"`
	Camunda       CamundaConfig             `mapstructure:"camunda"`
	Notifications NotificationConfig        `mapstructure:"notifications"`
	Logging       LoggingConfig             `mapstructure:"logging"`
	Metrics       MetricsConfig             `mapstructure:"metrics"`
	Tracing       TracingConfig             `mapstructure:"tracing"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// PowerBIConfig holds the REST connector settings. Credentials come either
// inline or from the AWS Secrets Manager secret named by SecretName.
type PowerBIConfig struct {
	APIBase      string `mapstructure:"api_base"`
	Authority    string `mapstructure:"authority"`
	Scope        string `mapstructure:"scope"`
	TenantID     string `mapstructure:"tenant_id"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	SecretName   string `mapstructure:"secret_name"`
	Region       string `mapstructure:"region"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
}

// HasInlineCredentials reports whether client credentials are set directly.
func (p PowerBIConfig) HasInlineCredentials() bool {
	return p.TenantID != "" && p.ClientID != "" && p.ClientSecret != ""
}

// MemoryConfig selects and configures the semantic memory backend.
type MemoryConfig struct {
	Backend       string              `mapstructure:"backend"` // volatile | redis | postgres | elasticsearch
	Collection    string              `mapstructure:"collection"`
	MinRelevance  *float64            `mapstructure:"min_relevance"` // nil when unset; 0 accepts every match
	SettingsURL   string              `mapstructure:"settings_url"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	IndexPrefix string   `mapstructure:"index_prefix"`
}

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// SkillConfig holds settings shared by every skill function.
type SkillConfig struct {
	UserDisplayName string `mapstructure:"user_display_name"`
	SeedOnFirstUse  bool   `mapstructure:"seed_on_first_use"`
}

// FunctionConfig holds the per-function switches.
type FunctionConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Timeout int  `mapstructure:"timeout"` // milliseconds
}

// MCPConfig configures the Model Context Protocol surface.
type MCPConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Transport string `mapstructure:"transport"` // stdio | http
	Addr      string `mapstructure:"addr"`
	APIKey    string `mapstructure:"api_key"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
	TLS            bool   `mapstructure:"tls"`
	ConnectTimeout int    `mapstructure:"connect_timeout"` // milliseconds
}

// NotificationConfig holds settings for model change notifications.
type NotificationConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
		Region   string `mapstructure:"region"`
	} `mapstructure:"sns"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type TracingConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Insecure     bool   `mapstructure:"insecure"`
}
