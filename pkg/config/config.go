package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Supported upstream AI providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for prism-gateway.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, passwords, DSNs) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"4000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Engine database (quota ledger backing store)
	Database DatabaseConfig `yaml:"database"`

	// Analytics datasource used for index metadata lookups
	Datasource DatasourceConfig `yaml:"datasource"`

	// Semantic-layer metadata endpoint (cube schema source)
	Metadata MetadataConfig `yaml:"metadata"`

	// AI gateway configuration
	AI AIConfig `yaml:"ai"`
}

// MetadataConfig points at the semantic-layer server that owns cube
// definitions. Empty BaseURL means the gateway runs on its fallback
// schema only.
type MetadataConfig struct {
	BaseURL string `yaml:"base_url" env:"METADATA_BASE_URL" env-default:""`
}

// DatabaseConfig holds PostgreSQL configuration for the gateway's own store.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"prism"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"prism_gateway"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// DatasourceConfig identifies where query-plan index metadata is read from.
// Driver selects the adapter; the DSN is a secret and comes from env only.
type DatasourceConfig struct {
	Driver string `yaml:"driver" env:"DATASOURCE_DRIVER" env-default:"postgres"`
	DSN    string `yaml:"-" env:"DATASOURCE_DSN"`
}

// AIConfig holds the upstream model endpoint and the shared-key policy.
type AIConfig struct {
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`
	BaseURL  string `yaml:"base_url" env:"AI_BASE_URL" env-default:""`
	Model    string `yaml:"model" env:"AI_MODEL" env-default:"gpt-4o-mini"`

	// APIKey is the server's shared key. Optional: when absent, every
	// request must carry its own key. Secret - env only.
	APIKey string `yaml:"-" env:"AI_API_KEY"`

	// DailyLimit is the number of shared-key calls admitted per day.
	DailyLimit int `yaml:"daily_limit" env:"AI_DAILY_LIMIT" env-default:"10"`

	// Prompt length bounds enforced by the validator.
	MinPromptLength int `yaml:"min_prompt_length" env:"AI_MIN_PROMPT_LENGTH" env-default:"1"`
	MaxPromptLength int `yaml:"max_prompt_length" env:"AI_MAX_PROMPT_LENGTH" env-default:"500"`

	// RulesPath points at an optional YAML file with extra injection
	// heuristics for the prompt validator. Empty means built-ins only.
	RulesPath string `yaml:"rules_path" env:"AI_RULES_PATH" env-default:""`
}

// HasServerKey reports whether a shared server credential is configured.
func (c *AIConfig) HasServerKey() bool {
	return c.APIKey != ""
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (PGPASSWORD, AI_API_KEY, DATASOURCE_DSN) must come from environment
// variables (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AI.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown AI provider %q", c.AI.Provider)
	}

	if c.AI.DailyLimit < 0 {
		return fmt.Errorf("ai.daily_limit must be non-negative, got %d", c.AI.DailyLimit)
	}
	if c.AI.MinPromptLength < 1 {
		return fmt.Errorf("ai.min_prompt_length must be at least 1, got %d", c.AI.MinPromptLength)
	}
	if c.AI.MaxPromptLength < c.AI.MinPromptLength {
		return fmt.Errorf("ai.max_prompt_length (%d) must not be below ai.min_prompt_length (%d)",
			c.AI.MaxPromptLength, c.AI.MinPromptLength)
	}

	switch c.Datasource.Driver {
	case "postgres", "mssql", "":
	default:
		return fmt.Errorf("unknown datasource driver %q", c.Datasource.Driver)
	}

	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
