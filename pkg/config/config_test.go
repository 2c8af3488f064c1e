package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:        ProviderOpenAI,
			Model:           "gpt-4o-mini",
			DailyLimit:      10,
			MinPromptLength: 1,
			MaxPromptLength: 500,
		},
		Datasource: DatasourceConfig{Driver: "postgres"},
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().validate())
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.AI.Provider = "gemini"
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown AI provider")
}

func TestValidate_RejectsNegativeDailyLimit(t *testing.T) {
	cfg := validConfig()
	cfg.AI.DailyLimit = -1
	require.Error(t, cfg.validate())
}

func TestValidate_RejectsInvertedPromptBounds(t *testing.T) {
	cfg := validConfig()
	cfg.AI.MinPromptLength = 100
	cfg.AI.MaxPromptLength = 50
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_prompt_length")
}

func TestValidate_RejectsUnknownDatasourceDriver(t *testing.T) {
	cfg := validConfig()
	cfg.Datasource.Driver = "oracle"
	require.Error(t, cfg.validate())
}

func TestHasServerKey(t *testing.T) {
	ai := AIConfig{}
	assert.False(t, ai.HasServerKey())
	ai.APIKey = "sk-test"
	assert.True(t, ai.HasServerKey())
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "prism",
		Password: "secret",
		Database: "prism_gateway",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=localhost port=5432 user=prism password=secret dbname=prism_gateway sslmode=disable",
		db.ConnectionString())
}
