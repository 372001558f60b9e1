package config

import (
	"os"
	"time"
)

// ServerConfig represents the configuration for the HTTP server
type ServerConfig struct {
	ListenAddress string
}

// StorageConfig represents the configuration for the record store
type StorageConfig struct {
	Type       string
	SQLitePath string
	MySQLDSN   string
}

// LLMConfig represents the provider-independent classifier configuration
type LLMConfig struct {
	Provider    string
	Timeout     time.Duration
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// SMTPConfig represents the configuration for the inbound SMTP listener
type SMTPConfig struct {
	Enabled         bool
	ListenAddress   string
	Domain          string
	MaxMessageBytes int
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress: c.GetString("server.listen_address"),
	}
}

// GetStorage returns the storage configuration
func (c *Config) GetStorage() StorageConfig {
	return StorageConfig{
		Type:       c.GetString("storage.type"),
		SQLitePath: c.GetString("storage.sqlite_path"),
		MySQLDSN:   c.GetString("storage.mysql_dsn"),
	}
}

// GetLLM returns the classifier configuration
func (c *Config) GetLLM() LLMConfig {
	timeout, err := c.GetDuration("llm.timeout")
	if err != nil {
		timeout = 30 * time.Second
	}
	return LLMConfig{
		Provider:    c.GetString("llm.provider"),
		Timeout:     timeout,
		MaxBodySize: c.GetInt("llm.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration. The API key falls back to
// the OPENAI_API_KEY environment variable when unset in config.
func (c *Config) GetOpenAI() OpenAIConfig {
	apiKey := c.GetString("openai.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	return OpenAIConfig{
		APIKey:      apiKey,
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	apiKey := c.GetString("gemini.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	return GeminiConfig{
		APIKey:      apiKey,
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetSMTP returns the SMTP ingest configuration
func (c *Config) GetSMTP() SMTPConfig {
	return SMTPConfig{
		Enabled:         c.GetBool("smtp.enabled"),
		ListenAddress:   c.GetString("smtp.listen_address"),
		Domain:          c.GetString("smtp.domain"),
		MaxMessageBytes: c.GetInt("smtp.max_message_bytes"),
	}
}
