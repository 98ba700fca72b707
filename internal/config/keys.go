package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name     string       `json:"name"`
	Provider string       `json:"provider"`
	Source   APIKeySource `json:"source"`
	IsSet    bool         `json:"is_set"`
	Active   bool         `json:"active"` // provider selected by llm.provider
	Masked   string       `json:"masked,omitempty"`
}

// CheckAPIKeys returns the status of every model provider key.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	keys := []KeyStatus{
		checkKey("OpenAI API Key", "openai", cfg.LLM.OpenAIKey, EnvPrefix+"_LLM_OPENAI_KEY"),
		checkKey("Anthropic API Key", "anthropic", cfg.LLM.AnthropicKey, EnvPrefix+"_LLM_ANTHROPIC_KEY"),
		checkKey("Gemini API Key", "gemini", cfg.LLM.GeminiKey, EnvPrefix+"_LLM_GEMINI_KEY"),
	}
	for i := range keys {
		keys[i].Active = keys[i].Provider == cfg.LLM.Provider
	}
	return keys
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, provider, value, envVar string) KeyStatus {
	status := KeyStatus{
		Name:     name,
		Provider: provider,
		IsSet:    value != "",
		Source:   KeySourceNone,
	}
	if value == "" {
		return status
	}

	if os.Getenv(envVar) == value {
		status.Source = KeySourceEnv
	} else {
		status.Source = KeySourceConfig
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
