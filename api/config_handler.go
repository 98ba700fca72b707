package api

import (
	"net/http"

	"github.com/seenimoa/newsimpact/internal/config"
)

// ConfigView is the running configuration with secrets removed.
type ConfigView struct {
	LLM      LLMView               `json:"llm"`
	Analysis config.AnalysisConfig `json:"analysis"`
	Cache    CacheView             `json:"cache"`
	News     config.NewsConfig     `json:"news"`
	Output   config.OutputConfig   `json:"output"`
	Schedule config.ScheduleConfig `json:"schedule"`
	API      config.APIConfig      `json:"api"`
	Logging  config.LoggingConfig  `json:"logging"`
}

// LLMView is LLMConfig without API keys.
type LLMView struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	BaseURL     string  `json:"base_url,omitempty"`
	OllamaURL   string  `json:"ollama_url"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Timeout     string  `json:"timeout"`
	MaxAttempts int     `json:"max_attempts"`
	RetryDelay  string  `json:"retry_delay"`
}

// CacheView reports the cache without its connection string.
type CacheView struct {
	Enabled bool   `json:"enabled"`
	Backend string `json:"backend"`
	TTL     string `json:"ttl"`
}

func newConfigView(cfg *config.Config) ConfigView {
	backend := "memory"
	if cfg.Cache.RedisURL != "" {
		backend = "redis"
	}
	return ConfigView{
		LLM: LLMView{
			Provider:    cfg.LLM.Provider,
			Model:       cfg.LLM.Model,
			BaseURL:     cfg.LLM.BaseURL,
			OllamaURL:   cfg.LLM.OllamaURL,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout.String(),
			MaxAttempts: cfg.LLM.MaxAttempts,
			RetryDelay:  cfg.LLM.RetryDelay.String(),
		},
		Analysis: cfg.Analysis,
		Cache: CacheView{
			Enabled: cfg.Cache.Enabled,
			Backend: backend,
			TTL:     cfg.Cache.TTL.String(),
		},
		News:     cfg.News,
		Output:   cfg.Output,
		Schedule: cfg.Schedule,
		API:      cfg.API,
		Logging:  cfg.Logging,
	}
}

// handleGetConfig returns the running configuration without secrets.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    newConfigView(s.cfg),
	})
}

// handleGetConfigKeys returns the status of all sensitive API keys.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	keys := config.CheckAPIKeys(s.cfg)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    keys,
	})
}
