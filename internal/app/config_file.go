package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// FileConfig represents the single-file configuration schema. Nested sections
// improve readability and map naturally to flags/env.
type FileConfig struct {
	LLM struct {
		BaseURL    string        `yaml:"base" json:"base"`
		Model      string        `yaml:"model" json:"model"`
		APIKey     string        `yaml:"key" json:"key"`
		Timeout    time.Duration `yaml:"timeout" json:"timeout"`
		MaxTokens  int           `yaml:"maxTokens" json:"maxTokens"`
		ModelFirst bool          `yaml:"modelFirst" json:"modelFirst"`
	} `yaml:"llm" json:"llm"`

	Fetch struct {
		Timeout   time.Duration `yaml:"timeout" json:"timeout"`
		UA        string        `yaml:"ua" json:"ua"`
		HostRPS   float64       `yaml:"hostRps" json:"hostRps"`
		HostBurst int           `yaml:"hostBurst" json:"hostBurst"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Dir    string        `yaml:"dir" json:"dir"`
		Bypass bool          `yaml:"bypass" json:"bypass"`
		Clear  bool          `yaml:"clear" json:"clear"`
		MaxAge time.Duration `yaml:"maxAge" json:"maxAge"`
	} `yaml:"cache" json:"cache"`

	Store struct {
		Path string        `yaml:"path" json:"path"`
		TTL  time.Duration `yaml:"ttl" json:"ttl"`
	} `yaml:"store" json:"store"`

	Webhook struct {
		URL    string `yaml:"url" json:"url"`
		Secret string `yaml:"secret" json:"secret"`
	} `yaml:"webhook" json:"webhook"`

	Server struct {
		Listen string `yaml:"listen" json:"listen"`
	} `yaml:"server" json:"server"`

	Verbose      bool `yaml:"verbose" json:"verbose"`
	DebugVerbose bool `yaml:"debugVerbose" json:"debugVerbose"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON.
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields
// that are currently unset/zero in cfg. Flags should already have been
// parsed; this lets file config supply defaults while preserving explicit
// flags.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}

	if cfg.LLMBaseURL == "" && fc.LLM.BaseURL != "" {
		cfg.LLMBaseURL = fc.LLM.BaseURL
	}
	if cfg.LLMModel == "" && fc.LLM.Model != "" {
		cfg.LLMModel = fc.LLM.Model
	}
	if cfg.LLMAPIKey == "" && fc.LLM.APIKey != "" {
		cfg.LLMAPIKey = fc.LLM.APIKey
	}
	if cfg.LLMTimeout == 0 && fc.LLM.Timeout > 0 {
		cfg.LLMTimeout = fc.LLM.Timeout
	}
	if cfg.LLMMaxTokens == 0 && fc.LLM.MaxTokens > 0 {
		cfg.LLMMaxTokens = fc.LLM.MaxTokens
	}
	if !cfg.ModelFirst && fc.LLM.ModelFirst {
		cfg.ModelFirst = true
	}

	if cfg.FetchTimeout == 0 && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if cfg.UserAgent == "" && fc.Fetch.UA != "" {
		cfg.UserAgent = fc.Fetch.UA
	}
	if cfg.HostRPS == 0 && fc.Fetch.HostRPS > 0 {
		cfg.HostRPS = fc.Fetch.HostRPS
	}
	if cfg.HostBurst == 0 && fc.Fetch.HostBurst > 0 {
		cfg.HostBurst = fc.Fetch.HostBurst
	}

	if cfg.CacheDir == "" && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if !cfg.BypassCache && fc.Cache.Bypass {
		cfg.BypassCache = true
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if cfg.StorePath == "" && fc.Store.Path != "" {
		cfg.StorePath = fc.Store.Path
	}
	if cfg.StoreTTL == 0 && fc.Store.TTL > 0 {
		cfg.StoreTTL = fc.Store.TTL
	}

	if cfg.WebhookURL == "" && fc.Webhook.URL != "" {
		cfg.WebhookURL = fc.Webhook.URL
	}
	if cfg.WebhookSecret == "" && fc.Webhook.Secret != "" {
		cfg.WebhookSecret = fc.Webhook.Secret
	}

	if cfg.ListenAddr == "" && fc.Server.Listen != "" {
		cfg.ListenAddr = fc.Server.Listen
	}

	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
	if !cfg.DebugVerbose && fc.DebugVerbose {
		cfg.DebugVerbose = true
	}
}

// ValidateConfig performs minimal schema validation. The model credentials
// are deliberately optional: without them the pipeline still runs the
// structured/heuristic cascade and reports the model as unavailable.
func ValidateConfig(cfg Config) error {
	if cfg.FetchTimeout < 0 || cfg.LLMTimeout < 0 || cfg.StoreTTL < 0 || cfg.CacheMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	if cfg.HostRPS < 0 || cfg.HostBurst < 0 || cfg.LLMMaxTokens < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.ModelFirst && strings.TrimSpace(cfg.LLMModel) == "" {
		return errors.New("config: llm.model is required with modelFirst (or set LLM_MODEL)")
	}
	if cfg.WebhookSecret != "" && cfg.WebhookURL == "" {
		return errors.New("config: webhook.secret set without webhook.url")
	}
	return nil
}
