package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = os.Getenv("LLM_BASE_URL")
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = os.Getenv("LLM_MODEL")
	}
	if cfg.LLMAPIKey == "" {
		// OPENAI_API_KEY is honored as the conventional fallback.
		v := os.Getenv("LLM_API_KEY")
		if v == "" {
			v = os.Getenv("OPENAI_API_KEY")
		}
		cfg.LLMAPIKey = v
	}

	if cfg.CacheDir == "" {
		cfg.CacheDir = os.Getenv("CACHE_DIR")
	}
	if cfg.StorePath == "" {
		cfg.StorePath = os.Getenv("STORE_PATH")
	}
	if cfg.WebhookURL == "" {
		cfg.WebhookURL = os.Getenv("WEBHOOK_URL")
	}
	if cfg.WebhookSecret == "" {
		cfg.WebhookSecret = os.Getenv("WEBHOOK_SECRET")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = os.Getenv("LISTEN_ADDR")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = os.Getenv("FETCH_UA")
	}

	setDuration(&cfg.FetchTimeout, "FETCH_TIMEOUT")
	setDuration(&cfg.LLMTimeout, "LLM_TIMEOUT")
	setDuration(&cfg.StoreTTL, "STORE_TTL")
	setDuration(&cfg.CacheMaxAge, "CACHE_MAX_AGE")

	if cfg.LLMMaxTokens == 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("LLM_MAX_TOKENS"))); err == nil && n > 0 {
			cfg.LLMMaxTokens = n
		}
	}
	if cfg.HostRPS == 0 {
		if f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv("FETCH_HOST_RPS")), 64); err == nil && f > 0 {
			cfg.HostRPS = f
		}
	}

	setBoolIfUnset(&cfg.ModelFirst, "MODEL_FIRST")
	setBoolIfUnset(&cfg.BypassCache, "BYPASS_CACHE")
	setBoolIfUnset(&cfg.CacheClear, "CACHE_CLEAR")
	setBoolIfUnset(&cfg.Verbose, "VERBOSE")
	setBoolIfUnset(&cfg.DebugVerbose, "DEBUG_VERBOSE")
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment
// variables when set. Used to let env take precedence over file config while
// flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLMBaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLMModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.LLMAPIKey = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("WEBHOOK_SECRET"); v != "" {
		cfg.WebhookSecret = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	if s := os.Getenv("FETCH_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.FetchTimeout = d
		}
	}
	if s := os.Getenv("LLM_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.LLMTimeout = d
		}
	}
	if s := os.Getenv("CACHE_MAX_AGE"); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			cfg.CacheMaxAge = d
		}
	}

	overrideBool(&cfg.ModelFirst, "MODEL_FIRST")
	overrideBool(&cfg.BypassCache, "BYPASS_CACHE")
	overrideBool(&cfg.CacheClear, "CACHE_CLEAR")
	overrideBool(&cfg.Verbose, "VERBOSE")
	overrideBool(&cfg.DebugVerbose, "DEBUG_VERBOSE")
}

func setDuration(dst *time.Duration, envKey string) {
	if *dst != 0 {
		return
	}
	if s := os.Getenv(envKey); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			*dst = d
		}
	}
}

func setBoolIfUnset(dst *bool, envKey string) {
	if *dst {
		return
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) {
	case "1", "true", "yes", "on":
		*dst = true
	}
}

func overrideBool(dst *bool, envKey string) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}
