package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var appEnvKeys = []string{
	"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY", "OPENAI_API_KEY",
	"CACHE_DIR", "STORE_PATH", "WEBHOOK_URL", "WEBHOOK_SECRET",
	"LISTEN_ADDR", "FETCH_UA", "FETCH_TIMEOUT", "LLM_TIMEOUT",
	"STORE_TTL", "LLM_MAX_TOKENS", "FETCH_HOST_RPS",
	"MODEL_FIRST", "BYPASS_CACHE", "CACHE_CLEAR", "CACHE_MAX_AGE",
	"VERBOSE", "DEBUG_VERBOSE",
}

func clearAppEnv(t *testing.T) {
	t.Helper()
	for _, k := range appEnvKeys {
		t.Setenv(k, "")
	}
}

func TestApplyEnvToConfigFillsUnsetOnly(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("LLM_BASE_URL", "http://localhost:1234/v1")
	t.Setenv("LLM_MODEL", "qwen2.5")
	t.Setenv("FETCH_TIMEOUT", "15s")
	t.Setenv("FETCH_HOST_RPS", "0.5")
	t.Setenv("MODEL_FIRST", "true")

	cfg := Config{LLMModel: "preset-model"}
	ApplyEnvToConfig(&cfg)

	if cfg.LLMBaseURL != "http://localhost:1234/v1" {
		t.Fatalf("LLMBaseURL = %q", cfg.LLMBaseURL)
	}
	if cfg.LLMModel != "preset-model" {
		t.Fatalf("explicit value should beat env, got %q", cfg.LLMModel)
	}
	if cfg.FetchTimeout != 15*time.Second {
		t.Fatalf("FetchTimeout = %v", cfg.FetchTimeout)
	}
	if cfg.HostRPS != 0.5 {
		t.Fatalf("HostRPS = %v", cfg.HostRPS)
	}
	if !cfg.ModelFirst {
		t.Fatalf("MODEL_FIRST=true should set ModelFirst")
	}
}

func TestApplyEnvToConfigOpenAIKeyFallback(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-fallback")

	var cfg Config
	ApplyEnvToConfig(&cfg)
	if cfg.LLMAPIKey != "sk-fallback" {
		t.Fatalf("OPENAI_API_KEY fallback not honored, got %q", cfg.LLMAPIKey)
	}

	t.Setenv("LLM_API_KEY", "sk-primary")
	cfg = Config{}
	ApplyEnvToConfig(&cfg)
	if cfg.LLMAPIKey != "sk-primary" {
		t.Fatalf("LLM_API_KEY should win over OPENAI_API_KEY, got %q", cfg.LLMAPIKey)
	}
}

func TestApplyEnvOverridesForceValues(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("LLM_MODEL", "env-model")
	t.Setenv("BYPASS_CACHE", "false")

	cfg := Config{LLMModel: "file-model", BypassCache: true}
	ApplyEnvOverrides(&cfg)

	if cfg.LLMModel != "env-model" {
		t.Fatalf("override should force env value, got %q", cfg.LLMModel)
	}
	if cfg.BypassCache {
		t.Fatalf("BYPASS_CACHE=false should force the flag off")
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  base: http://localhost:1234/v1
  model: qwen2.5
  key: sk-local
fetch:
  ua: test-agent/1.0
store:
  path: /var/lib/jobextract/results.db
webhook:
  url: https://hooks.example.com/quota
  secret: hunter2
server:
  listen: ":9090"
verbose: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if fc.LLM.Model != "qwen2.5" || fc.LLM.BaseURL != "http://localhost:1234/v1" {
		t.Fatalf("llm section = %+v", fc.LLM)
	}
	if fc.Webhook.URL != "https://hooks.example.com/quota" || fc.Webhook.Secret != "hunter2" {
		t.Fatalf("webhook section = %+v", fc.Webhook)
	}
	if fc.Server.Listen != ":9090" || !fc.Verbose {
		t.Fatalf("server/verbose = %+v %v", fc.Server, fc.Verbose)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"llm":{"model":"gpt-4o-mini"},"cache":{"dir":"/tmp/jx-cache","bypass":true}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if fc.LLM.Model != "gpt-4o-mini" || fc.Cache.Dir != "/tmp/jx-cache" || !fc.Cache.Bypass {
		t.Fatalf("parsed = %+v", fc)
	}
}

func TestApplyFileConfigKeepsExplicitValues(t *testing.T) {
	var fc FileConfig
	fc.LLM.Model = "file-model"
	fc.LLM.Timeout = 2 * time.Minute
	fc.Store.Path = "/data/results.db"
	fc.Store.TTL = 48 * time.Hour

	cfg := Config{LLMModel: "flag-model"}
	ApplyFileConfig(&cfg, fc)

	if cfg.LLMModel != "flag-model" {
		t.Fatalf("flag value should beat file config, got %q", cfg.LLMModel)
	}
	if cfg.LLMTimeout != 2*time.Minute {
		t.Fatalf("LLMTimeout = %v", cfg.LLMTimeout)
	}
	if cfg.StorePath != "/data/results.db" || cfg.StoreTTL != 48*time.Hour {
		t.Fatalf("store fields = %q %v", cfg.StorePath, cfg.StoreTTL)
	}
}

func TestValidateConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "empty is valid", cfg: Config{}},
		{name: "negative timeout", cfg: Config{FetchTimeout: -time.Second}, wantErr: true},
		{name: "negative rps", cfg: Config{HostRPS: -1}, wantErr: true},
		{name: "negative cache age", cfg: Config{CacheMaxAge: -time.Hour}, wantErr: true},
		{name: "model first without model", cfg: Config{ModelFirst: true}, wantErr: true},
		{name: "model first with model", cfg: Config{ModelFirst: true, LLMModel: "m"}},
		{name: "webhook secret without url", cfg: Config{WebhookSecret: "s"}, wantErr: true},
		{name: "webhook pair", cfg: Config{WebhookURL: "https://h.example.com", WebhookSecret: "s"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateConfig(tc.cfg)
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
