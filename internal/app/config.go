package app

import "time"

// Defaults applied when neither flags, env, nor file config set a value.
const (
	DefaultFetchTimeout = 10 * time.Second
	DefaultLLMTimeout   = 90 * time.Second
	DefaultStoreTTL     = 24 * time.Hour
	DefaultListenAddr   = ":8080"
)

// Config holds runtime configuration for the extraction pipeline.
type Config struct {
	// LLM
	LLMBaseURL   string
	LLMModel     string
	LLMAPIKey    string
	LLMTimeout   time.Duration
	LLMMaxTokens int
	// ModelFirst skips the structured/heuristic cascade and always asks the
	// model. The cascade is the default because JSON-LD hits are free.
	ModelFirst bool

	// Fetch
	FetchTimeout time.Duration
	UserAgent    string
	HostRPS      float64
	HostBurst    int

	// Cache / store
	CacheDir string
	// BypassCache skips reads but still writes fresh pages.
	BypassCache bool
	// CacheClear wipes the page cache on startup; CacheMaxAge sweeps entries
	// older than the given age. Zero disables the sweep.
	CacheClear  bool
	CacheMaxAge time.Duration
	StorePath   string
	StoreTTL    time.Duration

	// Quota notification webhook
	WebhookURL    string
	WebhookSecret string

	// Server
	ListenAddr string

	// Behavior
	Verbose      bool
	DebugVerbose bool
}
