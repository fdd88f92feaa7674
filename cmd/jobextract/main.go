package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/applypilot/jobextract/internal/api"
	"github.com/applypilot/jobextract/internal/app"
)

// errAllFailed maps to exit code 2: the pipeline ran but produced no usable
// extraction for any requested posting.
var errAllFailed = errors.New("no posting extracted successfully")

type runOptions struct {
	serve     bool
	purge     bool
	urls      []string
	htmlPath  string
	userID    string
	userEmail string
	parallel  int
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		configPath    string
		envFiles      string
		serve         bool
		listen        string
		llmBaseURL    string
		llmModel      string
		llmKey        string
		llmTimeout    time.Duration
		llmMaxTokens  int
		modelFirst    bool
		fetchTimeout  time.Duration
		fetchUA       string
		hostRPS       float64
		hostBurst     int
		cacheDir      string
		bypassCache   bool
		cacheClear    bool
		cacheMaxAge   time.Duration
		storePath     string
		storeTTL      time.Duration
		storePurge    bool
		webhookURL    string
		webhookSecret string
		htmlPath      string
		userID        string
		userEmail     string
		urlsPath      string
		parallel      int
		showVersion   bool
		verbose       bool
		debugVerbose  bool
	)

	flag.StringVar(&configPath, "config", os.Getenv("JOBEXTRACT_CONFIG"), "Path to YAML/JSON config file")
	flag.StringVar(&envFiles, "env-file", "", "Comma-separated dotenv files loaded before reading the environment")
	flag.BoolVar(&serve, "serve", false, "Run the HTTP API instead of a one-shot extraction")
	flag.StringVar(&listen, "listen", "", "HTTP listen address for -serve (default :8080)")
	flag.StringVar(&llmBaseURL, "llm.base", os.Getenv("LLM_BASE_URL"), "OpenAI-compatible base URL")
	flag.StringVar(&llmModel, "llm.model", os.Getenv("LLM_MODEL"), "Model name; empty disables the model pass")
	flag.StringVar(&llmKey, "llm.key", os.Getenv("LLM_API_KEY"), "API key for the OpenAI-compatible server")
	flag.DurationVar(&llmTimeout, "llm.timeout", 0, "Per-call model timeout (default 90s)")
	flag.IntVar(&llmMaxTokens, "llm.maxTokens", 0, "Cap on model reply tokens (0 lets the server decide)")
	flag.BoolVar(&modelFirst, "llm.first", false, "Ask the model before structured data and heuristics")
	flag.DurationVar(&fetchTimeout, "fetch.timeout", 0, "Page fetch timeout (default 10s)")
	flag.StringVar(&fetchUA, "fetch.ua", "", "Override the browser User-Agent")
	flag.Float64Var(&hostRPS, "fetch.hostRps", 0, "Per-host request rate limit in requests/second (0 disables)")
	flag.IntVar(&hostBurst, "fetch.hostBurst", 0, "Per-host burst on top of the rate limit")
	flag.StringVar(&cacheDir, "cache.dir", "", "Page cache directory (empty disables caching)")
	flag.BoolVar(&bypassCache, "cache.bypass", false, "Fetch fresh even when a cached copy exists")
	flag.BoolVar(&cacheClear, "cache.clear", false, "Wipe the page cache on startup")
	flag.DurationVar(&cacheMaxAge, "cache.maxAge", 0, "Drop cached pages older than this on startup (0 keeps everything)")
	flag.StringVar(&storePath, "store.path", "", "SQLite path for extraction results (empty disables the store)")
	flag.DurationVar(&storeTTL, "store.ttl", 0, "Age before a stored result is refetched (default 24h)")
	flag.BoolVar(&storePurge, "store.purge", false, "Delete stored results older than store.ttl, then exit")
	flag.StringVar(&webhookURL, "webhook.url", os.Getenv("WEBHOOK_URL"), "Endpoint for quota-exhaustion notifications")
	flag.StringVar(&webhookSecret, "webhook.secret", os.Getenv("WEBHOOK_SECRET"), "HMAC secret for webhook signatures")
	flag.StringVar(&htmlPath, "html", "", "Read page HTML from a file instead of fetching (single URL only)")
	flag.StringVar(&userID, "user", "", "User ID attached to quota notifications")
	flag.StringVar(&userEmail, "email", "", "User email attached to quota notifications")
	flag.StringVar(&urlsPath, "urls", "", "File with one posting URL per line for batch mode")
	flag.IntVar(&parallel, "parallel", 4, "Concurrent extractions in batch mode")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.BoolVar(&debugVerbose, "debug-verbose", false, "Log page and model payloads (noisy)")
	flag.Parse()

	if showVersion {
		fmt.Printf("jobextract %s (%s, %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}

	if strings.TrimSpace(envFiles) != "" {
		if err := app.LoadEnvFiles(strings.Split(envFiles, ",")...); err != nil {
			log.Error().Err(err).Msg("load env files")
			os.Exit(1)
		}
	}

	cfg := app.Config{
		LLMBaseURL:    llmBaseURL,
		LLMModel:      llmModel,
		LLMAPIKey:     llmKey,
		LLMTimeout:    llmTimeout,
		LLMMaxTokens:  llmMaxTokens,
		ModelFirst:    modelFirst,
		FetchTimeout:  fetchTimeout,
		UserAgent:     fetchUA,
		HostRPS:       hostRPS,
		HostBurst:     hostBurst,
		CacheDir:      cacheDir,
		BypassCache:   bypassCache,
		CacheClear:    cacheClear,
		CacheMaxAge:   cacheMaxAge,
		StorePath:     storePath,
		StoreTTL:      storeTTL,
		WebhookURL:    webhookURL,
		WebhookSecret: webhookSecret,
		ListenAddr:    listen,
		Verbose:       verbose,
		DebugVerbose:  debugVerbose,
	}

	// Precedence: flags beat the config file, the config file beats plain
	// env defaults for anything the flags left unset.
	if strings.TrimSpace(configPath) != "" {
		fc, err := app.LoadConfigFile(configPath)
		if err != nil {
			log.Error().Err(err).Str("path", configPath).Msg("load config file")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvToConfig(&cfg)

	if cfg.Verbose || cfg.DebugVerbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	urls, err := collectURLs(flag.Args(), urlsPath)
	if err != nil {
		log.Error().Err(err).Msg("read url list")
		os.Exit(1)
	}

	opts := runOptions{
		serve:     serve,
		purge:     storePurge,
		urls:      urls,
		htmlPath:  htmlPath,
		userID:    userID,
		userEmail: userEmail,
		parallel:  parallel,
	}

	if err := run(cfg, opts); err != nil {
		if errors.Is(err, errAllFailed) {
			os.Exit(2)
		}
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(cfg app.Config, opts runOptions) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	switch {
	case opts.purge:
		n, err := a.PurgeStale(ctx)
		if err != nil {
			return fmt.Errorf("purge store: %w", err)
		}
		log.Info().Int64("removed", n).Msg("purged stale results")
		return nil
	case opts.serve:
		addr := cfg.ListenAddr
		if addr == "" {
			addr = app.DefaultListenAddr
		}
		srv := &api.Server{Addr: addr, Extractor: a, Version: app.BuildVersion}
		return srv.ListenAndServe(ctx)
	case len(opts.urls) == 0:
		return errors.New("no posting URL given; pass URLs as arguments, -urls FILE, or use -serve")
	case len(opts.urls) == 1:
		return runSingle(ctx, a, opts)
	default:
		if opts.htmlPath != "" {
			return errors.New("-html applies to a single URL only")
		}
		return runBatch(ctx, a, opts)
	}
}

// runSingle extracts one posting and prints the result as indented JSON.
func runSingle(ctx context.Context, a *app.App, opts runOptions) error {
	req := app.Request{URL: opts.urls[0], UserID: opts.userID, UserEmail: opts.userEmail}
	if opts.htmlPath != "" {
		b, err := os.ReadFile(opts.htmlPath)
		if err != nil {
			return fmt.Errorf("read html file: %w", err)
		}
		req.HTML = string(b)
	}

	resp := a.ExtractJob(ctx, req)
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	fmt.Println(string(out))

	if !resp.Success {
		return errAllFailed
	}
	return nil
}

// runBatch extracts many postings with bounded parallelism and prints one
// JSON object per line in input order.
func runBatch(ctx context.Context, a *app.App, opts runOptions) error {
	parallel := opts.parallel
	if parallel < 1 {
		parallel = 1
	}

	results := make([]app.Response, len(opts.urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, u := range opts.urls {
		i, u := i, u // per-iteration copies; required for Go <1.22 loop semantics
		g.Go(func() error {
			results[i] = a.ExtractJob(gctx, app.Request{URL: u, UserID: opts.userID, UserEmail: opts.userEmail})
			return nil
		})
	}
	// Workers never return errors; Wait only surfaces context cancellation.
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
	log.Info().Int("total", len(results)).Int("succeeded", succeeded).Msg("batch finished")

	if succeeded == 0 {
		return errAllFailed
	}
	return nil
}

// collectURLs merges positional arguments with an optional URL list file.
// The file format is one URL per line; blank lines and '#' comments are
// skipped. Duplicates are dropped, first occurrence wins.
func collectURLs(args []string, listPath string) ([]string, error) {
	urls := make([]string, 0, len(args))
	seen := make(map[string]struct{})
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u == "" {
			return
		}
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}

	for _, a := range args {
		add(a)
	}
	if strings.TrimSpace(listPath) != "" {
		b, err := os.ReadFile(listPath)
		if err != nil {
			return nil, err
		}
		for _, line := range strings.Split(string(b), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			add(line)
		}
	}
	return urls, nil
}
