// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/api/httpserver"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/api/mcpserver"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/audiofile"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/filter"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/playback"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/app/queue"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/infra/config"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/infra/logger"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/infra/voicevox"
	"github.com/kajidog/mcp-tts-voicevox-sub001/internal/observability"
)

const (
	serverVersion     = "0.1.0"
	defaultConfigPath = "config/server.yaml"
)

var (
	app        = kingpin.New("voicevox-speech-server", "VOICEVOX speech queue MCP server")
	configPath = app.Flag("config", "Path to config file").Default(defaultConfigPath).String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()
	transport  = app.Flag("transport", "MCP transport").Default("stdio").Enum("stdio", "http")
	listenAddr = app.Flag("addr", "Listen address for the http transport (overrides config)").String()

	// list-filters command
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

func init() {
	// start command (default) - no need to store the command
	app.Command("start", "Start the server (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Handle list-filters command
	if command == listFiltersCmd.FullCommand() {
		printFilters()
		return
	}

	// Initialize logger. Logs go to stderr by default: with the stdio
	// transport, stdout carries the protocol stream and must stay clean.
	loggerConfig := logger.Config{
		Output: "stderr",
		Level:  "info",
	}
	// Override with command-line flags if specified
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	// Load config
	cfg, err := loadConfig(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.Server.Addr = *listenAddr
	}

	// Run server (defer ensures shutdown hook is called)
	if err := run(cfg, *transport); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file. MCP clients usually launch the
// server without one, so a missing file at the default path falls back
// to built-in defaults; an explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) && path == defaultConfigPath {
		zlog.Info().Msgf("Config file %s not found, using defaults", path)
		return config.Default()
	}
	zlog.Info().Msgf("Loading config from %s", path)
	return config.Load(path)
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config, transportMode string) error {
	// Validate filter config
	if err := validateFilterConfig(cfg); err != nil {
		return fmt.Errorf("invalid filter config: %w", err)
	}

	// Create engine client
	engine, err := voicevox.New(voicevox.Config{
		URL:     cfg.Engine.URL,
		Timeout: time.Duration(cfg.Engine.TimeoutSec) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create engine client: %w", err)
	}
	probeEngine(engine)

	// Create playback strategy
	strategy, err := playback.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to create playback strategy: %w", err)
	}

	// Create temp file manager and queue
	files := audiofile.NewManager(cfg.Queue.TempDir)
	defer files.Close()

	mgr := queue.NewManager(queue.Config{
		PrefetchSize:      cfg.Queue.PrefetchSize,
		DefaultSpeaker:    cfg.Engine.DefaultSpeaker,
		DefaultSpeedScale: cfg.Engine.DefaultSpeedScale,
	}, engine, strategy, files)

	// Build filter chain. The duplicate filter inspects the live queue,
	// so it is injected here instead of coming from the registry.
	chain, err := filter.BuildChain(cfg, filter.NewDuplicateSegmentFilter(mgr))
	if err != nil {
		return fmt.Errorf("failed to build filter chain: %w", err)
	}

	// Wire metrics before the first item can move
	metrics := observability.NewMetrics("voicevox_speech")
	mgr.Events().Subscribe(metrics.Observe)

	mgr.Start()
	defer mgr.Close()

	svc := mcpserver.NewSpeechService(cfg, mgr, engine, chain)

	if transportMode == "http" {
		return runHTTP(cfg, svc, mgr, engine)
	}
	return runStdio(svc)
}

// runStdio serves MCP over stdin/stdout until the client disconnects or
// a shutdown signal arrives.
func runStdio(svc *mcpserver.SpeechService) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		zlog.Info().Msg("Received shutdown signal...")
		cancel()
	}()

	zlog.Info().Msgf("Starting MCP server on stdio (version %s)", serverVersion)
	return svc.Run(ctx, serverVersion)
}

// runHTTP serves MCP and the operational endpoints over HTTP.
func runHTTP(cfg *config.Config, svc *mcpserver.SpeechService, mgr *queue.Manager, engine *voicevox.Client) error {
	api := httpserver.New(cfg, mgr, engine, svc.NewServer(serverVersion))

	// Create server with h2c (HTTP/2 cleartext) support
	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(api.Router(), &http2.Server{}),
	}

	// Channel to capture server startup errors
	serverErrCh := make(chan error, 1)
	serverStartedCh := make(chan struct{})

	// Start server
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		// Signal that we're about to start listening
		close(serverStartedCh)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	// Wait for server to start listening
	<-serverStartedCh
	// Give the server a moment to fully initialize
	time.Sleep(100 * time.Millisecond)

	// Execute startup hook if configured (after server is running)
	executeHooks(cfg.Server.Hooks.OnStarted, "on_started")

	// Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")

	// Execute shutdown hook if configured
	executeHooks(cfg.Server.Hooks.OnStopped, "on_stopped")

	return nil
}

// probeEngine logs the engine version at startup. A dead engine is not
// fatal: synthesis errors surface per item once it comes back.
func probeEngine(engine *voicevox.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	v, err := engine.Version(ctx)
	if err != nil {
		zlog.Warn().Msgf("VOICEVOX engine not reachable: %v", err)
		return
	}
	zlog.Info().Msgf("VOICEVOX engine version %s", v)
}

// printFilters prints available filters.
func printFilters() {
	filters := make([]filter.Filter, 0)
	for _, factory := range filter.GetRegistered() {
		filters = append(filters, factory())
	}
	// Queue-dependent filters are not in the registry
	filters = append(filters, filter.NewDuplicateSegmentFilter(nil))
	sort.Slice(filters, func(i, j int) bool { return filters[i].Name() < filters[j].Name() })

	fmt.Println("Available Filters:")
	for _, f := range filters {
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// validateFilterConfig validates filter configurations.
func validateFilterConfig(cfg *config.Config) error {
	registry := filter.GetRegistered()

	for filterName, filterCfg := range cfg.Filters {
		if !filterCfg.Enabled {
			continue
		}

		factory, exists := registry[filterName]
		if !exists {
			// Some filters are created with dependencies, skip validation
			continue
		}

		f := factory()
		if err := f.ValidateConfig(filterCfg.Settings); err != nil {
			return fmt.Errorf("filter %s: %w", filterName, err)
		}
	}

	return nil
}

// executeHooks runs a list of shell commands.
func executeHooks(hooks []string, stage string) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}
