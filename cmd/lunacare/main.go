package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hbiui/LunaCare/internal/advisor"
	"github.com/hbiui/LunaCare/internal/cache"
	"github.com/hbiui/LunaCare/internal/config"
	"github.com/hbiui/LunaCare/internal/db"
	"github.com/hbiui/LunaCare/internal/llm"
	"github.com/hbiui/LunaCare/internal/logging"
	"github.com/hbiui/LunaCare/internal/mcp"
	"github.com/hbiui/LunaCare/internal/metrics"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"log": true, "status": true, "predict": true, "stats": true,
	"ask": true, "tip": true, "topics": true, "symptom": true,
	"export": true, "import": true, "serve": true,
	"help": true,
}

// deps holds everything a command needs once startup has finished.
type deps struct {
	db       *sql.DB
	cfg      *config.Config
	cache    *cache.Cache
	advisor  *advisor.Advisor
	registry *prometheus.Registry
	logger   *zap.Logger
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false // Default → MCP server
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _                       ___
  | |   _  _ _ _  __ _   / __|__ _ _ _ ___
  | |__| || | ' \/ _' | | (__/ _' | '_/ -_)
  |____|\_,_|_||_\__,_|  \___\__,_|_| \___|

  Menstrual cycle tracker and care advisor

  Usage: lunacare <command> [options]
         lunacare --help

  MCP server mode requires piped input.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fatal("could not determine home directory: %v", err)
	}
	baseDir := filepath.Join(homeDir, ".lunacare")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = homeDir
	}
	cfg, err := config.LoadWithLocal(baseDir, cwd)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		fatal("invalid environment: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatal("invalid config: %v", err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		fatal("invalid logging config: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	d := wire(database, cfg, logger)

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(d)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'lunacare --help' for usage.\n")
		os.Exit(1)
	}

	for _, name := range mcp.ValidateDisabledTools(cfg.DisabledTools) {
		logger.Warn("unknown tool in disabled_tools", zap.String("tool", name))
	}
	for _, name := range mcp.ValidateDisabledTypes(cfg.DisabledTypes) {
		logger.Warn("unknown type in disabled_types", zap.String("type", name))
	}

	// MCP server mode (default)
	if err := mcp.Run(database, cfg, d.advisor, Version); err != nil {
		fatal("%v", err)
	}
}

// wire builds the advice pipeline on top of an open database.
func wire(database *sql.DB, cfg *config.Config, logger *zap.Logger) *deps {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	c := cache.New(cache.NewSQLiteBackend(database),
		cache.WithTTL(cfg.CacheTTL()),
		cache.WithMaxEntries(cfg.CacheMaxEntries),
		cache.WithLogger(logger),
		cache.WithMetrics(m),
	)

	// gen stays a nil interface when no client is available.
	var gen advisor.Generator
	if cfg.HasCredential() && !cfg.IsOffline() {
		client, err := llm.New(llm.Config{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
		})
		if err != nil {
			logger.Warn("remote advisor disabled", zap.Error(err))
		} else {
			logger.Info("remote advisor enabled", zap.String("model", client.Model()))
			gen = client
		}
	}

	adv := advisor.New(c, gen, cfg,
		advisor.WithMaxAttempts(cfg.MaxAttempts),
		advisor.WithTimeout(cfg.RemoteTimeout()),
		advisor.WithLogger(logger),
		advisor.WithMetrics(m),
	)

	return &deps{
		db:       database,
		cfg:      cfg,
		cache:    c,
		advisor:  adv,
		registry: reg,
		logger:   logger,
	}
}
