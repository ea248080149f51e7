package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hpungsan/pocket/internal/config"
	"github.com/hpungsan/pocket/internal/db"
	"github.com/hpungsan/pocket/internal/events"
	"github.com/hpungsan/pocket/internal/kv"
	"github.com/hpungsan/pocket/internal/logging"
	"github.com/hpungsan/pocket/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"new": true, "save": true, "fetch": true, "list": true, "library": true,
	"delete": true, "export": true, "import": true,
	"progress": true, "known": true, "unknown": true, "quiz": true,
	"check": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isServe reports whether the web UI was requested; it is the only
// command that logs to the console.
func isServe() bool {
	return len(os.Args) >= 2 && os.Args[1] == "serve"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___            _        _
  | _ \ ___   __ | |__ ___| |_
  |  _// _ \ / _|| / // -_)  _|
  |_|  \___/ \__||_\_\\___|\__|

  Study capsules: notes, flashcards and quizzes

  Usage: pocket <command> [options]
         pocket serve
         pocket --help

  MCP server mode requires piped input.`)
}

// openStore opens the configured backend.
func openStore(ctx context.Context, baseDir string, cfg *config.Config) (kv.Store, error) {
	if cfg.Store == config.StoreRedis {
		rs, err := kv.OpenRedis(ctx, cfg.RedisURL, cfg.RedisNamespace)
		if err != nil {
			return nil, err
		}
		return rs, nil
	}
	database, err := db.Init(baseDir)
	if err != nil {
		return nil, err
	}
	db.ConfigurePool(database, cfg)
	return db.NewStore(database), nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before store init
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	baseDir, err := config.BaseDir()
	if err != nil {
		fail("could not determine data directory: %v", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		fail("could not determine working directory: %v", err)
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fail("failed to load config: %v", err)
	}

	logFile := cfg.LogFile
	if logFile == "" {
		logFile = logging.DefaultFile(baseDir)
	}
	log, err := logging.New(logging.Options{
		Mode:  cfg.LogMode,
		File:  logFile,
		Quiet: !isServe(),
	})
	if err != nil {
		fail("failed to initialize logging: %v", err)
	}
	defer log.Sync()

	ctx := context.Background()
	base, err := openStore(ctx, baseDir, cfg)
	if err != nil {
		fail("failed to open %s store: %v", storeName(cfg), err)
	}
	defer base.Close()

	bus := events.NewBus(log)
	defer bus.Close()
	store := events.Observe(base, bus, log)

	rt := &runtime{store: store, bus: bus, cfg: cfg, log: log}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(rt)
		if err := app.Run(os.Args); err != nil {
			fail("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'pocket --help' for usage.\n")
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("ignoring unknown disabled tools", "tools", unknown)
	}

	log.Info("starting MCP server", "version", Version, "store", storeName(cfg))
	if err := mcp.Run(store, cfg, Version); err != nil {
		log.Error("MCP server stopped", "error", err)
		fail("%v", err)
	}
}

func storeName(cfg *config.Config) string {
	if cfg.Store == "" {
		return config.StoreSQLite
	}
	return cfg.Store
}
