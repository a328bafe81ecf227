package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/wikivault/wikivault/internal/config"
	"github.com/wikivault/wikivault/internal/contentstore"
	"github.com/wikivault/wikivault/internal/db"
	"github.com/wikivault/wikivault/internal/mediawiki"
	"github.com/wikivault/wikivault/internal/offline"
	"github.com/wikivault/wikivault/internal/sync"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// appEnv carries the wired-up dependencies shared by all commands.
type appEnv struct {
	db          *sql.DB
	cfg         *config.Config
	store       *contentstore.Store
	interceptor *offline.Interceptor
	client      *mediawiki.Client
	worker      *sync.Worker
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return true
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

func main() {
	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".wikivault")

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	cfg, err := config.Load(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	db.ConfigurePool(database, cfg)

	env := newAppEnv(database, cfg, baseDir)

	app := newCLIApp(env)
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newAppEnv wires the store, cache interceptor, wiki client, and worker.
func newAppEnv(database *sql.DB, cfg *config.Config, baseDir string) *appEnv {
	store := contentstore.New(baseDir, nil)
	interceptor := offline.New(http.DefaultTransport, database, store, cfg.Language, cfg.LRUCapacity, nil)
	httpClient := &http.Client{Transport: interceptor, Timeout: cfg.HTTPTimeout()}
	client := mediawiki.New(cfg.APIEndpoint, httpClient)
	worker := sync.NewWorker(database, client, store, cfg, nil)

	return &appEnv{
		db:          database,
		cfg:         cfg,
		store:       store,
		interceptor: interceptor,
		client:      client,
		worker:      worker,
	}
}
