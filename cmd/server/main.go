/*
main.go - Application entry point

PURPOSE:
  Starts the Chrono API server: punch clock, work-time dashboards, vacation
  requests and the pricing/registration funnel. Optionally polls an NFC
  reader for card punches.

STARTUP SEQUENCE:
  1. Load configuration (config.yaml, .env, environment)
  2. Apply command-line flag overrides
  3. Initialize logger and SQLite store
  4. Load the feature catalog
  5. Create API handler and router
  6. Start the NFC poller when a reader URL is configured
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a YAML config file (optional)
  -port    HTTP server port (overrides APP_PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database
  -static  Directory with the built front end (optional)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the NFC poller
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/chrono.db"
  ./server -config=config.yaml -port=3000
  NFC_READER_URL=http://localhost:5000/uid ./server

SEE ALSO:
  - config/config.go: Configuration layers
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chrono/chrono-engine/api"
	"github.com/chrono/chrono-engine/config"
	"github.com/chrono/chrono-engine/factory"
	"github.com/chrono/chrono-engine/generic"
	"github.com/chrono/chrono-engine/nfc"
	"github.com/chrono/chrono-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "YAML config file")
	port := flag.Int("port", 0, "HTTP server port")
	dbPath := flag.String("db", "", "SQLite database path")
	staticDir := flag.String("static", "", "Directory with the built front end")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		api.NewLogger(os.Stderr, "error", "").Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.App.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if err := cfg.Validate(); err != nil {
		api.NewLogger(os.Stderr, "error", "").Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := api.NewLogger(os.Stdout, cfg.App.LogLevel, cfg.App.Env)

	// Initialize store
	if dir := filepath.Dir(cfg.Database.Path); cfg.Database.Path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("Failed to create database directory", "dir", dir, "error", err)
			os.Exit(1)
		}
	}
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	catalog, err := factory.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		logger.Error("Failed to load feature catalog", "error", err)
		os.Exit(1)
	}

	// Initialize handler
	loc := generic.LoadLocation(cfg.App.Timezone)
	handler := api.NewHandler(store, catalog, loc, logger)

	// Create router
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: cfg.App.CORSOrigins,
		StaticDir:      *staticDir,
	})

	// NFC poller
	var poller *nfc.Poller
	if cfg.NFC.ReaderURL != "" {
		poller = nfc.NewPoller(nfc.NewHTTPReader(cfg.NFC.ReaderURL, nil), handler.RecordCard, logger)
		poller.Interval = cfg.NFC.Interval
		poller.Debouncer = nfc.NewDebouncer(cfg.NFC.Debounce, nfc.SystemClock)
		poller.Start()
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting", "addr", server.Addr, "timezone", loc.String(), "db", cfg.Database.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	if poller != nil {
		poller.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}
