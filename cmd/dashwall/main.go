package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dashwall/dashwall/internal/app"
	"github.com/dashwall/dashwall/internal/browser"
	"github.com/dashwall/dashwall/internal/config"
	"github.com/dashwall/dashwall/internal/logger"
	"github.com/dashwall/dashwall/web"
)

var (
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml, json or toml)")
	listenAddr := flag.String("listen", "", "Control API listen address (overrides config)")
	backendURL := flag.String("backend", "", "Backend REST base URL (overrides config)")
	wsURL := flag.String("ws", "", "Live update websocket URL (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	logLevel := flag.String("loglevel", "", "Log level: debug, info, warn, error (overrides config)")
	readOnly := flag.Bool("readonly", false, "Disable layout editing from the wall")
	noBrowser := flag.Bool("nobrowser", false, "Do not open the wall view on startup")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `dashwall - Dashboard Wall Kiosk

Usage:
  dashwall [options]

Options:
  -config string   Config file path (yaml, json or toml)
  -listen string   Control API listen address (default ":8090")
  -backend string  Backend REST base URL
  -ws string       Live update websocket URL
  -db string       SQLite database path (default "dashwall.db")
  -loglevel string Log level: debug, info, warn, error (default "info")
  -readonly        Disable layout editing from the wall
  -nobrowser       Do not open the wall view on startup
  -version         Show version and exit
  -help            Show this help message

Every option can also be set with a DASHWALL_* environment variable,
for example DASHWALL_BACKEND_URL or DASHWALL_LOG_LEVEL.

Examples:
  dashwall                                      # Defaults, wall on :8090
  dashwall -backend http://dash.local:8080/api  # Point at a backend
  dashwall -config /etc/dashwall.yaml           # Load a config file
  dashwall -readonly -nobrowser                 # Headless TV screen

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("dashwall %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	// Flags beat config file and environment
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *backendURL != "" {
		cfg.BackendURL = *backendURL
	}
	if *wsURL != "" {
		cfg.WebsocketURL = *wsURL
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *readOnly {
		cfg.ReadOnly = true
	}

	appLog := logger.NewWithLevel(logger.ParseLevel(cfg.LogLevel))
	if cfg.LogHTTP {
		appLog.EnableHTTPLogging()
	}

	a, err := app.New(appLog, cfg, web.GetTemplatesFS())
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}
	defer a.Close()

	// Open the live channel and start waiting for a pairing push
	a.Start()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.Run()
	}()

	// Give the server a moment before pointing a browser at it
	time.Sleep(100 * time.Millisecond)

	if !*noBrowser {
		wallURL := fmt.Sprintf("http://localhost%s/wall", cfg.ListenAddr)
		if err := browser.Open(wallURL); err != nil {
			appLog.Warn("Failed to open browser", "url", wallURL, "error", err)
		}
	}

	if err := <-serverErr; err != nil {
		log.Fatal(err)
	}
}
