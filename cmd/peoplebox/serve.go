package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"peoplebox/internal/ctgov"
	"peoplebox/internal/history"
	"peoplebox/internal/policy"
	"peoplebox/internal/server"
	"peoplebox/pkg/fileutil"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logFile    string
	dbPath     string
	host       string
	port       int
	testMode   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the curation actions server",
	Long: `Start the HTTP server that exposes the dossier curation actions.

The server cleans and validates people JSON posted by the curation agent,
recording each run in the local history database.`,
	RunE: runServe,
}

func init() {
	// .env is optional; real env vars win over file values
	_ = godotenv.Load()

	// Flags for serve command
	serveCmd.Flags().StringVarP(&configFile, "config", "c", getEnvOrDefault("PEOPLEBOX_CONFIG_FILE", ""), "Path to peoplebox.yaml policy file")
	serveCmd.Flags().StringVar(&logFile, "log", getEnvOrDefault("PEOPLEBOX_LOG_FILE", "./curation.log"), "Path to log file")
	serveCmd.Flags().StringVar(&dbPath, "db", getEnvOrDefault("PEOPLEBOX_DB_PATH", "./curation.db"), "Path to SQLite database")
	serveCmd.Flags().StringVar(&host, "host", getEnvOrDefault("PEOPLEBOX_HOST", "127.0.0.1"), "Host to bind to")
	serveCmd.Flags().IntVarP(&port, "port", "p", getEnvOrDefaultInt("PEOPLEBOX_PORT", 5000), "Port to listen on")
	serveCmd.Flags().BoolVar(&testMode, "test-mode", os.Getenv("PEOPLEBOX_SKIP_HISTORY") == "1", "Enable test mode (no history, no rate limits)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Determine policy file path. The policy is optional: built-in
	// defaults cover the standard dossier layout.
	if configFile == "" {
		configFile = fileutil.FindConfigOptional("peoplebox.yaml")
	}

	// Set up logging
	logger, logFileHandle, err := setupLogging(logFile)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer logFileHandle.Close()

	logger.Info("Starting peoplebox")

	// Load curation policy
	pol := policy.Default()
	if configFile != "" {
		logger.Info("Loading policy", "config", configFile)
		pol, err = policy.Load(configFile)
		if err != nil {
			logger.Error("Failed to load policy", "error", err)
			return fmt.Errorf("failed to load policy: %w", err)
		}
	} else {
		logger.Info("No policy file found, using built-in defaults")
	}

	apiKey := os.Getenv("ACTIONS_API_KEY")
	if apiKey == "" {
		logger.Warn("ACTIONS_API_KEY not set, server will accept unauthenticated requests")
	}

	// Initialize history database
	var hist *history.History
	if !testMode {
		logger.Info("Initializing history database", "db", dbPath)
		hist, err = history.NewHistory(dbPath)
		if err != nil {
			logger.Error("Failed to initialize history database", "error", err)
			return fmt.Errorf("failed to initialize history database: %w", err)
		}
		defer hist.Close()
	}

	// Create and start server
	srv := server.NewServer(pol, hist, ctgov.NewClient(), logger, apiKey, testMode)

	logger.Info("Starting HTTP server", "host", host, "port", port)
	if err := srv.Start(host, port); err != nil {
		logger.Error("Server failed", "error", err)
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

// setupLogging configures slog for file logging
// Returns both the logger and the file handle (caller must close the file)
func setupLogging(logPath string) (*slog.Logger, *os.File, error) {
	// Create log directory if needed
	logDir := filepath.Dir(logPath)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// Open log file with secure permissions
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create multi-writer to log to both file and console
	multiWriter := io.MultiWriter(os.Stdout, file)

	// Create JSON handler for structured logging
	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})

	logger := slog.New(handler)

	return logger, file, nil
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
