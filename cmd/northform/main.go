package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Punshui30/NF2/internal/api"
	"github.com/Punshui30/NF2/internal/gateway"
	"github.com/Punshui30/NF2/internal/genai"
	"github.com/Punshui30/NF2/internal/ingest"
	"github.com/Punshui30/NF2/internal/lockfile"
	"github.com/Punshui30/NF2/internal/store"
	"github.com/Punshui30/NF2/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for NorthForm state data
	DefaultStateDir = "/var/lib/northform"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "northform.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// File-based storage is guarded by a single-instance lock so two
	// processes never share one SQLite database.
	if store.DetectDSNType(*flags.dbDSN) == "sqlite" {
		lock, err := lockfile.AcquireLock(filepath.Dir(*flags.dbDSN))
		if err != nil {
			slog.Error("Failed to lock state directory", "error", err)
			os.Exit(1)
		}
		defer lock.Release()
	}

	profiles, err := openProfileStore(flags)
	if err != nil {
		slog.Error("Failed to open profile store", "error", err)
		os.Exit(1)
	}
	defer profiles.Close()

	analysis, coach := buildAnalysisGateways(flags)
	ingestor := buildIngestEngine(flags)

	server := api.NewServer(analysis, coach, ingestor, profiles, buildAPIOptions(flags)...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Bootstrapping NorthForm",
		"analysis_enabled", analysis != nil,
		"ingest_enabled", ingestor != nil,
		"api_addr", *flags.apiAddr)
	if err := server.Run(ctx); err != nil {
		slog.Error("NorthForm failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("NorthForm exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL  string
	StateDir     string
	OpenAIKey    string
	AnthropicKey string
	APIAddr      string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDSN        *string
	openaiKey    *string
	anthropicKey *string
	apiAddr      *string
}

// initializeLogger sets up structured logging; NORTHFORM_DEBUG enables
// debug-level output
func initializeLogger() {
	level := slog.LevelInfo
	if util.ParseBoolEnv("NORTHFORM_DEBUG", false) {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StateDir:     os.Getenv("NORTHFORM_STATE_DIR"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		APIAddr:      os.Getenv("API_ADDR"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No NORTHFORM_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"NORTHFORM_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"ANTHROPIC_API_KEY_SET", config.AnthropicKey != "",
		"API_ADDR", config.APIAddr)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for NorthForm data (overrides $NORTHFORM_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN for the profile store (overrides $DATABASE_URL)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for analysis and coaching (overrides $OPENAI_API_KEY)"),
		anthropicKey: flag.String("anthropic-api-key", config.AnthropicKey, "Anthropic API key for social ingest (overrides $ANTHROPIC_API_KEY)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"anthropicKeySet", *flags.anthropicKey != "",
		"apiAddr", *flags.apiAddr)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if store.DetectDSNType(*flags.dbDSN) != "sqlite" {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	return os.MkdirAll(stateDir, 0755)
}

// openProfileStore selects a store backend from the DSN. Postgres URLs get
// the Postgres store, file paths get SQLite, an empty DSN gets memory.
func openProfileStore(flags Flags) (store.Store, error) {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(dsn))
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", dsn)
	return store.NewSQLiteStore(store.WithSQLiteDSN(dsn))
}

// buildAnalysisGateways constructs the OpenAI-backed decision and coach
// gateways. Both stay nil without a key; the API reports the missing
// credential per request instead of refusing to start.
func buildAnalysisGateways(flags Flags) (analysis, coach *gateway.Gateway) {
	if *flags.openaiKey == "" {
		slog.Warn("OPENAI_API_KEY not set; analysis and coach endpoints disabled")
		return nil, nil
	}
	client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
	if err != nil {
		slog.Error("Failed to create OpenAI client", "error", err)
		return nil, nil
	}
	g := gateway.New(client)
	return g, g
}

// buildIngestEngine constructs the Anthropic-backed ingest engine, or nil
// without a key.
func buildIngestEngine(flags Flags) *ingest.Engine {
	if *flags.anthropicKey == "" {
		slog.Warn("ANTHROPIC_API_KEY not set; ingest endpoint disabled")
		return nil
	}
	client, err := genai.NewAnthropicClient(genai.WithAPIKey(*flags.anthropicKey))
	if err != nil {
		slog.Error("Failed to create Anthropic client", "error", err)
		return nil
	}
	return ingest.New(client)
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	var apiOpts []api.Option
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	return apiOpts
}
