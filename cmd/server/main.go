// Package main is the entry point for the storyfeed API server, a
// GraphQL service for posting short stories, commenting on them and
// liking them.
//
// The application performs the following initialization sequence:
//  1. Load configuration from config file and environment variables
//  2. Initialize structured logging with zap
//  3. Open the sqlite database and run migrations
//  4. Build the in-memory event broker for subscriptions
//  5. Wire the GraphQL schema and HTTP server
//  6. Start the HTTP server with graceful shutdown support
//
// Graceful shutdown is triggered by SIGINT (Ctrl+C) or SIGTERM signals.
//
// Example usage:
//
//	# Start with default config
//	export STORYFEED_AUTH_SECRET=change-me
//	./server
//
//	# Start with custom config file
//	./server --config=/etc/storyfeed/config.yaml
//
//	# Start with environment variable overrides
//	export STORYFEED_SERVER_PORT=9000
//	export STORYFEED_DATABASE_DSN=/var/lib/storyfeed/stories.db
//	./server
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/piwi3910/storyfeed/internal/auth"
	"github.com/piwi3910/storyfeed/internal/config"
	"github.com/piwi3910/storyfeed/internal/graphql"
	"github.com/piwi3910/storyfeed/internal/observability"
	"github.com/piwi3910/storyfeed/internal/pubsub"
	"github.com/piwi3910/storyfeed/internal/server"
	"github.com/piwi3910/storyfeed/internal/storage"
)

const (
	// Version is the application version (set via build flags).
	Version = "1.0.0"

	// ServiceName is the name of this service.
	ServiceName = "storyfeed"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	showVersion = flag.Bool("version", false, "Show version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s version %s\n", ServiceName, Version)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the main application logic. It returns an error if any
// critical initialization or runtime error occurs.
func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := observability.NewLogger(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
		cfg.Observability.Logging.Development,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("storyfeed starting",
		zap.String("version", Version),
		zap.String("service", ServiceName),
	)

	store, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	logger.Info("database ready", zap.String("dsn", cfg.Database.DSN))

	broker := pubsub.NewBroker(logger.WithComponent("pubsub").Logger)
	issuer := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	resolver := graphql.NewResolver(store, broker, issuer, logger.WithComponent("graphql").Logger)
	schema := graphql.NewSchema(resolver)
	authMw := auth.NewMiddleware(issuer, store, logger.WithComponent("auth").Logger)

	srv := server.New(cfg, logger.WithComponent("server").Logger, schema, store, authMw)

	// Start blocks until a shutdown signal arrives; Shutdown closes the
	// store after the HTTP server drains.
	return srv.Start()
}
