package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/jwt"
	"github.com/iudanet/meshsync/internal/server"
	"github.com/iudanet/meshsync/internal/server/storage/sqlite"
	"github.com/iudanet/meshsync/internal/validation"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Parse flags
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to config file (YAML or TOML)")
	issueToken := flag.String("issue-token", "", "Issue a device token for DEVICE:BUSINESS and exit")
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid server config: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Log, os.Stderr)

	tokens, err := jwt.NewService(cfg.JWTSecret, cfg.Server.TokenLifetime())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create token service: %v\n", err)
		os.Exit(1)
	}

	if *issueToken != "" {
		if err := printToken(tokens, *issueToken); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, tokens, logger); err != nil {
		logger.Error("Relay server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, tokens *jwt.Service, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.Server.SQLitePath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	srv := server.New(server.Options{
		Storage: store,
		Tokens:  tokens,
		Logger:  logger,
		Version: Version,
		Config:  cfg.Server,
	})
	defer srv.Close()

	logger.Info("MeshSync relay starting",
		"version", Version,
		"addr", cfg.Server.ListenAddr,
		"sqlite_path", cfg.Server.SQLitePath,
	)
	return srv.Run(ctx)
}

// printToken выпускает токен устройства по строке вида device:business
func printToken(tokens *jwt.Service, pair string) error {
	deviceID, businessID, ok := strings.Cut(pair, ":")
	if !ok || businessID == "" {
		return fmt.Errorf("-issue-token expects DEVICE:BUSINESS, got %q", pair)
	}
	if err := validation.ValidateDeviceID(deviceID); err != nil {
		return fmt.Errorf("invalid device id: %w", err)
	}

	token, err := tokens.GenerateDeviceToken(deviceID, businessID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func printVersion() {
	fmt.Printf("MeshSync Relay\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
