package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	relayapi "github.com/iudanet/meshsync/internal/client/api"
	"github.com/iudanet/meshsync/internal/client/cli"
	"github.com/iudanet/meshsync/internal/client/iocli"
	"github.com/iudanet/meshsync/internal/config"
	"github.com/iudanet/meshsync/internal/ids"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "", "Path to config file (YAML or TOML)")
	dbPath := flag.String("db", "", "Path to local database")
	relayURL := flag.String("relay", "", "Relay websocket URL")
	deviceID := flag.String("device", "", "Device identifier")
	passphraseFile := flag.String("passphrase-file", "", "Path to file containing mesh passphrase")

	flag.Parse()

	stdio := iocli.NewStdio()

	// Show version and exit if requested
	if *showVersion {
		printVersion(stdio)
		os.Exit(0)
	}

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(stdio)
		os.Exit(1)
	}
	command := args[0]

	if command == "device-id" {
		stdio.Println(ids.NewDeviceID())
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *relayURL != "" {
		cfg.RelayURL = *relayURL
	}
	if *deviceID != "" {
		cfg.DeviceID = *deviceID
	}

	logger := config.NewLogger(cfg.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	online := command == "run"

	var passphrase string
	if online && cfg.Sync.EncryptionEnabled {
		passphrase, err = cli.ReadPassphrase(stdio, *passphraseFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	node, err := cli.OpenNode(ctx, cli.NodeOptions{
		Config:     cfg,
		Logger:     logger,
		ConfigPath: *configPath,
		Passphrase: passphrase,
		Online:     online,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	c := cli.New(node, stdio)
	if cfg.RelayURL != "" {
		if base, err := relayapi.BaseURLFromRelay(cfg.RelayURL); err == nil {
			c.SetRelay(relayapi.NewClient(base, cfg.RelayToken))
		} else {
			logger.Warn("Relay REST API unavailable", "relay_url", cfg.RelayURL, "error", err)
		}
	}

	runErr := c.Run(ctx, command, args[1:])

	if err := node.Close(); err != nil {
		logger.Error("Failed to close node", "error", err)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		if errors.Is(runErr, cli.ErrUnknownCommand) || errors.Is(runErr, cli.ErrUsage) {
			cli.PrintUsage(stdio)
		}
		os.Exit(1)
	}
}

func printVersion(out iocli.IO) {
	out.Printf("MeshSync Client\n")
	out.Printf("Version:    %s\n", Version)
	out.Printf("Build Date: %s\n", BuildDate)
	out.Printf("Git Commit: %s\n", GitCommit)
}
