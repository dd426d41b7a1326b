package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mcp-mailbox/internal/config"
	"github.com/brandon/mcp-mailbox/internal/email"
	"github.com/brandon/mcp-mailbox/internal/mcp"
)

var (
	version     = "dev"
	configPath  = flag.String("config", "config.yaml", "Path to the configuration file")
	showVersion = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("mcp-mailbox version %s\n", version)
		os.Exit(0)
	}

	// Set up logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.Info("Starting MCP Mailbox Server")

	// Connection pool and mailbox operations
	pool := email.NewPool(email.NewDialer(logger), logger)
	defer pool.Shutdown()

	service := email.NewService(cfg, pool, logger)

	// MCP server
	server := mcp.NewServer(service, version, logger)

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(ctx, cfg.Server.Port); err != nil {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
	case err := <-errChan:
		logger.WithError(err).Error("Server error")
		cancel()
	}

	logger.Info("Shutting down MCP Mailbox Server")
}
