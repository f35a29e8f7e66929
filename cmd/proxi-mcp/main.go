// Package main is the entry point for the proxi-mcp service.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/proxi-ops/proxi-mcp/api"
	"github.com/proxi-ops/proxi-mcp/internal/config"
	"github.com/proxi-ops/proxi-mcp/internal/policy"
	"github.com/proxi-ops/proxi-mcp/internal/server"
	"github.com/proxi-ops/proxi-mcp/internal/tools"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "proxi-mcp").Str("version", version).Logger()

	logger := log.With().Str("component", "main").Logger()
	logger.Info().Msg("starting proxi-mcp")

	registry, err := server.NewToolRegistry(api.ToolsContract)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse tool contract")
	}

	var doc *policy.Document
	if cfg.PolicyPath != "" {
		doc, err = policy.LoadFile(cfg.PolicyPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.PolicyPath).Msg("failed to load policy document")
		}
		logger.Info().Str("path", cfg.PolicyPath).Str("policy", doc.Name).Msg("loaded policy document")
	} else {
		doc, err = policy.ParseDocument(api.DefaultPolicy)
		if err != nil {
			logger.Fatal().Err(err).Msg("embedded default policy is invalid")
		}
		logger.Info().Str("policy", doc.Name).Msg("using embedded default policy")
	}

	engine := policy.NewEngine(policy.NewStore(doc), policy.WithStrictTools(cfg.StrictTools))
	if cfg.Mode != "" {
		if err := engine.SetMode(cfg.Mode); err != nil {
			logger.Fatal().Err(err).Str("mode", cfg.Mode).Msg("invalid startup mode")
		}
	}
	logger.Info().Str("mode", engine.CurrentMode()).Bool("strict_tools", cfg.StrictTools).Msg("policy engine initialized")

	if cfg.Token == "" {
		logger.Warn().Msg("PROXI_MCP_TOKEN is not set; mutating endpoints will reject every request")
	}

	infra := tools.NewInfrastructure()
	runner := tools.NewRunner(infra)
	authn := server.NewTokenSessionAuthenticator(cfg.Token)

	httpServer := server.NewHTTPServer(cfg, version, commit, buildDate, api.ToolsContract, registry, engine, authn, runner, infra, log.Logger)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httpServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("HTTP server listening")
		if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			errCh <- serveErr
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case serveErr := <-errCh:
		logger.Error().Err(serveErr).Msg("HTTP server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error().Err(shutdownErr).Msg("HTTP server shutdown error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped gracefully")
}
