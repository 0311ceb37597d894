package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xonecas/typecast/internal/config"
	"github.com/xonecas/typecast/internal/provider"
	"github.com/xonecas/typecast/internal/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "config.toml", "Path to config file")
		addr        = flag.String("addr", "", "Listen address (overrides config)")
		providerArg = flag.String("provider", "", "Provider serving replies (overrides config)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("typecastd %s\n", Version)
		os.Exit(0)
	}

	initLogging(*debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *providerArg != "" {
		cfg.Server.Provider = *providerArg
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load credentials")
		creds = &config.Credentials{}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := initProviders(ctx, cfg, creds)
	log.Debug().Strs("providers", registry.List()).Msg("Providers initialized")

	srv, err := newServer(cfg, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure server")
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("version", Version).
			Str("addr", cfg.Server.Addr).
			Str("provider", cfg.Server.Provider).
			Msg("Starting typecastd")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Graceful shutdown failed")
	}

	log.Info().Msg("typecastd shutdown complete")
}

func initLogging(debug bool) {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func initProviders(ctx context.Context, cfg *config.Config, creds *config.Credentials) *provider.Registry {
	registry := provider.NewRegistry()

	// Gemini through its OpenAI-compatible endpoint, or any other compatible server
	if oaCfg, ok := cfg.Providers["openai"]; ok {
		apiKey := creds.GetAPIKey("openai")
		if apiKey == "" {
			apiKey = creds.GetAPIKey("gemini")
		}
		if apiKey != "" {
			factory := provider.NewOpenAIFactory("openai", oaCfg.Endpoint, apiKey, oaCfg.RateLimit, oaCfg.RateBurst)
			registry.RegisterFactory(factory.Name(), factory)
		}
	}

	// Native Gemini API
	if gemCfg, ok := cfg.Providers["gemini"]; ok {
		if apiKey := creds.GetAPIKey("gemini"); apiKey != "" {
			client, err := provider.NewGeminiClient(ctx, apiKey)
			if err != nil {
				log.Error().Err(err).Msg("Failed to create Gemini client")
			} else {
				factory := provider.NewGeminiFactory("gemini", client, gemCfg.RateLimit, gemCfg.RateBurst)
				registry.RegisterFactory(factory.Name(), factory)
			}
		}
	}

	// Offline replies for demos and smoke tests
	mock := provider.NewMockFactory("mock", "This is a canned reply from the **mock** provider. ",
		"Configure an API key to talk to a real model.")
	registry.RegisterFactory(mock.Name(), mock)

	return registry
}

func newServer(cfg *config.Config, registry *provider.Registry) (*server.Server, error) {
	name := cfg.Server.Provider
	if _, err := registry.Create(name, cfg.Server.DefaultModel, 0); err != nil {
		return nil, fmt.Errorf("provider %q: %w (registered: %v)", name, err, registry.List())
	}

	return server.New(server.Options{
		Registry:       registry,
		Provider:       name,
		Temperature:    cfg.Providers[name].Temperature,
		Catalog:        server.NewCatalog(cfg.Models, cfg.Server.DefaultModel),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		SystemPrompt:   cfg.Server.SystemPrompt,
	}), nil
}
