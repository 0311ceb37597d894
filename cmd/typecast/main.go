package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/xonecas/typecast/internal/api"
	"github.com/xonecas/typecast/internal/chat"
	"github.com/xonecas/typecast/internal/config"
	"github.com/xonecas/typecast/internal/render"
	"github.com/xonecas/typecast/internal/scroll"
	"github.com/xonecas/typecast/internal/selection"
	"github.com/xonecas/typecast/internal/store"
	"github.com/xonecas/typecast/internal/tui"
)

// Version is set at build time via ldflags.
var Version = "dev"

// options holds the persistent flags shared by every command.
type options struct {
	configPath string
	endpoint   string
	model      string
	debug      bool

	cfg *config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "typecast",
		Short: "Terminal chat client with typed-out replies",
		Long: `typecast talks to a typecast chat server and reveals each reply
one character at a time while keeping the conversation scrolled to
the newest text, unless you scroll away.

Run without arguments to start the interactive chat interface.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initLogging(opts.debug); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if opts.endpoint != "" {
				cfg.Client.Endpoint = opts.endpoint
			}
			opts.cfg = cfg
			log.Debug().Interface("config", cfg).Msg("Configuration loaded")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.toml", "Path to config file")
	root.PersistentFlags().StringVar(&opts.endpoint, "endpoint", "", "Chat server URL (overrides config)")
	root.PersistentFlags().StringVarP(&opts.model, "model", "m", "", "Model to use (saved as the new selection)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newAskCmd(opts),
		newModelsCmd(opts),
		newClearCmd(opts),
	)

	return root
}

func (o *options) client() *api.Client {
	return api.New(o.cfg.Client.Endpoint, o.cfg.RequestTimeout())
}

// openSelector loads the model list and the saved choice, applying --model.
// The returned store must be closed by the caller.
func (o *options) openSelector(ctx context.Context, client *api.Client) (*selection.Selector, *store.Store, error) {
	s, err := store.New()
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	selector := selection.New(client, s)
	if err := selector.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to load model list")
	}

	if o.model != "" {
		if err := selector.Select(o.model); err != nil {
			s.Close()
			return nil, nil, err
		}
	}

	return selector, s, nil
}

func runInteractive(ctx context.Context, opts *options) error {
	log.Info().Str("version", Version).Str("endpoint", opts.cfg.Client.Endpoint).Msg("Starting typecast")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := opts.client()
	selector, s, err := opts.openSelector(ctx, client)
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := opts.cfg
	policy := scroll.NewPolicy(scroll.Options{
		Threshold:       cfg.Scroll.Threshold,
		QuietWindow:     cfg.ScrollQuietWindow(),
		Debounce:        cfg.AutoScrollDebounce(),
		MaxWait:         cfg.AutoScrollMaxWait(),
		SentinelRows:    cfg.Scroll.SentinelRows,
		SpringFrequency: cfg.Scroll.SpringFrequency,
		SpringDamping:   cfg.Scroll.SpringDamping,
	})
	session := chat.NewSession(ctx, client, policy, cfg.TypingInterval()).WithModels(selector)

	model := tui.New(ctx, session, policy, selector, render.New(render.DefaultStyle))
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			log.Info().Msg("Received shutdown signal")
			cancel()
			program.Quit()
		case <-ctx.Done():
		}
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	log.Info().Msg("typecast shutdown complete")
	return nil
}

func initLogging(debug bool) error {
	dataDir, err := config.EnsureDataDir()
	if err != nil {
		return fmt.Errorf("ensure data dir: %w", err)
	}

	// Truncated on startup
	logPath := filepath.Join(dataDir, "typecast.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// Log to file only (TUI owns stdout/stderr)
	log.Logger = zerolog.New(logFile).With().Timestamp().Logger()

	return nil
}
