// ABOUTME: Entry point for the sibyl bridge.
// ABOUTME: Loads config and credentials, dials the assistant, and runs the chat frontends.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	embeddedpb "google.golang.org/genproto/googleapis/assistant/embedded/v1alpha2"

	"github.com/finchley/sibyl/internal/assistant"
	"github.com/finchley/sibyl/internal/bridge"
	"github.com/finchley/sibyl/internal/config"
	"github.com/finchley/sibyl/internal/frontend/matrix"
	"github.com/finchley/sibyl/internal/frontend/telegram"
	"github.com/finchley/sibyl/internal/policy"
	"github.com/finchley/sibyl/internal/store"
)

const banner = `
     _ _         _
 ___(_) |__ _  _| |
(_-<| | '_ \ || | |
/__/|_|_.__/\_, |_|
            |__/
`

// getConfigPath returns the path to the sibyl config file.
// Priority: SIBYL_CONFIG env var > XDG_CONFIG_HOME/sibyl/config.yaml > ~/.config/sibyl/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SIBYL_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "sibyl", "config.yaml")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	configPath := getConfigPath()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", configPath, err)
	}

	logger := setupLogger(cfg.Logging)

	endpoint := cfg.Assistant.Endpoint
	if endpoint == "" {
		endpoint = assistant.DefaultEndpoint
	}

	green := color.New(color.FgGreen)
	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("Assistant: %s\n", endpoint)
	green.Print("    ▶ ")
	fmt.Printf("Language:  %s\n", cfg.Assistant.LanguageCode)
	green.Print("    ▶ ")
	fmt.Printf("Deadline:  %s\n", cfg.Assistant.Deadline)
	fmt.Println()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Credentials and channel are established once; every turn reuses them.
	ts, err := assistant.LoadCredentials(ctx, cfg.Assistant.CredentialsPath)
	if err != nil {
		return fmt.Errorf("loading credentials (run google-oauthlib-tool to initialize): %w", err)
	}

	conn, err := assistant.Dial(endpoint, ts)
	if err != nil {
		return fmt.Errorf("dialing assistant: %w", err)
	}
	defer conn.Close()
	logger.Info("connected to assistant", "endpoint", endpoint)

	session := assistant.NewSession(embeddedpb.NewEmbeddedAssistantClient(conn), assistant.Options{
		LanguageCode:  cfg.Assistant.LanguageCode,
		DeviceModelID: cfg.Assistant.DeviceModelID,
		DeviceID:      cfg.Assistant.DeviceID,
		Deadline:      cfg.Assistant.Deadline,
	}, logger)

	var recorder bridge.Recorder
	if cfg.Store.Path != "" {
		s, err := store.NewSQLiteStore(cfg.Store.Path, logger)
		if err != nil {
			return fmt.Errorf("opening transcript store: %w", err)
		}
		defer s.Close()
		recorder = s
	}

	auth := policy.NewStaticAuthorizer(cfg.Policy.AllowedChatIDs, cfg.Policy.AuthorizedUserIDs)

	router := bridge.NewRouter(bridge.Config{
		ReportFailures: cfg.Bridge.ReportFailures,
	}, session, auth, recorder, logger)
	defer router.Close()

	type runnable interface {
		Run(ctx context.Context) error
	}
	var frontends []runnable

	if cfg.Frontends.Telegram.Enabled {
		tg, err := telegram.New(cfg.Frontends.Telegram.BotToken, router, logger)
		if err != nil {
			return fmt.Errorf("creating telegram frontend: %w", err)
		}
		logger.Info("telegram frontend enabled", "handle", tg.Handle())
		frontends = append(frontends, tg)
	}

	if cfg.Frontends.Matrix.Enabled {
		mx, err := matrix.New(
			cfg.Frontends.Matrix.Homeserver,
			cfg.Frontends.Matrix.UserID,
			cfg.Frontends.Matrix.AccessToken,
			router, logger,
		)
		if err != nil {
			return fmt.Errorf("creating matrix frontend: %w", err)
		}
		logger.Info("matrix frontend enabled", "handle", mx.Handle())
		frontends = append(frontends, mx)
	}

	logger.Info("starting bridge", "frontends", len(frontends))

	errs := make(chan error, len(frontends))
	for _, f := range frontends {
		go func() {
			errs <- f.Run(ctx)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	case err := <-errs:
		if err != nil {
			return fmt.Errorf("frontend failed: %w", err)
		}
		return nil
	}
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var logLevel slog.Level
	switch cfg.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
