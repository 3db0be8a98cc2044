// ABOUTME: Terminal support console for pet shop operators.
// ABOUTME: Lists customer conversations, follows threads live, and replies over the realtime channel.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/2389/petshop-support/internal/api"
	"github.com/2389/petshop-support/internal/auth"
	"github.com/2389/petshop-support/internal/channel"
	"github.com/2389/petshop-support/internal/config"
	"github.com/2389/petshop-support/internal/console"
	"github.com/2389/petshop-support/internal/logging"
	"github.com/2389/petshop-support/internal/readstate"
	"github.com/2389/petshop-support/internal/store"
)

// Version is set at build time.
var version = "dev"

// getConfigPath returns the console config file path.
// Priority: PETSHOP_CONFIG env var > UserConfigDir/petshop/console.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PETSHOP_CONFIG"); envPath != "" {
		return envPath
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "console.yaml"
	}
	return filepath.Join(configDir, "petshop", "console.yaml")
}

// getDataPath returns the directory holding the client state database.
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "petshop")
}

func main() {
	_ = godotenv.Load(".env")

	configPath := flag.String("config", getConfigPath(), "Path to YAML or TOML config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("support-console", version)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nGoodbye!")
}

// loadConfig reads path, falling back to the localhost defaults when the
// file does not exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	dataDir := getDataPath()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return config.Default(filepath.Join(dataDir, "console.db")), nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	state, err := store.NewSQLiteStore(cfg.State.Path)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}
	defer state.Close()

	tokenPath := cfg.Auth.TokenFile
	if tokenPath == "" {
		if tokenPath, err = auth.DefaultTokenPath(); err != nil {
			return err
		}
	}
	tokens, err := auth.NewTokenFile(tokenPath)
	if err != nil {
		return err
	}

	channels := channel.NewManager(channel.Options{
		URL:          cfg.Realtime.URL,
		Namespace:    cfg.Realtime.Namespace,
		ReconnectMin: cfg.Realtime.ReconnectMin,
		ReconnectMax: cfg.Realtime.ReconnectMax,
		DedupeTTL:    cfg.Realtime.DedupeTTL,
		Logger:       logger,
	})
	defer channels.Close()

	out := newPrinter(os.Stdout)
	c := console.New(
		api.New(cfg.API.BaseURL, api.WithTimeout(cfg.API.Timeout), api.WithLogger(logger)),
		channels,
		readstate.NewTracker(state, logger),
		tokens,
		console.Options{
			PageSize:       cfg.Chat.PageSize,
			RenderMarkdown: cfg.Chat.RenderMarkdown,
			Notifier:       out,
			Logger:         logger,
		},
	)
	defer c.Close()

	out.banner(cfg.API.BaseURL)

	token, source, err := auth.Resolve(os.Getenv, tokens)
	if err != nil {
		logger.Warn("could not read stored token", "error", err)
	}
	if token != "" {
		out.infof("Using %s token", source)
		if err := c.Start(ctx, token); err == nil {
			out.rows(c.Rows())
		}
	} else {
		out.infof("Not logged in. Use /login <email|phone> <password>")
	}

	go out.follow(ctx, c)

	return repl(ctx, c, out)
}
