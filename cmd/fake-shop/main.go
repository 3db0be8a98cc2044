// ABOUTME: Demo pet shop backend for local development and E2E runs of the support console.
// ABOUTME: Usage: fake-shop [-addr :8080] [-secret s] [-history 45] [-auto-reply]
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

	"github.com/joho/godotenv"

	"github.com/2389/petshop-support/internal/config"
	"github.com/2389/petshop-support/internal/fakeshop"
	"github.com/2389/petshop-support/internal/logging"
)

func main() {
	_ = godotenv.Load(".env")

	addr := flag.String("addr", "localhost:8080", "HTTP listen address")
	secret := flag.String("secret", os.Getenv("FAKESHOP_SECRET"), "JWT signing secret (FAKESHOP_SECRET)")
	history := flag.Int("history", 45, "Number of history messages seeded into the first conversation")
	autoReply := flag.Bool("auto-reply", false, "Customers answer every operator message")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	if *secret == "" {
		*secret = "fake-shop-dev-secret"
	}

	if err := run(*addr, *secret, *history, *autoReply, *level); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, secret string, history int, autoReply bool, level string) error {
	logger := logging.New(config.LoggingConfig{Level: level}, os.Stderr)

	shop, err := fakeshop.New(fakeshop.Options{
		Secret:    []byte(secret),
		AutoReply: autoReply,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("creating shop: %w", err)
	}
	if err := fakeshop.Seed(shop, history); err != nil {
		return fmt.Errorf("seeding shop: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           shop.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("fake shop listening",
		"addr", addr,
		"login", fakeshop.DemoOperatorEmail,
		"password", fakeshop.DemoOperatorPassword,
	)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
