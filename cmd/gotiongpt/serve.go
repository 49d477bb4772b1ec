package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/YichunLL/gGPT/internal/config"
	"github.com/YichunLL/gGPT/internal/integrations/deepseek"
	"github.com/YichunLL/gGPT/internal/integrations/predictor"
	"github.com/YichunLL/gGPT/internal/usecase"
	"github.com/YichunLL/gGPT/internal/web"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
	janitorInterval   = time.Minute
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the GotionGPT chat server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func runServe(addrOverride string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if addrOverride != "" {
		cfg.ListenAddr = addrOverride
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting GotionGPT",
		"version", appVersion,
		"config", cfg,
	)

	predictClient, err := predictor.NewClient(cfg.PredictBaseURL,
		predictor.WithHTTPClient(&http.Client{Timeout: cfg.PredictTimeout}),
	)
	if err != nil {
		return fmt.Errorf("creating predictor client: %w", err)
	}

	chatClient, err := deepseek.NewClient(cfg.DeepSeekAPIKey,
		deepseek.WithBaseURL(cfg.DeepSeekBaseURL),
		deepseek.WithModel(cfg.DeepSeekModel),
		deepseek.WithMaxTokens(cfg.MaxReplyTokens),
		deepseek.WithHTTPClient(&http.Client{Timeout: cfg.DeepSeekTimeout}),
	)
	if err != nil {
		return fmt.Errorf("creating deepseek client: %w", err)
	}

	hub, err := web.NewHub(logger)
	if err != nil {
		return fmt.Errorf("creating hub: %w", err)
	}

	turns, err := usecase.NewTurnService(predictClient, chatClient, hub, logger)
	if err != nil {
		return fmt.Errorf("creating turn service: %w", err)
	}

	webServer, err := web.NewServer(web.ServerConfig{
		Logger:        logger,
		Hub:           hub,
		Turns:         turns,
		RatePerSecond: cfg.RatePerSecond,
		RateBurst:     cfg.RateBurst,
		TrustProxy:    cfg.TrustProxy,
	})
	if err != nil {
		return fmt.Errorf("creating web server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.ConversationTTL > 0 {
		go hub.Janitor(ctx, janitorInterval, cfg.ConversationTTL)
	}

	// No read or write timeouts: WebSocket connections are long-lived.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           webServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			"addr", cfg.ListenAddr,
			"endpoints", []string{"/", "/api/chat", "/ws", "/health"},
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")

		// Shutdown ignores hijacked connections, so drop the WebSocket
		// clients first and let the listener drain afterwards.
		hub.CloseAll()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}

		<-errCh
		logger.Info("HTTP server stopped")
		return nil

	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	}
}
