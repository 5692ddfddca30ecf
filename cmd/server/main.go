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

	"hookrelay/internal/app"
	"hookrelay/internal/config"
	"hookrelay/internal/domain/ask"
	"hookrelay/internal/domain/notification"
	"hookrelay/internal/mcp"
	"hookrelay/internal/middleware"
	"hookrelay/internal/router"

	"github.com/gin-gonic/gin"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// stdout carries the MCP stdio stream, so every log goes to stderr
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	gin.DefaultWriter = os.Stderr
	gin.DefaultErrorWriter = os.Stderr

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	serveHTTP := cfg.Ask.Enabled || len(cfg.Auth.APIKeys) > 0
	if !serveHTTP && !cfg.MCP.Enabled {
		slog.Error("nothing to serve: enable mcp, ask or set auth.api_keys")
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"version", version,
		"provider", cfg.Webhook.Type,
		"mcp", cfg.MCP.Enabled,
		"ask", cfg.Ask.Enabled,
		"http", serveHTTP,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ==========================================
	// Dependency Injection (Manual Wiring)
	// ==========================================

	dispatcher, cleanup, err := app.NewDispatcher(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize dispatcher", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	var (
		coordinator *ask.Coordinator
		askHandler  *ask.Handler
	)
	if cfg.Ask.Enabled {
		coordinator = ask.NewCoordinator(ask.NewRegistry(), cfg.Ask.ServerURL, cfg.Ask.Port)
		askHandler = ask.NewHandler(coordinator)
		slog.Info("ask coordinator initialized", "server_url", cfg.Ask.ServerURL, "port", cfg.Ask.Port)
	}

	// ==========================================
	// HTTP Server with Graceful Shutdown
	// ==========================================

	var srv *http.Server
	if serveHTTP {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		go rateLimiter.Run(ctx, time.Minute, 10*time.Minute)

		r := router.New(cfg, rateLimiter, askHandler, notification.NewHandler(dispatcher))

		srv = &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			slog.Info("server starting", "address", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("server failed to start", "error", err)
				os.Exit(1)
			}
		}()
	}

	// The MCP session ends when the client closes stdin
	mcpDone := make(chan error, 1)
	if cfg.MCP.Enabled {
		tools := mcp.NewServer(dispatcher, coordinator, version)
		go func() { mcpDone <- tools.Run(ctx) }()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("received signal", "signal", sig.String())
	case err := <-mcpDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("mcp server stopped", "error", err)
		} else {
			slog.Info("mcp client disconnected")
		}
	}

	slog.Info("shutting down server...")
	cancel()

	if srv == nil {
		return
	}

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}
