package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skypro1111/passwdgen-service/internal/config"
	"github.com/skypro1111/passwdgen-service/internal/metrics"
	"github.com/skypro1111/passwdgen-service/internal/ratelimit"
	"github.com/skypro1111/passwdgen-service/internal/server"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "passwdgen-server"
	serviceVersion    = "1.0.0"
)

var cli struct {
	Config  string           `short:"c" help:"Path to configuration file." placeholder:"PATH" type:"path"`
	Version kong.VersionFlag `help:"Show version information."`
}

func main() {
	kong.Parse(&cli,
		kong.Name(serviceName),
		kong.Description("UDP password generator server."),
		kong.UsageOnError(),
		kong.Vars{"version": serviceVersion},
	)

	os.Exit(run())
}

func run() int {
	cfg, configPath, err := config.Resolve(cli.Config, defaultConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, closeLog := initLogger(cfg.Logging)
	defer closeLog()

	if configPath == "" {
		configPath = "(built-in defaults)"
	}
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", configPath),
	)

	logger.Info("Configuration loaded",
		slog.Int("udp_port", cfg.Server.UDPPort),
		slog.String("bind_address", cfg.Server.BindAddress),
		slog.Int("workers", cfg.Server.Workers),
		slog.String("random_source", cfg.Generator.Source),
		slog.Bool("rate_limit", cfg.RateLimit.Enabled),
		slog.Bool("http_enabled", cfg.HTTP.Enabled),
		slog.String("log_level", cfg.Logging.Level),
	)
	if cfg.Generator.Source == config.SourceTime {
		logger.Warn("Using a time-seeded, non-cryptographic random source for password generation")
	}

	appMetrics := metrics.NewMetrics(prometheus.DefaultRegisterer)

	var limiter *ratelimit.PeerLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.NewPeerLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.GetIdleTimeout())
		defer limiter.Stop()
	}

	udpServer := server.NewUDPServer(cfg, logger, appMetrics, limiter)

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer, err = server.NewHTTPServer(cfg, logger, udpServer, appMetrics, prometheus.DefaultGatherer)
		if err != nil {
			logger.Error("Failed to create HTTP server", slog.String("error", err.Error()))
			return 1
		}
	}

	if err := udpServer.Start(); err != nil {
		logger.Error("Failed to start UDP server", slog.String("error", err.Error()))
		return 1
	}

	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			udpServer.Stop()
			return 1
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is waiting for requests",
		slog.String("udp_address", udpServer.LocalAddr().String()),
	)

	exitCode := 0
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-udpServer.Errors():
		logger.Error("Fatal transport error, shutting down", slog.String("error", err.Error()))
		exitCode = 1
	}

	logger.Info("Starting graceful shutdown...")

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := udpServer.Stop(); err != nil {
		logger.Error("Error stopping UDP server", slog.String("error", err.Error()))
	}

	stats := udpServer.GetStatistics()
	logger.Info("Final server statistics",
		slog.Uint64("datagrams_received", stats.DatagramsReceived),
		slog.Uint64("requests_handled", stats.RequestsHandled),
		slog.Uint64("send_errors", stats.SendErrors),
		slog.Uint64("rate_limited", stats.RateLimited),
	)

	logger.Info("Service stopped")
	return exitCode
}

// initLogger creates the structured logger described by the logging configuration.
// The returned function closes the log file, if one was opened.
func initLogger(cfg config.LoggingConfig) (*slog.Logger, func()) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	output := os.Stdout
	closeFn := func() {}
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
	default:
		// Anything else is a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
		} else {
			output = file
			closeFn = func() { file.Close() }
		}
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler), closeFn
}
