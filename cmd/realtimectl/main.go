// realtimectl is client tooling for the realtime connection layer: tail a
// server's channels, send one-off messages, or run a local development peer.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ekalbevoldog/Contesttest-sub006/internal/config"
	"github.com/ekalbevoldog/Contesttest-sub006/internal/connection"
	"github.com/ekalbevoldog/Contesttest-sub006/internal/metrics"
	"github.com/ekalbevoldog/Contesttest-sub006/internal/session"
	"github.com/ekalbevoldog/Contesttest-sub006/internal/version"
)

var (
	flagConfig string
	flagDebug  bool
)

// promRegistry is nil in the binary, selecting the default registerer; tests
// inject their own to avoid cross-test collector collisions.
var promRegistry prometheus.Registerer

var rootCmd = &cobra.Command{
	Use:          "realtimectl",
	Short:        "Tooling for the realtime connection layer",
	Version:      version.String(),
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "configs/realtime.example.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable verbose logging")

	rootCmd.AddCommand(tailCmd())
	rootCmd.AddCommand(sendCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadAndValidate(flagConfig)
	if err != nil {
		return nil, nil, err
	}

	level := slog.LevelInfo
	if flagDebug || cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	return cfg, logger, nil
}

// newManager wires a connection manager from file configuration. When
// auto_connect is set, the connection is opened here and commands skip their
// own Connect call.
func newManager(cfg *config.Config, logger *slog.Logger) connection.Manager {
	ident := session.Load(session.Options{
		Persist: cfg.Session.Persist,
		Dir:     cfg.Session.Dir,
		Key:     cfg.Session.Key,
	}, logger)

	mgr := connection.NewManager(connection.Config{
		URL:                  cfg.URL(),
		Token:                cfg.Server.Token,
		AuthAckType:          cfg.Connection.AuthAckType,
		ReconnectInterval:    cfg.Connection.ReconnectInterval,
		MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
		HandshakeTimeout:     cfg.Connection.HandshakeTimeout,
		WriteTimeout:         cfg.Connection.WriteTimeout,
		PingInterval:         cfg.Connection.PingInterval,
		StaleTimeout:         cfg.Connection.StaleTimeout,
		BufferSize:           cfg.Connection.BufferSize,
		Metrics:              metrics.New(promRegistry),
	}, ident, logger)

	if cfg.Connection.AutoConnect {
		mgr.Connect()
	}
	return mgr
}

// serveMetrics exposes the client-side Prometheus metrics endpoint.
func serveMetrics(cfg *config.Config, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
	logger.Info("serving metrics", "addr", addr, "path", cfg.Metrics.Path)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", "error", err)
	}
}
