// Package main is the entry point for the fleetkeeper daemon.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/gaeaops/fleetkeeper/cmd/fleetkeeper/app"
	"github.com/gaeaops/fleetkeeper/internal/config"
	"github.com/gaeaops/fleetkeeper/internal/logbuf"
)

// getLogLevel parses the FLEETKEEPER_LOG_LEVEL environment variable and
// returns the corresponding slog.Level. Falls back to LOG_LEVEL. Defaults
// to slog.LevelInfo if neither is set or if the value is invalid.
func getLogLevel() slog.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}

func main() {
	// Structured JSON logging on stderr, teed into the in-memory ring that
	// backs the control API's logs endpoint.
	buf := logbuf.NewBuffer(logbuf.DefaultCapacity)
	base := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: getLogLevel()})
	slog.SetDefault(slog.New(logbuf.NewHandler(base, buf)))

	if err := app.NewRootCmd(buf).Execute(); err != nil {
		os.Exit(1)
	}
}
