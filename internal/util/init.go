// Package util provides initialization utilities for logger and configuration.
package util

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
)

// InitLogger initializes and returns a zerolog logger. It writes pretty
// console output when stdout is a terminal and JSON otherwise.
func InitLogger() *zerolog.Logger {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var logger zerolog.Logger

	if isTerminal() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().
			Timestamp().
			Caller().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Str("service", "helium-arango-etl").
			Logger()
	}

	return &logger
}

// InitConfig initializes and returns a koanf configuration instance.
//
// Configuration loads in two layers: an optional local TOML override file
// (skipped silently if absent, since the daemon must run from environment
// variables alone in a container) followed by an environment variable
// overlay that always wins. Env keys are lower-cased with every "_" turned
// into ".", so ETL_MIN_BLOCK_DIFF_FOR_UPDATE becomes
// etl.min.block.diff.for.update, matching the keys pkg/config reads.
func InitConfig(logger *zerolog.Logger, configPath string) *koanf.Koanf {
	ko := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := ko.Load(file.Provider(configPath), toml.Parser()); err != nil {
				logger.Warn().
					Err(err).
					Str("path", configPath).
					Msg("failed to load optional config file, continuing with environment only")
			}
		}
	}

	if err := ko.Load(env.Provider("", ".", func(s string) string {
		return strings.Replace(strings.ToLower(s), "_", ".", -1)
	}), nil); err != nil {
		logger.Fatal().
			Err(err).
			Msg("failed to load environment configuration")
	}

	return ko
}

// UpdateLogLevel updates the global log level based on configuration.
func UpdateLogLevel(ko *koanf.Koanf, logger *zerolog.Logger) {
	levelStr := ko.String("etl.log.level")
	if levelStr == "" {
		levelStr = "info"
	}

	var level zerolog.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn", "warning":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
		logger.Warn().
			Str("configured_level", levelStr).
			Str("using_level", "info").
			Msg("unknown log level, defaulting to info")
	}

	zerolog.SetGlobalLevel(level)
	logger.Info().
		Str("level", level.String()).
		Msg("log level set")
}

// isTerminal checks if stdout is a terminal (for pretty console output).
func isTerminal() bool {
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
