package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogging configures the global zerolog logger. With console set, logs
// are written to stderr, plus the file when one is configured explicitly.
// Without it (the TUI owns the terminal) they go to the rotating file only.
// The returned func closes the file.
func SetupLogging(cfg LogConfig, console bool) (func() error, error) {
	lvl := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(lvl)

	var writers []io.Writer
	closer := func() error { return nil }

	if console {
		writers = append(writers, consoleWriter())
	}
	if cfg.Path != "" || !console {
		rotator, err := setupLogFile(cfg.LogPath(), cfg.MaxSizeMB, cfg.MaxBackups)
		if err != nil {
			return closer, err
		}
		writers = append(writers, rotator)
		closer = rotator.Close
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return closer, nil
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func setupLogFile(path string, maxSize, maxBackups int) (*lumberjack.Logger, error) {
	// Create log directory if needed
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if maxSize <= 0 {
		maxSize = 10
	}
	if maxBackups < 0 {
		maxBackups = 0
	}

	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}, nil
}

func consoleWriter() io.Writer {
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	writer.PartsOrder = []string{zerolog.TimestampFieldName, zerolog.LevelFieldName, zerolog.MessageFieldName}
	return writer
}
