package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/clipspeak/internal/config"
)

// logFile is the open log file, if file logging is on.
var logFile *os.File

// setupLog configures the default logger for the terminal. The returned
// closer flushes the log file opened by applyLogConfig.
func setupLog() (func() error, error) {
	log.SetOutput(os.Stderr)
	log.SetReportTimestamp(true)
	log.SetTimeFormat(time.TimeOnly)
	log.SetLevel(log.InfoLevel)

	return func() error {
		if logFile == nil {
			return nil
		}
		return logFile.Close()
	}, nil
}

// applyLogConfig sets the level and, when asked, mirrors output to the log
// file under the user's cache directory.
func applyLogConfig(cfg config.Config, debug bool) error {
	level := log.InfoLevel
	if cfg.LogLevel != "" {
		l, err := log.ParseLevel(strings.ToLower(cfg.LogLevel))
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		level = l
	}
	if debug {
		level = log.DebugLevel
		log.SetReportCaller(true)
	}
	log.SetLevel(level)

	if !cfg.LogFile || logFile != nil {
		return nil
	}

	path, err := config.LogPath()
	if err != nil {
		return fmt.Errorf("unable to find log path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}
	logFile = f
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	log.Debug("Logging to file", "path", path)
	return nil
}
