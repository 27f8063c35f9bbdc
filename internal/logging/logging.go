// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mesa4core/lmlmigrate/internal/config"
)

const filePrefix = "lmlmigrate-"

// ParseLevel maps a config level name to a slog level. Unknown names fall
// back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup returns a logger writing to stdout and to a daily file under
// cfg.Directory. Files older than cfg.RetentionDays are removed first. The
// returned closer releases the file.
func Setup(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	return setup(cfg, os.Stdout, time.Now())
}

// SetupFile is Setup without the stdout copy, for sessions where a
// terminal UI owns the screen.
func SetupFile(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	return setup(cfg, io.Discard, time.Now())
}

func setup(cfg config.LogConfig, stdout io.Writer, now time.Time) (*slog.Logger, io.Closer, error) {
	directory := cfg.Directory
	if directory == "" {
		directory = "~/.lmlmigrate/logs/"
	}
	directory = config.ExpandHome(directory)

	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	if cfg.RetentionDays > 0 {
		if _, err := Prune(directory, cfg.RetentionDays, now); err != nil {
			return nil, nil, err
		}
	}

	logPath := filepath.Join(directory, fileName(now))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := slog.NewTextHandler(io.MultiWriter(stdout, file), &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})
	return slog.New(handler), file, nil
}

func fileName(day time.Time) string {
	return filePrefix + day.Format("2006-01-02") + ".log"
}

// Prune deletes daily log files older than retentionDays and returns how
// many were removed. Files not named like ours are left alone.
func Prune(directory string, retentionDays int, now time.Time) (int, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return 0, fmt.Errorf("reading log directory: %w", err)
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".log"), now.Location())
		if err != nil || !day.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(directory, name)); err != nil {
			return removed, fmt.Errorf("removing %s: %w", name, err)
		}
		removed++
	}
	return removed, nil
}
