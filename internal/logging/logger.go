// Package logging writes Sideline's human-readable daily log file. Structured
// session events go to internal/otel; this log is for people.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// KeepDays is how many daily files Init leaves behind.
const KeepDays = 14

const filePrefix = "sideline-"

var (
	// Logger is the process logger. Nil until Init or SetOutput; the helpers
	// below are no-ops while it is nil.
	Logger *log.Logger

	logFile *os.File
)

// Init opens <dir>/logs/sideline-YYYY-MM-DD.log, removes daily files beyond
// KeepDays and installs Logger at the level named by SIDELINE_LOG_LEVEL
// (debug when unset or unknown).
func Init(dir, version string) error {
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("logging: create log directory: %w", err)
	}

	now := time.Now()
	path := filepath.Join(logDir, filePrefix+now.Format("2006-01-02")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("logging: open log file: %w", err)
	}
	logFile = f

	SetOutput(f)
	if v := os.Getenv("SIDELINE_LOG_LEVEL"); v != "" {
		if lvl, err := log.ParseLevel(v); err == nil {
			Logger.SetLevel(lvl)
		}
	}
	Logger.Info("Sideline started", "version", version, "pid", os.Getpid())

	if removed, err := Prune(logDir, KeepDays); err != nil {
		Logger.Warn("Failed to prune old logs", "error", err)
	} else if removed > 0 {
		Logger.Debug("Pruned old logs", "count", removed)
	}
	return nil
}

// SetOutput installs a debug-level Logger writing to w.
func SetOutput(w io.Writer) {
	Logger = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           log.DebugLevel,
	})
}

// Prune deletes the oldest sideline-*.log files in dir so at most keep remain.
// Names sort by date, so lexical order is age order.
func Prune(dir string, keep int) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*.log"))
	if err != nil {
		return 0, err
	}
	if keep < 1 {
		keep = 1
	}
	if len(matches) <= keep {
		return 0, nil
	}
	sort.Strings(matches)
	removed := 0
	for _, p := range matches[:len(matches)-keep] {
		if !strings.HasPrefix(filepath.Base(p), filePrefix) {
			continue
		}
		if err := os.Remove(p); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Close writes the shutdown line and closes the file opened by Init.
func Close() {
	if Logger != nil {
		Logger.Info("Sideline shutting down")
	}
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}

// WithPrefix returns a child logger tagged with prefix, or nil before Init.
func WithPrefix(prefix string) *log.Logger {
	if Logger != nil {
		return Logger.WithPrefix(prefix)
	}
	return nil
}
