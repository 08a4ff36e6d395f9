// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides the process-wide structured logger.
//
// Log lines use the EVENT | key=value register, e.g.
//
//	logging.Log.Warnf("CONTEXT_CLEAR_FAILED | model=%s error=%v", model, err)
//
// The default logger writes JSON lines to stderr at info level. Front-ends
// that own the terminal call Init with a file writer instead.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/gookit/slog"
	"github.com/gookit/slog/handler"
)

// Logger is the minimal logging surface used across rigchat.
type Logger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Fields carries structured key/value pairs for a single entry.
type Fields map[string]any

var (
	mu sync.RWMutex

	// Log is the global logger. It is usable without calling Init.
	Log Logger = New("info", os.Stderr)
)

// Init replaces the global logger with one at level writing to w.
// Unknown levels fall back to info.
func Init(level string, w io.Writer) {
	l := New(level, w)
	mu.Lock()
	Log = l
	mu.Unlock()
}

// New builds a gookit/slog logger that writes JSON lines to w.
func New(level string, w io.Writer) Logger {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		level = "info"
	}
	logLevel := slog.LevelByName(level)

	var levels []slog.Level
	for _, lv := range slog.AllLevels {
		if lv <= logLevel {
			levels = append(levels, lv)
		}
	}

	h := handler.NewIOWriterHandler(w, levels)
	formatter := slog.NewJSONFormatter(func(f *slog.JSONFormatter) {
		f.Fields = []string{
			slog.FieldKeyDatetime,
			slog.FieldKeyLevel,
			slog.FieldKeyMessage,
		}
		f.Aliases = slog.StringMap{
			slog.FieldKeyDatetime: "time",
			slog.FieldKeyLevel:    "level",
			slog.FieldKeyMessage:  "msg",
		}
		f.TimeFormat = "2006-01-02T15:04:05.000"
	})
	h.SetFormatter(formatter)

	return slog.NewWithHandlers(h)
}

func current() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Log
}

// Debug logs msg with fields at debug level.
func Debug(msg string, fields Fields) {
	withFields(msg, fields, slog.DebugLevel)
}

// Info logs msg with fields at info level.
func Info(msg string, fields Fields) {
	withFields(msg, fields, slog.InfoLevel)
}

// Warn logs msg with fields at warn level.
func Warn(msg string, fields Fields) {
	withFields(msg, fields, slog.WarnLevel)
}

// Error logs msg with fields at error level.
func Error(msg string, fields Fields) {
	withFields(msg, fields, slog.ErrorLevel)
}

func withFields(msg string, fields Fields, level slog.Level) {
	lg := current()
	if sl, ok := lg.(*slog.Logger); ok && len(fields) > 0 {
		sl.WithFields(slog.M(fields)).Log(level, msg)
		return
	}
	switch level {
	case slog.DebugLevel:
		lg.Debug(msg)
	case slog.WarnLevel:
		lg.Warn(msg)
	case slog.ErrorLevel:
		lg.Error(msg)
	default:
		lg.Info(msg)
	}
}

// Debugf logs a formatted message at debug level.
func Debugf(format string, args ...any) { current().Debugf(format, args...) }

// Infof logs a formatted message at info level.
func Infof(format string, args ...any) { current().Infof(format, args...) }

// Warnf logs a formatted message at warn level.
func Warnf(format string, args ...any) { current().Warnf(format, args...) }

// Errorf logs a formatted message at error level.
func Errorf(format string, args ...any) { current().Errorf(format, args...) }
