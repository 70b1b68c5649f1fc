// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging wires the process-wide slog.Logger used across
// throttlefs: a JSON handler, and a filtering layer
// that hides third-party noise unless the level is DEBUG.
package logging

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

var defaultLogger *slog.Logger

const modulePrefix = "github.com/kadirpekel/throttlefs"

// ParseLevel converts a string log level to slog.Level. Unknown values
// fall back to Info rather than erroring, since a bad --log-level flag
// shouldn't prevent the process from starting.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// filteringHandler suppresses log records emitted from outside this
// module's packages, unless the configured level is DEBUG. Admission
// decisions are noisy at volume; this keeps default output to throttlefs's
// own structured events and leaves third-party library chatter (plugin
// RPC transport, database drivers) out unless explicitly requested.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func newFilteringHandler(h slog.Handler, minLevel slog.Level) *filteringHandler {
	return &filteringHandler{handler: h, minLevel: minLevel}
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.minLevel {
		return false
	}
	return h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || isOwnPackage(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func isOwnPackage(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	file, _ := fn.FileLine(pc)
	return strings.Contains(fn.Name(), modulePrefix) || strings.Contains(file, "throttlefs/")
}

// Init installs the process-wide logger at the given level, writing JSON
// records to output. JSON (rather than hector's colored text handler) is
// the right default here: throttlefs is meant to run headless behind the
// admin API, where structured records matter more than terminal color.
func Init(level slog.Level, output *os.File) *slog.Logger {
	base := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	defaultLogger = slog.New(newFilteringHandler(base, level))
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

// Get returns the process logger, initializing a default (Info, stderr)
// one on first use if Init was never called.
func Get() *slog.Logger {
	if defaultLogger == nil {
		return Init(slog.LevelInfo, os.Stderr)
	}
	return defaultLogger
}
