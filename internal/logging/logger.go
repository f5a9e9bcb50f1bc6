// Copyright (c) 2026 Keymaster Team
// wgkeys - WireGuard key management client
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	clog "github.com/charmbracelet/log"
)

// L is the package-level logger. Callers should use the helper functions
// below rather than reaching for L directly.
var L = clog.New(os.Stderr)

// Debugf logs a debug-level formatted message.
func Debugf(format string, v ...interface{}) {
	L.Debug(fmt.Sprintf(format, v...))
}

// Infof logs an info-level formatted message.
func Infof(format string, v ...interface{}) {
	L.Info(fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level formatted message.
func Warnf(format string, v ...interface{}) {
	L.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs an error-level formatted message.
func Errorf(format string, v ...interface{}) {
	L.Error(fmt.Sprintf(format, v...))
}

// SetLevel parses level ("debug", "info", "warn", "error") and applies it to L.
func SetLevel(level string) error {
	lvl, err := clog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	L.SetLevel(lvl)
	return nil
}

// SetOutput redirects L. The TUI owns the terminal, so it sends logs to a
// file or io.Discard while running.
func SetOutput(w io.Writer) {
	L.SetOutput(w)
}

// ErrorChain renders err and every wrapped cause as "outer: inner: root",
// dropping causes whose text is already contained in the outer message.
func ErrorChain(err error) string {
	if err == nil {
		return ""
	}
	var parts []string
	seen := ""
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		if seen != "" && strings.Contains(seen, msg) {
			continue
		}
		parts = append(parts, msg)
		seen = msg
	}
	return strings.Join(parts, ": ")
}

// ErrorChainf logs msg at error level with the full chain of err attached.
func ErrorChainf(err error, format string, v ...interface{}) {
	L.Error(fmt.Sprintf(format, v...), "err", ErrorChain(err))
}
