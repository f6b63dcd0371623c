// Copyright 2025 walteh LLC
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

// Package output is the diagnostic channel of syncrc: a rotated log file
// holding every trace and structured log line, plus the short status
// messages shown on the terminal.
package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// 🎨 Display configuration
const (
	maxPending     = 64 * 1024 // bytes of unseen diagnostics kept for FocusDiagnostics
	maxLogFileSize = 10        // megabytes before the log file rotates
	maxLogBackups  = 3
)

// Options configures a Channel
type Options struct {
	// Console receives status messages and surfaced diagnostics. Defaults to stderr.
	Console io.Writer
	// LogFile is the diagnostic log path. Empty keeps diagnostics in memory only.
	LogFile string
	// Debug mirrors every diagnostic line to Console as it is written
	Debug bool
	// Level of the structured logger returned by Logger
	Level zerolog.Level
}

// 📺 Channel collects diagnostic traces and renders status messages.
//
// Diagnostics are written to the log file. Lines not yet shown on the
// console are buffered until FocusDiagnostics surfaces them.
type Channel struct {
	mu sync.Mutex

	console io.Writer
	file    *lumberjack.Logger
	logPath string
	debug   bool

	pending bytes.Buffer
	focused bool

	logger zerolog.Logger
}

// 🏭 New creates a channel
func New(opts Options) *Channel {
	c := &Channel{
		console: opts.Console,
		logPath: opts.LogFile,
		debug:   opts.Debug,
	}
	if c.console == nil {
		c.console = os.Stderr
	}
	if opts.LogFile != "" {
		c.file = &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    maxLogFileSize,
			MaxBackups: maxLogBackups,
		}
	}

	c.logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        diagnosticWriter{c},
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger().Level(opts.Level)

	return c
}

// Logger returns a structured logger writing to the diagnostic channel
func (c *Channel) Logger() zerolog.Logger {
	return c.logger
}

// LogPath is where diagnostics are persisted, empty when they are not
func (c *Channel) LogPath() string {
	return c.logPath
}

// diagnosticWriter lets zerolog share the channel sink
type diagnosticWriter struct {
	c *Channel
}

func (w diagnosticWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	w.c.writeLocked(p)
	return len(p), nil
}

// 📝 Debug appends a trace line to the diagnostics
func (c *Channel) Debug(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeLocked([]byte(text + "\n"))
}

func (c *Channel) writeLocked(p []byte) {
	if c.file != nil {
		// best effort
		_, _ = c.file.Write(p)
	}

	if c.debug {
		_, _ = c.console.Write(p)
		return
	}

	c.pending.Write(p)
	if over := c.pending.Len() - maxPending; over > 0 {
		c.pending.Next(over)
	}
}

// 📣 Status shows a short message. An empty message clears the previous
// status and prints nothing. The message is styled as a warning when
// diagnostics were focused since the last status.
func (c *Channel) Status(text string, d time.Duration) {
	c.logger.Trace().Str("status", text).Dur("duration", d).Msg("status")

	c.mu.Lock()
	defer c.mu.Unlock()

	focused := c.focused
	c.focused = false

	if text == "" {
		return
	}

	printer := pterm.Info.WithPrefix(pterm.Prefix{Text: "📡"})
	if focused {
		printer = pterm.Warning.WithPrefix(pterm.Prefix{Text: "⚠️"})
	}
	fmt.Fprint(c.console, printer.Sprintln(text))
}

// 🔍 FocusDiagnostics surfaces the diagnostics the user has not seen yet
func (c *Channel) FocusDiagnostics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.focused = true

	if !c.debug && c.pending.Len() > 0 {
		for _, line := range strings.SplitAfter(c.pending.String(), "\n") {
			fmt.Fprint(c.console, colorize(line))
		}
		c.pending.Reset()
	}

	if c.logPath != "" {
		fmt.Fprintf(c.console, "%s %s\n", color.New(color.Faint).Sprint("diagnostics:"), c.logPath)
	}
}

// colorize highlights the lines of a failure block
func colorize(line string) string {
	switch {
	case strings.HasPrefix(line, "error:"):
		return color.New(color.FgRed).Sprint(line)
	case strings.HasPrefix(line, "target:"):
		return color.New(color.Bold).Sprint(line)
	case strings.HasPrefix(line, "------"):
		return color.New(color.Faint).Sprint(line)
	default:
		return line
	}
}

// Close flushes and closes the log file
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return nil
	}
	return c.file.Close()
}
