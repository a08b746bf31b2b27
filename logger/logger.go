// This file is part of Gopher2600.
//
// Gopher2600 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopher2600 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopher2600.  If not, see <https://www.gnu.org/licenses/>.

// Package logger implements a small ring-buffer log used throughout
// membrowse in place of writing directly to stderr. Every CU failure the
// DWARF processor recovers from is recorded here rather than aborting the
// analysis. Entries carry a tag but no severity level.
package logger

import (
	"fmt"
	"io"
)

// Permission lets a caller decide, per call-site, whether a log entry
// should actually be recorded. Most call-sites use Allow.
type Permission interface {
	AllowLogging() bool
}

type allowPermission struct{}

func (allowPermission) AllowLogging() bool { return true }

// Allow is the Permission that always allows logging.
var Allow Permission = allowPermission{}

// Logger is a fixed-capacity ring buffer of rendered log lines.
type Logger struct {
	capacity int
	entries  []string
}

// NewLogger creates a Logger that retains at most capacity entries,
// discarding the oldest once full.
func NewLogger(capacity int) *Logger {
	return &Logger{
		capacity: capacity,
		entries:  make([]string, 0, capacity),
	}
}

// Log records tag/detail if permission allows it. detail is rendered via
// Error() for error values, String() for fmt.Stringer values, and %v
// otherwise.
func (l *Logger) Log(permission Permission, tag string, detail interface{}) {
	if permission != nil && !permission.AllowLogging() {
		return
	}
	l.append(tag, render(detail))
}

// Logf is like Log but renders detail with a format string, in the manner
// of fmt.Sprintf.
func (l *Logger) Logf(permission Permission, tag string, format string, args ...interface{}) {
	if permission != nil && !permission.AllowLogging() {
		return
	}
	l.append(tag, fmt.Sprintf(format, args...))
}

func render(detail interface{}) string {
	switch v := detail.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", detail)
	}
}

func (l *Logger) append(tag, detail string) {
	line := fmt.Sprintf("%s: %s", tag, detail)
	if l.capacity > 0 && len(l.entries) >= l.capacity {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, line)
}

// Write writes every retained entry, oldest first, one per line.
func (l *Logger) Write(w io.Writer) {
	for _, e := range l.entries {
		fmt.Fprintf(w, "%s\n", e)
	}
}

// Tail writes at most the last n retained entries, oldest first.
func (l *Logger) Tail(w io.Writer, n int) {
	if n <= 0 {
		return
	}
	start := len(l.entries) - n
	if start < 0 {
		start = 0
	}
	for _, e := range l.entries[start:] {
		fmt.Fprintf(w, "%s\n", e)
	}
}

// Clear empties the logger.
func (l *Logger) Clear() {
	l.entries = l.entries[:0]
}
