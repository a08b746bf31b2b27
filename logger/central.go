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

package logger

import "io"

// central is the package-level Logger used by the Log/Write/Tail
// convenience functions below, for call-sites that don't want to carry a
// *Logger of their own (e.g. deeply-nested DWARF helpers).
var central = NewLogger(1000)

// Log records tag/detail on the central logger, always allowed.
func Log(tag string, detail interface{}) {
	central.Log(Allow, tag, detail)
}

// Logf is the formatted counterpart of Log.
func Logf(tag string, format string, args ...interface{}) {
	central.Logf(Allow, tag, format, args...)
}

// Write writes the central logger's retained entries.
func Write(w io.Writer) {
	central.Write(w)
}

// Tail writes the last n entries of the central logger.
func Tail(w io.Writer, n int) {
	central.Tail(w, n)
}

// Clear empties the central logger.
func Clear() {
	central.Clear()
}
