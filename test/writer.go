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

package test

import "bytes"

// Writer is a minimal io.Writer with a Compare helper, used by tests that
// assert on accumulated output without pulling in strings.Builder
// everywhere.
type Writer struct {
	buf bytes.Buffer
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

// Compare reports whether the accumulated output equals s.
func (w *Writer) Compare(s string) bool {
	return w.buf.String() == s
}

// Clear empties the writer.
func (w *Writer) Clear() {
	w.buf.Reset()
}
