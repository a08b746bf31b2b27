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

// Package demangle recovers readable names from compiler-mangled symbols.
// It wraps github.com/ianlancetaylor/demangle, which already dispatches
// between Itanium C++ and both legacy and v0 Rust mangling schemes.
package demangle

import "github.com/ianlancetaylor/demangle"

// Name demangles a single symbol. Symbols the underlying library doesn't
// recognise - plain C identifiers, compiler-internal "$"-prefixed labels,
// already-demangled or malformed names - are returned unchanged.
func Name(mangled string) string {
	if mangled == "" {
		return mangled
	}
	result, err := demangle.ToString(mangled)
	if err != nil {
		return mangled
	}
	return result
}
