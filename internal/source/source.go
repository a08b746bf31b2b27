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

// Package source attributes ELF symbols to the source file that declared
// them, using the address and declaration-file maps built by the DWARF
// processor.
package source

import (
	"path"
	"sort"

	"github.com/jetsetilly/membrowse/internal/dwarfinfo"
)

const proximityThresholdBytes = 100

// Resolver answers source-file queries for symbols against one binary's
// DWARF data. It caches a sorted address list lazily, since not every
// analysis run needs proximity search.
type Resolver struct {
	data    *dwarfinfo.Data
	sorted  []uint64
	indexed bool
}

// New wraps dwarf data for repeated symbol lookups.
func New(data *dwarfinfo.Data) *Resolver {
	return &Resolver{data: data}
}

// Resolve returns the basename of the source file that defines the named
// symbol, or "" if no DWARF information places it anywhere. symbolType is
// the ELF symbol kind string ("FUNC", "OBJECT", ...); address is the
// symbol's value, 0 if unknown or irrelevant.
func (r *Resolver) Resolve(name, symbolType string, address uint64) string {
	if r.data == nil || len(r.data.SymbolToFile) == 0 && len(r.data.AddressToFile) == 0 && len(r.data.AddressToCUFile) == 0 {
		return ""
	}

	key := dwarfinfo.SymbolKey{Name: name, Address: address}
	if sourceFile, ok := r.data.SymbolToFile[key]; ok {
		base := path.Base(sourceFile)

		if symbolType == "FUNC" && hasSuffix(base, ".c") {
			return base
		}

		if hasSuffix(base, ".h") && address > 0 {
			if cuFile, ok := r.data.AddressToCUFile[address]; ok && hasSuffix(cuFile, ".c") {
				return path.Base(cuFile)
			}
		}

		return base
	}

	if address > 0 && symbolType == "FUNC" {
		return r.resolveByAddress(address)
	}

	return r.resolveFallback(name, address)
}

func (r *Resolver) resolveByAddress(address uint64) string {
	if sourceFile, ok := r.data.AddressToFile[address]; ok {
		base := path.Base(sourceFile)
		if hasSuffix(base, ".h") {
			if cuFile, ok := r.data.AddressToCUFile[address]; ok && hasSuffix(cuFile, ".c") {
				return path.Base(cuFile)
			}
		}
		return base
	}

	if nearby, ok := r.findNearbyAddress(address); ok {
		sourceFile := r.data.AddressToFile[nearby]
		base := path.Base(sourceFile)
		if hasSuffix(base, ".h") {
			if cuFile, ok := r.data.AddressToCUFile[nearby]; ok && hasSuffix(cuFile, ".c") {
				return path.Base(cuFile)
			}
		}
		return base
	}

	return ""
}

func (r *Resolver) resolveFallback(name string, address uint64) string {
	if address > 0 {
		if sourceFile, ok := r.data.AddressToCUFile[address]; ok {
			return path.Base(sourceFile)
		}
	}
	if sourceFile, ok := r.data.SymbolToFile[dwarfinfo.SymbolKey{Name: name, Address: 0}]; ok {
		return path.Base(sourceFile)
	}
	return ""
}

// findNearbyAddress binary-searches the sorted address_to_file keys for the
// closest one within proximityThresholdBytes, breaking ties toward the
// smaller distance (matching source_resolver.py's candidate sort).
func (r *Resolver) findNearbyAddress(target uint64) (uint64, bool) {
	if len(r.data.AddressToFile) == 0 {
		return 0, false
	}
	r.ensureIndexed()

	idx := sort.Search(len(r.sorted), func(i int) bool { return r.sorted[i] >= target })

	var bestAddr uint64
	bestDist := uint64(0)
	found := false

	consider := func(addr uint64) {
		dist := distance(addr, target)
		if dist > proximityThresholdBytes {
			return
		}
		if !found || dist < bestDist {
			bestAddr = addr
			bestDist = dist
			found = true
		}
	}

	if idx < len(r.sorted) {
		consider(r.sorted[idx])
	}
	if idx > 0 {
		consider(r.sorted[idx-1])
	}

	return bestAddr, found
}

func (r *Resolver) ensureIndexed() {
	if r.indexed {
		return
	}
	r.sorted = make([]uint64, 0, len(r.data.AddressToFile))
	for addr := range r.data.AddressToFile {
		r.sorted = append(r.sorted, addr)
	}
	sort.Slice(r.sorted, func(i, j int) bool { return r.sorted[i] < r.sorted[j] })
	r.indexed = true
}

func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
