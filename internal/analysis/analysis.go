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

// Package analysis orchestrates the full firmware memory-footprint
// pipeline: open the ELF binary, parse linker scripts for declared memory
// regions, extract sections and symbols, map sections to regions, and
// assemble the canonical report.
package analysis

import (
	"github.com/jetsetilly/membrowse/internal/binary"
	"github.com/jetsetilly/membrowse/internal/dwarfinfo"
	"github.com/jetsetilly/membrowse/internal/linker"
	"github.com/jetsetilly/membrowse/internal/model"
	"github.com/jetsetilly/membrowse/internal/region"
	"github.com/jetsetilly/membrowse/internal/report"
)

// Options controls an analysis run.
type Options struct {
	// ELFPath is the firmware image to analyze.
	ELFPath string

	// LinkerScripts lists linker-script paths to parse for memory region
	// declarations, in the order they should be applied. May be empty, in
	// which case the report carries an empty memory layout.
	LinkerScripts []string

	// SkipLineProgram disables DWARF line-table processing for faster
	// analysis of very large binaries, at the cost of address-proximity
	// source attribution.
	SkipLineProgram bool
}

// Analyze runs the full pipeline and returns the assembled report.
func Analyze(opts Options) (model.Report, error) {
	bin, err := binary.Open(opts.ELFPath)
	if err != nil {
		return model.Report{}, err
	}
	defer bin.Close()

	metadata := bin.Metadata()
	sections := bin.Sections()
	headers := bin.ProgramHeaders()

	symbols, err := bin.SymbolsWithOptions(dwarfinfo.Options{SkipLineProgram: opts.SkipLineProgram})
	if err != nil {
		return model.Report{}, err
	}

	var layout map[string]model.MemoryRegion
	if len(opts.LinkerScripts) > 0 {
		layout = linker.Parse(opts.LinkerScripts, bin.Architecture())
		layout = region.Map(sections, layout)
	}

	return report.Build(opts.ELFPath, metadata, symbols, headers, layout), nil
}
