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

// Package report assembles the canonical JSON document from the output of
// every earlier analysis stage. Field names and ordering follow
// report_generator.py exactly, so existing consumers of the JSON need no
// changes.
package report

import (
	"encoding/json"

	"github.com/jetsetilly/membrowse/internal/model"
)

// Build assembles the final report from the binary's metadata, symbols and
// program headers, and a memory layout already mapped by the Region Mapper.
func Build(path string, metadata model.ELFMetadata, symbols []model.Symbol, headers []model.ProgramHeader, layout map[string]model.MemoryRegion) model.Report {
	if symbols == nil {
		symbols = []model.Symbol{}
	}
	if headers == nil {
		headers = []model.ProgramHeader{}
	}
	if layout == nil {
		layout = map[string]model.MemoryRegion{}
	}

	return model.Report{
		FilePath:       path,
		Architecture:   metadata.Architecture,
		EntryPoint:     metadata.EntryPoint,
		FileType:       metadata.FileType,
		Machine:        metadata.Machine,
		Symbols:        symbols,
		ProgramHeaders: headers,
		MemoryLayout:   layout,
	}
}

// MarshalJSON renders the report as canonical indented JSON, matching the
// format byte for byte across runs on the same input.
func MarshalJSON(r model.Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
