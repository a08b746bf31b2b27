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

package errors

// error message patterns, grouped by subsystem. Each is used as the
// "message" argument to Errorf and doubles as the pattern tested by Is/Has.
const (
	// input / file discovery
	InputNotFound = "input not found: %v"

	// binary analysis
	InvalidBinaryFormat = "invalid binary format: %v"
	SectionAnalysisError = "section analysis error: %v"
	SymbolAnalysisError  = "symbol analysis error: %v"
	ELFAnalysisError     = "elf analysis error: %v"

	// linker script parsing
	LinkerScriptSyntaxError   = "linker script syntax error: %v"
	ExpressionEvaluationError = "expression evaluation error: %v"

	// DWARF processing
	DWARFParsingError   = "dwarf parsing error: %v"
	CUProcessingError   = "dwarf cu processing error: %v"
	DIEAttributeError   = "dwarf die attribute error: %v"

	// region mapping, advisory only
	RegionOverlapWarning       = "region overlap: %v"
	MissingRegionTypeWarning   = "missing region type: %v"

	// CLI / external collaborators
	UploadError  = "upload error: %v"
	GitWalkError = "git walk error: %v"
	BuildError   = "build error: %v"
)
