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

// Package dwarfinfo walks DWARF debug information to build the address and
// symbol to source-file maps consumed by the source resolver. It only
// processes the compilation units that plausibly contain the symbol
// addresses it's asked to resolve.
package dwarfinfo

import (
	"debug/dwarf"
	"encoding/binary"
	"sort"
	"strings"

	membrowseerrors "github.com/jetsetilly/membrowse/errors"
	"github.com/jetsetilly/membrowse/logger"
)

// dwOpAddr is the DW_OP_addr opcode: a single byte, followed by one
// target-address-sized operand, and nothing else - the only location
// expression form this package decodes.
const dwOpAddr = 0x03

const (
	maxAddress         = 0xFFFFFFFF
	thumbModeTolerance = 2
	fullRangeThreshold = 0.8
)

// SymbolKey identifies a DIE-derived symbol mapping: a name, optionally
// qualified by address (address 0 is the "any address" fallback entry).
type SymbolKey struct {
	Name    string
	Address uint64
}

// Data holds the maps built from one binary's DWARF information.
type Data struct {
	SymbolToFile    map[SymbolKey]string
	AddressToFile   map[uint64]string
	AddressToCUFile map[uint64]string
}

type cuRange struct {
	low, high uint64
	offset    dwarf.Offset
}

// Options tunes how much of the DWARF data Process extracts.
type Options struct {
	// SkipLineProgram omits address_to_file attribution from the DWARF line
	// table, trading proximity-search accuracy for faster analysis of very
	// large binaries.
	SkipLineProgram bool
}

// Process walks d, restricting DIE and line-program processing to the
// compilation units relevant to symbolAddresses. It returns an empty, valid
// Data when d is nil (no debug info present) rather than an error, since
// the absence of DWARF data is routine for stripped or release binaries.
func Process(d *dwarf.Data, symbolAddresses map[uint64]bool) (*Data, error) {
	return ProcessWithOptions(d, symbolAddresses, Options{})
}

// ProcessWithOptions is Process with explicit Options.
func ProcessWithOptions(d *dwarf.Data, symbolAddresses map[uint64]bool, opts Options) (*Data, error) {
	data := &Data{
		SymbolToFile:    map[SymbolKey]string{},
		AddressToFile:   map[uint64]string{},
		AddressToCUFile: map[uint64]string{},
	}
	if d == nil {
		return data, nil
	}

	sortedAddrs := make([]uint64, 0, len(symbolAddresses))
	for a := range symbolAddresses {
		sortedAddrs = append(sortedAddrs, a)
	}
	sort.Slice(sortedAddrs, func(i, j int) bool { return sortedAddrs[i] < sortedAddrs[j] })

	cus, err := buildCUIndex(d)
	if err != nil {
		return nil, membrowseerrors.Errorf(membrowseerrors.DWARFParsingError, err.Error())
	}

	// a CU that fails to process is logged and skipped; the maps keep what
	// the other CUs contributed.
	for _, cu := range findRelevantCUs(cus, sortedAddrs) {
		if err := processCU(d, cu, data, sortedAddrs, opts); err != nil {
			logger.Logf("dwarfinfo", "%v", membrowseerrors.Errorf(membrowseerrors.CUProcessingError, err.Error()))
		}
	}

	return data, nil
}

// buildCUIndex records each compilation unit's address range without
// descending into its children, so relevance can be decided before any
// expensive DIE or line-program work happens.
func buildCUIndex(d *dwarf.Data) ([]cuRange, error) {
	var cus []cuRange
	r := d.Reader()
	for {
		entry, err := r.Next()
		if err != nil {
			return nil, err
		}
		if entry == nil {
			break
		}
		if entry.Tag == dwarf.TagCompileUnit {
			low, high := cuAddressRange(entry)
			cus = append(cus, cuRange{low: low, high: high, offset: entry.Offset})
		}
		if entry.Children {
			r.SkipChildren()
		}
	}
	sort.Slice(cus, func(i, j int) bool { return cus[i].low < cus[j].low })
	return cus, nil
}

// cuAddressRange returns (0, maxAddress) - a wildcard matching every
// address - when the CU carries no explicit low/high_pc, matching
// dwarf_processor.py's behaviour of never excluding such a CU.
func cuAddressRange(entry *dwarf.Entry) (uint64, uint64) {
	low, lowOK := entry.Val(dwarf.AttrLowpc).(uint64)
	if !lowOK {
		return 0, maxAddress
	}
	switch v := entry.Val(dwarf.AttrHighpc).(type) {
	case uint64:
		return low, v
	case int64:
		// DWARF4+ form: high_pc is an offset from low_pc.
		return low, low + uint64(v)
	default:
		return 0, maxAddress
	}
}

// findRelevantCUs falls back to processing every CU once more than 80% of
// them carry the wildcard range - narrowing wouldn't help - and otherwise
// binary-searches for the CU owning each target address.
func findRelevantCUs(cus []cuRange, sortedAddrs []uint64) []cuRange {
	if len(cus) == 0 {
		return nil
	}

	fullRange := 0
	for _, c := range cus {
		if c.low == 0 && c.high == maxAddress {
			fullRange++
		}
	}
	if float64(fullRange) > fullRangeThreshold*float64(len(cus)) {
		return cus
	}

	starts := make([]uint64, len(cus))
	for i, c := range cus {
		starts[i] = c.low
	}

	seen := map[dwarf.Offset]bool{}
	var relevant []cuRange
	for _, addr := range sortedAddrs {
		pos := sort.Search(len(starts), func(i int) bool { return starts[i] > addr }) - 1
		if pos < 0 {
			continue
		}
		c := cus[pos]
		if addr >= c.low && addr <= c.high && !seen[c.offset] {
			seen[c.offset] = true
			relevant = append(relevant, c)
		}
	}
	return relevant
}

func processCU(d *dwarf.Data, cu cuRange, data *Data, sortedAddrs []uint64, opts Options) error {
	r := d.Reader()
	r.Seek(cu.offset)
	top, err := r.Next()
	if err != nil || top == nil {
		return err
	}

	cuName, _ := top.Val(dwarf.AttrName).(string)
	compDir, _ := top.Val(dwarf.AttrCompDir).(string)
	cuSourceFile := cuSourcePath(cuName, compDir)

	var files []*dwarf.LineFile
	if opts.SkipLineProgram {
		files = lineFileTableOnly(d, top)
	} else {
		files = processLineProgram(d, top, data)
	}

	return walkChildren(r, files, cuSourceFile, data, sortedAddrs)
}

// lineFileTableOnly returns the line program's file-name table without
// draining its address rows into data.AddressToFile - decl_file lookups
// still work, but address-proximity source attribution does not.
func lineFileTableOnly(d *dwarf.Data, cu *dwarf.Entry) []*dwarf.LineFile {
	lr, err := d.LineReader(cu)
	if err != nil || lr == nil {
		return nil
	}
	return lr.Files()
}

func cuSourcePath(cuName, compDir string) string {
	if cuName == "" {
		return ""
	}
	if compDir != "" && !strings.HasPrefix(cuName, "/") {
		return strings.TrimRight(compDir, "/") + "/" + cuName
	}
	return cuName
}

// processLineProgram drains cu's line table into data.AddressToFile and
// returns its file-name table for the caller's decl_file lookups.
func processLineProgram(d *dwarf.Data, cu *dwarf.Entry, data *Data) []*dwarf.LineFile {
	lr, err := d.LineReader(cu)
	if err != nil || lr == nil {
		return nil
	}

	var entry dwarf.LineEntry
	for lr.Next(&entry) == nil {
		if entry.Address == 0 || entry.File == nil || entry.File.Name == "" {
			continue
		}
		data.AddressToFile[entry.Address] = entry.File.Name
	}

	return lr.Files()
}

// walkChildren iterates cu's DIE tree in document order (the Go reader
// already performs the descent dwarf_processor.py does explicitly with a
// stack), filtering to the four tags that carry source-attribution
// information.
func walkChildren(r *dwarf.Reader, files []*dwarf.LineFile, cuSourceFile string, data *Data, sortedAddrs []uint64) error {
	order := r.ByteOrder()
	depth := 0
	for {
		entry, err := r.Next()
		if err != nil {
			return err
		}
		if entry == nil {
			depth--
			if depth < 0 {
				return nil
			}
			continue
		}
		if entry.Children {
			depth++
		}

		switch entry.Tag {
		case dwarf.TagSubprogram, dwarf.TagVariable, dwarf.TagFormalParameter, dwarf.TagInlinedSubroutine:
			processDIE(entry, files, cuSourceFile, data, sortedAddrs, order)
		}
	}
}

func processDIE(entry *dwarf.Entry, files []*dwarf.LineFile, cuSourceFile string, data *Data, sortedAddrs []uint64, order binary.ByteOrder) {
	name, _ := entry.Val(dwarf.AttrName).(string)
	if name == "" {
		return
	}

	address, hasAddress := entry.Val(dwarf.AttrLowpc).(uint64)
	if !hasAddress {
		address, hasAddress = locationAddr(entry, order)
	}
	if hasAddress && !inSymbolSetWithTolerance(address, sortedAddrs) {
		return
	}

	var declFile string
	if idx, ok := entry.Val(dwarf.AttrDeclFile).(int64); ok && idx >= 0 && int(idx) < len(files) && files[idx] != nil {
		declFile = files[idx].Name
	}

	isDeclaration := entry.Val(dwarf.AttrDeclaration) != nil

	var bestSourceFile string
	switch {
	case isDeclaration && strings.HasSuffix(declFile, ".h"):
		bestSourceFile = cuSourceFile
	case declFile != "":
		bestSourceFile = declFile
	default:
		bestSourceFile = cuSourceFile
	}
	if bestSourceFile == "" {
		return
	}

	if hasAddress {
		data.SymbolToFile[SymbolKey{Name: name, Address: address}] = bestSourceFile
		data.AddressToCUFile[address] = bestSourceFile
		return
	}

	key := SymbolKey{Name: name, Address: 0}
	if _, exists := data.SymbolToFile[key]; !exists {
		data.SymbolToFile[key] = bestSourceFile
	}
}

// locationAddr decodes a static DW_AT_location exprloc of the form
// DW_OP_addr <address>, the form producers emit for file-scope and
// static variables. Any other location expression (register, stack
// offset, DW_OP_addrx, ...) is left unresolved - there's no symbol
// address to recover from those without a running process.
func locationAddr(entry *dwarf.Entry, order binary.ByteOrder) (uint64, bool) {
	loc, ok := entry.Val(dwarf.AttrLocation).([]byte)
	if !ok || len(loc) == 0 || loc[0] != dwOpAddr {
		return 0, false
	}
	operand := loc[1:]
	switch len(operand) {
	case 4:
		return uint64(order.Uint32(operand)), true
	case 8:
		return order.Uint64(operand), true
	default:
		return 0, false
	}
}

// inSymbolSetWithTolerance reports whether addr is an exact symbol address
// or within thumbModeTolerance bytes of one - ARM Thumb DIEs sometimes
// carry an odd (Thumb-bit-set) or otherwise off-by-a-couple-bytes address
// relative to the symbol table entry.
func inSymbolSetWithTolerance(addr uint64, sorted []uint64) bool {
	if len(sorted) == 0 {
		return false
	}

	idx := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= addr })
	if idx < len(sorted) && sorted[idx] == addr {
		return true
	}

	lo := addr - thumbModeTolerance
	if addr < thumbModeTolerance {
		lo = 0
	}
	hi := addr + thumbModeTolerance

	start := sort.Search(len(sorted), func(i int) bool { return sorted[i] >= lo })
	for i := start; i < len(sorted) && sorted[i] <= hi; i++ {
		diff := int64(addr) - int64(sorted[i])
		if diff < 0 {
			diff = -diff
		}
		if uint64(diff) <= thumbModeTolerance {
			return true
		}
	}
	return false
}
