package dwarfinfo

import (
	"debug/dwarf"
	"encoding/binary"
	"testing"

	"github.com/jetsetilly/membrowse/test"
)

func TestInSymbolSetWithToleranceExact(t *testing.T) {
	sorted := []uint64{100, 200, 300}
	test.Equate(t, inSymbolSetWithTolerance(200, sorted), true)
}

func TestInSymbolSetWithToleranceWithinThumbWindow(t *testing.T) {
	sorted := []uint64{100, 200, 300}
	test.Equate(t, inSymbolSetWithTolerance(201, sorted), true)
	test.Equate(t, inSymbolSetWithTolerance(199, sorted), true)
}

func TestInSymbolSetWithToleranceOutOfRange(t *testing.T) {
	sorted := []uint64{100, 200, 300}
	test.Equate(t, inSymbolSetWithTolerance(205, sorted), false)
}

func TestInSymbolSetWithToleranceEmptySet(t *testing.T) {
	test.Equate(t, inSymbolSetWithTolerance(42, nil), false)
}

func TestFindRelevantCUsFullRangeFallback(t *testing.T) {
	cus := []cuRange{
		{low: 0, high: maxAddress, offset: 1},
		{low: 0, high: maxAddress, offset: 2},
	}
	relevant := findRelevantCUs(cus, []uint64{10})
	test.Equate(t, len(relevant), 2)
}

func TestFindRelevantCUsNarrowsToOwningCU(t *testing.T) {
	cus := []cuRange{
		{low: 0x1000, high: 0x1fff, offset: 1},
		{low: 0x2000, high: 0x2fff, offset: 2},
		{low: 0x3000, high: 0x3fff, offset: 3},
	}
	relevant := findRelevantCUs(cus, []uint64{0x2500})
	test.Equate(t, len(relevant), 1)
	test.Equate(t, relevant[0].offset, dwarf.Offset(2))
}

func TestCuSourcePath(t *testing.T) {
	test.Equate(t, cuSourcePath("main.c", "/build/src"), "/build/src/main.c")
	test.Equate(t, cuSourcePath("/abs/main.c", "/build/src"), "/abs/main.c")
	test.Equate(t, cuSourcePath("", "/build/src"), "")
}

func TestLocationAddrDecodesDWOpAddr32(t *testing.T) {
	loc := make([]byte, 5)
	loc[0] = dwOpAddr
	binary.LittleEndian.PutUint32(loc[1:], 0x08004000)

	entry := &dwarf.Entry{Field: []dwarf.Field{{Attr: dwarf.AttrLocation, Val: loc}}}
	addr, ok := locationAddr(entry, binary.LittleEndian)
	test.ExpectSuccess(t, ok)
	test.Equate(t, addr, uint64(0x08004000))
}

func TestLocationAddrDecodesDWOpAddr64(t *testing.T) {
	loc := make([]byte, 9)
	loc[0] = dwOpAddr
	binary.BigEndian.PutUint64(loc[1:], 0x0000000020001000)

	entry := &dwarf.Entry{Field: []dwarf.Field{{Attr: dwarf.AttrLocation, Val: loc}}}
	addr, ok := locationAddr(entry, binary.BigEndian)
	test.ExpectSuccess(t, ok)
	test.Equate(t, addr, uint64(0x20001000))
}

func TestLocationAddrRejectsOtherOpcodes(t *testing.T) {
	loc := []byte{0x91, 0x00} // DW_OP_fbreg, not DW_OP_addr
	entry := &dwarf.Entry{Field: []dwarf.Field{{Attr: dwarf.AttrLocation, Val: loc}}}
	_, ok := locationAddr(entry, binary.LittleEndian)
	test.ExpectFailure(t, ok)
}

func TestLocationAddrRejectsMissingLocation(t *testing.T) {
	entry := &dwarf.Entry{}
	_, ok := locationAddr(entry, binary.LittleEndian)
	test.ExpectFailure(t, ok)
}

func TestProcessDIEUsesLocationAddressWhenLowpcAbsent(t *testing.T) {
	loc := make([]byte, 5)
	loc[0] = dwOpAddr
	binary.LittleEndian.PutUint32(loc[1:], 0x20000100)

	entry := &dwarf.Entry{
		Tag: dwarf.TagVariable,
		Field: []dwarf.Field{
			{Attr: dwarf.AttrName, Val: "counter"},
			{Attr: dwarf.AttrLocation, Val: loc},
		},
	}

	data := &Data{
		SymbolToFile:    map[SymbolKey]string{},
		AddressToFile:   map[uint64]string{},
		AddressToCUFile: map[uint64]string{},
	}
	sortedAddrs := []uint64{0x20000100}

	processDIE(entry, nil, "a.c", data, sortedAddrs, binary.LittleEndian)

	file, ok := data.SymbolToFile[SymbolKey{Name: "counter", Address: 0x20000100}]
	test.ExpectSuccess(t, ok)
	test.Equate(t, file, "a.c")
}

func TestProcessDIETwoStaticsWithDistinctLocationsDoNotCollapse(t *testing.T) {
	locA := make([]byte, 5)
	locA[0] = dwOpAddr
	binary.LittleEndian.PutUint32(locA[1:], 0x20000000)

	locB := make([]byte, 5)
	locB[0] = dwOpAddr
	binary.LittleEndian.PutUint32(locB[1:], 0x20000004)

	data := &Data{
		SymbolToFile:    map[SymbolKey]string{},
		AddressToFile:   map[uint64]string{},
		AddressToCUFile: map[uint64]string{},
	}
	sortedAddrs := []uint64{0x20000000, 0x20000004}

	entryA := &dwarf.Entry{Tag: dwarf.TagVariable, Field: []dwarf.Field{
		{Attr: dwarf.AttrName, Val: "foo"},
		{Attr: dwarf.AttrLocation, Val: locA},
	}}
	entryB := &dwarf.Entry{Tag: dwarf.TagVariable, Field: []dwarf.Field{
		{Attr: dwarf.AttrName, Val: "foo"},
		{Attr: dwarf.AttrLocation, Val: locB},
	}}

	processDIE(entryA, nil, "a.c", data, sortedAddrs, binary.LittleEndian)
	processDIE(entryB, nil, "b.c", data, sortedAddrs, binary.LittleEndian)

	fileA, okA := data.SymbolToFile[SymbolKey{Name: "foo", Address: 0x20000000}]
	fileB, okB := data.SymbolToFile[SymbolKey{Name: "foo", Address: 0x20000004}]
	test.ExpectSuccess(t, okA)
	test.ExpectSuccess(t, okB)
	test.Equate(t, fileA, "a.c")
	test.Equate(t, fileB, "b.c")
}

func TestProcessWithOptionsNilDataIsEmptyRegardlessOfSkipLineProgram(t *testing.T) {
	data, err := ProcessWithOptions(nil, nil, Options{SkipLineProgram: true})
	test.ExpectSuccess(t, err == nil)
	test.Equate(t, len(data.SymbolToFile), 0)
	test.Equate(t, len(data.AddressToFile), 0)
	test.Equate(t, len(data.AddressToCUFile), 0)
}
