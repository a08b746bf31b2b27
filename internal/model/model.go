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

// Package model holds the data types shared across every stage of the
// analysis pipeline: the Linker-Script Parser, the binary analyzer, the
// Region Mapper and the Report Assembler all read and write these types
// rather than their own private shapes.
package model

// RegionType classifies a declared MemoryRegion.
type RegionType string

const (
	RegionFlash   RegionType = "FLASH"
	RegionROM     RegionType = "ROM"
	RegionRAM     RegionType = "RAM"
	RegionCCM     RegionType = "CCM"
	RegionEEPROM  RegionType = "EEPROM"
	RegionBackup  RegionType = "BACKUP"
	RegionUnknown RegionType = "UNKNOWN"
)

// SectionCategory classifies a MemorySection by name.
type SectionCategory string

const (
	CategoryText   SectionCategory = "text"
	CategoryData   SectionCategory = "data"
	CategoryBSS    SectionCategory = "bss"
	CategoryRodata SectionCategory = "rodata"
	CategoryDebug  SectionCategory = "debug"
	CategoryOther  SectionCategory = "other"
)

// SymbolKind is the ELF symbol type (STT_*), reduced to the subset the
// report distinguishes.
type SymbolKind string

const (
	KindNoType  SymbolKind = "NOTYPE"
	KindObject  SymbolKind = "OBJECT"
	KindFunc    SymbolKind = "FUNC"
	KindSection SymbolKind = "SECTION"
	KindFile    SymbolKind = "FILE"
	KindCommon  SymbolKind = "COMMON"
	KindTLS     SymbolKind = "TLS"
)

// SymbolBinding is the ELF symbol binding (STB_*).
type SymbolBinding string

const (
	BindLocal  SymbolBinding = "LOCAL"
	BindGlobal SymbolBinding = "GLOBAL"
	BindWeak   SymbolBinding = "WEAK"
)

// MemorySection is an allocated ELF section, ready to be bound to a region.
type MemorySection struct {
	Name     string          `json:"name"`
	Address  uint64          `json:"address"`
	Size     uint64          `json:"size"`
	Category SectionCategory `json:"type"`
}

// EndAddress is the last byte address occupied by the section, or Address
// when Size is zero.
func (s MemorySection) EndAddress() uint64 {
	if s.Size == 0 {
		return s.Address
	}
	return s.Address + s.Size - 1
}

// MemoryRegion is a declared range on the target, as extracted from linker
// scripts, enriched after Region Mapping with the sections bound to it.
type MemoryRegion struct {
	Name               string          `json:"-"`
	Type               RegionType      `json:"type"`
	Attributes         string          `json:"attributes,omitempty"`
	Address            uint64          `json:"address"`
	LimitSize          uint64          `json:"limit_size"`
	UsedSize           int64           `json:"used_size"`
	FreeSize           int64           `json:"free_size"`
	UtilizationPercent float64         `json:"utilization_percent"`
	Sections           []MemorySection `json:"sections"`
}

// EndAddress is the last addressable byte of the region.
func (r MemoryRegion) EndAddress() uint64 {
	if r.LimitSize == 0 {
		return r.Address
	}
	return r.Address + r.LimitSize - 1
}

// Symbol is a filtered, demangled entry from an ELF symbol table.
type Symbol struct {
	Name        string        `json:"name"`
	Address     uint64        `json:"address"`
	Size        uint64        `json:"size"`
	Kind        SymbolKind    `json:"kind"`
	Binding     SymbolBinding `json:"binding"`
	SectionName string        `json:"section_name"`
	SourceFile  string        `json:"source_file"`
	Visibility  string        `json:"visibility"`
}

// ELFMetadata describes the binary as a whole.
type ELFMetadata struct {
	Architecture string `json:"architecture"`
	FileType     string `json:"file_type"`
	Machine      string `json:"machine"`
	EntryPoint   uint64 `json:"entry_point"`
	BitWidth     int    `json:"-"`
	Endianness   string `json:"-"`
}

// ProgramHeader is one ELF program header (segment).
type ProgramHeader struct {
	Type     string `json:"type"`
	Offset   uint64 `json:"offset"`
	VirtAddr uint64 `json:"virt_addr"`
	PhysAddr uint64 `json:"phys_addr"`
	FileSize uint64 `json:"file_size"`
	MemSize  uint64 `json:"mem_size"`
	Flags    string `json:"flags"`
	Align    uint64 `json:"align"`
}

// Report is the canonical document produced by the Report Assembler.
type Report struct {
	FilePath       string                  `json:"file_path"`
	Architecture   string                  `json:"architecture"`
	EntryPoint     uint64                  `json:"entry_point"`
	FileType       string                  `json:"file_type"`
	Machine        string                  `json:"machine"`
	Symbols        []Symbol                `json:"symbols"`
	ProgramHeaders []ProgramHeader         `json:"program_headers"`
	MemoryLayout   map[string]MemoryRegion `json:"memory_layout"`
}
