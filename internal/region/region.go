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

// Package region binds ELF sections to the memory regions declared by the
// Linker-Script Parser, and computes per-region utilization.
package region

import "github.com/jetsetilly/membrowse/internal/model"

type sortedRegion struct {
	start, end uint64
	name       string
}

// Mapper maps sections to the regions they fall inside, by address and,
// failing that, by type compatibility.
type Mapper struct {
	regions map[string]*model.MemoryRegion
	sorted  []sortedRegion
}

// NewMapper indexes regions by start address for binary-search lookup.
func NewMapper(regions map[string]model.MemoryRegion) *Mapper {
	m := &Mapper{regions: map[string]*model.MemoryRegion{}}
	for name := range regions {
		r := regions[name]
		m.regions[name] = &r
	}
	for name, r := range m.regions {
		m.sorted = append(m.sorted, sortedRegion{start: r.Address, end: r.Address + r.LimitSize, name: name})
	}
	for i := 1; i < len(m.sorted); i++ {
		for j := i; j > 0 && m.sorted[j-1].start > m.sorted[j].start; j-- {
			m.sorted[j-1], m.sorted[j] = m.sorted[j], m.sorted[j-1]
		}
	}
	return m
}

// Map binds each section to the region containing its address, falling
// back to a type-compatible region and finally to the region with the
// lowest start address. It mutates and returns the augmented region map.
func Map(sections []model.MemorySection, regions map[string]model.MemoryRegion) map[string]model.MemoryRegion {
	m := NewMapper(regions)

	for _, s := range sections {
		r := m.findByAddress(s)
		if r == nil {
			r = m.findByType(s)
		}
		if r != nil {
			r.Sections = append(r.Sections, s)
		}
	}

	for name, r := range m.regions {
		calculateUtilization(r)
		regions[name] = *r
	}

	return regions
}

// findByAddress binary-searches the sorted region ranges for one that
// contains section.Address. Zero-address sections (debug/metadata) never
// match, mirroring memory_mapper.py.
func (m *Mapper) findByAddress(s model.MemorySection) *model.MemoryRegion {
	if s.Address == 0 {
		return nil
	}

	left, right := 0, len(m.sorted)
	for left < right {
		mid := (left + right) / 2
		entry := m.sorted[mid]
		switch {
		case s.Address < entry.start:
			right = mid
		case s.Address >= entry.end:
			left = mid + 1
		default:
			return m.regions[entry.name]
		}
	}
	return nil
}

var compatibility = map[model.SectionCategory][]model.RegionType{
	model.CategoryText:   {model.RegionFlash, model.RegionROM},
	model.CategoryRodata: {model.RegionFlash, model.RegionROM},
	model.CategoryData:   {model.RegionRAM},
	model.CategoryBSS:    {model.RegionRAM},
}

func (m *Mapper) findByType(s model.MemorySection) *model.MemoryRegion {
	for _, wanted := range compatibility[s.Category] {
		for _, name := range orderedNames(m.sorted) {
			if r := m.regions[name]; r.Type == wanted {
				return r
			}
		}
	}
	for _, name := range orderedNames(m.sorted) {
		return m.regions[name]
	}
	return nil
}

func orderedNames(sorted []sortedRegion) []string {
	names := make([]string, len(sorted))
	for i, e := range sorted {
		names[i] = e.name
	}
	return names
}

func calculateUtilization(r *model.MemoryRegion) {
	var used int64
	for _, s := range r.Sections {
		used += int64(s.Size)
	}
	r.UsedSize = used
	r.FreeSize = int64(r.LimitSize) - used
	if r.LimitSize > 0 {
		r.UtilizationPercent = float64(used) / float64(r.LimitSize) * 100
	} else {
		r.UtilizationPercent = 0.0
	}
}
