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

// Package linker parses GNU-LD linker scripts to extract declared memory
// regions: their name, type, address, size and attributes.
package linker

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/jetsetilly/membrowse/internal/arch"
	"github.com/jetsetilly/membrowse/internal/expr"
	"github.com/jetsetilly/membrowse/internal/model"
	"github.com/jetsetilly/membrowse/logger"
)

const logTag = "linker"

// regionSet implements expr.RegionLookup over the region map being built,
// so ORIGIN()/LENGTH() can refer to regions declared elsewhere in the same
// (or an earlier) script.
type regionSet struct {
	regions map[string]model.MemoryRegion
}

func (r regionSet) Origin(name string) (uint64, bool) {
	reg, ok := r.regions[name]
	return reg.Address, ok
}

func (r regionSet) Length(name string) (uint64, bool) {
	reg, ok := r.regions[name]
	return reg.LimitSize, ok
}

// Parse reads every script in paths and returns the declared memory
// regions keyed by name. info, if non-nil, seeds platform-specific default
// variables before any script is read. Per-script read failures are
// logged and skipped; Parse never returns an error — an unreadable or
// unparsable set of scripts simply yields an empty map.
func Parse(paths []string, info *arch.Info) map[string]model.MemoryRegion {
	variables := platformDefaults(info)

	contents := make([]string, len(paths))
	for i, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			logger.Logf(logTag, "cannot read linker script %s: %v", p, err)
			continue
		}
		contents[i] = clean(string(raw))
	}

	extractVariables(contents, variables)

	regions := map[string]model.MemoryRegion{}
	env := &expr.Env{Variables: variables}

	for iter := 0; iter < 3; iter++ {
		before := len(regions)
		env.Regions = regionSet{regions: regions}
		for _, content := range contents {
			for name, region := range parseMemoryBlock(content, env) {
				regions[name] = region
			}
		}
		if len(regions) == before {
			break
		}
	}

	validate(regions)

	return regions
}

// --- preprocessing -----------------------------------------------------

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	ifBlock      = regexp.MustCompile(`(?s)#if.*?(?:#(?:elif|else).*?)*?#endif`)
	ppLine       = regexp.MustCompile(`(?m)^\s*#(if|elif|else|endif|error)\b.*$`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// clean strips comments and preprocessor conditional blocks per spec.md
// §4.3's heuristic: a #if...#endif block containing no ';'-terminated
// assignment is dropped wholesale; the preprocessor itself is never run.
func clean(content string) string {
	content = blockComment.ReplaceAllString(content, "")
	content = lineComment.ReplaceAllString(content, "")

	content = ifBlock.ReplaceAllStringFunc(content, func(block string) string {
		if strings.Contains(block, "=") && strings.Contains(block, ";") {
			return block
		}
		return " "
	})

	content = ppLine.ReplaceAllString(content, "")
	content = whitespace.ReplaceAllString(content, " ")
	return content
}

// --- variable extraction ------------------------------------------------

var (
	assignRe     = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*=\s*([^;]+);`)
	simpleHexRe  = regexp.MustCompile(`^0[xX][0-9a-fA-F]+$`)
	simpleDecRe  = regexp.MustCompile(`^\d+[kKmMgG]?$`)
	simpleArithRe = regexp.MustCompile(`^[0-9a-fA-Fx+\-*/() \t]+$`)
)

func isSimpleExpression(e string) bool {
	e = strings.TrimSpace(e)
	return simpleHexRe.MatchString(e) || simpleDecRe.MatchString(e) || simpleArithRe.MatchString(e)
}

// extractVariables resolves variable assignments in two phases: simple
// expressions resolve immediately; complex ones are retried over up to 10
// fixed-point iterations. Scripts are processed reverse-then-forward so
// top-level scripts override included ones but still see their symbols.
func extractVariables(contents []string, variables map[string]expr.Variable) {
	order := make([]int, 0, len(contents)*2)
	for i := len(contents) - 1; i >= 0; i-- {
		order = append(order, i)
	}
	for i := range contents {
		order = append(order, i)
	}

	type pending struct {
		name, value string
	}
	var complex []pending

	for _, idx := range order {
		for _, m := range assignRe.FindAllStringSubmatch(contents[idx], -1) {
			name, value := m[1], strings.TrimSpace(m[2])
			if strings.HasPrefix(name, "__") {
				continue
			}
			if isSimpleExpression(value) {
				env := &expr.Env{Variables: variables}
				v, err := expr.Evaluate(value, env, nil)
				if err != nil {
					complex = append(complex, pending{name, value})
					continue
				}
				variables[name] = expr.IntVar(v)
			} else {
				complex = append(complex, pending{name, value})
			}
		}
	}

	for iter := 0; iter < 10 && len(complex) > 0; iter++ {
		var unresolved []pending
		for _, p := range complex {
			env := &expr.Env{Variables: variables}
			v, err := expr.Evaluate(p.value, env, nil)
			if err != nil {
				unresolved = append(unresolved, p)
				continue
			}
			variables[p.name] = expr.IntVar(v)
		}
		if len(unresolved) == len(complex) {
			complex = unresolved
			break
		}
		complex = unresolved
	}

	for _, p := range complex {
		if _, ok := variables[p.name]; !ok {
			variables[p.name] = expr.ExprVar(p.value)
		}
	}
}

// --- MEMORY block parsing -----------------------------------------------

var (
	memoryBlockRe = regexp.MustCompile(`(?i)MEMORY\s*\{([^}]+)\}`)

	// standard form: NAME (ATTRS) : ORIGIN = EXPR , LENGTH = EXPR
	standardEntryRe = regexp.MustCompile(`(?i)(\w+)\s*\(([^)]+)\)\s*:\s*(?:ORIGIN|org)\s*=\s*([^,]+),\s*(?:LENGTH|len)\s*=\s*([^,}]+?)(?:\s+\w+\s*[(:]|$|\s*\})`)

	// compact/ESP8266 form: NAME : ORIGIN = EXPR , LENGTH = EXPR
	compactEntryRe = regexp.MustCompile(`(?i)(\w+)\s*:\s*(?:ORIGIN|org)\s*=\s*([^,]+),\s*(?:LENGTH|len)\s*=\s*([^,}]+?)(?:\s+\w+\s*:|$|\s*\})`)
)

func parseMemoryBlock(content string, env *expr.Env) map[string]model.MemoryRegion {
	m := memoryBlockRe.FindStringSubmatch(content)
	if m == nil {
		return nil
	}
	body := m[1]

	regions := map[string]model.MemoryRegion{}

	// an entry's terminator can consume the next entry's name, so each
	// search resumes right after the previous entry's LENGTH expression.
	findEntries := func(re *regexp.Regexp) [][]string {
		var entries [][]string
		for rest := body; ; {
			loc := re.FindStringSubmatchIndex(rest)
			if loc == nil {
				return entries
			}
			entries = append(entries, re.FindStringSubmatch(rest))
			rest = rest[loc[len(loc)-1]:]
		}
	}

	for _, entry := range findEntries(standardEntryRe) {
		if r, ok := buildRegion(entry[1], entry[2], entry[3], entry[4], env); ok {
			regions[r.Name] = r
		}
	}

	// compact entries may sit alongside standard ones
	for _, entry := range findEntries(compactEntryRe) {
		if _, exists := regions[entry[1]]; exists {
			continue
		}
		if r, ok := buildRegion(entry[1], "", entry[2], entry[3], env); ok {
			regions[r.Name] = r
		}
	}

	return regions
}

func buildRegion(name, attrs, originExpr, lengthExpr string, env *expr.Env) (model.MemoryRegion, bool) {
	origin, err := expr.Evaluate(originExpr, env, nil)
	if err != nil {
		logger.Logf(logTag, "region %s: cannot evaluate ORIGIN %q: %v", name, originExpr, err)
		return model.MemoryRegion{}, false
	}
	length, err := expr.Evaluate(lengthExpr, env, nil)
	if err != nil {
		logger.Logf(logTag, "region %s: cannot evaluate LENGTH %q: %v", name, lengthExpr, err)
		return model.MemoryRegion{}, false
	}

	attrs = strings.TrimSpace(attrs)
	return model.MemoryRegion{
		Name:       name,
		Type:       detectType(name, attrs),
		Attributes: attrs,
		Address:    uint64(origin),
		LimitSize:  uint64(length),
		FreeSize:   length,
	}, true
}

// --- region typing -------------------------------------------------------

type typePattern struct {
	t        model.RegionType
	patterns []string
}

var typePatterns = []typePattern{
	{model.RegionEEPROM, []string{"eeprom"}},
	{model.RegionCCM, []string{"ccmram", "ccm"}},
	{model.RegionBackup, []string{"backup"}},
	{model.RegionFlash, []string{"flash", "rom", "code"}},
	{model.RegionRAM, []string{"ram", "sram", "data", "heap", "stack"}},
}

// detectType classifies a region by first-match-wins name patterns, falling
// back to its R/W/X attribute string when the name is uninformative.
func detectType(name, attrs string) model.RegionType {
	lowerName := strings.ToLower(name)
	lowerAttrs := strings.ToLower(attrs)

	for _, tp := range typePatterns {
		for _, p := range tp.patterns {
			if strings.Contains(lowerName, p) {
				return tp.t
			}
		}
	}

	hasX := strings.Contains(lowerAttrs, "x")
	hasW := strings.Contains(lowerAttrs, "w")
	hasR := strings.Contains(lowerAttrs, "r")

	switch {
	case hasX && !hasW:
		return model.RegionROM
	case hasW:
		return model.RegionRAM
	case hasR && !hasX && !hasW:
		return model.RegionROM
	default:
		return model.RegionUnknown
	}
}

// --- platform defaults ---------------------------------------------------

// platformDefaults seeds the variable environment with a platform-specific
// table, overwritten by any explicit script assignment.
func platformDefaults(info *arch.Info) map[string]expr.Variable {
	vars := map[string]expr.Variable{}
	if info == nil {
		return vars
	}

	switch info.Platform {
	case arch.ESP32:
		vars["CONFIG_ESP32_SPIRAM_SIZE"] = expr.IntVar(0)
		vars["CONFIG_PARTITION_TABLE_OFFSET"] = expr.IntVar(0x8000)
	case arch.ESP8266:
		vars["FLASH_SIZE"] = expr.IntVar(0x100000)
	case arch.STM32:
		vars["_flash_size"] = expr.IntVar(0x100000)
		vars["_ram_size"] = expr.IntVar(0x20000)
	case arch.NRF:
		vars["_sd_size"] = expr.IntVar(0)
		vars["_sd_ram"] = expr.IntVar(0)
		vars["_fs_size"] = expr.IntVar(65536)
		vars["_bootloader_head_size"] = expr.IntVar(0)
		vars["_bootloader_tail_size"] = expr.IntVar(0)
	case arch.SAMD:
		vars["_etext"] = expr.IntVar(0x10000)
		vars["_codesize"] = expr.IntVar(0x10000)
		vars["BootSize"] = expr.IntVar(0x2000)
	case arch.MIMXRT:
		vars["MICROPY_HW_FLASH_SIZE"] = expr.IntVar(0x800000)
		vars["MICROPY_HW_FLASH_RESERVED"] = expr.IntVar(0)
		vars["MICROPY_HW_SDRAM_AVAIL"] = expr.IntVar(1)
		vars["MICROPY_HW_SDRAM_SIZE"] = expr.IntVar(0x2000000)
	case arch.QEMU:
		vars["ROM_BASE"] = expr.IntVar(0x80000000)
		vars["ROM_SIZE"] = expr.IntVar(4 << 20)
		vars["RAM_BASE"] = expr.IntVar(0x80400000)
		vars["RAM_SIZE"] = expr.IntVar(2 << 20)
	}

	return vars
}

// --- validation (advisory) ------------------------------------------------

const maxOverhangBytes = 64 * 1024

// validate logs RegionOverlapWarning/MissingRegionTypeWarning advisories;
// it never mutates regions or returns an error.
func validate(regions map[string]model.MemoryRegion) {
	if len(regions) == 0 {
		logger.Log(logTag, "no memory regions found in linker scripts")
		return
	}

	hasFlashOrROM, hasRAM := false, false
	for _, r := range regions {
		if r.Type == model.RegionFlash || r.Type == model.RegionROM {
			hasFlashOrROM = true
		}
		if r.Type == model.RegionRAM {
			hasRAM = true
		}
	}
	if !hasFlashOrROM {
		logger.Log(logTag, "no FLASH/ROM regions found - unusual for embedded systems")
	}
	if !hasRAM {
		logger.Log(logTag, "no RAM regions found - unusual for embedded systems")
	}

	names := make([]string, 0, len(regions))
	for n := range regions {
		names = append(names, n)
	}
	sort.Strings(names)

	for i, n1 := range names {
		for _, n2 := range names[i+1:] {
			r1, r2 := regions[n1], regions[n2]
			if r1.Address < r2.EndAddress() && r2.Address < r1.EndAddress() {
				if !hierarchicalOverlap(n1, r1, n2, r2) {
					logger.Logf(logTag, "memory regions %s and %s overlap", n1, n2)
				}
			}
		}
	}
}

// hierarchicalOverlap reports whether r1/r2 describe a parent/child pair of
// the same type with related names, where the child may overhang the
// parent by up to 64KiB without being flagged as a genuine overlap.
func hierarchicalOverlap(name1 string, r1 model.MemoryRegion, name2 string, r2 model.MemoryRegion) bool {
	parentName, parent, childName, child := name2, r2, name1, r1
	if r1.LimitSize > r2.LimitSize {
		parentName, parent, childName, child = name1, r1, name2, r2
	}

	fullyContained := child.Address >= parent.Address && child.EndAddress() <= parent.EndAddress()
	mostlyContained := child.Address >= parent.Address &&
		child.Address <= parent.EndAddress() &&
		child.EndAddress() <= parent.EndAddress()+maxOverhangBytes

	if !fullyContained && !mostlyContained {
		return false
	}

	parentLower := strings.ToLower(parentName)
	childLower := strings.ToLower(childName)

	if parent.Type != child.Type {
		return false
	}

	if strings.HasPrefix(childLower, parentLower) {
		return true
	}
	if strings.HasPrefix(parentLower, "flash_") && strings.HasPrefix(childLower, "flash_") {
		return true
	}

	if parent.LimitSize > 0 {
		ratio := float64(child.LimitSize) / float64(parent.LimitSize)
		if ratio < 0.9 {
			parentParts := strings.Split(parentLower, "_")
			childParts := strings.Split(childLower, "_")
			if len(childParts) > len(parentParts) && childParts[0] == parentParts[0] {
				return true
			}
		}
	}

	return false
}
