package analysis_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/jetsetilly/membrowse/internal/analysis"
	"github.com/jetsetilly/membrowse/test"
)

// writeMinimalELF writes the smallest ELF32 little-endian header that
// elf.NewFile accepts: no sections, no program headers, no symbols.
func writeMinimalELF(t *testing.T) string {
	t.Helper()

	buf := make([]byte, 52)
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 1 // ELFCLASS32
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1
	binary.LittleEndian.PutUint16(buf[16:18], 2)  // ET_EXEC
	binary.LittleEndian.PutUint16(buf[18:20], 40) // EM_ARM
	binary.LittleEndian.PutUint32(buf[20:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], 0x08000000)
	binary.LittleEndian.PutUint16(buf[40:42], 52)
	binary.LittleEndian.PutUint16(buf[42:44], 32)
	binary.LittleEndian.PutUint16(buf[44:46], 0)
	binary.LittleEndian.PutUint16(buf[46:48], 40)
	binary.LittleEndian.PutUint16(buf[48:50], 0)

	path := filepath.Join(t.TempDir(), "fixture.elf")
	test.ExpectSuccess(t, os.WriteFile(path, buf, 0o644) == nil)
	return path
}

func TestAnalyzeWithoutLinkerScripts(t *testing.T) {
	elfPath := writeMinimalELF(t)

	r, err := analysis.Analyze(analysis.Options{ELFPath: elfPath})
	test.ExpectSuccess(t, err == nil)

	test.Equate(t, r.FilePath, elfPath)
	test.Equate(t, r.Architecture, "ELF32")
	test.Equate(t, r.Machine, "ARM")
	test.Equate(t, len(r.MemoryLayout), 0)
}

func TestAnalyzeWithLinkerScript(t *testing.T) {
	elfPath := writeMinimalELF(t)

	scriptPath := filepath.Join(t.TempDir(), "link.ld")
	script := `
MEMORY
{
  FLASH (rx)  : ORIGIN = 0x08000000, LENGTH = 512K
  RAM (rwx)   : ORIGIN = 0x20000000, LENGTH = 128K
}
`
	test.ExpectSuccess(t, os.WriteFile(scriptPath, []byte(script), 0o644) == nil)

	r, err := analysis.Analyze(analysis.Options{
		ELFPath:       elfPath,
		LinkerScripts: []string{scriptPath},
	})
	test.ExpectSuccess(t, err == nil)

	test.Equate(t, len(r.MemoryLayout), 2)
	flash, ok := r.MemoryLayout["FLASH"]
	test.ExpectSuccess(t, ok)
	test.Equate(t, flash.Address, uint64(0x08000000))
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := analysis.Analyze(analysis.Options{ELFPath: "/no/such/firmware.elf"})
	test.ExpectFailure(t, err == nil)
}
