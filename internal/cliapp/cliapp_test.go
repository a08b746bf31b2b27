package cliapp_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/jetsetilly/membrowse/internal/cliapp"
	"github.com/jetsetilly/membrowse/test"
)

func writeMinimalELF(t *testing.T) string {
	t.Helper()
	buf := make([]byte, 52)
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = 1
	buf[5] = 1
	buf[6] = 1
	binary.LittleEndian.PutUint16(buf[16:18], 2)
	binary.LittleEndian.PutUint16(buf[18:20], 40)
	binary.LittleEndian.PutUint32(buf[20:24], 1)
	binary.LittleEndian.PutUint16(buf[40:42], 52)
	binary.LittleEndian.PutUint16(buf[42:44], 32)
	binary.LittleEndian.PutUint16(buf[46:48], 40)

	path := filepath.Join(t.TempDir(), "fixture.elf")
	test.ExpectSuccess(t, os.WriteFile(path, buf, 0o644) == nil)
	return path
}

func TestReportCommandPrintsJSONToStdout(t *testing.T) {
	elfPath := writeMinimalELF(t)

	root := cliapp.Root()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"report", elfPath})

	err := root.Execute()
	test.ExpectSuccess(t, err == nil)
}

func TestReportCommandWritesToOutputFile(t *testing.T) {
	elfPath := writeMinimalELF(t)
	outPath := filepath.Join(t.TempDir(), "report.json")

	root := cliapp.Root()
	root.SetArgs([]string{"report", elfPath, "--output", outPath})

	err := root.Execute()
	test.ExpectSuccess(t, err == nil)

	data, readErr := os.ReadFile(outPath)
	test.ExpectSuccess(t, readErr == nil)
	test.ExpectSuccess(t, len(data) > 0)
}

func TestReportCommandMissingELFFails(t *testing.T) {
	root := cliapp.Root()
	root.SetArgs([]string{"report", "/no/such/firmware.elf"})
	err := root.Execute()
	test.ExpectFailure(t, err == nil)
}

func TestReportCommandRequiresAtLeastOneArg(t *testing.T) {
	root := cliapp.Root()
	root.SetArgs([]string{"report"})
	err := root.Execute()
	test.ExpectFailure(t, err == nil)
}

func TestSummaryCommandRequiresAPIKey(t *testing.T) {
	root := cliapp.Root()
	root.SetArgs([]string{"summary", "abc123"})
	err := root.Execute()
	test.ExpectFailure(t, err == nil)
}
