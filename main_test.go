package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sccrap/pe-triage/internal/pe"
	"github.com/Sccrap/pe-triage/internal/pe/petest"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestRunUsage(t *testing.T) {
	_, stderr, err := runCLI(t)
	assert.ErrorIs(t, err, errUsage)
	assert.Contains(t, stderr, "Usage: pe-triage")
	assert.Contains(t, stderr, "--sections")
	assert.Contains(t, stderr, "--headers")
	assert.Contains(t, stderr, "--dump")
	assert.Contains(t, stderr, "only written when -j is given")

	_, _, err = runCLI(t, "--no-such-flag", "x.exe")
	assert.ErrorIs(t, err, errUsage)
}

func TestRunSections(t *testing.T) {
	out, _, err := runCLI(t, "-s", writeSample(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Number of sections: 2")
	assert.Contains(t, out, ".text")
	assert.Contains(t, out, ".idata")
}

func TestRunHeaders(t *testing.T) {
	out, _, err := runCLI(t, "-H", writeSample(t))
	require.NoError(t, err)
	assert.Contains(t, out, "PE Offset:          0x00000040 (64)")
	assert.Contains(t, out, "Machine:            0x014c (x86)")
	assert.Contains(t, out, "TimeDateStamp:      1593835520 (0x5f000000)")
	assert.Contains(t, out, "Magic:              0x010b (PE32/32-bit)")
	assert.Contains(t, out, "Image Base:         0x00400000\n")
	assert.Contains(t, out, "Entry Point:        0x00001000")
	assert.Contains(t, out, "Import Directory:   0x00002000 (40 bytes)")
}

func TestRunDump(t *testing.T) {
	path := writeSample(t)

	out, _, err := runCLI(t, "--dump", ".text", "-l", "32", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "=== Section: .text (first 32 of 512 bytes, file offset 0x200) ===", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "00000200  00 00"), lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "00000210  68 74 74 70 3a 2f 2f"), lines[2])
	assert.True(t, strings.HasSuffix(lines[2], "http://malware.t"), lines[2])

	out, _, err = runCLI(t, "--dump=.idata", "--limit=0", path)
	require.NoError(t, err)
	assert.Contains(t, out, "(first 512 of 512 bytes, file offset 0x400)")
	assert.Contains(t, out, "000005f0  ")

	_, _, err = runCLI(t, "--dump", ".rsrc", path)
	assert.ErrorIs(t, err, pe.ErrNoSection)

	_, _, err = runCLI(t, "--dump", ".text", "--limit=-1", path)
	require.Error(t, err)
}

func TestRunDumpOutsideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "truncated.exe")
	require.NoError(t, os.WriteFile(path, petest.Build(petest.Layout{TextRawSize: 0x800}), 0o644))

	_, _, err := runCLI(t, "--dump", ".text", "-l", "0", path)
	assert.ErrorIs(t, err, pe.ErrSectionRange)
}

func TestRunImports(t *testing.T) {
	out, _, err := runCLI(t, "--imports", writeSample(t))
	require.NoError(t, err)
	assert.Equal(t, "DLL: KERNEL32.dll\n  -> VirtualAlloc\n  -> ord: 16\n", out)
}

func TestRunStrings(t *testing.T) {
	path := writeSample(t)

	out, _, err := runCLI(t, "-x", path)
	require.NoError(t, err)
	assert.Contains(t, out, "http://malware.test/payload\n")

	dst := filepath.Join(t.TempDir(), "strings.txt")
	out, _, err = runCLI(t, "-x", path, dst)
	require.NoError(t, err)
	assert.Empty(t, out)
	written, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(written), "KERNEL32.dll\n")
}

func TestRunBasic(t *testing.T) {
	out, _, err := runCLI(t, "-b", writeSample(t))
	require.NoError(t, err)
	assert.Contains(t, out, "File size:   1536 bytes")
	assert.Contains(t, out, "Machine:     x86")
	assert.Contains(t, out, "Sections:    2")
}

func TestRunReportAndJSON(t *testing.T) {
	path := writeSample(t)
	dst := filepath.Join(t.TempDir(), "report.json")

	out, _, err := runCLI(t, "-j", "-o", dst, path)
	require.NoError(t, err)
	assert.Contains(t, out, "=== VERDICT ===")
	assert.Contains(t, out, "- KERNEL32.dll!VirtualAlloc")
	assert.Contains(t, out, "JSON report written to "+dst)

	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, path, doc["file"])
	assert.EqualValues(t, 32, doc["bits"])
	assert.Contains(t, doc, "headers")
	assert.Contains(t, doc, "debug")
	assert.Contains(t, doc, "mismatches")

	out, _, err = runCLI(t, "--json", "--output=-", path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "LIKELY CLEAN", doc["verdict"])
}

func TestRunParseFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.exe")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{'A'}, 128), 0o644))

	for _, mode := range []string{"-s", "-i", "-b", "-r"} {
		_, _, err := runCLI(t, mode, path)
		assert.ErrorIs(t, err, pe.ErrDOSSignature, mode)
	}
}
