package yara

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), mode))
	return path
}

func TestScanNoRules(t *testing.T) {
	_, err := New("").Scan(context.Background(), "sample.exe")
	require.ErrorIs(t, err, ErrNoRules)

	_, err = New(filepath.Join(t.TempDir(), "missing.yar")).Scan(context.Background(), "sample.exe")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestScanMissingBinary(t *testing.T) {
	rules := writeFile(t, "rules.yar", "rule x { condition: true }", 0o644)
	s := &Scanner{Binary: filepath.Join(t.TempDir(), "no-such-yara"), Rules: rules}

	_, err := s.Scan(context.Background(), "sample.exe")
	require.Error(t, err)
}

func TestScanParsesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the scanner")
	}
	rules := writeFile(t, "rules.yar", "rule x { condition: true }", 0o644)
	fake := writeFile(t, "fake-yara", "#!/bin/sh\nprintf 'Suspicious_API %s\\n\\n0x10:$a: VirtualAlloc\\n' \"$3\"\n", 0o755)

	matches, err := (&Scanner{Binary: fake, Rules: rules}).Scan(context.Background(), "sample.exe")
	require.NoError(t, err)
	assert.Equal(t, []string{"Suspicious_API sample.exe", "0x10:$a: VirtualAlloc"}, matches)
}

func TestScanFailureIncludesStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as the scanner")
	}
	rules := writeFile(t, "rules.yar", "rule x {", 0o644)
	fake := writeFile(t, "fake-yara", "#!/bin/sh\necho 'error: syntax error' >&2\nexit 1\n", 0o755)

	_, err := (&Scanner{Binary: fake, Rules: rules}).Scan(context.Background(), "sample.exe")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}
