// Package yara runs the external yara command line scanner.
package yara

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultBinary is looked up in PATH.
const DefaultBinary = "yara"

// ErrNoRules is returned when the scanner has no rules file configured.
var ErrNoRules = errors.New("no yara rules configured")

// Scanner invokes Binary with a compiled or source rules file.
type Scanner struct {
	Binary string
	Rules  string
}

// New returns a Scanner for rules using the yara binary from PATH.
func New(rules string) *Scanner {
	return &Scanner{Binary: DefaultBinary, Rules: rules}
}

// Scan runs `yara -s <rules> <path>` and returns the non-empty lines it
// printed: one line per matching rule followed by its matched strings.
func (s *Scanner) Scan(ctx context.Context, path string) ([]string, error) {
	if s.Rules == "" {
		return nil, ErrNoRules
	}
	if _, err := os.Stat(s.Rules); err != nil {
		return nil, fmt.Errorf("yara rules: %w", err)
	}

	bin := s.Binary
	if bin == "" {
		bin = DefaultBinary
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, "-s", s.Rules, path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("run %s: %w: %s", bin, err, msg)
		}
		return nil, fmt.Errorf("run %s: %w", bin, err)
	}

	var matches []string
	sc := bufio.NewScanner(&stdout)
	for sc.Scan() {
		if line := strings.TrimRight(sc.Text(), "\r"); line != "" {
			matches = append(matches, line)
		}
	}
	return matches, sc.Err()
}
