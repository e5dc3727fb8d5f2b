// Package report renders an analysis as a human-readable summary or as a
// structured JSON document.
package report

import (
	"github.com/Sccrap/pe-triage/internal/digest"
	"github.com/Sccrap/pe-triage/internal/inspect"
	"github.com/Sccrap/pe-triage/internal/pe"
	"github.com/Sccrap/pe-triage/internal/risk"
)

// Report is everything known about one sample.
type Report struct {
	Path     string
	Size     int64
	FileKind string
	Language string
	Machine  string
	Is64Bit  bool

	// Image is the parsed header model; nil when the parse failed.
	Image *pe.Image

	Sums     digest.Sums
	Sections []pe.Section
	Imports  []pe.Library
	Strings  []string

	Risk    risk.Breakdown
	Verdict risk.Verdict

	Debug      []inspect.DebugEntry
	Mismatches []inspect.Mismatch
	Yara       []string
}

// Bits returns 64 or 32.
func (r *Report) Bits() int {
	if r.Is64Bit {
		return 64
	}
	return 32
}

// Flagged returns "dll!function" for every by-name import on the
// suspicious API denylist, in import order.
func (r *Report) Flagged() []string {
	var out []string
	for _, lib := range r.Imports {
		for _, s := range lib.Symbols {
			if s.Kind == pe.ByName && risk.IsSuspicious(s.Name) {
				out = append(out, lib.Name+"!"+s.Name)
			}
		}
	}
	return out
}

// URLs returns the extracted strings that contain an http(s) URL.
func (r *Report) URLs() []string {
	var out []string
	for _, s := range r.Strings {
		if risk.HasURL(s) {
			out = append(out, s)
		}
	}
	return out
}
