package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Sccrap/pe-triage/internal/inspect"
	"github.com/Sccrap/pe-triage/internal/pe"
	"github.com/Sccrap/pe-triage/internal/risk"
)

const rule = "--------------------------------------"

// WriteHuman prints the text report.
func WriteHuman(w io.Writer, r *Report) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "File:        %s\n", r.Path)
	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "File size:   %d bytes\n", r.Size)
	fmt.Fprintf(bw, "File type:   %s\n", r.FileKind)
	if r.Machine != "" {
		fmt.Fprintf(bw, "Machine:     %s\n", r.Machine)
	}
	fmt.Fprintf(bw, "Bits:        %d\n", r.Bits())
	if img := r.Image; img != nil {
		opt := img.NTHeader.OptionalHeader
		fmt.Fprintf(bw, "Timestamp:   %d (0x%08x)\n", img.NTHeader.FileHeader.TimeDateStamp, img.NTHeader.FileHeader.TimeDateStamp)
		fmt.Fprintf(bw, "Entry Point: 0x%08x\n", opt.AddressOfEntryPoint)
		fmt.Fprintf(bw, "Image Base:  0x%x\n", opt.ImageBase)
		fmt.Fprintf(bw, "Subsystem:   0x%04x\n", opt.Subsystem)
	}
	fmt.Fprintf(bw, "Language:    %s\n", r.Language)
	fmt.Fprintf(bw, "Risk Score:  %d/100\n", r.Risk.Score)
	fmt.Fprintln(bw, rule)

	fmt.Fprintln(bw, "\nHashes:")
	fmt.Fprintf(bw, "  MD5:    %s\n", r.Sums.MD5)
	fmt.Fprintf(bw, "  SHA256: %s\n", r.Sums.SHA256)
	if r.Sums.SSDEEP != "" {
		fmt.Fprintf(bw, "  SSDEEP: %s\n", r.Sums.SSDEEP)
	}

	fmt.Fprintln(bw, "\nSection Entropy:")
	writeSections(bw, r.Sections)

	fmt.Fprintln(bw, "\nImport Summary:")
	if len(r.Imports) == 0 {
		fmt.Fprintln(bw, "  (none)")
	} else {
		flagged := r.Flagged()
		fmt.Fprintf(bw, "  Total DLLs imported: %d\n", len(r.Imports))
		fmt.Fprintf(bw, "  Suspicious APIs found: %d\n", len(flagged))
		if len(flagged) > 0 {
			fmt.Fprintln(bw, "\n  Flagged APIs:")
			for _, f := range flagged {
				fmt.Fprintf(bw, "    - %s\n", f)
			}
		}
	}

	fmt.Fprintln(bw, "\nSuspicious Strings:")
	urls := r.URLs()
	if len(urls) == 0 {
		fmt.Fprintln(bw, "  (none detected)")
	}
	for _, s := range urls {
		fmt.Fprintf(bw, "  - %s\n", s)
	}

	if len(r.Debug) > 0 {
		fmt.Fprintln(bw, "\nDebug Directory:")
		WriteDebug(bw, r.Debug)
	}

	if len(r.Mismatches) > 0 {
		fmt.Fprintln(bw, "\nCross-check Mismatches:")
		for _, m := range r.Mismatches {
			fmt.Fprintf(bw, "  - %s\n", m)
		}
	}

	if len(r.Yara) > 0 {
		fmt.Fprintln(bw, "\nYARA Matches:")
		for _, m := range r.Yara {
			fmt.Fprintf(bw, "  %s\n", m)
		}
	}

	fmt.Fprintln(bw, "\n=== VERDICT ===")
	fmt.Fprintf(bw, "Status: %s\n", verdictLine(r.Verdict))

	return bw.Flush()
}

func verdictLine(v risk.Verdict) string {
	switch v {
	case risk.Clean:
		return "LIKELY CLEAN (Low Risk)"
	case risk.Suspicious:
		return "SUSPICIOUS (Medium Risk) - Manual review recommended"
	}
	return "LIKELY MALICIOUS (High Risk) - Quarantine recommended"
}

func writeSections(w io.Writer, sections []pe.Section) {
	if len(sections) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, s := range sections {
		name := s.Name
		if name == "" {
			name = "(empty)"
		}
		fmt.Fprintf(w, "  [%s] Entropy: %.3f  RawSize: %d\n", name, s.Entropy, s.SizeOfRawData)
	}
}

// WriteSections prints the section table with addresses and entropy.
func WriteSections(w io.Writer, sections []pe.Section) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Number of sections: %d\n\n", len(sections))
	fmt.Fprintf(bw, "%-10s %-12s %-12s %-12s %-12s %-12s %s\n", "Name", "VirtSize", "VirtAddr", "RawSize", "RawAddr", "Flags", "Entropy")
	for _, s := range sections {
		name := s.Name
		if name == "" {
			name = "(empty)"
		}
		fmt.Fprintf(bw, "%-10s 0x%08x   0x%08x   0x%08x   0x%08x   0x%08x   %.3f\n",
			name, s.VirtualSize, s.VirtualAddress, s.SizeOfRawData, s.PointerToRawData, s.Characteristics, s.Entropy)
	}
	return bw.Flush()
}

// WriteImports prints every library and its symbols.
func WriteImports(w io.Writer, libs []pe.Library) error {
	bw := bufio.NewWriter(w)
	if len(libs) == 0 {
		fmt.Fprintln(bw, "No imports found")
	}
	for _, lib := range libs {
		fmt.Fprintf(bw, "DLL: %s\n", lib.Name)
		for _, s := range lib.Symbols {
			switch s.Kind {
			case pe.ByName:
				fmt.Fprintf(bw, "  -> %s\n", s.Name)
			case pe.ByOrdinal:
				fmt.Fprintf(bw, "  -> ord: %d\n", s.Ordinal)
			default:
				fmt.Fprintln(bw, "  -> (unresolved)")
			}
		}
	}
	return bw.Flush()
}

// WriteDebug prints debug directory entries.
func WriteDebug(w io.Writer, entries []inspect.DebugEntry) {
	for i, dbg := range entries {
		fmt.Fprintf(w, "  Debug Entry %d:\n", i+1)
		fmt.Fprintf(w, "    Type:              %s\n", dbg.Type)
		fmt.Fprintf(w, "    Characteristics:   0x%x\n", dbg.Characteristics)
		fmt.Fprintf(w, "    TimeDateStamp:     %d (0x%x)\n", dbg.TimeDateStamp, dbg.TimeDateStamp)
		fmt.Fprintf(w, "    Version:           %d.%d\n", dbg.MajorVersion, dbg.MinorVersion)
		fmt.Fprintf(w, "    PointerToRawData:  0x%x\n", dbg.PointerToRawData)
		fmt.Fprintf(w, "    SizeOfData:        %d bytes\n", dbg.SizeOfData)
		fmt.Fprintf(w, "    AddressOfRawData:  0x%x\n", dbg.AddressOfRawData)
		if note := inspect.DebugNote(dbg.Type); note != "" {
			fmt.Fprintf(w, "    -> %s\n", note)
		}
	}
}
