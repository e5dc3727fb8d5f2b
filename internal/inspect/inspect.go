// Package inspect looks at a sample through saferwall/pe, an independent
// parser, for the details the core parser does not model and to check the
// core parser's view of the file against a second opinion.
package inspect

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"

	peparser "github.com/saferwall/pe"
	pelog "github.com/saferwall/pe/log"

	"github.com/Sccrap/pe-triage/internal/pe"
)

// DebugEntry is one IMAGE_DEBUG_DIRECTORY record.
type DebugEntry struct {
	Type             string
	Characteristics  uint32
	TimeDateStamp    uint32
	MajorVersion     uint16
	MinorVersion     uint16
	PointerToRawData uint32
	SizeOfData       uint32
	AddressOfRawData uint32
}

// Info is what saferwall reports beyond the core model.
type Info struct {
	Machine string
	Debug   []DebugEntry
}

// Reference is a saferwall parse of one sample.
type Reference struct {
	f *peparser.File
	// mapped is set when saferwall mapped the file itself and must unmap it.
	mapped bool
}

func options() *peparser.Options {
	// saferwall logs to stdout by default, which would corrupt CLI output.
	logger := pelog.NewFilter(pelog.NewStdLogger(os.Stderr), pelog.FilterLevel(pelog.LevelError))
	return &peparser.Options{Logger: logger}
}

// Open parses the file at path.
func Open(path string) (*Reference, error) {
	f, err := peparser.New(path, options())
	if err != nil {
		return nil, fmt.Errorf("error opening PE: %w", err)
	}
	ref := &Reference{f: f, mapped: true}
	if err := f.Parse(); err != nil {
		ref.Close()
		return nil, fmt.Errorf("error parsing PE: %w", err)
	}
	return ref, nil
}

// OpenBytes parses an in-memory sample. data must not change while the
// Reference is in use.
func OpenBytes(data []byte) (*Reference, error) {
	f, err := peparser.NewBytes(data, options())
	if err != nil {
		return nil, fmt.Errorf("error opening PE: %w", err)
	}
	if err := f.Parse(); err != nil {
		return nil, fmt.Errorf("error parsing PE: %w", err)
	}
	return &Reference{f: f}, nil
}

// Close releases the mapping of a Reference from Open. saferwall's Close
// unmaps unconditionally, so it must not run on caller-owned bytes.
func (r *Reference) Close() error {
	if !r.mapped {
		return nil
	}
	return r.f.Close()
}

// Info returns the machine name and debug directory.
func (r *Reference) Info() *Info {
	info := &Info{Machine: r.f.NtHeader.FileHeader.Machine.String()}
	for _, dbg := range r.f.Debugs {
		info.Debug = append(info.Debug, DebugEntry{
			Type:             dbg.Type,
			Characteristics:  dbg.Struct.Characteristics,
			TimeDateStamp:    dbg.Struct.TimeDateStamp,
			MajorVersion:     dbg.Struct.MajorVersion,
			MinorVersion:     dbg.Struct.MinorVersion,
			PointerToRawData: dbg.Struct.PointerToRawData,
			SizeOfData:       dbg.Struct.SizeOfData,
			AddressOfRawData: dbg.Struct.AddressOfRawData,
		})
	}
	return info
}

// Inspect returns the machine name and debug directory of the file at path.
func Inspect(path string) (*Info, error) {
	ref, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer ref.Close()
	return ref.Info(), nil
}

// DebugNote describes the well-known debug entry types.
func DebugNote(typ string) string {
	switch typ {
	case "IMAGE_DEBUG_TYPE_CODEVIEW":
		return "CodeView (PDB) format detected"
	case "IMAGE_DEBUG_TYPE_EXPORT_TABLE":
		return "Export table debug info"
	case "IMAGE_DEBUG_TYPE_FPO":
		return "Frame Pointer Omission (FPO) info"
	case "IMAGE_DEBUG_TYPE_MISC":
		return "Miscellaneous debug info"
	case "IMAGE_DEBUG_TYPE_POGO":
		return "Profile Guided Optimization (PGO) info"
	case "IMAGE_DEBUG_TYPE_EMBEDDED_MSIL":
		return "Embedded MSIL debug info"
	}
	return ""
}

// entropyTolerance absorbs float differences between the two entropy
// implementations.
const entropyTolerance = 0.01

// Mismatch is one disagreement between the core model and saferwall.
type Mismatch struct {
	Field string
	Ours  string
	Ref   string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: ours=%s saferwall=%s", m.Field, m.Ours, m.Ref)
}

func sectionName(sec peparser.Section) string {
	name := sec.Header.Name[:]
	if n := bytes.IndexByte(name, 0); n >= 0 {
		name = name[:n]
	}
	return string(name)
}

// CrossCheck compares sections and imported library names of img and libs
// with saferwall's parse of the same bytes.
func (r *Reference) CrossCheck(img *pe.Image, libs []pe.Library) []Mismatch {
	f := r.f
	var out []Mismatch
	add := func(field string, ours, ref any) {
		out = append(out, Mismatch{Field: field, Ours: fmt.Sprint(ours), Ref: fmt.Sprint(ref)})
	}

	if len(img.Sections) != len(f.Sections) {
		add("sections", len(img.Sections), len(f.Sections))
	}
	for i := 0; i < min(len(img.Sections), len(f.Sections)); i++ {
		ours, ref := img.Sections[i], f.Sections[i]
		if name := sectionName(ref); ours.Name != name {
			add(fmt.Sprintf("section[%d].name", i), ours.Name, name)
		}
		if ours.SizeOfRawData != ref.Header.SizeOfRawData {
			add(fmt.Sprintf("section[%d].raw_size", i), ours.SizeOfRawData, ref.Header.SizeOfRawData)
		}
		if e := ref.CalculateEntropy(f); math.Abs(ours.Entropy-e) > entropyTolerance {
			add(fmt.Sprintf("section[%d].entropy", i), fmt.Sprintf("%.3f", ours.Entropy), fmt.Sprintf("%.3f", e))
		}
	}

	if len(libs) != len(f.Imports) {
		add("imports", len(libs), len(f.Imports))
	}
	for i := 0; i < min(len(libs), len(f.Imports)); i++ {
		if !strings.EqualFold(libs[i].Name, f.Imports[i].Name) {
			add(fmt.Sprintf("import[%d].dll", i), libs[i].Name, f.Imports[i].Name)
		}
		if len(libs[i].Symbols) != len(f.Imports[i].Functions) {
			add(fmt.Sprintf("import[%d].functions", i), len(libs[i].Symbols), len(f.Imports[i].Functions))
		}
	}

	return out
}
