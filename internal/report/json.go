package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Velocidex/ordereddict"

	"github.com/Sccrap/pe-triage/internal/pe"
	"github.com/Sccrap/pe-triage/internal/risk"
)

// Dict builds the report as an ordered document so the JSON keys come
// out in a stable, readable order.
func (r *Report) Dict() *ordereddict.Dict {
	sections := make([]*ordereddict.Dict, 0, len(r.Sections))
	for _, s := range r.Sections {
		sections = append(sections, ordereddict.NewDict().
			Set("name", s.Name).
			Set("entropy", s.Entropy).
			Set("raw_size", s.SizeOfRawData).
			Set("virtual_size", s.VirtualSize).
			Set("characteristics", s.Characteristics))
	}

	imports := make([]*ordereddict.Dict, 0, len(r.Imports))
	for _, lib := range r.Imports {
		funcs := make([]*ordereddict.Dict, 0, len(lib.Symbols))
		for _, s := range lib.Symbols {
			funcs = append(funcs, symbolDict(s))
		}
		imports = append(imports, ordereddict.NewDict().
			Set("dll", lib.Name).
			Set("functions", funcs))
	}

	debug := make([]*ordereddict.Dict, 0, len(r.Debug))
	for _, d := range r.Debug {
		debug = append(debug, ordereddict.NewDict().
			Set("type", d.Type).
			Set("timestamp", d.TimeDateStamp).
			Set("version", fmt.Sprintf("%d.%d", d.MajorVersion, d.MinorVersion)).
			Set("size", d.SizeOfData).
			Set("address", d.AddressOfRawData).
			Set("pointer", d.PointerToRawData))
	}

	mismatches := make([]*ordereddict.Dict, 0, len(r.Mismatches))
	for _, m := range r.Mismatches {
		mismatches = append(mismatches, ordereddict.NewDict().
			Set("field", m.Field).
			Set("ours", m.Ours).
			Set("saferwall", m.Ref))
	}

	yara := r.Yara
	if yara == nil {
		yara = []string{}
	}

	return ordereddict.NewDict().
		Set("file", r.Path).
		Set("size", r.Size).
		Set("file_type", r.FileKind).
		Set("language", r.Language).
		Set("machine", r.Machine).
		Set("bits", r.Bits()).
		Set("risk_score", r.Risk.Score).
		Set("verdict", string(r.Verdict)).
		Set("hashes", ordereddict.NewDict().
			Set("md5", r.Sums.MD5).
			Set("sha256", r.Sums.SHA256).
			Set("ssdeep", r.Sums.SSDEEP)).
		Set("headers", headersDict(r.Image)).
		Set("sections", sections).
		Set("imports", imports).
		Set("debug", debug).
		Set("mismatches", mismatches).
		Set("yara", yara)
}

// headersDict returns the header fields, or null for a report without a
// parsed image.
func headersDict(img *pe.Image) any {
	if img == nil {
		return nil
	}
	fh := img.NTHeader.FileHeader
	opt := img.NTHeader.OptionalHeader
	return ordereddict.NewDict().
		Set("pe_offset", img.DOSHeader.PEOffset).
		Set("machine", fh.Machine).
		Set("number_of_sections", fh.NumberOfSections).
		Set("timestamp", fh.TimeDateStamp).
		Set("characteristics", fh.Characteristics).
		Set("magic", opt.Magic).
		Set("entry_point", opt.AddressOfEntryPoint).
		Set("image_base", opt.ImageBase).
		Set("section_alignment", opt.SectionAlignment).
		Set("file_alignment", opt.FileAlignment).
		Set("size_of_image", opt.SizeOfImage).
		Set("size_of_headers", opt.SizeOfHeaders).
		Set("subsystem", opt.Subsystem).
		Set("dll_characteristics", opt.DllCharacteristics).
		Set("import_directory_rva", opt.ImportDirRVA).
		Set("import_directory_size", opt.ImportDirSize)
}

// symbolDict always carries every key; ordinal is 0 unless the symbol is
// imported by ordinal.
func symbolDict(s pe.Symbol) *ordereddict.Dict {
	return ordereddict.NewDict().
		Set("name", s.Name).
		Set("by_ordinal", s.Kind == pe.ByOrdinal).
		Set("ordinal", s.Ordinal).
		Set("suspicious", s.Kind == pe.ByName && risk.IsSuspicious(s.Name))
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *Report) error {
	b, err := json.MarshalIndent(r.Dict(), "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}
