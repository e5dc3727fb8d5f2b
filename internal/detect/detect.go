// Package detect guesses what a sample is: its container kind from magic
// bytes and the toolchain that most likely produced it.
package detect

import (
	"strings"

	"github.com/h2non/filetype"

	"github.com/Sccrap/pe-triage/internal/pe"
)

// Kind is the magic-byte classification of a file.
type Kind struct {
	Extension string
	MIME      string
}

func (k Kind) String() string {
	if k.MIME == "" {
		return k.Extension
	}
	return k.Extension + " (" + k.MIME + ")"
}

// headerLen is how much of the file filetype needs to look at.
const headerLen = 262

// FileKind classifies data by its leading bytes.
func FileKind(data []byte) Kind {
	if len(data) > headerLen {
		data = data[:headerLen]
	}
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return Kind{Extension: "unknown"}
	}
	return Kind{Extension: kind.Extension, MIME: kind.MIME.Value}
}

var pythonLibs = []string{
	"python3.dll", "python3.12.dll", "python3.11.dll", "python3.10.dll",
	"python3.9.dll", "python3.8.dll", "python3.7.dll", "python3.6.dll",
	"python.dll", "pythondll.dll",
}

// Language guesses the source toolchain from imported library names and
// section names.
func Language(libs []pe.Library, sections []pe.Section) string {
	imports := make(map[string]bool, len(libs))
	for _, lib := range libs {
		imports[strings.ToLower(lib.Name)] = true
	}
	sectionNames := make(map[string]bool, len(sections))
	for _, s := range sections {
		sectionNames[strings.ToLower(s.Name)] = true
	}

	if imports["mscoree.dll"] {
		return ".NET (C#/VB.NET)"
	}
	for _, lib := range pythonLibs {
		if imports[lib] {
			return "Python"
		}
	}
	if imports["msvcp140.dll"] || imports["vcruntime140.dll"] || imports["msvcp120.dll"] {
		return "C/C++ (MSVC)"
	}
	if imports["libstdc++.dll"] || imports["libgcc_s.dll"] || imports["libwinpthread.dll"] {
		return "C/C++ (GCC/MinGW)"
	}
	if imports["rtl.bpl"] || imports["vcl.bpl"] {
		return "Delphi/Pascal"
	}
	if sectionNames[".symtab"] || (imports["kernel32.dll"] && imports["ntdll.dll"] && len(libs) <= 3) {
		return "Go"
	}
	if len(libs) == 1 && imports["kernel32.dll"] {
		return "Rust"
	}
	if sectionNames[".rsrc"] && len(libs) < 3 {
		return "AutoIt Script"
	}
	if imports["kernel32.dll"] || imports["ntdll.dll"] {
		return "C/C++"
	}
	if len(libs) > 0 {
		return "Unknown (likely compiled)"
	}
	return "Unknown"
}
