package pe

import (
	"encoding/binary"
	"io"
	"log"
)

// SymbolKind tags how an import thunk was resolved.
type SymbolKind uint8

const (
	// Unresolved marks a by-name thunk whose name could not be read.
	Unresolved SymbolKind = iota
	ByName
	ByOrdinal
)

func (k SymbolKind) String() string {
	switch k {
	case ByName:
		return "name"
	case ByOrdinal:
		return "ordinal"
	}
	return "unresolved"
}

// Symbol is one imported function. Name is set only for ByName,
// Ordinal only for ByOrdinal.
type Symbol struct {
	Kind    SymbolKind
	Name    string
	Ordinal uint16
}

// NamedSymbol returns a ByName symbol.
func NamedSymbol(name string) Symbol {
	return Symbol{Kind: ByName, Name: name}
}

// OrdinalSymbol returns a ByOrdinal symbol.
func OrdinalSymbol(ord uint16) Symbol {
	return Symbol{Kind: ByOrdinal, Ordinal: ord}
}

// Library is one import descriptor: the DLL name and its symbols in
// thunk-array order.
type Library struct {
	Name    string
	Symbols []Symbol
}

const importDescriptorSize = 20

// importDescriptor - IMAGE_IMPORT_DESCRIPTOR.
type importDescriptor struct {
	OriginalFirstThunk uint32
	TimeDateStamp      uint32
	ForwarderChain     uint32
	Name               uint32
	FirstThunk         uint32
}

func (d importDescriptor) isTerminator() bool {
	return d.OriginalFirstThunk == 0 && d.Name == 0 && d.FirstThunk == 0
}

// walker holds the state of a single WalkImports call.
type walker struct {
	img   *Image
	c     *cursor
	width int
	flag  uint64
}

// WalkImports resolves the import directory of img against the same
// bytes it was parsed from. Libraries come back in descriptor order.
//
// A library whose name cannot be resolved ends the walk and the
// libraries found before it are returned. Unreadable thunk arrays and
// symbol names only degrade that library.
func WalkImports(r io.ReaderAt, img *Image) []Library {
	var libs []Library
	if !img.HasImports() {
		return libs
	}

	dirOff, err := img.RVAToOffset(img.NTHeader.OptionalHeader.ImportDirRVA)
	if err != nil {
		log.Printf("pe: import directory 0x%x: %v", img.NTHeader.OptionalHeader.ImportDirRVA, err)
		return libs
	}

	w := &walker{img: img, c: newCursor(r, 0)}
	w.width, w.flag = img.thunkWidth()

	var raw [importDescriptorSize]byte
	for off := dirOff; ; off += importDescriptorSize {
		w.c.seek(off)
		if err := w.c.fill(raw[:]); err != nil {
			log.Printf("pe: import descriptor at 0x%x: %v", off, err)
			break
		}
		d := importDescriptor{
			OriginalFirstThunk: binary.LittleEndian.Uint32(raw[0:4]),
			TimeDateStamp:      binary.LittleEndian.Uint32(raw[4:8]),
			ForwarderChain:     binary.LittleEndian.Uint32(raw[8:12]),
			Name:               binary.LittleEndian.Uint32(raw[12:16]),
			FirstThunk:         binary.LittleEndian.Uint32(raw[16:20]),
		}
		if d.isTerminator() {
			break
		}

		name, ok := w.stringAt(d.Name, 0)
		if !ok {
			log.Printf("pe: import descriptor at 0x%x has no readable name, stopping", off)
			break
		}

		libs = append(libs, Library{Name: name, Symbols: w.symbols(d)})
	}

	return libs
}

// symbols walks the thunk array of d. The hint table is preferred; the
// IAT is used when it is the only array present.
func (w *walker) symbols(d importDescriptor) []Symbol {
	var syms []Symbol

	rva := d.OriginalFirstThunk
	if rva == 0 {
		rva = d.FirstThunk
	}
	if rva == 0 {
		return syms
	}
	off, err := w.img.RVAToOffset(rva)
	if err != nil {
		log.Printf("pe: thunk array 0x%x: %v", rva, err)
		return syms
	}

	w.c.seek(off)
	for {
		entry, err := w.c.word(w.width)
		if err != nil || entry == 0 {
			break
		}
		next := w.c.off

		if entry&w.flag != 0 {
			syms = append(syms, OrdinalSymbol(uint16(entry)))
			continue
		}

		// Skip the 2-byte hint in front of the name.
		if name, ok := w.stringAt(uint32(entry), 2); ok {
			syms = append(syms, NamedSymbol(name))
		} else {
			syms = append(syms, Symbol{Kind: Unresolved})
		}
		w.c.seek(next)
	}

	return syms
}

// stringAt reads the NUL-terminated string skip bytes past rva. An empty
// string counts as a failure.
func (w *walker) stringAt(rva uint32, skip int64) (string, bool) {
	off, err := w.img.RVAToOffset(rva)
	if err != nil {
		return "", false
	}
	w.c.seek(off + skip)
	s, err := w.c.cstring(MaxNameLen)
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}
