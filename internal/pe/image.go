package pe

import "fmt"

// Signatures and fixed layout sizes.
const (
	DOSSignature     = 0x5A4D     // "MZ"
	NTSignature      = 0x00004550 // "PE\0\0"
	OptionalMagic32  = 0x10B      // PE32
	OptionalMagic64  = 0x20B      // PE32+
	DOSHeaderSize    = 64
	FileHeaderSize   = 20
	SectionEntrySize = 40

	dosPEOffsetField = 0x3C
)

// Resource caps for hostile input.
const (
	MaxFileSize = 100 << 20
	MinFileSize = DOSHeaderSize
	// MaxSections is the Windows loader limit; larger declared counts are clamped.
	MaxSections = 96
	// MaxNameLen caps every string read through an address translation.
	MaxNameLen = 512
)

// DOSHeader - the two DOS header fields the parser needs.
type DOSHeader struct {
	Magic    uint16
	PEOffset uint32 // e_lfanew
}

// FileHeader - COFF file header, identical for 32 and 64-bit images.
type FileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// Machine types the triage report names.
const (
	MachineI386  = 0x14c
	MachineARMNT = 0x1c4
	MachineAMD64 = 0x8664
	MachineARM64 = 0xaa64
)

// MachineName returns a short name for the machine type.
func (fh FileHeader) MachineName() string {
	switch fh.Machine {
	case MachineI386:
		return "x86"
	case MachineAMD64:
		return "x64"
	case MachineARMNT:
		return "ARM"
	case MachineARM64:
		return "ARM64"
	}
	return fmt.Sprintf("unknown (0x%04x)", fh.Machine)
}

// OptionalHeader - the optional header fields shared by PE32 and PE32+.
// ImageBase is widened to 64 bits for both layouts.
type OptionalHeader struct {
	Magic               uint16
	AddressOfEntryPoint uint32
	ImageBase           uint64
	SectionAlignment    uint32
	FileAlignment       uint32
	SizeOfImage         uint32
	SizeOfHeaders       uint32
	Subsystem           uint16
	DllCharacteristics  uint16
	NumberOfRvaAndSizes uint32
	ImportDirRVA        uint32
	ImportDirSize       uint32
}

// NTHeader - signature, file header and optional header.
type NTHeader struct {
	Signature      uint32
	FileHeader     FileHeader
	OptionalHeader OptionalHeader
}

// Section - one section table entry plus the entropy of its raw data.
type Section struct {
	Name             string
	VirtualSize      uint32
	VirtualAddress   uint32
	SizeOfRawData    uint32
	PointerToRawData uint32
	Characteristics  uint32
	Entropy          float64
}

// Image is the validated header and section model of one PE file.
// It is built once by Parse and only read afterwards.
type Image struct {
	Path      string
	Size      int64
	DOSHeader DOSHeader
	NTHeader  NTHeader
	Sections  []Section
	Is64Bit   bool
}

// HasImports reports whether the import data directory is populated.
func (img *Image) HasImports() bool {
	opt := img.NTHeader.OptionalHeader
	return opt.ImportDirRVA != 0 && opt.ImportDirSize != 0
}

// Section returns the first section with the given name, or nil.
func (img *Image) Section(name string) *Section {
	for i := range img.Sections {
		if img.Sections[i].Name == name {
			return &img.Sections[i]
		}
	}
	return nil
}

// thunkWidth returns the import thunk width in bytes and the ordinal flag bit.
func (img *Image) thunkWidth() (int, uint64) {
	if img.Is64Bit {
		return 8, 1 << 63
	}
	return 4, 1 << 31
}
