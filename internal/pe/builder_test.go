package pe

import (
	"encoding/binary"
	"testing"
)

const testPEOffset = 0x40

type testSection struct {
	name    string
	va      uint32
	vsize   uint32
	rawPtr  uint32
	rawSize uint32
	data    []byte
}

type testImage struct {
	is64        bool
	sections    []testSection
	numSections int // overrides NumberOfSections when non-zero
	importRVA   uint32
	importSize  uint32
	pad         int // zero bytes appended after the section table
}

func optionalHeaderSize(is64 bool) uint16 {
	if is64 {
		return 240
	}
	return 224
}

func sectionTableOffset(is64 bool) int {
	return testPEOffset + 4 + FileHeaderSize + int(optionalHeaderSize(is64))
}

// buildImage lays out a minimal PE image: DOS header, NT headers, section
// table, then each section's data at its raw pointer.
func buildImage(t testing.TB, ti testImage) []byte {
	t.Helper()

	tableOff := sectionTableOffset(ti.is64)
	size := tableOff + SectionEntrySize*len(ti.sections) + ti.pad
	for _, s := range ti.sections {
		if end := int(s.rawPtr + s.rawSize); s.rawSize > 0 && end > size {
			size = end
		}
	}
	b := make([]byte, size)
	le := binary.LittleEndian

	le.PutUint16(b[0:], DOSSignature)
	le.PutUint32(b[dosPEOffsetField:], testPEOffset)

	nt := b[testPEOffset:]
	le.PutUint32(nt[0:], NTSignature)
	fh := nt[4:]
	machine := uint16(0x14c)
	if ti.is64 {
		machine = 0x8664
	}
	count := len(ti.sections)
	if ti.numSections != 0 {
		count = ti.numSections
	}
	le.PutUint16(fh[0:], machine)
	le.PutUint16(fh[2:], uint16(count))
	le.PutUint32(fh[4:], 0x5f000000)
	le.PutUint16(fh[16:], optionalHeaderSize(ti.is64))
	le.PutUint16(fh[18:], 0x0102)

	opt := fh[FileHeaderSize:]
	le.PutUint32(opt[optAddressOfEntryPoint:], 0x1000)
	le.PutUint32(opt[optSectionAlignment:], 0x1000)
	le.PutUint32(opt[optFileAlignment:], 0x200)
	le.PutUint32(opt[optSizeOfImage:], 0x10000)
	le.PutUint32(opt[optSizeOfHeaders:], 0x200)
	le.PutUint16(opt[optSubsystem:], 3)
	le.PutUint16(opt[optDllCharacteristics:], 0x8160)
	dirs := optNumberOfRvaAndSizes32
	if ti.is64 {
		le.PutUint16(opt[0:], OptionalMagic64)
		le.PutUint64(opt[optImageBase64:], 0x140000000)
		dirs = optNumberOfRvaAndSizes64
	} else {
		le.PutUint16(opt[0:], OptionalMagic32)
		le.PutUint32(opt[optImageBase32:], 0x400000)
	}
	le.PutUint32(opt[dirs:], 16)
	le.PutUint32(opt[dirs+4+dataDirectorySize:], ti.importRVA)
	le.PutUint32(opt[dirs+8+dataDirectorySize:], ti.importSize)

	for i, s := range ti.sections {
		e := b[tableOff+i*SectionEntrySize:]
		copy(e[:8], s.name)
		le.PutUint32(e[secVirtualSize:], s.vsize)
		le.PutUint32(e[secVirtualAddress:], s.va)
		le.PutUint32(e[secSizeOfRawData:], s.rawSize)
		le.PutUint32(e[secPointerToRawData:], s.rawPtr)
		le.PutUint32(e[secCharacteristics:], 0x60000020)
		if s.rawSize > 0 {
			copy(b[s.rawPtr:s.rawPtr+s.rawSize], s.data)
		}
	}

	return b
}

// idata is a scratch buffer for an import section; offsets are relative
// to the section start and rvas are section VA + offset.
type idata struct {
	va  uint32
	buf []byte
}

func newIdata(va uint32, size int) *idata {
	return &idata{va: va, buf: make([]byte, size)}
}

func (d *idata) rva(off int) uint32 {
	return d.va + uint32(off)
}

func (d *idata) descriptor(off int, oft, name, ft uint32) {
	binary.LittleEndian.PutUint32(d.buf[off:], oft)
	binary.LittleEndian.PutUint32(d.buf[off+12:], name)
	binary.LittleEndian.PutUint32(d.buf[off+16:], ft)
}

func (d *idata) thunks32(off int, vals ...uint32) {
	for i, v := range vals {
		binary.LittleEndian.PutUint32(d.buf[off+4*i:], v)
	}
}

func (d *idata) thunks64(off int, vals ...uint64) {
	for i, v := range vals {
		binary.LittleEndian.PutUint64(d.buf[off+8*i:], v)
	}
}

func (d *idata) str(off int, s string) {
	copy(d.buf[off:], s)
}

// hintName writes a hint/name record: 2-byte hint then the name.
func (d *idata) hintName(off int, hint uint16, name string) {
	binary.LittleEndian.PutUint16(d.buf[off:], hint)
	copy(d.buf[off+2:], name)
}

func (d *idata) section() testSection {
	return testSection{
		name:    ".idata",
		va:      d.va,
		vsize:   uint32(len(d.buf)),
		rawPtr:  0x400,
		rawSize: uint32(len(d.buf)),
		data:    d.buf,
	}
}
