// Package petest builds small PE32 images for tests outside package pe.
package petest

import (
	"encoding/binary"

	"github.com/Sccrap/pe-triage/internal/pe"
)

// URL is the string stored in the .text section of a Sample.
const URL = "http://malware.test/payload"

// Layout tweaks a Sample.
type Layout struct {
	// TextRawSize overrides the declared .text SizeOfRawData; the file
	// itself stays 0x600 bytes.
	TextRawSize uint32
}

// Sample returns a 0x600-byte 32-bit image. .text (raw 0x200) holds URL;
// .idata (raw 0x400, RVA 0x2000) imports KERNEL32.dll!VirtualAlloc and
// ordinal 16.
func Sample() []byte {
	return Build(Layout{})
}

// Build returns a Sample adjusted by l.
func Build(l Layout) []byte {
	le := binary.LittleEndian
	b := make([]byte, 0x600)

	le.PutUint16(b[0:], pe.DOSSignature)
	le.PutUint32(b[0x3c:], 0x40)
	le.PutUint32(b[0x40:], pe.NTSignature)

	fh := b[0x44:]
	le.PutUint16(fh[0:], pe.MachineI386)
	le.PutUint16(fh[2:], 2)
	le.PutUint32(fh[4:], 0x5f000000)
	le.PutUint16(fh[16:], 224)
	le.PutUint16(fh[18:], 0x0102)

	opt := fh[pe.FileHeaderSize:]
	le.PutUint16(opt[0:], pe.OptionalMagic32)
	le.PutUint32(opt[16:], 0x1000)
	le.PutUint32(opt[28:], 0x400000)
	le.PutUint32(opt[32:], 0x1000)
	le.PutUint32(opt[36:], 0x200)
	le.PutUint32(opt[56:], 0x3000)
	le.PutUint32(opt[60:], 0x200)
	le.PutUint16(opt[68:], 3)
	le.PutUint32(opt[92:], 16)
	le.PutUint32(opt[104:], 0x2000)
	le.PutUint32(opt[108:], 40)

	textRaw := uint32(0x200)
	if l.TextRawSize != 0 {
		textRaw = l.TextRawSize
	}

	table := b[0x40+4+pe.FileHeaderSize+224:]
	for i, s := range []struct {
		name         string
		va, ptr, raw uint32
	}{
		{".text", 0x1000, 0x200, textRaw},
		{".idata", 0x2000, 0x400, 0x200},
	} {
		e := table[i*pe.SectionEntrySize:]
		copy(e[:8], s.name)
		le.PutUint32(e[8:], 0x200)
		le.PutUint32(e[12:], s.va)
		le.PutUint32(e[16:], s.raw)
		le.PutUint32(e[20:], s.ptr)
		le.PutUint32(e[36:], 0x60000020)
	}

	copy(b[0x210:], URL)

	idata := b[0x400:]
	le.PutUint32(idata[0:], 0x2040)  // OriginalFirstThunk
	le.PutUint32(idata[12:], 0x2080) // Name
	le.PutUint32(idata[16:], 0x2060) // FirstThunk
	for _, off := range []int{0x40, 0x60} {
		le.PutUint32(idata[off:], 0x20a0)
		le.PutUint32(idata[off+4:], 0x80000010)
	}
	copy(idata[0x80:], "KERNEL32.dll")
	copy(idata[0xa2:], "VirtualAlloc")

	return b
}
