package pe

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log"
)

// Field offsets from the start of the optional header. Offsets up to
// SizeOfHeaders are shared; ImageBase and the directory count move
// with the layout.
const (
	optAddressOfEntryPoint   = 16
	optImageBase64           = 24
	optImageBase32           = 28
	optSectionAlignment      = 32
	optFileAlignment         = 36
	optSizeOfImage           = 56
	optSizeOfHeaders         = 60
	optSubsystem             = 68
	optDllCharacteristics    = 70
	optNumberOfRvaAndSizes32 = 92
	optNumberOfRvaAndSizes64 = 108

	dataDirectorySize = 8
)

// Section table entry field offsets.
const (
	secVirtualSize      = 8
	secVirtualAddress   = 12
	secSizeOfRawData    = 16
	secPointerToRawData = 20
	secCharacteristics  = 36
)

// parser holds the state of a single Parse call.
type parser struct {
	r    io.ReaderAt
	c    *cursor
	size int64
	img  *Image
}

// Parse validates the PE headers of the size bytes behind r and returns
// the header and section model. Any structural failure aborts the parse.
func Parse(r io.ReaderAt, size int64) (*Image, error) {
	if size < MinFileSize || size > MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (allowed %d..%d)", ErrFileSize, size, MinFileSize, MaxFileSize)
	}

	p := &parser{
		r:    r,
		c:    newCursor(r, 0),
		size: size,
		img:  &Image{Size: size},
	}

	if err := p.parseDOSHeader(); err != nil {
		return nil, err
	}
	if err := p.parseNTHeaders(); err != nil {
		return nil, err
	}
	p.parseSectionHeaders()

	return p.img, nil
}

func truncated(what string, off int64, err error) error {
	return fmt.Errorf("%w: reading %s at 0x%x: %v", ErrTruncated, what, off, err)
}

// parseDOSHeader - checks "MZ" and the e_lfanew bounds.
func (p *parser) parseDOSHeader() error {
	p.c.seek(0)
	magic, err := p.c.u16()
	if err != nil {
		return truncated("DOS signature", 0, err)
	}
	if magic != DOSSignature {
		return fmt.Errorf("%w: 0x%04x", ErrDOSSignature, magic)
	}

	p.c.seek(dosPEOffsetField)
	off, err := p.c.u32()
	if err != nil {
		return truncated("e_lfanew", dosPEOffsetField, err)
	}
	if off < DOSHeaderSize || int64(off) >= p.size {
		return fmt.Errorf("%w: 0x%x (file size %d)", ErrHeaderOffset, off, p.size)
	}

	p.img.DOSHeader = DOSHeader{Magic: magic, PEOffset: off}
	return nil
}

// parseNTHeaders - signature, file header and optional header.
func (p *parser) parseNTHeaders() error {
	nt := &p.img.NTHeader
	start := int64(p.img.DOSHeader.PEOffset)

	p.c.seek(start)
	sig, err := p.c.u32()
	if err != nil {
		return truncated("PE signature", start, err)
	}
	if sig != NTSignature {
		return fmt.Errorf("%w: 0x%08x", ErrNTSignature, sig)
	}
	nt.Signature = sig

	var raw [FileHeaderSize]byte
	if err := p.c.fill(raw[:]); err != nil {
		return truncated("file header", start+4, err)
	}
	nt.FileHeader = FileHeader{
		Machine:              binary.LittleEndian.Uint16(raw[0:2]),
		NumberOfSections:     binary.LittleEndian.Uint16(raw[2:4]),
		TimeDateStamp:        binary.LittleEndian.Uint32(raw[4:8]),
		PointerToSymbolTable: binary.LittleEndian.Uint32(raw[8:12]),
		NumberOfSymbols:      binary.LittleEndian.Uint32(raw[12:16]),
		SizeOfOptionalHeader: binary.LittleEndian.Uint16(raw[16:18]),
		Characteristics:      binary.LittleEndian.Uint16(raw[18:20]),
	}
	if nt.FileHeader.SizeOfOptionalHeader == 0 {
		return ErrOptionalHeaderSize
	}

	return p.parseOptionalHeader(start + 4 + FileHeaderSize)
}

// parseOptionalHeader - decides PE32 vs PE32+ from the magic and decodes
// the named fields at their layout-specific offsets.
func (p *parser) parseOptionalHeader(start int64) error {
	opt := &p.img.NTHeader.OptionalHeader

	p.c.seek(start)
	magic, err := p.c.u16()
	if err != nil {
		return truncated("optional header magic", start, err)
	}
	switch magic {
	case OptionalMagic32:
		p.img.Is64Bit = false
	case OptionalMagic64:
		p.img.Is64Bit = true
	default:
		return fmt.Errorf("%w: 0x%04x", ErrOptionalMagic, magic)
	}
	opt.Magic = magic

	u16 := func(field int64, dst *uint16) error {
		p.c.seek(start + field)
		v, err := p.c.u16()
		if err != nil {
			return truncated("optional header", start+field, err)
		}
		*dst = v
		return nil
	}
	u32 := func(field int64, dst *uint32) error {
		p.c.seek(start + field)
		v, err := p.c.u32()
		if err != nil {
			return truncated("optional header", start+field, err)
		}
		*dst = v
		return nil
	}

	dirCountField := int64(optNumberOfRvaAndSizes32)
	if p.img.Is64Bit {
		dirCountField = optNumberOfRvaAndSizes64
		p.c.seek(start + optImageBase64)
		base, err := p.c.u64()
		if err != nil {
			return truncated("image base", start+optImageBase64, err)
		}
		opt.ImageBase = base
	} else {
		var base uint32
		if err := u32(optImageBase32, &base); err != nil {
			return err
		}
		opt.ImageBase = uint64(base)
	}

	for _, f := range []struct {
		off int64
		dst *uint32
	}{
		{optAddressOfEntryPoint, &opt.AddressOfEntryPoint},
		{optSectionAlignment, &opt.SectionAlignment},
		{optFileAlignment, &opt.FileAlignment},
		{optSizeOfImage, &opt.SizeOfImage},
		{optSizeOfHeaders, &opt.SizeOfHeaders},
		{dirCountField, &opt.NumberOfRvaAndSizes},
	} {
		if err := u32(f.off, f.dst); err != nil {
			return err
		}
	}
	if err := u16(optSubsystem, &opt.Subsystem); err != nil {
		return err
	}
	if err := u16(optDllCharacteristics, &opt.DllCharacteristics); err != nil {
		return err
	}

	// Directory 0 is the export table; the import table is entry 1.
	if opt.NumberOfRvaAndSizes > 1 {
		importField := dirCountField + 4 + dataDirectorySize
		if err := u32(importField, &opt.ImportDirRVA); err != nil {
			return err
		}
		if err := u32(importField+4, &opt.ImportDirSize); err != nil {
			return err
		}
	}

	return nil
}

// parseSectionHeaders - reads the section table in on-disk order. A short
// read stops the table but keeps the sections already decoded.
func (p *parser) parseSectionHeaders() {
	fh := p.img.NTHeader.FileHeader
	tableOff := int64(p.img.DOSHeader.PEOffset) + 4 + FileHeaderSize + int64(fh.SizeOfOptionalHeader)

	count := int(fh.NumberOfSections)
	if count > MaxSections {
		log.Printf("pe: NumberOfSections %d exceeds limit, reading first %d", count, MaxSections)
		count = MaxSections
	}

	p.c.seek(tableOff)
	p.img.Sections = make([]Section, 0, count)

	var raw [SectionEntrySize]byte
	for i := 0; i < count; i++ {
		entryOff := p.c.off
		if err := p.c.fill(raw[:]); err != nil {
			log.Printf("pe: section table truncated at entry %d (offset 0x%x): %v", i, entryOff, err)
			break
		}

		name := raw[:8]
		if n := bytes.IndexByte(name, 0); n >= 0 {
			name = name[:n]
		}
		sec := Section{
			Name:             string(name),
			VirtualSize:      binary.LittleEndian.Uint32(raw[secVirtualSize:]),
			VirtualAddress:   binary.LittleEndian.Uint32(raw[secVirtualAddress:]),
			SizeOfRawData:    binary.LittleEndian.Uint32(raw[secSizeOfRawData:]),
			PointerToRawData: binary.LittleEndian.Uint32(raw[secPointerToRawData:]),
			Characteristics:  binary.LittleEndian.Uint32(raw[secCharacteristics:]),
		}
		sec.Entropy = p.sectionEntropy(&sec)

		p.img.Sections = append(p.img.Sections, sec)
	}
}

// sectionEntropy streams the raw data of sec through a histogram. Ranges
// outside the file, and read errors, give 0.
func (p *parser) sectionEntropy(sec *Section) float64 {
	ptr, n := int64(sec.PointerToRawData), int64(sec.SizeOfRawData)
	if ptr <= 0 || n <= 0 || ptr+n > p.size {
		return 0
	}

	var h Histogram
	if _, err := io.Copy(&h, io.NewSectionReader(p.r, ptr, n)); err != nil {
		log.Printf("pe: reading section %q data: %v", sec.Name, err)
		return 0
	}
	return h.Entropy()
}
