package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Sccrap/pe-triage/internal/pe"
)

// WriteHeaders prints the DOS and NT headers. Image base and the magic
// note follow the PE32 or PE32+ layout.
func WriteHeaders(w io.Writer, img *pe.Image) error {
	bw := bufio.NewWriter(w)
	dos := img.DOSHeader
	fh := img.NTHeader.FileHeader
	opt := img.NTHeader.OptionalHeader

	fmt.Fprintln(bw, "=== DOS HEADER ===")
	fmt.Fprintf(bw, "Signature:          %c%c\n", byte(dos.Magic), byte(dos.Magic>>8))
	fmt.Fprintf(bw, "PE Offset:          0x%08x (%d)\n", dos.PEOffset, dos.PEOffset)

	fmt.Fprintln(bw, "\n=== NT HEADERS ===")
	fmt.Fprintln(bw, "Signature:          PE")

	fmt.Fprintln(bw, "\n--- File Header ---")
	fmt.Fprintf(bw, "Machine:            0x%04x (%s)\n", fh.Machine, fh.MachineName())
	fmt.Fprintf(bw, "Number of Sections: %d\n", fh.NumberOfSections)
	fmt.Fprintf(bw, "TimeDateStamp:      %d (0x%08x)\n", fh.TimeDateStamp, fh.TimeDateStamp)
	fmt.Fprintf(bw, "Characteristics:    0x%04x\n", fh.Characteristics)

	fmt.Fprintln(bw, "\n--- Optional Header ---")
	if img.Is64Bit {
		fmt.Fprintf(bw, "Magic:              0x%04x (PE32+/64-bit)\n", opt.Magic)
		fmt.Fprintf(bw, "Image Base:         0x%016x\n", opt.ImageBase)
	} else {
		fmt.Fprintf(bw, "Magic:              0x%04x (PE32/32-bit)\n", opt.Magic)
		fmt.Fprintf(bw, "Image Base:         0x%08x\n", opt.ImageBase)
	}
	fmt.Fprintf(bw, "Entry Point:        0x%08x\n", opt.AddressOfEntryPoint)
	fmt.Fprintf(bw, "Size of Image:      0x%08x (%d bytes)\n", opt.SizeOfImage, opt.SizeOfImage)
	fmt.Fprintf(bw, "Size of Headers:    0x%08x (%d bytes)\n", opt.SizeOfHeaders, opt.SizeOfHeaders)
	fmt.Fprintf(bw, "Subsystem:          0x%04x\n", opt.Subsystem)
	fmt.Fprintf(bw, "DllCharacteristics: 0x%04x\n", opt.DllCharacteristics)
	fmt.Fprintf(bw, "Section Alignment:  0x%08x\n", opt.SectionAlignment)
	fmt.Fprintf(bw, "File Alignment:     0x%08x\n", opt.FileAlignment)
	fmt.Fprintf(bw, "Data Directories:   %d\n", opt.NumberOfRvaAndSizes)
	fmt.Fprintf(bw, "Import Directory:   0x%08x (%d bytes)\n", opt.ImportDirRVA, opt.ImportDirSize)

	return bw.Flush()
}

const hexRowLen = 16

// WriteHexDump prints data as rows of 16 bytes with an ASCII column. Row
// offsets start at base, normally the file offset of data.
func WriteHexDump(w io.Writer, data []byte, base int64) error {
	bw := bufio.NewWriter(w)
	for i := 0; i < len(data); i += hexRowLen {
		row := data[i:min(i+hexRowLen, len(data))]

		fmt.Fprintf(bw, "%08x  ", base+int64(i))
		for j := 0; j < hexRowLen; j++ {
			if j < len(row) {
				fmt.Fprintf(bw, "%02x ", row[j])
			} else {
				bw.WriteString("   ")
			}
		}

		bw.WriteByte(' ')
		for _, b := range row {
			if b >= 32 && b <= 126 {
				bw.WriteByte(b)
			} else {
				bw.WriteByte('.')
			}
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteSectionDump prints the header line and hex dump of one section.
func WriteSectionDump(w io.Writer, sec *pe.Section, data []byte) error {
	name := sec.Name
	if name == "" {
		name = "(empty)"
	}
	if len(data) == 0 {
		_, err := fmt.Fprintf(w, "Section %s has no raw data\n", name)
		return err
	}
	if _, err := fmt.Fprintf(w, "=== Section: %s (first %d of %d bytes, file offset 0x%x) ===\n",
		name, len(data), sec.SizeOfRawData, sec.PointerToRawData); err != nil {
		return err
	}
	return WriteHexDump(w, data, int64(sec.PointerToRawData))
}
