package pe

import (
	"fmt"
	"io"
)

// SectionData reads up to limit bytes of the raw data of sec from r, the
// bytes img was parsed from. A limit of 0 reads the whole raw range. The
// range must lie inside the file; a section without raw data gives an
// empty slice.
func (img *Image) SectionData(r io.ReaderAt, sec *Section, limit int) ([]byte, error) {
	ptr, n := int64(sec.PointerToRawData), int64(sec.SizeOfRawData)
	if n == 0 {
		return []byte{}, nil
	}
	if ptr+n > img.Size {
		return nil, fmt.Errorf("%w: %q at 0x%x+0x%x (file size %d)", ErrSectionRange, sec.Name, ptr, n, img.Size)
	}
	if limit > 0 && int64(limit) < n {
		n = int64(limit)
	}

	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, ptr); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading section %q: %w", sec.Name, err)
	}
	return buf, nil
}
