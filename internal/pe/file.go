package pe

import (
	"bytes"
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"
)

// mappedFile is a read-only memory mapping of a file on disk, owned by a
// single ParseFile or WalkImportsFile call.
type mappedFile struct {
	f    *os.File
	data mmap.MMap
	*bytes.Reader
}

// openMapped maps path read-only after checking its size against the
// parser bounds, so oversized files are never mapped.
func openMapped(path string) (*mappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Size() < MinFileSize || st.Size() > MaxFileSize {
		f.Close()
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrFileSize, path, st.Size())
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	return &mappedFile{f: f, data: data, Reader: bytes.NewReader(data)}, nil
}

func (m *mappedFile) Close() error {
	err := m.data.Unmap()
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// ParseFile parses the PE file at path. The mapping is released before
// returning.
func ParseFile(path string) (*Image, error) {
	m, err := openMapped(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	img, err := Parse(m, m.Size())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	img.Path = path
	return img, nil
}

// WalkImportsFile re-opens path and walks the imports of img. It only
// fails when the file cannot be opened.
func WalkImportsFile(path string, img *Image) ([]Library, error) {
	m, err := openMapped(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	return WalkImports(m, img), nil
}

// SectionDataFile re-opens path and reads up to limit bytes of the raw data
// of the section called name.
func SectionDataFile(path string, img *Image, name string, limit int) (*Section, []byte, error) {
	sec := img.Section(name)
	if sec == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrNoSection, name)
	}

	m, err := openMapped(path)
	if err != nil {
		return nil, nil, err
	}
	defer m.Close()

	data, err := img.SectionData(m, sec, limit)
	if err != nil {
		return nil, nil, err
	}
	return sec, data, nil
}
