package pe

import (
	"bytes"
	"encoding/binary"
	"io"
)

// cursor - seek-then-read access to an io.ReaderAt with little-endian
// integer readers. Every Parse or walk builds its own cursor so no two
// callers share a file position.
type cursor struct {
	r   io.ReaderAt
	off int64
	buf [8]byte
}

func newCursor(r io.ReaderAt, off int64) *cursor {
	return &cursor{r: r, off: off}
}

func (c *cursor) seek(off int64) {
	c.off = off
}

func (c *cursor) skip(n int64) {
	c.off += n
}

// fill reads exactly len(p) bytes at the current position and advances.
func (c *cursor) fill(p []byte) error {
	if c.off < 0 {
		return io.ErrUnexpectedEOF
	}
	n, err := c.r.ReadAt(p, c.off)
	c.off += int64(n)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

func (c *cursor) u16() (uint16, error) {
	if err := c.fill(c.buf[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(c.buf[:2]), nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.fill(c.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(c.buf[:4]), nil
}

func (c *cursor) u64() (uint64, error) {
	if err := c.fill(c.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(c.buf[:8]), nil
}

// word reads a width-byte (4 or 8) little-endian value.
func (c *cursor) word(width int) (uint64, error) {
	if width == 8 {
		return c.u64()
	}
	v, err := c.u32()
	return uint64(v), err
}

// cstring reads a NUL-terminated string of at most max bytes. Hitting
// EOF ends the string; the error is only returned when nothing was read.
func (c *cursor) cstring(max int) (string, error) {
	if c.off < 0 {
		return "", io.ErrUnexpectedEOF
	}
	buf := make([]byte, max)
	n, err := c.r.ReadAt(buf, c.off)
	if n == 0 {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	buf = buf[:n]
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
		c.off += int64(i) + 1
	} else {
		c.off += int64(n)
	}
	return string(buf), nil
}
