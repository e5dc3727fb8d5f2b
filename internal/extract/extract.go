// Package extract pulls printable text runs out of raw file bytes,
// independent of whether the file is a valid PE.
package extract

import (
	"encoding/binary"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	textunicode "golang.org/x/text/encoding/unicode"
)

// DefaultMinLen is the shortest run reported by default.
const DefaultMinLen = 4

func printable(b byte) bool {
	return b >= 32 && b <= 126
}

// ASCII returns every run of printable ASCII bytes that is at least
// minLen long, including a run that reaches the end of data.
func ASCII(data []byte, minLen int) []string {
	var results []string

	start := -1
	for i, c := range data {
		if printable(c) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 && i-start >= minLen {
			results = append(results, string(data[start:i]))
		}
		start = -1
	}
	if start >= 0 && len(data)-start >= minLen {
		results = append(results, string(data[start:]))
	}

	return results
}

// maxWideUnit bounds the BMP units accepted in a wide run to the
// Latin, Greek, Cyrillic, Hebrew and Arabic blocks; higher units are
// mostly noise in binary data.
const maxWideUnit = 0x800

func wideUnit(u uint16) bool {
	r := rune(u)
	return utf16.IsSurrogate(r) || (r < maxWideUnit && unicode.IsPrint(r))
}

// UTF16LE returns runs of little-endian UTF-16 code units that decode to
// printable text, the way wide strings are stored in PE resources and
// data sections. Surrogate pairs decode to one rune and a lone surrogate
// splits the run. Runs are aligned to even offsets and minLen counts
// runes.
func UTF16LE(data []byte, minLen int) []string {
	var results []string
	dec := textunicode.UTF16(textunicode.LittleEndian, textunicode.IgnoreBOM).NewDecoder()

	flush := func(run []byte) {
		if len(run)/2 < minLen {
			return
		}
		s, err := dec.String(string(run))
		if err != nil {
			return
		}
		for _, part := range strings.Split(s, string(utf8.RuneError)) {
			if utf8.RuneCountInString(part) >= minLen {
				results = append(results, part)
			}
		}
	}

	start := -1
	i := 0
	for ; i+1 < len(data); i += 2 {
		if wideUnit(binary.LittleEndian.Uint16(data[i:])) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			flush(data[start:i])
		}
		start = -1
	}
	if start >= 0 {
		flush(data[start:i])
	}

	return results
}

// All returns the ASCII runs followed by the UTF-16LE runs.
func All(data []byte, minLen int) []string {
	return append(ASCII(data, minLen), UTF16LE(data, minLen)...)
}
