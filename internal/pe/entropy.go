package pe

import "math"

// Histogram counts byte values. It implements io.Writer so section data
// can be streamed through it without buffering the whole range.
type Histogram struct {
	counts [256]uint64
	total  uint64
}

func (h *Histogram) Write(p []byte) (int, error) {
	for _, b := range p {
		h.counts[b]++
	}
	h.total += uint64(len(p))
	return len(p), nil
}

// Entropy returns the Shannon entropy of the bytes written so far, in
// bits per byte. The result is in [0, 8]; no input gives 0.
func (h *Histogram) Entropy() float64 {
	if h.total == 0 {
		return 0
	}
	total := float64(h.total)
	var e float64
	for _, c := range h.counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		e -= p * math.Log2(p)
	}
	return e
}

// Entropy - Shannon entropy of data in bits per byte.
func Entropy(data []byte) float64 {
	var h Histogram
	h.Write(data)
	return h.Entropy()
}
