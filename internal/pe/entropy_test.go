package pe

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntropy(t *testing.T) {
	assert.Equal(t, 0.0, Entropy(nil))
	assert.Equal(t, 0.0, Entropy([]byte{}))
	assert.Equal(t, 0.0, Entropy(make([]byte, 4096)))
	assert.Equal(t, 0.0, Entropy(bytes.Repeat([]byte{0xFF}, 100)))
	assert.InDelta(t, 1.0, Entropy([]byte("abababab")), 1e-9)
	assert.InDelta(t, 2.0, Entropy([]byte("abcd")), 1e-9)
	assert.InDelta(t, 8.0, Entropy(seq256()), 0.01)
}

func TestEntropyRandomApproachesEight(t *testing.T) {
	data := make([]byte, 1<<16)
	rand.New(rand.NewSource(1)).Read(data)

	e := Entropy(data)
	assert.Greater(t, e, 7.99)
	assert.LessOrEqual(t, e, 8.0)
}

func TestHistogramStreaming(t *testing.T) {
	data := make([]byte, 100_000)
	rand.New(rand.NewSource(7)).Read(data)

	var h Histogram
	n, err := io.Copy(&h, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.InDelta(t, Entropy(data), h.Entropy(), 1e-12)
}
