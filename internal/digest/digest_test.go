package digest

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"testing"
	"testing/iotest"

	"github.com/glaslos/ssdeep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesKnownVectors(t *testing.T) {
	sums := Bytes([]byte("abc"))
	assert.Equal(t, "900150983cd24fb0d6963f7d28e17f72", sums.MD5)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sums.SHA256)
	assert.Empty(t, sums.SSDEEP)

	empty := Bytes(nil)
	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", empty.MD5)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", empty.SHA256)
}

func TestComputeFuzzyHash(t *testing.T) {
	data := make([]byte, 64<<10)
	rand.New(rand.NewSource(3)).Read(data)

	sums, err := Compute(bytes.NewReader(data))
	require.NoError(t, err)
	assert.NotEmpty(t, sums.SSDEEP)
	assert.Equal(t, Bytes(data), sums)
}

func TestComputeStreamsInChunks(t *testing.T) {
	data := make([]byte, 256<<10)
	rand.New(rand.NewSource(7)).Read(data)

	sums, err := Compute(iotest.HalfReader(bytes.NewReader(data)))
	require.NoError(t, err)
	assert.Equal(t, Bytes(data), sums)

	fuzzy, err := ssdeep.FuzzyBytes(data)
	require.NoError(t, err)
	assert.Equal(t, fuzzy, sums.SSDEEP)
}

func TestComputeErrorMidStream(t *testing.T) {
	r := io.MultiReader(bytes.NewReader(make([]byte, 8<<10)), iotest.ErrReader(errors.New("disk gone")))
	_, err := Compute(r)
	require.Error(t, err)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk gone") }

func TestComputeReadError(t *testing.T) {
	_, err := Compute(failingReader{})
	require.Error(t, err)
}
