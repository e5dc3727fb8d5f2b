package pe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRVAToOffset(t *testing.T) {
	img := &Image{Sections: []Section{
		{Name: ".text", VirtualAddress: 0x1000, VirtualSize: 0x300, SizeOfRawData: 0x200, PointerToRawData: 0x400},
		{Name: ".data", VirtualAddress: 0x2000, VirtualSize: 0x100, SizeOfRawData: 0x200, PointerToRawData: 0x600},
	}}

	tests := []struct {
		name string
		rva  uint32
		off  int64
		err  error
	}{
		{"section start", 0x1000, 0x400, nil},
		{"inside raw range", 0x1123, 0x523, nil},
		{"last raw byte", 0x11FF, 0x5FF, nil},
		{"virtual tail start", 0x1200, 0, ErrRVAVirtualOnly},
		{"virtual tail end", 0x12FF, 0, ErrRVAVirtualOnly},
		{"gap between sections", 0x1300, 0, ErrRVAUnmapped},
		{"raw larger than virtual", 0x21FF, 0x7FF, nil},
		{"before first section", 0xFFF, 0, ErrRVAUnmapped},
		{"past last section", 0x2200, 0, ErrRVAUnmapped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			off, err := img.RVAToOffset(tt.rva)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.off, off)
		})
	}
}

func TestRVAToOffsetFirstMatchWins(t *testing.T) {
	img := &Image{Sections: []Section{
		{VirtualAddress: 0x1000, VirtualSize: 0x1000, SizeOfRawData: 0x1000, PointerToRawData: 0x400},
		{VirtualAddress: 0x1800, VirtualSize: 0x1000, SizeOfRawData: 0x1000, PointerToRawData: 0x8000},
	}}
	off, err := img.RVAToOffset(0x1900)
	require.NoError(t, err)
	assert.Equal(t, int64(0x400+0x900), off)

	// The first section's virtual tail shadows a later section that has file bytes.
	img = &Image{Sections: []Section{
		{VirtualAddress: 0x1000, VirtualSize: 0x1000, SizeOfRawData: 0x100, PointerToRawData: 0x400},
		{VirtualAddress: 0x1800, VirtualSize: 0x1000, SizeOfRawData: 0x1000, PointerToRawData: 0x8000},
	}}
	_, err = img.RVAToOffset(0x1900)
	require.ErrorIs(t, err, ErrRVAVirtualOnly)
}

func TestRVAToOffsetNoWraparound(t *testing.T) {
	img := &Image{Sections: []Section{
		{VirtualAddress: 0xFFFFF000, VirtualSize: 0x2000, SizeOfRawData: 0x2000, PointerToRawData: 0x400},
	}}
	_, err := img.RVAToOffset(0x10)
	require.ErrorIs(t, err, ErrRVAUnmapped)

	off, err := img.RVAToOffset(0xFFFFFFFF)
	require.NoError(t, err)
	assert.Equal(t, int64(0x400+0xFFF), off)
}

func TestRVAToOffsetNoSections(t *testing.T) {
	_, err := (&Image{}).RVAToOffset(0x1000)
	require.ErrorIs(t, err, ErrRVAUnmapped)
}

func TestRVAToOffsetDoesNotAllocate(t *testing.T) {
	img := &Image{Sections: []Section{
		{VirtualAddress: 0x1000, VirtualSize: 0x300, SizeOfRawData: 0x200, PointerToRawData: 0x400},
	}}
	allocs := testing.AllocsPerRun(100, func() {
		img.RVAToOffset(0x1100)
		img.RVAToOffset(0x1250)
		img.RVAToOffset(0x9000)
	})
	assert.Zero(t, allocs)
}
