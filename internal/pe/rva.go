package pe

// RVAToOffset translates a relative virtual address into a file offset.
//
// Sections are scanned in table order and the first one whose virtual
// range max(VirtualSize, SizeOfRawData) contains rva wins, even when a
// later section overlaps it. An address in the zero-filled tail past
// SizeOfRawData has no file bytes and fails with ErrRVAVirtualOnly.
func (img *Image) RVAToOffset(rva uint32) (int64, error) {
	for i := range img.Sections {
		s := &img.Sections[i]
		span := s.VirtualSize
		if s.SizeOfRawData > span {
			span = s.SizeOfRawData
		}
		start := uint64(s.VirtualAddress)
		if uint64(rva) < start || uint64(rva) >= start+uint64(span) {
			continue
		}
		delta := rva - s.VirtualAddress
		if delta >= s.SizeOfRawData {
			return 0, ErrRVAVirtualOnly
		}
		return int64(s.PointerToRawData) + int64(delta), nil
	}
	return 0, ErrRVAUnmapped
}
