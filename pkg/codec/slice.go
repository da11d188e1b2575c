package codec

// Sample slice packing. A slice carries two consecutive samples (A, B) of
// one channel, bit-interleaved least-significant-bit first: stream bit 2i is
// bit i of A's wire word, stream bit 2i+1 is bit i of B's.
//
// Wire words lead with the marker: bit 0 is the channel-0 marker, the next
// bits are reserved zeros, and the 24 PCM bits occupy the top of the word.
//
// 48 kHz: 28-bit wire words, 56-bit interleaved stream, two zero pad bits
// spliced in after stream bit 51 for a 58-bit slice stored as 29 bits in
// each of two adjacent cells. The split point 52 is one bit above the
// naively derived 51; the naive split loses a PCM bit of the B sample after
// compaction and is covered by a regression test.
//
// 44.1 kHz: 27-bit wire words, 54-bit stream, five zero pad bits after each
// 27 data bits for a 64-bit slice filling two cells exactly.

const (
	pcmMask = 0xFFFFFF

	wireBits48  = 28
	wireBits441 = 27

	// 48 kHz slice geometry.
	SliceBits48   = 58
	cellBits48    = 29
	padSplit48    = 52 // measured-correct split; 51 is the naive derivation
	rowDataBits48 = 6 * SliceBits48

	// 44.1 kHz slice geometry.
	SliceBits441 = 64
	cellBits441  = 27
)

func wireWord48(s Sample) uint32 {
	w := (uint32(s.PCM) & pcmMask) << 4
	if s.C0 {
		w |= 1
	}
	return w
}

func sampleFromWire48(w uint32) Sample {
	return Sample{
		PCM: int32((w>>4)&pcmMask) << 8 >> 8,
		C0:  w&1 != 0,
	}
}

func wireWord441(s Sample) uint32 {
	w := (uint32(s.PCM) & pcmMask) << 3
	if s.C0 {
		w |= 1
	}
	return w
}

func sampleFromWire441(w uint32) Sample {
	return Sample{
		PCM: int32((w>>3)&pcmMask) << 8 >> 8,
		C0:  w&1 != 0,
	}
}

// interleave merges the low n bits of a and b, LSB first, a leading.
func interleave(a, b uint32, n int) uint64 {
	var s uint64
	for i := 0; i < n; i++ {
		s |= uint64(a>>uint(i)&1) << uint(2*i)
		s |= uint64(b>>uint(i)&1) << uint(2*i+1)
	}
	return s
}

// deinterleave splits a 2n-bit stream back into two n-bit words.
func deinterleave(s uint64, n int) (a, b uint32) {
	for i := 0; i < n; i++ {
		a |= uint32(s>>uint(2*i)&1) << uint(i)
		b |= uint32(s>>uint(2*i+1)&1) << uint(i)
	}
	return a, b
}

// packSlice48At builds a 58-bit slice from two 28-bit wire words with the
// two zero pad bits spliced in at the given stream position. Production code
// always uses padSplit48; the split is a parameter so the off-by-one padding
// regression can probe the naive position.
func packSlice48At(wa, wb uint32, split int) uint64 {
	stream := interleave(wa, wb, wireBits48)
	low := stream & (1<<uint(split) - 1)
	high := stream >> uint(split)
	return low | high<<uint(split+2)
}

// unpackSlice48At inverts packSlice48At for the same split position.
func unpackSlice48At(slice uint64, split int) (wa, wb uint32) {
	stream := slice & (1<<uint(split) - 1)
	stream |= slice >> uint(split+2) << uint(split)
	return deinterleave(stream, wireBits48)
}

// PackSlice48 packs samples A and B into a 58-bit slice.
func PackSlice48(a, b Sample) uint64 {
	return packSlice48At(wireWord48(a), wireWord48(b), padSplit48)
}

// UnpackSlice48 recovers samples A and B from a 58-bit slice.
func UnpackSlice48(slice uint64) (a, b Sample) {
	wa, wb := unpackSlice48At(slice, padSplit48)
	return sampleFromWire48(wa), sampleFromWire48(wb)
}

// PackSlice441 packs samples A and B into a 64-bit slice: 27 interleaved
// bits, 5 pad bits, 27 bits, 5 pad bits. Each 32-bit half is one cell.
func PackSlice441(a, b Sample) uint64 {
	stream := interleave(wireWord441(a), wireWord441(b), wireBits441)
	low := stream & (1<<cellBits441 - 1)
	high := stream >> cellBits441
	return low | high<<32
}

// UnpackSlice441 recovers samples A and B from a 64-bit slice.
func UnpackSlice441(slice uint64) (a, b Sample) {
	stream := slice & (1<<cellBits441 - 1)
	stream |= slice >> 32 & (1<<cellBits441 - 1) << cellBits441
	wa, wb := deinterleave(stream, wireBits441)
	return sampleFromWire441(wa), sampleFromWire441(wb)
}

// writeSlice48 stages a 58-bit slice into the two cells at (row, col) and
// (row, col+1), 29 bits in the low part of each. Staged cells are compacted
// by compactRow48 once the whole row is written.
func writeSlice48(m *Matrix, row, col int, slice uint64) {
	m.SetCell(row, col, uint32(slice&(1<<cellBits48-1)))
	m.SetCell(row, col+1, uint32(slice>>cellBits48))
}

// compactRow48 merges the twelve staged 29-bit cells of one row into eleven
// contiguous 32-bit words, shifting each staged cell down against its
// predecessor. The 348 data bits leave the top four bits of the final word
// zero. Runs in place: the output pointer trails the staged cells it reads.
func compactRow48(m *Matrix, row int) {
	var acc uint64
	accBits := 0
	out := 0
	for col := 0; col < 12; col++ {
		acc |= uint64(m.Cell(row, col)&(1<<cellBits48-1)) << uint(accBits)
		accBits += cellBits48
		for accBits >= 32 {
			m.SetCell(row, out, uint32(acc))
			acc >>= 32
			accBits -= 32
			out++
		}
	}
	if accBits > 0 {
		m.SetCell(row, out, uint32(acc))
	}
}

// rowBits reads n bits (n <= 64) starting at bit position pos of a row's
// compacted little-endian word stream.
func rowBits(m *Matrix, row, pos, n int) uint64 {
	var v uint64
	got := 0
	for got < n {
		col := (pos + got) / 32
		off := (pos + got) % 32
		take := 32 - off
		if take > n-got {
			take = n - got
		}
		chunk := uint64(m.Cell(row, col)>>uint(off)) & (1<<uint(take) - 1)
		v |= chunk << uint(got)
		got += take
	}
	return v
}

// rowSlices48 reads the compacted eleven words of one row back as six
// 58-bit slices. The wire format already stores the compacted form, so no
// reorder pass exists on the receive side.
func rowSlices48(m *Matrix, row int) [6]uint64 {
	var slices [6]uint64
	for i := range slices {
		slices[i] = rowBits(m, row, i*SliceBits48, SliceBits48)
	}
	return slices
}
