package codec

import "testing"

func pcm24(v int32) int32 {
	return v << 8 >> 8
}

func TestSlice48RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		a, b Sample
	}{
		{"zero and full scale", Sample{PCM: 0, C0: true}, Sample{PCM: pcm24(0xFFFFFF)}},
		{"full scale and zero", Sample{PCM: pcm24(0xFFFFFF), C0: true}, Sample{PCM: 0}},
		{"alternating bits", Sample{PCM: pcm24(0xAAAAAA)}, Sample{PCM: pcm24(0x555555)}},
		{"negative one", Sample{PCM: -1}, Sample{PCM: -1, C0: true}},
		{"min positive", Sample{PCM: 1}, Sample{PCM: pcm24(0x800000)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			slice := PackSlice48(tc.a, tc.b)
			if slice>>SliceBits48 != 0 {
				t.Fatalf("slice has bits above %d: %#x", SliceBits48, slice)
			}
			a, b := UnpackSlice48(slice)
			if a != tc.a || b != tc.b {
				t.Errorf("round trip: got (%+v, %+v), want (%+v, %+v)", a, b, tc.a, tc.b)
			}
		})
	}
}

func TestSlice48PadBitsZero(t *testing.T) {
	slice := PackSlice48(Sample{PCM: -1, C0: true}, Sample{PCM: -1})
	for _, bit := range []int{padSplit48, padSplit48 + 1} {
		if slice>>uint(bit)&1 != 0 {
			t.Errorf("pad bit %d not zero", bit)
		}
	}
}

// The naive pad split one position below the measured one silently corrupts
// bit 21 of the B sample. Packing at the real split and unpacking at the
// naive one must therefore disagree on exactly that bit.
func TestSlice48NaivePadSplitCorruptsB(t *testing.T) {
	a := Sample{PCM: 0, C0: true}
	b := Sample{PCM: pcm24(0xFFFFFF)}

	slice := packSlice48At(wireWord48(a), wireWord48(b), padSplit48)

	wa, wb := unpackSlice48At(slice, padSplit48)
	if got := sampleFromWire48(wa); got != a {
		t.Fatalf("matched split: A = %+v, want %+v", got, a)
	}
	if got := sampleFromWire48(wb); got != b {
		t.Fatalf("matched split: B = %+v, want %+v", got, b)
	}

	wa, wb = unpackSlice48At(slice, padSplit48-1)
	if got := sampleFromWire48(wa); got != a {
		t.Errorf("naive split altered A: got %+v", got)
	}
	got := sampleFromWire48(wb)
	if got == b {
		t.Fatal("naive split decoded B intact; expected a lost PCM bit")
	}
	if diff := uint32(got.PCM^b.PCM) & pcmMask; diff != 1<<21 {
		t.Errorf("naive split corrupted bits %#x of B, want only bit 21", diff)
	}
}

func TestSlice441RoundTrip(t *testing.T) {
	cases := []struct {
		a, b Sample
	}{
		{Sample{PCM: 0, C0: true}, Sample{PCM: pcm24(0xFFFFFF)}},
		{Sample{PCM: pcm24(0xABCDEF)}, Sample{PCM: pcm24(0x123456), C0: true}},
		{Sample{PCM: -1}, Sample{PCM: -1}},
	}
	for _, tc := range cases {
		slice := PackSlice441(tc.a, tc.b)
		if slice>>27&0x1F != 0 || slice>>59 != 0 {
			t.Errorf("pad bits not zero in slice %#x", slice)
		}
		a, b := UnpackSlice441(slice)
		if a != tc.a || b != tc.b {
			t.Errorf("round trip: got (%+v, %+v), want (%+v, %+v)", a, b, tc.a, tc.b)
		}
	}
}

// Compaction must shift slices together without slipping a bit. Writing six
// known slices, compacting, then reading them back through the positional
// reader exercises the full staged-to-wire path of one row.
func TestCompactRow48(t *testing.T) {
	m := NewMatrix()
	var want [6]uint64
	pairs := [6][2]Sample{
		{{PCM: 0, C0: true}, {PCM: pcm24(0xFFFFFF)}},
		{{PCM: pcm24(0xFFFFFF), C0: true}, {PCM: 0}},
		{{PCM: pcm24(0xAAAAAA), C0: true}, {PCM: pcm24(0x555555)}},
		{{PCM: 1, C0: true}, {PCM: pcm24(0x800000)}},
		{{PCM: pcm24(0xF0F0F0), C0: true}, {PCM: pcm24(0x0F0F0F)}},
		{{PCM: -1, C0: true}, {PCM: -1}},
	}
	for sl, p := range pairs {
		want[sl] = PackSlice48(p[0], p[1])
		writeSlice48(m, 0, 2*sl, want[sl])
	}
	compactRow48(m, 0)

	got := rowSlices48(m, 0)
	for sl := range want {
		if got[sl] != want[sl] {
			t.Errorf("slice %d: got %#x, want %#x", sl, got[sl], want[sl])
		}
	}
	if top := m.Cell(0, 10) >> 28; top != 0 {
		t.Errorf("top 4 bits of final word not zero: %#x", top)
	}
}

func TestRowBits(t *testing.T) {
	m := NewMatrix()
	m.SetCell(3, 0, 0xDEADBEEF)
	m.SetCell(3, 1, 0x01234567)

	if got := rowBits(m, 3, 0, 32); got != 0xDEADBEEF {
		t.Errorf("aligned read: got %#x", got)
	}
	if got := rowBits(m, 3, 28, 8); got != 0x7D {
		t.Errorf("straddling read: got %#x, want 0x7d", got)
	}
	if got := rowBits(m, 3, 4, 4); got != 0xE {
		t.Errorf("mid-word read: got %#x, want 0xe", got)
	}
}
