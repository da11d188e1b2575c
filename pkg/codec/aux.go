package codec

// Aux side-channel packing. Aux words fan out four per subframe column into
// rows 24 and 25, two 16-bit words per cell (low half first). Word ordinals
// are positional on the wire: column c carries ordinals 4c through 4c+3.
// When fewer than a full block of words is buffered the encoder substitutes
// the filler pattern so frame timing is unaffected.

// AuxFiller is the constant pattern written to every aux cell of a block
// that carries no real aux data.
const AuxFiller uint32 = 0xE5E5E5E5

// AuxBlockReady reports whether the buffered words form a complete, in-order
// block for the rate: at least the threshold count, every word valid, every
// ordinal matching its position.
func AuxBlockReady(words []AuxWord, r Rate) bool {
	n := r.AuxWords()
	if len(words) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if !words[i].Valid || int(words[i].Ordinal) != i {
			return false
		}
	}
	return true
}

// AuxRealign drops the leading words of a buffer that failed AuxBlockReady:
// everything before the next valid ordinal-0 word, which can begin a fresh
// block. An empty result means the buffer held no realignment point and the
// caller starts over from the live stream.
func AuxRealign(words []AuxWord) []AuxWord {
	for i := 1; i < len(words); i++ {
		if words[i].Valid && words[i].Ordinal == 0 {
			return words[i:]
		}
	}
	return words[:0]
}

// packAux writes one block's aux rows. words must satisfy AuxBlockReady; pass
// nil to write filler.
func packAux(m *Matrix, words []AuxWord, r Rate) {
	cols := r.Columns()
	if words == nil {
		for col := 0; col < cols; col++ {
			m.SetCell(AuxRowA, col, AuxFiller)
			m.SetCell(AuxRowB, col, AuxFiller)
		}
		return
	}
	for col := 0; col < cols; col++ {
		w := words[4*col:]
		m.SetCell(AuxRowA, col, uint32(w[0].Value)|uint32(w[1].Value)<<16)
		m.SetCell(AuxRowB, col, uint32(w[2].Value)|uint32(w[3].Value)<<16)
	}
}

// unpackAux reads one block's aux rows back out in ordinal order. Words from
// filler cells are emitted with Valid cleared; parity is never consulted.
func unpackAux(m *Matrix, r Rate) []AuxWord {
	cols := r.Columns()
	words := make([]AuxWord, 0, r.AuxWords())
	for col := 0; col < cols; col++ {
		a := m.Cell(AuxRowA, col)
		b := m.Cell(AuxRowB, col)
		valid := a != AuxFiller || b != AuxFiller
		for i, v := range [4]uint16{
			uint16(a), uint16(a >> 16),
			uint16(b), uint16(b >> 16),
		} {
			words = append(words, AuxWord{
				Value:   v,
				Ordinal: uint8(4*col + i),
				Valid:   valid,
			})
		}
	}
	return words
}
