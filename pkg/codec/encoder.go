package codec

import "fmt"

// Encoder packs one block of channel samples plus buffered aux words into a
// logical-channel matrix: slice packing per channel row, the 48 kHz
// compaction pass, aux fan-out, then the parity pass. The matrix is left
// ready for serialization.
type Encoder struct {
	rate Rate
}

// NewEncoder returns an encoder for the given rate.
func NewEncoder(rate Rate) (*Encoder, error) {
	if !rate.Valid() {
		return nil, fmt.Errorf("codec: unsupported rate %d", rate)
	}
	return &Encoder{rate: rate}, nil
}

// Rate returns the encoder's sample rate.
func (e *Encoder) Rate() Rate { return e.rate }

// EncodeBlock builds m from one block of samples in round-major order
// (channel 0..23 of round 0, then round 1, ...). len(samples) must equal
// rate.BlockSamples(). The channel-0 marker must be present on every
// channel-0 slot and absent elsewhere; any mismatch returns ErrMisaligned,
// which callers must treat as fatal. aux may be nil or short, in which case
// the aux rows carry filler.
func (e *Encoder) EncodeBlock(m *Matrix, samples []Sample, aux []AuxWord) error {
	want := e.rate.BlockSamples()
	if len(samples) != want {
		return fmt.Errorf("codec: block needs %d samples, got %d", want, len(samples))
	}
	for i, s := range samples {
		if s.C0 != (i%AudioChannels == 0) {
			return ErrMisaligned
		}
	}

	m.ResetFill()

	rounds := e.rate.SamplesPerChannel()
	for ch := 0; ch < AudioChannels; ch++ {
		row := AudioRow(ch)
		for sl := 0; sl < rounds/2; sl++ {
			a := samples[2*sl*AudioChannels+ch]
			b := samples[(2*sl+1)*AudioChannels+ch]
			if e.rate == Rate48000 {
				writeSlice48(m, row, 2*sl, PackSlice48(a, b))
			} else {
				slice := PackSlice441(a, b)
				m.SetCell(row, 2*sl, uint32(slice))
				m.SetCell(row, 2*sl+1, uint32(slice>>32))
			}
		}
		if e.rate == Rate48000 {
			compactRow48(m, row)
		}
	}

	if AuxBlockReady(aux, e.rate) {
		packAux(m, aux, e.rate)
	} else {
		packAux(m, nil, e.rate)
	}

	ApplyParity(m, e.rate.Columns())

	if err := m.Coverage(e.rate.Columns()); err != nil {
		return err
	}
	return nil
}
