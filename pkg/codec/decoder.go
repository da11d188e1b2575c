package codec

import "fmt"

// Decoder reads audio and aux payload back out of a received matrix in
// original stream order. It is the mirror of the encoder minus the reorder
// pass: the wire format already stores the compacted 48 kHz form, so rows
// are read directly. Parity rows are never verified.
type Decoder struct {
	rate Rate
}

// NewDecoder returns a decoder for the given rate.
func NewDecoder(rate Rate) (*Decoder, error) {
	if !rate.Valid() {
		return nil, fmt.Errorf("codec: unsupported rate %d", rate)
	}
	return &Decoder{rate: rate}, nil
}

// Rate returns the decoder's sample rate.
func (d *Decoder) Rate() Rate { return d.rate }

// DecodeBlock emits one block of samples in round-major order together with
// the block's aux words. The channel-0 marker carried on the wire must land
// exactly on the channel-0 slot of every round; a mismatch returns
// ErrMisaligned and no data, since draining a slipped stream would hand
// every consumer the wrong channel.
func (d *Decoder) DecodeBlock(m *Matrix) ([]Sample, []AuxWord, error) {
	rounds := d.rate.SamplesPerChannel()
	samples := make([]Sample, d.rate.BlockSamples())

	for ch := 0; ch < AudioChannels; ch++ {
		row := AudioRow(ch)
		if d.rate == Rate48000 {
			slices := rowSlices48(m, row)
			for sl, slice := range slices {
				a, b := UnpackSlice48(slice)
				samples[2*sl*AudioChannels+ch] = a
				samples[(2*sl+1)*AudioChannels+ch] = b
			}
		} else {
			for sl := 0; sl < rounds/2; sl++ {
				slice := uint64(m.Cell(row, 2*sl)) | uint64(m.Cell(row, 2*sl+1))<<32
				a, b := UnpackSlice441(slice)
				samples[2*sl*AudioChannels+ch] = a
				samples[(2*sl+1)*AudioChannels+ch] = b
			}
		}
	}

	for i, s := range samples {
		if s.C0 != (i%AudioChannels == 0) {
			return nil, nil, ErrMisaligned
		}
	}

	return samples, unpackAux(m, d.rate), nil
}
