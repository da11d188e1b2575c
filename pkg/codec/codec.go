// Package codec implements the AES50 logical-channel framing codec: the
// 32x22 logical-channel matrix, the table-driven XOR parity engine, and the
// rate-dependent bit packing that turns blocks of multichannel PCM plus an
// auxiliary side channel into serialized network frames and back.
package codec

import (
	"errors"
	"fmt"
)

// ErrMisaligned is raised when the channel-0 marker is not observed at its
// expected position. It is fatal to the session: continuing would propagate
// silent channel-swap corruption, so the only valid response is a full
// external reset.
var ErrMisaligned = errors.New("codec: channel-0 marker misaligned")

// Sample is one 24-bit signed PCM value for one audio channel. C0 is the
// channel-0 marker, set on the sample occupying channel slot 0 of each
// round; it is carried on the wire and used for stream-alignment
// verification on both ends.
type Sample struct {
	PCM int32
	C0  bool
}

// AuxWord is one 16-bit word of the lower-rate auxiliary side channel.
// Ordinal (0-87) is the word's position in the secondary stream; Valid is
// cleared when the word is filler substituted for a missing aux block.
type AuxWord struct {
	Value   uint16
	Ordinal uint8
	Valid   bool
}

// Rate selects one of the two supported sample rates.
type Rate uint8

const (
	Rate48000 Rate = iota
	Rate44100
)

func (r Rate) String() string {
	switch r {
	case Rate48000:
		return "48000"
	case Rate44100:
		return "44100"
	default:
		return fmt.Sprintf("Rate(%d)", uint8(r))
	}
}

// Valid reports whether r is one of the two supported rates.
func (r Rate) Valid() bool {
	return r == Rate48000 || r == Rate44100
}

// SamplesPerChannel is the number of PCM samples each audio channel
// contributes to one block.
func (r Rate) SamplesPerChannel() int {
	if r == Rate48000 {
		return 12
	}
	return 22
}

// BlockSamples is the total sample count of one block across all channels.
func (r Rate) BlockSamples() int {
	return AudioChannels * r.SamplesPerChannel()
}

// Columns is the number of active subframe columns in one block.
func (r Rate) Columns() int {
	if r == Rate48000 {
		return ColumnsPerFrame
	}
	return NumColumns
}

// FramesPerBlock is the number of network frames carrying one block.
func (r Rate) FramesPerBlock() int {
	if r == Rate48000 {
		return 1
	}
	return 2
}

// AuxWords is the number of buffered aux words required before a block
// carries real aux data instead of filler.
func (r Rate) AuxWords() int {
	if r == Rate48000 {
		return 44
	}
	return 88
}
