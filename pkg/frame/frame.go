// Package frame serializes logical-channel matrices to the AES50 wire
// format and parses received frames back. The 22-byte header layout and its
// constants are fixed by the protocol; the 8-bit header checksums are
// precomputed per rate/sync combination and never recomputed at runtime.
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/OpenMixerProject/AES50/pkg/codec"
)

// ErrBadLength is returned by Parse for byte streams that are not exactly
// one frame long.
var ErrBadLength = errors.New("frame: bad length")

// Header field values.
const (
	EtherTypeHi = 0x88
	EtherTypeLo = 0xDD

	ProtocolID = 0x01
	UserOctet  = 0x00

	FormatVersion  = 0x31
	FormatNormal   = 0x01
	FormatSync     = 0x11 // frame-sync (ASSM) marker set
	AudioFormat48k = 0x46 // 48 kHz / 24-bit
	AudioFormat441 = 0x06 // 44.1 kHz / 24-bit
	ContentCode    = 0x00
	ReservedOctet  = 0x00
)

// Frame sizes in bytes.
const (
	HeaderSize  = 22
	PayloadSize = codec.NumRows * codec.ColumnsPerFrame * 4
	FrameSize   = HeaderSize + PayloadSize
)

// checksumTable holds the precomputed header checksum for each rate/sync
// combination: [rate][assm].
var checksumTable = [2][2]byte{
	codec.Rate48000: {0x1a, 0xaa},
	codec.Rate44100: {0xcc, 0x7c},
}

// Checksum returns the fixed header checksum byte for the combination.
func Checksum(rate codec.Rate, assm bool) byte {
	i := 0
	if assm {
		i = 1
	}
	return checksumTable[rate][i]
}

// Header carries the configurable and per-frame header fields.
type Header struct {
	Dst  [6]byte
	Src  [6]byte
	Rate codec.Rate
	Assm bool
}

// Encode serializes the header plus the 11 matrix columns starting at
// firstColumn, row-major, 4 bytes per cell, least-significant byte first.
func Encode(h Header, m *codec.Matrix, firstColumn int) []byte {
	buf := make([]byte, FrameSize)
	copy(buf[0:6], h.Dst[:])
	copy(buf[6:12], h.Src[:])
	buf[12] = EtherTypeHi
	buf[13] = EtherTypeLo
	buf[14] = ProtocolID
	buf[15] = UserOctet
	buf[16] = FormatVersion
	if h.Assm {
		buf[17] = FormatSync
	} else {
		buf[17] = FormatNormal
	}
	if h.Rate == codec.Rate48000 {
		buf[18] = AudioFormat48k
	} else {
		buf[18] = AudioFormat441
	}
	buf[19] = ContentCode
	buf[20] = ReservedOctet
	buf[21] = Checksum(h.Rate, h.Assm)

	off := HeaderSize
	for row := 0; row < codec.NumRows; row++ {
		for col := firstColumn; col < firstColumn+codec.ColumnsPerFrame; col++ {
			binary.LittleEndian.PutUint32(buf[off:], m.Cell(row, col))
			off += 4
		}
	}
	return buf
}

// Frame is a parsed inbound frame. Header bytes are recorded, not
// validated: the detected rate and sync marker are diagnostics for the
// caller, and a frame with unrecognized format bytes still parses as long
// as its length is right.
type Frame struct {
	Dst         [6]byte
	Src         [6]byte
	FormatType  byte
	AudioFormat byte
	Checksum    byte
	Assm        bool
	Rate        codec.Rate
	RateKnown   bool
	payload     []byte
}

// Parse interprets a received byte stream as one frame. Only the length is
// checked; everything else is recorded as seen.
func Parse(data []byte) (*Frame, error) {
	if len(data) != FrameSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrBadLength, len(data), FrameSize)
	}
	f := &Frame{
		FormatType:  data[17],
		AudioFormat: data[18],
		Checksum:    data[21],
		Assm:        data[17] == FormatSync,
		payload:     data[HeaderSize:],
	}
	copy(f.Dst[:], data[0:6])
	copy(f.Src[:], data[6:12])
	switch data[18] {
	case AudioFormat48k:
		f.Rate, f.RateKnown = codec.Rate48000, true
	case AudioFormat441:
		f.Rate, f.RateKnown = codec.Rate44100, true
	}
	return f, nil
}

// FillMatrix writes the frame's payload into the 11 matrix columns starting
// at firstColumn, inverting Encode's cell order.
func (f *Frame) FillMatrix(m *codec.Matrix, firstColumn int) {
	off := 0
	for row := 0; row < codec.NumRows; row++ {
		for col := firstColumn; col < firstColumn+codec.ColumnsPerFrame; col++ {
			m.SetCell(row, col, binary.LittleEndian.Uint32(f.payload[off:]))
			off += 4
		}
	}
}

// IsAES50 reports whether the raw bytes look like an AES50 frame: correct
// length, type code and protocol identifier. Transport demultiplexing uses
// this; the decoder itself validates nothing.
func IsAES50(data []byte) bool {
	return len(data) == FrameSize &&
		data[12] == EtherTypeHi && data[13] == EtherTypeLo &&
		data[14] == ProtocolID
}
