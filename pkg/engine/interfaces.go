package engine

import "github.com/OpenMixerProject/AES50/pkg/codec"

// External collaborators at the codec boundary. The engine consumes and
// produces fixed-width sample words and flat frame bytes; electrical
// signaling, physical-layer checksums and clock recovery live behind these
// interfaces.

// SampleSource delivers 24-bit PCM samples in round-major channel order,
// with the channel-0 marker set on every channel-0 slot. ReadSamples fills
// up to len(p) samples and returns how many were available; zero with a nil
// error means the source has not accumulated more yet and the caller should
// poll again.
type SampleSource interface {
	ReadSamples(p []codec.Sample) (int, error)
}

// SampleSink accepts decoded samples in the same order.
type SampleSink interface {
	WriteSamples(p []codec.Sample) error
}

// AuxSource delivers auxiliary side-channel words tagged with their
// validity and per-block ordinal (0..87). Words are consumed; the engine
// buffers short reads across block boundaries.
type AuxSource interface {
	ReadAux(p []codec.AuxWord) (int, error)
}

// AuxSink accepts decoded aux words, filler included (Valid cleared).
type AuxSink interface {
	WriteAux(p []codec.AuxWord) error
}

// Transceiver moves serialized frames across the physical link. ReadFrame
// blocks until a frame arrives or the transceiver shuts down.
type Transceiver interface {
	WriteFrame(p []byte) error
	ReadFrame() ([]byte, error)
}
