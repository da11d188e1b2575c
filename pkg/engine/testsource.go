package engine

import "github.com/OpenMixerProject/AES50/pkg/codec"

// Built-in sources and sinks for link testing and soak runs. The real
// sample path sits behind the TDM serializer, which is outside this
// process; these stand-ins let the daemon exercise the full encode,
// hand-off and frame path on their own.

// PatternSource produces a deterministic 24-bit ramp on every channel with
// correct channel-0 markers. It never underruns.
type PatternSource struct {
	n uint64
}

// ReadSamples fills p completely.
func (s *PatternSource) ReadSamples(p []codec.Sample) (int, error) {
	for i := range p {
		p[i] = codec.Sample{
			PCM: int32(s.n&0xFFFFFF) << 8 >> 8,
			C0:  s.n%codec.AudioChannels == 0,
		}
		s.n++
	}
	return len(p), nil
}

// DiscardSink drops everything it is given.
type DiscardSink struct{}

func (DiscardSink) WriteSamples(p []codec.Sample) error { return nil }

func (DiscardSink) WriteAux(p []codec.AuxWord) error { return nil }
