package engine

import "sync/atomic"

// Stats is a point-in-time snapshot of an engine's counters.
type Stats struct {
	BlocksEncoded  uint64 `json:"blocks_encoded"`
	BlocksDecoded  uint64 `json:"blocks_decoded"`
	FramesSent     uint64 `json:"frames_sent"`
	FramesReceived uint64 `json:"frames_received"`
	AuxFillerUsed  uint64 `json:"aux_filler_used"`
	AuxResyncs     uint64 `json:"aux_resyncs"`
	Faults         uint64 `json:"faults"`
}

// counters backs Stats with atomics updated from both domains.
type counters struct {
	blocksEncoded  atomic.Uint64
	blocksDecoded  atomic.Uint64
	framesSent     atomic.Uint64
	framesReceived atomic.Uint64
	auxFillerUsed  atomic.Uint64
	auxResyncs     atomic.Uint64
	faults         atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		BlocksEncoded:  c.blocksEncoded.Load(),
		BlocksDecoded:  c.blocksDecoded.Load(),
		FramesSent:     c.framesSent.Load(),
		FramesReceived: c.framesReceived.Load(),
		AuxFillerUsed:  c.auxFillerUsed.Load(),
		AuxResyncs:     c.auxResyncs.Load(),
		Faults:         c.faults.Load(),
	}
}
