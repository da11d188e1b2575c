// Package engine runs the two continuously clocked execution contexts of
// an AES50 endpoint: a sample-rate-paced domain and a network-paced domain,
// coupled only through the ping-pong buffer manager. Encode and decode
// pipelines are independent engines; a full-duplex endpoint runs one of
// each.
package engine

import (
	"time"

	"github.com/OpenMixerProject/AES50/pkg/codec"
)

// Config holds the settings shared by both pipeline directions.
type Config struct {
	// Rate selects 48 kHz or 44.1 kHz operation.
	Rate codec.Rate

	// Dst and Src are the frame header addresses (transmit side).
	Dst [6]byte
	Src [6]byte

	// AssmInterval is the number of blocks between frame-sync markers.
	// Zero disables the marker.
	AssmInterval int

	// InterframeGap is the timed wait between the two frames of a
	// 44.1 kHz block.
	InterframeGap time.Duration

	// PollInterval is the domain tick period used when cooperatively
	// waiting on the handshake or on upstream data.
	PollInterval time.Duration

	// SettleTicks is the consumer-side acknowledge delay in ticks.
	SettleTicks int

	// DebugFill enables the matrix fill-tracking bitmap, making encode
	// fail on any cell it would serialize without writing.
	DebugFill bool
}

func (c *Config) pollInterval() time.Duration {
	if c.PollInterval <= 0 {
		return 50 * time.Microsecond
	}
	return c.PollInterval
}
