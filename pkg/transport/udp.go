// Package transport moves serialized AES50 frames over UDP. It stands in
// for the Ethernet-like physical transceiver: start/end-of-frame framing
// falls out of datagram boundaries, and anything that does not look like an
// AES50 frame is counted and dropped before it reaches the codec.
package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/OpenMixerProject/AES50/pkg/frame"
	"github.com/OpenMixerProject/AES50/pkg/logger"
)

// Metrics is a point-in-time snapshot of the transport counters.
type Metrics struct {
	FramesReceived uint64    `json:"frames_received"`
	FramesSent     uint64    `json:"frames_sent"`
	BytesReceived  uint64    `json:"bytes_received"`
	BytesSent      uint64    `json:"bytes_sent"`
	Discarded      uint64    `json:"discarded"`
	Started        time.Time `json:"started"`
}

// metricsState guards the live counters behind a mutex; snapshots are
// plain values safe to copy and serialize.
type metricsState struct {
	mu sync.Mutex
	m  Metrics
}

func (s *metricsState) snapshot() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m
}

// UDP is a frame transceiver over a UDP socket pair. WriteFrame sends to
// the configured remote; ReadFrame delivers inbound frames in arrival
// order.
type UDP struct {
	bindHost   string
	bindPort   int
	remoteAddr *net.UDPAddr

	conn    *net.UDPConn
	inbound chan []byte
	metrics *metricsState
	logger  *logger.Logger

	mu      sync.RWMutex
	running bool
}

// NewUDP creates a transport bound to bindHost:bindPort that sends frames
// to remoteHost:remotePort.
func NewUDP(bindHost string, bindPort int, remoteHost string, remotePort int, log *logger.Logger) (*UDP, error) {
	remote, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", remoteHost, remotePort))
	if err != nil {
		return nil, fmt.Errorf("transport: resolve remote: %w", err)
	}
	return &UDP{
		bindHost:   bindHost,
		bindPort:   bindPort,
		remoteAddr: remote,
		inbound:    make(chan []byte, 64),
		metrics:    &metricsState{m: Metrics{Started: time.Now()}},
		logger:     log.WithComponent("transport"),
	}, nil
}

// Start binds the socket and runs the receive loop until the context is
// cancelled.
func (u *UDP) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", u.bindHost, u.bindPort))
	if err != nil {
		return fmt.Errorf("transport: resolve bind address: %w", err)
	}

	u.conn, err = net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("transport: listen: %w", err)
	}

	u.mu.Lock()
	u.running = true
	u.mu.Unlock()

	u.logger.Info("transport listening",
		logger.String("bind", addr.String()),
		logger.String("remote", u.remoteAddr.String()))

	go u.readLoop(ctx)

	go func() {
		<-ctx.Done()
		u.Stop()
	}()

	return nil
}

// Stop closes the socket; the receive loop drains and closes the inbound
// queue on its way out.
func (u *UDP) Stop() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if !u.running {
		return
	}
	u.running = false
	if u.conn != nil {
		_ = u.conn.Close()
	}
}

// readLoop receives datagrams, filters non-AES50 traffic and queues frames
// for ReadFrame. A full queue drops the oldest pending frame first: stale
// audio is worse than missing audio.
func (u *UDP) readLoop(ctx context.Context) {
	defer close(u.inbound)
	buf := make([]byte, 2048)
	for {
		n, src, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() == nil {
				u.mu.RLock()
				running := u.running
				u.mu.RUnlock()
				if running {
					u.logger.Error("read error", logger.Error(err))
				}
			}
			return
		}

		data := make([]byte, n)
		copy(data, buf[:n])

		if !frame.IsAES50(data) {
			u.metrics.mu.Lock()
			u.metrics.m.Discarded++
			u.metrics.mu.Unlock()
			u.logger.Debug("discarding non-AES50 datagram",
				logger.String("src", src.String()),
				logger.Int("size", n))
			continue
		}

		u.metrics.mu.Lock()
		u.metrics.m.FramesReceived++
		u.metrics.m.BytesReceived += uint64(n)
		u.metrics.mu.Unlock()

		select {
		case u.inbound <- data:
		default:
			select {
			case <-u.inbound:
			default:
			}
			u.inbound <- data
		}
	}
}

// WriteFrame sends one frame to the remote endpoint.
func (u *UDP) WriteFrame(p []byte) error {
	u.mu.RLock()
	conn := u.conn
	running := u.running
	u.mu.RUnlock()
	if !running || conn == nil {
		return fmt.Errorf("transport: not running")
	}

	n, err := conn.WriteToUDP(p, u.remoteAddr)
	if err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}

	u.metrics.mu.Lock()
	u.metrics.m.FramesSent++
	u.metrics.m.BytesSent += uint64(n)
	u.metrics.mu.Unlock()
	return nil
}

// ReadFrame blocks until a frame arrives or the transport stops.
func (u *UDP) ReadFrame() ([]byte, error) {
	data, ok := <-u.inbound
	if !ok {
		return nil, fmt.Errorf("transport: closed")
	}
	return data, nil
}

// Metrics returns a snapshot of the transport counters.
func (u *UDP) Metrics() Metrics {
	return u.metrics.snapshot()
}
