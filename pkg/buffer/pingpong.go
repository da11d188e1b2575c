// Package buffer arbitrates exclusive ownership of two logical-channel
// matrices between the sample-paced domain and the network-paced domain.
// The two domains never share matrix memory: a matrix crosses the boundary
// only through the ready/acknowledge handshake, and every flag crossing the
// boundary is observed through a two-stage synchronizer: a flag raised in
// one domain becomes visible in the other only after two consecutive ticks
// of the destination domain. That debounce is a correctness requirement of
// the protocol, not an optimization.
package buffer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/OpenMixerProject/AES50/pkg/codec"
)

// Owner tags who currently holds a matrix instance.
type Owner uint8

const (
	// OwnerNone marks a matrix idle between hand-offs.
	OwnerNone Owner = iota
	// OwnerProducer marks a matrix being filled.
	OwnerProducer
	// OwnerConsumer marks a matrix committed to, or being drained by, the
	// consumer domain.
	OwnerConsumer
)

// ErrBusy is returned by Commit while the previous hand-off has not fully
// completed. The producer keeps ticking and retries; every transition is
// reachable within a bounded number of ticks.
var ErrBusy = errors.New("buffer: previous hand-off still in flight")

// Manager owns the two matrices and the handshake state. Producer-side
// methods (Writable, Commit, TickProducer) are called from the sample or
// network domain acting as producer; consumer-side methods (Acquire,
// Release, TickConsumer) from the other. The mutex guards only the flags;
// matrix payload is accessed lock-free under exclusive ownership.
type Manager struct {
	mu sync.Mutex

	bufs  [2]*codec.Matrix
	owner [2]Owner

	// Producer domain.
	prodSlot    int
	ready       bool
	waiting     bool
	ackSync     [2]bool
	handoffSlot int

	// Consumer domain.
	readySync  [2]bool
	ack        bool
	ackPending bool
	holding    bool
	consSlot   int
	settle     int
	settleLeft int

	handoffs uint64
}

// NewManager returns a manager with two fresh matrices. settleTicks is the
// fixed number of consumer ticks between acquiring a matrix and raising the
// acknowledge, modeling a slower, independently clocked consumer.
func NewManager(settleTicks int) *Manager {
	m := &Manager{settle: settleTicks}
	m.bufs[0] = codec.NewMatrix()
	m.bufs[1] = codec.NewMatrix()
	m.owner[0] = OwnerProducer
	m.owner[1] = OwnerNone
	return m
}

// Writable returns the matrix the producer may fill, or nil while the
// previous hand-off is still in flight.
func (m *Manager) Writable() *codec.Matrix {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waiting {
		return nil
	}
	if m.owner[m.prodSlot] != OwnerProducer {
		panic(fmt.Sprintf("buffer: producer slot %d owned by %d", m.prodSlot, m.owner[m.prodSlot]))
	}
	return m.bufs[m.prodSlot]
}

// Commit raises the ready signal for the just-filled matrix and transfers
// its ownership to the consumer. Returns ErrBusy until the previous
// acknowledge has been observed to drop.
func (m *Manager) Commit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waiting || m.ackSync[1] {
		return ErrBusy
	}
	m.handoffSlot = m.prodSlot
	m.owner[m.prodSlot] = OwnerConsumer
	m.ready = true
	m.waiting = true
	return nil
}

// TickProducer advances the producer domain: samples the acknowledge
// through the two-stage synchronizer and, once the acknowledge is observed,
// drops ready and flips to the other matrix.
func (m *Manager) TickProducer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ackSync[1] = m.ackSync[0]
	m.ackSync[0] = m.ack
	if m.waiting && m.ackSync[1] {
		m.ready = false
		m.waiting = false
		m.prodSlot ^= 1
		if m.owner[m.prodSlot] == OwnerConsumer {
			panic(fmt.Sprintf("buffer: slot %d still consumer-owned at flip", m.prodSlot))
		}
		m.owner[m.prodSlot] = OwnerProducer
		m.handoffs++
	}
}

// Acquire returns the committed matrix once the synchronized ready signal
// is observed, or nil while nothing is pending. The caller owns the matrix
// until Release.
func (m *Manager) Acquire() *codec.Matrix {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.readySync[1] || m.holding || m.ackPending || m.ack {
		return nil
	}
	m.holding = true
	m.ackPending = true
	m.consSlot = m.handoffSlot
	m.settleLeft = m.settle
	if m.owner[m.consSlot] != OwnerConsumer {
		panic(fmt.Sprintf("buffer: consumer slot %d owned by %d", m.consSlot, m.owner[m.consSlot]))
	}
	return m.bufs[m.consSlot]
}

// Release returns the drained matrix. The acknowledge drops on a later
// consumer tick, once ready has been observed low.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.holding {
		return
	}
	m.holding = false
	m.owner[m.consSlot] = OwnerNone
}

// TickConsumer advances the consumer domain: samples ready through the
// two-stage synchronizer, raises the acknowledge after the settle delay,
// and completes the four-phase handshake by dropping the acknowledge once
// the matrix is released and ready is observed low.
func (m *Manager) TickConsumer() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readySync[1] = m.readySync[0]
	m.readySync[0] = m.ready
	if m.ackPending {
		if m.settleLeft > 0 {
			m.settleLeft--
		} else {
			m.ack = true
			m.ackPending = false
		}
	}
	if !m.holding && m.ack && !m.readySync[1] {
		m.ack = false
	}
}

// Handoffs reports how many complete hand-offs have occurred since the last
// reset.
func (m *Manager) Handoffs() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handoffs
}

// Reset aborts any in-flight hand-off and forces both domains back to idle
// with cleared buffers, as after a misalignment fault.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bufs[0].Clear()
	m.bufs[1].Clear()
	m.owner[0] = OwnerProducer
	m.owner[1] = OwnerNone
	m.prodSlot = 0
	m.ready = false
	m.waiting = false
	m.ackSync = [2]bool{}
	m.readySync = [2]bool{}
	m.ack = false
	m.ackPending = false
	m.holding = false
	m.settleLeft = 0
	m.handoffs = 0
}

// OwnerOf reports the current owner tag of slot 0 or 1. Intended for
// assertions in tests and debug checks.
func (m *Manager) OwnerOf(slot int) Owner {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner[slot]
}
