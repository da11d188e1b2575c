package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OpenMixerProject/AES50/pkg/buffer"
	"github.com/OpenMixerProject/AES50/pkg/codec"
	"github.com/OpenMixerProject/AES50/pkg/frame"
	"github.com/OpenMixerProject/AES50/pkg/logger"
)

// Transmitter is the encode pipeline: the sample domain drains the sample
// and aux sources into a matrix, the network domain serializes committed
// matrices into frames.
type Transmitter struct {
	cfg Config
	enc *codec.Encoder
	mgr *buffer.Manager

	samples SampleSource
	aux     AuxSource
	trx     Transceiver

	log    *logger.Logger
	stats  counters
	faults chan error

	mu      sync.Mutex
	running bool
}

// NewTransmitter wires an encode pipeline. aux may be nil when no side
// channel exists; its rows then always carry filler.
func NewTransmitter(cfg Config, samples SampleSource, aux AuxSource, trx Transceiver, log *logger.Logger) (*Transmitter, error) {
	enc, err := codec.NewEncoder(cfg.Rate)
	if err != nil {
		return nil, err
	}
	return &Transmitter{
		cfg:     cfg,
		enc:     enc,
		mgr:     buffer.NewManager(cfg.SettleTicks),
		samples: samples,
		aux:     aux,
		trx:     trx,
		log:     log.WithComponent("engine.tx"),
		faults:  make(chan error, 1),
	}, nil
}

// Faults delivers the fatal alignment fault, if one occurs. The only valid
// response is a full external reset; the pipeline has already stopped by
// the time the fault is readable.
func (t *Transmitter) Faults() <-chan error { return t.faults }

// Stats returns a snapshot of the pipeline counters.
func (t *Transmitter) Stats() Stats { return t.stats.snapshot() }

// Reset forces the pipeline back to idle after a fault or stop: both
// matrices cleared, handshake state dropped, any unread fault discarded so
// the channel reflects only the next run. Run may then be called again.
func (t *Transmitter) Reset() {
	t.mgr.Reset()
	select {
	case <-t.faults:
	default:
	}
}

// Run starts both domains and blocks until the context is cancelled or a
// fatal fault stops the pipeline.
func (t *Transmitter) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return errors.New("engine: transmitter already running")
	}
	t.running = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	t.log.Info("transmitter starting",
		logger.String("rate", t.cfg.Rate.String()),
		logger.Int("assm_interval", t.cfg.AssmInterval))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := t.sampleLoop(ctx); err != nil {
			errs <- err
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		if err := t.networkLoop(ctx); err != nil {
			errs <- err
			cancel()
		}
	}()

	wg.Wait()
	close(errs)
	return <-errs
}

// fault records a fatal fault, surfaces it and stops the pipeline.
func (t *Transmitter) fault(err error) error {
	t.stats.faults.Add(1)
	t.log.Error("fatal fault, full reset required", logger.Error(err))
	select {
	case t.faults <- err:
	default:
	}
	return err
}

// sampleLoop is the sample-rate-paced domain: accumulate one block, build
// the matrix, hand it off.
func (t *Transmitter) sampleLoop(ctx context.Context) error {
	block := make([]codec.Sample, t.cfg.Rate.BlockSamples())
	filled := 0
	var auxBuf []codec.AuxWord
	auxNeed := t.cfg.Rate.AuxWords()
	tick := t.cfg.pollInterval()

	for {
		if err := sleepCtx(ctx, tick); err != nil {
			return nil
		}
		t.mgr.TickProducer()

		if filled < len(block) {
			n, err := t.samples.ReadSamples(block[filled:])
			if err != nil {
				return fmt.Errorf("engine: sample source: %w", err)
			}
			filled += n
			if filled < len(block) {
				// Underrun is not an error: wait for the block to finish.
				continue
			}
		}

		if t.aux != nil && len(auxBuf) < auxNeed {
			tmp := make([]codec.AuxWord, auxNeed-len(auxBuf))
			n, err := t.aux.ReadAux(tmp)
			if err != nil {
				return fmt.Errorf("engine: aux source: %w", err)
			}
			auxBuf = append(auxBuf, tmp[:n]...)
		}

		m := t.mgr.Writable()
		if m == nil {
			continue
		}
		m.SetFillTracking(t.cfg.DebugFill)

		var auxBlock []codec.AuxWord
		if codec.AuxBlockReady(auxBuf, t.cfg.Rate) {
			auxBlock = auxBuf[:auxNeed]
		} else {
			if len(auxBuf) >= auxNeed {
				// A full buffer that is not block-ready means the side
				// channel slipped. Drop to the next block boundary so
				// the stream recovers instead of wedging on filler.
				auxBuf = codec.AuxRealign(auxBuf)
				t.stats.auxResyncs.Add(1)
				t.log.Warn("aux stream slipped, realigning",
					logger.Int("retained", len(auxBuf)))
			}
			t.stats.auxFillerUsed.Add(1)
		}

		if err := t.enc.EncodeBlock(m, block, auxBlock); err != nil {
			if errors.Is(err, codec.ErrMisaligned) {
				return t.fault(err)
			}
			return t.fault(fmt.Errorf("engine: encode: %w", err))
		}
		if auxBlock != nil {
			auxBuf = auxBuf[auxNeed:]
		}

		for t.mgr.Commit() != nil {
			if err := sleepCtx(ctx, tick); err != nil {
				return nil
			}
			t.mgr.TickProducer()
		}
		filled = 0
		t.stats.blocksEncoded.Add(1)
	}
}

// networkLoop is the network-paced domain: acquire a finished matrix and
// serialize it into one frame (48 kHz) or two with the inter-frame gap
// (44.1 kHz). The sync marker is only eligible on the first of a pair.
func (t *Transmitter) networkLoop(ctx context.Context) error {
	tick := t.cfg.pollInterval()
	var blockNum uint64

	for {
		if err := sleepCtx(ctx, tick); err != nil {
			return nil
		}
		t.mgr.TickConsumer()

		m := t.mgr.Acquire()
		if m == nil {
			continue
		}

		assm := t.cfg.AssmInterval > 0 && blockNum%uint64(t.cfg.AssmInterval) == 0
		h := frame.Header{Dst: t.cfg.Dst, Src: t.cfg.Src, Rate: t.cfg.Rate, Assm: assm}

		if err := t.trx.WriteFrame(frame.Encode(h, m, 0)); err != nil {
			return fmt.Errorf("engine: transceiver write: %w", err)
		}
		t.stats.framesSent.Add(1)

		if t.cfg.Rate == codec.Rate44100 {
			if err := sleepCtx(ctx, t.cfg.InterframeGap); err != nil {
				return nil
			}
			h.Assm = false
			if err := t.trx.WriteFrame(frame.Encode(h, m, codec.ColumnsPerFrame)); err != nil {
				return fmt.Errorf("engine: transceiver write: %w", err)
			}
			t.stats.framesSent.Add(1)
		}

		t.mgr.Release()
		blockNum++
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
