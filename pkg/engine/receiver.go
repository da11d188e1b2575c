package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OpenMixerProject/AES50/pkg/buffer"
	"github.com/OpenMixerProject/AES50/pkg/codec"
	"github.com/OpenMixerProject/AES50/pkg/frame"
	"github.com/OpenMixerProject/AES50/pkg/logger"
)

// Receiver is the decode pipeline: the network domain fills matrices from
// inbound frames, the sample domain drains them back into sample and aux
// sinks in original order. Header format bytes are recorded for diagnostics
// but never validated, and received parity is never checked.
type Receiver struct {
	cfg Config
	dec *codec.Decoder
	mgr *buffer.Manager

	samples SampleSink
	aux     AuxSink
	trx     Transceiver

	log    *logger.Logger
	stats  counters
	faults chan error

	mu      sync.Mutex
	running bool
}

// NewReceiver wires a decode pipeline. aux may be nil to discard the side
// channel.
func NewReceiver(cfg Config, samples SampleSink, aux AuxSink, trx Transceiver, log *logger.Logger) (*Receiver, error) {
	dec, err := codec.NewDecoder(cfg.Rate)
	if err != nil {
		return nil, err
	}
	return &Receiver{
		cfg:     cfg,
		dec:     dec,
		mgr:     buffer.NewManager(cfg.SettleTicks),
		samples: samples,
		aux:     aux,
		trx:     trx,
		log:     log.WithComponent("engine.rx"),
		faults:  make(chan error, 1),
	}, nil
}

// Faults delivers the fatal alignment fault, if one occurs.
func (r *Receiver) Faults() <-chan error { return r.faults }

// Stats returns a snapshot of the pipeline counters.
func (r *Receiver) Stats() Stats { return r.stats.snapshot() }

// Reset forces the pipeline back to idle and discards any unread fault;
// Run may then be called again.
func (r *Receiver) Reset() {
	r.mgr.Reset()
	select {
	case <-r.faults:
	default:
	}
}

// Run starts both domains and blocks until the context is cancelled or a
// fatal fault stops the pipeline.
func (r *Receiver) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return errors.New("engine: receiver already running")
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	r.log.Info("receiver starting", logger.String("rate", r.cfg.Rate.String()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := r.networkLoop(ctx); err != nil {
			errs <- err
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		if err := r.sampleLoop(ctx); err != nil {
			errs <- err
			cancel()
		}
	}()

	wg.Wait()
	close(errs)
	return <-errs
}

func (r *Receiver) fault(err error) error {
	r.stats.faults.Add(1)
	r.log.Error("fatal fault, full reset required", logger.Error(err))
	select {
	case r.faults <- err:
	default:
	}
	return err
}

// networkLoop is the producer side here: fill a matrix from one frame
// (48 kHz) or the next two (44.1 kHz), then hand it to the sample domain.
func (r *Receiver) networkLoop(ctx context.Context) error {
	tick := r.cfg.pollInterval()
	frames := r.cfg.Rate.FramesPerBlock()

	for {
		var m *codec.Matrix
		for m == nil {
			if err := sleepCtx(ctx, tick); err != nil {
				return nil
			}
			r.mgr.TickProducer()
			m = r.mgr.Writable()
		}

		for half := 0; half < frames; {
			data, err := r.trx.ReadFrame()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("engine: transceiver read: %w", err)
			}
			f, err := frame.Parse(data)
			if err != nil {
				r.log.Warn("discarding undersized frame", logger.Error(err))
				continue
			}
			if f.RateKnown && f.Rate != r.cfg.Rate {
				r.log.Debug("frame rate byte differs from configured rate",
					logger.Uint32("audio_format", uint32(f.AudioFormat)))
			}
			f.FillMatrix(m, half*codec.ColumnsPerFrame)
			r.stats.framesReceived.Add(1)
			half++
		}

		for r.mgr.Commit() != nil {
			if err := sleepCtx(ctx, tick); err != nil {
				return nil
			}
			r.mgr.TickProducer()
		}
		r.mgr.TickProducer()
	}
}

// sampleLoop drains committed matrices back out, re-asserting the
// channel-0 marker. A misalignment is fatal: draining a slipped stream
// would silently hand every consumer the wrong channel.
func (r *Receiver) sampleLoop(ctx context.Context) error {
	tick := r.cfg.pollInterval()

	for {
		if err := sleepCtx(ctx, tick); err != nil {
			return nil
		}
		r.mgr.TickConsumer()

		m := r.mgr.Acquire()
		if m == nil {
			continue
		}

		samples, aux, err := r.dec.DecodeBlock(m)
		if err != nil {
			if errors.Is(err, codec.ErrMisaligned) {
				return r.fault(err)
			}
			return r.fault(fmt.Errorf("engine: decode: %w", err))
		}
		if err := r.samples.WriteSamples(samples); err != nil {
			return fmt.Errorf("engine: sample sink: %w", err)
		}
		if r.aux != nil {
			if err := r.aux.WriteAux(aux); err != nil {
				return fmt.Errorf("engine: aux sink: %w", err)
			}
		}

		r.mgr.Release()
		r.stats.blocksDecoded.Add(1)
	}
}
