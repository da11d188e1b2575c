package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenMixerProject/AES50/pkg/config"
	"github.com/OpenMixerProject/AES50/pkg/engine"
	"github.com/OpenMixerProject/AES50/pkg/logger"
	"github.com/OpenMixerProject/AES50/pkg/transport"
	"github.com/OpenMixerProject/AES50/pkg/web"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aes50d",
		Short: "AES50 framing endpoint",
		Long: `aes50d runs an AES50 data-link endpoint: it packs multichannel PCM
blocks into logical-channel matrices with FEC parity, serializes them as
frames over the link transport, and decodes inbound frames back into
sample streams.`,
		Version: fmt.Sprintf("%s (built at %s)", Version, BuildTime),
		RunE:    runDaemon,
	}

	rootCmd.Flags().StringP("config", "c", "", "Configuration file path")
	rootCmd.Flags().String("mode", "both", "Pipeline mode: tx, rx or both")
	rootCmd.Flags().Int("rate", 0, "Sample rate (overrides config)")
	rootCmd.Flags().Bool("debug", false, "Enable debug logging (overrides config)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	mode, _ := cmd.Flags().GetString("mode")
	rateOverride, _ := cmd.Flags().GetInt("rate")
	debugOverride, _ := cmd.Flags().GetBool("debug")

	if mode != "tx" && mode != "rx" && mode != "both" {
		return fmt.Errorf("invalid mode %q", mode)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if rateOverride > 0 {
		cfg.Audio.SampleRate = rateOverride
	}
	if debugOverride {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		File:        cfg.Logging.File,
		MaxSize:     cfg.Logging.MaxSize,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAge:      cfg.Logging.MaxAge,
		Development: cfg.Logging.Level == "debug",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	log.Info("aes50d starting",
		logger.String("version", Version),
		logger.String("mode", mode),
		logger.Int("sample_rate", cfg.Audio.SampleRate))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("shutdown signal received", logger.String("signal", sig.String()))
		cancel()
	}()

	link, err := transport.NewUDP(cfg.Link.BindHost, cfg.Link.BindPort,
		cfg.Link.RemoteHost, cfg.Link.RemotePort, log)
	if err != nil {
		return err
	}
	if err := link.Start(ctx); err != nil {
		return err
	}

	dst, err := cfg.Link.DstAddr()
	if err != nil {
		return err
	}
	src, err := cfg.Link.SrcAddr()
	if err != nil {
		return err
	}

	engCfg := engine.Config{
		Rate:          cfg.Audio.Rate(),
		Dst:           dst,
		Src:           src,
		AssmInterval:  cfg.Audio.AssmInterval,
		InterframeGap: cfg.Link.InterframeGap,
		PollInterval:  cfg.Buffer.PollInterval,
		SettleTicks:   cfg.Buffer.SettleTicks,
		DebugFill:     cfg.Buffer.DebugFill,
	}

	var tx *engine.Transmitter
	var rx *engine.Receiver

	if mode == "tx" || mode == "both" {
		tx, err = engine.NewTransmitter(engCfg, &engine.PatternSource{}, nil, link, log)
		if err != nil {
			return err
		}
	}
	if mode == "rx" || mode == "both" {
		rx, err = engine.NewReceiver(engCfg, engine.DiscardSink{}, nil, link, log)
		if err != nil {
			return err
		}
	}

	var txStats, rxStats web.StatsSource
	if tx != nil {
		txStats = tx
	}
	if rx != nil {
		rxStats = rx
	}
	webServer := web.NewServer(cfg, log, txStats, rxStats, link)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := webServer.Start(ctx); err != nil {
			log.Error("web server error", logger.Error(err))
		}
	}()

	// The daemon is the external reset controller: a misalignment fault
	// stops a pipeline, which is then reset and restarted from idle.
	if tx != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			supervise(ctx, log, webServer, "tx", tx.Run, tx.Reset)
		}()
	}
	if rx != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			supervise(ctx, log, webServer, "rx", rx.Run, rx.Reset)
		}()
	}

	wg.Wait()
	return nil
}

// supervise restarts a pipeline after every fatal fault until shutdown.
func supervise(ctx context.Context, log *logger.Logger, webServer *web.Server,
	name string, run func(context.Context) error, reset func()) {
	for {
		err := run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Error("pipeline fault, resetting",
				logger.String("pipeline", name), logger.Error(err))
			webServer.NotifyFault(err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
		}
		reset()
	}
}
