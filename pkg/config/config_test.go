package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/OpenMixerProject/AES50/pkg/codec"
)

func resetViper() {
	viper.Reset()
}

func TestLoadDefaults(t *testing.T) {
	defer resetViper()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load with defaults: %v", err)
	}

	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("sample_rate = %d, want 48000", cfg.Audio.SampleRate)
	}
	if cfg.Audio.AssmInterval != 16 {
		t.Errorf("assm_interval = %d, want 16", cfg.Audio.AssmInterval)
	}
	if cfg.Link.BindPort != 45060 || cfg.Link.RemotePort != 45061 {
		t.Errorf("ports = %d/%d", cfg.Link.BindPort, cfg.Link.RemotePort)
	}
	if cfg.Link.InterframeGap != 60*time.Microsecond {
		t.Errorf("interframe_gap = %v", cfg.Link.InterframeGap)
	}
	if cfg.Buffer.SettleTicks != 2 {
		t.Errorf("settle_ticks = %d", cfg.Buffer.SettleTicks)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %s/%s", cfg.Logging.Level, cfg.Logging.Format)
	}
	if !cfg.Web.Enabled || cfg.Web.Port != 8080 {
		t.Errorf("web = %v/%d", cfg.Web.Enabled, cfg.Web.Port)
	}

	dst, err := cfg.Link.DstAddr()
	if err != nil {
		t.Fatal(err)
	}
	if dst != [6]byte{0x02, 0x00, 0x4e, 0x58, 0x00, 0x01} {
		t.Errorf("dst = % x", dst)
	}
}

func TestLoadFile(t *testing.T) {
	defer resetViper()

	content := `
audio:
  sample_rate: 44100
  assm_interval: 8
link:
  remote_host: 10.1.2.3
  remote_port: 9000
  interframe_gap: 100us
buffer:
  settle_ticks: 4
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("sample_rate = %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Rate() != codec.Rate44100 {
		t.Errorf("rate = %v", cfg.Audio.Rate())
	}
	if cfg.Link.RemoteHost != "10.1.2.3" || cfg.Link.RemotePort != 9000 {
		t.Errorf("remote = %s:%d", cfg.Link.RemoteHost, cfg.Link.RemotePort)
	}
	if cfg.Link.InterframeGap != 100*time.Microsecond {
		t.Errorf("interframe_gap = %v", cfg.Link.InterframeGap)
	}
	if cfg.Buffer.SettleTicks != 4 {
		t.Errorf("settle_ticks = %d", cfg.Buffer.SettleTicks)
	}
	// Unset sections keep their defaults.
	if cfg.Link.BindPort != 45060 {
		t.Errorf("bind_port = %d", cfg.Link.BindPort)
	}
}

func TestValidation(t *testing.T) {
	base := func() *Config {
		return &Config{
			Audio: AudioConfig{SampleRate: 48000, AssmInterval: 16},
			Link: LinkConfig{
				BindPort: 45060, RemoteHost: "127.0.0.1", RemotePort: 45061,
				DstMAC: "02:00:4e:58:00:01", SrcMAC: "02:00:4e:58:00:02",
			},
			Buffer:  BufferConfig{SettleTicks: 2, PollInterval: 50 * time.Microsecond},
			Logging: LoggingConfig{Level: "info", Format: "text"},
			Web:     WebConfig{Enabled: true, Port: 8080},
		}
	}

	if err := validate(base()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unsupported rate", func(c *Config) { c.Audio.SampleRate = 96000 }},
		{"negative assm interval", func(c *Config) { c.Audio.AssmInterval = -1 }},
		{"bad bind port", func(c *Config) { c.Link.BindPort = 0 }},
		{"bad remote port", func(c *Config) { c.Link.RemotePort = 70000 }},
		{"empty remote host", func(c *Config) { c.Link.RemoteHost = "" }},
		{"bad dst mac", func(c *Config) { c.Link.DstMAC = "not-a-mac" }},
		{"long mac", func(c *Config) { c.Link.SrcMAC = "02:00:4e:58:00:01:aa:bb" }},
		{"negative gap", func(c *Config) { c.Link.InterframeGap = -time.Microsecond }},
		{"negative settle", func(c *Config) { c.Buffer.SettleTicks = -1 }},
		{"zero poll interval", func(c *Config) { c.Buffer.PollInterval = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad web port", func(c *Config) { c.Web.Port = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := validate(cfg); err == nil {
				t.Error("expected a validation error")
			}
		})
	}

	// Web validation is skipped entirely when the server is disabled.
	cfg := base()
	cfg.Web.Enabled = false
	cfg.Web.Port = -1
	if err := validate(cfg); err != nil {
		t.Errorf("disabled web still validated: %v", err)
	}
}

func TestRateTruncatesToKnown(t *testing.T) {
	if (AudioConfig{SampleRate: 48000}).Rate() != codec.Rate48000 {
		t.Error("48000 did not map to Rate48000")
	}
	if (AudioConfig{SampleRate: 44100}).Rate() != codec.Rate44100 {
		t.Error("44100 did not map to Rate44100")
	}
}
