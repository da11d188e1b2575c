// Package config loads the daemon configuration from file and environment.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/OpenMixerProject/AES50/pkg/codec"
)

// Config represents the application configuration.
type Config struct {
	Audio   AudioConfig   `mapstructure:"audio"`
	Link    LinkConfig    `mapstructure:"link"`
	Buffer  BufferConfig  `mapstructure:"buffer"`
	Logging LoggingConfig `mapstructure:"logging"`
	Web     WebConfig     `mapstructure:"web"`
}

// AudioConfig selects the audio mode.
type AudioConfig struct {
	// SampleRate must be 48000 or 44100; any other rate requires different
	// silicon, not different configuration.
	SampleRate int `mapstructure:"sample_rate"`
	// AssmInterval is the number of blocks between frame-sync markers
	// (0 disables the marker).
	AssmInterval int `mapstructure:"assm_interval"`
}

// Rate maps the configured sample rate to the codec rate selector.
func (a AudioConfig) Rate() codec.Rate {
	if a.SampleRate == 44100 {
		return codec.Rate44100
	}
	return codec.Rate48000
}

// LinkConfig holds the frame transport settings.
type LinkConfig struct {
	BindHost   string `mapstructure:"bind_host"`
	BindPort   int    `mapstructure:"bind_port"`
	RemoteHost string `mapstructure:"remote_host"`
	RemotePort int    `mapstructure:"remote_port"`

	// DstMAC and SrcMAC fill the frame header address fields.
	DstMAC string `mapstructure:"dst_mac"`
	SrcMAC string `mapstructure:"src_mac"`

	// InterframeGap is the timed wait between the two frames of a
	// 44.1 kHz block.
	InterframeGap time.Duration `mapstructure:"interframe_gap"`
}

// DstAddr parses DstMAC into header bytes.
func (l LinkConfig) DstAddr() ([6]byte, error) { return parseMAC(l.DstMAC) }

// SrcAddr parses SrcMAC into header bytes.
func (l LinkConfig) SrcAddr() ([6]byte, error) { return parseMAC(l.SrcMAC) }

func parseMAC(s string) ([6]byte, error) {
	var out [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return out, fmt.Errorf("bad MAC %q: %w", s, err)
	}
	if len(hw) != 6 {
		return out, fmt.Errorf("bad MAC %q: want 6 octets, got %d", s, len(hw))
	}
	copy(out[:], hw)
	return out, nil
}

// BufferConfig tunes the ping-pong hand-off.
type BufferConfig struct {
	// SettleTicks is the consumer-side acknowledge delay.
	SettleTicks int `mapstructure:"settle_ticks"`
	// PollInterval is the domain tick period.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// DebugFill enables the matrix fill-tracking bitmap.
	DebugFill bool `mapstructure:"debug_fill"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// WebConfig holds the status server configuration.
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// Load loads configuration from file and environment variables.
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/aes50")
	}

	viper.SetEnvPrefix("AES50")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - that's also OK
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("audio.sample_rate", 48000)
	viper.SetDefault("audio.assm_interval", 16)

	viper.SetDefault("link.bind_host", "0.0.0.0")
	viper.SetDefault("link.bind_port", 45060)
	viper.SetDefault("link.remote_host", "127.0.0.1")
	viper.SetDefault("link.remote_port", 45061)
	viper.SetDefault("link.dst_mac", "02:00:4e:58:00:01")
	viper.SetDefault("link.src_mac", "02:00:4e:58:00:02")
	viper.SetDefault("link.interframe_gap", "60us")

	viper.SetDefault("buffer.settle_ticks", 2)
	viper.SetDefault("buffer.poll_interval", "50us")
	viper.SetDefault("buffer.debug_fill", false)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 28)

	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)
}
