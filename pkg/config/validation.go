package config

import "fmt"

// validate validates the configuration
func validate(config *Config) error {
	if err := validateAudio(&config.Audio); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := validateLink(&config.Link); err != nil {
		return fmt.Errorf("link config: %w", err)
	}

	if err := validateBuffer(&config.Buffer); err != nil {
		return fmt.Errorf("buffer config: %w", err)
	}

	if err := validateLogging(&config.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := validateWeb(&config.Web); err != nil {
		return fmt.Errorf("web config: %w", err)
	}

	return nil
}

// validateAudio validates the audio mode. Only the two hardware rates are
// accepted; a restart with a new configuration is the only way to change
// rate.
func validateAudio(config *AudioConfig) error {
	if config.SampleRate != 48000 && config.SampleRate != 44100 {
		return fmt.Errorf("sample_rate must be 48000 or 44100, got %d", config.SampleRate)
	}

	if config.AssmInterval < 0 {
		return fmt.Errorf("assm_interval must not be negative")
	}

	return nil
}

// validateLink validates the transport configuration
func validateLink(config *LinkConfig) error {
	if config.BindPort < 1 || config.BindPort > 65535 {
		return fmt.Errorf("invalid bind_port: %d", config.BindPort)
	}

	if config.RemotePort < 1 || config.RemotePort > 65535 {
		return fmt.Errorf("invalid remote_port: %d", config.RemotePort)
	}

	if config.RemoteHost == "" {
		return fmt.Errorf("remote_host must not be empty")
	}

	if _, err := config.DstAddr(); err != nil {
		return fmt.Errorf("dst_mac: %w", err)
	}

	if _, err := config.SrcAddr(); err != nil {
		return fmt.Errorf("src_mac: %w", err)
	}

	if config.InterframeGap < 0 {
		return fmt.Errorf("interframe_gap must not be negative")
	}

	return nil
}

// validateBuffer validates the hand-off tuning
func validateBuffer(config *BufferConfig) error {
	if config.SettleTicks < 0 {
		return fmt.Errorf("settle_ticks must not be negative")
	}

	if config.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}

	return nil
}

// validateLogging validates logging configuration
func validateLogging(config *LoggingConfig) error {
	switch config.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid level: %s", config.Level)
	}

	switch config.Format {
	case "text", "console", "json":
	default:
		return fmt.Errorf("invalid format: %s", config.Format)
	}

	return nil
}

// validateWeb validates the status server configuration
func validateWeb(config *WebConfig) error {
	if !config.Enabled {
		return nil
	}

	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("invalid port: %d", config.Port)
	}

	return nil
}
