package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and validates
// the result. Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in every zero-valued field that has a documented default.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8090"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}

	if cfg.Capture.SampleRate == 0 {
		cfg.Capture.SampleRate = 16000
	}
	if cfg.Capture.Channels == 0 {
		cfg.Capture.Channels = 1
	}

	if cfg.VAD.SilenceEnergyThreshold == 0 {
		cfg.VAD.SilenceEnergyThreshold = 0.01
	}
	if cfg.VAD.MinSpeechMs == 0 {
		cfg.VAD.MinSpeechMs = 300
	}
	if cfg.VAD.SilenceHoldMs == 0 {
		cfg.VAD.SilenceHoldMs = 1000
	}

	if len(cfg.Hotword.Variants) == 0 {
		cfg.Hotword.Variants = []string{"ciao", "ciao oto", "ciao otobot"}
	}
	if cfg.Hotword.CooldownMs == 0 {
		cfg.Hotword.CooldownMs = 900
	}
	if cfg.Hotword.Language == "" {
		cfg.Hotword.Language = "it-IT"
	}

	if cfg.Exchange.TimeoutMs == 0 {
		cfg.Exchange.TimeoutMs = 30000
	}
	if cfg.Exchange.Breaker.MaxFailures == 0 {
		cfg.Exchange.Breaker.MaxFailures = 3
	}
	if cfg.Exchange.Breaker.CooldownMs == 0 {
		cfg.Exchange.Breaker.CooldownMs = 15000
	}

	if cfg.Assistant.TriggerMode == "" {
		if cfg.Hotword.Enabled {
			cfg.Assistant.TriggerMode = TriggerHotword
		} else {
			cfg.Assistant.TriggerMode = TriggerManual
		}
	}
	if cfg.Assistant.PlaybackSink == "" {
		cfg.Assistant.PlaybackSink = SinkRemoteSynthesis
	}
	if cfg.Assistant.PlaybackTimeoutMs == 0 {
		cfg.Assistant.PlaybackTimeoutMs = 120000
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
// Recoverable oddities are logged as warnings instead of failing the load.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Capture.SampleRate < 8000 || cfg.Capture.SampleRate > 48000 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %d is out of range [8000, 48000]", cfg.Capture.SampleRate))
	}
	if cfg.Capture.Channels != 1 && cfg.Capture.Channels != 2 {
		errs = append(errs, fmt.Errorf("capture.channels %d is invalid; valid values: 1, 2", cfg.Capture.Channels))
	}

	if cfg.VAD.SilenceEnergyThreshold <= 0 || cfg.VAD.SilenceEnergyThreshold >= 1 {
		errs = append(errs, fmt.Errorf("vad.silence_energy_threshold %.4f is out of range (0, 1)", cfg.VAD.SilenceEnergyThreshold))
	}
	if cfg.VAD.MinSpeechMs < 0 {
		errs = append(errs, fmt.Errorf("vad.min_speech_ms %d must not be negative", cfg.VAD.MinSpeechMs))
	}
	if cfg.VAD.SilenceHoldMs <= 0 {
		errs = append(errs, fmt.Errorf("vad.silence_hold_ms %d must be positive", cfg.VAD.SilenceHoldMs))
	}

	if cfg.Hotword.PhoneticThreshold < 0 || cfg.Hotword.PhoneticThreshold > 1 {
		errs = append(errs, fmt.Errorf("hotword.phonetic_threshold %.2f is out of range [0, 1]", cfg.Hotword.PhoneticThreshold))
	}
	if cfg.Hotword.CooldownMs < 0 {
		errs = append(errs, fmt.Errorf("hotword.cooldown_ms %d must not be negative", cfg.Hotword.CooldownMs))
	}
	if cfg.Hotword.Enabled && cfg.Hotword.Recognizer.APIKey == "" {
		slog.Warn("hotword is enabled but hotword.recognizer.api_key is empty; wake phrase detection will be unavailable and the trigger mode degrades to manual")
	}

	if cfg.Exchange.BaseURL == "" {
		errs = append(errs, fmt.Errorf("exchange.base_url is required"))
	}
	if cfg.Exchange.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("exchange.timeout_ms %d must be positive", cfg.Exchange.TimeoutMs))
	}
	if cfg.Exchange.Breaker.MaxFailures <= 0 {
		errs = append(errs, fmt.Errorf("exchange.breaker.max_failures %d must be positive", cfg.Exchange.Breaker.MaxFailures))
	}

	if cfg.Assistant.TriggerMode != "" && !cfg.Assistant.TriggerMode.IsValid() {
		errs = append(errs, fmt.Errorf("assistant.trigger_mode %q is invalid; valid values: manual, hotword, vad-auto", cfg.Assistant.TriggerMode))
	}
	if cfg.Assistant.PlaybackSink != "" && !cfg.Assistant.PlaybackSink.IsValid() {
		errs = append(errs, fmt.Errorf("assistant.playback_sink %q is invalid; valid values: remote-synthesis, local-synthesis", cfg.Assistant.PlaybackSink))
	}
	if cfg.Assistant.PlaybackTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("assistant.playback_timeout_ms %d must be positive", cfg.Assistant.PlaybackTimeoutMs))
	}
	if cfg.Assistant.TriggerMode == TriggerHotword && !cfg.Hotword.Enabled {
		errs = append(errs, fmt.Errorf("assistant.trigger_mode is %q but hotword.enabled is false", TriggerHotword))
	}
	if cfg.Assistant.BargeIn.Enabled {
		if len(cfg.Assistant.BargeIn.Phrases) == 0 {
			errs = append(errs, fmt.Errorf("assistant.barge_in.phrases is required when barge_in is enabled"))
		}
		if !cfg.Hotword.Enabled {
			slog.Warn("assistant.barge_in is enabled without hotword; barge-in uses the hotword recognizer and will be unavailable")
		}
	}

	return errors.Join(errs...)
}
