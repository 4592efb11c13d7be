// Package config provides the configuration schema, loader, and file
// watcher for the OtoBot voice assistant runtime.
package config

// LogLevel controls log verbosity for the runtime.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// TriggerMode selects how an interaction episode is started.
type TriggerMode string

const (
	TriggerManual  TriggerMode = "manual"
	TriggerHotword TriggerMode = "hotword"
	TriggerVADAuto TriggerMode = "vad-auto"
)

// IsValid reports whether t is a recognised trigger mode.
func (t TriggerMode) IsValid() bool {
	switch t {
	case TriggerManual, TriggerHotword, TriggerVADAuto:
		return true
	}
	return false
}

// PlaybackSink selects how replies become audible.
type PlaybackSink string

const (
	SinkRemoteSynthesis PlaybackSink = "remote-synthesis"
	SinkLocalSynthesis  PlaybackSink = "local-synthesis"
)

// IsValid reports whether s is a recognised playback sink.
func (s PlaybackSink) IsValid() bool {
	return s == SinkRemoteSynthesis || s == SinkLocalSynthesis
}

// Config is the root configuration structure for OtoBot.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Capture   CaptureConfig   `yaml:"capture"`
	VAD       VADConfig       `yaml:"vad"`
	Hotword   HotwordConfig   `yaml:"hotword"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Assistant AssistantConfig `yaml:"assistant"`
}

// ServerConfig holds network and logging settings for the status server.
type ServerConfig struct {
	// ListenAddr is the TCP address the status server listens on
	// (e.g., ":8090").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// CaptureConfig holds microphone acquisition constraints.
type CaptureConfig struct {
	// SampleRate in Hz. Default: 16000.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the channel count. Default: 1.
	Channels int `yaml:"channels"`

	// EchoCancellation, NoiseSuppression and AutoGain request the
	// corresponding device-side processing when the platform supports it.
	EchoCancellation bool `yaml:"echo_cancellation"`
	NoiseSuppression bool `yaml:"noise_suppression"`
	AutoGain         bool `yaml:"auto_gain"`
}

// VADConfig holds the voice activity detector thresholds.
type VADConfig struct {
	// SilenceEnergyThreshold is the normalised RMS amplitude above which
	// a frame counts as voice. Range (0, 1). Default: 0.01.
	SilenceEnergyThreshold float64 `yaml:"silence_energy_threshold"`

	// MinSpeechMs is the minimum episode length in milliseconds before
	// the stop decision may fire. Default: 300.
	MinSpeechMs int `yaml:"min_speech_ms"`

	// SilenceHoldMs is the sustained-silence duration in milliseconds
	// that confirms the user stopped speaking. Default: 1000.
	SilenceHoldMs int `yaml:"silence_hold_ms"`
}

// HotwordConfig holds the wake phrase spotter settings.
type HotwordConfig struct {
	// Enabled turns wake phrase detection on. Requires a recognizer.
	Enabled bool `yaml:"enabled"`

	// Variants are the accepted wake phrase renderings. Default:
	// "ciao", "ciao oto", "ciao otobot".
	Variants []string `yaml:"variants"`

	// CooldownMs suppresses duplicate activations within this window.
	// Default: 900.
	CooldownMs int `yaml:"cooldown_ms"`

	// Language is the recognizer locale. Default: "it-IT".
	Language string `yaml:"language"`

	// PhoneticThreshold tunes near-match sensitivity. Range (0, 1].
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`

	// RemoteActivation confirms each detection through the exchange's
	// voice activation endpoint before recording starts.
	RemoteActivation bool `yaml:"remote_activation"`

	// Recognizer configures the streaming recognition service.
	Recognizer RecognizerConfig `yaml:"recognizer"`
}

// RecognizerConfig holds the streaming speech recognition settings.
type RecognizerConfig struct {
	// Endpoint is the WebSocket URL of the recognition service. Empty
	// uses the adapter's default.
	Endpoint string `yaml:"endpoint"`

	// APIKey authenticates against the recognition service.
	APIKey string `yaml:"api_key"`

	// Model selects the recognition model. Empty uses the adapter's
	// default.
	Model string `yaml:"model"`
}

// ExchangeConfig holds the remote exchange endpoint settings.
type ExchangeConfig struct {
	// BaseURL is the root URL of the exchange service. Required.
	BaseURL string `yaml:"base_url"`

	// TimeoutMs bounds each exchange call in milliseconds. Default:
	// 30000.
	TimeoutMs int `yaml:"timeout_ms"`

	// Breaker configures the per-endpoint circuit breakers.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker tuning for the exchange client.
type BreakerConfig struct {
	// MaxFailures is the consecutive failure count that opens a breaker.
	// Default: 3.
	MaxFailures int `yaml:"max_failures"`

	// CooldownMs is how long an open breaker rejects calls before
	// probing. Default: 15000.
	CooldownMs int `yaml:"cooldown_ms"`
}

// AssistantConfig holds the interaction machine settings.
type AssistantConfig struct {
	// TriggerMode selects how episodes start. Default: "hotword" when
	// the hotword section is enabled, "manual" otherwise.
	TriggerMode TriggerMode `yaml:"trigger_mode"`

	// PlaybackSink selects how replies become audible. Default:
	// "remote-synthesis".
	PlaybackSink PlaybackSink `yaml:"playback_sink"`

	// PlaybackTimeoutMs bounds one reply playback in milliseconds.
	// Default: 120000.
	PlaybackTimeoutMs int `yaml:"playback_timeout_ms"`

	// JournalPath is the JSONL file the conversation history is appended
	// to. Empty disables journaling.
	JournalPath string `yaml:"journal_path"`

	// BargeIn configures voice interruption of playback.
	BargeIn BargeInConfig `yaml:"barge_in"`
}

// BargeInConfig gates the optional playback interruption extension.
type BargeInConfig struct {
	// Enabled turns barge-in on. Off by default.
	Enabled bool `yaml:"enabled"`

	// Phrases are the interruption phrases spotted during playback.
	// Required when enabled.
	Phrases []string `yaml:"phrases"`
}
