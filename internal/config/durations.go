package config

import "time"

// The YAML schema expresses intervals as millisecond integers. These
// accessors convert them for callers that work in [time.Duration].

// MinSpeech returns the minimum speech duration.
func (v VADConfig) MinSpeech() time.Duration {
	return time.Duration(v.MinSpeechMs) * time.Millisecond
}

// SilenceHold returns the confirming silence duration.
func (v VADConfig) SilenceHold() time.Duration {
	return time.Duration(v.SilenceHoldMs) * time.Millisecond
}

// Cooldown returns the duplicate activation suppression window.
func (h HotwordConfig) Cooldown() time.Duration {
	return time.Duration(h.CooldownMs) * time.Millisecond
}

// Timeout returns the per-call exchange deadline.
func (e ExchangeConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMs) * time.Millisecond
}

// Cooldown returns how long an open breaker rejects calls.
func (b BreakerConfig) Cooldown() time.Duration {
	return time.Duration(b.CooldownMs) * time.Millisecond
}

// PlaybackTimeout returns the playback safety deadline.
func (a AssistantConfig) PlaybackTimeout() time.Duration {
	return time.Duration(a.PlaybackTimeoutMs) * time.Millisecond
}
