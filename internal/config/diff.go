package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only a subset of fields can be safely hot-reloaded; everything else
// sets RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// VADChanged is true when any detector threshold changed. The
	// detector picks the new values up at the next episode.
	VADChanged bool

	// HotwordChanged is true when variants, cooldown, or the phonetic
	// threshold changed. The spotter picks the new values up at its
	// next restart.
	HotwordChanged bool

	// RestartRequired is true when a field outside the hot-reloadable
	// set changed (server address, capture constraints, exchange
	// endpoint, trigger mode, playback sink).
	RestartRequired bool
}

// Changed reports whether the diff carries any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.VADChanged || d.HotwordChanged || d.RestartRequired
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.VAD != new.VAD {
		d.VADChanged = true
	}

	if !slices.Equal(old.Hotword.Variants, new.Hotword.Variants) ||
		old.Hotword.CooldownMs != new.Hotword.CooldownMs ||
		old.Hotword.PhoneticThreshold != new.Hotword.PhoneticThreshold {
		d.HotwordChanged = true
	}

	if old.Server.ListenAddr != new.Server.ListenAddr ||
		old.Capture != new.Capture ||
		old.Exchange != new.Exchange ||
		old.Hotword.Enabled != new.Hotword.Enabled ||
		old.Hotword.Language != new.Hotword.Language ||
		old.Hotword.RemoteActivation != new.Hotword.RemoteActivation ||
		old.Hotword.Recognizer != new.Hotword.Recognizer ||
		old.Assistant.TriggerMode != new.Assistant.TriggerMode ||
		old.Assistant.PlaybackSink != new.Assistant.PlaybackSink ||
		old.Assistant.PlaybackTimeoutMs != new.Assistant.PlaybackTimeoutMs ||
		old.Assistant.JournalPath != new.Assistant.JournalPath ||
		old.Assistant.BargeIn.Enabled != new.Assistant.BargeIn.Enabled ||
		!slices.Equal(old.Assistant.BargeIn.Phrases, new.Assistant.BargeIn.Phrases) {
		d.RestartRequired = true
	}

	return d
}
