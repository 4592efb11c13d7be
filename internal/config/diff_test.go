package config_test

import (
	"testing"

	"github.com/otofarma/otobot/internal/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{
		Exchange: config.ExchangeConfig{BaseURL: "http://localhost:8080"},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := baseConfig()
	d := config.Diff(cfg, cfg)
	if d.Changed() {
		t.Errorf("expected no changes for identical configs, got %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.RestartRequired {
		t.Error("a log level change should not require a restart")
	}
}

func TestDiff_VADChanged(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.VAD.SilenceHoldMs = 1500

	d := config.Diff(old, new)
	if !d.VADChanged {
		t.Error("expected VADChanged=true")
	}
	if d.RestartRequired {
		t.Error("a VAD threshold change should not require a restart")
	}
}

func TestDiff_HotwordChanged(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Hotword.Variants = append([]string{}, old.Hotword.Variants...)
	new.Hotword.Variants = append(new.Hotword.Variants, "ehi oto")

	d := config.Diff(old, new)
	if !d.HotwordChanged {
		t.Error("expected HotwordChanged=true")
	}
	if d.RestartRequired {
		t.Error("a variant list change should not require a restart")
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"listen addr", func(c *config.Config) { c.Server.ListenAddr = ":9999" }},
		{"sample rate", func(c *config.Config) { c.Capture.SampleRate = 48000 }},
		{"exchange base url", func(c *config.Config) { c.Exchange.BaseURL = "http://other:8080" }},
		{"trigger mode", func(c *config.Config) { c.Assistant.TriggerMode = config.TriggerVADAuto }},
		{"playback sink", func(c *config.Config) { c.Assistant.PlaybackSink = config.SinkLocalSynthesis }},
		{"recognizer key", func(c *config.Config) { c.Hotword.Recognizer.APIKey = "rotated" }},
		{"barge-in toggle", func(c *config.Config) { c.Assistant.BargeIn.Enabled = true }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			old := baseConfig()
			new := baseConfig()
			tc.mutate(new)

			d := config.Diff(old, new)
			if !d.RestartRequired {
				t.Errorf("expected RestartRequired=true, got %+v", d)
			}
		})
	}
}

func TestDiff_CombinedChanges(t *testing.T) {
	t.Parallel()
	old := baseConfig()
	new := baseConfig()
	new.Server.LogLevel = config.LogWarn
	new.VAD.MinSpeechMs = 500
	new.Exchange.TimeoutMs = 10000

	d := config.Diff(old, new)
	if !d.LogLevelChanged || !d.VADChanged || !d.RestartRequired {
		t.Errorf("expected all three change flags, got %+v", d)
	}
	if !d.Changed() {
		t.Error("Changed() should report true")
	}
}
