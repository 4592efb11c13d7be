// Package vad implements energy-based voice activity detection for one
// recording episode.
//
// The detector is a two-threshold debounce, not a statistical classifier:
// a frame whose RMS energy exceeds the silence threshold counts as voice and
// resets the silence clock; the stop decision fires once the episode has
// lasted at least the minimum speech duration and the silence clock has run
// for the full silence hold. Decisions are driven entirely by frame
// timestamps, so a recorded energy trace replays deterministically.
package vad

import (
	"time"

	"github.com/otofarma/otobot/pkg/audio"
)

// Default episode thresholds. The concrete values are tuning parameters,
// not a contract; config overrides them per deployment.
const (
	DefaultSilenceEnergyThreshold = 0.01
	DefaultMinSpeechDuration      = 300 * time.Millisecond
	DefaultSilenceHold            = 1000 * time.Millisecond
)

// Decision is the per-frame output of the detector.
type Decision int

const (
	// DecisionContinue means the episode keeps recording.
	DecisionContinue Decision = iota

	// DecisionStop means sustained silence has been confirmed and the
	// episode should end.
	DecisionStop
)

// String returns the human-readable name of the decision.
func (d Decision) String() string {
	if d == DecisionStop {
		return "stop"
	}
	return "continue"
}

// Config holds the detector thresholds.
type Config struct {
	// SilenceEnergyThreshold is the normalised RMS amplitude ([0,1], where
	// 1 is full-scale int16) above which a frame counts as voice.
	SilenceEnergyThreshold float64

	// MinSpeechDuration is the minimum episode length before a stop
	// decision may fire, guarding against stopping before any meaningful
	// speech occurred.
	MinSpeechDuration time.Duration

	// SilenceHold is the sustained-silence duration that confirms the user
	// has stopped speaking, as opposed to a brief pause.
	SilenceHold time.Duration
}

// Detector classifies the frames of a single recording episode. It is not
// safe for concurrent use; the recorder's frame loop is its only caller.
// Reset must be called before reusing a Detector for a new episode.
type Detector struct {
	cfg Config

	open        bool
	startedAt   time.Duration
	lastVoiceAt time.Duration
	stopped     bool
}

// New creates a Detector, replacing zero-value config fields with the
// package defaults.
func New(cfg Config) *Detector {
	if cfg.SilenceEnergyThreshold <= 0 {
		cfg.SilenceEnergyThreshold = DefaultSilenceEnergyThreshold
	}
	if cfg.MinSpeechDuration <= 0 {
		cfg.MinSpeechDuration = DefaultMinSpeechDuration
	}
	if cfg.SilenceHold <= 0 {
		cfg.SilenceHold = DefaultSilenceHold
	}
	return &Detector{cfg: cfg}
}

// Reset clears all episode state. Call at the start of each recording
// episode; the first frame processed afterwards marks the episode start.
func (d *Detector) Reset() {
	d.open = false
	d.stopped = false
	d.startedAt = 0
	d.lastVoiceAt = 0
}

// Process classifies one frame and returns the stop decision for the
// episode so far. Timing is taken from the frame's capture timestamp plus
// its duration, so the decision point is the end of the frame.
//
// Once DecisionStop has been returned it is returned for every subsequent
// frame until Reset; the caller is expected to detach the detector when the
// episode ends.
func (d *Detector) Process(f audio.Frame) Decision {
	if d.stopped {
		return DecisionStop
	}

	at := f.Timestamp + f.Duration()
	if !d.open {
		d.open = true
		d.startedAt = f.Timestamp
		// The silence clock starts at episode start so a fully silent
		// episode still times out after MinSpeechDuration + SilenceHold.
		d.lastVoiceAt = f.Timestamp
	}

	if audio.RMS(f) > d.cfg.SilenceEnergyThreshold {
		d.lastVoiceAt = at
		return DecisionContinue
	}

	if at-d.startedAt < d.cfg.MinSpeechDuration {
		return DecisionContinue
	}
	if at-d.lastVoiceAt < d.cfg.SilenceHold {
		return DecisionContinue
	}

	d.stopped = true
	return DecisionStop
}
