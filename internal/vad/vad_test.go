package vad_test

import (
	"testing"
	"time"

	"github.com/otofarma/otobot/internal/vad"
	"github.com/otofarma/otobot/pkg/audio"
)

const sampleRate = 16000

// samplePeriod is the duration of a single sample at the test rate.
const samplePeriod = time.Second / sampleRate

// pcm builds n samples of constant amplitude.
func pcm(amplitude int16, n int) []byte {
	out := make([]byte, n*2)
	for i := range n {
		out[i*2] = byte(amplitude)
		out[i*2+1] = byte(amplitude >> 8)
	}
	return out
}

// trace feeds the detector a sequence of (loud, duration) segments as 10 ms
// frames and returns the timestamp at which the stop decision fired, or -1
// if it never did. Segment durations must be multiples of 10 ms.
func trace(d *vad.Detector, segments ...segment) time.Duration {
	const frameDur = 10 * time.Millisecond
	var ts time.Duration
	for _, seg := range segments {
		for elapsed := time.Duration(0); elapsed < seg.dur; elapsed += frameDur {
			amp := int16(0)
			if seg.loud {
				amp = 3000
			}
			f := audio.Frame{PCM: pcm(amp, 160), SampleRate: sampleRate, Channels: 1, Timestamp: ts}
			ts += frameDur
			if d.Process(f) == vad.DecisionStop {
				return ts
			}
		}
	}
	return -1
}

type segment struct {
	loud bool
	dur  time.Duration
}

func TestDetector_ScenarioSpeechThenSilence(t *testing.T) {
	t.Parallel()

	d := vad.New(vad.Config{
		SilenceEnergyThreshold: 0.01,
		MinSpeechDuration:      300 * time.Millisecond,
		SilenceHold:            450 * time.Millisecond,
	})
	d.Reset()

	// 400 ms of speech then 500 ms of silence: the stop decision fires as
	// soon as the silence hold elapses after the last voiced frame, at
	// 400 + 450 = 850 ms, and not before.
	stopAt := trace(d,
		segment{loud: true, dur: 400 * time.Millisecond},
		segment{loud: false, dur: 500 * time.Millisecond},
	)
	if stopAt != 850*time.Millisecond {
		t.Errorf("stop fired at %v, want 850ms", stopAt)
	}
}

func TestDetector_NeverStopsWhileVoiced(t *testing.T) {
	t.Parallel()

	d := vad.New(vad.Config{SilenceHold: 100 * time.Millisecond})
	d.Reset()

	if stopAt := trace(d, segment{loud: true, dur: 10 * time.Second}); stopAt != -1 {
		t.Errorf("stop fired at %v during continuous speech, want never", stopAt)
	}
}

func TestDetector_SilenceHoldBoundaryBySample(t *testing.T) {
	t.Parallel()

	const hold = 100 * time.Millisecond
	holdSamples := int(hold / samplePeriod) // 1600

	d := vad.New(vad.Config{
		SilenceEnergyThreshold: 0.01,
		MinSpeechDuration:      300 * time.Millisecond,
		SilenceHold:            hold,
	})
	d.Reset()

	// 320 ms of voice satisfies the minimum-speech guard.
	voiced := audio.Frame{PCM: pcm(3000, 5120), SampleRate: sampleRate, Channels: 1}
	if got := d.Process(voiced); got != vad.DecisionContinue {
		t.Fatalf("voiced frame: %v, want continue", got)
	}
	voicedEnd := voiced.Duration()

	// Silence one sample short of the hold: must not stop.
	short := audio.Frame{PCM: pcm(0, holdSamples-1), SampleRate: sampleRate, Channels: 1, Timestamp: voicedEnd}
	if got := d.Process(short); got == vad.DecisionStop {
		t.Fatal("stop fired one sample before the silence hold elapsed")
	}

	// One more sample of silence completes the hold exactly: must stop.
	last := audio.Frame{PCM: pcm(0, 1), SampleRate: sampleRate, Channels: 1, Timestamp: voicedEnd + short.Duration()}
	if got := d.Process(last); got != vad.DecisionStop {
		t.Errorf("decision at exact silence hold = %v, want stop", got)
	}
}

func TestDetector_MinSpeechBoundaryBySample(t *testing.T) {
	t.Parallel()

	const minSpeech = 300 * time.Millisecond
	minSamples := int(minSpeech / samplePeriod) // 4800

	d := vad.New(vad.Config{
		SilenceEnergyThreshold: 0.01,
		MinSpeechDuration:      minSpeech,
		SilenceHold:            100 * time.Millisecond,
	})
	d.Reset()

	// A fully silent episode one sample short of the minimum speech
	// duration must not stop, regardless of how much silence accumulated.
	short := audio.Frame{PCM: pcm(0, minSamples-1), SampleRate: sampleRate, Channels: 1}
	if got := d.Process(short); got == vad.DecisionStop {
		t.Fatal("stop fired one sample before the minimum speech duration")
	}

	// One more sample reaches the minimum; the silence hold (measured from
	// episode start) is already long elapsed, so the stop fires now.
	last := audio.Frame{PCM: pcm(0, 1), SampleRate: sampleRate, Channels: 1, Timestamp: short.Duration()}
	if got := d.Process(last); got != vad.DecisionStop {
		t.Errorf("decision at exact minimum speech duration = %v, want stop", got)
	}
}

func TestDetector_StopLatchesUntilReset(t *testing.T) {
	t.Parallel()

	d := vad.New(vad.Config{
		MinSpeechDuration: 10 * time.Millisecond,
		SilenceHold:       10 * time.Millisecond,
	})
	d.Reset()

	silent := audio.Frame{PCM: pcm(0, 1600), SampleRate: sampleRate, Channels: 1}
	if got := d.Process(silent); got != vad.DecisionStop {
		t.Fatalf("first decision = %v, want stop", got)
	}
	if got := d.Process(silent); got != vad.DecisionStop {
		t.Errorf("latched decision = %v, want stop", got)
	}

	// Reset clears the latch and the episode clocks for the next episode.
	d.Reset()
	voiced := audio.Frame{PCM: pcm(3000, 160), SampleRate: sampleRate, Channels: 1}
	if got := d.Process(voiced); got != vad.DecisionContinue {
		t.Errorf("decision after Reset = %v, want continue", got)
	}
}

func TestDetector_BriefPauseDoesNotStop(t *testing.T) {
	t.Parallel()

	d := vad.New(vad.Config{
		SilenceEnergyThreshold: 0.01,
		MinSpeechDuration:      300 * time.Millisecond,
		SilenceHold:            450 * time.Millisecond,
	})
	d.Reset()

	// Speech, a 200 ms pause (shorter than the hold), more speech, then
	// real silence. The stop must key off the last voiced frame.
	stopAt := trace(d,
		segment{loud: true, dur: 400 * time.Millisecond},
		segment{loud: false, dur: 200 * time.Millisecond},
		segment{loud: true, dur: 100 * time.Millisecond},
		segment{loud: false, dur: time.Second},
	)
	if stopAt != 1150*time.Millisecond {
		t.Errorf("stop fired at %v, want 1150ms (700ms last voice + 450ms hold)", stopAt)
	}
}
