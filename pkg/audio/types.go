// Package audio defines the frame type and buffer primitives shared by the
// capture, detection, and upload stages of the OtoBot pipeline.
//
// Frames are the atomic unit of audio transport: captured from the microphone
// session, measured by the voice activity detector, and accumulated into a
// RecordingBuffer that is assembled into a single upload payload when a
// recording episode ends.
package audio

import "time"

// Frame represents a single frame of audio flowing through the pipeline.
type Frame struct {
	// PCM is raw little-endian int16 sample data. Sample rate and channel
	// count are fixed per capture session.
	PCM []byte

	// SampleRate in Hz (e.g., 16000 for the default capture profile).
	SampleRate int

	// Channels: 1 for mono capture. Stereo input is folded to mono before
	// it reaches the detector.
	Channels int

	// Timestamp marks when this frame was captured, relative to the start
	// of the capture session.
	Timestamp time.Duration
}

// Duration returns the play time of the frame derived from its sample count.
// Returns zero if the frame carries no format information.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(f.PCM) / 2 / f.Channels
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}
