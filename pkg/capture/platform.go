// Package capture manages the microphone capture session for the OtoBot
// pipeline.
//
// The two primary abstractions are:
//
//   - [Platform] — opens the microphone device and returns a [Session].
//   - [Session] — one live microphone acquisition delivering audio frames
//     until closed.
//
// Implementations of these interfaces are provided by platform-specific
// adapter packages (ALSA, CoreAudio, a WebRTC track bridge). The interfaces
// are intentionally narrow so the interaction machine stays decoupled from
// device details. This package lives under pkg/ because external adapters
// are expected to implement [Platform] and [Session].
//
// [Manager] wraps a Platform and enforces the session lifecycle rules: a
// single reusable session per runtime, idempotent acquisition, and
// idempotent no-throw release.
package capture

import (
	"context"

	"github.com/otofarma/otobot/pkg/audio"
)

// Config holds the fixed constraints requested when opening the device.
// These mirror the processing features applied at the capture source; an
// adapter that cannot honour a feature should open the device anyway and
// log the degradation rather than fail.
type Config struct {
	// SampleRate in Hz. The session must deliver frames at this rate.
	SampleRate int

	// Channels is the requested channel count. Capture is mono by default.
	Channels int

	// EchoCancellation requests acoustic echo cancellation at the source.
	EchoCancellation bool

	// NoiseSuppression requests noise suppression at the source.
	NoiseSuppression bool

	// AutoGain requests automatic gain control at the source.
	AutoGain bool
}

// Session represents one open microphone acquisition.
//
// A Session is obtained from [Platform.Open] and remains valid until
// [Session.Close] is called. Implementations must be safe for concurrent
// use.
type Session interface {
	// Frames returns the live frame channel. The channel is buffered; the
	// platform drops frames when no consumer is reading, mirroring live
	// microphone semantics. The channel is closed when the session closes
	// or the device is lost.
	Frames() <-chan audio.Frame

	// Format reports the actual capture format, which may differ from the
	// requested Config when the device does not support it exactly.
	Format() (sampleRate, channels int)

	// Close stops the device and closes the frame channel. Calling Close
	// more than once is safe and returns nil.
	Close() error
}

// Platform opens the microphone device. Implementations must be safe for
// concurrent use; the [Manager] serialises Open calls itself.
type Platform interface {
	// Open acquires the microphone with the given constraints. Acquisition
	// failures must be translated to the sentinel errors of this package
	// ([ErrPermissionDenied], [ErrDeviceNotFound], [ErrDeviceUnsupported])
	// where the cause is known; anything else is wrapped as an unknown
	// media error.
	Open(ctx context.Context, cfg Config) (Session, error)
}
