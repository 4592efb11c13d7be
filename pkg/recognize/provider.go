// Package recognize defines the continuous speech recognizer boundary used
// by the hotword spotter.
//
// A Recognizer wraps an interim-results-enabled streaming recognition
// service bound to a fixed locale. Each Start call produces a session that
// accepts live audio and emits partial and final transcript fragments until
// it is stopped.
//
// The interfaces live under pkg/ because recognizer backends are platform
// adapters: the stream subpackage provides a WebSocket streaming adapter and
// the mock subpackage a scriptable double for tests.
package recognize

import (
	"context"
	"errors"
)

// ErrNotAllowed indicates the recognition service refused access
// (authentication or policy). The spotter treats this as permanent for the
// session: no restart attempts are made and the condition is surfaced to
// the user.
var ErrNotAllowed = errors.New("recognize: service not allowed")

// Result is one recognized transcript fragment.
type Result struct {
	// Text is the raw transcript as returned by the recognizer.
	Text string

	// Final reports whether the recognizer considers this fragment
	// stable. Interim fragments may be revised by later results.
	Final bool

	// Confidence is the recognizer's confidence score, 0 when the backend
	// does not report one.
	Confidence float64
}

// Config holds the parameters for one recognition session.
type Config struct {
	// Language is the BCP-47 locale the recognizer is bound to
	// (e.g., "it-IT").
	Language string

	// SampleRate of the PCM audio sent via SendAudio, in Hz.
	SampleRate int

	// InterimResults requests partial fragments in addition to finals.
	// The hotword spotter always enables this.
	InterimResults bool
}

// SessionHandle is one live recognition session.
//
// Results is closed when the session ends for any reason; Err then reports
// the terminal error, nil for a clean stop. Stop is idempotent and safe to
// call from any goroutine.
type SessionHandle interface {
	// SendAudio delivers a chunk of little-endian PCM at the configured
	// sample rate. Returns an error once the session is stopped.
	SendAudio(chunk []byte) error

	// Results returns the fragment channel. Closed on session end.
	Results() <-chan Result

	// Stop ends the session. Safe to call multiple times.
	Stop() error

	// Err returns the terminal session error after Results has closed:
	// nil for a clean stop, [ErrNotAllowed] for a permanent refusal, or
	// the transport error that ended the session.
	Err() error
}

// Recognizer is the factory for recognition sessions.
//
// Implementations must be safe for concurrent use; the spotter starts a new
// session after every benign session end.
type Recognizer interface {
	Start(ctx context.Context, cfg Config) (SessionHandle, error)
}
