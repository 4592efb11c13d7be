// Package playback defines the reply playback boundary of the OtoBot
// pipeline.
//
// A Player renders exactly one reply — either a synthesized audio payload
// (remote-synthesis sink) or the reply text handed to a local synthesis
// engine (local-synthesis sink). Sink implementations are platform adapters
// (an audio output device, an OS speech service); this package lives under
// pkg/ because external adapters are expected to implement [Player]. The
// mock subpackage provides a scriptable double for tests.
package playback

import (
	"context"
	"errors"
)

// ErrBlocked indicates the platform refused to start playback without a
// prior user gesture (autoplay policy). The interaction machine surfaces an
// explicit enable-audio affordance when it sees this error.
var ErrBlocked = errors.New("playback: blocked pending user gesture")

// Reply carries one reply to be rendered. Which field is used depends on
// the configured sink: remote-synthesis players decode and play Audio,
// local-synthesis players speak Text.
type Reply struct {
	// Text is the reply text.
	Text string

	// Audio is the synthesized audio payload, nil in local-synthesis
	// mode.
	Audio []byte
}

// Player renders replies.
//
// Play blocks until playback has ended, the context is cancelled, or an
// error occurs; the interaction machine bounds the call with a safety
// timeout. Implementations must be safe for sequential reuse — the machine
// never overlaps Play calls.
type Player interface {
	Play(ctx context.Context, reply Reply) error
}
