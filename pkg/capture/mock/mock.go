// Package mock provides scriptable capture doubles for tests: a [Platform]
// whose Open outcome is programmable and a [Session] that tests feed frames
// into directly.
package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/otofarma/otobot/pkg/audio"
	"github.com/otofarma/otobot/pkg/capture"
)

// Platform is a scriptable capture.Platform. The zero value opens sessions
// successfully with the requested format.
type Platform struct {
	// OpenErr, when non-nil, is returned by every Open call.
	OpenErr error

	// OpenCalls counts Open invocations, letting tests assert that the
	// manager never re-prompts while a session is live.
	OpenCalls atomic.Int64

	mu       sync.Mutex
	sessions []*Session
}

var _ capture.Platform = (*Platform)(nil)

// Open returns a new mock Session or the scripted error.
func (p *Platform) Open(_ context.Context, cfg capture.Config) (capture.Session, error) {
	p.OpenCalls.Add(1)
	if p.OpenErr != nil {
		return nil, p.OpenErr
	}
	s := NewSession(cfg.SampleRate, cfg.Channels)
	p.mu.Lock()
	p.sessions = append(p.sessions, s)
	p.mu.Unlock()
	return s, nil
}

// LastSession returns the most recently opened session, or nil.
func (p *Platform) LastSession() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sessions) == 0 {
		return nil
	}
	return p.sessions[len(p.sessions)-1]
}

// Session is a capture.Session whose frames are supplied by the test.
type Session struct {
	sampleRate int
	channels   int
	frames     chan audio.Frame

	closeOnce  sync.Once
	CloseCalls atomic.Int64
}

var _ capture.Session = (*Session)(nil)

// NewSession creates a mock session with a buffered frame channel.
func NewSession(sampleRate, channels int) *Session {
	return &Session{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     make(chan audio.Frame, 256),
	}
}

// Feed delivers a frame to the session's consumer. Drops the frame when the
// buffer is full, mirroring live microphone semantics.
func (s *Session) Feed(f audio.Frame) {
	select {
	case s.frames <- f:
	default:
	}
}

// Frames implements capture.Session.
func (s *Session) Frames() <-chan audio.Frame { return s.frames }

// Format implements capture.Session.
func (s *Session) Format() (int, int) { return s.sampleRate, s.channels }

// Close implements capture.Session. Safe to call multiple times; the frame
// channel is closed exactly once.
func (s *Session) Close() error {
	s.CloseCalls.Add(1)
	s.closeOnce.Do(func() { close(s.frames) })
	return nil
}
