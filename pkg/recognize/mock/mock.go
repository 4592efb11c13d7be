// Package mock provides a scriptable recognizer double for tests. Tests
// emit transcript fragments into live sessions and script Start failures to
// exercise the spotter's restart and disable paths.
package mock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/otofarma/otobot/pkg/recognize"
)

// Recognizer is a scriptable recognize.Recognizer.
type Recognizer struct {
	// StartErrs is consumed one element per Start call; a nil element
	// means that Start succeeds. When the slice is exhausted, Start
	// succeeds.
	StartErrs []error

	// StartCalls counts Start invocations.
	StartCalls atomic.Int64

	mu       sync.Mutex
	starts   int
	sessions []*Session
}

var _ recognize.Recognizer = (*Recognizer)(nil)

// Start returns a new mock session or the next scripted error.
func (r *Recognizer) Start(_ context.Context, _ recognize.Config) (recognize.SessionHandle, error) {
	r.StartCalls.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.starts < len(r.StartErrs) {
		err := r.StartErrs[r.starts]
		r.starts++
		if err != nil {
			return nil, err
		}
	} else {
		r.starts++
	}
	s := NewSession()
	r.sessions = append(r.sessions, s)
	return s, nil
}

// LastSession returns the most recently started session, or nil.
func (r *Recognizer) LastSession() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sessions) == 0 {
		return nil
	}
	return r.sessions[len(r.sessions)-1]
}

// Sessions returns all sessions started so far.
func (r *Recognizer) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, len(r.sessions))
	copy(out, r.sessions)
	return out
}

// Session is a recognize.SessionHandle driven by the test.
type Session struct {
	results chan recognize.Result

	once sync.Once
	done chan struct{}

	errMu sync.Mutex
	err   error

	StopCalls atomic.Int64
}

var _ recognize.SessionHandle = (*Session)(nil)

// NewSession creates an open mock session.
func NewSession() *Session {
	return &Session{
		results: make(chan recognize.Result, 64),
		done:    make(chan struct{}),
	}
}

// Emit delivers a transcript fragment to the session consumer.
func (s *Session) Emit(text string, final bool) {
	select {
	case s.results <- recognize.Result{Text: text, Final: final}:
	case <-s.done:
	}
}

// End terminates the session with the given terminal error (nil for a
// benign end), closing the results channel.
func (s *Session) End(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
	s.once.Do(func() {
		close(s.done)
		close(s.results)
	})
}

// SendAudio implements recognize.SessionHandle; audio is discarded.
func (s *Session) SendAudio(_ []byte) error {
	select {
	case <-s.done:
		return errors.New("mock: session is stopped")
	default:
		return nil
	}
}

// Results implements recognize.SessionHandle.
func (s *Session) Results() <-chan recognize.Result { return s.results }

// Stop implements recognize.SessionHandle. Safe to call multiple times.
func (s *Session) Stop() error {
	s.StopCalls.Add(1)
	s.once.Do(func() {
		close(s.done)
		close(s.results)
	})
	return nil
}

// Err implements recognize.SessionHandle.
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}
