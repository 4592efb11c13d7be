// Package hotword implements wake phrase spotting on a continuous speech
// recognizer stream.
//
// The Spotter runs only while the interaction machine is listening. It
// starts a recognition session, tests every transcript fragment (interim
// and final) against the configured wake phrase variants, and emits an
// activation event on a match — gated by a cooldown so overlapping
// recognizer callbacks for the same utterance fire exactly once. After an
// activation the Spotter stops its recognizer and pauses itself so that the
// recording path never hears the assistant's own audio; the machine resumes
// it when it returns to listening.
//
// Benign session ends restart the recognizer after a bounded delay,
// approximating continuous listening. A not-allowed error permanently
// disables the Spotter for the session.
package hotword

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/otofarma/otobot/pkg/recognize"
)

// ErrDisabled is returned by Run after the recognizer permanently refused
// access. The runtime degrades to manual triggering.
var ErrDisabled = errors.New("hotword: spotter disabled for this session")

// Defaults. The cooldown covers the typical span of duplicate recognizer
// callbacks for one utterance.
const (
	DefaultCooldown     = 900 * time.Millisecond
	DefaultRestartDelay = 500 * time.Millisecond
	DefaultLanguage     = "it-IT"
)

// DefaultVariants are the accepted renderings of the wake phrase.
var DefaultVariants = []string{"ciao", "ciao oto", "ciao otobot"}

// Config holds the Spotter parameters.
type Config struct {
	// Variants are the accepted wake phrase renderings. Defaults to
	// [DefaultVariants].
	Variants []string

	// Cooldown suppresses a second activation within this window of the
	// previous one, regardless of which downstream action consumed it.
	Cooldown time.Duration

	// RestartDelay bounds how quickly the recognizer is restarted after a
	// benign session end.
	RestartDelay time.Duration

	// Language is the recognizer locale.
	Language string

	// SampleRate of audio delivered to the recognizer, in Hz.
	SampleRate int

	// PhoneticThreshold tunes the near-match sensitivity (Jaro-Winkler
	// score floor for phonetically-aligned fragments).
	PhoneticThreshold float64
}

// Activation is one accepted wake phrase detection.
type Activation struct {
	// Variant is the normalized variant that matched.
	Variant string

	// Fragment is the raw recognizer fragment that contained it.
	Fragment string

	// At is when the activation fired.
	At time.Time
}

// Option is a functional option for a Spotter.
type Option func(*Spotter)

// WithClock injects the time source. Tests use a fake clock to pin the
// cooldown window.
func WithClock(now func() time.Time) Option {
	return func(s *Spotter) { s.now = now }
}

// Spotter detects the wake phrase on a recognizer stream. All exported
// methods are safe for concurrent use.
type Spotter struct {
	rec     recognize.Recognizer
	cfg     Config
	matcher *matcher
	now     func() time.Time

	activations chan Activation

	mu             sync.Mutex
	paused         bool
	disabled       bool
	lastActivation time.Time
	session        recognize.SessionHandle
	resume         chan struct{}
}

// New creates a Spotter reading from rec. Zero-value config fields are
// replaced with package defaults.
func New(rec recognize.Recognizer, cfg Config, opts ...Option) *Spotter {
	if len(cfg.Variants) == 0 {
		cfg.Variants = DefaultVariants
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.RestartDelay <= 0 {
		cfg.RestartDelay = DefaultRestartDelay
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	s := &Spotter{
		rec:         rec,
		cfg:         cfg,
		matcher:     newMatcher(cfg.Variants, cfg.PhoneticThreshold),
		now:         time.Now,
		activations: make(chan Activation, 4),
		resume:      make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Activations returns the activation event channel. Events are dropped,
// not queued, when the consumer lags — a stale activation must not start a
// recording episode later.
func (s *Spotter) Activations() <-chan Activation { return s.activations }

// Pause stops the current recognition session and keeps the Spotter idle
// until Resume. Idempotent.
func (s *Spotter) Pause() {
	s.mu.Lock()
	s.paused = true
	sess := s.session
	s.mu.Unlock()
	if sess != nil {
		_ = sess.Stop()
	}
}

// Resume lets the Spotter start listening again. A no-op when disabled.
func (s *Spotter) Resume() {
	s.mu.Lock()
	wasPaused := s.paused
	s.paused = false
	s.mu.Unlock()
	if wasPaused {
		select {
		case s.resume <- struct{}{}:
		default:
		}
	}
}

// Feed forwards captured PCM to the active recognition session. Audio
// arriving between sessions is discarded.
func (s *Spotter) Feed(pcm []byte) {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess == nil {
		return
	}
	if err := sess.SendAudio(pcm); err != nil {
		slog.Debug("hotword audio send failed", "err", err)
	}
}

// Disabled reports whether the Spotter has been permanently disabled.
func (s *Spotter) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// Run drives the spot-restart loop until ctx is cancelled or the Spotter
// is permanently disabled. Returns ctx.Err() on cancellation and
// [ErrDisabled] (wrapped over the cause) on permanent refusal.
func (s *Spotter) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.Disabled() {
			return ErrDisabled
		}
		if s.waitWhilePaused(ctx) {
			return ctx.Err()
		}

		err := s.runSession(ctx)
		switch {
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, recognize.ErrNotAllowed):
			s.disable()
			slog.Error("hotword spotter permanently disabled", "err", err)
			return fmt.Errorf("%w: %w", ErrDisabled, err)
		case err != nil:
			slog.Warn("hotword session ended, restarting", "err", err, "delay", s.cfg.RestartDelay)
			if sleepCtx(ctx, s.cfg.RestartDelay) {
				return ctx.Err()
			}
		default:
			// Clean end: paused after an activation or stream finished.
		}
	}
}

// waitWhilePaused blocks until the Spotter is resumed. Reports whether ctx
// ended while waiting.
func (s *Spotter) waitWhilePaused(ctx context.Context) bool {
	for {
		s.mu.Lock()
		paused := s.paused
		s.mu.Unlock()
		if !paused {
			return false
		}
		select {
		case <-ctx.Done():
			return true
		case <-s.resume:
		}
	}
}

// runSession starts one recognition session and consumes it until it ends.
// A nil return means a benign end (activation self-stop or clean close);
// a non-nil return is either a start failure or the session's terminal
// error.
func (s *Spotter) runSession(ctx context.Context) error {
	sess, err := s.rec.Start(ctx, recognize.Config{
		Language:       s.cfg.Language,
		SampleRate:     s.cfg.SampleRate,
		InterimResults: true,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.paused {
		// Paused between the loop check and session start.
		s.mu.Unlock()
		_ = sess.Stop()
		return nil
	}
	s.session = sess
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()
		_ = sess.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-sess.Results():
			if !ok {
				return sess.Err()
			}
			if s.handleFragment(res) {
				return nil
			}
		}
	}
}

// handleFragment tests one fragment and fires an activation when it
// matches outside the cooldown window. Reports whether the session should
// end (activation fired).
func (s *Spotter) handleFragment(res recognize.Result) bool {
	variant, ok := s.matcher.Match(res.Text)
	if !ok {
		return false
	}

	now := s.now()
	s.mu.Lock()
	if !s.lastActivation.IsZero() && now.Sub(s.lastActivation) < s.cfg.Cooldown {
		s.mu.Unlock()
		return false
	}
	s.lastActivation = now
	// Self-pause before the event is consumed: the recorder must never
	// race a restarted recognizer for the capture stream.
	s.paused = true
	s.mu.Unlock()

	slog.Info("hotword activated", "variant", variant, "fragment", res.Text)
	select {
	case s.activations <- Activation{Variant: variant, Fragment: res.Text, At: now}:
	default:
		slog.Warn("hotword activation dropped, consumer lagging")
	}
	return true
}

// disable marks the Spotter permanently disabled.
func (s *Spotter) disable() {
	s.mu.Lock()
	s.disabled = true
	s.mu.Unlock()
}

// sleepCtx sleeps for d unless ctx ends first; reports whether ctx ended.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return true
	case <-t.C:
		return false
	}
}
