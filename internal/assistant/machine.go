// Package assistant implements the voice interaction state machine: the
// single owner of the interaction state, driving one episode at a time from
// a trigger through recording, transcription, chat, synthesis and playback,
// and back to listening on every outcome.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/otofarma/otobot/internal/exchange"
	"github.com/otofarma/otobot/internal/hotword"
	"github.com/otofarma/otobot/internal/vad"
	"github.com/otofarma/otobot/pkg/audio"
	"github.com/otofarma/otobot/pkg/capture"
	"github.com/otofarma/otobot/pkg/playback"
)

// Exchange is the slice of the remote exchange client the machine drives.
type Exchange interface {
	Transcribe(ctx context.Context, payload []byte) (string, error)
	Chat(ctx context.Context, message string, voice bool) (string, error)
	VoiceActivation(ctx context.Context, message string) (exchange.Activation, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

var _ Exchange = (*exchange.Client)(nil)

// Spotter is the wake phrase source the machine runs, pauses around
// episodes, and resumes on return to listening.
type Spotter interface {
	Run(ctx context.Context) error
	Activations() <-chan hotword.Activation
	Pause()
	Resume()
	Feed(pcm []byte)
	Disabled() bool
}

var _ Spotter = (*hotword.Spotter)(nil)

// Observer receives machine lifecycle callbacks. The metrics layer
// implements it; tests may ignore it.
type Observer interface {
	StateChanged(s State, status string)
	StageCompleted(stage string, d time.Duration, err error)
	EpisodeCompleted(outcome string, d time.Duration)
	TurnCompleted(transcript, reply string)
}

type nopObserver struct{}

func (nopObserver) StateChanged(State, string)                  {}
func (nopObserver) StageCompleted(string, time.Duration, error) {}
func (nopObserver) EpisodeCompleted(string, time.Duration)      {}
func (nopObserver) TurnCompleted(string, string)                {}

// DefaultPlaybackTimeout bounds a single reply playback. A stuck or
// undelivered playback-ended event must not wedge the machine in Playing.
const DefaultPlaybackTimeout = 2 * time.Minute

// Config parameterizes the machine.
type Config struct {
	// Trigger selects how episodes start. Defaults to [TriggerHotword]
	// when a spotter is wired, [TriggerManual] otherwise.
	Trigger TriggerMode

	// Sink selects how replies become audible. Defaults to
	// [SinkRemoteSynthesis].
	Sink PlaybackSink

	// VAD configures the in-episode voice activity detector.
	VAD vad.Config

	// PlaybackTimeout bounds one playback. Defaults to
	// [DefaultPlaybackTimeout].
	PlaybackTimeout time.Duration

	// RemoteActivation confirms each wake phrase detection through the
	// exchange's voice activation endpoint before recording starts; the
	// optional reply is spoken as an acknowledgement.
	RemoteActivation bool

	// AutoTriggerThreshold is the RMS energy above which a frame starts
	// an episode in vad-auto mode. Zero falls back to the VAD silence
	// threshold.
	AutoTriggerThreshold float64
}

// Option is a functional option for a Machine.
type Option func(*Machine)

// WithObserver installs the lifecycle observer.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.obs = o }
}

// WithBargeSpotter installs a spotter for interruption phrases, active only
// while Playing. A barge-in match cancels playback and returns the machine
// to listening.
func WithBargeSpotter(s Spotter) Option {
	return func(m *Machine) { m.barge = s }
}

type episodeCause struct {
	manual     bool
	activation *hotword.Activation
}

// Machine is the interaction state machine. Its run loop is the only
// writer of the state; Trigger and SetVisible are safe from any goroutine.
type Machine struct {
	capture *capture.Manager
	spotter Spotter
	barge   Spotter
	exch    Exchange
	player  playback.Player
	cfg     Config
	obs     Observer

	det           *vad.Detector
	autoThreshold float64

	cmds chan struct{}

	mu      sync.Mutex
	state   State
	status  string
	visible bool

	closeOnce sync.Once
}

// New wires a Machine. spot may be nil, in which case only manual and
// vad-auto triggering are available.
func New(mgr *capture.Manager, spot Spotter, exch Exchange, player playback.Player, cfg Config, opts ...Option) *Machine {
	if cfg.Trigger == "" {
		if spot != nil {
			cfg.Trigger = TriggerHotword
		} else {
			cfg.Trigger = TriggerManual
		}
	}
	if cfg.Sink == "" {
		cfg.Sink = SinkRemoteSynthesis
	}
	if cfg.PlaybackTimeout <= 0 {
		cfg.PlaybackTimeout = DefaultPlaybackTimeout
	}
	threshold := cfg.AutoTriggerThreshold
	if threshold <= 0 {
		threshold = cfg.VAD.SilenceEnergyThreshold
	}
	if threshold <= 0 {
		threshold = vad.DefaultSilenceEnergyThreshold
	}
	m := &Machine{
		capture:       mgr,
		spotter:       spot,
		exch:          exch,
		player:        player,
		cfg:           cfg,
		obs:           nopObserver{},
		det:           vad.New(cfg.VAD),
		autoThreshold: threshold,
		cmds:          make(chan struct{}, 4),
		state:         StateIdle,
		status:        statusIdle,
		visible:       true,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// State returns the current interaction state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the current user-visible status message.
func (m *Machine) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Trigger is the action control. From Listening it starts an episode; a
// second press while Recording forces the stop decision; from Idle it
// retries capture acquisition. Triggers in any other state are ignored, not
// queued.
func (m *Machine) Trigger() {
	switch m.State() {
	case StateIdle, StateListening, StateRecording:
		select {
		case m.cmds <- struct{}{}:
		default:
		}
	default:
		slog.Debug("trigger ignored", "state", m.State())
	}
}

// UpdateVAD replaces the detector thresholds. The new values apply from the
// next recording; a recording in progress keeps the old ones.
func (m *Machine) UpdateVAD(cfg vad.Config) {
	m.mu.Lock()
	m.det = vad.New(cfg)
	m.mu.Unlock()
}

// SetVisible reports page visibility. Hidden pauses the spotter only; an
// episode in progress is not altered. Becoming visible while Listening
// resumes the spotter.
func (m *Machine) SetVisible(v bool) {
	m.mu.Lock()
	m.visible = v
	st := m.state
	m.mu.Unlock()
	if m.spotter == nil {
		return
	}
	if !v {
		m.spotter.Pause()
		return
	}
	if st == StateListening {
		m.spotter.Resume()
	}
}

// Run drives the machine until ctx is cancelled, then releases every held
// resource. Context cancellation is a clean shutdown, not an error.
func (m *Machine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	if m.spotter != nil && m.cfg.Trigger == TriggerHotword {
		g.Go(func() error {
			err := m.spotter.Run(ctx)
			switch {
			case errors.Is(err, hotword.ErrDisabled):
				slog.Warn("wake phrase detection unavailable, manual trigger only", "err", err)
				m.setStatus(statusHotwordOff)
				return nil
			case errors.Is(err, context.Canceled):
				return nil
			default:
				return err
			}
		})
	}
	if m.barge != nil {
		m.barge.Pause()
		g.Go(func() error {
			err := m.barge.Run(ctx)
			if errors.Is(err, context.Canceled) || errors.Is(err, hotword.ErrDisabled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error { return m.loop(ctx) })

	err := g.Wait()
	m.Close()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the capture session and silences the spotters. Idempotent
// and callable from any state; in-flight work is abandoned.
func (m *Machine) Close() {
	m.closeOnce.Do(func() {
		if m.spotter != nil {
			m.spotter.Pause()
		}
		if m.barge != nil {
			m.barge.Pause()
		}
		m.capture.Release()
	})
}

func (m *Machine) loop(ctx context.Context) error {
	if err := m.enterListening(ctx); err != nil {
		slog.Warn("starting idle, capture unavailable", "err", err)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch m.State() {
		case StateIdle:
			if !m.idlePhase(ctx) {
				return ctx.Err()
			}
		default:
			cause, ok := m.listenPhase(ctx)
			if !ok {
				return ctx.Err()
			}
			if cause != nil {
				m.runEpisode(ctx, cause)
			}
		}
	}
}

// enterListening acquires the capture session and moves to Listening, or
// to Idle with a cause-specific status on failure.
func (m *Machine) enterListening(ctx context.Context) error {
	if _, err := m.capture.Acquire(ctx); err != nil {
		m.setState(StateIdle, captureStatus(err))
		return err
	}
	m.setState(StateListening, statusReady)
	return nil
}

// idlePhase waits for a trigger to retry capture acquisition. Reports
// false when ctx ended.
func (m *Machine) idlePhase(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.cmds:
		if err := m.enterListening(ctx); err != nil {
			slog.Warn("capture retry failed", "err", err)
		}
		return true
	}
}

// listenPhase pumps capture audio to the spotter and waits for a trigger.
// A nil cause with ok=true means the phase ended without a trigger (capture
// lost); ok=false means ctx ended.
func (m *Machine) listenPhase(ctx context.Context) (cause *episodeCause, ok bool) {
	sess, err := m.capture.Acquire(ctx)
	if err != nil {
		m.setState(StateIdle, captureStatus(err))
		return nil, true
	}
	if !flushFrames(sess.Frames()) {
		m.captureLost()
		return nil, true
	}

	if m.spotter != nil && m.isVisible() {
		m.spotter.Resume()
	}

	pumpStop := make(chan struct{})
	pumpDone := make(chan struct{})
	framesClosed := make(chan struct{})
	auto := make(chan struct{}, 1)
	go m.pumpListen(sess.Frames(), pumpStop, pumpDone, framesClosed, auto)
	// The recorder takes over the frame stream after this phase; the pump
	// must be gone before it does.
	defer func() {
		close(pumpStop)
		<-pumpDone
	}()

	var acts <-chan hotword.Activation
	if m.spotter != nil && m.cfg.Trigger == TriggerHotword {
		acts = m.spotter.Activations()
	}

	select {
	case <-ctx.Done():
		return nil, false
	case a := <-acts:
		// The spotter self-paused on activation.
		return &episodeCause{activation: &a}, true
	case <-auto:
		m.pauseSpotter()
		return &episodeCause{}, true
	case <-m.cmds:
		m.pauseSpotter()
		return &episodeCause{manual: true}, true
	case <-framesClosed:
		m.captureLost()
		return nil, true
	}
}

// pumpListen is the sole frames consumer while Listening. It feeds the
// spotter and raises an auto trigger on voice energy in vad-auto mode.
func (m *Machine) pumpListen(frames <-chan audio.Frame, stop <-chan struct{}, done chan<- struct{}, closed chan<- struct{}, auto chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case f, ok := <-frames:
			if !ok {
				close(closed)
				return
			}
			if m.spotter != nil {
				m.spotter.Feed(f.PCM)
			}
			if m.cfg.Trigger == TriggerVADAuto && audio.RMS(f) > m.autoThreshold {
				select {
				case auto <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (m *Machine) runEpisode(ctx context.Context, cause *episodeCause) {
	start := time.Now()
	outcome := m.episode(ctx, cause)
	m.obs.EpisodeCompleted(outcome, time.Since(start))
	m.drainTriggers()
	slog.Info("episode finished", "outcome", outcome, "took", time.Since(start))
}

// episode runs one full interaction from trigger to the terminal state
// transition. Every return path leaves the machine in Listening or Idle.
func (m *Machine) episode(ctx context.Context, cause *episodeCause) string {
	sess, err := m.capture.Acquire(ctx)
	if err != nil {
		m.setState(StateIdle, captureStatus(err))
		return "capture-lost"
	}

	if cause.activation != nil && m.cfg.RemoteActivation {
		t0 := time.Now()
		act, err := m.exch.VoiceActivation(ctx, cause.activation.Fragment)
		m.obs.StageCompleted("voice_activation", time.Since(t0), err)
		if err != nil {
			slog.Warn("voice activation check failed", "err", err)
			m.setState(StateListening, statusChatErr)
			return "activation-error"
		}
		if !act.Activated {
			m.setState(StateListening, statusReady)
			return "activation-rejected"
		}
		if act.Reply != "" {
			m.speak(ctx, act.Reply)
		}
	}

	m.setState(StateRecording, statusRecording)
	rate, channels := sess.Format()
	rec := capture.NewRecorder(rate, channels)
	m.mu.Lock()
	det := m.det
	m.mu.Unlock()
	det.Reset()
	go rec.Run(sess.Frames(), func(f audio.Frame) {
		if det.Process(f) == vad.DecisionStop {
			rec.Stop()
		}
	})

	for recording := true; recording; {
		select {
		case <-ctx.Done():
			rec.Stop()
			<-rec.Done()
			return "cancelled"
		case <-rec.Done():
			recording = false
		case <-m.cmds:
			// Second press forces the stop decision.
			rec.Stop()
		}
	}

	m.setState(StateProcessing, statusProcessing)
	payload := rec.Payload()
	if payload == nil {
		m.setState(StateListening, statusNoVoice)
		return "no-voice"
	}

	t0 := time.Now()
	transcript, err := m.exch.Transcribe(ctx, payload)
	m.obs.StageCompleted("transcribe", time.Since(t0), err)
	if err != nil {
		if errors.Is(err, exchange.ErrEmptyTranscript) {
			m.setState(StateListening, statusNoVoice)
			return "empty-transcript"
		}
		slog.Warn("transcription failed", "err", err)
		m.setState(StateListening, statusTranscribeErr)
		return "transcribe-error"
	}

	t0 = time.Now()
	reply, err := m.exch.Chat(ctx, transcript, m.cfg.Sink == SinkRemoteSynthesis)
	m.obs.StageCompleted("chat", time.Since(t0), err)
	if err != nil {
		if errors.Is(err, exchange.ErrEmptyReply) {
			m.setState(StateListening, statusNoReply)
			return "empty-reply"
		}
		slog.Warn("chat exchange failed", "err", err)
		m.setState(StateListening, statusChatErr)
		return "chat-error"
	}
	m.obs.TurnCompleted(transcript, reply)

	var replyAudio []byte
	if m.cfg.Sink == SinkRemoteSynthesis {
		t0 = time.Now()
		replyAudio, err = m.exch.Synthesize(ctx, reply)
		m.obs.StageCompleted("synthesize", time.Since(t0), err)
		if err != nil {
			slog.Warn("speech synthesis failed", "err", err)
			m.setState(StateListening, statusSynthesisErr)
			return "synthesize-error"
		}
	}

	m.setState(StatePlaying, statusPlaying)
	t0 = time.Now()
	err = m.play(ctx, sess, playback.Reply{Text: reply, Audio: replyAudio})
	m.obs.StageCompleted("playback", time.Since(t0), err)
	switch {
	case ctx.Err() != nil:
		return "cancelled"
	case errors.Is(err, playback.ErrBlocked):
		m.setState(StateListening, statusTapToEnable)
		return "playback-blocked"
	case errors.Is(err, context.DeadlineExceeded):
		slog.Warn("playback timed out, forcing return to listening")
		m.setState(StateListening, statusReady)
		return "playback-timeout"
	case err != nil:
		slog.Warn("playback failed", "err", err)
		m.setState(StateListening, statusPlaybackErr)
		return "playback-error"
	}
	m.setState(StateListening, statusReady)
	return "ok"
}

// play runs one playback bounded by the safety timeout. With barge-in
// configured, capture audio is pumped to the interruption spotter and a
// match cancels the playback cleanly.
func (m *Machine) play(ctx context.Context, sess capture.Session, r playback.Reply) error {
	playCtx, cancel := context.WithTimeout(ctx, m.cfg.PlaybackTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- m.player.Play(playCtx, r) }()

	var barge <-chan hotword.Activation
	if m.barge != nil {
		m.barge.Resume()
		defer m.barge.Pause()
		barge = m.barge.Activations()
		stop := make(chan struct{})
		bargeDone := make(chan struct{})
		go m.pumpBarge(sess.Frames(), stop, bargeDone)
		defer func() {
			close(stop)
			<-bargeDone
		}()
	}

	select {
	case err := <-done:
		return err
	case <-barge:
		slog.Info("playback interrupted by voice command")
		cancel()
		<-done
		return nil
	case <-playCtx.Done():
		return playCtx.Err()
	}
}

func (m *Machine) pumpBarge(frames <-chan audio.Frame, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			m.barge.Feed(f.PCM)
		}
	}
}

// speak plays a short acknowledgement. Failures are logged, never fatal to
// the episode.
func (m *Machine) speak(ctx context.Context, text string) {
	r := playback.Reply{Text: text}
	if m.cfg.Sink == SinkRemoteSynthesis {
		payload, err := m.exch.Synthesize(ctx, text)
		if err != nil {
			slog.Warn("acknowledgement synthesis failed", "err", err)
			return
		}
		r.Audio = payload
	}
	playCtx, cancel := context.WithTimeout(ctx, m.cfg.PlaybackTimeout)
	defer cancel()
	if err := m.player.Play(playCtx, r); err != nil {
		slog.Debug("acknowledgement playback failed", "err", err)
	}
}

func (m *Machine) captureLost() {
	slog.Warn("capture stream ended")
	m.capture.Release()
	m.setState(StateIdle, statusCaptureLost)
}

func (m *Machine) pauseSpotter() {
	if m.spotter != nil {
		m.spotter.Pause()
	}
}

func (m *Machine) drainTriggers() {
	for {
		select {
		case <-m.cmds:
		default:
			return
		}
	}
}

func (m *Machine) setState(s State, status string) {
	m.mu.Lock()
	m.state = s
	m.status = status
	m.mu.Unlock()
	slog.Debug("state changed", "state", s, "status", status)
	m.obs.StateChanged(s, status)
}

func (m *Machine) setStatus(status string) {
	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

func (m *Machine) isVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// captureStatus maps a capture acquisition error to its user-visible
// message.
func captureStatus(err error) string {
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		return statusNoPermission
	case errors.Is(err, capture.ErrDeviceNotFound):
		return statusNoDevice
	case errors.Is(err, capture.ErrDeviceUnsupported):
		return statusUnsupported
	default:
		return statusCaptureLost
	}
}

// flushFrames discards frames buffered while no consumer was attached, so
// a new listening phase never replays stale audio. Reports false when the
// stream is closed.
func flushFrames(frames <-chan audio.Frame) bool {
	for {
		select {
		case _, ok := <-frames:
			if !ok {
				return false
			}
		default:
			return true
		}
	}
}
