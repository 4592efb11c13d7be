// Package app wires all OtoBot subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run executes the interaction machine and the status HTTP
// server, and Shutdown tears everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithPlatform, WithPlayer, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/otofarma/otobot/internal/assistant"
	"github.com/otofarma/otobot/internal/config"
	"github.com/otofarma/otobot/internal/exchange"
	"github.com/otofarma/otobot/internal/health"
	"github.com/otofarma/otobot/internal/hotword"
	"github.com/otofarma/otobot/internal/journal"
	"github.com/otofarma/otobot/internal/observe"
	"github.com/otofarma/otobot/internal/resilience"
	"github.com/otofarma/otobot/internal/vad"
	"github.com/otofarma/otobot/pkg/capture"
	"github.com/otofarma/otobot/pkg/playback"
	"github.com/otofarma/otobot/pkg/recognize"
	"github.com/otofarma/otobot/pkg/recognize/stream"
)

// App owns all subsystem lifetimes and orchestrates the OtoBot voice pipeline.
type App struct {
	cfg     *config.Config
	machine *assistant.Machine
	manager *capture.Manager
	exch    *exchange.Client
	metrics *observe.Metrics
	obs     *metricsObserver
	journal *journal.FileStore
	server  *http.Server
	handler http.Handler

	logLevel *slog.LevelVar

	// Injected boundaries. Nil means New builds the real thing, or a
	// degraded stand-in when no real implementation can exist.
	platform   capture.Platform
	player     playback.Player
	recognizer recognize.Recognizer

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles
// or host-provided platform adapters.
type Option func(*App)

// WithPlatform injects the microphone platform adapter. Without one the
// machine starts Idle and every acquisition fails with a device-not-found
// status.
func WithPlatform(p capture.Platform) Option {
	return func(a *App) { a.platform = p }
}

// WithPlayer injects the reply playback sink.
func WithPlayer(p playback.Player) Option {
	return func(a *App) { a.player = p }
}

// WithRecognizer injects the streaming recognizer used for wake phrase and
// barge-in detection, replacing the one built from the hotword config.
func WithRecognizer(r recognize.Recognizer) Option {
	return func(a *App) { a.recognizer = r }
}

// WithExchange injects the exchange client instead of building one from
// config.
func WithExchange(c *exchange.Client) Option {
	return func(a *App) { a.exch = c }
}

// WithLogLevelVar wires the level var backing the process logger so config
// reloads can adjust verbosity without a restart.
func WithLogLevelVar(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// New creates an App by wiring all subsystems together. Missing environment
// pieces (no capture platform, no recognizer credentials) degrade the
// machine to a reduced mode instead of failing.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if a.exch == nil {
		a.exch = exchange.NewClient(cfg.Exchange.BaseURL,
			exchange.WithTimeout(cfg.Exchange.Timeout()),
			exchange.WithBreakers(resilience.BreakerConfig{
				MaxFailures: cfg.Exchange.Breaker.MaxFailures,
				Cooldown:    cfg.Exchange.Breaker.Cooldown(),
			}),
		)
	}

	if a.platform == nil {
		slog.Warn("no capture platform wired; microphone acquisition is unavailable")
		a.platform = unavailablePlatform{}
	}
	a.manager = capture.NewManager(a.platform, capture.Config{
		SampleRate:       cfg.Capture.SampleRate,
		Channels:         cfg.Capture.Channels,
		EchoCancellation: cfg.Capture.EchoCancellation,
		NoiseSuppression: cfg.Capture.NoiseSuppression,
		AutoGain:         cfg.Capture.AutoGain,
	})

	if a.player == nil {
		slog.Warn("no playback sink wired; replies are discarded")
		a.player = playback.NewWriterPlayer(io.Discard)
	}

	spotter, barge, err := a.buildSpotters()
	if err != nil {
		return nil, fmt.Errorf("app: build spotters: %w", err)
	}

	a.metrics = observe.DefaultMetrics()

	if cfg.Assistant.JournalPath != "" {
		a.journal = journal.NewFileStore(cfg.Assistant.JournalPath)
	}

	a.obs = &metricsObserver{m: a.metrics, journal: a.journal}
	machineOpts := []assistant.Option{
		assistant.WithObserver(a.obs),
	}
	if barge != nil {
		machineOpts = append(machineOpts, assistant.WithBargeSpotter(barge))
	}
	a.machine = assistant.New(a.manager, spotter, a.exch, a.player, assistant.Config{
		Trigger: assistant.TriggerMode(cfg.Assistant.TriggerMode),
		Sink:    assistant.PlaybackSink(cfg.Assistant.PlaybackSink),
		VAD: vad.Config{
			SilenceEnergyThreshold: cfg.VAD.SilenceEnergyThreshold,
			MinSpeechDuration:      cfg.VAD.MinSpeech(),
			SilenceHold:            cfg.VAD.SilenceHold(),
		},
		PlaybackTimeout:  cfg.Assistant.PlaybackTimeout(),
		RemoteActivation: cfg.Hotword.RemoteActivation,
	}, machineOpts...)

	a.buildStatusServer()
	return a, nil
}

// buildSpotters constructs the wake phrase spotter and the optional barge-in
// spotter. Hotword enabled without recognizer credentials degrades to a nil
// spotter; the machine then runs manual-only.
func (a *App) buildSpotters() (spotter, barge assistant.Spotter, err error) {
	cfg := a.cfg
	if !cfg.Hotword.Enabled {
		return nil, nil, nil
	}

	if a.recognizer == nil {
		if cfg.Hotword.Recognizer.APIKey == "" {
			slog.Warn("hotword enabled without recognizer credentials; manual trigger only")
			return nil, nil, nil
		}
		var streamOpts []stream.Option
		if cfg.Hotword.Recognizer.Endpoint != "" {
			streamOpts = append(streamOpts, stream.WithEndpoint(cfg.Hotword.Recognizer.Endpoint))
		}
		if cfg.Hotword.Recognizer.Model != "" {
			streamOpts = append(streamOpts, stream.WithModel(cfg.Hotword.Recognizer.Model))
		}
		a.recognizer, err = stream.New(cfg.Hotword.Recognizer.APIKey, streamOpts...)
		if err != nil {
			return nil, nil, err
		}
	}

	spotter = hotword.New(a.recognizer, hotword.Config{
		Variants:          cfg.Hotword.Variants,
		Cooldown:          cfg.Hotword.Cooldown(),
		Language:          cfg.Hotword.Language,
		SampleRate:        cfg.Capture.SampleRate,
		PhoneticThreshold: cfg.Hotword.PhoneticThreshold,
	})

	if cfg.Assistant.BargeIn.Enabled {
		barge = hotword.New(a.recognizer, hotword.Config{
			Variants:          cfg.Assistant.BargeIn.Phrases,
			Cooldown:          cfg.Hotword.Cooldown(),
			Language:          cfg.Hotword.Language,
			SampleRate:        cfg.Capture.SampleRate,
			PhoneticThreshold: cfg.Hotword.PhoneticThreshold,
		})
	}
	return spotter, barge, nil
}

// buildStatusServer assembles the health, metrics, and status endpoints.
func (a *App) buildStatusServer() {
	mux := http.NewServeMux()
	health.New(
		health.ExchangeChecker(a.exch),
		health.VoiceChecker(a.exch),
		health.CaptureChecker(a.manager),
	).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /statusz", a.statusz)
	if a.journal != nil {
		mux.HandleFunc("GET /journalz", a.journalz)
	}

	a.handler = observe.Middleware(a.metrics)(mux)
	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Handler returns the status HTTP handler. Exposed for tests.
func (a *App) Handler() http.Handler { return a.handler }

// Machine returns the interaction machine for host integrations that need to
// deliver triggers or visibility changes.
func (a *App) Machine() *assistant.Machine { return a.machine }

// statusz reports the machine state and episode counters as JSON.
func (a *App) statusz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"state":    a.machine.State().String(),
		"status":   a.machine.Status(),
		"episodes": a.obs.EpisodeCounts(),
	})
}

// journalz reports the most recent conversation turns as JSON.
func (a *App) journalz(w http.ResponseWriter, _ *http.Request) {
	records, err := a.journal.Recent(50)
	if err != nil {
		slog.Warn("journal read failed", "err", err)
		http.Error(w, "journal unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("statusz encode failed", "err", err)
	}
}

// Run starts the interaction machine and the status server, blocking until
// ctx is cancelled or a subsystem fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.machine.Run(gctx)
	})

	g.Go(func() error {
		slog.Info("status server listening", "addr", a.server.Addr)
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: status server: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		sdCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.server.Shutdown(sdCtx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ApplyConfig reacts to a config file reload. Hot-reloadable changes are
// applied in place; everything else is logged as requiring a restart.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if !d.Changed() {
		return
	}

	if d.LogLevelChanged {
		if a.logLevel != nil {
			a.logLevel.Set(SlogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		} else {
			slog.Warn("log level changed but no level var is wired", "level", d.NewLogLevel)
		}
	}

	if d.VADChanged {
		a.machine.UpdateVAD(vad.Config{
			SilenceEnergyThreshold: new.VAD.SilenceEnergyThreshold,
			MinSpeechDuration:      new.VAD.MinSpeech(),
			SilenceHold:            new.VAD.SilenceHold(),
		})
		slog.Info("detector thresholds updated",
			"threshold", new.VAD.SilenceEnergyThreshold,
			"min_speech", new.VAD.MinSpeech(),
			"silence_hold", new.VAD.SilenceHold(),
		)
	}

	if d.HotwordChanged || d.RestartRequired {
		slog.Warn("config change requires a restart to take effect")
	}
}

// Shutdown tears down the machine and the status server. Idempotent; safe
// to call after Run has returned.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		a.machine.Close()
		err = a.server.Shutdown(ctx)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	})
	return err
}

// SlogLevel maps a config log level onto its slog equivalent.
func SlogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// unavailablePlatform is the stand-in when no host platform adapter is
// wired. Every acquisition fails with the device-not-found sentinel.
type unavailablePlatform struct{}

func (unavailablePlatform) Open(context.Context, capture.Config) (capture.Session, error) {
	return nil, capture.ErrDeviceNotFound
}
