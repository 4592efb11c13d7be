package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/otofarma/otobot/pkg/audio"
)

// Manager owns the lifecycle of the single microphone session used by the
// runtime. It enforces the contract of the capture boundary:
//
//   - Acquire is idempotent: repeated calls while a session is live return
//     the existing session without re-opening the device, so the platform
//     prompts for permission at most once per runtime under normal
//     operation.
//   - Release is idempotent and safe from any state; it never returns an
//     error and never double-closes.
//
// The session is reused across recording episodes rather than re-acquired
// each time. All exported methods are safe for concurrent use.
type Manager struct {
	platform Platform
	cfg      Config

	mu      sync.Mutex
	session Session
}

// NewManager creates a Manager that opens the device through platform with
// the given constraints. Zero-value config fields get capture defaults
// (16 kHz mono with echo cancellation, noise suppression, and auto gain).
func NewManager(platform Platform, cfg Config) *Manager {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &Manager{platform: platform, cfg: cfg}
}

// Acquire returns the live session, opening the device on first use.
// Acquisition errors are returned unwrapped when they are one of the
// package sentinels and wrapped as an unknown media error otherwise.
func (m *Manager) Acquire(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		return m.session, nil
	}

	sess, err := m.platform.Open(ctx, m.cfg)
	if err != nil {
		return nil, fmt.Errorf("capture: acquire: %w", err)
	}

	sr, ch := sess.Format()
	slog.Info("capture session acquired",
		"sample_rate", sr,
		"channels", ch,
	)
	m.session = sess
	return sess, nil
}

// Active reports whether a live session is currently held.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Release tears down the live session if any: the device is stopped and the
// frame channel closed. Safe to call multiple times and from any state; a
// close error is logged, not returned.
func (m *Manager) Release() {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.mu.Unlock()

	if sess == nil {
		return
	}
	if err := sess.Close(); err != nil {
		slog.Warn("capture session close error", "err", err)
	} else {
		slog.Info("capture session released")
	}
	// Frames buffered after the last consumer detached would otherwise sit
	// in the channel forever; empty it so the producer side can finish.
	go audio.Drain(sess.Frames())
}
