// Package mock provides a scriptable playback double for tests.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/otofarma/otobot/pkg/playback"
)

// Player is a scriptable playback.Player. The zero value plays every reply
// instantly and successfully.
type Player struct {
	// PlayErr, when non-nil, is returned by every Play call.
	PlayErr error

	// Delay simulates playback duration; Play blocks for this long unless
	// the context is cancelled first.
	Delay time.Duration

	// Block, when non-nil, makes Play wait until the channel is closed
	// (or the context is cancelled). Used to test the safety timeout and
	// barge-in paths.
	Block chan struct{}

	mu      sync.Mutex
	replies []playback.Reply
}

var _ playback.Player = (*Player)(nil)

// Play implements playback.Player.
func (p *Player) Play(ctx context.Context, reply playback.Reply) error {
	p.mu.Lock()
	p.replies = append(p.replies, reply)
	block := p.Block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.PlayErr
}

// Replies returns a snapshot of all replies played so far.
func (p *Player) Replies() []playback.Reply {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]playback.Reply, len(p.replies))
	copy(out, p.replies)
	return out
}
