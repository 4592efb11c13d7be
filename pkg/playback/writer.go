package playback

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// WriterPlayer renders replies by writing the synthesized payload to an
// io.Writer (an audio pipe, a file, io.Discard in headless deployments).
// Replies without audio are written as their text followed by a newline.
type WriterPlayer struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Player = (*WriterPlayer)(nil)

// NewWriterPlayer creates a player that writes replies to w.
func NewWriterPlayer(w io.Writer) *WriterPlayer {
	return &WriterPlayer{w: w}
}

// Play writes the reply payload. It honours ctx only between replies; a
// single write is not interruptible.
func (p *WriterPlayer) Play(ctx context.Context, reply Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if len(reply.Audio) > 0 {
		_, err = p.w.Write(reply.Audio)
	} else {
		_, err = fmt.Fprintln(p.w, reply.Text)
	}
	if err != nil {
		return fmt.Errorf("playback: write reply: %w", err)
	}
	return nil
}
