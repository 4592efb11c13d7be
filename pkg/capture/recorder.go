package capture

import (
	"sync"
	"time"

	"github.com/otofarma/otobot/pkg/audio"
)

// Recorder accumulates the frames of exactly one recording episode from a
// session's live stream. Create a fresh Recorder per episode; the buffer is
// reset on construction and consumed by [Recorder.Payload] when the episode
// ends.
//
// Run is the single consumer of the frame channel for the duration of the
// episode; Stop is safe to call from any goroutine and any number of times.
type Recorder struct {
	buf  *audio.RecordingBuffer
	fold bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewRecorder returns a Recorder with an empty buffer for the given capture
// format. Stereo input is folded to mono, so the buffer and the resulting
// payload are always single-channel.
func NewRecorder(sampleRate, channels int) *Recorder {
	fold := channels == 2
	if fold {
		channels = 1
	}
	return &Recorder{
		buf:  audio.NewRecordingBuffer(sampleRate, channels),
		fold: fold,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Run consumes frames until Stop is called or the channel closes (device
// lost). Each frame is appended to the episode buffer and, when observe is
// non-nil, handed to observe first — this is how the voice activity
// detector sees the live stream. Stereo frames are folded to mono before
// either consumer sees them. Run blocks; call it from a dedicated goroutine
// and use [Recorder.Done] to synchronise.
func (r *Recorder) Run(frames <-chan audio.Frame, observe func(audio.Frame)) {
	defer close(r.done)
	for {
		select {
		case <-r.stop:
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if r.fold {
				f.PCM = audio.StereoToMono(f.PCM)
				f.Channels = 1
			}
			if observe != nil {
				observe(f)
			}
			r.buf.Append(f)
		}
	}
}

// Stop ends the episode. Idempotent; the frame callback is detached as soon
// as Run observes the stop signal.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Done is closed when Run has returned and the buffer is safe to consume.
func (r *Recorder) Done() <-chan struct{} { return r.done }

// Payload assembles the recorded audio into a single WAV payload, consuming
// the buffer. Returns nil for a zero-byte recording. Call only after Done
// is closed.
func (r *Recorder) Payload() []byte { return r.buf.Payload() }

// RecordedDuration returns the audio duration accumulated so far. Valid
// after Done is closed.
func (r *Recorder) RecordedDuration() time.Duration {
	return r.buf.Duration()
}
