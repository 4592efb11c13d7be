package audio

import "time"

// RecordingBuffer accumulates the raw audio chunks of exactly one recording
// episode. It is reset at the start of each episode, consumed into a single
// payload when the episode ends, and discarded afterwards.
//
// The buffer is owned by one recording episode at a time and is not safe for
// concurrent use; the recorder goroutine is its only writer.
type RecordingBuffer struct {
	chunks     [][]byte
	bytes      int
	sampleRate int
	channels   int
	duration   time.Duration
}

// NewRecordingBuffer returns an empty buffer for the given capture format.
func NewRecordingBuffer(sampleRate, channels int) *RecordingBuffer {
	return &RecordingBuffer{sampleRate: sampleRate, channels: channels}
}

// Append adds a frame's PCM data to the buffer. Empty frames are ignored so
// that a stalled capture source cannot inflate the chunk count.
func (b *RecordingBuffer) Append(f Frame) {
	if len(f.PCM) == 0 {
		return
	}
	b.chunks = append(b.chunks, f.PCM)
	b.bytes += len(f.PCM)
	b.duration += f.Duration()
}

// Len returns the total number of PCM bytes accumulated so far.
func (b *RecordingBuffer) Len() int { return b.bytes }

// Duration returns the accumulated audio duration.
func (b *RecordingBuffer) Duration() time.Duration { return b.duration }

// Reset empties the buffer for a new episode, releasing the accumulated
// chunks.
func (b *RecordingBuffer) Reset() {
	b.chunks = nil
	b.bytes = 0
	b.duration = 0
}

// Payload merges the accumulated chunks into a single WAV payload and
// resets the buffer. Returns nil when no audio was recorded, which the
// caller treats as a no-op episode rather than an error.
func (b *RecordingBuffer) Payload() []byte {
	if b.bytes == 0 {
		return nil
	}
	pcm := make([]byte, 0, b.bytes)
	for _, c := range b.chunks {
		pcm = append(pcm, c...)
	}
	payload := EncodeWAV(pcm, b.sampleRate, b.channels)
	b.Reset()
	return payload
}
