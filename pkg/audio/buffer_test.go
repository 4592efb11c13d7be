package audio_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/otofarma/otobot/pkg/audio"
)

func TestRecordingBuffer_PayloadAssemblesWAV(t *testing.T) {
	t.Parallel()

	b := audio.NewRecordingBuffer(16000, 1)
	b.Append(pcmFrame(100, 160))
	b.Append(pcmFrame(-100, 160))

	if b.Len() != 640 {
		t.Fatalf("Len() = %d, want 640", b.Len())
	}

	payload := b.Payload()
	if payload == nil {
		t.Fatal("Payload() = nil, want WAV data")
	}
	if !bytes.HasPrefix(payload, []byte("RIFF")) {
		t.Errorf("payload does not start with RIFF header")
	}
	if got := string(payload[8:12]); got != "WAVE" {
		t.Errorf("payload format = %q, want WAVE", got)
	}
	if got := binary.LittleEndian.Uint32(payload[24:28]); got != 16000 {
		t.Errorf("sample rate in header = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(payload[40:44]); got != 640 {
		t.Errorf("data chunk size = %d, want 640", got)
	}
	if len(payload) != 44+640 {
		t.Errorf("payload length = %d, want %d", len(payload), 44+640)
	}

	// Payload consumes the buffer.
	if b.Len() != 0 {
		t.Errorf("Len() after Payload = %d, want 0", b.Len())
	}
	if b.Payload() != nil {
		t.Errorf("second Payload() returned data, want nil")
	}
}

func TestRecordingBuffer_EmptyEpisode(t *testing.T) {
	t.Parallel()

	b := audio.NewRecordingBuffer(16000, 1)
	b.Append(audio.Frame{}) // empty frames are ignored
	if b.Payload() != nil {
		t.Error("Payload() of empty buffer returned data, want nil")
	}
}

func TestRecordingBuffer_Reset(t *testing.T) {
	t.Parallel()

	b := audio.NewRecordingBuffer(16000, 1)
	b.Append(pcmFrame(50, 160))
	b.Reset()
	if b.Len() != 0 || b.Duration() != 0 {
		t.Errorf("after Reset: Len=%d Duration=%v, want zero", b.Len(), b.Duration())
	}
}
