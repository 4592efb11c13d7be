package exchange

import (
	"errors"
	"fmt"
)

// Sentinel errors for empty-result outcomes. The interaction machine treats
// these as no-op episodes rather than hard failures.
var (
	// ErrEmptyAudio is returned by Transcribe when the payload holds no
	// audio. No network call is made.
	ErrEmptyAudio = errors.New("exchange: empty audio payload")

	// ErrEmptyTranscript is returned when the transcription endpoint
	// succeeded but recognized no speech.
	ErrEmptyTranscript = errors.New("exchange: empty transcript")

	// ErrEmptyReply is returned when the chat endpoint succeeded but
	// produced a blank reply.
	ErrEmptyReply = errors.New("exchange: empty reply")
)

// ServerError reports a non-2xx response from an exchange endpoint.
type ServerError struct {
	Endpoint string
	Status   int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("exchange: %s: server returned status %d", e.Endpoint, e.Status)
}

// NetworkError reports a transport-level failure reaching an endpoint.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("exchange: %s: %v", e.Endpoint, e.Err)
}

// Unwrap exposes the transport error for errors.Is/As.
func (e *NetworkError) Unwrap() error { return e.Err }
