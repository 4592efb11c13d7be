// Package exchange is the thin request/response client for the OtoBot
// backend endpoints: speech transcription, the chat round-trip, hotword
// activation confirmation, speech synthesis, and the voice availability
// probe.
//
// Every call is a single attempt — the client never retries; the
// interaction machine decides recovery by re-entering the listening state.
// Optional per-endpoint circuit breakers fail fast after repeated failures
// without adding retry semantics.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/otofarma/otobot/internal/resilience"
)

// Endpoint paths on the backend.
const (
	pathTranscribe      = "/transcribe"
	pathChat            = "/chat"
	pathVoiceActivation = "/voice_activation"
	pathTTS             = "/tts"
	pathVoiceStatus     = "/voice_status"
)

// defaultTimeout bounds each exchange call. Transcription of a long
// utterance is the slowest endpoint in practice.
const defaultTimeout = 30 * time.Second

// maxPayloadBytes caps response bodies read into memory (synthesized audio
// payloads are the largest).
const maxPayloadBytes = 32 << 20

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. Useful in tests and
// for custom transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-call timeout. Default is 30s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithBreakers guards each endpoint with its own circuit breaker built
// from cfg (the Name field is overridden per endpoint).
func WithBreakers(cfg resilience.BreakerConfig) Option {
	return func(c *Client) {
		c.breakers = make(map[string]*resilience.Breaker)
		for _, path := range []string{pathTranscribe, pathChat, pathVoiceActivation, pathTTS, pathVoiceStatus} {
			cfg.Name = path
			c.breakers[path] = resilience.NewBreaker(cfg)
		}
	}
}

// Client calls the backend endpoints. Safe for concurrent use, though the
// interaction machine only ever issues one call at a time.
type Client struct {
	baseURL  string
	http     *http.Client
	breakers map[string]*resilience.Breaker
}

// NewClient creates a Client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Transcribe uploads one recorded audio payload and returns the transcript.
// The payload is sent as a multipart form with field "audio" and a WAV
// filename/MIME hint.
func (c *Client) Transcribe(ctx context.Context, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", ErrEmptyAudio
	}

	var transcript string
	err := c.guard(pathTranscribe, func() error {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		part, err := mw.CreateFormFile("audio", "input.wav")
		if err != nil {
			return fmt.Errorf("exchange: build form: %w", err)
		}
		if _, err := part.Write(payload); err != nil {
			return fmt.Errorf("exchange: build form: %w", err)
		}
		if err := mw.Close(); err != nil {
			return fmt.Errorf("exchange: build form: %w", err)
		}

		var resp struct {
			Transcript string `json:"transcript"`
		}
		if err := c.postJSON(ctx, pathTranscribe, mw.FormDataContentType(), body, &resp); err != nil {
			return err
		}
		transcript = strings.TrimSpace(resp.Transcript)
		return nil
	})
	if err != nil {
		return "", err
	}
	if transcript == "" {
		return "", ErrEmptyTranscript
	}
	return transcript, nil
}

// Chat sends the transcript to the chat endpoint and returns the reply.
// voice tells the backend the reply will be spoken aloud.
func (c *Client) Chat(ctx context.Context, message string, voice bool) (string, error) {
	req := struct {
		Message string `json:"message"`
		Voice   bool   `json:"voice"`
	}{Message: message, Voice: voice}

	var reply string
	err := c.guard(pathChat, func() error {
		body, _ := json.Marshal(req)
		var resp struct {
			Reply string `json:"reply"`
		}
		if err := c.postJSON(ctx, pathChat, "application/json", bytes.NewReader(body), &resp); err != nil {
			return err
		}
		reply = strings.TrimSpace(resp.Reply)
		return nil
	})
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// Activation is the backend's verdict on a candidate wake phrase.
type Activation struct {
	// Activated reports whether the backend accepted the phrase.
	Activated bool

	// Reply is an optional spoken acknowledgement.
	Reply string
}

// VoiceActivation asks the backend to confirm a candidate wake phrase.
func (c *Client) VoiceActivation(ctx context.Context, message string) (Activation, error) {
	req := struct {
		Message string `json:"message"`
	}{Message: message}

	var act Activation
	err := c.guard(pathVoiceActivation, func() error {
		body, _ := json.Marshal(req)
		var resp struct {
			Activated bool   `json:"activated"`
			Reply     string `json:"reply"`
		}
		if err := c.postJSON(ctx, pathVoiceActivation, "application/json", bytes.NewReader(body), &resp); err != nil {
			return err
		}
		act = Activation{Activated: resp.Activated, Reply: strings.TrimSpace(resp.Reply)}
		return nil
	})
	return act, err
}

// Synthesize converts the reply text to an audio payload.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req := struct {
		Text string `json:"text"`
	}{Text: text}

	var payload []byte
	err := c.guard(pathTTS, func() error {
		body, _ := json.Marshal(req)
		resp, err := c.do(ctx, http.MethodPost, pathTTS, "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		payload, err = io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
		if err != nil {
			return &NetworkError{Endpoint: pathTTS, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// VoiceStatus probes whether the backend's voice pipeline is available.
func (c *Client) VoiceStatus(ctx context.Context) (bool, error) {
	var available bool
	err := c.guard(pathVoiceStatus, func() error {
		resp, err := c.do(ctx, http.MethodGet, pathVoiceStatus, "", nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		var out struct {
			VoiceAvailable bool `json:"voice_available"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return &NetworkError{Endpoint: pathVoiceStatus, Err: err}
		}
		available = out.VoiceAvailable
		return nil
	})
	return available, err
}

// guard runs fn through the endpoint's circuit breaker when breakers are
// enabled, directly otherwise.
func (c *Client) guard(endpoint string, fn func() error) error {
	if b, ok := c.breakers[endpoint]; ok {
		return b.Do(fn)
	}
	return fn()
}

// postJSON issues a POST and decodes a JSON response body into out.
func (c *Client) postJSON(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	resp, err := c.do(ctx, http.MethodPost, path, contentType, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Endpoint: path, Err: err}
	}
	return nil
}

// do issues a single request and maps failures to the package taxonomy:
// transport failures become *NetworkError, non-2xx responses *ServerError.
// The caller owns the response body on success.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &NetworkError{Endpoint: path, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Endpoint: path, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &ServerError{Endpoint: path, Status: resp.StatusCode}
	}
	return resp, nil
}
