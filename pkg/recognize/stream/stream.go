// Package stream provides a WebSocket streaming recognizer adapter speaking
// the Deepgram live-transcription wire contract. It implements
// [recognize.Recognizer].
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/coder/websocket"

	"github.com/otofarma/otobot/pkg/recognize"
)

const (
	defaultEndpoint   = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the Recognizer.
type Option func(*Recognizer)

// WithEndpoint overrides the WebSocket endpoint, e.g. to point at a
// self-hosted recognition gateway.
func WithEndpoint(endpoint string) Option {
	return func(r *Recognizer) { r.endpoint = endpoint }
}

// WithModel sets the recognition model name.
func WithModel(model string) Option {
	return func(r *Recognizer) { r.model = model }
}

// Recognizer implements recognize.Recognizer over a streaming WebSocket.
type Recognizer struct {
	apiKey   string
	endpoint string
	model    string
}

var _ recognize.Recognizer = (*Recognizer)(nil)

// New creates a streaming Recognizer. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Recognizer, error) {
	if apiKey == "" {
		return nil, errors.New("stream: apiKey must not be empty")
	}
	r := &Recognizer{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		model:    defaultModel,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Start opens a streaming recognition session.
func (r *Recognizer) Start(ctx context.Context, cfg recognize.Config) (recognize.SessionHandle, error) {
	wsURL, err := r.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("stream: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.apiKey)

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("stream: dial: %w", recognize.ErrNotAllowed)
		}
		return nil, fmt.Errorf("stream: dial: %w", err)
	}

	s := &session{
		conn:    conn,
		results: make(chan recognize.Result, 64),
		audio:   make(chan []byte, 256),
		done:    make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.writeLoop(ctx)
	return s, nil
}

// buildURL constructs the streaming endpoint URL for the given config.
func (r *Recognizer) buildURL(cfg recognize.Config) (string, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return "", err
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = defaultSampleRate
	}

	q := u.Query()
	q.Set("model", r.model)
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(sr))
	q.Set("punctuate", "true")
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// wireResult is the JSON structure of a Results event on the wire.
type wireResult struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// session is one live streaming recognition session.
type session struct {
	conn    *websocket.Conn
	results chan recognize.Result
	audio   chan []byte

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup

	errMu sync.Mutex
	err   error
}

var _ recognize.SessionHandle = (*session)(nil)

// SendAudio queues a PCM chunk for delivery to the recognizer.
func (s *session) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("stream: session is stopped")
	case s.audio <- chunk:
		return nil
	}
}

// Results returns the fragment channel.
func (s *session) Results() <-chan recognize.Result { return s.results }

// Stop ends the session. Safe to call multiple times.
func (s *session) Stop() error {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close(websocket.StatusNormalClosure, "stopped")
	})
	return nil
}

// Err reports the terminal session error after Results has closed.
func (s *session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// setErr records the first terminal error.
func (s *session) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// readLoop decodes wire messages into results until the connection ends.
func (s *session) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.results)
	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			select {
			case <-s.done:
				// Clean stop requested by the caller.
			default:
				s.setErr(fmt.Errorf("stream: read: %w", err))
				s.Stop()
			}
			return
		}

		var res wireResult
		if err := json.Unmarshal(msg, &res); err != nil || res.Type != "Results" {
			continue
		}
		if len(res.Channel.Alternatives) == 0 {
			continue
		}
		alt := res.Channel.Alternatives[0]
		if alt.Transcript == "" {
			continue
		}
		select {
		case s.results <- recognize.Result{Text: alt.Transcript, Final: res.IsFinal, Confidence: alt.Confidence}:
		case <-s.done:
			return
		}
	}
}

// writeLoop forwards queued audio chunks to the recognizer.
func (s *session) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			s.Stop()
			return
		case chunk := <-s.audio:
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				s.setErr(fmt.Errorf("stream: write: %w", err))
				s.Stop()
				return
			}
		}
	}
}
