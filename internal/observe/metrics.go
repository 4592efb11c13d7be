// Package observe provides application-wide observability primitives for
// OtoBot: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware for the status server.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all OtoBot metrics.
const meterName = "github.com/otofarma/otobot"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per episode stage ---

	// TranscribeDuration tracks transcription latency.
	TranscribeDuration metric.Float64Histogram

	// ChatDuration tracks chat exchange latency.
	ChatDuration metric.Float64Histogram

	// SynthesisDuration tracks speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// PlaybackDuration tracks reply playback time.
	PlaybackDuration metric.Float64Histogram

	// EpisodeDuration tracks end-to-end episode time, trigger to the
	// return to listening.
	EpisodeDuration metric.Float64Histogram

	// --- Counters ---

	// Episodes counts finished episodes. Use with attribute:
	//   attribute.String("outcome", ...)
	Episodes metric.Int64Counter

	// StateTransitions counts interaction state changes. Use with
	// attribute: attribute.String("state", ...)
	StateTransitions metric.Int64Counter

	// StageErrors counts failed episode stages. Use with attribute:
	//   attribute.String("stage", ...)
	StageErrors metric.Int64Counter

	// --- Gauges ---

	// InEpisode tracks whether an episode is currently running (0 or 1).
	InEpisode metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks status-server request processing time.
	// Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// stageBuckets defines histogram bucket boundaries (in seconds) optimised
// for network-bound voice-pipeline stages.
var stageBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// episodeBuckets covers whole episodes, which include recording and
// playback time.
var episodeBuckets = []float64{
	0.5, 1, 2.5, 5, 10, 20, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscribeDuration, err = m.Float64Histogram("otobot.transcribe.duration",
		metric.WithDescription("Latency of audio transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ChatDuration, err = m.Float64Histogram("otobot.chat.duration",
		metric.WithDescription("Latency of the chat exchange."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SynthesisDuration, err = m.Float64Histogram("otobot.synthesis.duration",
		metric.WithDescription("Latency of speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("otobot.playback.duration",
		metric.WithDescription("Reply playback time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(episodeBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EpisodeDuration, err = m.Float64Histogram("otobot.episode.duration",
		metric.WithDescription("End-to-end episode time, trigger to listening."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(episodeBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Episodes, err = m.Int64Counter("otobot.episodes",
		metric.WithDescription("Total finished episodes by outcome."),
	); err != nil {
		return nil, err
	}
	if met.StateTransitions, err = m.Int64Counter("otobot.state.transitions",
		metric.WithDescription("Total interaction state changes by target state."),
	); err != nil {
		return nil, err
	}
	if met.StageErrors, err = m.Int64Counter("otobot.stage.errors",
		metric.WithDescription("Total failed episode stages by stage."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.InEpisode, err = m.Int64UpDownCounter("otobot.in_episode",
		metric.WithDescription("Whether an interaction episode is currently running."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("otobot.http.request.duration",
		metric.WithDescription("Status-server HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStage records one episode stage completion: latency into the
// stage's histogram and, on failure, an increment of the stage error
// counter. Stage names follow the machine's lifecycle callbacks.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64, failed bool) {
	var h metric.Float64Histogram
	switch stage {
	case "transcribe":
		h = m.TranscribeDuration
	case "chat", "voice_activation":
		h = m.ChatDuration
	case "synthesize":
		h = m.SynthesisDuration
	case "playback":
		h = m.PlaybackDuration
	}
	if h != nil {
		h.Record(ctx, seconds)
	}
	if failed {
		m.StageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	}
}

// RecordEpisode records a finished episode with its outcome label.
func (m *Metrics) RecordEpisode(ctx context.Context, outcome string, seconds float64) {
	m.EpisodeDuration.Record(ctx, seconds)
	m.Episodes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordTransition records an interaction state change.
func (m *Metrics) RecordTransition(ctx context.Context, state string) {
	m.StateTransitions.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
