package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/otofarma/otobot/internal/assistant"
	"github.com/otofarma/otobot/internal/journal"
	"github.com/otofarma/otobot/internal/observe"
)

// metricsObserver bridges machine callbacks onto OTel instruments and,
// when configured, the conversation journal.
type metricsObserver struct {
	m       *observe.Metrics
	journal *journal.FileStore

	mu        sync.Mutex
	inEpisode bool
	episodes  map[string]uint64
}

var _ assistant.Observer = (*metricsObserver)(nil)

func (o *metricsObserver) StateChanged(s assistant.State, _ string) {
	ctx := context.Background()
	o.m.RecordTransition(ctx, s.String())

	busy := inEpisodeState(s)
	o.mu.Lock()
	crossed := busy != o.inEpisode
	o.inEpisode = busy
	o.mu.Unlock()
	if !crossed {
		return
	}
	if busy {
		o.m.InEpisode.Add(ctx, 1)
	} else {
		o.m.InEpisode.Add(ctx, -1)
	}
}

func (o *metricsObserver) StageCompleted(stage string, took time.Duration, err error) {
	o.m.RecordStage(context.Background(), stage, took.Seconds(), err != nil)
}

func (o *metricsObserver) EpisodeCompleted(outcome string, took time.Duration) {
	o.mu.Lock()
	if o.episodes == nil {
		o.episodes = make(map[string]uint64)
	}
	o.episodes[outcome]++
	o.mu.Unlock()
	o.m.RecordEpisode(context.Background(), outcome, took.Seconds())
}

// EpisodeCounts returns a snapshot of completed episodes by outcome.
func (o *metricsObserver) EpisodeCounts() map[string]uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	counts := make(map[string]uint64, len(o.episodes))
	for outcome, n := range o.episodes {
		counts[outcome] = n
	}
	return counts
}

func (o *metricsObserver) TurnCompleted(transcript, reply string) {
	if o.journal == nil {
		return
	}
	if err := o.journal.AppendTurn(transcript, reply); err != nil {
		slog.Warn("failed to journal conversation turn", "err", err)
	}
}

// inEpisodeState reports whether s belongs to an interaction episode.
func inEpisodeState(s assistant.State) bool {
	switch s {
	case assistant.StateRecording, assistant.StateProcessing, assistant.StatePlaying:
		return true
	}
	return false
}
