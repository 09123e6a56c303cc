// Package publisher drives one publish run: it resolves the target
// stream's append cursor, turns raw lines into timestamped events,
// batches them, and appends each batch in strict order.
package publisher

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/shiplog-io/shiplog/internal/batch"
	"github.com/shiplog-io/shiplog/internal/logsource"
	"github.com/shiplog-io/shiplog/internal/model"
	"github.com/shiplog-io/shiplog/internal/sink"
	"github.com/shiplog-io/shiplog/internal/timestamp"
)

// Pipeline publishes line sources to streams on one sink. Safe to
// share across runs: all per-run state lives in Run.
type Pipeline struct {
	sink sink.Sink
	log  zerolog.Logger
}

// New returns a Pipeline over s.
func New(s sink.Sink, log zerolog.Logger) *Pipeline {
	return &Pipeline{sink: s, log: log}
}

// RunStats summarizes a completed run.
type RunStats struct {
	StreamName  string
	BatchesSent int
	EventsSent  int
}

// Run ships every line of source to the stream named by identity.
// headerLines, when present, are stamped with startTime and sent ahead
// of the source. The run is strictly sequential; the first failure is
// terminal, with already-sent batches remaining appended at the sink.
// Cancelling ctx ends the run at the next read or send.
func (p *Pipeline) Run(ctx context.Context, source logsource.LineSource, identity model.StreamIdentity, startTime time.Time, headerLines []string) (RunStats, error) {
	cursor, err := Resolve(ctx, p.sink, identity)
	if err != nil {
		return RunStats{}, err
	}

	seq := NewSequencer(p.sink, identity, cursor, p.log)
	inf := timestamp.NewInferer(startTime)
	b := batch.New(p.log)
	stats := RunStats{StreamName: identity.Stream}

	startMillis := startTime.UTC().UnixMilli()
	for _, line := range headerLines {
		ev := model.LogEvent{TimestampMillis: startMillis, Message: strings.TrimSpace(line)}
		if ev.Message == "" {
			continue
		}
		if err := sendAll(ctx, seq, b.Add(ev)); err != nil {
			return p.finish(stats, seq, err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return p.finish(stats, seq, fmt.Errorf("publish %s: %w", identity, err))
		}
		line, ok := source.Next()
		if !ok {
			break
		}
		ev, err := inf.Infer(line)
		if err != nil {
			return p.finish(stats, seq, fmt.Errorf("publish %s: %w", identity, err))
		}
		if ev.Message == "" {
			continue
		}
		if err := sendAll(ctx, seq, b.Add(ev)); err != nil {
			return p.finish(stats, seq, err)
		}
	}
	if err := source.Err(); err != nil {
		return p.finish(stats, seq, &LineSourceError{Err: err})
	}

	if tail, ok := b.FlushRemaining(); ok {
		if err := seq.Send(ctx, tail); err != nil {
			return p.finish(stats, seq, err)
		}
	}
	return p.finish(stats, seq, nil)
}

func (p *Pipeline) finish(stats RunStats, seq *Sequencer, err error) (RunStats, error) {
	stats.BatchesSent, stats.EventsSent = seq.Totals()
	if err == nil {
		p.log.Info().
			Str("stream", stats.StreamName).
			Int("batches", stats.BatchesSent).
			Int("events", stats.EventsSent).
			Msg("publish run complete")
	}
	return stats, err
}

func sendAll(ctx context.Context, seq *Sequencer, batches []model.Batch) error {
	for _, fb := range batches {
		if err := seq.Send(ctx, fb); err != nil {
			return err
		}
	}
	return nil
}
