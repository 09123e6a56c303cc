// Package batch groups log events into size- and count-bounded batches
// ready for the sink's append call.
package batch

import (
	"github.com/rs/zerolog"

	"github.com/shiplog-io/shiplog/internal/model"
)

// truncationMarker is appended to a message that alone would not fit in
// an empty batch. Its length is part of the truncation budget.
const truncationMarker = "[...]"

// Batcher accumulates events into one open batch and emits it whenever
// the next event would exceed a ceiling. It never reorders events and
// never emits an empty batch. Not safe for concurrent use; construct
// one per pipeline.
type Batcher struct {
	open    model.Batch
	flushed int
	log     zerolog.Logger
}

// New returns an empty Batcher.
func New(log zerolog.Logger) *Batcher {
	return &Batcher{log: log}
}

// Add appends ev to the open batch and returns any batches that became
// full and must be sent, in order. The event's message must be
// non-empty; blank lines are the caller's job to drop.
func (b *Batcher) Add(ev model.LogEvent) []model.Batch {
	if ev.Size() > model.MaxBatchBytes {
		b.log.Warn().
			Int("size", ev.Size()).
			Msg("log event exceeds maximum batch size, truncating message")
		ev.Message = truncate(ev.Message)
	}

	var out []model.Batch

	// Flush-before-add: the open batch is emitted as-is when this
	// event's bytes would push it over the ceiling.
	if b.open.ByteSize+ev.Size() > model.MaxBatchBytes {
		out = append(out, b.emit())
	}

	b.open.Append(ev)

	if b.open.Count() >= model.MaxEventsPerBatch {
		out = append(out, b.emit())
	}
	return out
}

// FlushRemaining emits the open batch at end of input. Reports false
// when there is nothing left to send.
func (b *Batcher) FlushRemaining() (model.Batch, bool) {
	if b.open.Count() == 0 {
		return model.Batch{}, false
	}
	return b.emit(), true
}

func (b *Batcher) emit() model.Batch {
	b.flushed++
	out := b.open
	out.SendIndex = b.flushed
	b.open = model.Batch{}
	return out
}

// truncatedContentBytes is how much original content survives
// truncation: the batch ceiling minus the event overhead minus room
// for the marker. Content is cut on a byte boundary because the sink
// counts bytes, not runes.
const truncatedContentBytes = model.MaxBatchBytes - model.EventOverheadBytes - 6

func truncate(msg string) string {
	return msg[:truncatedContentBytes] + truncationMarker
}
