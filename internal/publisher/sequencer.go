package publisher

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/shiplog-io/shiplog/internal/model"
	"github.com/shiplog-io/shiplog/internal/sink"
)

// Sequencer delivers batches to one stream strictly one at a time,
// threading each response's sequence token into the next request. It
// exclusively owns the cursor for the duration of a run; the serial
// send discipline, not the sink client, is what preserves ordering.
// Not safe for concurrent use.
type Sequencer struct {
	sink     sink.Sink
	identity model.StreamIdentity
	cursor   model.StreamCursor
	log      zerolog.Logger

	batchesSent int
	eventsSent  int
}

// NewSequencer returns a Sequencer positioned at cursor.
func NewSequencer(s sink.Sink, identity model.StreamIdentity, cursor model.StreamCursor, log zerolog.Logger) *Sequencer {
	return &Sequencer{sink: s, identity: identity, cursor: cursor, log: log}
}

// Send appends one batch. On failure the cursor is untouched and the
// batch is not resent here; the failure ends the run.
func (q *Sequencer) Send(ctx context.Context, b model.Batch) error {
	q.log.Info().
		Str("target", q.identity.String()).
		Int("sequence", b.SendIndex).
		Int("events", b.Count()).
		Int("bytes", b.ByteSize).
		Msg("sending log event batch")

	next, err := q.sink.PutEvents(ctx, q.identity.Group, q.identity.Stream, b.Events, q.cursor.SequenceToken)
	if err != nil {
		q.log.Error().
			Err(err).
			Str("target", q.identity.String()).
			Int("sequence", b.SendIndex).
			Int("events", b.Count()).
			Int("bytes", b.ByteSize).
			Msg("batch send failed")
		return &AppendError{Identity: q.identity, SendIndex: b.SendIndex, Err: err}
	}

	q.cursor.SequenceToken = next
	q.batchesSent++
	q.eventsSent += b.Count()
	return nil
}

// Cursor returns the current append position.
func (q *Sequencer) Cursor() model.StreamCursor { return q.cursor }

// Totals reports how many batches and events have been appended.
func (q *Sequencer) Totals() (batches, events int) {
	return q.batchesSent, q.eventsSent
}
