package model

// Limits imposed by the sink's ordered-append protocol. A batch may not
// exceed either ceiling; every event carries a fixed per-event overhead
// on top of its UTF-8 message bytes.
const (
	MaxEventsPerBatch  = 1000
	MaxBatchBytes      = 1048576
	EventOverheadBytes = 26
)

// LogEvent is one timestamped line of build output. Message is never
// empty after trimming; the pipeline drops blank lines before they
// reach a batch.
type LogEvent struct {
	TimestampMillis int64  `json:"timestamp"`
	Message         string `json:"message"`
}

// Size returns the event's contribution to a batch's byte total.
func (e LogEvent) Size() int {
	return len(e.Message) + EventOverheadBytes
}

// Batch is one request's worth of events, bounded by MaxEventsPerBatch
// and MaxBatchBytes. Events are kept in the order they were added.
type Batch struct {
	Events    []LogEvent
	ByteSize  int
	SendIndex int // 1-based sequence number assigned when the batch is flushed
}

// Count returns the number of events in the batch.
func (b *Batch) Count() int { return len(b.Events) }

// Append adds an event and updates the running byte total. Callers are
// responsible for checking the ceilings first.
func (b *Batch) Append(e LogEvent) {
	b.Events = append(b.Events, e)
	b.ByteSize += e.Size()
}
