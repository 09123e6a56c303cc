package batch

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiplog-io/shiplog/internal/model"
)

func newTestBatcher() *Batcher {
	return New(zerolog.Nop())
}

func event(msg string) model.LogEvent {
	return model.LogEvent{TimestampMillis: 1, Message: msg}
}

func TestAdd_FlushesAtEventCountCeiling(t *testing.T) {
	b := newTestBatcher()

	var flushed []model.Batch
	for i := 0; i < model.MaxEventsPerBatch; i++ {
		flushed = append(flushed, b.Add(event("x"))...)
	}
	require.Len(t, flushed, 1)
	assert.Equal(t, model.MaxEventsPerBatch, flushed[0].Count())
	assert.Equal(t, 1, flushed[0].SendIndex)

	_, ok := b.FlushRemaining()
	assert.False(t, ok, "everything should already have been flushed")
}

func TestAdd_FlushesBeforeAddAtByteCeiling(t *testing.T) {
	b := newTestBatcher()

	// Two events of just over half the ceiling each cannot share a batch.
	half := strings.Repeat("a", model.MaxBatchBytes/2)
	require.Empty(t, b.Add(event(half)))

	flushed := b.Add(event(half))
	require.Len(t, flushed, 1)
	assert.Equal(t, 1, flushed[0].Count())
	assert.Equal(t, len(half)+model.EventOverheadBytes, flushed[0].ByteSize)

	tail, ok := b.FlushRemaining()
	require.True(t, ok)
	assert.Equal(t, 1, tail.Count())
	assert.Equal(t, 2, tail.SendIndex)
}

func TestAdd_BatchMayBeExactlyFull(t *testing.T) {
	b := newTestBatcher()

	exact := strings.Repeat("a", model.MaxBatchBytes-model.EventOverheadBytes)
	require.Empty(t, b.Add(event(exact)), "an event that exactly fills the batch must not trigger an early flush")

	tail, ok := b.FlushRemaining()
	require.True(t, ok)
	assert.Equal(t, model.MaxBatchBytes, tail.ByteSize)
	assert.Equal(t, exact, tail.Events[0].Message)
}

func TestAdd_TruncatesOversizeMessage(t *testing.T) {
	b := newTestBatcher()

	huge := strings.Repeat("z", 1_100_000)
	require.Empty(t, b.Add(event(huge)))

	tail, ok := b.FlushRemaining()
	require.True(t, ok)
	require.Equal(t, 1, tail.Count())

	msg := tail.Events[0].Message
	wantContent := model.MaxBatchBytes - model.EventOverheadBytes - 6
	assert.True(t, strings.HasSuffix(msg, "[...]"))
	assert.Equal(t, wantContent, len(msg)-len("[...]"))
	assert.Equal(t, strings.Repeat("z", wantContent), msg[:wantContent])
	assert.LessOrEqual(t, tail.ByteSize, model.MaxBatchBytes)
}

func TestAdd_OversizeMessageFlushesOpenBatchFirst(t *testing.T) {
	b := newTestBatcher()

	require.Empty(t, b.Add(event("before the monster")))
	flushed := b.Add(event(strings.Repeat("z", 2*model.MaxBatchBytes)))

	require.Len(t, flushed, 1)
	assert.Equal(t, "before the monster", flushed[0].Events[0].Message)

	tail, ok := b.FlushRemaining()
	require.True(t, ok)
	assert.Equal(t, 1, tail.Count())
	assert.True(t, strings.HasSuffix(tail.Events[0].Message, "[...]"))
}

func TestFlushRemaining_EmptyBatcherEmitsNothing(t *testing.T) {
	b := newTestBatcher()
	_, ok := b.FlushRemaining()
	assert.False(t, ok)
}

func TestAdd_PreservesOrderAcrossFlushes(t *testing.T) {
	b := newTestBatcher()

	total := 2*model.MaxEventsPerBatch + 7
	var batches []model.Batch
	for i := 0; i < total; i++ {
		batches = append(batches, b.Add(model.LogEvent{TimestampMillis: int64(i), Message: "m"})...)
	}
	if tail, ok := b.FlushRemaining(); ok {
		batches = append(batches, tail)
	}

	require.Len(t, batches, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{batches[0].SendIndex, batches[1].SendIndex, batches[2].SendIndex})

	next := int64(0)
	for _, bt := range batches {
		for _, ev := range bt.Events {
			assert.Equal(t, next, ev.TimestampMillis)
			next++
		}
	}
}
