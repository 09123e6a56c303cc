package publisher

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shiplog-io/shiplog/internal/model"
	"github.com/shiplog-io/shiplog/internal/sink/sinktest"
)

// sliceSource serves a fixed set of lines, optionally failing after
// the last one.
type sliceSource struct {
	lines []string
	pos   int
	err   error
}

func (s *sliceSource) Next() (string, bool) {
	if s.pos >= len(s.lines) {
		return "", false
	}
	line := s.lines[s.pos]
	s.pos++
	return line, true
}

func (s *sliceSource) Err() error {
	if s.pos >= len(s.lines) {
		return s.err
	}
	return nil
}

func newTestPipeline(fake *sinktest.Fake) *Pipeline {
	return New(fake, zerolog.Nop())
}

var testStart = time.Date(2023, 6, 1, 9, 0, 0, 0, time.UTC)

func TestRun_FreshStream2500PlainLines(t *testing.T) {
	fake := sinktest.New()
	p := newTestPipeline(fake)

	lines := make([]string, 2500)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}

	stats, err := p.Run(context.Background(), &sliceSource{lines: lines},
		model.StreamIdentity{Group: "g", Stream: "s"}, testStart, nil)
	require.NoError(t, err)
	assert.Equal(t, "s", stats.StreamName)
	assert.Equal(t, 3, stats.BatchesSent)
	assert.Equal(t, 2500, stats.EventsSent)

	sent := fake.Sent()
	require.Len(t, sent, 3)
	assert.Len(t, sent[0].Events, 1000)
	assert.Len(t, sent[1].Events, 1000)
	assert.Len(t, sent[2].Events, 500)

	// Fresh stream: the first send carries no token, later sends carry
	// exactly the token the previous response returned.
	assert.Empty(t, sent[0].SequenceToken)
	assert.Equal(t, "token-s-1", sent[1].SequenceToken)
	assert.Equal(t, "token-s-2", sent[2].SequenceToken)

	// Line order survives batching.
	events := fake.Events("g", "s")
	require.Len(t, events, 2500)
	assert.Equal(t, "line 0", events[0].Message)
	assert.Equal(t, "line 2499", events[2499].Message)
}

func TestRun_ResumesFromExistingStreamToken(t *testing.T) {
	fake := sinktest.New()
	fake.Seed("g", "s", "token-s-0")
	p := newTestPipeline(fake)

	_, err := p.Run(context.Background(), &sliceSource{lines: []string{"one more line"}},
		model.StreamIdentity{Group: "g", Stream: "s"}, testStart, nil)
	require.NoError(t, err)

	sent := fake.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "token-s-0", sent[0].SequenceToken)
	assert.Zero(t, fake.CreateCalls())
}

func TestRun_EmptyLinesNeverReachTheSink(t *testing.T) {
	fake := sinktest.New()
	p := newTestPipeline(fake)

	stats, err := p.Run(context.Background(),
		&sliceSource{lines: []string{"", "   ", "real", "\t", "2023-06-01.10:00:00   ", "also real"}},
		model.StreamIdentity{Group: "g", Stream: "s"}, testStart, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EventsSent)

	for _, ev := range fake.Events("g", "s") {
		assert.NotEmpty(t, ev.Message)
	}
}

func TestRun_EmptyInputSendsNothing(t *testing.T) {
	fake := sinktest.New()
	p := newTestPipeline(fake)

	stats, err := p.Run(context.Background(), &sliceSource{},
		model.StreamIdentity{Group: "g", Stream: "s"}, testStart, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.BatchesSent)
	assert.Empty(t, fake.Sent())
}

func TestRun_TimestampsNonDecreasingForStampedInput(t *testing.T) {
	fake := sinktest.New()
	p := newTestPipeline(fake)

	var lines []string
	base := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 2200; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		lines = append(lines, ts.Format("2006-01-02.15:04:05")+"  stamped line")
		if i%3 == 0 {
			lines = append(lines, "interleaved tool output")
		}
	}

	_, err := p.Run(context.Background(), &sliceSource{lines: lines},
		model.StreamIdentity{Group: "g", Stream: "s"}, testStart, nil)
	require.NoError(t, err)

	var prev int64
	for _, ev := range fake.Events("g", "s") {
		require.GreaterOrEqual(t, ev.TimestampMillis, prev)
		prev = ev.TimestampMillis
	}
}

func TestRun_MalformedTimestampIsFatal(t *testing.T) {
	fake := sinktest.New()
	p := newTestPipeline(fake)

	_, err := p.Run(context.Background(),
		&sliceSource{lines: []string{"fine", "2023-99-99.10:00:00  corrupted"}},
		model.StreamIdentity{Group: "g", Stream: "s"}, testStart, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "g:s")
}

func TestRun_AppendFailureStopsRunAndKeepsSentBatches(t *testing.T) {
	fake := sinktest.New()
	fake.FailPutAfter = 1
	p := newTestPipeline(fake)

	lines := make([]string, 1500)
	for i := range lines {
		lines[i] = fmt.Sprintf("line %d", i)
	}

	stats, err := p.Run(context.Background(), &sliceSource{lines: lines},
		model.StreamIdentity{Group: "g", Stream: "s"}, testStart, nil)
	require.Error(t, err)

	var ae *AppendError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 2, ae.SendIndex)

	// The first batch stays appended; no rollback.
	assert.Equal(t, 1, stats.BatchesSent)
	assert.Len(t, fake.Events("g", "s"), 1000)
}

func TestRun_LineSourceFailureIsFatal(t *testing.T) {
	fake := sinktest.New()
	p := newTestPipeline(fake)

	src := &sliceSource{lines: []string{"a", "b"}, err: errors.New("broken pipe")}
	_, err := p.Run(context.Background(), src,
		model.StreamIdentity{Group: "g", Stream: "s"}, testStart, nil)
	require.Error(t, err)

	var le *LineSourceError
	assert.True(t, errors.As(err, &le))
}

func TestRun_HeaderLinesAreStampedWithStartTime(t *testing.T) {
	fake := sinktest.New()
	p := newTestPipeline(fake)

	headers := []string{"Parameters:", "TARGET = 'prod'", "   "}
	_, err := p.Run(context.Background(), &sliceSource{lines: []string{"2023-06-01.10:00:00  body"}},
		model.StreamIdentity{Group: "g", Stream: "s"}, testStart, headers)
	require.NoError(t, err)

	events := fake.Events("g", "s")
	require.Len(t, events, 3)
	assert.Equal(t, "Parameters:", events[0].Message)
	assert.Equal(t, testStart.UnixMilli(), events[0].TimestampMillis)
	assert.Equal(t, "TARGET = 'prod'", events[1].Message)
	assert.Equal(t, "body", events[2].Message)
}

func TestRun_CancelledContextStopsTheRun(t *testing.T) {
	fake := sinktest.New()
	p := newTestPipeline(fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx, &sliceSource{lines: []string{"a"}},
		model.StreamIdentity{Group: "g", Stream: "s"}, testStart, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
