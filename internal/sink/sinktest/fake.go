// Package sinktest provides an in-memory Sink for tests.
package sinktest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shiplog-io/shiplog/internal/model"
	"github.com/shiplog-io/shiplog/internal/sink"
)

// SentBatch records one PutEvents call as the fake observed it.
type SentBatch struct {
	Group         string
	Stream        string
	Events        []model.LogEvent
	SequenceToken string
}

type streamKey struct {
	group  string
	stream string
}

type fakeStream struct {
	token  string
	events []model.LogEvent
	seq    int
}

// Fake is an in-memory sink.Sink. It verifies token chaining the way
// the real service does: every append must carry the token returned by
// the previous one.
type Fake struct {
	mu      sync.Mutex
	streams map[streamKey]*fakeStream
	sent    []SentBatch

	// FailPutAfter makes PutEvents fail once the given number of calls
	// have succeeded. Zero means never fail.
	FailPutAfter int
	// FailCreate makes every CreateStream call fail.
	FailCreate error

	createCalls int
	putCalls    int
}

// New returns an empty Fake with no streams.
func New() *Fake {
	return &Fake{streams: make(map[streamKey]*fakeStream)}
}

// Seed registers an existing stream with a current token, as if a
// previous run had written to it.
func (f *Fake) Seed(group, stream, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streams[streamKey{group, stream}] = &fakeStream{token: token}
}

func (f *Fake) PutEvents(_ context.Context, group, stream string, events []model.LogEvent, sequenceToken string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.putCalls++
	if f.FailPutAfter > 0 && f.putCalls > f.FailPutAfter {
		return "", fmt.Errorf("sinktest: injected put failure on call %d", f.putCalls)
	}

	s, ok := f.streams[streamKey{group, stream}]
	if !ok {
		return "", fmt.Errorf("sinktest: stream %s:%s does not exist", group, stream)
	}
	if sequenceToken != s.token {
		return "", fmt.Errorf("sinktest: invalid sequence token %q, expected %q", sequenceToken, s.token)
	}

	f.sent = append(f.sent, SentBatch{Group: group, Stream: stream, Events: events, SequenceToken: sequenceToken})
	s.events = append(s.events, events...)
	s.seq++
	s.token = fmt.Sprintf("token-%s-%d", stream, s.seq)
	return s.token, nil
}

func (f *Fake) FindStreams(_ context.Context, group, prefix string) ([]sink.StreamInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var infos []sink.StreamInfo
	for key, s := range f.streams {
		if key.group != group || !strings.HasPrefix(key.stream, prefix) {
			continue
		}
		infos = append(infos, sink.StreamInfo{Name: key.stream, SequenceToken: s.token})
	}
	return infos, nil
}

func (f *Fake) CreateStream(_ context.Context, group, stream string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createCalls++
	if f.FailCreate != nil {
		return f.FailCreate
	}
	key := streamKey{group, stream}
	if _, ok := f.streams[key]; ok {
		return sink.ErrStreamAlreadyExists
	}
	f.streams[key] = &fakeStream{}
	return nil
}

// Sent returns every recorded PutEvents call in order.
func (f *Fake) Sent() []SentBatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentBatch(nil), f.sent...)
}

// Events returns all events appended to one stream, in append order.
func (f *Fake) Events(group, stream string) []model.LogEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.streams[streamKey{group, stream}]
	if !ok {
		return nil
	}
	return append([]model.LogEvent(nil), s.events...)
}

// CreateCalls returns how many CreateStream calls were made.
func (f *Fake) CreateCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}
