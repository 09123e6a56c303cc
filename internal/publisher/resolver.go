package publisher

import (
	"context"
	"errors"

	"github.com/shiplog-io/shiplog/internal/model"
	"github.com/shiplog-io/shiplog/internal/sink"
)

// Resolve determines whether the target stream exists and recovers its
// current append cursor, creating the stream when it is missing. A
// create that loses a race to a concurrent creator counts as success
// with an empty token. The lookup-then-create sequence is not atomic
// against external writers; single-writer-per-stream holds per run,
// not across processes.
func Resolve(ctx context.Context, s sink.Sink, identity model.StreamIdentity) (model.StreamCursor, error) {
	infos, err := s.FindStreams(ctx, identity.Group, identity.Stream)
	if err != nil {
		return model.StreamCursor{}, &StreamResolutionError{Identity: identity, Err: err}
	}

	// The prefix query may return siblings ("job/1" matches "job/10");
	// only an exact name match counts.
	for _, info := range infos {
		if info.Name == identity.Stream {
			return model.StreamCursor{Stream: info.Name, SequenceToken: info.SequenceToken}, nil
		}
	}

	if err := s.CreateStream(ctx, identity.Group, identity.Stream); err != nil {
		if errors.Is(err, sink.ErrStreamAlreadyExists) {
			return model.StreamCursor{Stream: identity.Stream}, nil
		}
		return model.StreamCursor{}, &StreamCreationError{Identity: identity, Err: err}
	}
	return model.StreamCursor{Stream: identity.Stream}, nil
}
