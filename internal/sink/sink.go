// Package sink defines the boundary to the remote append-only log
// service and provides the CloudWatch Logs implementation.
package sink

import (
	"context"
	"errors"

	"github.com/shiplog-io/shiplog/internal/model"
)

// ErrStreamAlreadyExists is returned by CreateStream when the stream
// was created concurrently. Callers treat it as success with an empty
// sequence token.
var ErrStreamAlreadyExists = errors.New("log stream already exists")

// StreamInfo is one stream returned by a FindStreams prefix query.
type StreamInfo struct {
	Name          string
	SequenceToken string
}

// Sink is the append-only log service. Implementations own transport
// concerns (retries, auth, pagination); callers only distinguish
// already-exists from other failures at creation, and success-with-token
// from failure at send.
type Sink interface {
	// PutEvents appends events to stream and returns the token the next
	// append must carry. sequenceToken is empty for the first append to
	// a fresh stream.
	PutEvents(ctx context.Context, group, stream string, events []model.LogEvent, sequenceToken string) (string, error)

	// FindStreams lists streams in group whose name starts with prefix.
	FindStreams(ctx context.Context, group, prefix string) ([]StreamInfo, error)

	// CreateStream creates an empty stream, returning
	// ErrStreamAlreadyExists if something else created it first.
	CreateStream(ctx context.Context, group, stream string) error
}
