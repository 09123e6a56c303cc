package publisher

import (
	"fmt"

	"github.com/shiplog-io/shiplog/internal/model"
)

// StreamResolutionError reports a failed lookup of existing streams.
type StreamResolutionError struct {
	Identity model.StreamIdentity
	Err      error
}

func (e *StreamResolutionError) Error() string {
	return fmt.Sprintf("resolve log stream %s: %v", e.Identity, e.Err)
}

func (e *StreamResolutionError) Unwrap() error { return e.Err }

// StreamCreationError reports a create-stream failure for any reason
// other than the stream already existing.
type StreamCreationError struct {
	Identity model.StreamIdentity
	Err      error
}

func (e *StreamCreationError) Error() string {
	return fmt.Sprintf("create log stream %s: %v", e.Identity, e.Err)
}

func (e *StreamCreationError) Unwrap() error { return e.Err }

// AppendError reports a failed batch send. The cursor is left as it
// was before the send; nothing is retried here.
type AppendError struct {
	Identity  model.StreamIdentity
	SendIndex int
	Err       error
}

func (e *AppendError) Error() string {
	return fmt.Sprintf("append batch #%d to %s: %v", e.SendIndex, e.Identity, e.Err)
}

func (e *AppendError) Unwrap() error { return e.Err }

// LineSourceError reports that the input could not be read to
// completion.
type LineSourceError struct {
	Err error
}

func (e *LineSourceError) Error() string {
	return fmt.Sprintf("read log lines: %v", e.Err)
}

func (e *LineSourceError) Unwrap() error { return e.Err }
