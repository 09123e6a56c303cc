// Package timestamp decides the event time for each raw build-log line.
// Lines produced with an embedded clock prefix are authoritative; lines
// without one carry the previous event's time forward, with a periodic
// wall-clock reset so long runs of unstamped output never drift
// arbitrarily far behind.
package timestamp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shiplog-io/shiplog/internal/model"
)

// Layout is the fixed-width embedded prefix, anchored at the start of a
// line and followed by a two-character separator before the payload.
const Layout = "2006-01-02.15:04:05"

const (
	prefixLen    = len(Layout) // 19
	separatorLen = 2

	// maxCarriedLines is how many consecutive unstamped lines may reuse
	// the carried-forward time before it is replaced with wall clock.
	maxCarriedLines = 100
)

// ErrMalformedTimestamp reports a prefix that has the embedded shape
// but is not a valid calendar date/time. It is fatal to the run: it
// means the upstream format is corrupted, not merely absent.
var ErrMalformedTimestamp = errors.New("malformed embedded timestamp")

// Inferer attaches a timestamp to each line of one run. Not safe for
// concurrent use; construct one per pipeline.
type Inferer struct {
	previous time.Time
	carried  int
	now      func() time.Time
}

// NewInferer returns an Inferer whose initial carried-forward time is
// the run's start time.
func NewInferer(startTime time.Time) *Inferer {
	return &Inferer{previous: startTime.UTC(), now: time.Now}
}

// WithClock overrides the wall-clock source. For tests.
func (inf *Inferer) WithClock(now func() time.Time) *Inferer {
	inf.now = now
	return inf
}

// Infer decides the timestamp for line and returns the event with its
// trimmed payload. The returned message may be empty; callers drop
// those before batching.
func (inf *Inferer) Infer(line string) (model.LogEvent, error) {
	if hasEmbeddedShape(line) {
		ts, err := time.ParseInLocation(Layout, line[:prefixLen], time.UTC)
		if err != nil {
			return model.LogEvent{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, line[:prefixLen])
		}
		inf.previous = ts
		inf.carried = 0
		payload := ""
		if len(line) > prefixLen+separatorLen {
			payload = line[prefixLen+separatorLen:]
		}
		return model.LogEvent{
			TimestampMillis: ts.UnixMilli(),
			Message:         strings.TrimSpace(payload),
		}, nil
	}

	inf.carried++
	if inf.carried > maxCarriedLines {
		inf.previous = inf.now().UTC()
		inf.carried = 0
	}
	return model.LogEvent{
		TimestampMillis: inf.previous.UnixMilli(),
		Message:         strings.TrimSpace(line),
	}, nil
}

// hasEmbeddedShape reports whether the first 19 characters of line look
// like yyyy-MM-dd.HH:mm:ss. Shape only; Infer still validates the
// calendar values.
func hasEmbeddedShape(line string) bool {
	if len(line) < prefixLen {
		return false
	}
	for i := 0; i < prefixLen; i++ {
		c := line[i]
		switch Layout[i] {
		case '-', '.', ':':
			if c != Layout[i] {
				return false
			}
		default:
			if c < '0' || c > '9' {
				return false
			}
		}
	}
	return true
}
