package logsource

import (
	"bufio"
	"io"
)

// DefaultMaxLineSize bounds a single line read from a stream source.
// Larger than the sink's batch ceiling so oversize lines still reach
// the batcher, which truncates them instead of dropping them.
const DefaultMaxLineSize = 4 * 1024 * 1024

// ReaderSource reads lines from an io.Reader (stdin, an HTTP request
// body, a stored log blob).
type ReaderSource struct {
	scanner *bufio.Scanner
	err     error
	done    bool
}

// NewReaderSource wraps r. maxLineSize <= 0 uses DefaultMaxLineSize.
func NewReaderSource(r io.Reader, maxLineSize int) *ReaderSource {
	if maxLineSize <= 0 {
		maxLineSize = DefaultMaxLineSize
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &ReaderSource{scanner: sc}
}

func (s *ReaderSource) Next() (string, bool) {
	if s.done {
		return "", false
	}
	if s.scanner.Scan() {
		return s.scanner.Text(), true
	}
	s.done = true
	s.err = s.scanner.Err()
	return "", false
}

func (s *ReaderSource) Err() error { return s.err }
