package logsource

import (
	"fmt"

	"github.com/hpcloud/tail"
)

// FileSource reads a completed build log from disk. It uses the tail
// machinery with following disabled, so the sequence ends at EOF.
type FileSource struct {
	t    *tail.Tail
	err  error
	done bool
}

// NewFileSource opens path for a single forward pass. The file must
// already exist.
func NewFileSource(path string) (*FileSource, error) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    false,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("logsource: open %s: %w", path, err)
	}
	return &FileSource{t: t}, nil
}

func (s *FileSource) Next() (string, bool) {
	if s.done {
		return "", false
	}
	line, ok := <-s.t.Lines
	if !ok {
		s.done = true
		s.err = s.t.Err()
		return "", false
	}
	if line.Err != nil {
		s.done = true
		s.err = line.Err
		return "", false
	}
	return line.Text, true
}

func (s *FileSource) Err() error { return s.err }

// Close releases the underlying watcher. Safe after exhaustion.
func (s *FileSource) Close() error {
	return s.t.Stop()
}
