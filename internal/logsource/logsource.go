// Package logsource provides the readers that feed raw build-log lines
// into a publish run.
package logsource

// LineSource is a finite, forward-only sequence of text lines. Next
// returns false once the source is exhausted; Err reports whether it
// stopped because of an I/O failure rather than a clean end of input.
type LineSource interface {
	Next() (string, bool)
	Err() error
}
