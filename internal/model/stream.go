package model

import (
	"fmt"
	"net/url"
	"strings"
)

// StreamIdentity names the target of one publish run. Immutable once
// resolved.
type StreamIdentity struct {
	Group  string
	Stream string
}

func (id StreamIdentity) String() string {
	return id.Group + ":" + id.Stream
}

// StreamCursor is the append position of a stream. SequenceToken is
// empty before the first send to a fresh stream; after each successful
// send it holds the token the sink returned, which must be passed
// verbatim on the next send.
type StreamCursor struct {
	Stream        string
	SequenceToken string
}

// SanitizeStreamName replaces characters the sink forbids in stream
// names ('*' and ':') with '-'.
func SanitizeStreamName(name string) string {
	name = strings.ReplaceAll(name, "*", "-")
	return strings.ReplaceAll(name, ":", "-")
}

// StreamURL returns the console deep link for a published stream, for
// callers that record provenance or render a viewer link.
func StreamURL(region string, id StreamIdentity) string {
	return fmt.Sprintf(
		"https://%s.console.aws.amazon.com/cloudwatch/home?region=%s#logsV2:log-groups/log-group/%s/log-events/%s",
		region, region,
		url.PathEscape(id.Group),
		url.PathEscape(id.Stream),
	)
}
