package library

import "io"

// Sink presents an aggregation result, e.g. as HTML or plain text.
type Sink interface {
	Render(w io.Writer, result *Result) error
}
