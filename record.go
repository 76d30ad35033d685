package peek

import (
	"net/http"
	"time"
)

// Direction tags a log entry with the event that produced it.
type Direction int

const (
	// DirectionRequest marks an entry produced by a client request.
	DirectionRequest Direction = iota

	// DirectionResponse marks an entry produced by a server response.
	DirectionResponse

	// DirectionError marks an entry produced by a transport error.
	DirectionError
)

// String returns "request", "response" or "error".
func (d Direction) String() string {
	switch d {
	case DirectionRequest:
		return "request"
	case DirectionResponse:
		return "response"
	case DirectionError:
		return "error"
	}
	return "unknown"
}

// RequestRecord is a fully-parsed client request handed to the
// inspector by the host transport. Headers are already parsed and the
// body fully buffered; the inspector owns the record for the duration
// of one event and never mutates it.
type RequestRecord struct {
	// Method is the HTTP method (GET, POST, etc.).
	Method string

	// URL is the full request URL.
	URL string

	// Header holds the request headers. Values for a header name keep
	// their received order.
	Header http.Header

	// Body is the complete buffered request body. May be nil.
	Body []byte
}

// ResponseRecord is a fully-parsed server response handed to the
// inspector by the host transport.
type ResponseRecord struct {
	// Method and URL identify the request this response belongs to.
	Method string
	URL    string

	// StatusCode is the numeric response status.
	StatusCode int

	// Status is the reason phrase (e.g. "OK").
	Status string

	// Header holds the response headers.
	Header http.Header

	// Body is the complete buffered response body. May be nil.
	Body []byte
}

// ErrorRecord describes a transport-level failure for a flow. No body
// is guaranteed available, so the inspector never renders one.
type ErrorRecord struct {
	// Method and URL identify the flow, when known.
	Method string
	URL    string

	// Err is the opaque error description from the transport layer.
	Err string
}

// Entry is one write-once log record: the lines produced for a single
// event. Sinks must emit all lines of an entry together, without
// interleaving lines from other entries.
type Entry struct {
	// Time is when the event was processed.
	Time time.Time

	// Direction identifies the event kind.
	Direction Direction

	// Lines are the display lines, in order.
	Lines []string
}
