package peek

import (
	"bytes"
	"io"
	"net/http"
)

// DefaultMaxBufferBytes is the default cap on body bytes buffered for
// inspection by a Transport.
const DefaultMaxBufferBytes = 10 << 20 // 10 MiB

// Transport is an http.RoundTripper that feeds an Inspector. It sits
// between any HTTP client (or proxy handler) and the real transport,
// buffers request and response bodies up to MaxBufferBytes, emits the
// corresponding inspector events, and hands the bodies back intact to
// the caller.
//
// The Transport does not parse wire bytes or manage connections; that
// stays with the wrapped RoundTripper. Bodies larger than the cap are
// inspected up to the cap and the remainder streams through untouched.
type Transport struct {
	// Inspector receives one event per request, response, and error.
	// Required.
	Inspector *Inspector

	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper

	// MaxBufferBytes caps how much body is buffered per direction.
	// Zero means DefaultMaxBufferBytes.
	MaxBufferBytes int64
}

// NewTransport wraps base with inspection. A nil base uses
// http.DefaultTransport.
func NewTransport(inspector *Inspector, base http.RoundTripper) *Transport {
	return &Transport{
		Inspector:      inspector,
		Base:           base,
		MaxBufferBytes: DefaultMaxBufferBytes,
	}
}

// RoundTrip implements http.RoundTripper. Events are emitted
// synchronously: the request event before forwarding, the response or
// error event after the round trip completes and the response body has
// been buffered.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqBody, err := t.buffer(req.Body, req.ContentLength)
	if err != nil {
		return nil, err
	}
	if req.Body != nil {
		req.Body = readCloser(reqBody.buffered, reqBody.rest)
	}

	t.Inspector.Request(RequestRecord{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header,
		Body:   reqBody.buffered,
	})

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		t.Inspector.Error(ErrorRecord{
			Method: req.Method,
			URL:    req.URL.String(),
			Err:    err.Error(),
		})
		return nil, err
	}

	respBody, err := t.buffer(resp.Body, resp.ContentLength)
	if err != nil {
		_ = resp.Body.Close()
		t.Inspector.Error(ErrorRecord{
			Method: req.Method,
			URL:    req.URL.String(),
			Err:    err.Error(),
		})
		return nil, err
	}
	resp.Body = readCloser(respBody.buffered, respBody.rest)

	t.Inspector.Response(ResponseRecord{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Status:     statusText(resp),
		Header:     resp.Header,
		Body:       respBody.buffered,
	})

	return resp, nil
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

type bufferedBody struct {
	buffered []byte
	rest     io.ReadCloser // non-nil when the body exceeded the cap
}

// buffer reads up to the cap from body. When the body is larger, the
// unread tail is preserved so the caller can keep streaming it.
func (t *Transport) buffer(body io.ReadCloser, contentLength int64) (bufferedBody, error) {
	if body == nil || body == http.NoBody {
		return bufferedBody{}, nil
	}

	max := t.MaxBufferBytes
	if max <= 0 {
		max = DefaultMaxBufferBytes
	}

	buffered, err := io.ReadAll(io.LimitReader(body, max))
	if err != nil {
		_ = body.Close()
		return bufferedBody{}, err
	}

	if int64(len(buffered)) == max && contentLength != int64(len(buffered)) {
		// Possibly more to read; keep the original stream as the tail.
		return bufferedBody{buffered: buffered, rest: body}, nil
	}

	_ = body.Close()
	return bufferedBody{buffered: buffered}, nil
}

// readCloser reconstructs a body from the buffered prefix and the
// optional unread tail.
func readCloser(buffered []byte, rest io.ReadCloser) io.ReadCloser {
	if rest == nil {
		return io.NopCloser(bytes.NewReader(buffered))
	}
	return &tailReadCloser{
		r:    io.MultiReader(bytes.NewReader(buffered), rest),
		tail: rest,
	}
}

type tailReadCloser struct {
	r    io.Reader
	tail io.ReadCloser
}

func (t *tailReadCloser) Read(p []byte) (int, error) {
	return t.r.Read(p)
}

func (t *tailReadCloser) Close() error {
	return t.tail.Close()
}

// statusText extracts the reason phrase from resp.Status ("200 OK" ->
// "OK"), falling back to the standard text for the code.
func statusText(resp *http.Response) string {
	s := resp.Status
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			return s[i+1:]
		}
	}
	return http.StatusText(resp.StatusCode)
}
