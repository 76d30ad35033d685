package peek

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func tapInspector(t *testing.T, mode string) (*Inspector, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	cfg := DefaultConfig()
	cfg.Mode = mode
	ins, err := NewInspector(cfg, sink)
	if err != nil {
		t.Fatal(err)
	}
	return ins, sink
}

func TestTransport_EmitsRequestAndResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "pong")
	}))
	defer upstream.Close()

	ins, sink := tapInspector(t, ModeSummary)
	client := &http.Client{Transport: NewTransport(ins, nil)}

	resp, err := client.Get(upstream.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if string(body) != "pong" {
		t.Errorf("client saw body %q, want pong", body)
	}

	entries := sink.all()
	// Summary mode skips bodyless requests, so only the response event.
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1: %+v", len(entries), entries)
	}
	e := entries[0]
	if e.Direction != DirectionResponse {
		t.Errorf("direction = %v", e.Direction)
	}
	if !strings.Contains(e.Lines[0], "[TEXT]") {
		t.Errorf("summary line = %q", e.Lines[0])
	}
}

func TestTransport_RequestBodyRestored(t *testing.T) {
	var received []byte
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received, _ = io.ReadAll(r.Body)
		w.WriteHeader(204)
	}))
	defer upstream.Close()

	ins, sink := tapInspector(t, ModeSummary)
	client := &http.Client{Transport: NewTransport(ins, nil)}

	payload := `{"user":"alice"}`
	resp, err := client.Post(upstream.URL, "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	_ = resp.Body.Close()

	if string(received) != payload {
		t.Errorf("upstream received %q, want %q", received, payload)
	}

	// Request event carries the same body the upstream saw.
	entries := sink.all()
	found := false
	for _, e := range entries {
		if e.Direction == DirectionRequest {
			found = true
			if !strings.Contains(e.Lines[0], "[TEXT UPLOAD]") {
				t.Errorf("request line = %q", e.Lines[0])
			}
		}
	}
	if !found {
		t.Error("no request event emitted")
	}
}

func TestTransport_ErrorEvent(t *testing.T) {
	ins, sink := tapInspector(t, ModeSummary)

	failing := roundTripperFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})
	client := &http.Client{Transport: NewTransport(ins, failing)}

	_, err := client.Get("http://unreachable.invalid/")
	if err == nil {
		t.Fatal("expected error")
	}

	entries := sink.all()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Direction != DirectionError {
		t.Errorf("direction = %v, want error", e.Direction)
	}
	if !strings.Contains(e.Lines[0], "connection refused") {
		t.Errorf("error line = %q", e.Lines[0])
	}
}

func TestTransport_LargeBodyStreamsThrough(t *testing.T) {
	big := bytes.Repeat([]byte("z"), 4096)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write(big)
	}))
	defer upstream.Close()

	ins, _ := tapInspector(t, ModeSummary)
	tap := NewTransport(ins, nil)
	tap.MaxBufferBytes = 1024
	client := &http.Client{Transport: tap}

	resp, err := client.Get(upstream.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	// The client must still see the whole body past the inspection cap.
	if !bytes.Equal(body, big) {
		t.Errorf("client saw %d bytes, want %d", len(body), len(big))
	}
}

func TestTransport_FullModeEntries(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer upstream.Close()

	ins, sink := tapInspector(t, ModeFull)
	client := &http.Client{Transport: NewTransport(ins, nil)}

	resp, err := client.Get(upstream.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	_, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	entries := sink.all()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want request and response", len(entries))
	}
	if entries[0].Direction != DirectionRequest || entries[1].Direction != DirectionResponse {
		t.Errorf("order = %v, %v", entries[0].Direction, entries[1].Direction)
	}
	respLines := strings.Join(entries[1].Lines, "\n")
	if !strings.Contains(respLines, "[TEXT CONTENT]") {
		t.Errorf("response entry missing body render:\n%s", respLines)
	}
	if !strings.Contains(respLines, `{"ok":true}`) {
		t.Errorf("response entry missing body text:\n%s", respLines)
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestStatusText(t *testing.T) {
	resp := &http.Response{StatusCode: 200, Status: "200 OK"}
	if got := statusText(resp); got != "OK" {
		t.Errorf("statusText = %q, want OK", got)
	}

	resp = &http.Response{StatusCode: 404, Status: ""}
	if got := statusText(resp); got != "Not Found" {
		t.Errorf("statusText fallback = %q, want Not Found", got)
	}
}
