package peek

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func proxyInspector(t *testing.T) (*Inspector, *captureSink) {
	t.Helper()
	sink := &captureSink{}
	cfg := DefaultConfig()
	cfg.Mode = ModeSummary
	ins, err := NewInspector(cfg, sink)
	if err != nil {
		t.Fatal(err)
	}
	return ins, sink
}

func TestProxy_ForwardsHTTP(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("X-Upstream", "yes")
		_, _ = io.WriteString(w, "hello through proxy")
	}))
	defer upstream.Close()

	ins, sink := proxyInspector(t)
	proxy := NewProxy(":0", ins)
	proxy.Logger = discardLogger()

	proxySrv := httptest.NewServer(proxy)
	defer proxySrv.Close()

	proxyURL, _ := url.Parse(proxySrv.URL)
	client := &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}

	resp, err := client.Get(upstream.URL)
	if err != nil {
		t.Fatalf("GET through proxy: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()

	if string(body) != "hello through proxy" {
		t.Errorf("body = %q", body)
	}
	if resp.Header.Get("X-Upstream") != "yes" {
		t.Error("upstream header not copied")
	}

	entries := sink.all()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1 response event", len(entries))
	}
	if entries[0].Direction != DirectionResponse {
		t.Errorf("direction = %v", entries[0].Direction)
	}
	if !strings.Contains(entries[0].Lines[0], "[TEXT]") {
		t.Errorf("summary line = %q", entries[0].Lines[0])
	}
}

func TestProxy_BadUpstream(t *testing.T) {
	ins, sink := proxyInspector(t)
	proxy := NewProxy(":0", ins)
	proxy.Logger = discardLogger()

	proxySrv := httptest.NewServer(proxy)
	defer proxySrv.Close()

	proxyURL, _ := url.Parse(proxySrv.URL)
	client := &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}

	// Reserve a port and close it so the dial is refused.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	dead := "http://" + l.Addr().String() + "/"
	_ = l.Close()

	resp, err := client.Get(dead)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}

	entries := sink.all()
	if len(entries) != 1 || entries[0].Direction != DirectionError {
		t.Fatalf("expected one error event, got %+v", entries)
	}
	if !strings.Contains(entries[0].Lines[0], "ERROR") {
		t.Errorf("error line = %q", entries[0].Lines[0])
	}
}

func TestProxy_SetInspector(t *testing.T) {
	first, _ := proxyInspector(t)
	second, sink2 := proxyInspector(t)

	proxy := NewProxy(":0", first)
	proxy.Logger = discardLogger()
	proxy.SetInspector(second)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, "swapped")
	}))
	defer upstream.Close()

	proxySrv := httptest.NewServer(proxy)
	defer proxySrv.Close()

	proxyURL, _ := url.Parse(proxySrv.URL)
	client := &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}

	resp, err := client.Get(upstream.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	_ = resp.Body.Close()

	if len(sink2.all()) != 1 {
		t.Error("swapped inspector should receive the event")
	}
	if second.Stats().Responses != 1 {
		t.Errorf("second inspector responses = %d, want 1", second.Stats().Responses)
	}
	if first.Stats().Responses != 0 {
		t.Errorf("first inspector responses = %d, want 0", first.Stats().Responses)
	}
}

func TestRemoveHopByHopHeaders(t *testing.T) {
	h := http.Header{
		"Connection":        {"keep-alive"},
		"Proxy-Connection":  {"keep-alive"},
		"Keep-Alive":        {"timeout=5"},
		"Transfer-Encoding": {"chunked"},
		"Content-Type":      {"text/plain"},
	}
	removeHopByHopHeaders(h)

	if h.Get("Connection") != "" || h.Get("Keep-Alive") != "" || h.Get("Transfer-Encoding") != "" {
		t.Errorf("hop-by-hop headers survived: %v", h)
	}
	if h.Get("Content-Type") != "text/plain" {
		t.Error("end-to-end header removed")
	}
}
