package peek

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// Proxy is a plain-HTTP forward proxy host for the inspector. HTTP
// requests are forwarded through an inspecting Transport; CONNECT
// tunnels are relayed byte-for-byte without TLS termination, so
// encrypted traffic passes through unobserved.
//
// The Proxy exists so the inspector can run standalone. Any other host
// (reverse proxy, client middleware, test harness) can feed an
// Inspector directly through a Transport instead.
type Proxy struct {
	// Addr is the address to listen on (e.g., ":8080")
	Addr string

	// Inspector receives an event per proxied exchange.
	Inspector *Inspector

	// Logger for proxy events
	Logger *slog.Logger

	// Transport for outbound requests (optional, uses default if nil).
	// It is wrapped with an inspecting Transport at serve time.
	Transport http.RoundTripper

	// DialTimeout bounds CONNECT tunnel dials. Default 30s.
	DialTimeout time.Duration

	listener net.Listener
	srv      *http.Server

	mu  sync.Mutex
	ins *Inspector
	tap *Transport
}

// NewProxy creates a forward proxy that feeds the given inspector.
func NewProxy(addr string, inspector *Inspector) *Proxy {
	return &Proxy{
		Addr:      addr,
		Inspector: inspector,
		Logger:    slog.Default(),
	}
}

// ListenAndServe starts the proxy server.
func (p *Proxy) ListenAndServe() error {
	listener, err := net.Listen("tcp", p.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	p.listener = listener

	p.srv = &http.Server{
		Handler: p,
	}

	p.Logger.Info("proxy listening", "addr", p.Addr)
	return p.srv.Serve(listener)
}

// Shutdown gracefully stops the proxy.
func (p *Proxy) Shutdown(ctx context.Context) error {
	if p.srv != nil {
		return p.srv.Shutdown(ctx)
	}
	return nil
}

// ServeHTTP handles incoming proxy requests.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodConnect {
		p.handleConnect(w, r)
	} else {
		p.handleHTTP(w, r)
	}
}

// SetInspector swaps the inspector serving new exchanges. Used by the
// SIGHUP reloader; in-flight exchanges finish on the old one.
func (p *Proxy) SetInspector(ins *Inspector) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ins = ins
	p.tap = nil
}

// inspector returns the active inspector, preferring a swapped-in one.
func (p *Proxy) inspector() *Inspector {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ins != nil {
		return p.ins
	}
	return p.Inspector
}

// transport returns the inspecting round tripper, rebuilt after an
// inspector swap.
func (p *Proxy) transport() http.RoundTripper {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tap == nil {
		ins := p.ins
		if ins == nil {
			ins = p.Inspector
		}
		p.tap = NewTransport(ins, p.Transport)
	}
	return p.tap
}

// handleHTTP forwards a plain HTTP request through the inspecting
// transport and copies the response back.
func (p *Proxy) handleHTTP(w http.ResponseWriter, r *http.Request) {
	p.Logger.Debug("HTTP", "method", r.Method, "url", r.URL)

	outReq := r.Clone(r.Context())
	outReq.RequestURI = ""
	removeHopByHopHeaders(outReq.Header)

	resp, err := p.transport().RoundTrip(outReq)
	if err != nil {
		// The transport already emitted the error event.
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

// handleConnect relays a CONNECT tunnel without interception. The
// inspector only sees the error event if the dial fails; tunneled
// bytes are opaque.
func (p *Proxy) handleConnect(w http.ResponseWriter, r *http.Request) {
	p.Logger.Debug("CONNECT", "host", r.Host)

	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	upstream, err := net.DialTimeout("tcp", r.Host, timeout)
	if err != nil {
		p.inspector().Error(ErrorRecord{
			Method: r.Method,
			URL:    r.Host,
			Err:    err.Error(),
		})
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	hijacker, ok := w.(http.Hijacker)
	if !ok {
		_ = upstream.Close()
		http.Error(w, "hijacking not supported", http.StatusInternalServerError)
		return
	}

	clientConn, _, err := hijacker.Hijack()
	if err != nil {
		_ = upstream.Close()
		p.Logger.Error("hijack failed", "error", err)
		return
	}

	_, err = clientConn.Write([]byte("HTTP/1.1 200 Connection Established\r\n\r\n"))
	if err != nil {
		p.Logger.Error("write connect response", "error", err)
		_ = clientConn.Close()
		_ = upstream.Close()
		return
	}

	go tunnel(upstream, clientConn)
	go tunnel(clientConn, upstream)
}

func tunnel(dst, src net.Conn) {
	defer func() { _ = dst.Close() }()
	defer func() { _ = src.Close() }()
	_, _ = io.Copy(dst, src)
}

// Hop-by-hop headers that should not be forwarded
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

func removeHopByHopHeaders(h http.Header) {
	for _, header := range hopByHopHeaders {
		h.Del(header)
	}
}
