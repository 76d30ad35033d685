// Package peek is a standalone HTTP traffic-inspection core: it
// consumes fully-parsed request, response, and error events and emits
// human-readable summaries, header blocks, hex dumps, and text
// previews to an append-only log sink.
//
// # Architecture
//
// The package is built from four small pieces. A [Classifier] decides
// whether a body is binary or text, preferring the declared
// Content-Type and falling back to a UTF-8 heuristic. [RenderHex] and
// [RenderText] turn bodies into bounded display blocks. An [Inspector]
// orchestrates: it receives one event at a time, classifies the body,
// picks a renderer, and emits a single atomic [Entry] to its [Sink].
//
// Events carry no state between them, so an Inspector may be called
// from many goroutines; the sink serializes writes.
//
// # Basic Usage
//
// Build an inspector from a config and point it at a sink:
//
//	cfg := peek.DefaultConfig()
//	cfg.Mode = peek.ModeFull
//
//	sink := peek.NewWriterSink(os.Stdout)
//	inspector, err := peek.NewInspector(cfg, sink)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inspector.Response(peek.ResponseRecord{
//	    Method:     "GET",
//	    URL:        "https://example.com/",
//	    StatusCode: 200,
//	    Status:     "OK",
//	    Header:     resp.Header,
//	    Body:       body,
//	})
//
// # Tapping an HTTP Client
//
// [Transport] wraps any http.RoundTripper, buffers bodies, and feeds
// the inspector while handing the bodies back intact:
//
//	client := &http.Client{
//	    Transport: peek.NewTransport(inspector, nil),
//	}
//
// # Standalone Proxy
//
// [Proxy] hosts the inspector as a plain-HTTP forward proxy. CONNECT
// tunnels are relayed without TLS termination, so only cleartext
// exchanges are observed:
//
//	proxy := peek.NewProxy(":8080", inspector)
//	log.Fatal(proxy.ListenAndServe())
//
// # Configuration
//
// [Config] enumerates every recognized option (mode, render limits,
// preview threshold, binary prefix set) and is validated once at
// startup. [LoadConfig] reads it from YAML/JSON/TOML files and PEEK_*
// environment variables via viper.
//
// # Observability
//
// [Metrics] exposes Prometheus counters for events, classifications,
// truncated renders, and decode failures. [AdminAPI] serves read-only
// status and config endpoints, and [HealthChecker] provides /healthz
// and /readyz probes.
package peek
