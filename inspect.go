package peek

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// timestampLayout is the wall-clock prefix on every emitted entry.
const timestampLayout = "15:04:05"

// Inspector receives request, response and error events from a host
// transport and emits formatted log entries to its Sink. It keeps no
// state across events, so events may be processed concurrently; the
// Sink is responsible for serializing writes.
type Inspector struct {
	// Sink receives one Entry per event. Required.
	Sink Sink

	// Logger is used for the inspector's own diagnostics (decode
	// failures and the like), never for flow output.
	Logger *slog.Logger

	// Metrics collects Prometheus metrics (optional).
	Metrics *Metrics

	// Decoder decodes Content-Encoding compressed bodies before
	// classification and rendering (optional).
	Decoder *BodyDecoder

	// TextDecoder converts body bytes to display text. Defaults to
	// lossy UTF-8 decoding.
	TextDecoder TextDecoder

	// NowFunc returns the current time. Defaults to time.Now.
	// Exposed for testing.
	NowFunc func() time.Time

	mode             string
	previewThreshold int
	hexMax           int
	textMax          int
	classifier       *Classifier

	started   time.Time
	requests  atomic.Uint64
	responses atomic.Uint64
	errors    atomic.Uint64
}

// NewInspector creates an Inspector from a validated configuration.
// The sink receives every emitted entry and must not be nil.
func NewInspector(cfg Config, sink Sink) (*Inspector, error) {
	if sink == nil {
		return nil, fmt.Errorf("nil sink")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prefixes := cfg.BinaryPrefixes
	if len(prefixes) == 0 {
		prefixes = DefaultBinaryPrefixes
	}

	i := &Inspector{
		Sink:             sink,
		Logger:           slog.Default(),
		mode:             cfg.Mode,
		previewThreshold: cfg.PreviewThresholdBytes,
		hexMax:           cfg.HexMaxBytes,
		textMax:          cfg.TextMaxBytes,
		classifier:       NewClassifierWith(prefixes, cfg.ControlCharRatio),
		started:          time.Now(),
	}
	if cfg.DecodeContentEncodings {
		i.Decoder = NewBodyDecoder()
	}
	return i, nil
}

// Mode returns the configured operating mode.
func (i *Inspector) Mode() string {
	return i.mode
}

// Classifier returns the inspector's content classifier.
func (i *Inspector) Classifier() *Classifier {
	return i.classifier
}

// Stats is a snapshot of inspector counters, served by the admin API.
type Stats struct {
	Started   time.Time `json:"started"`
	Requests  uint64    `json:"requests"`
	Responses uint64    `json:"responses"`
	Errors    uint64    `json:"errors"`
}

// Stats returns a snapshot of the event counters.
func (i *Inspector) Stats() Stats {
	return Stats{
		Started:   i.started,
		Requests:  i.requests.Load(),
		Responses: i.responses.Load(),
		Errors:    i.errors.Load(),
	}
}

func (i *Inspector) now() time.Time {
	if i.NowFunc != nil {
		return i.NowFunc()
	}
	return time.Now()
}

// Request processes one client request event and emits a log entry.
// In summary mode only requests carrying a body are logged, tagged
// [TEXT UPLOAD] or [BINARY UPLOAD]. Full mode always emits the header
// block and a body dump.
func (i *Inspector) Request(r RequestRecord) {
	i.requests.Add(1)
	now := i.now()
	ts := now.Format(timestampLayout)

	contentType := r.Header.Get("Content-Type")
	body := i.decodeBody(r.Header, r.Body)

	if i.Metrics != nil {
		i.Metrics.RecordEvent(DirectionRequest)
		i.Metrics.RecordBytesInspected(len(body))
	}

	if i.mode == ModeSummary {
		// Only uploads are interesting in summary mode.
		if contentType == "" || len(body) == 0 {
			return
		}
		tag := "TEXT UPLOAD"
		class := i.classifier.Classify(contentType, body)
		if class == ClassBinary {
			tag = "BINARY UPLOAD"
		}
		if i.Metrics != nil {
			i.Metrics.RecordClassification(class)
		}
		i.Sink.Emit(Entry{
			Time:      now,
			Direction: DirectionRequest,
			Lines: []string{
				fmt.Sprintf("[%s] [%s] %s %s", ts, tag, r.Method, r.URL),
				fmt.Sprintf("    └─ Upload Type: %s | Size: %d", contentType, len(body)),
			},
		})
		return
	}

	lines := make([]string, 0, 16)
	lines = append(lines,
		strings.Repeat("=", 80),
		fmt.Sprintf("[%s] REQUEST: %s %s", ts, r.Method, r.URL),
		fmt.Sprintf("    Content-Type: %s", orNone(contentType)),
		fmt.Sprintf("    Content-Length: %d", len(body)),
	)
	lines = appendHeaderBlock(lines, r.Header, "Request")
	lines = i.appendBodyBlock(lines, body, contentType, "Request")

	i.Sink.Emit(Entry{Time: now, Direction: DirectionRequest, Lines: lines})
}

// Response processes one server response event and emits a log entry.
// Summary mode emits a tagged one-liner with type and size, plus a
// short inline preview for small text bodies. Full mode emits headers
// and a body dump, closed with a separator line.
func (i *Inspector) Response(r ResponseRecord) {
	i.responses.Add(1)
	now := i.now()
	ts := now.Format(timestampLayout)

	contentType := r.Header.Get("Content-Type")
	body := i.decodeBody(r.Header, r.Body)

	if i.Metrics != nil {
		i.Metrics.RecordEvent(DirectionResponse)
		i.Metrics.RecordBytesInspected(len(body))
	}

	if i.mode == ModeSummary {
		class := i.classifier.Classify(contentType, body)
		if i.Metrics != nil {
			i.Metrics.RecordClassification(class)
		}
		tag := "TEXT"
		if class == ClassBinary {
			tag = "BINARY"
		}

		lines := []string{
			fmt.Sprintf("[%s] [%s] %s %s", ts, tag, r.Method, r.URL),
			fmt.Sprintf("    └─ Response: %d | Type: %s | Size: %s",
				r.StatusCode, orUnknown(contentType), sizeField(r.Header, body)),
		}

		if class == ClassText && len(body) > 0 && len(body) < i.previewThreshold {
			if preview := i.preview(body); preview != "" {
				lines = append(lines, fmt.Sprintf("    └─ Preview: %s...", preview))
			}
		}

		i.Sink.Emit(Entry{Time: now, Direction: DirectionResponse, Lines: lines})
		return
	}

	lines := make([]string, 0, 16)
	lines = append(lines,
		fmt.Sprintf("[%s] RESPONSE: %d %s", ts, r.StatusCode, r.Status),
		fmt.Sprintf("    Content-Type: %s", orNone(contentType)),
		fmt.Sprintf("    Content-Length: %d", len(body)),
	)
	lines = appendHeaderBlock(lines, r.Header, "Response")
	lines = i.appendBodyBlock(lines, body, contentType, "Response")
	lines = append(lines, strings.Repeat("=", 80))

	i.Sink.Emit(Entry{Time: now, Direction: DirectionResponse, Lines: lines})
}

// Error processes one transport error event. It emits a single line
// and never attempts classification or rendering, since no body is
// guaranteed available.
func (i *Inspector) Error(r ErrorRecord) {
	i.errors.Add(1)
	now := i.now()
	ts := now.Format(timestampLayout)

	if i.Metrics != nil {
		i.Metrics.RecordEvent(DirectionError)
	}

	var line string
	if r.URL != "" {
		line = fmt.Sprintf("[%s] ERROR: %s %s: %s", ts, r.Method, r.URL, r.Err)
	} else {
		line = fmt.Sprintf("[%s] ERROR: %s", ts, r.Err)
	}

	i.Sink.Emit(Entry{Time: now, Direction: DirectionError, Lines: []string{line}})
}

// decodeBody applies the content-encoding decoder when configured.
// Decode failures are logged and the raw bytes inspected instead; a
// bad body must never abort the event.
func (i *Inspector) decodeBody(h http.Header, body []byte) []byte {
	if i.Decoder == nil || len(body) == 0 {
		return body
	}
	encoding := h.Get("Content-Encoding")
	if encoding == "" || strings.EqualFold(encoding, "identity") {
		return body
	}
	decoded, err := i.Decoder.Decode(encoding, body)
	if err != nil {
		if i.Metrics != nil {
			i.Metrics.RecordDecodeError(encoding)
		}
		if i.Logger != nil {
			i.Logger.Debug("body decode failed", "encoding", encoding, "error", err)
		}
		return body
	}
	return decoded
}

// appendHeaderBlock appends the header block: names sorted for
// deterministic output, duplicate values kept in received order.
func appendHeaderBlock(lines []string, h http.Header, prefix string) []string {
	if len(h) == 0 {
		return lines
	}
	lines = append(lines, fmt.Sprintf("    %s Headers:", prefix))

	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, value := range h[name] {
			lines = append(lines, fmt.Sprintf("      %s: %s", name, value))
		}
	}
	return lines
}

// appendBodyBlock classifies the body and appends the matching render.
func (i *Inspector) appendBodyBlock(lines []string, body []byte, contentType, prefix string) []string {
	if len(body) == 0 {
		return append(lines, fmt.Sprintf("    %s Body: (none)", prefix))
	}

	lines = append(lines, fmt.Sprintf("    %s Body (%d bytes):", prefix, len(body)))

	class := i.classifier.Classify(contentType, body)
	if i.Metrics != nil {
		i.Metrics.RecordClassification(class)
	}

	var block Block
	if class == ClassBinary {
		lines = append(lines, "      [HEX DUMP]")
		block = RenderHex(body, i.hexMax)
		if i.Metrics != nil && block.Truncated {
			i.Metrics.RecordTruncation("hex")
		}
	} else {
		lines = append(lines, "      [TEXT CONTENT]")
		block = RenderTextWith(body, i.textMax, i.TextDecoder)
		if i.Metrics != nil && block.Truncated {
			i.Metrics.RecordTruncation("text")
		}
	}

	for _, line := range block.Lines {
		lines = append(lines, "      "+line)
	}
	return lines
}

// preview returns the first DefaultPreviewChars decoded characters of
// the body with newlines collapsed to spaces.
func (i *Inspector) preview(body []byte) string {
	text, err := i.textDecode(body)
	if err != nil || text == "" {
		return ""
	}

	runes := []rune(text)
	if len(runes) > DefaultPreviewChars {
		runes = runes[:DefaultPreviewChars]
	}
	return strings.ReplaceAll(string(runes), "\n", " ")
}

func (i *Inspector) textDecode(body []byte) (string, error) {
	if i.TextDecoder != nil {
		return i.TextDecoder(body)
	}
	return DecodeUTF8Lossy(body)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// sizeField prefers the declared Content-Length header; when absent it
// falls back to the buffered body length, or "unknown" with no body.
func sizeField(h http.Header, body []byte) string {
	if cl := h.Get("Content-Length"); cl != "" {
		if _, err := strconv.Atoi(cl); err == nil {
			return cl
		}
	}
	if len(body) > 0 {
		return strconv.Itoa(len(body))
	}
	return "unknown"
}
