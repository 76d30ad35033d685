package peek

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultTextMaxBytes is the default cap on bytes shown in a text render.
const DefaultTextMaxBytes = 2048

// TextDecoder converts raw body bytes to a display string. The default
// decoder performs lossy UTF-8 decoding and never fails; alternative
// decoders for other charsets may return an error, which causes the
// renderer to fall back to a hex dump.
type TextDecoder func(body []byte) (string, error)

// DecodeUTF8Lossy is the default TextDecoder. Invalid UTF-8 sequences
// are replaced with U+FFFD. It never returns an error.
func DecodeUTF8Lossy(body []byte) (string, error) {
	if utf8.Valid(body) {
		return string(body), nil
	}
	var sb strings.Builder
	sb.Grow(len(body))
	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		sb.WriteRune(r)
		body = body[size:]
	}
	return sb.String(), nil
}

// RenderText renders a body as decoded text, one display line per
// newline-separated line, showing at most maxBytes bytes. When the body
// exceeds maxBytes, a trailing line reports how many bytes were shown
// out of the total. A maxBytes <= 0 falls back to DefaultTextMaxBytes.
func RenderText(body []byte, maxBytes int) Block {
	return RenderTextWith(body, maxBytes, DecodeUTF8Lossy)
}

// RenderTextWith renders a body as text using the given decoder. If the
// decoder fails, the body is rendered as a hex dump instead, prefixed
// with a line naming the decode failure. A nil decoder uses
// DecodeUTF8Lossy.
func RenderTextWith(body []byte, maxBytes int, decode TextDecoder) Block {
	if len(body) == 0 {
		return Block{Lines: []string{"(empty)"}}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultTextMaxBytes
	}
	if decode == nil {
		decode = DecodeUTF8Lossy
	}

	shown := body
	truncated := len(body) > maxBytes
	if truncated {
		shown = body[:maxBytes]
	}

	text, err := decode(shown)
	if err != nil {
		fallback := RenderHex(body, maxBytes)
		lines := make([]string, 0, len(fallback.Lines)+1)
		lines = append(lines, fmt.Sprintf("[TEXT DECODE ERROR: %v, showing as hex]", err))
		lines = append(lines, fallback.Lines...)
		return Block{Lines: lines, Truncated: fallback.Truncated, TotalBytes: len(body)}
	}

	lines := strings.Split(text, "\n")
	if truncated {
		lines = append(lines, fmt.Sprintf("... (showing first %d bytes of %d total)", maxBytes, len(body)))
	}

	return Block{Lines: lines, Truncated: truncated, TotalBytes: len(body)}
}
