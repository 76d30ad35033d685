package peek

import (
	"fmt"
	"strings"
)

// DefaultHexMaxBytes is the default cap on bytes shown in a hex dump.
const DefaultHexMaxBytes = 512

// Block is the result of rendering a body for display. Lines holds the
// display lines in order, Truncated reports whether the body was cut at
// the render limit, and TotalBytes is the full body length before any
// truncation.
type Block struct {
	Lines      []string
	Truncated  bool
	TotalBytes int
}

const hexWindow = 16

// hex field width: 16 bytes * 2 hex chars + 15 separating spaces.
const hexFieldWidth = hexWindow*3 - 1

// RenderHex renders a body as an offset/hex/ASCII table, showing at
// most maxBytes bytes. Each line covers a 16-byte window: an 8-digit
// hex offset, the window bytes as lowercase hex, and the window as
// ASCII with non-printable bytes shown as '.'.
//
// An empty body renders as a single "(empty)" line. When the body
// exceeds maxBytes, a trailing line reports how many bytes were shown
// out of the total. A maxBytes <= 0 falls back to DefaultHexMaxBytes.
//
// The output depends only on body and maxBytes.
func RenderHex(body []byte, maxBytes int) Block {
	if len(body) == 0 {
		return Block{Lines: []string{"(empty)"}}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultHexMaxBytes
	}

	shown := body
	truncated := len(body) > maxBytes
	if truncated {
		shown = body[:maxBytes]
	}

	lines := make([]string, 0, (len(shown)+hexWindow-1)/hexWindow+1)

	var sb strings.Builder
	for off := 0; off < len(shown); off += hexWindow {
		end := off + hexWindow
		if end > len(shown) {
			end = len(shown)
		}
		window := shown[off:end]

		sb.Reset()
		fmt.Fprintf(&sb, "%08x: ", off)

		hexLen := 0
		for i, b := range window {
			if i > 0 {
				sb.WriteByte(' ')
				hexLen++
			}
			fmt.Fprintf(&sb, "%02x", b)
			hexLen += 2
		}
		for ; hexLen < hexFieldWidth; hexLen++ {
			sb.WriteByte(' ')
		}

		sb.WriteString(" |")
		for _, b := range window {
			if b >= 32 && b <= 126 {
				sb.WriteByte(b)
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('|')

		lines = append(lines, sb.String())
	}

	if truncated {
		lines = append(lines, fmt.Sprintf("... (showing first %d bytes of %d total)", maxBytes, len(body)))
	}

	return Block{Lines: lines, Truncated: truncated, TotalBytes: len(body)}
}
