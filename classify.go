package peek

import (
	"strings"
	"unicode/utf8"
)

// ContentClass is the result of classifying a body as binary or text.
type ContentClass int

const (
	// ClassText indicates the body is safe to display as text.
	ClassText ContentClass = iota

	// ClassBinary indicates the body should be displayed as a hex dump.
	ClassBinary
)

// String returns "text" or "binary".
func (c ContentClass) String() string {
	if c == ClassBinary {
		return "binary"
	}
	return "text"
}

// DefaultControlCharRatio is the fraction of control characters above
// which a decodable body is still treated as binary.
const DefaultControlCharRatio = 0.1

// DefaultBinaryPrefixes lists Content-Type prefixes that are always
// treated as binary, without inspecting the payload.
var DefaultBinaryPrefixes = []string{
	"image/",
	"video/",
	"audio/",
	"application/octet-stream",
	"application/pdf",
	"application/zip",
	"application/gzip",
	"application/x-",
	"font/",
	"application/wasm",
	"application/msword",
	"application/vnd.",
	"application/x-protobuf",
	"multipart/",
}

// Classifier decides whether a body should be rendered as text or as a
// hex dump. The declared Content-Type is checked first against a set of
// binary prefixes; if none match, a UTF-8 heuristic inspects the bytes.
//
// The zero value is not usable; create one with NewClassifier.
type Classifier struct {
	prefixes []string
	ratio    float64
}

// NewClassifier creates a Classifier with the default binary prefix set
// and control character ratio.
func NewClassifier() *Classifier {
	return NewClassifierWith(DefaultBinaryPrefixes, DefaultControlCharRatio)
}

// NewClassifierWith creates a Classifier with a custom binary prefix set
// and control character ratio. Prefixes are matched case-insensitively.
// A ratio <= 0 falls back to DefaultControlCharRatio.
func NewClassifierWith(prefixes []string, ratio float64) *Classifier {
	if ratio <= 0 {
		ratio = DefaultControlCharRatio
	}
	lowered := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			lowered = append(lowered, p)
		}
	}
	return &Classifier{prefixes: lowered, ratio: ratio}
}

// PrefixCount returns the number of configured binary prefixes.
func (c *Classifier) PrefixCount() int {
	return len(c.prefixes)
}

// Classify determines whether a body is binary or text. The declared
// contentType wins: if it starts with a configured binary prefix the
// body is binary regardless of its bytes. Otherwise the payload is
// inspected: invalid UTF-8 is binary, as is valid UTF-8 whose control
// characters (excluding tab, newline, carriage return) exceed the
// configured ratio of total characters.
//
// Classify is a pure function of its inputs and never fails.
func (c *Classifier) Classify(contentType string, body []byte) ContentClass {
	if c.DeclaredBinary(contentType) {
		return ClassBinary
	}

	if len(body) == 0 {
		return ClassText
	}

	if !utf8.Valid(body) {
		return ClassBinary
	}

	var total, control int
	for _, r := range string(body) {
		total++
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			control++
		}
	}

	if float64(control) > float64(total)*c.ratio {
		return ClassBinary
	}
	return ClassText
}

// DeclaredBinary reports whether the contentType alone marks the body
// as binary, without inspecting any payload.
func (c *Classifier) DeclaredBinary(contentType string) bool {
	ct := strings.ToLower(contentType)
	for _, prefix := range c.prefixes {
		if strings.HasPrefix(ct, prefix) {
			return true
		}
	}
	return false
}
