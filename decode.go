package peek

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Supported content encodings.
const (
	EncodingGzip    = "gzip"
	EncodingDeflate = "deflate"
	EncodingZstd    = "zstd"
	EncodingBrotli  = "br"
)

// DefaultMaxDecodedBytes caps how much a compressed body may expand to
// during decoding. Bodies that decode past the cap are rejected so a
// small compressed payload cannot balloon inspector memory.
const DefaultMaxDecodedBytes = 10 << 20 // 10 MiB

// BodyDecoder decodes Content-Encoding compressed bodies so the
// classifier and renderers see the actual payload rather than
// compressed bytes.
type BodyDecoder struct {
	// MaxDecodedBytes limits the decoded size. Zero means
	// DefaultMaxDecodedBytes.
	MaxDecodedBytes int64
}

// NewBodyDecoder creates a BodyDecoder with the default size cap.
func NewBodyDecoder() *BodyDecoder {
	return &BodyDecoder{MaxDecodedBytes: DefaultMaxDecodedBytes}
}

// Decode decompresses body according to encoding (gzip, deflate, zstd
// or br, case-insensitive). Unknown encodings and decode failures
// return an error; callers are expected to fall back to inspecting
// the raw bytes.
func (d *BodyDecoder) Decode(encoding string, body []byte) ([]byte, error) {
	var r io.Reader
	var closer io.Closer

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case EncodingGzip, "x-gzip":
		gr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		r, closer = gr, gr

	case EncodingDeflate:
		zr, err := zlib.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		r, closer = zr, zr

	case EncodingZstd:
		zr, err := zstd.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr

	case EncodingBrotli:
		r = brotli.NewReader(bytes.NewReader(body))

	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}

	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	max := d.MaxDecodedBytes
	if max <= 0 {
		max = DefaultMaxDecodedBytes
	}

	decoded, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", encoding, err)
	}
	if int64(len(decoded)) > max {
		return nil, fmt.Errorf("decoded body exceeds %d bytes", max)
	}
	return decoded, nil
}
