package peek

import (
	"bytes"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

func gzipBytes(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		tb.Fatalf("gzip write: %v", err)
	}
	if err := gw.Close(); err != nil {
		tb.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func zlibBytes(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		tb.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}

func zstdBytes(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	if err != nil {
		tb.Fatalf("zstd writer: %v", err)
	}
	if _, err := zw.Write(data); err != nil {
		tb.Fatalf("zstd write: %v", err)
	}
	if err := zw.Close(); err != nil {
		tb.Fatalf("zstd close: %v", err)
	}
	return buf.Bytes()
}

func brotliBytes(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write(data); err != nil {
		tb.Fatalf("brotli write: %v", err)
	}
	if err := bw.Close(); err != nil {
		tb.Fatalf("brotli close: %v", err)
	}
	return buf.Bytes()
}

func TestBodyDecoder_RoundTrips(t *testing.T) {
	d := NewBodyDecoder()
	payload := []byte("the payload that went over the wire compressed")

	tests := []struct {
		encoding string
		body     []byte
	}{
		{"gzip", gzipBytes(t, payload)},
		{"x-gzip", gzipBytes(t, payload)},
		{"GZIP", gzipBytes(t, payload)},
		{"deflate", zlibBytes(t, payload)},
		{"zstd", zstdBytes(t, payload)},
		{"br", brotliBytes(t, payload)},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			got, err := d.Decode(tt.encoding, tt.body)
			if err != nil {
				t.Fatalf("Decode(%q): %v", tt.encoding, err)
			}
			if !bytes.Equal(got, payload) {
				t.Errorf("Decode(%q) = %q, want %q", tt.encoding, got, payload)
			}
		})
	}
}

func TestBodyDecoder_UnsupportedEncoding(t *testing.T) {
	d := NewBodyDecoder()

	_, err := d.Decode("compress", []byte("data"))
	if err == nil {
		t.Fatal("expected error for unsupported encoding")
	}
	if !strings.Contains(err.Error(), "compress") {
		t.Errorf("error should name the encoding: %v", err)
	}
}

func TestBodyDecoder_CorruptInput(t *testing.T) {
	d := NewBodyDecoder()

	if _, err := d.Decode("gzip", []byte("not gzip at all")); err == nil {
		t.Error("corrupt gzip should fail")
	}
	if _, err := d.Decode("deflate", []byte{0x00}); err == nil {
		t.Error("corrupt deflate should fail")
	}
}

func TestBodyDecoder_SizeCap(t *testing.T) {
	d := &BodyDecoder{MaxDecodedBytes: 64}

	big := bytes.Repeat([]byte("a"), 1000)
	if _, err := d.Decode("gzip", gzipBytes(t, big)); err == nil {
		t.Error("decoded body over the cap should be rejected")
	}

	small := []byte("fits")
	got, err := d.Decode("gzip", gzipBytes(t, small))
	if err != nil {
		t.Fatalf("Decode under cap: %v", err)
	}
	if !bytes.Equal(got, small) {
		t.Errorf("got %q, want %q", got, small)
	}
}

func TestBodyDecoder_ZeroCapUsesDefault(t *testing.T) {
	d := &BodyDecoder{}

	payload := bytes.Repeat([]byte("b"), 4096)
	got, err := d.Decode("gzip", gzipBytes(t, payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("round trip with default cap failed")
	}
}
