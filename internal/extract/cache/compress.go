package cache

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/snappy"
	"github.com/pierrec/lz4/v4"

	"github.com/readlens/engine/internal/common/configtypes"
)

// ErrDecompression is returned when a stored payload cannot be decoded.
// Use errors.Is(err, ErrDecompression) to check for decompression errors.
var ErrDecompression = errors.New("decompression failed")

// Stored payloads begin with a one-byte algorithm marker so reads can
// decode without any out-of-band metadata.
const (
	markerNone   byte = 'n'
	markerSnappy byte = 's'
	markerLZ4    byte = 'l'
)

// Compress encodes content for storage, prefixed with its algorithm
// marker. Content below minSize, or an algorithm of "none" (or an
// unknown one), is stored raw behind the none marker.
func Compress(content []byte, algorithm string, minSize int) ([]byte, error) {
	if len(content) < minSize || algorithm == configtypes.CompressionNone || algorithm == "" {
		return withMarker(markerNone, content), nil
	}

	switch algorithm {
	case configtypes.CompressionSnappy:
		return withMarker(markerSnappy, snappy.Encode(nil, content)), nil

	case configtypes.CompressionLZ4:
		// LZ4 stream format embeds size information.
		var buf bytes.Buffer
		buf.WriteByte(markerLZ4)
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(content); err != nil {
			w.Close()
			return nil, fmt.Errorf("lz4 compression failed: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 compression close failed: %w", err)
		}
		return buf.Bytes(), nil

	default:
		return withMarker(markerNone, content), nil
	}
}

// Decompress decodes a stored payload according to its marker byte.
func Decompress(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrDecompression)
	}

	marker, body := payload[0], payload[1:]
	switch marker {
	case markerNone:
		return body, nil

	case markerSnappy:
		decompressed, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecompression, err)
		}
		return decompressed, nil

	case markerLZ4:
		decompressed, err := io.ReadAll(lz4.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecompression, err)
		}
		return decompressed, nil

	default:
		return nil, fmt.Errorf("%w: unknown algorithm marker 0x%02x", ErrDecompression, marker)
	}
}

func withMarker(marker byte, content []byte) []byte {
	out := make([]byte, 0, len(content)+1)
	out = append(out, marker)
	return append(out, content...)
}
