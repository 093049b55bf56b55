// Package codec encodes descriptor streams for offline replay.
//
// Two encodings are provided. The binary descriptor log (see Writer and
// Reader) is a compact block-compressed record stream. JSON codecs (see Codec)
// encode single messages, one per line, for hand-written fixtures and for
// printing results.
//
// Binary log layout, little endian:
//
//	header:  "CSGD" [version u8] [compression u8]
//	block:   [uncompressed u32] [compressed u32] [payload]
//	record:  [kind u8] [image_id i64] [robot_id i32] [dim u32] [dim × f64]
//
// Records never straddle blocks.
package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt is returned for a log that is truncated or malformed.
	ErrCorrupt = errors.New("codec: corrupt descriptor log")

	// ErrUnknownCompression is returned for an unsupported compression type.
	ErrUnknownCompression = errors.New("codec: unknown compression")
)

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// AppendLine encodes v with c (Default if nil) and appends it to dst as one
// newline-terminated line, the framing JSONReader expects.
func AppendLine(dst []byte, c Codec, v any) ([]byte, error) {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		return dst, fmt.Errorf("codec %s: %w", c.Name(), err)
	}
	dst = append(dst, b...)
	return append(dst, '\n'), nil
}

// MustMarshal is a helper for tests and fixtures.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
