// Package compress frames raster blocks for blob storage, optionally
// compressed with LZ4 or Zstandard.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec identifies a block compression algorithm.
type Codec uint8

const (
	// None stores blocks verbatim without a frame header.
	None Codec = 0
	// LZ4 is fast block compression, suited to hot rasters.
	LZ4 Codec = 1
	// Zstd trades speed for ratio.
	Zstd Codec = 2
)

// ErrCorrupt is returned when a frame cannot be decoded.
var ErrCorrupt = errors.New("compress: corrupt frame")

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", uint8(c))
	}
}

// ParseCodec parses the String form of a codec. The empty string is None.
func ParseCodec(s string) (Codec, error) {
	switch s {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("compress: unknown codec %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Codec) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Codec) UnmarshalText(b []byte) error {
	v, err := ParseCodec(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Frame layout: [uncompressed uint32][compressed uint32][payload].
// A compressed size of 0 marks a payload stored verbatim.
const headerSize = 8

// Encode frames a block with codec c. Blocks that do not shrink below 90% of
// their size are stored verbatim inside the frame.
func Encode(c Codec, data []byte) ([]byte, error) {
	if c == None {
		return data, nil
	}

	var (
		payload []byte
		err     error
	)
	switch c {
	case LZ4:
		payload, err = encodeLZ4(data)
	case Zstd:
		enc := getZstdEncoder()
		payload = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("compress: unknown codec %d", uint8(c))
	}
	if err != nil {
		return nil, err
	}

	compressed := uint32(len(payload))
	if len(payload) == 0 || float64(len(payload)) > float64(len(data))*0.9 {
		payload = data
		compressed = 0
	}

	out := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	binary.LittleEndian.PutUint32(out[4:], compressed)
	copy(out[headerSize:], payload)
	return out, nil
}

func encodeLZ4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil // n == 0: incompressible
}

// Decode unpacks a frame produced by Encode into dst, which must have exactly
// the uncompressed size.
func Decode(c Codec, frame, dst []byte) error {
	if c == None {
		if len(frame) != len(dst) {
			return fmt.Errorf("%w: %d bytes, want %d", ErrCorrupt, len(frame), len(dst))
		}
		copy(dst, frame)
		return nil
	}

	if len(frame) < headerSize {
		return fmt.Errorf("%w: short header", ErrCorrupt)
	}
	size := binary.LittleEndian.Uint32(frame[0:])
	compressed := binary.LittleEndian.Uint32(frame[4:])
	if int(size) != len(dst) {
		return fmt.Errorf("%w: block of %d bytes, want %d", ErrCorrupt, size, len(dst))
	}

	payload := frame[headerSize:]
	if compressed == 0 {
		if len(payload) < int(size) {
			return fmt.Errorf("%w: short payload", ErrCorrupt)
		}
		copy(dst, payload[:size])
		return nil
	}
	if len(payload) < int(compressed) {
		return fmt.Errorf("%w: short payload", ErrCorrupt)
	}
	payload = payload[:compressed]

	switch c {
	case LZ4:
		n, err := lz4.UncompressBlock(payload, dst)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if n != len(dst) {
			return fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
	case Zstd:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)

		out, err := dec.DecodeAll(payload, dst[:0])
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		if len(out) != len(dst) {
			return fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
	default:
		return fmt.Errorf("compress: unknown codec %d", uint8(c))
	}
	return nil
}
