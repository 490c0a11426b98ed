package vdfcache

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a stored value is compressed. The value is
// written as the first byte of every stored record, so the constants are
// part of the on-disk format.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
	CompressionLZ4  Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none", "":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

func (c *Compression) UnmarshalText(text []byte) error {
	v, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

var errIncompressible = errors.New("incompressible")

// zstd.Encoder and zstd.Decoder are safe for concurrent use via
// EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("vdfcache: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("vdfcache: zstd decoder initialization failed: " + err.Error())
	}
}

// packValue prepends the compression byte to raw, compressing it with c.
// Values that do not shrink are stored uncompressed.
func packValue(raw []byte, c Compression) ([]byte, error) {
	var body []byte
	var err error
	switch c {
	case CompressionNone:
		err = errIncompressible
	case CompressionZstd:
		body, err = compressZstd(raw)
	case CompressionLZ4:
		body, err = compressLZ4(raw)
	default:
		return nil, fmt.Errorf("vdfcache: unsupported compression %v", c)
	}
	if err == errIncompressible {
		out := make([]byte, 0, 1+len(raw))
		out = append(out, byte(CompressionNone))
		return append(out, raw...), nil
	} else if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+len(body))
	out = append(out, byte(c))
	return append(out, body...), nil
}

// unpackValue reverses packValue. The result never aliases stored, which
// Bolt only keeps valid for the life of a transaction.
func unpackValue(stored []byte) ([]byte, error) {
	if len(stored) == 0 {
		return nil, errors.New("vdfcache: empty value")
	}
	body := stored[1:]
	switch c := Compression(stored[0]); c {
	case CompressionNone:
		return append([]byte(nil), body...), nil
	case CompressionZstd:
		return zstdDecoder.DecodeAll(body, nil)
	case CompressionLZ4:
		return decompressLZ4(body)
	default:
		return nil, fmt.Errorf("vdfcache: unsupported compression %v", c)
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

// LZ4 block mode has no framing, so the raw size goes first as a uvarint.
func compressLZ4(data []byte) ([]byte, error) {
	buf := make([]byte, binary.MaxVarintLen64+lz4.CompressBlockBound(len(data)))
	n := binary.PutUvarint(buf, uint64(len(data)))
	written, err := lz4.CompressBlock(data, buf[n:], nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	if written == 0 || n+written >= len(data) {
		return nil, errIncompressible
	}
	return buf[:n+written], nil
}

func decompressLZ4(body []byte) ([]byte, error) {
	size, n := binary.Uvarint(body)
	if n <= 0 {
		return nil, errors.New("lz4 decompress: bad size prefix")
	}
	if size > maxValueSize {
		return nil, fmt.Errorf("lz4 decompress: size %d too large", size)
	}
	dst := make([]byte, size)
	read, err := lz4.UncompressBlock(body[n:], dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if uint64(read) != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return dst, nil
}

// maxValueSize bounds allocations driven by a stored size prefix.
const maxValueSize = 1 << 30
