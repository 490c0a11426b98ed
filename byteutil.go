package vdf

import (
	"bytes"
	"encoding/binary"
	"math"
	"unicode/utf16"
	"unicode/utf8"
)

// byteDecoder reads little-endian values from the front of Buf. Orig is the
// whole input starting at file offset 0, so Off() is always an absolute file
// offset even when Buf has been cut short to a region of the file.
type byteDecoder struct {
	Orig []byte
	Buf  []byte
}

func makeByteDecoder(buf []byte) byteDecoder {
	return byteDecoder{buf, buf}
}

// makeRegionDecoder returns a decoder over data[start:end] that reports
// offsets relative to the start of data.
func makeRegionDecoder(data []byte, start, end int) byteDecoder {
	return byteDecoder{data[:end], data[start:end]}
}

func (d *byteDecoder) Off() int {
	return len(d.Orig) - len(d.Buf)
}

func (d *byteDecoder) Len() int {
	return len(d.Buf)
}

func (d *byteDecoder) errEOF(n int) error {
	return dataErrf(d.Orig, d.Off(), ErrUnexpectedEOF, "need %d bytes, %d remaining", n, len(d.Buf))
}

func (d *byteDecoder) Raw(n int) ([]byte, error) {
	if n < 0 || len(d.Buf) < n {
		return nil, d.errEOF(n)
	}
	v := d.Buf[:n:n]
	d.Buf = d.Buf[n:]
	return v, nil
}

func (d *byteDecoder) U8() (byte, error) {
	if len(d.Buf) < 1 {
		return 0, d.errEOF(1)
	}
	v := d.Buf[0]
	d.Buf = d.Buf[1:]
	return v, nil
}

func (d *byteDecoder) U16() (uint16, error) {
	if len(d.Buf) < 2 {
		return 0, d.errEOF(2)
	}
	v := binary.LittleEndian.Uint16(d.Buf)
	d.Buf = d.Buf[2:]
	return v, nil
}

func (d *byteDecoder) U32() (uint32, error) {
	if len(d.Buf) < 4 {
		return 0, d.errEOF(4)
	}
	v := binary.LittleEndian.Uint32(d.Buf)
	d.Buf = d.Buf[4:]
	return v, nil
}

func (d *byteDecoder) U64() (uint64, error) {
	if len(d.Buf) < 8 {
		return 0, d.errEOF(8)
	}
	v := binary.LittleEndian.Uint64(d.Buf)
	d.Buf = d.Buf[8:]
	return v, nil
}

func (d *byteDecoder) I32() (int32, error) {
	v, err := d.U32()
	return int32(v), err
}

func (d *byteDecoder) I64() (int64, error) {
	v, err := d.U64()
	return int64(v), err
}

func (d *byteDecoder) F32() (float32, error) {
	v, err := d.U32()
	return math.Float32frombits(v), err
}

// SHA1 reads a raw 20-byte checksum.
func (d *byteDecoder) SHA1() (SHA1, error) {
	var h SHA1
	raw, err := d.Raw(len(h))
	if err != nil {
		return h, err
	}
	copy(h[:], raw)
	return h, nil
}

// CString reads a NUL-terminated narrow string. The bytes are kept as is;
// with strict set, they must be valid UTF-8.
func (d *byteDecoder) CString(strict bool) (string, error) {
	i := bytes.IndexByte(d.Buf, 0)
	if i < 0 {
		return "", dataErrf(d.Orig, d.Off(), ErrUnexpectedEOF, "unterminated string")
	}
	raw := d.Buf[:i]
	if strict && !utf8.Valid(raw) {
		return "", dataErrf(d.Orig, d.Off(), ErrInvalidText, "string is not valid UTF-8")
	}
	d.Buf = d.Buf[i+1:]
	return string(raw), nil
}

const (
	bomLE = 0xFEFF
	bomBE = 0xFFFE
)

// WideCString reads UTF-16 code units up to a zero unit. Units are
// little-endian unless the string opens with a byte-swapped BOM.
func (d *byteDecoder) WideCString(strict bool) (string, error) {
	start := d.Off()
	n := -1
	for i := 0; i+1 < len(d.Buf); i += 2 {
		if d.Buf[i] == 0 && d.Buf[i+1] == 0 {
			n = i / 2
			break
		}
	}
	if n < 0 {
		return "", dataErrf(d.Orig, start, ErrUnexpectedEOF, "unterminated wide string")
	}

	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(d.Buf[2*i:])
	}
	if len(units) > 0 {
		switch units[0] {
		case bomLE:
			units = units[1:]
		case bomBE:
			units = units[1:]
			for i, u := range units {
				units[i] = u<<8 | u>>8
			}
		}
	}

	if strict && !validUTF16(units) {
		return "", dataErrf(d.Orig, start, ErrInvalidText, "wide string is not valid UTF-16")
	}
	d.Buf = d.Buf[2*n+2:]
	return string(utf16.Decode(units)), nil
}

func validUTF16(units []uint16) bool {
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if !utf16.IsSurrogate(u) {
			continue
		}
		if u >= 0xDC00 || i+1 >= len(units) {
			return false
		}
		if next := rune(units[i+1]); next < 0xDC00 || next > 0xDFFF {
			return false
		}
		i++
	}
	return true
}
