package vdf

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnexpectedEOF      = errors.New("unexpected end of input")
	ErrUnknownFieldType   = errors.New("unknown field type")
	ErrUnsupportedVersion = errors.New("unsupported version")
	ErrSizeMismatch       = errors.New("size mismatch")
	ErrTruncatedFile      = errors.New("truncated file")
	ErrNestingTooDeep     = errors.New("nesting too deep")
	ErrInvalidText        = errors.New("invalid text encoding")
	ErrTrailingData       = errors.New("trailing data after root object")
	ErrBadStringIndex     = errors.New("string table index out of range")
)

// DataError reports a problem at a specific offset of the input.
type DataError struct {
	Data []byte
	Off  int
	Err  error
	Msg  string
}

func dataErrf(data []byte, off int, err error, format string, args ...any) error {
	return &DataError{data, off, err, fmt.Sprintf(format, args...)}
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// Error includes a hex excerpt of the bytes surrounding Off; the input can
// be hundreds of megabytes, so never the whole buffer.
func (e *DataError) Error() string {
	const before = 16
	const after = 32
	start, end := e.Off-before, e.Off+after
	if start < 0 {
		start = 0
	}
	if end > len(e.Data) {
		end = len(e.Data)
	}
	off := e.Off
	if off > end {
		off = end
	}
	if start > off {
		start = off
	}

	var buf strings.Builder
	buf.WriteString(e.Msg)
	if e.Err != nil {
		if e.Msg != "" {
			buf.WriteString(": ")
		}
		buf.WriteString(e.Err.Error())
	}
	fmt.Fprintf(&buf, " at offset %d of %d", e.Off, len(e.Data))
	if end > start {
		buf.WriteString(": ")
		if start > 0 {
			buf.WriteString("...")
		}
		fmt.Fprintf(&buf, "%x|%x", e.Data[start:off], e.Data[off:end])
		if end < len(e.Data) {
			buf.WriteString("...")
		}
	}
	return buf.String()
}

// FieldTypeError is returned for a KV field whose tag byte is not known.
type FieldTypeError struct {
	Tag byte
	Key string
}

func (e *FieldTypeError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("unknown field type 0x%02x", e.Tag)
	}
	return fmt.Sprintf("unknown field type 0x%02x for key %q", e.Tag, e.Key)
}

func (e *FieldTypeError) Unwrap() error {
	return ErrUnknownFieldType
}

// VersionError is returned when a file header carries an unknown magic.
type VersionError struct {
	File  string // "appinfo" or "packageinfo"
	Magic uint32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("%s: unsupported version (magic 0x%08x)", e.File, e.Magic)
}

func (e *VersionError) Unwrap() error {
	return ErrUnsupportedVersion
}

// RecordError attributes a failure to a single AppInfo or PackageInfo record.
type RecordError struct {
	Kind string // "app" or "package"
	ID   uint32
	Err  error
}

func recordErr(kind string, id uint32, err error) error {
	if err == nil {
		return nil
	}
	return &RecordError{kind, id, err}
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func (e *RecordError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Kind)
	buf.WriteByte(' ')
	fmt.Fprint(&buf, e.ID)
	if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
