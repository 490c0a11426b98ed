package vdf

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDataError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *DataError
		want string
	}{
		{
			"short input",
			&DataError{Data: []byte{1, 2, 3, 4}, Off: 2, Err: ErrUnexpectedEOF, Msg: "need 4 bytes"},
			"need 4 bytes: unexpected end of input at offset 2 of 4: 0102|0304",
		},
		{
			"offset at end",
			&DataError{Data: []byte{0xAB}, Off: 1, Err: ErrTruncatedFile},
			"truncated file at offset 1 of 1: ab|",
		},
		{
			"empty input",
			&DataError{Off: 0, Err: ErrUnexpectedEOF},
			"unexpected end of input at offset 0 of 0",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.err.Error(); got != test.want {
				t.Errorf("Error() = %q, wanted %q", got, test.want)
			}
		})
	}
}

func TestDataError_ExcerptIsBounded(t *testing.T) {
	data := bytes.Repeat([]byte{0xEE}, 1<<20)
	data[1000] = 0x42
	msg := (&DataError{Data: data, Off: 1000, Err: ErrSizeMismatch}).Error()
	if len(msg) > 200 {
		t.Errorf("message is %d bytes long: %q", len(msg), msg)
	}
	if !strings.Contains(msg, "...eeee") || !strings.Contains(msg, "|42ee") || !strings.HasSuffix(msg, "...") {
		t.Errorf("message = %q, wanted a marked excerpt", msg)
	}
}

func TestErrorWrapping(t *testing.T) {
	inner := dataErrf(nil, 0, &FieldTypeError{Tag: 0x42}, "")
	err := recordErr("package", 7, inner)

	if !errors.Is(err, ErrUnknownFieldType) {
		t.Errorf("errors.Is(ErrUnknownFieldType) = false for %v", err)
	}
	var fte *FieldTypeError
	if !errors.As(err, &fte) || fte.Tag != 0x42 {
		t.Errorf("errors.As(FieldTypeError) failed for %v", err)
	}
	deepEqual(t, err.Error(), "package 7: unknown field type 0x42 at offset 0 of 0")

	if recordErr("app", 1, nil) != nil {
		t.Errorf("recordErr(nil) != nil")
	}
}

func TestVersionError(t *testing.T) {
	err := error(&VersionError{File: "appinfo", Magic: 0x07564430})
	deepEqual(t, err.Error(), "appinfo: unsupported version (magic 0x07564430)")
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("errors.Is(ErrUnsupportedVersion) = false")
	}
}
