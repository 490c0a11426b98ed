package vdf

import (
	"errors"
	"strings"
	"testing"

	"github.com/andreyvit/vdf/internal/vdftest"
)

func TestDecodeKeyValues_Hex(t *testing.T) {
	// {"name": "Half-Life", "n": int32 7}
	data := vdftest.Hex(strings.Map(removeSpaces, "01 'name' 00 'Half-Life' 00  02 'n' 00 07000000  08"))
	root, err := DecodeKeyValues(data, testOptions(t))
	if err != nil {
		t.Fatal(err)
	}
	objEq(t, root, obj("name", StringValue("Half-Life"), "n", Int32Value(7)))
}

func TestDecodeKeyValues_EmptyRoot(t *testing.T) {
	root, err := DecodeKeyValues([]byte{0x08}, testOptions(t))
	if err != nil {
		t.Fatal(err)
	}
	if root == nil || root.Len() != 0 {
		t.Fatalf("root = %v, wanted empty object", root)
	}
}

func TestDecodeKeyValues_AllKinds(t *testing.T) {
	data := vdftest.KV(func(b *vdftest.Builder) {
		b.Begin("appinfo")
		b.String("name", "Portal")
		b.WideString("wide", "Портал")
		b.Int32("neg", -5)
		b.Float32("f", 1.5)
		b.Pointer("ptr", 0xdeadbeef)
		b.Color("rgba", 0xff00ff00)
		b.UInt64("u", 1<<63)
		b.Int64("i", -1)
		b.Begin("empty").End()
		b.End()
	})
	root, err := DecodeKeyValues(data, testOptions(t))
	if err != nil {
		t.Fatal(err)
	}
	e := obj("appinfo", ObjectValue(obj(
		"name", StringValue("Portal"),
		"wide", WideStringValue("Портал"),
		"neg", Int32Value(-5),
		"f", Float32Value(1.5),
		"ptr", PointerValue(0xdeadbeef),
		"rgba", ColorValue(0xff00ff00),
		"u", UInt64Value(1<<63),
		"i", Int64Value(-1),
		"empty", ObjectValue(nil),
	)))
	objEq(t, root, e)

	v, ok := root.Lookup("appinfo", "rgba")
	if c, isColor := v.Color(); !ok || !isColor || c != 0xff00ff00 {
		t.Errorf("Lookup(appinfo, rgba) = %v (%v), wanted color ff00ff00", v, v.Kind())
	}
}

func TestDecodeKeyValues_DuplicateKeys(t *testing.T) {
	data := vdftest.KV(func(b *vdftest.Builder) {
		b.String("a", "1")
		b.String("b", "2")
		b.Int32("a", 3)
	})
	root, err := DecodeKeyValues(data, testOptions(t))
	if err != nil {
		t.Fatal(err)
	}
	objEq(t, root, obj("a", Int32Value(3), "b", StringValue("2")))
}

func TestDecodeKeyValues_ManyKeysKeepOrder(t *testing.T) {
	keys := []string{"z", "y", "x", "w", "v", "u", "t", "s", "r", "q", "p", "o"}
	data := vdftest.KV(func(b *vdftest.Builder) {
		for i, k := range keys {
			b.Int32(k, int32(i))
		}
		b.Int32("t", 100)
	})
	root, err := DecodeKeyValues(data, testOptions(t))
	if err != nil {
		t.Fatal(err)
	}
	deepEqual(t, root.Keys(), keys)
	if v, _ := root.Get("t"); !v.Equal(Int32Value(100)) {
		t.Errorf("t = %v, wanted 100", v)
	}
}

func TestDecodeKeyValues_UnknownTag(t *testing.T) {
	data := vdftest.Hex("01 'a' 00 'b' 00  09 'bad' 00 00000000 08")
	_, err := DecodeKeyValues(data, testOptions(t))
	if !errors.Is(err, ErrUnknownFieldType) {
		t.Fatalf("err = %v, wanted ErrUnknownFieldType", err)
	}
	var fte *FieldTypeError
	if !errors.As(err, &fte) || fte.Tag != 0x09 || fte.Key != "bad" {
		t.Errorf("FieldTypeError = %+v, wanted tag 09 key bad", fte)
	}
	var de *DataError
	if !errors.As(err, &de) || de.Off != 5 {
		t.Errorf("DataError = %v, wanted offset 5", err)
	}
}

func TestDecodeKeyValues_Truncated(t *testing.T) {
	data := vdftest.KV(func(b *vdftest.Builder) {
		b.Begin("a")
		b.String("s", "text")
		b.WideString("w", "wide")
		b.UInt64("u", 42)
		b.End()
	})
	for n := range len(data) {
		_, err := DecodeKeyValues(data[:n], Options{})
		if !errors.Is(err, ErrUnexpectedEOF) {
			t.Errorf("prefix %d/%d: err = %v, wanted ErrUnexpectedEOF", n, len(data), err)
		}
	}
	if _, err := DecodeKeyValues(data, Options{}); err != nil {
		t.Errorf("full input: %v", err)
	}
}

func TestDecodeKeyValues_Nesting(t *testing.T) {
	nested := func(depth int) []byte {
		return vdftest.KV(func(b *vdftest.Builder) {
			for range depth - 1 {
				b.Begin("x")
			}
			for range depth - 1 {
				b.End()
			}
		})
	}

	opt := Options{MaxDepth: 4}
	if _, err := DecodeKeyValues(nested(4), opt); err != nil {
		t.Errorf("depth 4: %v", err)
	}
	_, err := DecodeKeyValues(nested(5), opt)
	if !errors.Is(err, ErrNestingTooDeep) {
		t.Errorf("depth 5: err = %v, wanted ErrNestingTooDeep", err)
	}

	_, err = DecodeKeyValues(nested(DefaultMaxDepth+1), Options{})
	if !errors.Is(err, ErrNestingTooDeep) {
		t.Errorf("default limit: err = %v, wanted ErrNestingTooDeep", err)
	}
}

func TestDecodeKeyValues_TrailingData(t *testing.T) {
	data := append(vdftest.KV(func(b *vdftest.Builder) { b.Int32("a", 1) }), 0xAA, 0xBB)

	root, err := DecodeKeyValues(data, testOptions(t))
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	objEq(t, root, obj("a", Int32Value(1)))

	_, err = DecodeKeyValues(data, Options{StrictTrailing: true})
	if !errors.Is(err, ErrTrailingData) {
		t.Fatalf("strict: err = %v, wanted ErrTrailingData", err)
	}
	var de *DataError
	if !errors.As(err, &de) || de.Off != len(data)-2 {
		t.Errorf("strict: err = %v, wanted offset %d", err, len(data)-2)
	}
}

func TestDecodeKeyValues_AltEndTag(t *testing.T) {
	b := vdftest.New()
	b.EndTag = vdftest.TagEndAlt
	b.Begin("shortcuts").Begin("0").String("AppName", "Game").End().End().End()
	data := b.Bytes()

	root, err := DecodeKeyValues(data, Options{AltEndTag: true})
	if err != nil {
		t.Fatal(err)
	}
	v, ok := root.Lookup("shortcuts", "0", "AppName")
	if s, _ := v.Text(); !ok || s != "Game" {
		t.Errorf("AppName = %v, wanted Game", v)
	}

	if _, err = DecodeKeyValues(data, Options{}); err == nil {
		t.Errorf("without AltEndTag: succeeded, wanted an error")
	}
}

func TestDecodeKeyValues_StrictText(t *testing.T) {
	data := vdftest.Hex("01 'k' 00 'a' ff 00 08")
	root, err := DecodeKeyValues(data, Options{})
	if err != nil {
		t.Fatalf("lenient: %v", err)
	}
	if v, _ := root.Get("k"); v.str != "a\xff" {
		t.Errorf("k = %q, wanted raw bytes", v.str)
	}

	_, err = DecodeKeyValues(data, Options{StrictText: true})
	if !errors.Is(err, ErrInvalidText) {
		t.Errorf("strict: err = %v, wanted ErrInvalidText", err)
	}
}

func TestDecodeKeyValues_DoesNotRetainInput(t *testing.T) {
	data := vdftest.KV(func(b *vdftest.Builder) { b.String("key", "value") })
	root := must(DecodeKeyValues(data, Options{}))
	for i := range data {
		data[i] = 'X'
	}
	objEq(t, root, obj("key", StringValue("value")))
}

func removeSpaces(r rune) rune {
	if r == ' ' {
		return -1
	}
	return r
}
