package vdf

import (
	"log/slog"
)

// Field type tags of the binary KeyValues format.
const (
	tagObject     byte = 0x00
	tagString     byte = 0x01
	tagInt32      byte = 0x02
	tagFloat32    byte = 0x03
	tagPointer    byte = 0x04
	tagWideString byte = 0x05
	tagColor      byte = 0x06
	tagUInt64     byte = 0x07
	tagEnd        byte = 0x08
	tagInt64      byte = 0x0A
	tagEndAlt     byte = 0x0B
)

// kvDecoder carries the per-call state of a tree decode.
type kvDecoder struct {
	d        byteDecoder
	end      byte
	maxDepth int
	strict   bool
	strings  []string // v29 AppInfo key table; nil means inline keys
}

func newKVDecoder(d byteDecoder, opt Options, strings []string) *kvDecoder {
	return &kvDecoder{
		d:        d,
		end:      opt.endTag(),
		maxDepth: opt.MaxDepth,
		strict:   opt.StrictText,
		strings:  strings,
	}
}

// DecodeKeyValues decodes a standalone binary KV blob with no outer header.
func DecodeKeyValues(data []byte, opt Options) (*Object, error) {
	opt = opt.withDefaults()
	kd := newKVDecoder(makeByteDecoder(data), opt, nil)
	root, err := kd.object(1)
	if err != nil {
		return nil, err
	}
	if n := kd.d.Len(); n > 0 {
		if opt.StrictTrailing {
			return nil, dataErrf(data, kd.d.Off(), ErrTrailingData, "%d bytes remain", n)
		}
		if opt.Verbose {
			opt.Logger.LogAttrs(opt.Context, slog.LevelDebug, "vdf: ignoring trailing bytes", slog.Int("off", kd.d.Off()), slog.Int("len", n))
		}
	}
	return root, nil
}

func (kd *kvDecoder) key() (string, error) {
	if kd.strings == nil {
		return kd.d.CString(kd.strict)
	}
	off := kd.d.Off()
	idx, err := kd.d.U32()
	if err != nil {
		return "", err
	}
	if uint64(idx) >= uint64(len(kd.strings)) {
		return "", dataErrf(kd.d.Orig, off, ErrBadStringIndex, "key index %d, table has %d strings", idx, len(kd.strings))
	}
	return kd.strings[idx], nil
}

// object decodes fields up to and including the end tag. depth is the
// nesting level of the object being decoded, starting at 1 for the root.
func (kd *kvDecoder) object(depth int) (*Object, error) {
	if depth > kd.maxDepth {
		return nil, dataErrf(kd.d.Orig, kd.d.Off(), ErrNestingTooDeep, "depth %d exceeds limit %d", depth, kd.maxDepth)
	}
	obj := NewObject()
	for {
		tagOff := kd.d.Off()
		tag, err := kd.d.U8()
		if err != nil {
			return nil, err
		}
		if tag == kd.end {
			return obj, nil
		}

		key, err := kd.key()
		if err != nil {
			return nil, err
		}

		var v Value
		switch tag {
		case tagObject:
			var child *Object
			child, err = kd.object(depth + 1)
			v = ObjectValue(child)
		case tagString:
			var s string
			s, err = kd.d.CString(kd.strict)
			v = StringValue(s)
		case tagWideString:
			var s string
			s, err = kd.d.WideCString(kd.strict)
			v = WideStringValue(s)
		case tagInt32:
			var n int32
			n, err = kd.d.I32()
			v = Int32Value(n)
		case tagPointer:
			var n uint32
			n, err = kd.d.U32()
			v = PointerValue(n)
		case tagColor:
			var n uint32
			n, err = kd.d.U32()
			v = ColorValue(n)
		case tagFloat32:
			var f float32
			f, err = kd.d.F32()
			v = Float32Value(f)
		case tagUInt64:
			var n uint64
			n, err = kd.d.U64()
			v = UInt64Value(n)
		case tagInt64:
			var n int64
			n, err = kd.d.I64()
			v = Int64Value(n)
		default:
			return nil, &DataError{kd.d.Orig, tagOff, &FieldTypeError{Tag: tag, Key: key}, ""}
		}
		if err != nil {
			return nil, err
		}
		obj.Set(key, v)
	}
}
