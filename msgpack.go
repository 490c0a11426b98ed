package vdf

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Values are encoded as a 2-element array [kind, payload], objects as a
// msgpack map in key order. Unlike the JSON form this round-trips kinds
// exactly (pointer vs. color vs. int32, wide vs. narrow strings).

var (
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomDecoder = (*Value)(nil)
	_ msgpack.CustomEncoder = (*Object)(nil)
	_ msgpack.CustomDecoder = (*Object)(nil)
)

func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeArrayLen(2); err != nil {
		return err
	}
	if err := enc.EncodeUint8(uint8(v.kind)); err != nil {
		return err
	}
	switch v.kind {
	case KindObject:
		return v.obj.EncodeMsgpack(enc)
	case KindString, KindWideString:
		return enc.EncodeString(v.str)
	case KindInt32:
		return enc.EncodeInt32(int32(v.bits))
	case KindFloat32:
		return enc.EncodeUint32(uint32(v.bits))
	case KindPointer, KindColor:
		return enc.EncodeUint32(uint32(v.bits))
	case KindUInt64:
		return enc.EncodeUint(v.bits)
	case KindInt64:
		return enc.EncodeInt(int64(v.bits))
	default:
		return enc.EncodeNil()
	}
}

func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if n != 2 {
		return fmt.Errorf("vdf: msgpack value has %d elements, wanted 2", n)
	}
	k, err := dec.DecodeUint8()
	if err != nil {
		return err
	}
	kind := Kind(k)
	switch kind {
	case KindObject:
		o := NewObject()
		if err := o.DecodeMsgpack(dec); err != nil {
			return err
		}
		*v = ObjectValue(o)
	case KindString, KindWideString:
		s, err := dec.DecodeString()
		if err != nil {
			return err
		}
		*v = Value{kind: kind, str: s}
	case KindInt32:
		n, err := dec.DecodeInt32()
		if err != nil {
			return err
		}
		*v = Int32Value(n)
	case KindFloat32, KindPointer, KindColor:
		n, err := dec.DecodeUint32()
		if err != nil {
			return err
		}
		*v = Value{kind: kind, bits: uint64(n)}
	case KindUInt64:
		n, err := dec.DecodeUint64()
		if err != nil {
			return err
		}
		*v = UInt64Value(n)
	case KindInt64:
		n, err := dec.DecodeInt64()
		if err != nil {
			return err
		}
		*v = Int64Value(n)
	default:
		return fmt.Errorf("vdf: msgpack value has unknown kind %d", k)
	}
	return nil
}

func (o *Object) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(o.Len()); err != nil {
		return err
	}
	for k, v := range o.All() {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := v.EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

func (o *Object) DecodeMsgpack(dec *msgpack.Decoder) error {
	n, err := dec.DecodeMapLen()
	if err != nil {
		return err
	}
	*o = Object{}
	for range max(n, 0) {
		k, err := dec.DecodeString()
		if err != nil {
			return err
		}
		var v Value
		if err := v.DecodeMsgpack(dec); err != nil {
			return err
		}
		o.Set(k, v)
	}
	return nil
}
