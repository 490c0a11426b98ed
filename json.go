package vdf

import (
	"encoding/json"
	"math"
	"strconv"
)

// JSONOptions control AppendJSON.
type JSONOptions struct {
	// Arrays renders objects whose keys are "0".."n-1" as JSON arrays.
	Arrays bool
}

// AppendJSON appends the compact JSON form of v to buf. Object key order is
// preserved. Non-finite floats become null.
func AppendJSON(buf []byte, v Value, opt JSONOptions) []byte {
	switch v.kind {
	case KindObject:
		return appendObjectJSON(buf, v.obj, opt)
	case KindString, KindWideString:
		return appendJSONString(buf, v.str)
	case KindInt32:
		return strconv.AppendInt(buf, int64(int32(v.bits)), 10)
	case KindPointer, KindColor, KindUInt64:
		return strconv.AppendUint(buf, v.bits, 10)
	case KindInt64:
		return strconv.AppendInt(buf, int64(v.bits), 10)
	case KindFloat32:
		f := float64(math.Float32frombits(uint32(v.bits)))
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return append(buf, "null"...)
		}
		return strconv.AppendFloat(buf, f, 'g', -1, 32)
	default:
		return append(buf, "null"...)
	}
}

func appendObjectJSON(buf []byte, o *Object, opt JSONOptions) []byte {
	if opt.Arrays && o.IsSequence() {
		buf = append(buf, '[')
		for i := 0; i < o.Len(); i++ {
			if i > 0 {
				buf = append(buf, ',')
			}
			v, _ := o.Get(strconv.Itoa(i))
			buf = AppendJSON(buf, v, opt)
		}
		return append(buf, ']')
	}
	buf = append(buf, '{')
	for i := 0; i < o.Len(); i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, v := o.At(i)
		buf = appendJSONString(buf, k)
		buf = append(buf, ':')
		buf = AppendJSON(buf, v, opt)
	}
	return append(buf, '}')
}

func appendJSONString(buf []byte, s string) []byte {
	raw, err := json.Marshal(s)
	if err != nil {
		panic(err) // strings always marshal
	}
	return append(buf, raw...)
}

func (v Value) MarshalJSON() ([]byte, error) {
	return AppendJSON(nil, v, JSONOptions{}), nil
}

func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	return appendObjectJSON(nil, o, JSONOptions{}), nil
}

// Interface converts v into plain Go values: map[string]any for objects
// (losing key order), []any for sequence objects when arrays is set, and
// the natural Go type for scalars.
func (v Value) Interface(arrays bool) any {
	switch v.kind {
	case KindObject:
		o := v.obj
		if arrays && o.IsSequence() {
			items := make([]any, o.Len())
			for i := range items {
				item, _ := o.Get(strconv.Itoa(i))
				items[i] = item.Interface(arrays)
			}
			return items
		}
		m := make(map[string]any, o.Len())
		for k, item := range o.All() {
			m[k] = item.Interface(arrays)
		}
		return m
	case KindString, KindWideString:
		return v.str
	case KindInt32:
		return int32(v.bits)
	case KindPointer, KindColor:
		return uint32(v.bits)
	case KindUInt64:
		return v.bits
	case KindInt64:
		return int64(v.bits)
	case KindFloat32:
		return math.Float32frombits(uint32(v.bits))
	default:
		return nil
	}
}
