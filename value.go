package vdf

import (
	"fmt"
	"iter"
	"math"
	"strconv"
)

// Kind identifies the type of a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindObject
	KindString
	KindWideString
	KindInt32
	KindFloat32
	KindPointer
	KindColor
	KindUInt64
	KindInt64
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindObject:     "object",
	KindString:     "string",
	KindWideString: "wstring",
	KindInt32:      "int32",
	KindFloat32:    "float32",
	KindPointer:    "pointer",
	KindColor:      "color",
	KindUInt64:     "uint64",
	KindInt64:      "int64",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a single node of a KeyValues tree: either an Object or a scalar.
// The zero Value has KindInvalid.
type Value struct {
	kind Kind
	bits uint64
	str  string
	obj  *Object
}

func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

func StringValue(s string) Value     { return Value{kind: KindString, str: s} }
func WideStringValue(s string) Value { return Value{kind: KindWideString, str: s} }
func Int32Value(v int32) Value       { return Value{kind: KindInt32, bits: uint64(uint32(v))} }
func PointerValue(v uint32) Value    { return Value{kind: KindPointer, bits: uint64(v)} }
func ColorValue(v uint32) Value      { return Value{kind: KindColor, bits: uint64(v)} }
func UInt64Value(v uint64) Value     { return Value{kind: KindUInt64, bits: v} }
func Int64Value(v int64) Value       { return Value{kind: KindInt64, bits: uint64(v)} }
func Float32Value(v float32) Value   { return Value{kind: KindFloat32, bits: uint64(math.Float32bits(v))} }

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsObject() bool { return v.kind == KindObject }
func (v Value) IsValid() bool  { return v.kind != KindInvalid }

// Object returns the object held by an object value, or nil.
func (v Value) Object() *Object {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Text returns the contents of a narrow or wide string value.
func (v Value) Text() (string, bool) {
	if v.kind == KindString || v.kind == KindWideString {
		return v.str, true
	}
	return "", false
}

func (v Value) Int32() (int32, bool)     { return int32(uint32(v.bits)), v.kind == KindInt32 }
func (v Value) Float32() (float32, bool) { return math.Float32frombits(uint32(v.bits)), v.kind == KindFloat32 }
func (v Value) Pointer() (uint32, bool)  { return uint32(v.bits), v.kind == KindPointer }
func (v Value) Color() (uint32, bool)    { return uint32(v.bits), v.kind == KindColor }
func (v Value) UInt64() (uint64, bool)   { return v.bits, v.kind == KindUInt64 }
func (v Value) Int64() (int64, bool)     { return int64(v.bits), v.kind == KindInt64 }

// Equal compares kinds and contents, descending into objects. Key order
// is significant. Floats compare by bit pattern, so NaN equals itself.
func (v Value) Equal(u Value) bool {
	if v.kind != u.kind {
		return false
	}
	switch v.kind {
	case KindObject:
		return v.obj.Equal(u.obj)
	case KindString, KindWideString:
		return v.str == u.str
	default:
		return v.bits == u.bits
	}
}

// String formats scalars the way Dump prints them.
func (v Value) String() string {
	switch v.kind {
	case KindObject:
		return fmt.Sprintf("{%d keys}", v.obj.Len())
	case KindString, KindWideString:
		return v.str
	case KindInt32:
		return strconv.FormatInt(int64(int32(v.bits)), 10)
	case KindFloat32:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(v.bits))), 'g', -1, 32)
	case KindPointer, KindColor, KindUInt64:
		return strconv.FormatUint(v.bits, 10)
	case KindInt64:
		return strconv.FormatInt(int64(v.bits), 10)
	default:
		return "<invalid>"
	}
}

// Object is an ordered mapping from keys to values. Keys stay in insertion
// order; setting an existing key replaces its value in place.
type Object struct {
	keys   []string
	values []Value
	index  map[string]int // built once the object outgrows linear search
}

const objectIndexThreshold = 8

func NewObject() *Object {
	return &Object{}
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns the keys in order. The slice must not be modified.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

func (o *Object) KeySeq() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, k := range o.Keys() {
			if !yield(k) {
				return
			}
		}
	}
}

func (o *Object) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for i := 0; i < o.Len(); i++ {
			if !yield(o.keys[i], o.values[i]) {
				return
			}
		}
	}
}

// At returns the i-th key and value.
func (o *Object) At(i int) (string, Value) {
	return o.keys[i], o.values[i]
}

func (o *Object) find(key string) int {
	if o == nil {
		return -1
	}
	if o.index != nil {
		if i, ok := o.index[key]; ok {
			return i
		}
		return -1
	}
	for i, k := range o.keys {
		if k == key {
			return i
		}
	}
	return -1
}

func (o *Object) Get(key string) (Value, bool) {
	if i := o.find(key); i >= 0 {
		return o.values[i], true
	}
	return Value{}, false
}

// Set stores v under key. An existing key keeps its position and gets the
// new value (last write wins).
func (o *Object) Set(key string, v Value) {
	if i := o.find(key); i >= 0 {
		o.values[i] = v
		return
	}
	o.keys = append(o.keys, key)
	o.values = append(o.values, v)
	n := len(o.keys)
	if o.index != nil {
		o.index[key] = n - 1
	} else if n > objectIndexThreshold {
		o.index = make(map[string]int, n*2)
		for i, k := range o.keys {
			o.index[k] = i
		}
	}
}

// Lookup walks nested objects along path, e.g. Lookup("common", "name").
func (o *Object) Lookup(path ...string) (Value, bool) {
	if len(path) == 0 {
		return Value{}, false
	}
	cur := o
	for i, key := range path {
		v, ok := cur.Get(key)
		if !ok {
			return Value{}, false
		}
		if i == len(path)-1 {
			return v, true
		}
		cur = v.Object()
		if cur == nil {
			return Value{}, false
		}
	}
	panic("unreachable")
}

// IsSequence reports whether the keys are exactly "0", "1", ... "n-1" in
// some order. Valve KV has no array type and encodes lists this way.
func (o *Object) IsSequence() bool {
	n := o.Len()
	if n == 0 {
		return false
	}
	seen := make([]bool, n)
	for _, k := range o.keys {
		i, ok := sequenceIndex(k)
		if !ok || i >= n || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}

// sequenceIndex parses a canonical decimal index: no sign, no leading zeros.
func sequenceIndex(k string) (int, bool) {
	if k == "" || len(k) > 9 || (len(k) > 1 && k[0] == '0') {
		return 0, false
	}
	var n int
	for i := 0; i < len(k); i++ {
		c := k[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func (o *Object) Equal(p *Object) bool {
	if o.Len() != p.Len() {
		return false
	}
	for i := 0; i < o.Len(); i++ {
		if o.keys[i] != p.keys[i] || !o.values[i].Equal(p.values[i]) {
			return false
		}
	}
	return true
}
