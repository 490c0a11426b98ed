// Package vdftest builds binary KeyValues, AppInfo and PackageInfo fixtures
// for tests. It is a reference encoder written independently of the
// decoder, so it repeats the wire constants instead of importing them.
package vdftest

import (
	"encoding/binary"
	"math"
	"unicode/utf16"
)

const (
	TagObject     byte = 0x00
	TagString     byte = 0x01
	TagInt32      byte = 0x02
	TagFloat32    byte = 0x03
	TagPointer    byte = 0x04
	TagWideString byte = 0x05
	TagColor      byte = 0x06
	TagUInt64     byte = 0x07
	TagEnd        byte = 0x08
	TagInt64      byte = 0x0A
	TagEndAlt     byte = 0x0B
)

const (
	AppInfoMagic27     uint32 = 0x07564427
	AppInfoMagic28     uint32 = 0x07564428
	AppInfoMagic29     uint32 = 0x07564429
	PackageInfoMagic27 uint32 = 0x06565527
	PackageInfoMagic28 uint32 = 0x06565528
)

// Builder appends little-endian binary data. KV helpers write a tag, a key
// and a value; with a string table enabled, keys are written as u32
// indices into Strings instead of inline C strings.
type Builder struct {
	Buf     []byte
	Strings []string
	EndTag  byte

	table   bool
	indices map[string]uint32
}

func New() *Builder {
	return &Builder{EndTag: TagEnd}
}

// UseStringTable switches key encoding to v29 string table indices.
func (b *Builder) UseStringTable() *Builder {
	b.table = true
	if b.indices == nil {
		b.indices = make(map[string]uint32)
	}
	return b
}

func (b *Builder) Bytes() []byte { return b.Buf }
func (b *Builder) Len() int      { return len(b.Buf) }

func (b *Builder) U8(v byte) *Builder {
	b.Buf = append(b.Buf, v)
	return b
}

func (b *Builder) U16(v uint16) *Builder {
	b.Buf = binary.LittleEndian.AppendUint16(b.Buf, v)
	return b
}

func (b *Builder) U32(v uint32) *Builder {
	b.Buf = binary.LittleEndian.AppendUint32(b.Buf, v)
	return b
}

func (b *Builder) U64(v uint64) *Builder {
	b.Buf = binary.LittleEndian.AppendUint64(b.Buf, v)
	return b
}

func (b *Builder) Raw(v []byte) *Builder {
	b.Buf = append(b.Buf, v...)
	return b
}

func (b *Builder) CString(s string) *Builder {
	b.Buf = append(b.Buf, s...)
	b.Buf = append(b.Buf, 0)
	return b
}

func (b *Builder) WideCString(s string) *Builder {
	for _, u := range utf16.Encode([]rune(s)) {
		b.U16(u)
	}
	return b.U16(0)
}

func (b *Builder) PutU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(b.Buf[off:], v)
}

func (b *Builder) PutU64(off int, v uint64) {
	binary.LittleEndian.PutUint64(b.Buf[off:], v)
}

func (b *Builder) Key(key string) *Builder {
	if !b.table {
		return b.CString(key)
	}
	idx, ok := b.indices[key]
	if !ok {
		idx = uint32(len(b.Strings))
		b.Strings = append(b.Strings, key)
		b.indices[key] = idx
	}
	return b.U32(idx)
}

func (b *Builder) field(tag byte, key string) *Builder {
	return b.U8(tag).Key(key)
}

func (b *Builder) Begin(key string) *Builder { return b.field(TagObject, key) }
func (b *Builder) End() *Builder             { return b.U8(b.EndTag) }

func (b *Builder) String(key, v string) *Builder {
	return b.field(TagString, key).CString(v)
}

func (b *Builder) WideString(key, v string) *Builder {
	return b.field(TagWideString, key).WideCString(v)
}

func (b *Builder) Int32(key string, v int32) *Builder {
	return b.field(TagInt32, key).U32(uint32(v))
}

func (b *Builder) Float32(key string, v float32) *Builder {
	return b.field(TagFloat32, key).U32(math.Float32bits(v))
}

func (b *Builder) Pointer(key string, v uint32) *Builder {
	return b.field(TagPointer, key).U32(v)
}

func (b *Builder) Color(key string, v uint32) *Builder {
	return b.field(TagColor, key).U32(v)
}

func (b *Builder) UInt64(key string, v uint64) *Builder {
	return b.field(TagUInt64, key).U64(v)
}

func (b *Builder) Int64(key string, v int64) *Builder {
	return b.field(TagInt64, key).U64(uint64(v))
}

// KV builds a standalone KV blob: fields written by fill, then the end tag.
func KV(fill func(b *Builder)) []byte {
	b := New()
	fill(b)
	return b.End().Bytes()
}

// App describes one AppInfo record. KV fills the root object's fields.
type App struct {
	ID             uint32
	InfoState      uint32
	LastUpdated    uint32
	AccessToken    uint64
	SHA1           [20]byte
	ChangeNumber   uint32
	BinaryDataHash [20]byte
	KV             func(b *Builder)

	// SizeDelta is added to the computed size field to produce corrupt files.
	SizeDelta int
}

// AppInfo encodes a complete appinfo.vdf. The format version is taken from
// the magic's low byte.
func AppInfo(magic, universe uint32, apps ...App) []byte {
	ver := magic & 0xFF
	b := New()
	b.U32(magic).U32(universe)
	tableOffOff := -1
	if ver >= 0x29 {
		b.UseStringTable()
		tableOffOff = b.Len()
		b.U64(0)
	}
	for _, app := range apps {
		b.U32(app.ID)
		sizeOff := b.Len()
		b.U32(0)
		start := b.Len()
		b.U32(app.InfoState).U32(app.LastUpdated).U64(app.AccessToken)
		b.Raw(app.SHA1[:]).U32(app.ChangeNumber)
		if ver >= 0x28 {
			b.Raw(app.BinaryDataHash[:])
		}
		if app.KV != nil {
			app.KV(b)
		}
		b.End()
		b.PutU32(sizeOff, uint32(b.Len()-start+app.SizeDelta))
	}
	b.U32(0)
	if tableOffOff >= 0 {
		b.PutU64(tableOffOff, uint64(b.Len()))
		b.U32(uint32(len(b.Strings)))
		for _, s := range b.Strings {
			b.CString(s)
		}
	}
	return b.Bytes()
}

// Package describes one PackageInfo record.
type Package struct {
	ID           uint32
	SHA1         [20]byte
	ChangeNumber uint32
	AccessToken  uint64
	KV           func(b *Builder)
}

// PackageInfo encodes a complete packageinfo.vdf. Version 28 files carry
// the access token.
func PackageInfo(magic, universe uint32, pkgs ...Package) []byte {
	b := New()
	b.U32(magic).U32(universe)
	for _, p := range pkgs {
		b.U32(p.ID).Raw(p.SHA1[:]).U32(p.ChangeNumber)
		if magic&0xFF >= 0x28 {
			b.U64(p.AccessToken)
		}
		if p.KV != nil {
			p.KV(b)
		}
		b.End()
	}
	b.U32(0xFFFFFFFF)
	return b.Bytes()
}
