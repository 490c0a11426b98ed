package vdf

import (
	"strconv"
	"strings"
)

// Dump renders o in Valve's text KeyValues layout, for debugging and test
// failure messages. Non-string scalars are printed with their kind, so the
// output does not parse back as text KV.
func Dump(o *Object) string {
	var buf strings.Builder
	dump(&buf, o, 0)
	return buf.String()
}

func dump(buf *strings.Builder, o *Object, depth int) {
	for k, v := range o.All() {
		indent(buf, depth)
		writeQuoted(buf, k)
		if v.kind == KindObject {
			buf.WriteByte('\n')
			indent(buf, depth)
			buf.WriteString("{\n")
			dump(buf, v.obj, depth+1)
			indent(buf, depth)
			buf.WriteString("}\n")
			continue
		}
		buf.WriteByte('\t')
		switch v.kind {
		case KindString:
			writeQuoted(buf, v.str)
		case KindWideString:
			buf.WriteByte('W')
			writeQuoted(buf, v.str)
		default:
			buf.WriteString(v.kind.String())
			buf.WriteByte(':')
			buf.WriteString(v.String())
		}
		buf.WriteByte('\n')
	}
}

func indent(buf *strings.Builder, depth int) {
	for range depth {
		buf.WriteByte('\t')
	}
}

func writeQuoted(buf *strings.Builder, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 {
				buf.WriteString(`\x`)
				buf.WriteString(strconv.FormatUint(uint64(c)|0x100, 16)[1:])
			} else {
				buf.WriteByte(c)
			}
		}
	}
	buf.WriteByte('"')
}
