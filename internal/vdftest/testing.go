package vdftest

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

// Logger returns a debug-level logger that writes through t.Log.
func Logger(t testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(&logWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type logWriter struct{ t testing.TB }

func (c *logWriter) Write(buf []byte) (int, error) {
	c.t.Log(strings.TrimSuffix(string(buf), "\n"))
	return len(buf), nil
}

// Hex decodes a fixture written as hex digits. Spaces and underscores
// separate bytes and are otherwise ignored; 'text' runs are copied
// verbatim (without quotes).
func Hex(s string) []byte {
	b, err := appendHex(nil, s)
	if err != nil {
		panic(fmt.Errorf("vdftest.Hex(%q): %w", s, err))
	}
	return b
}

func appendHex(data []byte, s string) ([]byte, error) {
	const none byte = 0xFF

	prev := none
	flush := func() {
		if prev != none {
			data = append(data, prev)
			prev = none
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		var half byte
		switch {
		case c == '_' || c == ' ' || c == '\n' || c == '\t':
			flush()
			continue
		case c == '\'':
			flush()
			end := strings.IndexByte(s[i+1:], '\'')
			if end < 0 {
				return nil, fmt.Errorf("unterminated quote at %d", i)
			}
			data = append(data, s[i+1:i+1+end]...)
			i += end + 1
			continue
		case c >= '0' && c <= '9':
			half = c - '0'
		case c >= 'a' && c <= 'f':
			half = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			half = c - 'A' + 10
		default:
			return nil, fmt.Errorf("invalid char '%c'", c)
		}
		if prev == none {
			prev = half
		} else {
			data = append(data, prev<<4|half)
			prev = none
		}
	}
	flush()
	return data, nil
}

func HexDump(b []byte, highlightOff int) string {
	var buf strings.Builder
	for off := 0; ; off += 16 {
		fmt.Fprintf(&buf, "%08x", off)
		if off >= len(b) {
			buf.WriteByte('\n')
			break
		}
		line := b[off:min(off+16, len(b))]
		for i := range 16 {
			switch {
			case i >= len(line):
				buf.WriteString("   ")
				continue
			case off+i == highlightOff:
				buf.WriteByte('>')
			default:
				buf.WriteByte(' ')
			}
			fmt.Fprintf(&buf, "%02x", line[i])
		}
		buf.WriteString("  |")
		for _, v := range line {
			if v >= 32 && v <= 126 {
				buf.WriteByte(v)
			} else {
				buf.WriteByte('.')
			}
		}
		buf.WriteString("|\n")
		if off+16 >= len(b) {
			break
		}
	}
	return buf.String()
}

func BytesEq(t testing.TB, a, e []byte) bool {
	if bytes.Equal(a, e) {
		return true
	}
	off := min(len(a), len(e))
	for i := range off {
		if a[i] != e[i] {
			off = i
			break
		}
	}
	t.Helper()
	t.Errorf("** got:\n%v\nwanted:\n%v\nfirst difference offset: 0x%x (%d)", HexDump(a, off), HexDump(e, off), off, off)
	return false
}
