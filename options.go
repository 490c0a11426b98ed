package vdf

import (
	"context"
	"log/slog"
)

// DefaultMaxDepth bounds object nesting. Real Steam metadata stays well
// under 20 levels.
const DefaultMaxDepth = 256

// Options control decoding. The zero value is ready to use.
type Options struct {
	// MaxDepth limits object nesting; 0 means DefaultMaxDepth.
	MaxDepth int

	// StrictText rejects keys and strings that are not valid UTF-8 (or,
	// for wide strings, not well-formed UTF-16).
	StrictText bool

	// StrictTrailing makes DecodeKeyValues fail if bytes follow the root
	// object.
	StrictTrailing bool

	// AltEndTag makes 0x0B, rather than 0x08, terminate objects. Some
	// standalone KV files (e.g. shortcuts.vdf variants) are written this way.
	AltEndTag bool

	// ComputeHashes fills PayloadHash of every AppInfo/PackageInfo entry
	// with the SHA-1 of its binary KV payload.
	ComputeHashes bool

	Context context.Context
	Logger  *slog.Logger
	Verbose bool
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

func (o Options) endTag() byte {
	if o.AltEndTag {
		return tagEndAlt
	}
	return tagEnd
}
