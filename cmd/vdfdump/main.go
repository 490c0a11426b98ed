// vdfdump decodes Steam's binary VDF files (appcache/appinfo.vdf,
// appcache/packageinfo.vdf, or any bare binary KeyValues file) and prints
// them as a summary, JSON or CBOR.
package main

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/andreyvit/vdf"
	"github.com/andreyvit/vdf/mmap"
	"github.com/andreyvit/vdf/vdfcache"
)

const (
	exitFailure = 1
	exitUsage   = 2
)

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }

func usageErrorf(format string, args ...any) error {
	return &exitError{exitUsage, fmt.Errorf(format, args...)}
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "vdfdump: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(exitFailure)
	}
}

// request is a fully resolved invocation.
type request struct {
	cfg   Config
	kind  string // app, pkg or kv
	path  string
	id    uint32
	hasID bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	req, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}
	if req == nil {
		return nil // help
	}
	cfg := req.cfg

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	opt := vdf.Options{
		MaxDepth:      cfg.MaxDepth,
		StrictText:    cfg.Strict,
		AltEndTag:     cfg.AltEnd,
		ComputeHashes: cfg.Hashes,
		Context:       ctx,
		Logger:        logger,
		Verbose:       cfg.Verbose,
	}
	if cfg.Strict {
		opt.StrictTrailing = true
	}

	in, err := mmap.Open(req.path, mmap.SequentialAccess)
	if err != nil {
		return err
	}
	defer in.Close()
	logger.LogAttrs(ctx, slog.LevelDebug, "input", slog.String("path", req.path), slog.Int("bytes", len(in.Data)), slog.Bool("mapped", in.Mapped()))

	var cache *vdfcache.Cache
	if cfg.Cache != "" && req.kind != "kv" {
		cache, err = vdfcache.Open(cfg.Cache, vdfcache.Options{
			Compression: cfg.CacheCompression,
			Context:     ctx,
			Logger:      logger,
			Verbose:     cfg.Verbose,
		})
		if err != nil {
			return err
		}
		defer cache.Close()
	}

	out := newOutput(stdout, cfg)
	switch req.kind {
	case "app":
		return dumpApps(out, in.Data, req, opt, cache)
	case "pkg":
		return dumpPackages(out, in.Data, req, opt, cache)
	default:
		root, err := vdf.DecodeKeyValues(in.Data, opt)
		if err != nil {
			return fmt.Errorf("%s: %w", req.path, err)
		}
		return out.keyValues(root)
	}
}

func dumpApps(out *output, data []byte, req *request, opt vdf.Options, cache *vdfcache.Cache) error {
	if cache != nil && req.hasID {
		e, err := cache.App(vdfcache.ContentKey(data), req.id, opt)
		if err != nil {
			return err
		}
		if e != nil {
			return out.app(e)
		}
	}

	var f *vdf.AppInfoFile
	var err error
	if cache != nil {
		f, err = cache.AppInfo(data, opt)
	} else {
		f, err = vdf.DecodeAppInfo(data, opt)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", req.path, err)
	}

	if req.hasID {
		e := f.Find(req.id)
		if e == nil {
			return fmt.Errorf("%s: app %d not found", req.path, req.id)
		}
		return out.app(e)
	}
	return out.appInfo(f)
}

func dumpPackages(out *output, data []byte, req *request, opt vdf.Options, cache *vdfcache.Cache) error {
	if cache != nil && req.hasID {
		e, err := cache.Package(vdfcache.ContentKey(data), req.id, opt)
		if err != nil {
			return err
		}
		if e != nil {
			return out.pkg(e)
		}
	}

	var f *vdf.PackageInfoFile
	var err error
	if cache != nil {
		f, err = cache.PackageInfo(data, opt)
	} else {
		f, err = vdf.DecodePackageInfo(data, opt)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", req.path, err)
	}

	if req.hasID {
		e := f.Find(req.id)
		if e == nil {
			return fmt.Errorf("%s: package %d not found", req.path, req.id)
		}
		return out.pkg(e)
	}
	return out.packageInfo(f)
}

// parseArgs resolves configuration in two passes: the first finds --config,
// the second parses every flag with the file's values as defaults. It
// returns a nil request after printing help.
func parseArgs(args []string, stderr io.Writer) (*request, error) {
	pre := pflag.NewFlagSet("vdfdump", pflag.ContinueOnError)
	pre.ParseErrorsWhitelist.UnknownFlags = true
	pre.SetOutput(io.Discard)
	configPath := pre.String("config", "", "")
	pre.BoolP("help", "h", false, "")
	_ = pre.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return nil, usageErrorf("config: %w", err)
	}

	fs := pflag.NewFlagSet("vdfdump", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.String("config", *configPath, "YAML config `file`; flags override its values")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format: summary, json or cbor")
	fs.BoolVar(&cfg.Compact, "compact", cfg.Compact, "compact JSON instead of indented")
	fs.BoolVar(&cfg.Arrays, "arrays", cfg.Arrays, "render objects keyed 0..n-1 as arrays")
	fs.BoolVar(&cfg.Strict, "strict", cfg.Strict, "reject invalid text and trailing bytes")
	fs.BoolVar(&cfg.AltEnd, "alt-end", cfg.AltEnd, "objects end with 0x0B instead of 0x08")
	fs.IntVar(&cfg.MaxDepth, "max-depth", cfg.MaxDepth, "nesting limit (0 means the library default)")
	fs.BoolVar(&cfg.Hashes, "hashes", cfg.Hashes, "compute SHA-1 of every record payload")
	fs.StringVar(&cfg.Cache, "cache", cfg.Cache, "Bolt database `file` caching decoded files")
	fs.Var(textFlag{&cfg.CacheCompression, "compression"}, "cache-compression", "compression of new cache records: none, zstd or lz4")
	fs.Var(textFlag{&cfg.LogLevel, "level"}, "log-level", "log level: debug, info, warn or error")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "log every record")
	id := fs.Uint32("id", 0, "print only the app or package with this ID")
	fs.BoolP("help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(fs, stderr)
			return nil, nil
		}
		return nil, &exitError{exitUsage, err}
	}
	if help, _ := fs.GetBool("help"); help {
		printHelp(fs, stderr)
		return nil, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, &exitError{exitUsage, err}
	}

	rest := fs.Args()
	if len(rest) != 2 {
		return nil, usageErrorf("wanted a command and a file, got %d arguments (see --help)", len(rest))
	}
	req := &request{
		cfg:   cfg,
		kind:  rest[0],
		path:  rest[1],
		id:    *id,
		hasID: fs.Changed("id"),
	}
	switch req.kind {
	case "app", "pkg":
	case "kv":
		if req.hasID {
			return nil, usageErrorf("--id does not apply to kv files")
		}
	default:
		return nil, usageErrorf("unknown command %q (wanted app, pkg or kv)", req.kind)
	}
	return req, nil
}

type textValue interface {
	encoding.TextMarshaler
	encoding.TextUnmarshaler
}

// textFlag adapts a text-marshalable config field to pflag.Value.
type textFlag struct {
	v   textValue
	typ string
}

func (f textFlag) String() string {
	text, _ := f.v.MarshalText()
	return string(text)
}

func (f textFlag) Set(s string) error { return f.v.UnmarshalText([]byte(s)) }
func (f textFlag) Type() string       { return f.typ }

func printHelp(fs *pflag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `vdfdump decodes Steam binary VDF files.

Usage:
  vdfdump [flags] app FILE    appcache/appinfo.vdf (versions 27, 28, 29)
  vdfdump [flags] pkg FILE    appcache/packageinfo.vdf (versions 27, 28)
  vdfdump [flags] kv FILE     a bare binary KeyValues file

Examples:
  vdfdump app ~/.steam/steam/appcache/appinfo.vdf
  vdfdump --format json --arrays --id 440 app appinfo.vdf
  vdfdump --alt-end kv shortcuts.vdf

Flags:
`)
	fs.SetOutput(w)
	fs.PrintDefaults()
}
