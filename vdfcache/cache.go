// Package vdfcache keeps decoded appinfo.vdf and packageinfo.vdf files in a
// Bolt database, keyed by a hash of the file contents, so repeated runs
// over an unchanged Steam cache skip decoding and can fetch single records.
package vdfcache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
	"go.etcd.io/bbolt"

	"github.com/andreyvit/vdf"
)

var (
	appsBucket     = []byte("apps")
	packagesBucket = []byte("packages")

	// headerKey cannot collide with the 4-byte record keys.
	headerKey = []byte("_header")
)

type Options struct {
	// Compression applies to newly stored records. Existing records are
	// read whatever their compression.
	Compression Compression

	Context context.Context
	Logger  *slog.Logger
	Verbose bool

	// IsTesting trades durability for speed.
	IsTesting bool
}

type Cache struct {
	bdb     *bbolt.DB
	comp    Compression
	ctx     context.Context
	logger  *slog.Logger
	verbose bool
}

func Open(path string, opt Options) (*Cache, error) {
	bopt := *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}

	bdb, err := bbolt.Open(path, 0666, &bopt)
	if err != nil {
		return nil, fmt.Errorf("vdfcache: %w", err)
	}
	err = bdb.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{appsBucket, packagesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("vdfcache: %w", err)
	}

	c := &Cache{
		bdb:     bdb,
		comp:    opt.Compression,
		ctx:     opt.Context,
		logger:  opt.Logger,
		verbose: opt.Verbose,
	}
	if c.ctx == nil {
		c.ctx = context.Background()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

func (c *Cache) Close() error {
	return c.bdb.Close()
}

// Bolt exposes the underlying database, e.g. for backups.
func (c *Cache) Bolt() *bbolt.DB {
	return c.bdb
}

// ContentKey identifies a file by its contents.
func ContentKey(data []byte) uint64 {
	return xxhash.Sum64(data)
}

func contentBucketName(key uint64) []byte {
	return fmt.Appendf(nil, "%016x", key)
}

func recordKey(id uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, id)
}

// AppInfo returns the decoded form of data, from the cache when a file with
// the same contents has been decoded before.
func (c *Cache) AppInfo(data []byte, opt vdf.Options) (*vdf.AppInfoFile, error) {
	key := ContentKey(data)
	hdr, entries, err := load[storedApp](c, appsBucket, key)
	if err != nil {
		return nil, err
	}
	if hdr != nil && hdr.satisfies(opt) {
		c.hit("appinfo", key, len(entries))
		f := &vdf.AppInfoFile{
			Magic:    hdr.Magic,
			Version:  hdr.Version,
			Universe: vdf.Universe(hdr.Universe),
			Entries:  make([]vdf.AppInfoEntry, len(entries)),
		}
		for i := range entries {
			f.Entries[i] = entries[i].entry()
		}
		return f, nil
	}

	f, err := vdf.DecodeAppInfo(data, opt)
	if err != nil {
		return nil, err
	}
	hdr = newFileHeader(f.Magic, f.Version, f.Universe, len(f.Entries), opt)
	records := make([]storedApp, len(f.Entries))
	for i := range f.Entries {
		hdr.add(f.Entries[i].AppID, f.Entries[i].Data)
		records[i] = appRecord(&f.Entries[i])
	}
	if err := store(c, appsBucket, key, hdr, records); err != nil {
		return nil, err
	}
	return f, nil
}

// PackageInfo is the packageinfo.vdf counterpart of AppInfo.
func (c *Cache) PackageInfo(data []byte, opt vdf.Options) (*vdf.PackageInfoFile, error) {
	key := ContentKey(data)
	hdr, entries, err := load[storedPackage](c, packagesBucket, key)
	if err != nil {
		return nil, err
	}
	if hdr != nil && hdr.satisfies(opt) {
		c.hit("packageinfo", key, len(entries))
		f := &vdf.PackageInfoFile{
			Magic:    hdr.Magic,
			Version:  hdr.Version,
			Universe: vdf.Universe(hdr.Universe),
			Entries:  make([]vdf.PackageInfoEntry, len(entries)),
		}
		for i := range entries {
			f.Entries[i] = entries[i].entry()
		}
		return f, nil
	}

	f, err := vdf.DecodePackageInfo(data, opt)
	if err != nil {
		return nil, err
	}
	hdr = newFileHeader(f.Magic, f.Version, f.Universe, len(f.Entries), opt)
	records := make([]storedPackage, len(f.Entries))
	for i := range f.Entries {
		hdr.add(f.Entries[i].PackageID, f.Entries[i].Data)
		records[i] = packageRecord(&f.Entries[i])
	}
	if err := store(c, packagesBucket, key, hdr, records); err != nil {
		return nil, err
	}
	return f, nil
}

// App returns a single cached app record, or nil if the file or the app is
// not in the cache, or if the file was cached with options that could
// produce a different result than opt.
func (c *Cache) App(key uint64, appID uint32, opt vdf.Options) (*vdf.AppInfoEntry, error) {
	r, err := loadOne[storedApp](c, appsBucket, key, appID, opt)
	if r == nil || err != nil {
		return nil, err
	}
	e := r.entry()
	return &e, nil
}

func (c *Cache) Package(key uint64, packageID uint32, opt vdf.Options) (*vdf.PackageInfoEntry, error) {
	r, err := loadOne[storedPackage](c, packagesBucket, key, packageID, opt)
	if r == nil || err != nil {
		return nil, err
	}
	e := r.entry()
	return &e, nil
}

// Drop removes everything cached for the given content key. Dropping a key
// that is not cached is not an error.
func (c *Cache) Drop(key uint64) error {
	name := contentBucketName(key)
	return c.bdb.Update(func(tx *bbolt.Tx) error {
		for _, root := range [][]byte{appsBucket, packagesBucket} {
			err := tx.Bucket(root).DeleteBucket(name)
			if err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
		}
		return nil
	})
}

// Keys lists the content keys cached for the given file kind ("appinfo" or
// "packageinfo").
func (c *Cache) Keys(kind string) ([]uint64, error) {
	root, err := kindBucket(kind)
	if err != nil {
		return nil, err
	}
	var keys []uint64
	err = c.bdb.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(root).ForEach(func(k, v []byte) error {
			if v != nil {
				return nil
			}
			id, err := strconv.ParseUint(string(k), 16, 64)
			if err != nil {
				return fmt.Errorf("vdfcache: bad content bucket %q", k)
			}
			keys = append(keys, id)
			return nil
		})
	})
	return keys, err
}

func kindBucket(kind string) ([]byte, error) {
	switch kind {
	case "appinfo":
		return appsBucket, nil
	case "packageinfo":
		return packagesBucket, nil
	default:
		return nil, fmt.Errorf("vdfcache: unknown file kind %q", kind)
	}
}

func (c *Cache) hit(kind string, key uint64, n int) {
	c.logger.LogAttrs(c.ctx, slog.LevelDebug, "vdfcache: hit", slog.String("kind", kind), slog.String("key", strconv.FormatUint(key, 16)), slog.Int("entries", n))
}

func (c *Cache) encode(v any) ([]byte, error) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return nil, err
	}
	return packValue(raw, c.comp)
}

func decode(stored []byte, v any) error {
	raw, err := unpackValue(stored)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(raw, v)
}

type storedRecord interface {
	storedApp | storedPackage
}

func recordID[R storedRecord](r *R) uint32 {
	switch r := any(r).(type) {
	case *storedApp:
		return r.AppID
	case *storedPackage:
		return r.PackageID
	}
	panic("unreachable")
}

func store[R storedRecord](c *Cache, root []byte, key uint64, hdr *fileHeader, records []R) error {
	start := time.Now()
	var bytes int
	err := c.bdb.Update(func(tx *bbolt.Tx) error {
		rootB := tx.Bucket(root)
		name := contentBucketName(key)
		if err := rootB.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		b, err := rootB.CreateBucket(name)
		if err != nil {
			return err
		}
		for i := range records {
			v, err := c.encode(&records[i])
			if err != nil {
				return fmt.Errorf("%s %d: %w", root, recordID(&records[i]), err)
			}
			bytes += len(v)
			if err := b.Put(recordKey(recordID(&records[i])), v); err != nil {
				return err
			}
			if c.verbose {
				c.logger.LogAttrs(c.ctx, slog.LevelDebug, "vdfcache: stored", slog.String("bucket", string(root)), slog.Uint64("id", uint64(recordID(&records[i]))), slog.Int("bytes", len(v)))
			}
		}
		v, err := c.encode(hdr)
		if err != nil {
			return err
		}
		return b.Put(headerKey, v)
	})
	if err != nil {
		return fmt.Errorf("vdfcache: storing %016x: %w", key, err)
	}
	c.logger.LogAttrs(c.ctx, slog.LevelDebug, "vdfcache: stored file", slog.String("bucket", string(root)), slog.String("key", strconv.FormatUint(key, 16)), slog.Int("entries", len(records)), slog.Int("bytes", bytes), slog.String("compression", c.comp.String()), slog.Duration("took", time.Since(start)))
	return nil
}

// load returns a nil header when the file is not cached.
func load[R storedRecord](c *Cache, root []byte, key uint64) (*fileHeader, []R, error) {
	var hdr *fileHeader
	var records []R
	err := c.bdb.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(root).Bucket(contentBucketName(key))
		if b == nil {
			return nil
		}
		raw := b.Get(headerKey)
		if raw == nil {
			// interrupted store; treat as a miss
			return nil
		}
		h := new(fileHeader)
		if err := decode(raw, h); err != nil {
			return fmt.Errorf("header: %w", err)
		}
		records = make([]R, len(h.IDs))
		for i, id := range h.IDs {
			v := b.Get(recordKey(id))
			if v == nil {
				return fmt.Errorf("%s %d: missing record", root, id)
			}
			if err := decode(v, &records[i]); err != nil {
				return fmt.Errorf("%s %d: %w", root, id, err)
			}
		}
		hdr = h
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("vdfcache: loading %016x: %w", key, err)
	}
	return hdr, records, nil
}

func loadOne[R storedRecord](c *Cache, root []byte, key uint64, id uint32, opt vdf.Options) (*R, error) {
	var r *R
	err := c.bdb.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(root).Bucket(contentBucketName(key))
		if b == nil {
			return nil
		}
		raw := b.Get(headerKey)
		if raw == nil {
			return nil
		}
		var hdr fileHeader
		if err := decode(raw, &hdr); err != nil {
			return fmt.Errorf("header: %w", err)
		}
		if !hdr.satisfies(opt) {
			return nil
		}
		v := b.Get(recordKey(id))
		if v == nil {
			return nil
		}
		r = new(R)
		return decode(v, r)
	})
	if err != nil {
		return nil, fmt.Errorf("vdfcache: %s %d: %w", root, id, err)
	}
	return r, nil
}
