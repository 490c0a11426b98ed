// Package mmap maps whole files into memory read-only, so multi-hundred
// megabyte metadata caches can be decoded without copying them onto the heap.
package mmap

import (
	"fmt"
	"os"
)

type Options uint

const (
	// SequentialAccess is a hint requesting aggressive read-ahead.
	// Incompatible with RandomAccess. Maps to MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << 1

	// RandomAccess is a hint that read ahead is less useful than normally.
	// Incompatible with SequentialAccess. Maps to MADV_RANDOM on Unix.
	RandomAccess Options = 1 << 2

	// Prefault is a hint requesting the entire file to be loaded in memory
	// for fastest access. Maps to MAP_POPULATE on Linux.
	Prefault Options = 1 << 3

	// NoMap reads the file into a heap buffer instead of mapping it.
	NoMap Options = 1 << 4
)

func (o Options) Has(v Options) bool {
	return o&v != 0
}

// File is an open read-only view of a file's contents.
type File struct {
	// Data is the file contents. It must not be modified, and must not be
	// used after Close.
	Data []byte

	name   string
	mapped bool
}

// Open maps the named file into memory. Empty files and NoMap are served
// from the heap, since zero-length mappings are rejected by most systems.
func Open(name string, opt Options) (*File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size > MaxSize {
		return nil, fmt.Errorf("%s: file size %d exceeds mmap limit %d", name, size, int64(MaxSize))
	}

	if size == 0 || opt.Has(NoMap) {
		data := make([]byte, size)
		if _, err := f.ReadAt(data, 0); err != nil && size > 0 {
			return nil, err
		}
		return &File{Data: data, name: name}, nil
	}

	data, err := Mmap(f, 0, int(size), opt)
	if err != nil {
		return nil, fmt.Errorf("%s: mmap: %w", name, err)
	}
	return &File{Data: data, name: name, mapped: true}, nil
}

func (f *File) Name() string {
	return f.name
}

// Mapped reports whether Data is backed by a memory mapping.
func (f *File) Mapped() bool {
	return f.mapped
}

// Close releases the mapping. It is safe to call more than once.
func (f *File) Close() error {
	data, mapped := f.Data, f.mapped
	f.Data, f.mapped = nil, false
	if !mapped {
		return nil
	}
	return Munmap(data)
}

// Mmap maps size bytes of f read-only.
func Mmap(f *os.File, offset, size int, opt Options) ([]byte, error) {
	if offset != 0 {
		panic("non-zero offset not yet supported")
	}
	return mmap(f, size, opt)
}

// Munmap unmaps the given slice from memory. The slice must have been returned
// by Mmap.
func Munmap(b []byte) error {
	return munmap(b)
}
