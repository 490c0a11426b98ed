/*
Package vdf decodes Valve's binary KeyValues format and the two Steam
metadata caches built on it: appcache/appinfo.vdf and
appcache/packageinfo.vdf.

There are three entry points:

1. DecodeAppInfo parses appinfo.vdf, versions 27, 28 and 29 (the latter
stores keys in a string table at the end of the file).

2. DecodePackageInfo parses packageinfo.vdf, versions 27 and 28.

3. DecodeKeyValues parses a bare binary KV object, e.g. localconfig or
shortcuts files.

All three take the whole file as a byte slice (see package mmap for mapping
files into memory) and return fully materialized trees, or an error. The
input is never modified and nothing is shared between calls, so independent
buffers can be decoded concurrently.

# Trees

A tree is an *Object: an ordered list of key/Value pairs. Values are either
nested objects or scalars (narrow or wide strings, int32, float32, pointer,
color, uint64, int64). Key order is preserved as found in the file; when a
key repeats, the later value wins and the key keeps its first position.

# Errors

Errors carry the offending file offset (*DataError) and, inside AppInfo and
PackageInfo files, the record ID (*RecordError). Test for the cause with
errors.Is against ErrUnexpectedEOF, ErrUnknownFieldType,
ErrUnsupportedVersion, ErrSizeMismatch, ErrTruncatedFile, ErrNestingTooDeep,
ErrInvalidText, ErrTrailingData and ErrBadStringIndex.
*/
package vdf
