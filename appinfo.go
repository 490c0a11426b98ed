package vdf

import (
	"log/slog"
	"time"
)

// AppInfo header magics. The low byte is the format version.
const (
	AppInfoMagic27 uint32 = 0x07_56_44_27
	AppInfoMagic28 uint32 = 0x07_56_44_28
	AppInfoMagic29 uint32 = 0x07_56_44_29
)

// AppInfoFile is the decoded contents of appinfo.vdf.
type AppInfoFile struct {
	Magic    uint32         `json:"magic"`
	Version  int            `json:"version"` // 27, 28 or 29
	Universe Universe       `json:"universe"`
	Entries  []AppInfoEntry `json:"apps"`
}

// AppInfoEntry is one application record.
type AppInfoEntry struct {
	AppID        uint32 `json:"app_id"`
	Size         uint32 `json:"size"` // bytes following the size field, KV payload included
	InfoState    uint32 `json:"info_state"`
	LastUpdated  uint32 `json:"last_updated"` // Unix time
	AccessToken  uint64 `json:"access_token"`
	SHA1         SHA1   `json:"sha1"` // checksum of the text form of Data
	ChangeNumber uint32 `json:"change_number"`

	// BinaryDataHash is the stored checksum of the binary KV payload,
	// present since version 28.
	BinaryDataHash *SHA1 `json:"binary_data_hash,omitempty"`

	// PayloadHash is the SHA-1 of the KV payload as found in the file,
	// computed only when Options.ComputeHashes is set.
	PayloadHash *SHA1 `json:"payload_hash,omitempty"`

	Data *Object `json:"data"`
}

func (e *AppInfoEntry) LastUpdatedTime() time.Time {
	return time.Unix(int64(e.LastUpdated), 0).UTC()
}

// Find returns the entry with the given app ID, or nil.
func (f *AppInfoFile) Find(appID uint32) *AppInfoEntry {
	for i := range f.Entries {
		if f.Entries[i].AppID == appID {
			return &f.Entries[i]
		}
	}
	return nil
}

func appInfoVersion(magic uint32) (int, bool) {
	switch magic {
	case AppInfoMagic27:
		return 27, true
	case AppInfoMagic28:
		return 28, true
	case AppInfoMagic29:
		return 29, true
	default:
		return 0, false
	}
}

// DecodeAppInfo decodes the contents of Steam's appcache/appinfo.vdf.
func DecodeAppInfo(data []byte, opt Options) (*AppInfoFile, error) {
	opt = opt.withDefaults()
	d := makeByteDecoder(data)

	magic, err := d.U32()
	if err != nil {
		return nil, err
	}
	ver, ok := appInfoVersion(magic)
	if !ok {
		return nil, dataErrf(data, 0, &VersionError{"appinfo", magic}, "")
	}
	universe, err := d.U32()
	if err != nil {
		return nil, err
	}

	var keys []string
	if ver >= 29 {
		keys, d, err = decodeStringTable(d, opt.StrictText)
		if err != nil {
			return nil, err
		}
	}

	f := &AppInfoFile{
		Magic:    magic,
		Version:  ver,
		Universe: Universe(universe),
	}
	for {
		if d.Len() == 0 {
			return nil, dataErrf(d.Orig, d.Off(), ErrTruncatedFile, "missing end of app list")
		}
		appID, err := d.U32()
		if err != nil {
			return nil, err
		}
		if appID == 0 {
			break
		}
		e, err := decodeAppInfoEntry(&d, appID, ver, keys, opt)
		if err != nil {
			return nil, recordErr("app", appID, err)
		}
		if opt.Verbose {
			opt.Logger.LogAttrs(opt.Context, slog.LevelDebug, "vdf: app", slog.Uint64("app", uint64(appID)), slog.Uint64("size", uint64(e.Size)), slog.Int("keys", e.Data.Len()))
		}
		f.Entries = append(f.Entries, e)
	}

	opt.Logger.LogAttrs(opt.Context, slog.LevelDebug, "vdf: decoded appinfo", slog.Int("ver", ver), slog.Int("apps", len(f.Entries)), slog.Int("bytes", len(data)))
	return f, nil
}

// decodeStringTable reads the v29 key table whose offset follows the
// universe field, and returns a decoder limited to the record region that
// precedes the table.
func decodeStringTable(d byteDecoder, strict bool) ([]string, byteDecoder, error) {
	tableOffOff := d.Off()
	tableOff, err := d.I64()
	if err != nil {
		return nil, d, err
	}
	if tableOff < int64(d.Off()) || tableOff > int64(len(d.Orig)) {
		return nil, d, dataErrf(d.Orig, tableOffOff, ErrUnexpectedEOF, "string table offset %d outside of file", tableOff)
	}
	start := int(tableOff)

	td := makeRegionDecoder(d.Orig, start, len(d.Orig))
	count, err := td.U32()
	if err != nil {
		return nil, d, err
	}
	// every string takes at least its terminator
	if uint64(count) > uint64(td.Len()) {
		return nil, d, dataErrf(td.Orig, start, ErrUnexpectedEOF, "string table claims %d strings in %d bytes", count, td.Len())
	}
	keys := make([]string, count)
	for i := range keys {
		keys[i], err = td.CString(strict)
		if err != nil {
			return nil, d, err
		}
	}
	return keys, makeRegionDecoder(d.Orig, d.Off(), start), nil
}

func decodeAppInfoEntry(d *byteDecoder, appID uint32, ver int, keys []string, opt Options) (AppInfoEntry, error) {
	e := AppInfoEntry{AppID: appID}
	var err error
	if e.Size, err = d.U32(); err != nil {
		return e, err
	}
	sizeEnd := d.Off()
	if e.InfoState, err = d.U32(); err != nil {
		return e, err
	}
	if e.LastUpdated, err = d.U32(); err != nil {
		return e, err
	}
	if e.AccessToken, err = d.U64(); err != nil {
		return e, err
	}
	if e.SHA1, err = d.SHA1(); err != nil {
		return e, err
	}
	if e.ChangeNumber, err = d.U32(); err != nil {
		return e, err
	}
	if ver >= 28 {
		h, err := d.SHA1()
		if err != nil {
			return e, err
		}
		e.BinaryDataHash = &h
	}

	payloadStart := d.Off()
	expectedEnd := sizeEnd + int(e.Size)
	if expectedEnd < payloadStart {
		return e, dataErrf(d.Orig, sizeEnd-4, ErrSizeMismatch, "size %d is smaller than the record header", e.Size)
	}

	kd := newKVDecoder(*d, opt, keys)
	if e.Data, err = kd.object(1); err != nil {
		return e, err
	}
	*d = kd.d
	if end := d.Off(); end != expectedEnd {
		return e, dataErrf(d.Orig, end, ErrSizeMismatch, "payload ends at %d, size field implies %d", end, expectedEnd)
	}
	if opt.ComputeHashes {
		e.PayloadHash = sumSHA1(d.Orig[payloadStart:expectedEnd])
	}
	return e, nil
}
