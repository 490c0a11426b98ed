package vdf

import (
	"log/slog"
)

// PackageInfo header magics.
const (
	PackageInfoMagic27 uint32 = 0x06_56_55_27
	PackageInfoMagic28 uint32 = 0x06_56_55_28
)

const packageListEnd uint32 = 0xFFFF_FFFF

// PackageInfoFile is the decoded contents of packageinfo.vdf.
type PackageInfoFile struct {
	Magic    uint32             `json:"magic"`
	Version  int                `json:"version"` // 27 or 28
	Universe Universe           `json:"universe"`
	Entries  []PackageInfoEntry `json:"packages"`
}

// PackageInfoEntry is one package (a.k.a. sub) record.
type PackageInfoEntry struct {
	PackageID    uint32 `json:"package_id"`
	SHA1         SHA1   `json:"sha1"`
	ChangeNumber uint32 `json:"change_number"`

	// AccessToken is only stored by version 28 files; zero otherwise.
	AccessToken uint64 `json:"access_token,omitempty"`

	PayloadHash *SHA1   `json:"payload_hash,omitempty"`
	Data        *Object `json:"data"`
}

func (f *PackageInfoFile) Find(packageID uint32) *PackageInfoEntry {
	for i := range f.Entries {
		if f.Entries[i].PackageID == packageID {
			return &f.Entries[i]
		}
	}
	return nil
}

func packageInfoVersion(magic uint32) (int, bool) {
	switch magic {
	case PackageInfoMagic27:
		return 27, true
	case PackageInfoMagic28:
		return 28, true
	default:
		return 0, false
	}
}

// DecodePackageInfo decodes the contents of Steam's appcache/packageinfo.vdf.
func DecodePackageInfo(data []byte, opt Options) (*PackageInfoFile, error) {
	opt = opt.withDefaults()
	d := makeByteDecoder(data)

	magic, err := d.U32()
	if err != nil {
		return nil, err
	}
	ver, ok := packageInfoVersion(magic)
	if !ok {
		return nil, dataErrf(data, 0, &VersionError{"packageinfo", magic}, "")
	}
	universe, err := d.U32()
	if err != nil {
		return nil, err
	}

	f := &PackageInfoFile{
		Magic:    magic,
		Version:  ver,
		Universe: Universe(universe),
	}
	for {
		if d.Len() == 0 {
			return nil, dataErrf(data, d.Off(), ErrTruncatedFile, "missing end of package list")
		}
		id, err := d.U32()
		if err != nil {
			return nil, err
		}
		if id == packageListEnd {
			break
		}
		e, err := decodePackageInfoEntry(&d, id, ver, opt)
		if err != nil {
			return nil, recordErr("package", id, err)
		}
		if opt.Verbose {
			opt.Logger.LogAttrs(opt.Context, slog.LevelDebug, "vdf: package", slog.Uint64("package", uint64(id)), slog.Int("keys", e.Data.Len()))
		}
		f.Entries = append(f.Entries, e)
	}

	opt.Logger.LogAttrs(opt.Context, slog.LevelDebug, "vdf: decoded packageinfo", slog.Int("ver", ver), slog.Int("packages", len(f.Entries)), slog.Int("bytes", len(data)))
	return f, nil
}

func decodePackageInfoEntry(d *byteDecoder, id uint32, ver int, opt Options) (PackageInfoEntry, error) {
	e := PackageInfoEntry{PackageID: id}
	var err error
	if e.SHA1, err = d.SHA1(); err != nil {
		return e, err
	}
	if e.ChangeNumber, err = d.U32(); err != nil {
		return e, err
	}
	if ver >= 28 {
		if e.AccessToken, err = d.U64(); err != nil {
			return e, err
		}
	}

	payloadStart := d.Off()
	kd := newKVDecoder(*d, opt, nil)
	if e.Data, err = kd.object(1); err != nil {
		return e, err
	}
	*d = kd.d
	if opt.ComputeHashes {
		e.PayloadHash = sumSHA1(d.Orig[payloadStart:d.Off()])
	}
	return e, nil
}
