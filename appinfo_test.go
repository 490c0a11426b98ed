package vdf

import (
	"crypto/sha1"
	"errors"
	"testing"
	"time"

	"github.com/andreyvit/vdf/internal/vdftest"
)

func portalApp(b *vdftest.Builder) {
	b.Begin("appinfo")
	b.Int32("appid", 400)
	b.Begin("common")
	b.String("name", "Portal")
	b.String("type", "Game")
	b.End()
	b.Begin("depots")
	b.Begin("401").UInt64("size", 1<<33).End()
	b.End()
	b.End()
}

func halfLifeApp(b *vdftest.Builder) {
	b.Begin("appinfo")
	b.Begin("common")
	b.String("name", "Half-Life")
	b.End()
	b.End()
}

func testApps() []vdftest.App {
	return []vdftest.App{
		{
			ID:           400,
			InfoState:    2,
			LastUpdated:  1700000000,
			AccessToken:  0x1122334455667788,
			SHA1:         [20]byte{1, 2, 3},
			ChangeNumber: 12345,
			BinaryDataHash: [20]byte{
				0xAA, 0xBB,
			},
			KV: portalApp,
		},
		{
			ID:           70,
			InfoState:    1,
			ChangeNumber: 7,
			KV:           halfLifeApp,
		},
	}
}

func TestDecodeAppInfo_Versions(t *testing.T) {
	for _, magic := range []uint32{AppInfoMagic27, AppInfoMagic28, AppInfoMagic29} {
		data := vdftest.AppInfo(magic, 1, testApps()...)
		f, err := DecodeAppInfo(data, testOptions(t))
		if err != nil {
			t.Fatalf("magic %08x: %v", magic, err)
		}
		wantVer := int(magic&0xFF-0x27) + 27
		if f.Version != wantVer || f.Magic != magic || f.Universe != UniversePublic {
			t.Errorf("header = %d/%08x/%v, wanted %d/%08x/public", f.Version, f.Magic, f.Universe, wantVer, magic)
		}
		if len(f.Entries) != 2 {
			t.Fatalf("v%d: got %d apps, wanted 2", f.Version, len(f.Entries))
		}

		e := &f.Entries[0]
		deepEqual(t, e.AppID, uint32(400))
		deepEqual(t, e.InfoState, uint32(2))
		deepEqual(t, e.LastUpdatedTime(), time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC))
		deepEqual(t, e.AccessToken, uint64(0x1122334455667788))
		deepEqual(t, e.SHA1, SHA1{1, 2, 3})
		deepEqual(t, e.ChangeNumber, uint32(12345))
		if f.Version >= 28 {
			if e.BinaryDataHash == nil || *e.BinaryDataHash != (SHA1{0xAA, 0xBB}) {
				t.Errorf("v%d: BinaryDataHash = %v, wanted aabb00...", f.Version, e.BinaryDataHash)
			}
		} else if e.BinaryDataHash != nil {
			t.Errorf("v27: BinaryDataHash = %v, wanted nil", e.BinaryDataHash)
		}
		if e.PayloadHash != nil {
			t.Errorf("PayloadHash computed without ComputeHashes")
		}

		name, _ := e.Data.Lookup("appinfo", "common", "name")
		deepEqual(t, name, StringValue("Portal"))
		size, _ := e.Data.Lookup("appinfo", "depots", "401", "size")
		deepEqual(t, size, UInt64Value(1<<33))

		hl := f.Find(70)
		if hl == nil {
			t.Fatalf("Find(70) = nil")
		}
		name, _ = hl.Data.Lookup("appinfo", "common", "name")
		deepEqual(t, name, StringValue("Half-Life"))
		if f.Find(1) != nil {
			t.Errorf("Find(1) != nil")
		}
	}
}

func TestDecodeAppInfo_SameTreeAcrossVersions(t *testing.T) {
	var trees []*Object
	for _, magic := range []uint32{AppInfoMagic27, AppInfoMagic28, AppInfoMagic29} {
		f := must(DecodeAppInfo(vdftest.AppInfo(magic, 1, testApps()...), Options{}))
		trees = append(trees, f.Entries[0].Data)
	}
	objEq(t, trees[1], trees[0])
	objEq(t, trees[2], trees[0])
}

func TestDecodeAppInfo_Empty(t *testing.T) {
	for _, magic := range []uint32{AppInfoMagic27, AppInfoMagic28, AppInfoMagic29} {
		f, err := DecodeAppInfo(vdftest.AppInfo(magic, 2), testOptions(t))
		if err != nil {
			t.Fatalf("magic %08x: %v", magic, err)
		}
		if len(f.Entries) != 0 || f.Universe != UniverseBeta {
			t.Errorf("magic %08x: %d entries, universe %v, wanted 0, beta", magic, len(f.Entries), f.Universe)
		}
	}
}

func TestDecodeAppInfo_UnsupportedVersion(t *testing.T) {
	data := vdftest.Hex("26 44 56 07 01000000 00000000")
	_, err := DecodeAppInfo(data, testOptions(t))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("err = %v, wanted ErrUnsupportedVersion", err)
	}
	var ve *VersionError
	if !errors.As(err, &ve) || ve.Magic != 0x07564426 {
		t.Errorf("VersionError = %+v, wanted magic 07564426", ve)
	}

	// a packageinfo file is not an appinfo file
	_, err = DecodeAppInfo(vdftest.PackageInfo(vdftest.PackageInfoMagic28, 1), Options{})
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("packageinfo magic: err = %v, wanted ErrUnsupportedVersion", err)
	}
}

func TestDecodeAppInfo_SizeMismatch(t *testing.T) {
	for _, delta := range []int{-1, 1, -1000} {
		apps := testApps()
		apps[1].SizeDelta = delta
		_, err := DecodeAppInfo(vdftest.AppInfo(AppInfoMagic28, 1, apps...), Options{})
		if !errors.Is(err, ErrSizeMismatch) {
			t.Errorf("delta %d: err = %v, wanted ErrSizeMismatch", delta, err)
			continue
		}
		var re *RecordError
		if !errors.As(err, &re) || re.Kind != "app" || re.ID != 70 {
			t.Errorf("delta %d: err = %v, wanted RecordError for app 70", delta, err)
		}
	}
}

func TestDecodeAppInfo_MissingTerminator(t *testing.T) {
	data := vdftest.AppInfo(AppInfoMagic28, 1, testApps()...)
	data = data[:len(data)-4]
	_, err := DecodeAppInfo(data, Options{})
	if !errors.Is(err, ErrTruncatedFile) {
		t.Fatalf("err = %v, wanted ErrTruncatedFile", err)
	}
}

func TestDecodeAppInfo_TruncatedNeverSucceeds(t *testing.T) {
	for _, magic := range []uint32{AppInfoMagic27, AppInfoMagic28, AppInfoMagic29} {
		data := vdftest.AppInfo(magic, 1, testApps()...)
		for n := range len(data) {
			f, err := DecodeAppInfo(data[:n], Options{})
			if err == nil {
				t.Errorf("magic %08x prefix %d/%d: decoded %d apps, wanted an error", magic, n, len(data), len(f.Entries))
			} else if !errors.Is(err, ErrUnexpectedEOF) && !errors.Is(err, ErrTruncatedFile) {
				t.Errorf("magic %08x prefix %d/%d: err = %v, wanted ErrUnexpectedEOF or ErrTruncatedFile", magic, n, len(data), err)
			}
		}
	}
}

func TestDecodeAppInfo_StringTable(t *testing.T) {
	data := vdftest.AppInfo(AppInfoMagic29, 1, testApps()...)

	t.Run("offset past end", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		putU64(bad[8:], uint64(len(bad)+1))
		_, err := DecodeAppInfo(bad, Options{})
		if !errors.Is(err, ErrUnexpectedEOF) {
			t.Errorf("err = %v, wanted ErrUnexpectedEOF", err)
		}
	})

	t.Run("offset inside header", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		putU64(bad[8:], 4)
		_, err := DecodeAppInfo(bad, Options{})
		if !errors.Is(err, ErrUnexpectedEOF) {
			t.Errorf("err = %v, wanted ErrUnexpectedEOF", err)
		}
	})

	t.Run("index out of range", func(t *testing.T) {
		apps := testApps()[:1]
		apps[0].KV = func(b *vdftest.Builder) {
			b.U8(vdftest.TagString).U32(5).CString("x")
		}
		bad := vdftest.AppInfo(AppInfoMagic29, 1, apps...)
		_, err := DecodeAppInfo(bad, Options{})
		if !errors.Is(err, ErrBadStringIndex) {
			t.Errorf("err = %v, wanted ErrBadStringIndex", err)
		}
	})

	t.Run("invalid UTF-8 key", func(t *testing.T) {
		app := vdftest.App{ID: 3, KV: func(b *vdftest.Builder) {
			b.String("bad\xffkey", "v")
		}}
		for _, magic := range []uint32{AppInfoMagic27, AppInfoMagic29} {
			data := vdftest.AppInfo(magic, 1, app)
			if _, err := DecodeAppInfo(data, Options{}); err != nil {
				t.Errorf("magic %08x lenient: %v", magic, err)
			}
			_, err := DecodeAppInfo(data, Options{StrictText: true})
			if !errors.Is(err, ErrInvalidText) {
				t.Errorf("magic %08x strict: err = %v, wanted ErrInvalidText", magic, err)
			}
		}
	})
}

func TestDecodeAppInfo_ComputeHashes(t *testing.T) {
	data := vdftest.AppInfo(AppInfoMagic28, 1, testApps()[1])
	f, err := DecodeAppInfo(data, Options{ComputeHashes: true})
	if err != nil {
		t.Fatal(err)
	}
	payload := vdftest.KV(halfLifeApp)
	want := SHA1(sha1.Sum(payload))
	if e := f.Entries[0]; e.PayloadHash == nil || *e.PayloadHash != want {
		t.Errorf("PayloadHash = %v, wanted %v", e.PayloadHash, want)
	}
}

func TestDecodeAppInfo_RecordErrorMessage(t *testing.T) {
	apps := testApps()
	apps[0].KV = func(b *vdftest.Builder) {
		b.U8(0x0C).CString("weird").U32(0)
	}
	_, err := DecodeAppInfo(vdftest.AppInfo(AppInfoMagic27, 1, apps...), Options{})
	if !errors.Is(err, ErrUnknownFieldType) {
		t.Fatalf("err = %v, wanted ErrUnknownFieldType", err)
	}
	const prefix = "app 400: unknown field type 0x0c for key \"weird\" at offset "
	if msg := err.Error(); len(msg) < len(prefix) || msg[:len(prefix)] != prefix {
		t.Errorf("err = %q, wanted prefix %q", msg, prefix)
	}
}

func putU64(b []byte, v uint64) {
	for i := range 8 {
		b[i] = byte(v >> (8 * i))
	}
}
