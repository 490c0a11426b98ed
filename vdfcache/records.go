package vdfcache

import (
	"github.com/andreyvit/vdf"
)

// fileHeader is stored under headerKey in each content bucket. IDs keeps
// the entry order of the original file, which the ID-keyed records lose.
// Hashes, Strict, AltEnd and Depth record how the entries were decoded.
type fileHeader struct {
	Magic    uint32   `msgpack:"m"`
	Version  int      `msgpack:"v"`
	Universe uint32   `msgpack:"u"`
	IDs      []uint32 `msgpack:"ids"`
	Hashes   bool     `msgpack:"h,omitempty"`
	Strict   bool     `msgpack:"s,omitempty"`
	AltEnd   bool     `msgpack:"ae,omitempty"`
	Depth    int      `msgpack:"dp"`
}

func newFileHeader(magic uint32, ver int, universe vdf.Universe, n int, opt vdf.Options) *fileHeader {
	return &fileHeader{
		Magic:    magic,
		Version:  ver,
		Universe: uint32(universe),
		IDs:      make([]uint32, 0, n),
		Hashes:   opt.ComputeHashes,
		Strict:   opt.StrictText,
		AltEnd:   opt.AltEndTag,
	}
}

func (h *fileHeader) add(id uint32, data *vdf.Object) {
	h.IDs = append(h.IDs, id)
	h.Depth = max(h.Depth, treeDepth(data))
}

// satisfies reports whether decoding the file again with opt would produce
// the cached entries. A strict decode stands in for a lenient one, never
// the reverse, and the cached trees must fit within opt's depth limit.
func (h *fileHeader) satisfies(opt vdf.Options) bool {
	maxDepth := opt.MaxDepth
	if maxDepth <= 0 {
		maxDepth = vdf.DefaultMaxDepth
	}
	return (h.Hashes || !opt.ComputeHashes) &&
		(h.Strict || !opt.StrictText) &&
		h.AltEnd == opt.AltEndTag &&
		h.Depth <= maxDepth
}

// treeDepth counts nesting levels the way the decoder does: a root object
// with only scalars has depth 1.
func treeDepth(o *vdf.Object) int {
	if o == nil {
		return 0
	}
	depth := 1
	for _, v := range o.All() {
		if v.IsObject() {
			depth = max(depth, 1+treeDepth(v.Object()))
		}
	}
	return depth
}

type storedApp struct {
	AppID          uint32      `msgpack:"id"`
	Size           uint32      `msgpack:"sz"`
	InfoState      uint32      `msgpack:"st"`
	LastUpdated    uint32      `msgpack:"t"`
	AccessToken    uint64      `msgpack:"tok"`
	SHA1           []byte      `msgpack:"sha"`
	ChangeNumber   uint32      `msgpack:"cn"`
	BinaryDataHash []byte      `msgpack:"bh,omitempty"`
	PayloadHash    []byte      `msgpack:"ph,omitempty"`
	Data           *vdf.Object `msgpack:"d"`
}

type storedPackage struct {
	PackageID    uint32      `msgpack:"id"`
	SHA1         []byte      `msgpack:"sha"`
	ChangeNumber uint32      `msgpack:"cn"`
	AccessToken  uint64      `msgpack:"tok,omitempty"`
	PayloadHash  []byte      `msgpack:"ph,omitempty"`
	Data         *vdf.Object `msgpack:"d"`
}

func hashBytes(h *vdf.SHA1) []byte {
	if h == nil {
		return nil
	}
	return h[:]
}

func hashPtr(b []byte) *vdf.SHA1 {
	if len(b) != len(vdf.SHA1{}) {
		return nil
	}
	h := vdf.SHA1(b)
	return &h
}

func hashVal(b []byte) vdf.SHA1 {
	var h vdf.SHA1
	copy(h[:], b)
	return h
}

func appRecord(e *vdf.AppInfoEntry) storedApp {
	return storedApp{
		AppID:          e.AppID,
		Size:           e.Size,
		InfoState:      e.InfoState,
		LastUpdated:    e.LastUpdated,
		AccessToken:    e.AccessToken,
		SHA1:           e.SHA1[:],
		ChangeNumber:   e.ChangeNumber,
		BinaryDataHash: hashBytes(e.BinaryDataHash),
		PayloadHash:    hashBytes(e.PayloadHash),
		Data:           e.Data,
	}
}

func (r *storedApp) entry() vdf.AppInfoEntry {
	data := r.Data
	if data == nil {
		data = vdf.NewObject()
	}
	return vdf.AppInfoEntry{
		AppID:          r.AppID,
		Size:           r.Size,
		InfoState:      r.InfoState,
		LastUpdated:    r.LastUpdated,
		AccessToken:    r.AccessToken,
		SHA1:           hashVal(r.SHA1),
		ChangeNumber:   r.ChangeNumber,
		BinaryDataHash: hashPtr(r.BinaryDataHash),
		PayloadHash:    hashPtr(r.PayloadHash),
		Data:           data,
	}
}

func packageRecord(e *vdf.PackageInfoEntry) storedPackage {
	return storedPackage{
		PackageID:    e.PackageID,
		SHA1:         e.SHA1[:],
		ChangeNumber: e.ChangeNumber,
		AccessToken:  e.AccessToken,
		PayloadHash:  hashBytes(e.PayloadHash),
		Data:         e.Data,
	}
}

func (r *storedPackage) entry() vdf.PackageInfoEntry {
	data := r.Data
	if data == nil {
		data = vdf.NewObject()
	}
	return vdf.PackageInfoEntry{
		PackageID:    r.PackageID,
		SHA1:         hashVal(r.SHA1),
		ChangeNumber: r.ChangeNumber,
		AccessToken:  r.AccessToken,
		PayloadHash:  hashPtr(r.PayloadHash),
		Data:         data,
	}
}
