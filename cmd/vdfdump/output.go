package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/andreyvit/vdf"
)

// CBOR output goes through plain Go maps, so it is deterministic (sorted
// keys) but does not keep the file's key order; JSON does.
var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("vdfdump: CBOR encoder initialization failed: " + err.Error())
	}
}

type output struct {
	w   io.Writer
	cfg Config
}

func newOutput(w io.Writer, cfg Config) *output {
	return &output{w: w, cfg: cfg}
}

func (o *output) jsonTree(obj *vdf.Object) json.RawMessage {
	return vdf.AppendJSON(nil, vdf.ObjectValue(obj), vdf.JSONOptions{Arrays: o.cfg.Arrays})
}

func (o *output) writeJSON(v any) error {
	var raw []byte
	var err error
	if o.cfg.Compact {
		raw, err = json.Marshal(v)
	} else {
		raw, err = json.MarshalIndent(v, "", "  ")
	}
	if err != nil {
		return err
	}
	_, err = o.w.Write(append(raw, '\n'))
	return err
}

func (o *output) writeCBOR(v any) error {
	raw, err := cborEncMode.Marshal(v)
	if err != nil {
		return err
	}
	_, err = o.w.Write(raw)
	return err
}

type appJSON struct {
	vdf.AppInfoEntry
	Data json.RawMessage `json:"data"`
}

type packageJSON struct {
	vdf.PackageInfoEntry
	Data json.RawMessage `json:"data"`
}

func (o *output) appInfo(f *vdf.AppInfoFile) error {
	switch o.cfg.Format {
	case "json":
		apps := make([]appJSON, len(f.Entries))
		for i := range f.Entries {
			apps[i] = appJSON{f.Entries[i], o.jsonTree(f.Entries[i].Data)}
		}
		return o.writeJSON(struct {
			Magic    uint32    `json:"magic"`
			Version  int       `json:"version"`
			Universe string    `json:"universe"`
			Apps     []appJSON `json:"apps"`
		}{f.Magic, f.Version, f.Universe.String(), apps})
	case "cbor":
		apps := make([]any, len(f.Entries))
		for i := range f.Entries {
			apps[i] = o.appMap(&f.Entries[i])
		}
		return o.writeCBOR(map[string]any{
			"magic":    f.Magic,
			"version":  f.Version,
			"universe": f.Universe.String(),
			"apps":     apps,
		})
	default:
		w := bufio.NewWriter(o.w)
		fmt.Fprintf(w, "appinfo v%d, universe %v, %d apps\n", f.Version, f.Universe, len(f.Entries))
		for i := range f.Entries {
			o.appSummary(w, &f.Entries[i])
		}
		return w.Flush()
	}
}

func (o *output) app(e *vdf.AppInfoEntry) error {
	switch o.cfg.Format {
	case "json":
		return o.writeJSON(appJSON{*e, o.jsonTree(e.Data)})
	case "cbor":
		return o.writeCBOR(o.appMap(e))
	default:
		w := bufio.NewWriter(o.w)
		o.appSummary(w, e)
		w.WriteString(vdf.Dump(e.Data))
		return w.Flush()
	}
}

func (o *output) appSummary(w *bufio.Writer, e *vdf.AppInfoEntry) {
	fmt.Fprintf(w, "app %d\tchange %d\tupdated %s\tkeys %d", e.AppID, e.ChangeNumber, e.LastUpdatedTime().Format(time.DateTime), e.Data.Len())
	if name, ok := e.Data.Lookup("appinfo", "common", "name"); ok {
		fmt.Fprintf(w, "\t%q", name.String())
	}
	if o.cfg.Hashes {
		fmt.Fprintf(w, "\tsha1 %v", e.SHA1)
		if e.BinaryDataHash != nil {
			fmt.Fprintf(w, "\tbinary %v", e.BinaryDataHash)
		}
		if e.PayloadHash != nil {
			fmt.Fprintf(w, "\tpayload %v", e.PayloadHash)
			if e.BinaryDataHash != nil && *e.PayloadHash != *e.BinaryDataHash {
				w.WriteString(" (differs)")
			}
		}
	}
	w.WriteByte('\n')
}

func (o *output) appMap(e *vdf.AppInfoEntry) map[string]any {
	m := map[string]any{
		"app_id":        e.AppID,
		"size":          e.Size,
		"info_state":    e.InfoState,
		"last_updated":  e.LastUpdated,
		"access_token":  e.AccessToken,
		"sha1":          e.SHA1.String(),
		"change_number": e.ChangeNumber,
		"data":          vdf.ObjectValue(e.Data).Interface(o.cfg.Arrays),
	}
	if e.BinaryDataHash != nil {
		m["binary_data_hash"] = e.BinaryDataHash.String()
	}
	if e.PayloadHash != nil {
		m["payload_hash"] = e.PayloadHash.String()
	}
	return m
}

func (o *output) packageInfo(f *vdf.PackageInfoFile) error {
	switch o.cfg.Format {
	case "json":
		pkgs := make([]packageJSON, len(f.Entries))
		for i := range f.Entries {
			pkgs[i] = packageJSON{f.Entries[i], o.jsonTree(f.Entries[i].Data)}
		}
		return o.writeJSON(struct {
			Magic    uint32        `json:"magic"`
			Version  int           `json:"version"`
			Universe string        `json:"universe"`
			Packages []packageJSON `json:"packages"`
		}{f.Magic, f.Version, f.Universe.String(), pkgs})
	case "cbor":
		pkgs := make([]any, len(f.Entries))
		for i := range f.Entries {
			pkgs[i] = o.packageMap(&f.Entries[i])
		}
		return o.writeCBOR(map[string]any{
			"magic":    f.Magic,
			"version":  f.Version,
			"universe": f.Universe.String(),
			"packages": pkgs,
		})
	default:
		w := bufio.NewWriter(o.w)
		fmt.Fprintf(w, "packageinfo v%d, universe %v, %d packages\n", f.Version, f.Universe, len(f.Entries))
		for i := range f.Entries {
			o.packageSummary(w, &f.Entries[i])
		}
		return w.Flush()
	}
}

func (o *output) pkg(e *vdf.PackageInfoEntry) error {
	switch o.cfg.Format {
	case "json":
		return o.writeJSON(packageJSON{*e, o.jsonTree(e.Data)})
	case "cbor":
		return o.writeCBOR(o.packageMap(e))
	default:
		w := bufio.NewWriter(o.w)
		o.packageSummary(w, e)
		w.WriteString(vdf.Dump(e.Data))
		return w.Flush()
	}
}

func (o *output) packageSummary(w *bufio.Writer, e *vdf.PackageInfoEntry) {
	fmt.Fprintf(w, "package %d\tchange %d\tkeys %d", e.PackageID, e.ChangeNumber, e.Data.Len())
	if e.AccessToken != 0 {
		fmt.Fprintf(w, "\ttoken %d", e.AccessToken)
	}
	if o.cfg.Hashes {
		fmt.Fprintf(w, "\tsha1 %v", e.SHA1)
		if e.PayloadHash != nil {
			fmt.Fprintf(w, "\tpayload %v", e.PayloadHash)
		}
	}
	w.WriteByte('\n')
}

func (o *output) packageMap(e *vdf.PackageInfoEntry) map[string]any {
	m := map[string]any{
		"package_id":    e.PackageID,
		"sha1":          e.SHA1.String(),
		"change_number": e.ChangeNumber,
		"access_token":  e.AccessToken,
		"data":          vdf.ObjectValue(e.Data).Interface(o.cfg.Arrays),
	}
	if e.PayloadHash != nil {
		m["payload_hash"] = e.PayloadHash.String()
	}
	return m
}

func (o *output) keyValues(root *vdf.Object) error {
	switch o.cfg.Format {
	case "json":
		return o.writeJSON(o.jsonTree(root))
	case "cbor":
		return o.writeCBOR(vdf.ObjectValue(root).Interface(o.cfg.Arrays))
	default:
		_, err := io.WriteString(o.w, vdf.Dump(root))
		return err
	}
}
