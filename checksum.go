package vdf

import (
	"crypto/sha1"
	"encoding/hex"
)

// SHA1 is a raw 20-byte checksum as stored in AppInfo and PackageInfo
// records.
type SHA1 [20]byte

func (h SHA1) String() string {
	return hex.EncodeToString(h[:])
}

func (h SHA1) IsZero() bool {
	return h == SHA1{}
}

func (h SHA1) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *SHA1) UnmarshalText(text []byte) error {
	var v SHA1
	if len(text) != hex.EncodedLen(len(v)) {
		return hex.ErrLength
	}
	if _, err := hex.Decode(v[:], text); err != nil {
		return err
	}
	*h = v
	return nil
}

func sumSHA1(data []byte) *SHA1 {
	h := SHA1(sha1.Sum(data))
	return &h
}
