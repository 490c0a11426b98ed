package vdf

import "strconv"

// Universe is the Steam realm a metadata file was downloaded from.
type Universe uint32

const (
	UniverseInvalid Universe = iota
	UniversePublic
	UniverseBeta
	UniverseInternal
	UniverseDev
)

func (u Universe) String() string {
	switch u {
	case UniverseInvalid:
		return "invalid"
	case UniversePublic:
		return "public"
	case UniverseBeta:
		return "beta"
	case UniverseInternal:
		return "internal"
	case UniverseDev:
		return "dev"
	default:
		return "universe(" + strconv.FormatUint(uint64(u), 10) + ")"
	}
}
