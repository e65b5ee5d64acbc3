package peakType

import (
	"fmt"
	"spatools/api/models/constants"
	"strings"
)

const (
	Scanned    constants.PeakType = "scanned"
	Broad      constants.PeakType = "broad"
	Noise      constants.PeakType = "noise"
	Unassigned constants.PeakType = "unassigned"
	Artifact   constants.PeakType = "artifact"
	Overlap    constants.PeakType = "overlap"
	Stutter    constants.PeakType = "stutter"
	Called     constants.PeakType = "called"
	Bin        constants.PeakType = "bin"
)

var known = []constants.PeakType{Scanned, Broad, Noise, Unassigned, Artifact, Overlap, Stutter, Called, Bin}

// Default is the accepted set when a caller does not name one.
var Default = []constants.PeakType{Bin}

func CastToPeakType(text string) (constants.PeakType, error) {
	t := constants.PeakType(strings.ToLower(strings.TrimSpace(text)))
	// tolerate the "peak-" prefix used by exported peak tables
	t = constants.PeakType(strings.TrimPrefix(string(t), "peak-"))
	if !IsKnown(t) {
		return "", fmt.Errorf("unknown peak type %q", text)
	}
	return t, nil
}

func IsKnown(t constants.PeakType) bool {
	for _, k := range known {
		if k == t {
			return true
		}
	}
	return false
}
