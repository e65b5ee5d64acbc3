package assayType

import (
	"spatools/api/models/constants"
	"strings"
)

const (
	Unknown constants.AssayType = ""

	// single-nucleotide assays, called from read depths
	Snp constants.AssayType = "snp"
	// fragment-length assays, called from capillary peaks
	Microsatellite constants.AssayType = "microsatellite"
)

func CastToAssayType(text string) constants.AssayType {
	switch strings.ToLower(text) {
	case "snp":
		return Snp
	case "microsatellite", "str", "msat":
		return Microsatellite
	default:
		return Unknown
	}
}
