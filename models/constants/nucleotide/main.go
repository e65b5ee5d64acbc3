package nucleotide

import (
	"spatools/api/models/constants"
	"strings"
)

const (
	A constants.Nucleotide = "A"
	C constants.Nucleotide = "C"
	G constants.Nucleotide = "G"
	T constants.Nucleotide = "T"

	// ambiguous: no nucleotide clearly dominant
	N constants.Nucleotide = "N"
	// insufficient read support
	NoCall constants.Nucleotide = "-"
)

// CallOrder is the fixed tie-break order used when two nucleotides
// carry the same depth.
var CallOrder = [4]constants.Nucleotide{A, C, G, T}

func CastToNucleotide(text string) constants.Nucleotide {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "A":
		return A
	case "C":
		return C
	case "G":
		return G
	case "T":
		return T
	case "N":
		return N
	default:
		return NoCall
	}
}

// IsBase reports whether the text is one of the four concrete bases.
func IsBase(text string) bool {
	switch strings.ToUpper(text) {
	case "A", "C", "G", "T":
		return true
	}
	return false
}

// IsConfident reports whether a call names a concrete base.
func IsConfident(n constants.Nucleotide) bool {
	return n == A || n == C || n == G || n == T
}
