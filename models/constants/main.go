package constants

/*
	Defines a set of base level
	constants and enums to be used
	throughout spatools and its
	associated services.
*/
type Nucleotide string
type PeakType string
type AssayType string
type SortDirection string
