package models

// fixed VCF columns preceding the per-sample columns
var VcfHeaders = []string{"chrom", "pos", "id", "ref", "alt", "qual", "filter", "info", "format"}

// mandatory columns of a genotype depth table
var GenotypeCsvHeaders = []string{"SAMPLE", "ASSAY", "REFSEQ", "POS", "A", "C", "G", "T"}

// mandatory columns of a microsatellite peak table
var PeakCsvHeaders = []string{"SAMPLE", "ASSAY", "MARKER", "ALLELE", "VALUE", "SIZE", "HEIGHT", "TYPE"}
