package workflows

import (
	c "spatools/api/models/constants"
	pt "spatools/api/models/constants/peak-type"
)

type WorkflowSchema map[string]interface{}

var WORKFLOW_SCHEMA WorkflowSchema = map[string]interface{}{
	"ingestion": map[string]interface{}{
		"genotype_depths": map[string]interface{}{
			"name":        "Genotype Depth Calling",
			"description": "Calls a base for every sample and locus of a depth table or an AD-annotated VCF and indexes the calls.",
			"data_type":   "genotype",
			"tags":        []string{"snp", "genotype"},
			"endpoint":    "/genotypes/ingestion/run",
			"type":        "ingestion",
			"inputs": []map[string]interface{}{
				{
					"id":       "fileNames",
					"type":     "file[]",
					"required": true,
					"pattern":  "^.*\\.(csv|tsv|txt|vcf)(\\.gz)?$",
				},
				{
					"id":       "batch",
					"type":     "string",
					"required": false,
				},
				{
					"id":       "replace",
					"type":     "boolean",
					"required": false,
				},
			},
		},
		"microsatellite_peaks": map[string]interface{}{
			"name":        "Microsatellite Peak Indexing",
			"description": "Indexes the capillary peaks of a peak table for later allele filtering.",
			"data_type":   "peak",
			"tags":        []string{"microsatellite", "peak"},
			"endpoint":    "/peaks/ingestion/run",
			"type":        "ingestion",
			"inputs": []map[string]interface{}{
				{
					"id":       "fileNames",
					"type":     "file[]",
					"required": true,
					"pattern":  "^.*\\.(csv|tsv|txt)(\\.gz)?$",
				},
				{
					"id":       "batch",
					"type":     "string",
					"required": false,
				},
				{
					"id":       "replace",
					"type":     "boolean",
					"required": false,
				},
			},
		},
	},
	"analysis": map[string]interface{}{
		"allele_filter": map[string]interface{}{
			"name":        "Allele Filtering",
			"description": "Ranks peaks per sample and marker and suppresses stutter peaks.",
			"data_type":   "peak",
			"endpoint":    "/alleles/get/by/sampleId",
			"type":        "analysis",
			"inputs": []map[string]interface{}{
				{"id": "ids", "type": "integer[]", "required": true},
				{"id": "markers", "type": "integer[]", "required": false},
				{"id": "abs_threshold", "type": "integer", "required": false},
				{"id": "rel_threshold", "type": "number", "required": false},
				{"id": "rel_cutoff", "type": "number", "required": false},
				{"id": "stutter_ratio", "type": "number", "required": false},
				{"id": "stutter_range", "type": "number", "required": false},
				{"id": "stutter_baseratio", "type": "number", "required": false},
				{"id": "stutter_baserange", "type": "number", "required": false},
				{
					"id":       "peaktype",
					"type":     "enum[]",
					"required": false,
					"values":   []c.PeakType{pt.Bin, pt.Called, pt.Scanned, pt.Broad, pt.Stutter, pt.Overlap, pt.Artifact, pt.Noise, pt.Unassigned},
				},
			},
		},
	},
	"export": map[string]interface{}{
		"alleles_xlsx": map[string]interface{}{
			"name":     "Allele Workbook",
			"endpoint": "/alleles/export",
			"type":     "export",
		},
	},
}
