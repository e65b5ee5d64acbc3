package indexes

import (
	c "spatools/api/models/constants"
	"time"
)

const (
	GenotypesIndex = "genotypes"
	PeaksIndex     = "peaks"
)

type Genotype struct {
	SampleCode string   `json:"sampleCode" mapstructure:"sampleCode"`
	Batch      string   `json:"batch" mapstructure:"batch"`
	LocusCode  string   `json:"locusCode" mapstructure:"locusCode"`
	RefSeq     string   `json:"refseq" mapstructure:"refseq"`
	Position   int      `json:"position" mapstructure:"position"`
	Ref        string   `json:"ref,omitempty" mapstructure:"ref"`
	Alt        []string `json:"alt,omitempty" mapstructure:"alt"`

	Depths Depths `json:"depths" mapstructure:"depths"`
	// bases present in the source record; empty means all four
	Observed []string `json:"observed,omitempty" mapstructure:"observed"`

	Call    c.Nucleotide `json:"call" mapstructure:"call"`
	Quality float64      `json:"quality" mapstructure:"quality"`

	Filename    string    `json:"filename" mapstructure:"filename"`
	CreatedTime time.Time `json:"createdTime" mapstructure:"createdTime"`
}

type Depths struct {
	A int `json:"A" mapstructure:"A"`
	C int `json:"C" mapstructure:"C"`
	G int `json:"G" mapstructure:"G"`
	T int `json:"T" mapstructure:"T"`
}

type Peak struct {
	SampleId int64      `json:"sampleId" mapstructure:"sampleId"`
	AssayId  int64      `json:"assayId" mapstructure:"assayId"`
	MarkerId int64      `json:"markerId" mapstructure:"markerId"`
	AlleleId int64      `json:"alleleId" mapstructure:"alleleId"`
	Value    int        `json:"value" mapstructure:"value"`
	Size     float64    `json:"size" mapstructure:"size"`
	Height   float64    `json:"height" mapstructure:"height"`
	Type     c.PeakType `json:"type" mapstructure:"type"`

	Batch       string    `json:"batch" mapstructure:"batch"`
	Filename    string    `json:"filename" mapstructure:"filename"`
	CreatedTime time.Time `json:"createdTime" mapstructure:"createdTime"`
}

var MAPPING_KEYWORD = map[string]interface{}{"type": "keyword"}
var MAPPING_LONG = map[string]interface{}{"type": "long"}
var MAPPING_FLOAT64 = map[string]interface{}{"type": "double"}
var MAPPING_DATE = map[string]interface{}{"type": "date"}

var GENOTYPE_INDEX_MAPPING = map[string]interface{}{
	"properties": map[string]interface{}{
		"sampleCode": MAPPING_KEYWORD,
		"batch":      MAPPING_KEYWORD,
		"locusCode":  MAPPING_KEYWORD,
		"refseq":     MAPPING_KEYWORD,
		"position":   MAPPING_LONG,
		"ref":        MAPPING_KEYWORD,
		"alt":        MAPPING_KEYWORD,
		"depths": map[string]interface{}{
			"properties": map[string]interface{}{
				"A": MAPPING_LONG,
				"C": MAPPING_LONG,
				"G": MAPPING_LONG,
				"T": MAPPING_LONG,
			},
		},
		"observed":    MAPPING_KEYWORD,
		"call":        MAPPING_KEYWORD,
		"quality":     MAPPING_FLOAT64,
		"filename":    MAPPING_KEYWORD,
		"createdTime": MAPPING_DATE,
	},
}

var PEAK_INDEX_MAPPING = map[string]interface{}{
	"properties": map[string]interface{}{
		"sampleId":    MAPPING_LONG,
		"assayId":     MAPPING_LONG,
		"markerId":    MAPPING_LONG,
		"alleleId":    MAPPING_LONG,
		"value":       MAPPING_LONG,
		"size":        MAPPING_FLOAT64,
		"height":      MAPPING_FLOAT64,
		"type":        MAPPING_KEYWORD,
		"batch":       MAPPING_KEYWORD,
		"filename":    MAPPING_KEYWORD,
		"createdTime": MAPPING_DATE,
	},
}
