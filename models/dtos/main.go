package dtos

import (
	"spatools/api/models/indexes"
	"time"
)

type GeneralErrorResponseDto struct {
	Code      int            `json:"code"`
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Errors    []GeneralError `json:"errors"`
}

type GeneralError struct {
	Code    string                 `json:"code,omitempty"`
	Field   string                 `json:"field,omitempty"`
	Message string                 `json:"message"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// -- base calling

type DepthsDto struct {
	A int `json:"A" validate:"gte=0"`
	C int `json:"C" validate:"gte=0"`
	G int `json:"G" validate:"gte=0"`
	T int `json:"T" validate:"gte=0"`
}

type BasecallRequestDto struct {
	Depths           DepthsDto `json:"depths"`
	MinTotalDepth    *int      `json:"min_total_depth" validate:"omitempty,gte=0"`
	AmbiguityQuality *float64  `json:"ambiguity_quality" validate:"omitempty,gte=0,lte=1"`
}

type BasecallBatchRequestDto struct {
	Depths           []DepthsDto `json:"depths" validate:"required,min=1,dive"`
	MinTotalDepth    *int        `json:"min_total_depth" validate:"omitempty,gte=0"`
	AmbiguityQuality *float64    `json:"ambiguity_quality" validate:"omitempty,gte=0,lte=1"`
}

type BasecallResponseDto struct {
	Symbol  string  `json:"symbol"`
	Quality float64 `json:"quality"`
}

type BasecallBatchResponseDto struct {
	Status  int                   `json:"status"`
	Message string                `json:"message"`
	Count   int                   `json:"count"`
	Results []BasecallResponseDto `json:"results"`
}

// -- genotypes

type GenotypesResponseDTO struct {
	Status  int                `json:"status"`
	Message string             `json:"message"`
	Count   int                `json:"count"`
	Results []indexes.Genotype `json:"results"`
}

type GenotypeSelectionResponseDTO struct {
	Status  int      `json:"status"`
	Message string   `json:"message"`
	Samples []string `json:"samples"`
	Loci    []string `json:"loci"`
}

// -- alleles

type PeakDto struct {
	SampleId int64   `json:"sampleId" validate:"required"`
	AssayId  int64   `json:"assayId"`
	MarkerId int64   `json:"markerId" validate:"required"`
	AlleleId int64   `json:"alleleId"`
	Value    int     `json:"value"`
	Size     float64 `json:"size" validate:"gte=0"`
	Height   float64 `json:"height" validate:"gt=0"`
	Type     string  `json:"type" default:"bin"`
}

type FilterParamsDto struct {
	AbsThreshold     int      `json:"abs_threshold" validate:"gte=0"`
	RelThreshold     float64  `json:"rel_threshold" validate:"gte=0"`
	RelCutoff        float64  `json:"rel_cutoff" validate:"gte=0"`
	StutterRatio     float64  `json:"stutter_ratio" validate:"gte=0"`
	StutterRange     float64  `json:"stutter_range" validate:"gte=0"`
	StutterBaseRatio float64  `json:"stutter_baseratio" validate:"gte=0"`
	StutterBaseRange float64  `json:"stutter_baserange" validate:"gte=0"`
	PeakTypes        []string `json:"peaktype" default:"[\"bin\"]" validate:"min=1"`
}

type AlleleFilterRequestDto struct {
	Peaks  []PeakDto       `json:"peaks" validate:"dive"`
	Params FilterParamsDto `json:"params"`
}

type AlleleDto struct {
	PeakDto
	Rank  int      `json:"rank"`
	Ratio *float64 `json:"ratio"`
}

type AllelesResponseDTO struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Count   int         `json:"count"`
	Report  interface{} `json:"report,omitempty"`
	Results []AlleleDto `json:"results"`
}
