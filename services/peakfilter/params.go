package peakfilter

import (
	"fmt"
	"io"
	"math"

	"spatools/api/models"
	"spatools/api/models/constants"
	pt "spatools/api/models/constants/peak-type"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// Params is the threshold bundle of a single filtering run. A zero
// numeric field disables the corresponding rule.
type Params struct {
	AbsThreshold     int                  `json:"abs_threshold" yaml:"abs_threshold" mapstructure:"abs_threshold" validate:"gte=0"`
	RelThreshold     float64              `json:"rel_threshold" yaml:"rel_threshold" mapstructure:"rel_threshold" validate:"gte=0"`
	RelCutoff        float64              `json:"rel_cutoff" yaml:"rel_cutoff" mapstructure:"rel_cutoff" validate:"gte=0"`
	StutterRatio     float64              `json:"stutter_ratio" yaml:"stutter_ratio" mapstructure:"stutter_ratio" validate:"gte=0"`
	StutterRange     float64              `json:"stutter_range" yaml:"stutter_range" mapstructure:"stutter_range" validate:"gte=0"`
	StutterBaseRatio float64              `json:"stutter_baseratio" yaml:"stutter_baseratio" mapstructure:"stutter_baseratio" validate:"gte=0"`
	StutterBaseRange float64              `json:"stutter_baserange" yaml:"stutter_baserange" mapstructure:"stutter_baserange" validate:"gte=0"`
	PeakTypes        []constants.PeakType `json:"peaktype" yaml:"peaktype" mapstructure:"peaktype" validate:"required,min=1"`
}

// DefaultParams accepts binned peaks and disables every threshold.
func DefaultParams() Params {
	return Params{PeakTypes: append([]constants.PeakType(nil), pt.Default...)}
}

// optional threshold accessors; the bool is false when the rule is off

func (p Params) absThreshold() (float64, bool) {
	return float64(p.AbsThreshold), p.AbsThreshold > 0
}

func (p Params) relThreshold() (float64, bool) {
	return p.RelThreshold, p.RelThreshold > 0
}

func (p Params) relCutoff() (float64, bool) {
	return p.RelCutoff, p.RelCutoff > 0
}

func (p Params) stutter() (sizeRange, ratio float64, ok bool) {
	return p.StutterRange, p.StutterRatio, p.StutterRange > 0 && p.StutterRatio > 0
}

func (p Params) baseStutter() (sizeRange, ratio float64, ok bool) {
	return p.StutterBaseRange, p.StutterBaseRatio, p.StutterBaseRange > 0 && p.StutterBaseRatio > 0
}

// Ranked reports whether any rule needs per-group ranking.
func (p Params) Ranked() bool {
	_, rel := p.relThreshold()
	_, cut := p.relCutoff()
	return rel || cut || p.StutterRatio > 0
}

func (p Params) accepts(t constants.PeakType) bool {
	for _, a := range p.PeakTypes {
		if a == t {
			return true
		}
	}
	return false
}

func (p Params) Validate() error {
	if p.AbsThreshold < 0 {
		return fmt.Errorf("abs_threshold %d is negative: %w", p.AbsThreshold, models.ErrInvalidInput)
	}
	for name, v := range map[string]float64{
		"rel_threshold":     p.RelThreshold,
		"rel_cutoff":        p.RelCutoff,
		"stutter_ratio":     p.StutterRatio,
		"stutter_range":     p.StutterRange,
		"stutter_baseratio": p.StutterBaseRatio,
		"stutter_baserange": p.StutterBaseRange,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%s %v must be a non-negative number: %w", name, v, models.ErrInvalidInput)
		}
	}
	if len(p.PeakTypes) == 0 {
		return fmt.Errorf("no accepted peak type: %w", models.ErrInvalidInput)
	}
	for _, t := range p.PeakTypes {
		if !pt.IsKnown(t) {
			return fmt.Errorf("unknown peak type %q: %w", t, models.ErrInvalidInput)
		}
	}
	return nil
}

// LoadParams reads a single parameter set from YAML. Missing keys keep
// their DefaultParams value.
func LoadParams(r io.Reader) (Params, error) {
	params := DefaultParams()
	if err := yaml.NewDecoder(r).Decode(&params); err != nil {
		return Params{}, fmt.Errorf("decoding filter params: %w", err)
	}
	if err := params.Validate(); err != nil {
		return Params{}, err
	}
	return params, nil
}

// LoadPresets reads a YAML document of named parameter sets.
func LoadPresets(r io.Reader) (map[string]Params, error) {
	raw := map[string]map[string]interface{}{}
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding filter presets: %w", err)
	}

	presets := make(map[string]Params, len(raw))
	for name, m := range raw {
		params, err := DecodeParams(m)
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", name, err)
		}
		presets[name] = params
	}
	return presets, nil
}

// DecodeParams builds params from a loosely typed map such as a query
// string or a YAML node; numeric strings and a single peak type are
// accepted.
func DecodeParams(m map[string]interface{}) (Params, error) {
	params := DefaultParams()

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true,
		Result:           &params,
	})
	if err != nil {
		return Params{}, err
	}
	if err := decoder.Decode(m); err != nil {
		return Params{}, fmt.Errorf("decoding filter params: %v: %w", err, models.ErrInvalidInput)
	}
	if err := params.Validate(); err != nil {
		return Params{}, err
	}
	return params, nil
}
