package basecall

import (
	"fmt"
	"math"

	"spatools/api/models"
	"spatools/api/models/constants"
	n "spatools/api/models/constants/nucleotide"

	"github.com/exascience/pargo/parallel"
)

// below this many vectors a batch is called sequentially
const parallelGrainSize = 1024

type (
	DepthVector struct {
		A int `json:"A" mapstructure:"A"`
		C int `json:"C" mapstructure:"C"`
		G int `json:"G" mapstructure:"G"`
		T int `json:"T" mapstructure:"T"`
	}

	BaseCall struct {
		Symbol  constants.Nucleotide `json:"symbol"`
		Quality float64              `json:"quality"`
	}

	Options struct {
		MinTotalDepth    int
		AmbiguityQuality float64
	}
)

func DefaultOptions() Options {
	return Options{
		MinTotalDepth:    25,
		AmbiguityQuality: 0.05,
	}
}

func OptionsFromConfig(cfg *models.Config) Options {
	return Options{
		MinTotalDepth:    cfg.Calling.MinTotalDepth,
		AmbiguityQuality: cfg.Calling.AmbiguityQuality,
	}
}

func (d DepthVector) Total() int {
	return d.A + d.C + d.G + d.T
}

func (d DepthVector) Of(nuc constants.Nucleotide) int {
	switch nuc {
	case n.A:
		return d.A
	case n.C:
		return d.C
	case n.G:
		return d.G
	case n.T:
		return d.T
	default:
		return 0
	}
}

func (o Options) validate() error {
	if o.MinTotalDepth < 0 {
		return fmt.Errorf("min total depth %d is negative: %w", o.MinTotalDepth, models.ErrInvalidInput)
	}
	if math.IsNaN(o.AmbiguityQuality) || o.AmbiguityQuality < 0 || o.AmbiguityQuality > 1 {
		return fmt.Errorf("ambiguity quality %v outside [0,1]: %w", o.AmbiguityQuality, models.ErrInvalidInput)
	}
	return nil
}

func (d DepthVector) validate() error {
	for _, nuc := range n.CallOrder {
		if v := d.Of(nuc); v < 0 {
			return fmt.Errorf("negative depth %d for %s: %w", v, nuc, models.ErrInvalidInput)
		}
	}
	return nil
}

// Call converts a depth vector into a base call. The dominant nucleotide is
// the one with the highest depth, ties resolved in A, C, G, T order.
func Call(d DepthVector, opts Options) (BaseCall, error) {
	if err := opts.validate(); err != nil {
		return BaseCall{}, err
	}
	if err := d.validate(); err != nil {
		return BaseCall{}, err
	}
	return call(d, opts), nil
}

func call(d DepthVector, opts Options) BaseCall {
	top := n.CallOrder[0]
	for _, nuc := range n.CallOrder[1:] {
		// strict comparison keeps the earlier symbol on ties
		if d.Of(nuc) > d.Of(top) {
			top = nuc
		}
	}

	total := d.Total()
	quality := 0.0
	if total > 0 {
		quality = float64(d.Of(top)) / float64(total)
	}

	switch {
	case total < opts.MinTotalDepth:
		return BaseCall{Symbol: n.NoCall, Quality: quality}
	case quality > opts.AmbiguityQuality:
		return BaseCall{Symbol: top, Quality: quality}
	default:
		return BaseCall{Symbol: n.N, Quality: quality}
	}
}

// CallAll calls every vector of a batch, preserving input order.
// Any invalid vector fails the whole batch.
func CallAll(ds []DepthVector, opts Options) ([]BaseCall, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	for i, d := range ds {
		if err := d.validate(); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
	}

	calls := make([]BaseCall, len(ds))
	callRange(ds, calls, opts)
	return calls, nil
}

func callRange(ds []DepthVector, calls []BaseCall, opts Options) {
	if len(ds) < parallelGrainSize {
		for i, d := range ds {
			calls[i] = call(d, opts)
		}
		return
	}
	half := len(ds) >> 1
	parallel.Do(
		func() { callRange(ds[:half], calls[:half], opts) },
		func() { callRange(ds[half:], calls[half:], opts) },
	)
}
