package peakfilter

import (
	"fmt"
	"math"
	"sort"

	"spatools/api/models"
	"spatools/api/models/constants"

	"github.com/samber/lo"
)

type (
	PeakRecord struct {
		SampleId int64              `json:"sampleId" mapstructure:"sampleId"`
		AssayId  int64              `json:"assayId" mapstructure:"assayId"`
		MarkerId int64              `json:"markerId" mapstructure:"markerId"`
		AlleleId int64              `json:"alleleId" mapstructure:"alleleId"`
		Value    int                `json:"value" mapstructure:"value"`
		Size     float64            `json:"size" mapstructure:"size"`
		Height   float64            `json:"height" mapstructure:"height"`
		Type     constants.PeakType `json:"type" mapstructure:"type"`
	}

	// FilteredAllele is a peak that survived filtering. Ratio is nil
	// when no ranking was requested.
	FilteredAllele struct {
		PeakRecord
		Rank  int      `json:"rank"`
		Ratio *float64 `json:"ratio"`
	}

	GroupKey struct {
		SampleId int64
		MarkerId int64
	}

	// Report counts what happened to each input peak.
	Report struct {
		Input               int `json:"input"`
		TypeDropped         int `json:"typeDropped"`
		AbsThresholdDropped int `json:"absThresholdDropped"`
		RelThresholdDropped int `json:"relThresholdDropped"`
		RelCutoffDropped    int `json:"relCutoffDropped"`
		StutterDropped      int `json:"stutterDropped"`
		Skipped             int `json:"skipped"`
		Emitted             int `json:"emitted"`
	}
)

func (p PeakRecord) Key() GroupKey {
	return GroupKey{SampleId: p.SampleId, MarkerId: p.MarkerId}
}

// RatioOrSentinel returns the ratio, or -1 when it was not computed.
func (a FilteredAllele) RatioOrSentinel() float64 {
	if a.Ratio == nil {
		return -1
	}
	return *a.Ratio
}

func (r *Report) add(o Report) {
	r.Input += o.Input
	r.TypeDropped += o.TypeDropped
	r.AbsThresholdDropped += o.AbsThresholdDropped
	r.RelThresholdDropped += o.RelThresholdDropped
	r.RelCutoffDropped += o.RelCutoffDropped
	r.StutterDropped += o.StutterDropped
	r.Skipped += o.Skipped
	r.Emitted += o.Emitted
}

// Filter drops peaks of unaccepted types and peaks at or below the
// absolute threshold, orders the rest by (marker, sample, height desc)
// and ranks them.
func Filter(peaks []PeakRecord, params Params) ([]FilteredAllele, error) {
	alleles, _, err := FilterWithReport(peaks, params)
	return alleles, err
}

func FilterWithReport(peaks []PeakRecord, params Params) ([]FilteredAllele, Report, error) {
	sorted, report, err := prepare(peaks, params)
	if err != nil {
		return nil, Report{}, err
	}

	alleles, rankReport, err := rank(sorted, params)
	if err != nil {
		return nil, Report{}, err
	}
	report.add(rankReport)
	return alleles, report, nil
}

func prepare(peaks []PeakRecord, params Params) ([]PeakRecord, Report, error) {
	if err := params.Validate(); err != nil {
		return nil, Report{}, err
	}

	report := Report{Input: len(peaks)}
	abs, absOn := params.absThreshold()

	kept := make([]PeakRecord, 0, len(peaks))
	for _, p := range peaks {
		if !params.accepts(p.Type) {
			report.TypeDropped++
			continue
		}
		if absOn && p.Height <= abs {
			report.AbsThresholdDropped++
			continue
		}
		kept = append(kept, p)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return less(kept[i], kept[j])
	})
	return kept, report, nil
}

func less(a, b PeakRecord) bool {
	if a.MarkerId != b.MarkerId {
		return a.MarkerId < b.MarkerId
	}
	if a.SampleId != b.SampleId {
		return a.SampleId < b.SampleId
	}
	return a.Height > b.Height
}

// Rank runs the ranking pass over peaks that are already ordered by
// (marker asc, sample asc, height desc). Unordered input is rejected.
func Rank(sorted []PeakRecord, params Params) ([]FilteredAllele, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	alleles, _, err := rank(sorted, params)
	return alleles, err
}

func rank(sorted []PeakRecord, params Params) ([]FilteredAllele, Report, error) {
	if err := validatePeaks(sorted); err != nil {
		return nil, Report{}, err
	}

	var report Report
	alleles := make([]FilteredAllele, 0, len(sorted))

	if !params.Ranked() {
		for _, p := range sorted {
			alleles = append(alleles, FilteredAllele{PeakRecord: p, Rank: 1})
		}
		report.Emitted = len(alleles)
		return alleles, report, nil
	}

	var g groupState
	for i, p := range sorted {
		if i == 0 || p.Key() != g.key {
			alleles = append(alleles, g.start(p))
			report.Emitted++
			continue
		}

		allele, v := g.next(p, params)
		switch v {
		case emitted:
			alleles = append(alleles, allele)
			report.Emitted++
		case belowRelThreshold:
			report.RelThresholdDropped++
		case aboveRelCutoff:
			report.RelCutoffDropped++
		case stutter:
			report.StutterDropped++
		case skipped:
			report.Skipped++
		}
	}
	return alleles, report, nil
}

func validatePeaks(sorted []PeakRecord) error {
	for i, p := range sorted {
		if math.IsNaN(p.Height) || math.IsInf(p.Height, 0) || p.Height <= 0 {
			return fmt.Errorf("peak %d (allele %d) has height %v: %w", i, p.AlleleId, p.Height, models.ErrInvalidInput)
		}
		if math.IsNaN(p.Size) || math.IsInf(p.Size, 0) || p.Size < 0 {
			return fmt.Errorf("peak %d (allele %d) has size %v: %w", i, p.AlleleId, p.Size, models.ErrInvalidInput)
		}
		if i > 0 && less(p, sorted[i-1]) {
			return fmt.Errorf("peak %d (allele %d) breaks (marker, sample, height desc) order: %w", i, p.AlleleId, models.ErrInvalidInput)
		}
	}
	return nil
}

// Peaks strips ranking annotations.
func Peaks(alleles []FilteredAllele) []PeakRecord {
	return lo.Map(alleles, func(a FilteredAllele, _ int) PeakRecord {
		return a.PeakRecord
	})
}

// Group partitions alleles by (sample, marker) keeping their order.
func Group(alleles []FilteredAllele) map[GroupKey][]FilteredAllele {
	return lo.GroupBy(alleles, func(a FilteredAllele) GroupKey {
		return a.Key()
	})
}
