package peakfilter

import "math"

type verdict int

const (
	emitted verdict = iota
	belowRelThreshold
	aboveRelCutoff
	stutter
	skipped
)

// groupState holds the running state of one (sample, marker) group.
// It is reset by start at every group boundary.
type groupState struct {
	key       GroupKey
	maxHeight float64
	rank      int
	skip      bool
	accepted  []PeakRecord
}

func (g *groupState) start(p PeakRecord) FilteredAllele {
	g.key = p.Key()
	g.maxHeight = p.Height
	g.rank = 1
	g.skip = false
	g.accepted = append(g.accepted[:0], p)

	one := 1.0
	return FilteredAllele{PeakRecord: p, Rank: 1, Ratio: &one}
}

// next evaluates a non-dominant peak of the current group. The rank is
// consumed before any suppression decision.
func (g *groupState) next(p PeakRecord, params Params) (FilteredAllele, verdict) {
	if g.skip {
		return FilteredAllele{}, skipped
	}

	g.rank++
	ratio := p.Height / g.maxHeight

	if floor, ok := params.relThreshold(); ok && ratio < floor {
		g.skip = true
		return FilteredAllele{}, belowRelThreshold
	}
	if cutoff, ok := params.relCutoff(); ok && ratio > cutoff {
		g.skip = true
		return FilteredAllele{}, aboveRelCutoff
	}

	isStutter := g.isStutter(p, params)
	g.accepted = append(g.accepted, p)
	if isStutter {
		return FilteredAllele{}, stutter
	}
	return FilteredAllele{PeakRecord: p, Rank: g.rank, Ratio: &ratio}, emitted
}

// isStutter compares p against every accepted peak in acceptance order
// and stops at the first match. Both rules use the height relative to
// that accepted peak.
func (g *groupState) isStutter(p PeakRecord, params Params) bool {
	sizeRange, heightRatio, stutterOn := params.stutter()
	baseRange, baseRatio, baseOn := params.baseStutter()
	if !stutterOn && !baseOn {
		return false
	}

	for _, a := range g.accepted {
		delta := math.Abs(a.Size - p.Size)
		relative := p.Height / a.Height
		if stutterOn && delta < sizeRange && relative < heightRatio {
			return true
		}
		if baseOn && delta < baseRange && relative < baseRatio {
			return true
		}
	}
	return false
}
