package peakfilter

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FilterPartitioned returns the same alleles as Filter, ranking each
// marker partition on its own goroutine. Groups never span markers so
// partitions share no state.
func FilterPartitioned(ctx context.Context, peaks []PeakRecord, params Params, workers int) ([]FilteredAllele, Report, error) {
	sorted, report, err := prepare(peaks, params)
	if err != nil {
		return nil, Report{}, err
	}

	parts := partitionByMarker(sorted)
	results := make([][]FilteredAllele, len(parts))
	reports := make([]Report, len(parts))

	eg, egCtx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i, part := range parts {
		i, part := i, part
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			alleles, r, err := rank(part, params)
			if err != nil {
				return err
			}
			results[i], reports[i] = alleles, r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, Report{}, err
	}

	alleles := make([]FilteredAllele, 0, len(sorted))
	for i := range results {
		alleles = append(alleles, results[i]...)
		report.add(reports[i])
	}
	return alleles, report, nil
}

// partitionByMarker splits a sorted slice at marker boundaries.
func partitionByMarker(sorted []PeakRecord) [][]PeakRecord {
	var parts [][]PeakRecord
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].MarkerId != sorted[start].MarkerId {
			parts = append(parts, sorted[start:i])
			start = i
		}
	}
	return parts
}
