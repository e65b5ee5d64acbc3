package genotypesService

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"spatools/api/models"
	n "spatools/api/models/constants/nucleotide"
	"spatools/api/models/indexes"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// BucketFunc returns per-value document counts of keyword in index.
type BucketFunc func(ctx context.Context, index string, keyword string) (map[string]int, error)

type Selection struct {
	Samples []string `json:"samples"`
	Loci    []string `json:"loci"`
}

// GetOverview gathers the distributions shown on the overview page.
// A failing aggregation is reported in place instead of failing the
// whole overview.
func GetOverview(ctx context.Context, buckets BucketFunc) map[string]interface{} {
	resultsMap := map[string]interface{}{}
	resultsMux := sync.Mutex{}

	var wg sync.WaitGroup
	callGetBucketsByKeyword := func(key string, index string, keyword string) {
		defer wg.Done()

		results, err := buckets(ctx, index, keyword)

		resultsMux.Lock()
		defer resultsMux.Unlock()
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Str("keyword", keyword).Msg("overview aggregation failed")
			resultsMap[key] = map[string]interface{}{
				"error": "Something went wrong. Please contact the administrator!",
			}
			return
		}
		resultsMap[key] = results
	}

	for _, agg := range []struct{ key, index, keyword string }{
		{"sampleCodes", indexes.GenotypesIndex, "sampleCode"},
		{"locusCodes", indexes.GenotypesIndex, "locusCode"},
		{"batches", indexes.GenotypesIndex, "batch"},
		{"calls", indexes.GenotypesIndex, "call"},
		{"peakSampleIds", indexes.PeaksIndex, "sampleId"},
		{"peakMarkerIds", indexes.PeaksIndex, "markerId"},
	} {
		wg.Add(1)
		go callGetBucketsByKeyword(agg.key, agg.index, agg.keyword)
	}
	wg.Wait()

	return resultsMap
}

// SelectByQuality keeps samples whose share of confidently called loci is
// at least sampleThreshold, then keeps loci confidently called in at
// least markerThreshold of the kept samples. Both lists are sorted.
func SelectByQuality(genotypes []indexes.Genotype, sampleThreshold, markerThreshold float64) (Selection, error) {
	if sampleThreshold < 0 || sampleThreshold > 1 || markerThreshold < 0 || markerThreshold > 1 {
		return Selection{}, fmt.Errorf("quality thresholds must lie in [0, 1]: %w", models.ErrInvalidInput)
	}

	loci := lo.Uniq(lo.Map(genotypes, func(g indexes.Genotype, _ int) string { return g.LocusCode }))
	if len(loci) == 0 {
		return Selection{Samples: []string{}, Loci: []string{}}, nil
	}

	// sample -> loci with a confident call
	called := map[string]map[string]bool{}
	for _, g := range genotypes {
		if called[g.SampleCode] == nil {
			called[g.SampleCode] = map[string]bool{}
		}
		if n.IsConfident(g.Call) {
			called[g.SampleCode][g.LocusCode] = true
		}
	}

	samples := lo.Filter(lo.Keys(called), func(s string, _ int) bool {
		return float64(len(called[s]))/float64(len(loci)) >= sampleThreshold
	})
	sort.Strings(samples)

	kept := []string{}
	if len(samples) > 0 {
		kept = lo.Filter(loci, func(locus string, _ int) bool {
			hits := lo.CountBy(samples, func(s string) bool { return called[s][locus] })
			return float64(hits)/float64(len(samples)) >= markerThreshold
		})
	}
	sort.Strings(kept)

	return Selection{Samples: samples, Loci: kept}, nil
}
