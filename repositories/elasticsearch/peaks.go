package elasticsearch

import (
	"context"

	"spatools/api/models"
	s "spatools/api/models/constants/sort"
	"spatools/api/models/indexes"
	"spatools/api/utils"

	es7 "github.com/elastic/go-elasticsearch/v7"
)

func peakSearchBody(sampleIds []int64, markerIds []int64) map[string]interface{} {
	filters := []map[string]interface{}{}
	if len(sampleIds) > 0 {
		filters = append(filters, termsFilter("sampleId", sampleIds))
	}
	if len(markerIds) > 0 {
		filters = append(filters, termsFilter("markerId", markerIds))
	}

	return map[string]interface{}{
		"query": boolFilter(filters),
		"size":  maxResultWindow,
		// the order the allele filter ranks in
		"sort": []map[string]interface{}{
			{"markerId": s.Ascending},
			{"sampleId": s.Ascending},
			{"height": s.Descending},
		},
	}
}

// GetPeaksBySampleIds fetches the peaks of sampleIds, optionally limited
// to markerIds. Each chunk comes back sorted by marker, sample and
// descending height; chunks are concatenated in request order.
func GetPeaksBySampleIds(ctx context.Context, cfg *models.Config, es *es7.Client,
	sampleIds []int64, markerIds []int64) ([]indexes.Peak, error) {

	chunks := utils.Chunk(sampleIds, cfg.Api.QueryChunkSize)
	if len(chunks) == 0 {
		chunks = [][]int64{nil}
	}

	results := []indexes.Peak{}
	for _, chunk := range chunks {
		found, err := search(ctx, cfg, es, indexes.PeaksIndex, peakSearchBody(chunk, markerIds))
		if err != nil {
			return nil, err
		}
		peaks, err := decodeHits[indexes.Peak](found)
		if err != nil {
			return nil, err
		}
		results = append(results, peaks...)
	}
	return results, nil
}
