package elasticsearch

import (
	"context"

	"spatools/api/models"
	s "spatools/api/models/constants/sort"
	"spatools/api/models/indexes"
	"spatools/api/utils"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/rs/zerolog"
)

// genotypeQuery matches genotype documents of the given samples,
// optionally restricted to loci and a batch.
func genotypeQuery(sampleCodes []string, loci []string, batch string) map[string]interface{} {
	filters := []map[string]interface{}{}
	if len(sampleCodes) > 0 {
		filters = append(filters, termsFilter("sampleCode", sampleCodes))
	}
	if len(loci) > 0 {
		filters = append(filters, termsFilter("locusCode", loci))
	}
	if batch != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"batch": batch},
		})
	}
	return boolFilter(filters)
}

func genotypeSearchBody(sampleCodes []string, loci []string, batch string) map[string]interface{} {
	return map[string]interface{}{
		"query": genotypeQuery(sampleCodes, loci, batch),
		"size":  maxResultWindow,
		"sort": []map[string]interface{}{
			{"sampleCode": s.Ascending},
			{"locusCode": s.Ascending},
		},
	}
}

// GetGenotypesBySampleCodes fetches genotypes for sampleCodes, querying at
// most cfg.Api.QueryChunkSize samples per request.
func GetGenotypesBySampleCodes(ctx context.Context, cfg *models.Config, es *es7.Client,
	sampleCodes []string, loci []string, batch string) ([]indexes.Genotype, error) {

	chunks := utils.Chunk(sampleCodes, cfg.Api.QueryChunkSize)
	if len(chunks) == 0 {
		// no sample filter; one unrestricted page
		chunks = [][]string{nil}
	}

	results := []indexes.Genotype{}
	for _, chunk := range chunks {
		found, err := search(ctx, cfg, es, indexes.GenotypesIndex, genotypeSearchBody(chunk, loci, batch))
		if err != nil {
			return nil, err
		}
		genotypes, err := decodeHits[indexes.Genotype](found)
		if err != nil {
			return nil, err
		}
		results = append(results, genotypes...)
	}

	zerolog.Ctx(ctx).Debug().Int("chunks", len(chunks)).Int("genotypes", len(results)).Msg("genotypes fetched")
	return results, nil
}
