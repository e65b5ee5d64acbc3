package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"spatools/api/models"
	"spatools/api/utils"

	"github.com/Jeffail/gabs"
	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
)

// maximum hits returned by one search request (index.max_result_window)
const maxResultWindow = 10000

// EnsureIndex creates index with the given mapping unless it exists.
func EnsureIndex(ctx context.Context, es *es7.Client, index string, mapping map[string]interface{}) error {
	exists, err := es.Indices.Exists([]string{index}, es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	exists.Body.Close()
	if exists.StatusCode == 200 {
		return nil
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]interface{}{"mappings": mapping}); err != nil {
		return err
	}

	res, err := es.Indices.Create(index,
		es.Indices.Create.WithContext(ctx),
		es.Indices.Create.WithBody(&buf),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	// a concurrent creator may have won the race
	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("failed to create index %s: %s", index, res.String())
	}
	zerolog.Ctx(ctx).Info().Str("index", index).Msg("index ready")
	return nil
}

func encodeQuery(ctx context.Context, cfg *models.Config, query map[string]interface{}) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("error encoding query: %w", err)
	}

	if cfg.Debug {
		// view the outbound elasticsearch query
		zerolog.Ctx(ctx).Debug().RawJSON("query", bytes.TrimSpace(buf.Bytes())).Msg("elasticsearch query")
	}
	return &buf, nil
}

// readResponse checks the leading status of an esapi response and
// returns its json body.
func readResponse(res *esapi.Response, op string) ([]byte, error) {
	defer res.Body.Close()

	// response renders as '[200 OK] {...}'
	bracketString, jsonBodyString := utils.GetLeadingStringInBetweenSquareBrackets(res.String())
	if res.IsError() || !strings.Contains(bracketString, "200") {
		return nil, fmt.Errorf("%s failed : got '%s'", op, bracketString)
	}
	return []byte(jsonBodyString), nil
}

func search(ctx context.Context, cfg *models.Config, es *es7.Client, index string, query map[string]interface{}) (*gabs.Container, error) {
	buf, err := encodeQuery(ctx, cfg, query)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(index),
		es.Search.WithBody(buf),
		es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, err
	}

	body, err := readResponse(res, "search")
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("index", index).Dur("took", time.Since(start)).Msg("search complete")

	return gabs.ParseJSON(body)
}

// CountDocuments counts the documents of index matching query; a nil
// query counts everything.
func CountDocuments(ctx context.Context, cfg *models.Config, es *es7.Client, index string, query map[string]interface{}) (int, error) {
	opts := []func(*esapi.CountRequest){
		es.Count.WithContext(ctx),
		es.Count.WithIndex(index),
	}
	if query != nil {
		buf, err := encodeQuery(ctx, cfg, map[string]interface{}{"query": query})
		if err != nil {
			return 0, err
		}
		opts = append(opts, es.Count.WithBody(buf))
	}

	res, err := es.Count(opts...)
	if err != nil {
		return 0, err
	}
	body, err := readResponse(res, "count")
	if err != nil {
		return 0, err
	}
	return parseCount(body)
}

func parseCount(body []byte) (int, error) {
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return 0, err
	}
	count, ok := parsed.Path("count").Data().(float64)
	if !ok {
		return 0, fmt.Errorf("count missing from response")
	}
	return int(count), nil
}

// GetBucketsByKeyword returns the document count per distinct value of
// keyword in index.
func GetBucketsByKeyword(ctx context.Context, cfg *models.Config, es *es7.Client, index string, keyword string) (map[string]int, error) {
	result, err := search(ctx, cfg, es, index, map[string]interface{}{
		"size": 0,
		"aggs": map[string]interface{}{
			"items": map[string]interface{}{
				"terms": map[string]interface{}{
					"field": keyword,
					"size":  maxResultWindow, // increases the number of buckets returned (default is 10)
				},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return parseBuckets(result)
}

func parseBuckets(result *gabs.Container) (map[string]int, error) {
	buckets, err := result.Path("aggregations.items.buckets").Children()
	if err != nil {
		return map[string]int{}, nil
	}

	out := make(map[string]int, len(buckets))
	for _, b := range buckets {
		count, _ := b.Path("doc_count").Data().(float64)
		out[fmt.Sprint(b.Path("key").Data())] = int(count)
	}
	return out, nil
}

// DeleteByTerm removes every document of index whose field equals value.
func DeleteByTerm(ctx context.Context, cfg *models.Config, es *es7.Client, index string, field string, value string) (int, error) {
	buf, err := encodeQuery(ctx, cfg, map[string]interface{}{
		"query": map[string]interface{}{
			"term": map[string]interface{}{field: value},
		},
	})
	if err != nil {
		return 0, err
	}

	res, err := es.DeleteByQuery([]string{index}, buf,
		es.DeleteByQuery.WithContext(ctx),
		es.DeleteByQuery.WithRefresh(true),
		es.DeleteByQuery.WithConflicts("proceed"),
	)
	if err != nil {
		return 0, err
	}
	body, err := readResponse(res, "delete by query")
	if err != nil {
		return 0, err
	}

	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return 0, err
	}
	deleted, _ := parsed.Path("deleted").Data().(float64)
	return int(deleted), nil
}

// decodeHits maps the _source of every hit onto a T.
func decodeHits[T any](result *gabs.Container) ([]T, error) {
	hits, err := result.Path("hits.hits").Children()
	if err != nil {
		return []T{}, nil
	}

	out := make([]T, 0, len(hits))
	for _, hit := range hits {
		var doc T
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
			WeaklyTypedInput: true,
			Result:           &doc,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(hit.Path("_source").Data()); err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func termsFilter(field string, values interface{}) map[string]interface{} {
	return map[string]interface{}{
		"terms": map[string]interface{}{field: values},
	}
}

func boolFilter(filters []map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"bool": map[string]interface{}{
			"filter": filters,
		},
	}
}
