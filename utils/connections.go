package utils

import (
	"time"

	"spatools/api/models"

	"github.com/cenkalti/backoff"
	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/rs/zerolog"
)

func CreateEsConnection(cfg *models.Config, logger zerolog.Logger) (*es7.Client, error) {
	var (
		clusterURLs  = []string{cfg.Elasticsearch.Url}
		retryBackoff = backoff.NewExponentialBackOff()
	)

	esCfg := es7.Config{
		Addresses: clusterURLs,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,

		RetryOnStatus: []int{502, 503, 504, 429},

		// exponential backoff between retries
		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},

		MaxRetries: 5,
	}

	client, err := es7.NewClient(esCfg)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("version", es7.Version).Str("url", cfg.Elasticsearch.Url).Msg("using ES7 client")
	return client, nil
}
