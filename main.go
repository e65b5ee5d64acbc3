package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spatools/api/contexts"
	gam "spatools/api/middleware"
	"spatools/api/models"
	"spatools/api/models/indexes"
	"spatools/api/mvc/alleles"
	"spatools/api/mvc/genotypes"
	"spatools/api/mvc/peaks"
	serviceInfo "spatools/api/mvc/service-info"
	"spatools/api/mvc/workflows"
	chRepo "spatools/api/repositories/clickhouse"
	esRepo "spatools/api/repositories/elasticsearch"
	kafkaRepo "spatools/api/repositories/kafka"
	"spatools/api/services"
	"spatools/api/services/metrics"
	"spatools/api/services/peakfilter"
	"spatools/api/services/sanitation"
	"spatools/api/utils"

	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	// Gather environment variables
	var cfg models.Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	logger := utils.NewLogger(&cfg)
	logger.Info().
		Bool("debug", cfg.Debug).
		Str("dataPath", cfg.Api.DataPath).
		Int("bulkIndexingCap", cfg.Api.BulkIndexingCap).
		Int("fileProcessingConcurrencyLevel", cfg.Api.FileProcessingConcurrencyLevel).
		Int("queryChunkSize", cfg.Api.QueryChunkSize).
		Str("elasticsearchUrl", cfg.Elasticsearch.Url).
		Str("elasticsearchUsername", cfg.Elasticsearch.Username).
		Int("minTotalDepth", cfg.Calling.MinTotalDepth).
		Float64("ambiguityQuality", cfg.Calling.AmbiguityQuality).
		Bool("clickhouse", cfg.ClickHouse.Enabled).
		Bool("kafka", cfg.Kafka.Enabled).
		Str("port", cfg.Api.Port).
		Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx)

	// Instantiate Server
	e := echo.New()
	e.HideBanner = true
	e.Validator = utils.EchoValidator{}

	// Service Connections:
	// -- Elasticsearch
	es, err := utils.CreateEsConnection(&cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("elasticsearch unavailable")
	}
	for index, mapping := range map[string]map[string]interface{}{
		indexes.GenotypesIndex: indexes.GENOTYPE_INDEX_MAPPING,
		indexes.PeaksIndex:     indexes.PEAK_INDEX_MAPPING,
	} {
		if err := esRepo.EnsureIndex(ctx, es, index, mapping); err != nil {
			logger.Fatal().Err(err).Str("index", index).Msg("cannot prepare index")
		}
	}

	// -- Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)

	// Service Singletons
	iz, err := services.NewIngestionService(es, &cfg, logger, recorder)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create ingestion service")
	}

	closers := wireSinks(ctx, &cfg, logger, iz)

	ss, err := sanitation.NewSanitationService(&cfg, iz, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create sanitation service")
	}
	if err := ss.Init(); err != nil {
		logger.Fatal().Err(err).Msg("cannot schedule sanitation")
	}

	presets, err := loadPresets(cfg.Filter.PresetPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Filter.PresetPath).Msg("cannot load filter presets")
	}

	// Configure Server
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.PUT, echo.POST, echo.DELETE},
	}))
	e.Use(gam.RequestLogging(logger))

	// -- Override handlers with "custom" context
	//		to be able to provide variables and global singletons
	e.Use(func(h echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &contexts.SpaContext{
				Context:          c,
				Es7Client:        es,
				Config:           &cfg,
				Log:              logger,
				IngestionService: iz,
				Metrics:          recorder,
				Presets:          presets,
			}
			return h(cc)
		}
	})

	// Begin MVC Routes
	// -- Root
	e.GET("/", serviceInfo.GetWelcome)

	// -- Service Info
	e.GET("/service-info", serviceInfo.GetServiceInfo)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	// -- Genotypes
	e.POST("/genotypes/call", genotypes.GenotypesCall)
	e.POST("/genotypes/call/batch", genotypes.GenotypesCallBatch)

	e.GET("/genotypes/overview", genotypes.GetGenotypesOverview)
	e.GET("/genotypes/get/by/sampleId", genotypes.GenotypesGetBySampleId,
		// middleware
		gam.CalibrateOptionalSampleIdsPluralAttribute)
	e.GET("/genotypes/select", genotypes.GenotypesSelect,
		// middleware
		gam.CalibrateOptionalSampleIdsPluralAttribute)

	e.GET("/genotypes/ingestion/run", genotypes.GenotypesIngest)
	e.GET("/genotypes/ingestion/requests", genotypes.GetAllGenotypeIngestionRequests)
	e.GET("/genotypes/ingestion/stats", genotypes.GenotypesIngestionStats)

	// -- Alleles
	e.POST("/alleles/filter", alleles.AllelesFilter)
	e.GET("/alleles/get/by/sampleId", alleles.AllelesGetBySampleId,
		// middleware
		gam.MandatePeakSampleIdsAttribute,
		gam.CalibrateOptionalMarkerIdsAttribute,
		gam.CalibrateFilterParams)
	e.GET("/alleles/export", alleles.AllelesExport,
		// middleware
		gam.MandatePeakSampleIdsAttribute,
		gam.CalibrateOptionalMarkerIdsAttribute,
		gam.CalibrateFilterParams)

	// -- Peaks
	e.GET("/peaks/ingestion/run", peaks.PeaksIngest)

	// -- Workflows
	e.GET("/workflows", workflows.WorkflowsGet)

	// Run
	go func() {
		if err := e.Start(":" + cfg.Api.Port); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown")
	}
	ss.Stop()
	if err := iz.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("bulk indexer flush")
	}
	for _, closeSink := range closers {
		if err := closeSink(); err != nil {
			logger.Error().Err(err).Msg("sink close")
		}
	}
}

// wireSinks attaches the optional ClickHouse and Kafka sinks to the
// ingestion service and returns their close functions.
func wireSinks(ctx context.Context, cfg *models.Config, logger zerolog.Logger, iz *services.IngestionService) []func() error {
	var closers []func() error

	if cfg.ClickHouse.Enabled {
		client, err := chRepo.NewClient(ctx,
			chRepo.WithHost(cfg.ClickHouse.Host),
			chRepo.WithPort(cfg.ClickHouse.Port),
			chRepo.WithDatabase(cfg.ClickHouse.Database),
			chRepo.WithCredentials(cfg.ClickHouse.Username, cfg.ClickHouse.Password),
			chRepo.WithAsyncInsert(true),
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("clickhouse unavailable")
		}
		if err := client.InitSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("cannot prepare clickhouse schema")
		}

		store := chRepo.NewStore(client)
		iz.GenotypeSinks = append(iz.GenotypeSinks, store)
		iz.PeakSinks = append(iz.PeakSinks, store)
		closers = append(closers, client.Close)
		logger.Info().Str("host", cfg.ClickHouse.Host).Msg("clickhouse sink enabled")
	}

	if cfg.Kafka.Enabled {
		publisher, err := kafkaRepo.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot create kafka publisher")
		}
		iz.GenotypeSinks = append(iz.GenotypeSinks, publisher)
		closers = append(closers, publisher.Close)
		logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka sink enabled")
	}

	return closers
}

// loadPresets reads the named filter presets; an empty path means none.
func loadPresets(path string) (map[string]peakfilter.Params, error) {
	if path == "" {
		return map[string]peakfilter.Params{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return peakfilter.LoadPresets(f)
}
