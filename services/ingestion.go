package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"spatools/api/models"
	"spatools/api/models/constants"
	at "spatools/api/models/constants/assay-type"
	"spatools/api/models/indexes"
	"spatools/api/models/ingest"
	"spatools/api/models/ingest/structs"
	"spatools/api/services/basecall"
	"spatools/api/services/metrics"
	"spatools/api/services/peakfilter"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esutil"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	// documents handed to the secondary sinks per write
	sinkBatchSize = 1000
	// error log lines kept per ingest request
	maxErrorLogLines = 100
)

type (
	GenotypeSink interface {
		Name() string
		WriteGenotypes(ctx context.Context, genotypes []indexes.Genotype) error
	}

	PeakSink interface {
		Name() string
		WritePeaks(ctx context.Context, peaks []indexes.Peak) error
	}

	IngestionService struct {
		Initialized                   bool
		IngestRequestChan             chan *ingest.IngestRequest
		IngestRequestMap              map[string]*ingest.IngestRequest
		IngestRequestMapMux           sync.RWMutex
		IngestionBulkIndexingCapacity int
		IngestionBulkIndexingQueue    chan *structs.IngestionQueueStructure
		IngestionBulkIndexer          esutil.BulkIndexer
		ConcurrentFileIngestionQueue  chan bool
		ElasticsearchClient           *es7.Client

		Config        *models.Config
		Logger        zerolog.Logger
		Metrics       *metrics.Recorder
		GenotypeSinks []GenotypeSink
		PeakSinks     []PeakSink
	}
)

func NewIngestionService(es *es7.Client, cfg *models.Config, logger zerolog.Logger, recorder *metrics.Recorder) (*IngestionService, error) {
	//see: https://www.elastic.co/blog/why-am-i-seeing-bulk-rejections-in-my-elasticsearch-cluster
	numWorkers := max(cfg.Api.BulkIndexingCap/100, 1)

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     es,
		NumWorkers: numWorkers,
		OnError: func(ctx context.Context, err error) {
			logger.Error().Err(err).Msg("bulk indexer error")
		},
	})
	if err != nil {
		return nil, err
	}

	iz := newIngestionService(bi, cfg, logger, recorder)
	iz.ElasticsearchClient = es
	iz.Init()
	return iz, nil
}

func newIngestionService(bi esutil.BulkIndexer, cfg *models.Config, logger zerolog.Logger, recorder *metrics.Recorder) *IngestionService {
	return &IngestionService{
		Initialized:                   false,
		IngestRequestChan:             make(chan *ingest.IngestRequest),
		IngestRequestMap:              map[string]*ingest.IngestRequest{},
		IngestionBulkIndexingCapacity: cfg.Api.BulkIndexingCap,
		IngestionBulkIndexingQueue:    make(chan *structs.IngestionQueueStructure, max(cfg.Api.BulkIndexingCap, 1)),
		IngestionBulkIndexer:          bi,
		ConcurrentFileIngestionQueue:  make(chan bool, max(cfg.Api.FileProcessingConcurrencyLevel, 1)),
		Config:                        cfg,
		Logger:                        logger.With().Str("component", "ingestion").Logger(),
		Metrics:                       recorder,
	}
}

func (i *IngestionService) Init() {
	// safeguard to prevent multiple initilizations
	if i.Initialized {
		return
	}

	// one listener for ingest request updates and bulk indexing
	go func() {
		for {
			select {
			case req := <-i.IngestRequestChan:
				if req.State == ingest.Queued {
					i.Logger.Info().Str("filename", req.Filename).Str("id", req.Id.String()).Msg("queueing a new ingestion request")
				}

				req.UpdatedAt = time.Now()
				i.IngestRequestMapMux.Lock()
				i.IngestRequestMap[req.Id.String()] = req
				i.IngestRequestMapMux.Unlock()

			case queued := <-i.IngestionBulkIndexingQueue:
				i.addToBulkIndexer(queued)
			}
		}
	}()

	i.Initialized = true
}

func (i *IngestionService) addToBulkIndexer(queued *structs.IngestionQueueStructure) {
	wg := queued.WaitGroup

	data, err := json.Marshal(queued.Document)
	if err != nil {
		i.Logger.Error().Err(err).Str("index", queued.Index).Msg("cannot encode document")
		i.Metrics.RecordError("encode")
		wg.Done()
		return
	}

	err = i.IngestionBulkIndexer.Add(
		context.Background(),
		esutil.BulkIndexerItem{
			Action: "index",
			Index:  queued.Index,
			Body:   bytes.NewReader(data),

			OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
				wg.Done()
			},

			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				defer wg.Done()
				i.Metrics.RecordError("index")
				if err != nil {
					i.Logger.Error().Err(err).Str("index", item.Index).Msg("bulk index failure")
				} else {
					i.Logger.Error().Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("bulk index failure")
				}
			},
		},
	)
	if err != nil {
		i.Logger.Error().Err(err).Msg("unexpected bulk indexer error")
		wg.Done()
	}
}

// Publish records a snapshot of req in the request map.
func (i *IngestionService) Publish(req ingest.IngestRequest) {
	req.ErrorLog = append([]string(nil), req.ErrorLog...)
	i.IngestRequestChan <- &req
}

// GetRequests returns the known ingest requests, oldest first.
func (i *IngestionService) GetRequests() []ingest.IngestRequest {
	i.IngestRequestMapMux.RLock()
	requests := lo.MapToSlice(i.IngestRequestMap, func(_ string, r *ingest.IngestRequest) ingest.IngestRequest {
		return *r
	})
	i.IngestRequestMapMux.RUnlock()

	sort.SliceStable(requests, func(a, b int) bool {
		return requests[a].CreatedAt.Before(requests[b].CreatedAt)
	})
	return requests
}

// PurgeFinished drops finished requests last updated before cutoff and
// returns how many were removed.
func (i *IngestionService) PurgeFinished(cutoff time.Time) int {
	i.IngestRequestMapMux.Lock()
	defer i.IngestRequestMapMux.Unlock()

	removed := 0
	for id, r := range i.IngestRequestMap {
		if r.IsFinished() && r.UpdatedAt.Before(cutoff) {
			delete(i.IngestRequestMap, id)
			removed++
		}
	}
	return removed
}

func (i *IngestionService) FilenameAlreadyRunning(filename string) bool {
	i.IngestRequestMapMux.RLock()
	defer i.IngestRequestMapMux.RUnlock()

	for _, v := range i.IngestRequestMap {
		if v.Filename == filename && (v.State == ingest.Queued || v.State == ingest.Running) {
			return true
		}
	}
	return false
}

func (i *IngestionService) Stats() esutil.BulkIndexerStats {
	return i.IngestionBulkIndexer.Stats()
}

// Close flushes the bulk indexer.
func (i *IngestionService) Close(ctx context.Context) error {
	return i.IngestionBulkIndexer.Close(ctx)
}

// Run executes process for req once a file slot is free, publishing the
// request state before and after.
func (i *IngestionService) Run(ctx context.Context, req ingest.IngestRequest, path string,
	process func(context.Context, *ingest.IngestRequest, string) error) ingest.IngestRequest {

	// take a spot in the queue
	i.ConcurrentFileIngestionQueue <- true
	defer func() { <-i.ConcurrentFileIngestionQueue }()

	start := time.Now()
	req.State = ingest.Running
	i.Publish(req)

	logger := i.Logger.With().Str("filename", req.Filename).Str("id", req.Id.String()).Logger()
	logger.Info().Msg("ingestion started")

	if err := process(logger.WithContext(ctx), &req, path); err != nil {
		req.State = ingest.Error
		req.Message = err.Error()
		i.Metrics.RecordError("file")
		logger.Error().Err(err).Msg("ingestion failed")
	} else {
		req.State = ingest.Done
		req.Message = fmt.Sprintf("ingested %d record(s), rejected %d", req.Records, req.Rejected)
		logger.Info().Int64("records", req.Records).Int64("rejected", req.Rejected).Dur("took", time.Since(start)).Msg("ingestion complete")
	}
	i.Metrics.Since("ingest_"+string(req.AssayType), start)

	i.Publish(req)
	return req
}

// IsVcf reports whether a genotype file is a VCF rather than a depth table.
func IsVcf(filename string) bool {
	name := strings.TrimSuffix(strings.ToLower(filename), ".gz")
	return filepath.Ext(name) == ".vcf"
}

// ProcessGenotypeFile reads a depth table or VCF, calls every
// (sample, locus) record and indexes the result.
func (i *IngestionService) ProcessGenotypeFile(ctx context.Context, req *ingest.IngestRequest, path string) error {
	f, err := OpenMaybeGzip(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		opts    = basecall.OptionsFromConfig(i.Config)
		created = time.Now()
		fileWG  sync.WaitGroup
		batch   = make([]indexes.Genotype, 0, sinkBatchSize)
	)

	handle := func(rec GenotypeRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		call, err := basecall.Call(rec.Depths, opts)
		if err != nil {
			req.Rejected++
			appendErrorLog(req, fmt.Sprintf("%s/%s: %v", rec.SampleCode, rec.LocusCode, err))
			return nil
		}

		doc := indexes.Genotype{
			SampleCode:  rec.SampleCode,
			Batch:       req.Batch,
			LocusCode:   rec.LocusCode,
			RefSeq:      rec.RefSeq,
			Position:    rec.Position,
			Ref:         rec.Ref,
			Alt:         rec.Alt,
			Depths:      indexes.Depths{A: rec.Depths.A, C: rec.Depths.C, G: rec.Depths.G, T: rec.Depths.T},
			Observed:    rec.Observed,
			Call:        call.Symbol,
			Quality:     call.Quality,
			Filename:    req.Filename,
			CreatedTime: created,
		}
		i.Metrics.RecordBaseCall(string(call.Symbol))
		i.Metrics.RecordIngested(string(at.Snp))
		req.Records++

		fileWG.Add(1)
		i.IngestionBulkIndexingQueue <- &structs.IngestionQueueStructure{
			Index:     indexes.GenotypesIndex,
			Document:  doc,
			WaitGroup: &fileWG,
		}

		batch = append(batch, doc)
		if len(batch) == sinkBatchSize {
			i.writeGenotypeSinks(ctx, req, batch)
			batch = batch[:0]
		}
		return nil
	}

	var errlog []string
	if IsVcf(path) {
		errlog, err = ScanVcfDepths(f, handle)
	} else {
		errlog, err = ScanGenotypeTable(f, i.Config.Calling.DepthScale, handle)
	}
	i.writeGenotypeSinks(ctx, req, batch)

	// let all queued documents be acknowledged
	fileWG.Wait()

	req.Rejected += int64(len(errlog))
	for _, e := range errlog {
		appendErrorLog(req, e)
		i.Metrics.RecordError("parse")
	}
	return err
}

func (i *IngestionService) writeGenotypeSinks(ctx context.Context, req *ingest.IngestRequest, batch []indexes.Genotype) {
	if len(batch) == 0 {
		return
	}
	for _, sink := range i.GenotypeSinks {
		if err := sink.WriteGenotypes(ctx, batch); err != nil {
			i.sinkFailed(ctx, req, sink.Name(), err)
			continue
		}
		i.Metrics.RecordSinkWrite(sink.Name(), len(batch))
	}
}

// ProcessPeakFile reads a microsatellite peak table and indexes every
// valid peak.
func (i *IngestionService) ProcessPeakFile(ctx context.Context, req *ingest.IngestRequest, path string) error {
	f, err := OpenMaybeGzip(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var (
		created = time.Now()
		fileWG  sync.WaitGroup
		batch   = make([]indexes.Peak, 0, sinkBatchSize)
	)

	errlog, err := ScanPeakTable(f, func(p peakfilter.PeakRecord) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		doc := indexes.Peak{
			SampleId:    p.SampleId,
			AssayId:     p.AssayId,
			MarkerId:    p.MarkerId,
			AlleleId:    p.AlleleId,
			Value:       p.Value,
			Size:        p.Size,
			Height:      p.Height,
			Type:        p.Type,
			Batch:       req.Batch,
			Filename:    req.Filename,
			CreatedTime: created,
		}
		i.Metrics.RecordIngested(string(at.Microsatellite))
		req.Records++

		fileWG.Add(1)
		i.IngestionBulkIndexingQueue <- &structs.IngestionQueueStructure{
			Index:     indexes.PeaksIndex,
			Document:  doc,
			WaitGroup: &fileWG,
		}

		batch = append(batch, doc)
		if len(batch) == sinkBatchSize {
			i.writePeakSinks(ctx, req, batch)
			batch = batch[:0]
		}
		return nil
	})
	i.writePeakSinks(ctx, req, batch)
	fileWG.Wait()

	req.Rejected += int64(len(errlog))
	for _, e := range errlog {
		appendErrorLog(req, e)
		i.Metrics.RecordError("parse")
	}
	return err
}

func (i *IngestionService) writePeakSinks(ctx context.Context, req *ingest.IngestRequest, batch []indexes.Peak) {
	if len(batch) == 0 {
		return
	}
	for _, sink := range i.PeakSinks {
		if err := sink.WritePeaks(ctx, batch); err != nil {
			i.sinkFailed(ctx, req, sink.Name(), err)
			continue
		}
		i.Metrics.RecordSinkWrite(sink.Name(), len(batch))
	}
}

func (i *IngestionService) sinkFailed(ctx context.Context, req *ingest.IngestRequest, sink string, err error) {
	zerolog.Ctx(ctx).Warn().Err(err).Str("sink", sink).Msg("sink write failed")
	i.Metrics.RecordError("sink")
	appendErrorLog(req, fmt.Sprintf("%s: %v", sink, err))
}

func appendErrorLog(req *ingest.IngestRequest, line string) {
	if len(req.ErrorLog) < maxErrorLogLines {
		req.ErrorLog = append(req.ErrorLog, line)
	}
}

// ProcessorFor picks the file processor for an assay type.
func (i *IngestionService) ProcessorFor(assay constants.AssayType) (func(context.Context, *ingest.IngestRequest, string) error, error) {
	switch assay {
	case at.Snp:
		return i.ProcessGenotypeFile, nil
	case at.Microsatellite:
		return i.ProcessPeakFile, nil
	default:
		return nil, fmt.Errorf("no ingestion for assay type %q: %w", assay, models.ErrInvalidInput)
	}
}
