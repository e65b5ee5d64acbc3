package mvc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spatools/api/contexts"
	"spatools/api/models"
	"spatools/api/models/constants"
	at "spatools/api/models/constants/assay-type"
	"spatools/api/models/dtos"
	dtoErrors "spatools/api/models/dtos/errors"
	"spatools/api/models/indexes"
	"spatools/api/models/ingest"
	esRepo "spatools/api/repositories/elasticsearch"
	"spatools/api/services/peakfilter"
	"spatools/api/utils"

	"github.com/google/uuid"
	"github.com/labstack/echo"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var ingestableExtensions = map[constants.AssayType][]string{
	at.Snp:            {".csv", ".tsv", ".txt", ".vcf"},
	at.Microsatellite: {".csv", ".tsv", ".txt"},
}

// RespondError maps invalid input to a 400 and anything else to a 500.
func RespondError(c echo.Context, err error) error {
	if errors.Is(err, models.ErrInvalidInput) {
		return c.JSON(http.StatusBadRequest, dtoErrors.CreateSimpleBadRequest(err.Error()))
	}
	zerolog.Ctx(c.Request().Context()).Error().Err(err).Msg("request failed")
	return c.JSON(http.StatusInternalServerError, dtoErrors.CreateSimpleInternalServerError(err.Error()))
}

// IsIngestable reports whether filename has an extension accepted for
// the assay, with or without a trailing .gz.
func IsIngestable(assay constants.AssayType, filename string) bool {
	ext := filepath.Ext(strings.TrimSuffix(strings.ToLower(filename), ".gz"))
	return lo.Contains(ingestableExtensions[assay], ext)
}

// ResolveIngestFiles turns the `directory` or `fileNames` query values
// into paths relative to dataPath. Requested files must exist under
// dataPath.
func ResolveIngestFiles(dataPath string, directory string, fileNames string, assay constants.AssayType) ([]string, error) {
	root := filepath.Clean(dataPath)

	if directory != "" {
		dir, err := insideRoot(root, directory)
		if err != nil {
			return nil, err
		}

		var found []string
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !IsIngestable(assay, d.Name()) {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			found = append(found, rel)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("reading directory %s: %v: %w", directory, err, models.ErrInvalidInput)
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no ingestable file in directory %s: %w", directory, models.ErrInvalidInput)
		}
		return found, nil
	}

	names := utils.SplitCommaList(fileNames)
	if len(names) == 0 {
		return nil, fmt.Errorf("missing 'fileNames' query parameter: %w", models.ErrInvalidInput)
	}

	resolved := make([]string, 0, len(names))
	for _, name := range names {
		path, err := insideRoot(root, name)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return nil, fmt.Errorf("file %s not found: %w", name, models.ErrInvalidInput)
		}
		if !IsIngestable(assay, name) {
			return nil, fmt.Errorf("file %s is not an ingestable %s file: %w", name, assay, models.ErrInvalidInput)
		}
		rel, _ := filepath.Rel(root, path)
		resolved = append(resolved, rel)
	}
	return resolved, nil
}

// insideRoot joins name onto root, tolerating names that already carry
// the root prefix, and refuses paths that leave root.
func insideRoot(root string, name string) (string, error) {
	name = strings.TrimPrefix(filepath.Clean(name), root)
	path := filepath.Join(root, name)

	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside the data directory: %w", name, models.ErrInvalidInput)
	}
	return path, nil
}

// RunIngestion queues one ingest request per requested file of the
// given assay type and processes them in the background.
func RunIngestion(c echo.Context, assay constants.AssayType, index string) error {
	gc := c.(*contexts.SpaContext)
	cfg := gc.Config
	ingestionService := gc.IngestionService

	process, err := ingestionService.ProcessorFor(assay)
	if err != nil {
		return RespondError(c, err)
	}

	fileNames, err := ResolveIngestFiles(cfg.Api.DataPath, c.QueryParam("directory"), c.QueryParam("fileNames"), assay)
	if err != nil {
		return RespondError(c, err)
	}

	// -- optional re-ingestion of previously loaded files
	replace := false
	if replaceQP := c.QueryParam("replace"); len(replaceQP) > 0 {
		if replace, err = strconv.ParseBool(replaceQP); err != nil {
			return c.JSON(http.StatusBadRequest, dtoErrors.CreateSimpleBadRequest(fmt.Sprintf("invalid replace value %s", replaceQP)))
		}
	}

	batch := c.QueryParam("batch")
	if batch == "" {
		batch = uuid.NewString()
	}

	if replace {
		process = replacing(gc, index, process)
	}

	responseDtos := []ingest.IngestResponseDTO{}
	for _, fileName := range fileNames {
		// check if there is an already existing ingestion request state
		if ingestionService.FilenameAlreadyRunning(fileName) {
			responseDtos = append(responseDtos, ingest.IngestResponseDTO{
				Filename: fileName,
				State:    ingest.Error,
				Message:  "File already being ingested..",
			})
			continue
		}

		newRequestState := ingest.IngestRequest{
			Id:        uuid.New(),
			Filename:  fileName,
			AssayType: assay,
			Batch:     batch,
			State:     ingest.Queued,
			CreatedAt: time.Now(),
		}
		ingestionService.Publish(newRequestState)

		responseDtos = append(responseDtos, ingest.IngestResponseDTO{
			Id:       newRequestState.Id,
			Filename: newRequestState.Filename,
			State:    newRequestState.State,
			Message:  "Successfully queued..",
		})

		go ingestionService.Run(context.Background(), newRequestState, filepath.Join(cfg.Api.DataPath, fileName), process)
	}

	gc.Log.Info().Strs("files", fileNames).Str("assay", string(assay)).Str("batch", batch).Bool("replace", replace).Msg("ingestion queued")
	return c.JSON(http.StatusOK, responseDtos)
}

// replacing wraps process so documents previously ingested from the same
// file are deleted first.
func replacing(gc *contexts.SpaContext, index string,
	process func(context.Context, *ingest.IngestRequest, string) error) func(context.Context, *ingest.IngestRequest, string) error {

	return func(ctx context.Context, req *ingest.IngestRequest, path string) error {
		deleted, err := esRepo.DeleteByTerm(ctx, gc.Config, gc.Es7Client, index, "filename", req.Filename)
		if err != nil {
			return fmt.Errorf("removing previous documents: %w", err)
		}
		zerolog.Ctx(ctx).Info().Int("deleted", deleted).Msg("previous documents removed")
		return process(ctx, req, path)
	}
}

// FetchFilteredAlleles loads the peaks selected by the context's sample
// and marker ids and runs them through the peak filter.
func FetchFilteredAlleles(c echo.Context) ([]peakfilter.FilteredAllele, peakfilter.Report, error) {
	gc := c.(*contexts.SpaContext)
	ctx := c.Request().Context()

	start := time.Now()
	docs, err := esRepo.GetPeaksBySampleIds(ctx, gc.Config, gc.Es7Client, gc.PeakSampleIds, gc.MarkerIds)
	if err != nil {
		return nil, peakfilter.Report{}, err
	}

	alleles, report, err := peakfilter.FilterPartitioned(ctx, ToPeakRecords(docs), gc.FilterParams, gc.Config.Filter.Workers)
	if err != nil {
		return nil, peakfilter.Report{}, err
	}
	RecordReport(gc, report)
	gc.Metrics.Since("filter", start)
	return alleles, report, nil
}

// RecordReport feeds a filter report into the allele metrics.
func RecordReport(gc *contexts.SpaContext, report peakfilter.Report) {
	gc.Metrics.RecordAlleles("emitted", report.Emitted)
	gc.Metrics.RecordAlleles("type", report.TypeDropped)
	gc.Metrics.RecordAlleles("abs_threshold", report.AbsThresholdDropped)
	gc.Metrics.RecordAlleles("rel_threshold", report.RelThresholdDropped)
	gc.Metrics.RecordAlleles("rel_cutoff", report.RelCutoffDropped)
	gc.Metrics.RecordAlleles("stutter", report.StutterDropped)
	gc.Metrics.RecordAlleles("skipped", report.Skipped)
}

func ToPeakRecords(docs []indexes.Peak) []peakfilter.PeakRecord {
	return lo.Map(docs, func(p indexes.Peak, _ int) peakfilter.PeakRecord {
		return peakfilter.PeakRecord{
			SampleId: p.SampleId,
			AssayId:  p.AssayId,
			MarkerId: p.MarkerId,
			AlleleId: p.AlleleId,
			Value:    p.Value,
			Size:     p.Size,
			Height:   p.Height,
			Type:     p.Type,
		}
	})
}

func ToAlleleDtos(alleles []peakfilter.FilteredAllele) []dtos.AlleleDto {
	return lo.Map(alleles, func(a peakfilter.FilteredAllele, _ int) dtos.AlleleDto {
		return dtos.AlleleDto{
			PeakDto: dtos.PeakDto{
				SampleId: a.SampleId,
				AssayId:  a.AssayId,
				MarkerId: a.MarkerId,
				AlleleId: a.AlleleId,
				Value:    a.Value,
				Size:     a.Size,
				Height:   a.Height,
				Type:     string(a.Type),
			},
			Rank:  a.Rank,
			Ratio: a.Ratio,
		}
	})
}
