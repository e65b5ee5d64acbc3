package genotypes

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"spatools/api/contexts"
	at "spatools/api/models/constants/assay-type"
	"spatools/api/models/dtos"
	dtoErrors "spatools/api/models/dtos/errors"
	"spatools/api/models/indexes"
	"spatools/api/mvc"
	esRepo "spatools/api/repositories/elasticsearch"
	"spatools/api/services/basecall"
	genotypesService "spatools/api/services/genotypes"
	"spatools/api/utils"

	"github.com/labstack/echo"
	"github.com/samber/lo"
)

func GenotypesCall(c echo.Context) error {
	gc := c.(*contexts.SpaContext)

	var req dtos.BasecallRequestDto
	if errs := utils.ReadAndValidateRequest(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, dtoErrors.CreateValidationBadRequest(errs))
	}

	opts := callOptions(gc, req.MinTotalDepth, req.AmbiguityQuality)
	call, err := basecall.Call(toDepthVector(req.Depths), opts)
	if err != nil {
		return mvc.RespondError(c, err)
	}
	gc.Metrics.RecordBaseCall(string(call.Symbol))

	return c.JSON(http.StatusOK, dtos.BasecallResponseDto{
		Symbol:  string(call.Symbol),
		Quality: call.Quality,
	})
}

func GenotypesCallBatch(c echo.Context) error {
	gc := c.(*contexts.SpaContext)

	var req dtos.BasecallBatchRequestDto
	if errs := utils.ReadAndValidateRequest(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, dtoErrors.CreateValidationBadRequest(errs))
	}

	start := time.Now()
	opts := callOptions(gc, req.MinTotalDepth, req.AmbiguityQuality)
	calls, err := basecall.CallAll(lo.Map(req.Depths, func(d dtos.DepthsDto, _ int) basecall.DepthVector {
		return toDepthVector(d)
	}), opts)
	if err != nil {
		return mvc.RespondError(c, err)
	}
	gc.Metrics.Since("call_batch", start)

	results := make([]dtos.BasecallResponseDto, 0, len(calls))
	for _, call := range calls {
		gc.Metrics.RecordBaseCall(string(call.Symbol))
		results = append(results, dtos.BasecallResponseDto{Symbol: string(call.Symbol), Quality: call.Quality})
	}

	return c.JSON(http.StatusOK, dtos.BasecallBatchResponseDto{
		Status:  200,
		Message: "Success",
		Count:   len(results),
		Results: results,
	})
}

func callOptions(gc *contexts.SpaContext, minTotalDepth *int, ambiguityQuality *float64) basecall.Options {
	opts := basecall.OptionsFromConfig(gc.Config)
	if minTotalDepth != nil {
		opts.MinTotalDepth = *minTotalDepth
	}
	if ambiguityQuality != nil {
		opts.AmbiguityQuality = *ambiguityQuality
	}
	return opts
}

func toDepthVector(d dtos.DepthsDto) basecall.DepthVector {
	return basecall.DepthVector{A: d.A, C: d.C, G: d.G, T: d.T}
}

func GenotypesIngest(c echo.Context) error {
	return mvc.RunIngestion(c, at.Snp, indexes.GenotypesIndex)
}

func GetAllGenotypeIngestionRequests(c echo.Context) error {
	return c.JSON(http.StatusOK, c.(*contexts.SpaContext).IngestionService.GetRequests())
}

func GenotypesIngestionStats(c echo.Context) error {
	return c.JSON(http.StatusOK, c.(*contexts.SpaContext).IngestionService.Stats())
}

func GenotypesGetBySampleId(c echo.Context) error {
	gc := c.(*contexts.SpaContext)

	genotypes, err := esRepo.GetGenotypesBySampleCodes(c.Request().Context(), gc.Config, gc.Es7Client,
		gc.SampleIds, utils.SplitCommaList(c.QueryParam("loci")), gc.Batch)
	if err != nil {
		return mvc.RespondError(c, err)
	}

	return c.JSON(http.StatusOK, dtos.GenotypesResponseDTO{
		Status:  200,
		Message: "Success",
		Count:   len(genotypes),
		Results: genotypes,
	})
}

func GenotypesSelect(c echo.Context) error {
	gc := c.(*contexts.SpaContext)

	sampleThreshold, err := parseThreshold(c.QueryParam("sample_qual_threshold"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dtoErrors.CreateSimpleBadRequest(err.Error()))
	}
	markerThreshold, err := parseThreshold(c.QueryParam("marker_qual_threshold"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, dtoErrors.CreateSimpleBadRequest(err.Error()))
	}

	genotypes, err := esRepo.GetGenotypesBySampleCodes(c.Request().Context(), gc.Config, gc.Es7Client,
		gc.SampleIds, utils.SplitCommaList(c.QueryParam("loci")), gc.Batch)
	if err != nil {
		return mvc.RespondError(c, err)
	}

	selection, err := genotypesService.SelectByQuality(genotypes, sampleThreshold, markerThreshold)
	if err != nil {
		return mvc.RespondError(c, err)
	}

	return c.JSON(http.StatusOK, dtos.GenotypeSelectionResponseDTO{
		Status:  200,
		Message: "Success",
		Samples: selection.Samples,
		Loci:    selection.Loci,
	})
}

// an absent threshold keeps everything
func parseThreshold(qp string) (float64, error) {
	if len(qp) == 0 {
		return 0, nil
	}
	v, err := strconv.ParseFloat(qp, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid threshold %s", qp)
	}
	return v, nil
}

func GetGenotypesOverview(c echo.Context) error {
	gc := c.(*contexts.SpaContext)

	buckets := func(ctx context.Context, index string, keyword string) (map[string]int, error) {
		return esRepo.GetBucketsByKeyword(ctx, gc.Config, gc.Es7Client, index, keyword)
	}
	return c.JSON(http.StatusOK, genotypesService.GetOverview(c.Request().Context(), buckets))
}
