package alleles

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"spatools/api/contexts"
	"spatools/api/models/constants"
	pt "spatools/api/models/constants/peak-type"
	"spatools/api/models/dtos"
	dtoErrors "spatools/api/models/dtos/errors"
	"spatools/api/models/indexes"
	"spatools/api/mvc"
	esRepo "spatools/api/repositories/elasticsearch"
	"spatools/api/services/export"
	"spatools/api/services/peakfilter"
	"spatools/api/utils"

	"github.com/labstack/echo"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func AllelesFilter(c echo.Context) error {
	gc := c.(*contexts.SpaContext)

	var req dtos.AlleleFilterRequestDto
	if errs := utils.ReadAndValidateRequest(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, dtoErrors.CreateValidationBadRequest(errs))
	}

	params, err := toParams(req.Params)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dtoErrors.CreateSimpleBadRequest(err.Error()))
	}

	peaks := make([]peakfilter.PeakRecord, 0, len(req.Peaks))
	for i, p := range req.Peaks {
		if p.Type == "" {
			p.Type = string(pt.Bin)
		}
		peakType, err := pt.CastToPeakType(p.Type)
		if err != nil {
			return c.JSON(http.StatusBadRequest, dtoErrors.CreateSimpleBadRequest(fmt.Sprintf("peak %d: %s", i, err)))
		}
		peaks = append(peaks, peakfilter.PeakRecord{
			SampleId: p.SampleId,
			AssayId:  p.AssayId,
			MarkerId: p.MarkerId,
			AlleleId: p.AlleleId,
			Value:    p.Value,
			Size:     p.Size,
			Height:   p.Height,
			Type:     peakType,
		})
	}

	start := time.Now()
	alleles, report, err := peakfilter.FilterWithReport(peaks, params)
	if err != nil {
		return mvc.RespondError(c, err)
	}
	mvc.RecordReport(gc, report)
	gc.Metrics.Since("filter", start)

	return c.JSON(http.StatusOK, dtos.AllelesResponseDTO{
		Status:  200,
		Message: "Success",
		Count:   len(alleles),
		Report:  report,
		Results: mvc.ToAlleleDtos(alleles),
	})
}

func toParams(dto dtos.FilterParamsDto) (peakfilter.Params, error) {
	peakTypes := make([]constants.PeakType, 0, len(dto.PeakTypes))
	for _, t := range dto.PeakTypes {
		peakType, err := pt.CastToPeakType(t)
		if err != nil {
			return peakfilter.Params{}, err
		}
		peakTypes = append(peakTypes, peakType)
	}

	return peakfilter.Params{
		AbsThreshold:     dto.AbsThreshold,
		RelThreshold:     dto.RelThreshold,
		RelCutoff:        dto.RelCutoff,
		StutterRatio:     dto.StutterRatio,
		StutterRange:     dto.StutterRange,
		StutterBaseRatio: dto.StutterBaseRatio,
		StutterBaseRange: dto.StutterBaseRange,
		PeakTypes:        peakTypes,
	}, nil
}

func AllelesGetBySampleId(c echo.Context) error {
	alleles, report, err := mvc.FetchFilteredAlleles(c)
	if err != nil {
		return mvc.RespondError(c, err)
	}

	return c.JSON(http.StatusOK, dtos.AllelesResponseDTO{
		Status:  200,
		Message: "Success",
		Count:   len(alleles),
		Report:  report,
		Results: mvc.ToAlleleDtos(alleles),
	})
}

// AllelesExport sends the filtered alleles, and the genotypes of any
// `sampleCodes` given, as an xlsx workbook.
func AllelesExport(c echo.Context) error {
	gc := c.(*contexts.SpaContext)

	alleles, _, err := mvc.FetchFilteredAlleles(c)
	if err != nil {
		return mvc.RespondError(c, err)
	}

	genotypes := []indexes.Genotype{}
	if sampleCodes := utils.SplitCommaList(c.QueryParam("sampleCodes")); len(sampleCodes) > 0 {
		genotypes, err = esRepo.GetGenotypesBySampleCodes(c.Request().Context(), gc.Config, gc.Es7Client, sampleCodes, nil, "")
		if err != nil {
			return mvc.RespondError(c, err)
		}
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, genotypes, alleles); err != nil {
		return mvc.RespondError(c, err)
	}

	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=alleles-%s.xlsx", time.Now().Format("20060102-150405")))
	return c.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
