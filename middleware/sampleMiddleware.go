package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"spatools/api/contexts"
	"spatools/api/utils"

	"github.com/labstack/echo"
)

/*
Echo middleware to prepare the context for an optionally provided pluralized `id` (spelled `ids`) HTTP query parameter
*/
func CalibrateOptionalSampleIdsPluralAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.SpaContext)

		// no ids means every sample
		gc.SampleIds = append(gc.SampleIds, utils.SplitCommaList(c.QueryParam("ids"))...)
		gc.Batch = c.QueryParam("batch")
		return next(gc)
	}
}

/*
Echo middleware to ensure the `ids` HTTP query parameter holds at least one numeric peak sample id
*/
func MandatePeakSampleIdsAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.SpaContext)

		ids, err := parseIds(c.QueryParam("ids"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid ids: %s", err))
		}
		if len(ids) == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "Missing 'ids' query parameter!")
		}

		gc.PeakSampleIds = ids
		return next(gc)
	}
}

/*
Echo middleware to prepare the context for an optionally provided `markers` HTTP query parameter
*/
func CalibrateOptionalMarkerIdsAttribute(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.SpaContext)

		ids, err := parseIds(c.QueryParam("markers"))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid markers: %s", err))
		}

		gc.MarkerIds = ids
		return next(gc)
	}
}

func parseIds(qp string) ([]int64, error) {
	values := utils.SplitCommaList(qp)
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
