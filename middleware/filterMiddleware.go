package middleware

import (
	"fmt"
	"net/http"

	"spatools/api/contexts"
	"spatools/api/services/peakfilter"
	"spatools/api/utils"

	"github.com/labstack/echo"
)

var filterParamKeys = []string{
	"abs_threshold",
	"rel_threshold",
	"rel_cutoff",
	"stutter_ratio",
	"stutter_range",
	"stutter_baseratio",
	"stutter_baserange",
	"peaktype",
}

/*
Echo middleware to build the peak filter parameters from either a named `preset`
or the individual filter HTTP query parameters
*/
func CalibrateFilterParams(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.SpaContext)

		raw := map[string]interface{}{}
		for _, key := range filterParamKeys {
			qp := c.QueryParam(key)
			if len(qp) == 0 {
				continue
			}
			if key == "peaktype" {
				raw[key] = utils.SplitCommaList(qp)
			} else {
				raw[key] = qp
			}
		}

		if preset := c.QueryParam("preset"); len(preset) > 0 {
			if len(raw) > 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "Filter parameters cannot be combined with a preset")
			}
			params, ok := gc.Presets[preset]
			if !ok {
				return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Unknown preset %s", preset))
			}
			gc.FilterParams = params
			return next(gc)
		}

		// accepted peak types fall back to the configured default
		if _, ok := raw["peaktype"]; !ok && len(gc.Config.Filter.PeakTypes) > 0 {
			raw["peaktype"] = gc.Config.Filter.PeakTypes
		}

		params, err := peakfilter.DecodeParams(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}

		gc.FilterParams = params
		return next(gc)
	}
}
