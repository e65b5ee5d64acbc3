package peaks

import (
	at "spatools/api/models/constants/assay-type"
	"spatools/api/models/indexes"
	"spatools/api/mvc"

	"github.com/labstack/echo"
)

func PeaksIngest(c echo.Context) error {
	return mvc.RunIngestion(c, at.Microsatellite, indexes.PeaksIndex)
}
