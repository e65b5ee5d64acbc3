package contexts

import (
	"spatools/api/models"
	"spatools/api/services"
	"spatools/api/services/metrics"
	"spatools/api/services/peakfilter"

	es7 "github.com/elastic/go-elasticsearch/v7"
	"github.com/labstack/echo"
	"github.com/rs/zerolog"
)

type (
	// "Helper" Context to pass into routes that need
	//  an elasticsearch client and other variables
	SpaContext struct {
		echo.Context
		Es7Client        *es7.Client
		Config           *models.Config
		Log              zerolog.Logger
		IngestionService *services.IngestionService
		Metrics          *metrics.Recorder
		Presets          map[string]peakfilter.Params

		// Optional values filled in by middleware
		SampleIds     []string
		PeakSampleIds []int64
		MarkerIds     []int64
		Batch         string
		FilterParams  peakfilter.Params
	}
)
