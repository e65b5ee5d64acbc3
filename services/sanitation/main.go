package sanitation

import (
	"fmt"
	"time"

	"spatools/api/models"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// RequestPurger forgets finished ingest requests last updated before
// cutoff.
type RequestPurger interface {
	PurgeFinished(cutoff time.Time) int
}

type (
	SanitationService struct {
		Initialized bool
		Config      *models.Config
		Requests    RequestPurger
		Logger      zerolog.Logger

		scheduler *gocron.Scheduler
		now       func() time.Time
	}
)

func NewSanitationService(cfg *models.Config, requests RequestPurger, logger zerolog.Logger) (*SanitationService, error) {
	ss := &SanitationService{
		Initialized: false,
		Config:      cfg,
		Requests:    requests,
		Logger:      logger.With().Str("component", "sanitation").Logger(),
		now:         time.Now,
	}

	if err := ss.Init(); err != nil {
		return nil, err
	}
	return ss, nil
}

func (ss *SanitationService) Init() error {
	if ss.Initialized {
		return nil
	}
	if ss.Config.Sanitation.Interval <= 0 {
		return fmt.Errorf("sanitation interval must be positive, got %s", ss.Config.Sanitation.Interval)
	}

	// periodically drop the bookkeeping of ingest requests that finished
	// longer ago than the retention window
	s := gocron.NewScheduler(time.UTC)
	if _, err := s.Every(ss.Config.Sanitation.Interval).Do(ss.sweep); err != nil {
		return err
	}
	s.StartAsync()

	ss.scheduler = s
	ss.Initialized = true
	ss.Logger.Info().Dur("interval", ss.Config.Sanitation.Interval).Dur("retention", ss.Config.Sanitation.Retention).Msg("sanitation service initialized")
	return nil
}

func (ss *SanitationService) sweep() int {
	cutoff := ss.now().Add(-ss.Config.Sanitation.Retention)
	removed := ss.Requests.PurgeFinished(cutoff)
	if removed > 0 {
		ss.Logger.Info().Int("removed", removed).Time("cutoff", cutoff).Msg("purged finished ingest requests")
	}
	return removed
}

func (ss *SanitationService) Stop() {
	if ss.scheduler != nil {
		ss.scheduler.Stop()
	}
}
