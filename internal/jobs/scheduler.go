package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// VerdictPurger removes expired link verdicts from the cache store.
type VerdictPurger interface {
	PurgeExpired(ctx context.Context) int
}

// CoverTrimmer drops published covers beyond the configured window.
type CoverTrimmer interface {
	Trim(ctx context.Context, keep int) (int, error)
}

// Scheduler runs the periodic maintenance work: hourly verdict purges
// and a daily cover trim. Nil collaborators disable their job.
type Scheduler struct {
	cron    *cron.Cron
	purger  VerdictPurger
	trimmer CoverTrimmer
	keep    int
	log     zerolog.Logger
}

func NewScheduler(purger VerdictPurger, trimmer CoverTrimmer, keepCovers int, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:    c,
		purger:  purger,
		trimmer: trimmer,
		keep:    keepCovers,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if s.purger != nil {
		if _, err := s.cron.AddFunc("0 0 */1 * * *", s.purgeVerdicts); err != nil {
			return err
		}
	}
	if s.trimmer != nil {
		if _, err := s.cron.AddFunc("0 0 4 * * *", s.trimCovers); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		s.cron.Stop()
		cancel()
	}()
	return cancel
}

func (s *Scheduler) purgeVerdicts() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed := s.purger.PurgeExpired(ctx)
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("purged expired verdicts")
	}
}

func (s *Scheduler) trimCovers() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.trimmer.Trim(ctx, s.keep)
	if err != nil {
		s.log.Error().Err(err).Msg("trim covers failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("trimmed published covers")
	}
}
