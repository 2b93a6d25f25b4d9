package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kontiki/avisos/server/notifier"
	"github.com/kontiki/avisos/shared"
)

// Scheduler owns the daily dispatch job: started with the service, torn down
// exactly once on shutdown.
type Scheduler struct {
	cron     *gocron.Scheduler
	notifier *notifier.Notifier
	logg     *zap.SugaredLogger
	at       string
	stopOnce sync.Once
}

func New(config shared.CronConfig, n *notifier.Notifier, logg *zap.SugaredLogger) *Scheduler {
	timeZone, err := time.LoadLocation(config.TimeZone)
	if err != nil {
		logg.Warnf("unknown time zone %q, falling back to UTC", config.TimeZone)
		timeZone = time.UTC
	}

	cron := gocron.NewScheduler(timeZone)
	cron.TagsUnique()

	return &Scheduler{cron: cron, notifier: n, logg: logg, at: config.At}
}

func (s *Scheduler) Start() error {
	_, err := s.cron.Every(1).Day().At(s.at).Tag("daily_notifications").Do(s.runDaily)
	if err != nil {
		return err
	}

	s.cron.StartAsync()
	s.logg.Infof("daily notification job scheduled at %s", s.at)
	return nil
}

func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cron.Stop()
		s.logg.Info("scheduler stopped")
	})
}

func (s *Scheduler) runDaily() {
	result := s.notifier.RunToday(context.Background())

	failures := 0
	for _, delivery := range result.Sent {
		if !delivery.OK {
			failures++
		}
	}
	s.logg.Infof("daily run for %s: %d sent, %d failed",
		result.Today, len(result.Sent)-failures, failures)
}
