package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronSchedules holds the cron specs (with seconds) of background jobs
type CronSchedules struct {
	OrphanSweep string
	Completion  string
}

// CronService manages scheduled background jobs
type CronService struct {
	cron          *cron.Cron
	sweeper       *OrphanSweeper
	cancellations *CancellationService
	schedules     CronSchedules
	logger        *logrus.Logger
	timeout       time.Duration
}

// NewCronService creates a new CronService
func NewCronService(sweeper *OrphanSweeper, cancellations *CancellationService, schedules CronSchedules, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:          cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		sweeper:       sweeper,
		cancellations: cancellations,
		schedules:     schedules,
		logger:        logger,
		timeout:       5 * time.Minute,
	}
}

// Start registers and starts all jobs
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.schedules.OrphanSweep, s.orphanSweepJob); err != nil {
		return fmt.Errorf("failed to schedule orphan sweep job: %w", err)
	}
	if _, err := s.cron.AddFunc(s.schedules.Completion, s.completionJob); err != nil {
		return fmt.Errorf("failed to schedule completion job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"orphan_sweep": s.schedules.OrphanSweep,
		"completion":   s.schedules.Completion,
	}).Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) orphanSweepJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.sweeper.CleanupOrphanedBookings(ctx, nil); err != nil {
		s.logger.WithError(err).Error("[CRON] Orphan sweep failed")
	}
}

func (s *CronService) completionJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.cancellations.CompleteDepartedBookings(ctx); err != nil {
		s.logger.WithError(err).Error("[CRON] Completing departed bookings failed")
	}
}

// Entries reports the next run of each job
func (s *CronService) Entries() []map[string]interface{} {
	entries := s.cron.Entries()
	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       e.ID,
			"next_run": e.Next,
			"prev_run": e.Prev,
		})
	}
	return jobs
}
