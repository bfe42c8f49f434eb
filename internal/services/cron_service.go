package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/tourbooking/booking-backend/internal/config"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron           *cron.Cron
	remediationSvc *RemediationService
	cfg            config.RemediationConfig
	now            Clock
	logger         *logrus.Logger
	jobs           map[cron.EntryID]string
}

// NewCronService creates a new CronService running in the business time zone
func NewCronService(remediationSvc *RemediationService, cfg config.RemediationConfig, location *time.Location, logger *logrus.Logger) *CronService {
	if location == nil {
		location = time.UTC
	}

	// Seconds precision: second minute hour day month weekday
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	return &CronService{
		cron:           c,
		remediationSvc: remediationSvc,
		cfg:            cfg,
		now:            time.Now,
		logger:         logger,
		jobs:           make(map[cron.EntryID]string),
	}
}

// WithClock replaces the clock passed to scheduled scans
func (s *CronService) WithClock(clock Clock) *CronService {
	s.now = clock
	return s
}

// Start registers the remediation passes and starts the scheduler
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	// Job 1: daily low-occupancy pass
	id, err := s.cron.AddFunc(s.cfg.DailyCron, func() { s.remediationJob("daily") })
	if err != nil {
		return fmt.Errorf("failed to schedule daily remediation job: %w", err)
	}
	s.jobs[id] = "remediation_daily"
	s.logger.WithField("schedule", s.cfg.DailyCron).Info("Scheduled: daily remediation pass")

	// Job 2: urgent pass for departures that are close
	id, err = s.cron.AddFunc(s.cfg.UrgentCron, func() { s.remediationJob("urgent") })
	if err != nil {
		return fmt.Errorf("failed to schedule urgent remediation job: %w", err)
	}
	s.jobs[id] = "remediation_urgent"
	s.logger.WithField("schedule", s.cfg.UrgentCron).Info("Scheduled: urgent remediation pass")

	s.cron.Start()
	s.logger.Info("Cron service started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) remediationJob(pass string) {
	log := s.logger.WithField("pass", pass)
	log.Info("[CRON] Starting remediation scan")
	startTime := time.Now()

	report := s.remediationSvc.RunRemediationScan(context.Background(), s.now())

	log.WithFields(logrus.Fields{
		"duration": time.Since(startTime).String(),
		"scanned":  report.Scanned,
		"failed":   report.Failed,
	}).Info("[CRON] Remediation scan done")
}

// RunRemediationNow runs a remediation pass immediately
func (s *CronService) RunRemediationNow(ctx context.Context) ScanReport {
	s.logger.Info("[MANUAL] Running remediation scan now...")
	return s.remediationSvc.RunRemediationScan(ctx, s.now())
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"name":     s.jobs[entry.ID],
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	status := map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
	if report := s.remediationSvc.LastReport(); report != nil {
		status["last_scan"] = report
	}
	return status
}
