package scheduler

import (
	"time"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/jobs"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

// registerJobs registers all scheduled jobs with the cron scheduler. An empty
// expression leaves that job unscheduled.
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	if cfg.BackfillTaskRequests != "" {
		_, err := s.cron.AddFunc(cfg.BackfillTaskRequests, s.jobs.BackfillTaskRequests)
		if err != nil {
			logger.Error("Failed to register BackfillTaskRequests job", "error", err)
		}
	}

	if cfg.CleanupTaskRequests != "" {
		_, err := s.cron.AddFunc(cfg.CleanupTaskRequests, s.jobs.CleanupTaskRequests)
		if err != nil {
			logger.Error("Failed to register CleanupTaskRequests job", "error", err)
		}
	}

	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has registered jobs
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
