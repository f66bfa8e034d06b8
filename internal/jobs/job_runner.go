package jobs

import (
	"context"
	"time"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/config"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/logger"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/service"
)

const jobTimeout = 30 * time.Minute

// JobRunner coordinates the scheduled migration sweeps
type JobRunner struct {
	migrations service.MigrationService
	config     *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(migrations service.MigrationService, cfg *config.Config) *JobRunner {
	return &JobRunner{
		migrations: migrations,
		config:     cfg,
	}
}

// Config returns the loaded configuration
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// BackfillTaskRequests stamps the request type onto legacy task request
// documents in batches
func (jr *JobRunner) BackfillTaskRequests() {
	jr.runWithRecovery("BackfillTaskRequests", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		summary, err := jr.migrations.BackfillRequestType(ctx)
		if err != nil {
			logger.Error("Failed to backfill task requests", "error", err)
			return
		}

		logger.Info("Backfilled task requests",
			"scanned", summary.Scanned,
			"updated", summary.Updated,
			"failed", summary.Failed)
	})
}

// CleanupTaskRequests strips the superseded fields from task request
// documents already carrying the current shape
func (jr *JobRunner) CleanupTaskRequests() {
	jr.runWithRecovery("CleanupTaskRequests", func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		summary, err := jr.migrations.CleanupLegacyFields(ctx)
		if err != nil {
			logger.Error("Failed to clean up task requests", "error", err)
			return
		}

		logger.Info("Cleaned up task requests",
			"scanned", summary.Scanned,
			"updated", summary.Updated,
			"failed", summary.Failed)
	})
}
