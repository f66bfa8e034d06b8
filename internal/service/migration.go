package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/logger"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"
)

type migrationService struct {
	trRepo    repository.TaskRequestRepository
	taskRepo  repository.TaskRepository
	batchSize int32
}

func NewMigrationService(trRepo repository.TaskRequestRepository, taskRepo repository.TaskRepository, batchSize int32) MigrationService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &migrationService{trRepo: trRepo, taskRepo: taskRepo, batchSize: batchSize}
}

// BackfillRequestType converts legacy-shaped documents to the current shape:
// requestType=ASSIGNMENT, users synthesized from requestors, taskTitle
// resolved from the task when reachable. Each pass only selects documents
// still lacking requestType, so re-running it is a no-op, and interrupting
// it loses nothing but progress. Batches commit independently.
func (s *migrationService) BackfillRequestType(ctx context.Context) (*MigrationSummary, error) {
	summary := &MigrationSummary{}
	afterID := ""
	for {
		batch, err := s.trRepo.ListLegacy(ctx, afterID, s.batchSize)
		if err != nil {
			return summary, fmt.Errorf("failed to list legacy requests: %w", err)
		}
		if len(batch) == 0 {
			return summary, nil
		}
		afterID = batch[len(batch)-1].ID

		updates := make([]*domain.TaskRequest, 0, len(batch))
		for i := range batch {
			tr := &batch[i]
			summary.Scanned++
			if err := s.prepareBackfill(ctx, tr); err != nil {
				logger.ErrorContext(ctx, "backfill skipped document", "taskRequestId", tr.ID, "error", err)
				summary.Failed++
				continue
			}
			updates = append(updates, tr)
		}

		if len(updates) == 0 {
			continue
		}
		if err := s.trRepo.UpdateBatch(ctx, updates); err != nil {
			logger.ErrorContext(ctx, "backfill batch write failed", "size", len(updates), "error", err)
			summary.Failed += len(updates)
			continue
		}
		summary.Updated += len(updates)
	}
}

// prepareBackfill finalizes the canonical form for persistence. The decoder
// already synthesized the users list and the ASSIGNMENT type; the title is
// resolved here because legacy documents never carried one.
func (s *migrationService) prepareBackfill(ctx context.Context, tr *domain.TaskRequest) error {
	tr.Legacy = false
	if tr.TaskID != "" && tr.TaskTitle == "" {
		task, err := s.taskRepo.GetByID(ctx, tr.TaskID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			logger.WarnContext(ctx, "backfill: referenced task missing", "taskRequestId", tr.ID, "taskId", tr.TaskID)
		case err != nil:
			return fmt.Errorf("failed to resolve task %s: %w", tr.TaskID, err)
		default:
			tr.TaskTitle = task.Title
		}
	}
	return nil
}

// CleanupLegacyFields strips the requestors mirror and approvedTo from every
// document. Run it only once every reader relies on the users list. The
// strip is a JSONB field removal, so documents already cleaned are selected
// out and re-running is a no-op.
func (s *migrationService) CleanupLegacyFields(ctx context.Context) (*MigrationSummary, error) {
	summary := &MigrationSummary{}
	afterID := ""
	for {
		ids, err := s.trRepo.ListIDsWithLegacyFields(ctx, afterID, s.batchSize)
		if err != nil {
			return summary, fmt.Errorf("failed to list documents with legacy fields: %w", err)
		}
		if len(ids) == 0 {
			return summary, nil
		}
		afterID = ids[len(ids)-1]
		summary.Scanned += len(ids)

		if err := s.trRepo.StripLegacyFields(ctx, ids); err != nil {
			logger.ErrorContext(ctx, "cleanup batch write failed", "size", len(ids), "error", err)
			summary.Failed += len(ids)
			continue
		}
		summary.Updated += len(ids)
	}
}
