package service

import (
	"context"
	"testing"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestBackfillRequestType(t *testing.T) {
	ctx := context.Background()

	t.Run("StampsTypeAndResolvesTitle", func(t *testing.T) {
		trRepo := new(MockTaskRequestRepo)
		taskRepo := new(MockTaskRepo)
		svc := NewMigrationService(trRepo, taskRepo, 10)

		legacy := []domain.TaskRequest{
			{ID: "tr-1", RequestType: domain.TaskRequestTypeAssignment, TaskID: "task-1", Legacy: true,
				Status: domain.TaskRequestStatusPending,
				Users:  []domain.UserRequestEntry{{UserID: "u1", Status: domain.UserRequestStatusPending}}},
			{ID: "tr-2", RequestType: domain.TaskRequestTypeAssignment, TaskID: "task-gone", Legacy: true,
				Status: domain.TaskRequestStatusApproved},
		}
		trRepo.On("ListLegacy", ctx, "", int32(10)).Return(legacy, nil).Once()
		trRepo.On("ListLegacy", ctx, "tr-2", int32(10)).Return([]domain.TaskRequest{}, nil).Once()
		taskRepo.On("GetByID", ctx, "task-1").Return(&domain.Task{ID: "task-1", Title: "Fix pagination"}, nil)
		taskRepo.On("GetByID", ctx, "task-gone").Return(nil, repository.ErrNotFound)

		var written []*domain.TaskRequest
		trRepo.On("UpdateBatch", ctx, mock.AnythingOfType("[]*domain.TaskRequest")).
			Run(func(args mock.Arguments) {
				written = args.Get(1).([]*domain.TaskRequest)
			}).Return(nil).Once()

		summary, err := svc.BackfillRequestType(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 2, summary.Scanned)
		assert.Equal(t, 2, summary.Updated)
		assert.Equal(t, 0, summary.Failed)

		assert.Len(t, written, 2)
		assert.Equal(t, "Fix pagination", written[0].TaskTitle)
		assert.False(t, written[0].Legacy)
		// A missing task leaves the title empty but still migrates the doc.
		assert.Empty(t, written[1].TaskTitle)
		trRepo.AssertExpectations(t)
	})

	t.Run("TaskLookupErrorSkipsDocument", func(t *testing.T) {
		trRepo := new(MockTaskRequestRepo)
		taskRepo := new(MockTaskRepo)
		svc := NewMigrationService(trRepo, taskRepo, 10)

		legacy := []domain.TaskRequest{
			{ID: "tr-1", TaskID: "task-1", Legacy: true, Status: domain.TaskRequestStatusPending},
			{ID: "tr-2", TaskID: "task-2", Legacy: true, Status: domain.TaskRequestStatusPending},
		}
		trRepo.On("ListLegacy", ctx, "", int32(10)).Return(legacy, nil).Once()
		trRepo.On("ListLegacy", ctx, "tr-2", int32(10)).Return([]domain.TaskRequest{}, nil).Once()
		taskRepo.On("GetByID", ctx, "task-1").Return(nil, assert.AnError)
		taskRepo.On("GetByID", ctx, "task-2").Return(&domain.Task{ID: "task-2", Title: "Second"}, nil)

		trRepo.On("UpdateBatch", ctx, mock.MatchedBy(func(reqs []*domain.TaskRequest) bool {
			return len(reqs) == 1 && reqs[0].ID == "tr-2"
		})).Return(nil).Once()

		summary, err := svc.BackfillRequestType(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 2, summary.Scanned)
		assert.Equal(t, 1, summary.Updated)
		assert.Equal(t, 1, summary.Failed)
	})

	t.Run("NothingToMigrate", func(t *testing.T) {
		trRepo := new(MockTaskRequestRepo)
		svc := NewMigrationService(trRepo, new(MockTaskRepo), 10)

		trRepo.On("ListLegacy", ctx, "", int32(10)).Return([]domain.TaskRequest{}, nil).Once()

		summary, err := svc.BackfillRequestType(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 0, summary.Scanned)
		trRepo.AssertNotCalled(t, "UpdateBatch", mock.Anything, mock.Anything)
	})
}

func TestCleanupLegacyFields(t *testing.T) {
	ctx := context.Background()

	t.Run("StripsInBatches", func(t *testing.T) {
		trRepo := new(MockTaskRequestRepo)
		svc := NewMigrationService(trRepo, new(MockTaskRepo), 2)

		trRepo.On("ListIDsWithLegacyFields", ctx, "", int32(2)).Return([]string{"tr-1", "tr-2"}, nil).Once()
		trRepo.On("ListIDsWithLegacyFields", ctx, "tr-2", int32(2)).Return([]string{"tr-3"}, nil).Once()
		trRepo.On("ListIDsWithLegacyFields", ctx, "tr-3", int32(2)).Return([]string{}, nil).Once()
		trRepo.On("StripLegacyFields", ctx, []string{"tr-1", "tr-2"}).Return(nil).Once()
		trRepo.On("StripLegacyFields", ctx, []string{"tr-3"}).Return(nil).Once()

		summary, err := svc.CleanupLegacyFields(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 3, summary.Scanned)
		assert.Equal(t, 3, summary.Updated)
		assert.Equal(t, 0, summary.Failed)
		trRepo.AssertExpectations(t)
	})

	t.Run("BatchFailureContinues", func(t *testing.T) {
		trRepo := new(MockTaskRequestRepo)
		svc := NewMigrationService(trRepo, new(MockTaskRepo), 2)

		trRepo.On("ListIDsWithLegacyFields", ctx, "", int32(2)).Return([]string{"tr-1", "tr-2"}, nil).Once()
		trRepo.On("ListIDsWithLegacyFields", ctx, "tr-2", int32(2)).Return([]string{"tr-3"}, nil).Once()
		trRepo.On("ListIDsWithLegacyFields", ctx, "tr-3", int32(2)).Return([]string{}, nil).Once()
		trRepo.On("StripLegacyFields", ctx, []string{"tr-1", "tr-2"}).Return(assert.AnError).Once()
		trRepo.On("StripLegacyFields", ctx, []string{"tr-3"}).Return(nil).Once()

		summary, err := svc.CleanupLegacyFields(ctx)
		assert.NoError(t, err)
		assert.Equal(t, 3, summary.Scanned)
		assert.Equal(t, 1, summary.Updated)
		assert.Equal(t, 2, summary.Failed)
	})
}
