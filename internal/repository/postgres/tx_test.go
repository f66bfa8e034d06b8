package postgres

import (
	"context"
	"testing"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestApprovalStore_RunApproval(t *testing.T) {
	ctx := context.Background()

	t.Run("CommitsOnSuccess", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		doc := `{"requestType": "ASSIGNMENT", "taskId": "task-1", "status": "PENDING"}`
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT doc FROM task_requests WHERE id = \\$1").
			WithArgs("tr-1").
			WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(doc)))
		mock.ExpectExec("UPDATE task_requests SET doc = \\$2 WHERE id = \\$1").
			WithArgs("tr-1", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		store := NewApprovalStore(db)
		err = store.RunApproval(ctx, func(tx repository.ApprovalTx) error {
			tr, err := tx.GetTaskRequest(ctx, "tr-1")
			if err != nil {
				return err
			}
			tr.Status = domain.TaskRequestStatusApproved
			return tx.UpdateTaskRequest(ctx, tr)
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RetriesSerializationConflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		conflict := &pq.Error{Code: "40001", Message: "could not serialize access"}

		// First attempt loses the serialization race and is rolled back.
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT doc FROM task_requests WHERE id = \\$1").
			WithArgs("tr-1").
			WillReturnError(conflict)
		mock.ExpectRollback()

		// Second attempt runs against the committed state.
		doc := `{"requestType": "ASSIGNMENT", "taskId": "task-1", "status": "APPROVED"}`
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT doc FROM task_requests WHERE id = \\$1").
			WithArgs("tr-1").
			WillReturnRows(sqlmock.NewRows([]string{"doc"}).AddRow([]byte(doc)))
		mock.ExpectCommit()

		store := NewApprovalStore(db)
		attempts := 0
		err = store.RunApproval(ctx, func(tx repository.ApprovalTx) error {
			attempts++
			_, err := tx.GetTaskRequest(ctx, "tr-1")
			return err
		})
		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DoesNotRetryOtherErrors", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT doc FROM task_requests WHERE id = \\$1").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows([]string{"doc"}))
		mock.ExpectRollback()

		store := NewApprovalStore(db)
		attempts := 0
		err = store.RunApproval(ctx, func(tx repository.ApprovalTx) error {
			attempts++
			_, err := tx.GetTaskRequest(ctx, "missing")
			return err
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Equal(t, 1, attempts)
	})

	t.Run("GivesUpAfterMaxAttempts", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
		}
		defer db.Close()

		conflict := &pq.Error{Code: "40001", Message: "could not serialize access"}
		for i := 0; i < maxTxAttempts; i++ {
			mock.ExpectBegin()
			mock.ExpectQuery("SELECT doc FROM task_requests WHERE id = \\$1").
				WithArgs("tr-1").
				WillReturnError(conflict)
			mock.ExpectRollback()
		}

		store := NewApprovalStore(db)
		err = store.RunApproval(ctx, func(tx repository.ApprovalTx) error {
			_, err := tx.GetTaskRequest(ctx, "tr-1")
			return err
		})
		var pqErr *pq.Error
		assert.ErrorAs(t, err, &pqErr)
		assert.Equal(t, pq.ErrorCode("40001"), pqErr.Code)
	})
}
