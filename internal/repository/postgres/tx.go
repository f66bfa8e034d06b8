package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/logger"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"

	"github.com/lib/pq"
)

// maxTxAttempts bounds the transparent retry of serialization conflicts.
const maxTxAttempts = 5

type approvalStore struct {
	db *sql.DB
}

func NewApprovalStore(db *sql.DB) repository.ApprovalStore {
	return &approvalStore{db: db}
}

func (s *approvalStore) RunApproval(ctx context.Context, fn func(tx repository.ApprovalTx) error) error {
	return runSerializable(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&approvalTx{tx: tx})
	})
}

// runSerializable executes fn inside a serializable transaction, retrying
// serialization and deadlock failures with linear backoff. Postgres aborts
// all but one of a set of conflicting serializable transactions, which is
// what makes the approval single-winner without any application locks.
func runSerializable(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = runTxOnce(ctx, db, fn)
		if err == nil || !retryableTxError(err) {
			return err
		}
		logger.WarnContext(ctx, "serialization conflict, retrying transaction", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return err
}

func runTxOnce(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func retryableTxError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 40001 serialization_failure, 40P01 deadlock_detected
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

type approvalTx struct {
	tx *sql.Tx
}

func (t *approvalTx) GetTaskRequest(ctx context.Context, id string) (*domain.TaskRequest, error) {
	return getTaskRequest(ctx, t.tx, id)
}

func (t *approvalTx) UpdateTaskRequest(ctx context.Context, tr *domain.TaskRequest) error {
	return updateTaskRequest(ctx, t.tx, tr)
}

func (t *approvalTx) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return getTask(ctx, t.tx, id)
}

func (t *approvalTx) UpdateTask(ctx context.Context, task *domain.Task) error {
	return updateTask(ctx, t.tx, task)
}

func (t *approvalTx) CreateTask(ctx context.Context, task *domain.Task) error {
	return createTask(ctx, t.tx, task)
}
