package postgres

import (
	"context"
	"database/sql"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"

	_ "github.com/lib/pq"
)

// queryer is satisfied by both *sql.DB and *sql.Tx so the document accessors
// can be shared between the repositories and the approval transaction.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Store struct {
	db *sql.DB
	repository.TaskRequestRepository
	repository.TaskRepository
	repository.UserRepository
	repository.AuditLogRepository
	repository.ApprovalStore
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		TaskRequestRepository: NewTaskRequestRepository(db),
		TaskRepository:        NewTaskRepository(db),
		UserRepository:        NewUserRepository(db),
		AuditLogRepository:    NewAuditLogRepository(db),
		ApprovalStore:         NewApprovalStore(db),
	}
}
