package repository

import (
	"context"
	"errors"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// ListFilter narrows and pages a task request listing. Cursor is the id of
// the last document of the previous page; Dev adds migrated documents to the
// default legacy-only view.
type ListFilter struct {
	TaskID   string
	Status   domain.TaskRequestStatus
	Assignee string // matches approvedTo
	Cursor   string
	Size     int32
	Order    string // "asc" (default) or "desc"
	Dev      bool
}

type TaskRequestRepository interface {
	Create(ctx context.Context, tr *domain.TaskRequest) error
	GetByID(ctx context.Context, id string) (*domain.TaskRequest, error)
	Update(ctx context.Context, tr *domain.TaskRequest) error

	// FindOpenByTask returns the PENDING request claiming taskID, if any.
	FindOpenByTask(ctx context.Context, taskID string) (*domain.TaskRequest, error)
	// FindByIssue returns the request for issueURL whose status is one of
	// statuses, if any. The open-request invariant keeps this unique.
	FindByIssue(ctx context.Context, issueURL string, statuses []domain.TaskRequestStatus) (*domain.TaskRequest, error)

	List(ctx context.Context, f ListFilter) ([]domain.TaskRequest, string, error)

	// Migration support. ListLegacy pages documents still lacking a
	// requestType; ListIDsWithLegacyFields pages ids of documents still
	// carrying requestors or approvedTo.
	ListLegacy(ctx context.Context, afterID string, limit int32) ([]domain.TaskRequest, error)
	ListIDsWithLegacyFields(ctx context.Context, afterID string, limit int32) ([]string, error)
	UpdateBatch(ctx context.Context, reqs []*domain.TaskRequest) error
	StripLegacyFields(ctx context.Context, ids []string) error
}

type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type AuditLogRepository interface {
	Append(ctx context.Context, entry *domain.AuditLog) error
}

// ApprovalTx exposes the documents reachable inside one approval transaction.
// Reads and writes through it share the transaction's isolation.
type ApprovalTx interface {
	GetTaskRequest(ctx context.Context, id string) (*domain.TaskRequest, error)
	UpdateTaskRequest(ctx context.Context, tr *domain.TaskRequest) error
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	UpdateTask(ctx context.Context, task *domain.Task) error
	CreateTask(ctx context.Context, task *domain.Task) error
}

// ApprovalStore runs fn inside a single serializable transaction. fn may be
// invoked more than once when the store retries a serialization conflict, so
// it must be safe to re-run from scratch. Exactly one of any set of
// concurrent transactions touching the same documents commits first; the
// rest re-run against the committed state or fail with a conflict error.
type ApprovalStore interface {
	RunApproval(ctx context.Context, fn func(tx ApprovalTx) error) error
}
