package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type taskRequestRepository struct {
	db *sql.DB
}

func NewTaskRequestRepository(db *sql.DB) repository.TaskRequestRepository {
	return &taskRequestRepository{db: db}
}

func (r *taskRequestRepository) Create(ctx context.Context, tr *domain.TaskRequest) error {
	return createTaskRequest(ctx, r.db, tr)
}

func (r *taskRequestRepository) GetByID(ctx context.Context, id string) (*domain.TaskRequest, error) {
	return getTaskRequest(ctx, r.db, id)
}

func (r *taskRequestRepository) Update(ctx context.Context, tr *domain.TaskRequest) error {
	return updateTaskRequest(ctx, r.db, tr)
}

func (r *taskRequestRepository) FindOpenByTask(ctx context.Context, taskID string) (*domain.TaskRequest, error) {
	query := `SELECT id, doc FROM task_requests WHERE doc->>'taskId' = $1 AND doc->>'status' = $2 LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, taskID, domain.TaskRequestStatusPending))
}

func (r *taskRequestRepository) FindByIssue(ctx context.Context, issueURL string, statuses []domain.TaskRequestStatus) (*domain.TaskRequest, error) {
	ss := make([]string, len(statuses))
	for i, s := range statuses {
		ss[i] = string(s)
	}
	query := `SELECT id, doc FROM task_requests WHERE doc->>'externalIssueUrl' = $1 AND doc->>'status' = ANY($2) LIMIT 1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, issueURL, pq.Array(ss)))
}

func (r *taskRequestRepository) List(ctx context.Context, f repository.ListFilter) ([]domain.TaskRequest, string, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 4)
	if !f.Dev {
		where = append(where, "NOT (doc ? 'requestType')")
	}
	if f.TaskID != "" {
		args = append(args, f.TaskID)
		where = append(where, fmt.Sprintf("doc->>'taskId' = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("doc->>'status' = $%d", len(args)))
	}
	if f.Assignee != "" {
		args = append(args, f.Assignee)
		where = append(where, fmt.Sprintf("doc->>'approvedTo' = $%d", len(args)))
	}

	order := "ASC"
	cursorOp := ">"
	if strings.EqualFold(f.Order, "desc") {
		order = "DESC"
		cursorOp = "<"
	}
	if f.Cursor != "" {
		args = append(args, f.Cursor)
		where = append(where, fmt.Sprintf("id %s $%d", cursorOp, len(args)))
	}

	query := "SELECT id, doc FROM task_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	// Fetch one extra row to decide whether a continuation cursor exists.
	args = append(args, f.Size+1)
	query += fmt.Sprintf(" ORDER BY id %s LIMIT $%d", order, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	reqs, err := scanTaskRequests(rows)
	if err != nil {
		return nil, "", err
	}
	next := ""
	if int32(len(reqs)) > f.Size {
		reqs = reqs[:f.Size]
		next = reqs[len(reqs)-1].ID
	}
	return reqs, next, nil
}

func (r *taskRequestRepository) ListLegacy(ctx context.Context, afterID string, limit int32) ([]domain.TaskRequest, error) {
	query := `SELECT id, doc FROM task_requests WHERE NOT (doc ? 'requestType') AND id > $1 ORDER BY id ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaskRequests(rows)
}

func (r *taskRequestRepository) ListIDsWithLegacyFields(ctx context.Context, afterID string, limit int32) ([]string, error) {
	query := `SELECT id FROM task_requests WHERE (doc ? 'requestors' OR doc ? 'approvedTo') AND id > $1 ORDER BY id ASC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateBatch groups the updates of one migration batch into a single
// transaction. The batch commits or rolls back as a unit; batches are
// independent of each other.
func (r *taskRequestRepository) UpdateBatch(ctx context.Context, reqs []*domain.TaskRequest) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, tr := range reqs {
		if err := updateTaskRequest(ctx, tx, tr); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *taskRequestRepository) StripLegacyFields(ctx context.Context, ids []string) error {
	query := `UPDATE task_requests SET doc = (doc - 'requestors') - 'approvedTo' WHERE id = ANY($1)`
	_, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	return err
}

func (r *taskRequestRepository) scanOne(row *sql.Row) (*domain.TaskRequest, error) {
	var id string
	var doc []byte
	if err := row.Scan(&id, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return domain.DecodeTaskRequest(id, doc)
}

func scanTaskRequests(rows *sql.Rows) ([]domain.TaskRequest, error) {
	var reqs []domain.TaskRequest
	for rows.Next() {
		var id string
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, err
		}
		tr, err := domain.DecodeTaskRequest(id, doc)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *tr)
	}
	return reqs, rows.Err()
}

// Shared document accessors, usable from both the repository and the
// approval transaction.

func createTaskRequest(ctx context.Context, q queryer, tr *domain.TaskRequest) error {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	doc, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO task_requests (id, doc) VALUES ($1, $2)`, tr.ID, doc)
	return err
}

func getTaskRequest(ctx context.Context, q queryer, id string) (*domain.TaskRequest, error) {
	var doc []byte
	err := q.QueryRowContext(ctx, `SELECT doc FROM task_requests WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return domain.DecodeTaskRequest(id, doc)
}

func updateTaskRequest(ctx context.Context, q queryer, tr *domain.TaskRequest) error {
	doc, err := json.Marshal(tr)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `UPDATE task_requests SET doc = $2 WHERE id = $1`, tr.ID, doc)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
