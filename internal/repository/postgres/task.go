package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"

	"github.com/google/uuid"
)

type taskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) repository.TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	return createTask(ctx, r.db, task)
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return getTask(ctx, r.db, id)
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	return updateTask(ctx, r.db, task)
}

func createTask(ctx context.Context, q queryer, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	doc, err := json.Marshal(task)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `INSERT INTO tasks (id, doc) VALUES ($1, $2)`, task.ID, doc)
	return err
}

func getTask(ctx context.Context, q queryer, id string) (*domain.Task, error) {
	var doc []byte
	err := q.QueryRowContext(ctx, `SELECT doc FROM tasks WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	task := &domain.Task{}
	if err := json.Unmarshal(doc, task); err != nil {
		return nil, err
	}
	task.ID = id
	return task, nil
}

func updateTask(ctx context.Context, q queryer, task *domain.Task) error {
	doc, err := json.Marshal(task)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `UPDATE tasks SET doc = $2 WHERE id = $1`, task.ID, doc)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
