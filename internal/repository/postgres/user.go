package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.scan(r.db.QueryRowContext(ctx, `SELECT id, doc FROM users WHERE id = $1`, id))
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.scan(r.db.QueryRowContext(ctx, `SELECT id, doc FROM users WHERE doc->>'username' = $1 LIMIT 1`, username))
}

func (r *userRepository) scan(row *sql.Row) (*domain.User, error) {
	var id string
	var doc []byte
	if err := row.Scan(&id, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	user := &domain.User{}
	if err := json.Unmarshal(doc, user); err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}
