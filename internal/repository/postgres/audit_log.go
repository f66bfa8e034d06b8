package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"

	"github.com/google/uuid"
)

type auditLogRepository struct {
	db *sql.DB
}

func NewAuditLogRepository(db *sql.DB) repository.AuditLogRepository {
	return &auditLogRepository{db: db}
}

// Append inserts one entry. The table is insert-only; nothing in the
// workflow updates or deletes audit documents.
func (r *auditLogRepository) Append(ctx context.Context, entry *domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	doc, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO audit_logs (id, doc) VALUES ($1, $2)`, entry.ID, doc)
	return err
}
