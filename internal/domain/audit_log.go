package domain

// AuditLog is one append-only entry in the audit trail. Entries are written
// by the request boundary after a successful workflow action.
type AuditLog struct {
	ID        string            `json:"-"`
	Type      string            `json:"type"`
	Meta      map[string]string `json:"meta,omitempty"`
	Body      map[string]any    `json:"body,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

const (
	AuditTypeTaskRequestCreated  = "taskRequests.created"
	AuditTypeTaskRequestJoined   = "taskRequests.joined"
	AuditTypeTaskRequestApproved = "taskRequests.approved"
	AuditTypeTaskRequestDenied   = "taskRequests.denied"
	AuditTypeTaskRequestMigrated = "taskRequests.migrated"
)
