package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/logger"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/service"

	"github.com/gorilla/mux"
)

type TaskRequestHandler struct {
	svc        service.TaskRequestService
	migrations service.MigrationService
	auditRepo  repository.AuditLogRepository
}

func NewTaskRequestHandler(svc service.TaskRequestService, migrations service.MigrationService, auditRepo repository.AuditLogRepository) *TaskRequestHandler {
	return &TaskRequestHandler{svc: svc, migrations: migrations, auditRepo: auditRepo}
}

type createTaskRequestBody struct {
	RequestType       string `json:"requestType"`
	UserID            string `json:"userId"`
	TaskID            string `json:"taskId"`
	ExternalIssueURL  string `json:"externalIssueUrl"`
	ProposedStartDate int64  `json:"proposedStartDate"`
	ProposedDeadline  int64  `json:"proposedDeadline"`
	Description       string `json:"description"`
}

func (h *TaskRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}

	var body createTaskRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.UserID == "" {
		body.UserID = actor.ID
	}
	requestType := domain.TaskRequestType(body.RequestType)
	switch requestType {
	case domain.TaskRequestTypeAssignment:
		if body.TaskID == "" {
			writeMessage(w, http.StatusBadRequest, "taskId is required for an assignment request")
			return
		}
	case domain.TaskRequestTypeCreation:
		if body.ExternalIssueURL == "" {
			writeMessage(w, http.StatusBadRequest, "externalIssueUrl is required for a creation request")
			return
		}
	default:
		writeMessage(w, http.StatusBadRequest, "requestType must be ASSIGNMENT or CREATION")
		return
	}

	res, err := h.svc.CreateOrJoin(r.Context(), actor, service.TaskRequestIntake{
		RequestType:       requestType,
		UserID:            body.UserID,
		TaskID:            body.TaskID,
		ExternalIssueURL:  body.ExternalIssueURL,
		ProposedStartDate: body.ProposedStartDate,
		ProposedDeadline:  body.ProposedDeadline,
		Description:       body.Description,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "task request intake failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "An internal server error occurred")
		return
	}

	switch {
	case res.TaskNotFound:
		writeMessage(w, http.StatusNotFound, "Task not found")
	case res.IsCreationRequestApproved:
		writeMessage(w, http.StatusConflict, "Task request for this issue has already been approved")
	case res.AlreadyRequesting:
		writeMessage(w, http.StatusConflict, "User is already requesting for the task")
	case res.IsCreate:
		h.audit(r, domain.AuditTypeTaskRequestCreated, actor, res.ID, body.UserID)
		writeJSON(w, http.StatusCreated, map[string]any{
			"message":     "Task request created successfully",
			"id":          res.ID,
			"taskRequest": res.TaskRequest,
		})
	default:
		h.audit(r, domain.AuditTypeTaskRequestJoined, actor, res.ID, body.UserID)
		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Task request updated successfully",
			"id":          res.ID,
			"taskRequest": res.TaskRequest,
		})
	}
}

func (h *TaskRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size := int64(0)
	if raw := q.Get("size"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed < 0 {
			writeMessage(w, http.StatusBadRequest, "size must be a non-negative integer")
			return
		}
		size = parsed
	}

	page, err := h.svc.List(r.Context(), repository.ListFilter{
		TaskID:   q.Get("taskId"),
		Status:   domain.TaskRequestStatus(q.Get("status")),
		Assignee: q.Get("assignee"),
		Cursor:   q.Get("next"),
		Size:     int32(size),
		Order:    q.Get("order"),
		Dev:      q.Get("dev") == "true",
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "task request listing failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "An internal server error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Task requests returned successfully",
		"requests": page.Requests,
		"next":     page.Next,
	})
}

func (h *TaskRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	enriched, err := h.svc.Get(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Task request not found")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "task request fetch failed", "taskRequestId", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "An internal server error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Task request returned successfully",
		"taskRequest": enriched,
	})
}

func (h *TaskRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, true)
}

func (h *TaskRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, false)
}

func (h *TaskRequestHandler) decide(w http.ResponseWriter, r *http.Request, approve bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthenticated")
		return
	}
	id := mux.Vars(r)["id"]

	var res *service.DecisionResult
	var err error
	if approve {
		res, err = h.svc.Approve(r.Context(), id, actor)
	} else {
		res, err = h.svc.Reject(r.Context(), id, actor)
	}
	if errors.Is(err, repository.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Task not found")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "task request decision failed", "taskRequestId", id, "error", err)
		writeMessage(w, http.StatusInternalServerError, "An internal server error occurred")
		return
	}

	switch {
	case res.TaskRequestNotFound:
		writeMessage(w, http.StatusNotFound, "Task request not found")
	case res.IsUserInvalid:
		writeMessage(w, http.StatusForbidden, "User is not a requestor on this task request")
	case res.IsTaskRequestInvalid:
		writeMessage(w, http.StatusConflict, "Task request is already resolved")
	case approve:
		h.audit(r, domain.AuditTypeTaskRequestApproved, actor, id, actor.ID)
		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Task request approved successfully",
			"approvedTo":  res.ApprovedTo,
			"taskRequest": res.TaskRequest,
		})
	default:
		h.audit(r, domain.AuditTypeTaskRequestDenied, actor, id, actor.ID)
		writeJSON(w, http.StatusOK, map[string]any{
			"message":     "Task request denied successfully",
			"taskRequest": res.TaskRequest,
		})
	}
}

type migrationBody struct {
	Action string `json:"action"`
}

func (h *TaskRequestHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	var body migrationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var summary *service.MigrationSummary
	var err error
	switch body.Action {
	case "ADD_NEW_FIELDS":
		summary, err = h.migrations.BackfillRequestType(r.Context())
	case "REMOVE_OLD_FIELDS":
		summary, err = h.migrations.CleanupLegacyFields(r.Context())
	default:
		writeMessage(w, http.StatusBadRequest, "action must be ADD_NEW_FIELDS or REMOVE_OLD_FIELDS")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "migration pass failed", "action", body.Action, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"message": "Migration aborted",
			"summary": summary,
		})
		return
	}

	if actor, ok := ActorFromContext(r.Context()); ok {
		h.audit(r, domain.AuditTypeTaskRequestMigrated, actor, body.Action, "")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Migration completed",
		"summary": summary,
	})
}

// audit appends to the audit trail after a successful action. The write is
// best effort; the action it records has already committed.
func (h *TaskRequestHandler) audit(r *http.Request, auditType string, actor domain.Actor, subject, userID string) {
	meta := map[string]string{
		"subject":   subject,
		"createdBy": actor.ID,
	}
	if userID != "" {
		meta["userId"] = userID
	}
	entry := &domain.AuditLog{
		Type:      auditType,
		Meta:      meta,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := h.auditRepo.Append(r.Context(), entry); err != nil {
		logger.WarnContext(r.Context(), "audit append failed", "type", auditType, "error", err)
	}
}
