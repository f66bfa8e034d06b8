package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/cache"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/logger"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"

	"github.com/sourcegraph/conc"
)

const (
	defaultPageSize int32 = 20
	maxPageSize     int32 = 100
)

type taskRequestService struct {
	trRepo    repository.TaskRequestRepository
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	approvals repository.ApprovalStore
	issues    IssueTracker
	emailSvc  EmailService
	cache     *cache.Cache
	cacheTTL  time.Duration
}

func NewTaskRequestService(
	trRepo repository.TaskRequestRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	approvals repository.ApprovalStore,
	issues IssueTracker,
	emailSvc EmailService,
	userCache *cache.Cache,
	cacheTTL time.Duration,
) TaskRequestService {
	return &taskRequestService{
		trRepo:    trRepo,
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		approvals: approvals,
		issues:    issues,
		emailSvc:  emailSvc,
		cache:     userCache,
		cacheTTL:  cacheTTL,
	}
}

// CreateOrJoin creates a new task request for the intake target, or merges
// the user into the open request that already claims it. The open-request
// lookup is re-checked on every call; the only write is a single document
// insert or update.
func (s *taskRequestService) CreateOrJoin(ctx context.Context, actor domain.Actor, in TaskRequestIntake) (*IntakeResult, error) {
	existing, err := s.findOpenRequest(ctx, in)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up open request: %w", err)
	}

	now := time.Now().UnixMilli()
	if existing != nil {
		if in.RequestType == domain.TaskRequestTypeCreation && existing.Status == domain.TaskRequestStatusApproved {
			// An approved creation request permanently blocks new requests
			// for the same issue.
			return &IntakeResult{IsCreationRequestApproved: true, ID: existing.ID}, nil
		}
		if existing.HasRequestor(in.UserID) {
			return &IntakeResult{AlreadyRequesting: true, ID: existing.ID, TaskRequest: existing}, nil
		}

		existing.Users = append(existing.Users, domain.UserRequestEntry{
			UserID:            in.UserID,
			ProposedStartDate: in.ProposedStartDate,
			ProposedDeadline:  in.ProposedDeadline,
			Description:       in.Description,
			Status:            domain.UserRequestStatusPending,
		})
		existing.Requestors = append(existing.Requestors, in.UserID)
		existing.LastModifiedBy = actor.ID
		existing.LastModifiedAt = now
		if err := s.trRepo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to merge user into request %s: %w", existing.ID, err)
		}
		return &IntakeResult{IsCreate: false, ID: existing.ID, TaskRequest: existing}, nil
	}

	tr := &domain.TaskRequest{
		RequestType: in.RequestType,
		Status:      domain.TaskRequestStatusPending,
		Users: []domain.UserRequestEntry{{
			UserID:            in.UserID,
			ProposedStartDate: in.ProposedStartDate,
			ProposedDeadline:  in.ProposedDeadline,
			Description:       in.Description,
			Status:            domain.UserRequestStatusPending,
		}},
		Requestors:     []string{in.UserID},
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		LastModifiedBy: actor.ID,
		LastModifiedAt: now,
	}

	switch in.RequestType {
	case domain.TaskRequestTypeCreation:
		tr.ExternalIssueURL = in.ExternalIssueURL
		tr.TaskTitle = s.resolveIssueTitle(ctx, in.ExternalIssueURL)
	default:
		task, err := s.taskRepo.GetByID(ctx, in.TaskID)
		if errors.Is(err, repository.ErrNotFound) {
			return &IntakeResult{TaskNotFound: true}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch task %s: %w", in.TaskID, err)
		}
		tr.TaskID = in.TaskID
		tr.TaskTitle = task.Title
	}

	if err := s.trRepo.Create(ctx, tr); err != nil {
		return nil, fmt.Errorf("failed to create task request: %w", err)
	}
	return &IntakeResult{IsCreate: true, ID: tr.ID, TaskRequest: tr}, nil
}

func (s *taskRequestService) findOpenRequest(ctx context.Context, in TaskRequestIntake) (*domain.TaskRequest, error) {
	if in.RequestType == domain.TaskRequestTypeCreation {
		return s.trRepo.FindByIssue(ctx, in.ExternalIssueURL, []domain.TaskRequestStatus{
			domain.TaskRequestStatusPending,
			domain.TaskRequestStatusApproved,
		})
	}
	return s.trRepo.FindOpenByTask(ctx, in.TaskID)
}

// resolveIssueTitle denormalizes the issue title at creation time. A failed
// tracker lookup is logged and leaves the title empty; it never blocks the
// intake.
func (s *taskRequestService) resolveIssueTitle(ctx context.Context, issueURL string) string {
	owner, repo, number, err := ParseIssueURL(issueURL)
	if err != nil {
		logger.WarnContext(ctx, "cannot parse issue url", "url", issueURL, "error", err)
		return ""
	}
	issue, err := s.issues.FetchIssue(ctx, owner, repo, number)
	if err != nil {
		logger.WarnContext(ctx, "issue lookup failed", "url", issueURL, "error", err)
		return ""
	}
	return issue.Title
}

// Approve picks the actor as the accepted requestor and binds them to the
// task, inside one serializable transaction spanning the request and the
// task documents. The terminal-status check and the writes share the
// transaction, so concurrent approvals of the same request resolve to
// exactly one winner; every other attempt observes the terminal status and
// gets IsTaskRequestInvalid.
func (s *taskRequestService) Approve(ctx context.Context, taskRequestID string, actor domain.Actor) (*DecisionResult, error) {
	res := &DecisionResult{}
	err := s.approvals.RunApproval(ctx, func(tx repository.ApprovalTx) error {
		// The transaction may be retried; start every attempt clean.
		*res = DecisionResult{}

		tr, err := s.loadForDecision(ctx, tx, taskRequestID, actor, res)
		if err != nil || tr == nil {
			return err
		}

		entry := tr.UserEntry(actor.ID)
		if entry != nil {
			entry.Status = domain.UserRequestStatusApproved
		}
		tr.Status = domain.TaskRequestStatusApproved
		tr.ApprovedTo = actor.ID
		tr.LastModifiedBy = actor.ID
		tr.LastModifiedAt = time.Now().UnixMilli()

		if tr.RequestType == domain.TaskRequestTypeCreation {
			task := &domain.Task{
				Title:            tr.TaskTitle,
				Type:             domain.TaskTypeFeature,
				Assignee:         actor.ID,
				Status:           domain.TaskStatusAssigned,
				Priority:         domain.TaskPriorityDefault,
				PercentCompleted: 0,
			}
			applyProposedDates(task, entry)
			if tr.ExternalIssueURL != "" {
				task.GitHub = &domain.TaskGitHub{Issue: domain.TaskGitHubIssue{URL: tr.ExternalIssueURL}}
			}
			if err := tx.CreateTask(ctx, task); err != nil {
				return fmt.Errorf("failed to create task for request %s: %w", tr.ID, err)
			}
			tr.TaskID = task.ID
		} else {
			task, err := tx.GetTask(ctx, tr.TaskID)
			if err != nil {
				return fmt.Errorf("failed to fetch task %s: %w", tr.TaskID, err)
			}
			task.Assignee = actor.ID
			task.Status = domain.TaskStatusAssigned
			applyProposedDates(task, entry)
			if err := tx.UpdateTask(ctx, task); err != nil {
				return fmt.Errorf("failed to update task %s: %w", tr.TaskID, err)
			}
		}

		res.TaskRequest = tr
		return tx.UpdateTaskRequest(ctx, tr)
	})
	if err != nil {
		return nil, err
	}
	if res.TaskRequest == nil {
		return res, nil
	}

	res.ApprovedTo = actor.Username
	s.notifyDecision(ctx, actor, res.TaskRequest, true)
	return res, nil
}

// Reject is the symmetric terminal transition: same validations, status
// DENIED, no task mutation.
func (s *taskRequestService) Reject(ctx context.Context, taskRequestID string, actor domain.Actor) (*DecisionResult, error) {
	res := &DecisionResult{}
	err := s.approvals.RunApproval(ctx, func(tx repository.ApprovalTx) error {
		*res = DecisionResult{}

		tr, err := s.loadForDecision(ctx, tx, taskRequestID, actor, res)
		if err != nil || tr == nil {
			return err
		}

		if entry := tr.UserEntry(actor.ID); entry != nil {
			entry.Status = domain.UserRequestStatusDenied
		}
		tr.Status = domain.TaskRequestStatusDenied
		tr.LastModifiedBy = actor.ID
		tr.LastModifiedAt = time.Now().UnixMilli()

		res.TaskRequest = tr
		return tx.UpdateTaskRequest(ctx, tr)
	})
	if err != nil {
		return nil, err
	}
	if res.TaskRequest != nil {
		s.notifyDecision(ctx, actor, res.TaskRequest, false)
	}
	return res, nil
}

// loadForDecision runs the shared approval/rejection validations. A nil
// request with a nil error means a validation flag was set on res.
func (s *taskRequestService) loadForDecision(ctx context.Context, tx repository.ApprovalTx, id string, actor domain.Actor, res *DecisionResult) (*domain.TaskRequest, error) {
	tr, err := tx.GetTaskRequest(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		res.TaskRequestNotFound = true
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task request %s: %w", id, err)
	}
	if !tr.HasRequestor(actor.ID) {
		res.IsUserInvalid = true
		return nil, nil
	}
	if tr.Terminal() {
		res.IsTaskRequestInvalid = true
		return nil, nil
	}
	return tr, nil
}

// applyProposedDates copies the approved entry's proposed window onto the
// task, converting millisecond to second resolution.
func applyProposedDates(task *domain.Task, entry *domain.UserRequestEntry) {
	if entry == nil {
		return
	}
	if entry.ProposedStartDate > 0 {
		task.StartedOn = entry.ProposedStartDate / 1000
	}
	if entry.ProposedDeadline > 0 {
		task.EndsOn = entry.ProposedDeadline / 1000
	}
}

// notifyDecision emails the affected requestor. Best effort: failures are
// logged, the decision already committed.
func (s *taskRequestService) notifyDecision(ctx context.Context, actor domain.Actor, tr *domain.TaskRequest, approved bool) {
	user, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil || user.Email == "" {
		return
	}
	if approved {
		err = s.emailSvc.SendTaskRequestApprovedNotification(ctx, user.Email, actor.Username, tr.TaskTitle)
	} else {
		err = s.emailSvc.SendTaskRequestDeniedNotification(ctx, user.Email, actor.Username, tr.TaskTitle)
	}
	if err != nil {
		logger.WarnContext(ctx, "decision notification failed", "taskRequestId", tr.ID, "error", err)
	}
}

func (s *taskRequestService) Get(ctx context.Context, id string) (*EnrichedTaskRequest, error) {
	tr, err := s.trRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	enriched := s.enrich(ctx, tr, true)
	return &enriched, nil
}

// List returns one page of requests with their task and requestor joins.
// All per-row lookups for the page are issued concurrently and awaited
// together; a failed join leaves an absent marker on its row instead of
// failing the page.
func (s *taskRequestService) List(ctx context.Context, f repository.ListFilter) (*TaskRequestPage, error) {
	if f.Size <= 0 {
		f.Size = defaultPageSize
	}
	if f.Size > maxPageSize {
		f.Size = maxPageSize
	}

	reqs, next, err := s.trRepo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list task requests: %w", err)
	}

	enriched := make([]EnrichedTaskRequest, len(reqs))
	var wg conc.WaitGroup
	for i := range reqs {
		i := i
		wg.Go(func() {
			// Migrated rows may not have a task yet; only legacy rows get
			// the task join in the listing view.
			enriched[i] = s.enrich(ctx, &reqs[i], reqs[i].Legacy)
		})
	}
	wg.Wait()

	return &TaskRequestPage{Requests: enriched, Next: next}, nil
}

func (s *taskRequestService) enrich(ctx context.Context, tr *domain.TaskRequest, joinTask bool) EnrichedTaskRequest {
	e := EnrichedTaskRequest{ID: tr.ID, TaskRequest: *tr}

	if joinTask && tr.TaskID != "" {
		task, err := s.taskRepo.GetByID(ctx, tr.TaskID)
		if err != nil {
			logger.DebugContext(ctx, "task join failed", "taskRequestId", tr.ID, "taskId", tr.TaskID, "error", err)
		} else {
			e.Task = task
		}
	}

	for _, entry := range tr.Users {
		detail := RequestorDetail{UserID: entry.UserID}
		var user domain.User
		err := s.cache.Aside(ctx, "users:"+entry.UserID, &user, s.cacheTTL, func() error {
			u, err := s.userRepo.GetByID(ctx, entry.UserID)
			if err != nil {
				return err
			}
			user = *u
			return nil
		})
		if err != nil {
			logger.DebugContext(ctx, "requestor join failed", "taskRequestId", tr.ID, "userId", entry.UserID, "error", err)
		} else {
			detail.Username = user.Username
		}
		e.RequestorDetails = append(e.RequestorDetails, detail)
	}
	return e
}
