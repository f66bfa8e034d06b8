package service

import (
	"context"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"
)

// TaskRequestIntake is the create-or-join input. Exactly one of TaskID
// (ASSIGNMENT) or ExternalIssueURL (CREATION) applies. UserID may differ from
// the acting user when a privileged actor files on someone's behalf; that
// authorization check happens upstream.
type TaskRequestIntake struct {
	RequestType       domain.TaskRequestType
	UserID            string
	TaskID            string
	ExternalIssueURL  string
	ProposedStartDate int64
	ProposedDeadline  int64
	Description       string
}

// IntakeResult carries the intake outcome. The conflict outcomes are flags,
// not errors, so the caller can map each to a precise response.
type IntakeResult struct {
	IsCreate                  bool
	AlreadyRequesting         bool
	IsCreationRequestApproved bool
	TaskNotFound              bool
	ID                        string
	TaskRequest               *domain.TaskRequest
}

// DecisionResult carries the outcome of an approval or rejection attempt.
type DecisionResult struct {
	TaskRequestNotFound  bool
	IsUserInvalid        bool
	IsTaskRequestInvalid bool
	ApprovedTo           string
	TaskRequest          *domain.TaskRequest
}

// RequestorDetail resolves one requestor id for display. Username is empty
// when the directory lookup failed; the row is still returned.
type RequestorDetail struct {
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
}

// EnrichedTaskRequest is a task request joined with its referenced task and
// the identities of its requestors. Task is nil for requests that have no
// task yet or whose lookup failed.
type EnrichedTaskRequest struct {
	ID string `json:"id"`
	domain.TaskRequest
	Task             *domain.Task      `json:"task,omitempty"`
	RequestorDetails []RequestorDetail `json:"requestorDetails,omitempty"`
}

type TaskRequestPage struct {
	Requests []EnrichedTaskRequest `json:"requests"`
	Next     string                `json:"next,omitempty"`
}

// MigrationSummary counts the documents touched by one batch job pass.
type MigrationSummary struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type TaskRequestService interface {
	CreateOrJoin(ctx context.Context, actor domain.Actor, in TaskRequestIntake) (*IntakeResult, error)
	Approve(ctx context.Context, taskRequestID string, actor domain.Actor) (*DecisionResult, error)
	Reject(ctx context.Context, taskRequestID string, actor domain.Actor) (*DecisionResult, error)
	Get(ctx context.Context, id string) (*EnrichedTaskRequest, error)
	List(ctx context.Context, f repository.ListFilter) (*TaskRequestPage, error)
}

type MigrationService interface {
	BackfillRequestType(ctx context.Context) (*MigrationSummary, error)
	CleanupLegacyFields(ctx context.Context) (*MigrationSummary, error)
}

type EmailService interface {
	SendTaskRequestApprovedNotification(ctx context.Context, email, username, taskTitle string) error
	SendTaskRequestDeniedNotification(ctx context.Context, email, username, taskTitle string) error
}

// Issue is the slice of an external tracker issue this workflow reads.
type Issue struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
}

type IssueTracker interface {
	FetchIssue(ctx context.Context, owner, repo string, number int) (*Issue, error)
}
