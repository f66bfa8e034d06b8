package domain

import "encoding/json"

type TaskRequestType string

const (
	TaskRequestTypeAssignment TaskRequestType = "ASSIGNMENT"
	TaskRequestTypeCreation   TaskRequestType = "CREATION"
)

type TaskRequestStatus string

const (
	TaskRequestStatusPending  TaskRequestStatus = "PENDING"
	TaskRequestStatusApproved TaskRequestStatus = "APPROVED"
	TaskRequestStatusDenied   TaskRequestStatus = "DENIED"
	// TaskRequestStatusWaiting is the initial status written by the retired
	// self-assignment flow. It only appears on legacy documents.
	TaskRequestStatusWaiting TaskRequestStatus = "WAITING"
)

type UserRequestStatus string

const (
	UserRequestStatusPending  UserRequestStatus = "PENDING"
	UserRequestStatusApproved UserRequestStatus = "APPROVED"
	UserRequestStatusDenied   UserRequestStatus = "DENIED"
)

// UserRequestEntry is one interested user on a task request. Proposed dates
// are millisecond timestamps as submitted by the client.
type UserRequestEntry struct {
	UserID            string            `json:"userId"`
	ProposedStartDate int64             `json:"proposedStartDate"`
	ProposedDeadline  int64             `json:"proposedDeadline"`
	Description       string            `json:"description,omitempty"`
	Status            UserRequestStatus `json:"status"`
}

// TaskRequest is the stored request document. Optional fields carry omitempty
// so that documents keep only the fields that apply to them; field presence is
// the wire contract the migration jobs and the legacy readers depend on.
type TaskRequest struct {
	ID               string             `json:"-"`
	RequestType      TaskRequestType    `json:"requestType,omitempty"`
	TaskID           string             `json:"taskId,omitempty"`
	ExternalIssueURL string             `json:"externalIssueUrl,omitempty"`
	TaskTitle        string             `json:"taskTitle,omitempty"`
	Status           TaskRequestStatus  `json:"status"`
	Users            []UserRequestEntry `json:"users,omitempty"`
	Requestors       []string           `json:"requestors,omitempty"`
	ApprovedTo       string             `json:"approvedTo,omitempty"`
	CreatedBy        string             `json:"createdBy,omitempty"`
	CreatedAt        int64              `json:"createdAt,omitempty"`
	LastModifiedBy   string             `json:"lastModifiedBy,omitempty"`
	LastModifiedAt   int64              `json:"lastModifiedAt,omitempty"`

	// Legacy records whether the document was stored in the pre-migration
	// shape (no requestType, users synthesized from requestors).
	Legacy bool `json:"-"`
}

// DecodeTaskRequest normalizes a raw stored document into the canonical
// in-memory form. Documents without a requestType are legacy shaped: they are
// treated as ASSIGNMENT requests and their users list is synthesized from the
// requestors mirror, flagging the approvedTo entry as APPROVED.
func DecodeTaskRequest(id string, doc []byte) (*TaskRequest, error) {
	var tr TaskRequest
	if err := json.Unmarshal(doc, &tr); err != nil {
		return nil, err
	}
	tr.ID = id
	if tr.RequestType == "" {
		tr.Legacy = true
		tr.RequestType = TaskRequestTypeAssignment
		tr.Users = synthesizeUserEntries(tr.Requestors, tr.ApprovedTo)
	}
	return &tr, nil
}

func synthesizeUserEntries(requestors []string, approvedTo string) []UserRequestEntry {
	if len(requestors) == 0 {
		return nil
	}
	users := make([]UserRequestEntry, 0, len(requestors))
	for _, userID := range requestors {
		status := UserRequestStatusPending
		if approvedTo != "" && userID == approvedTo {
			status = UserRequestStatusApproved
		}
		users = append(users, UserRequestEntry{UserID: userID, Status: status})
	}
	return users
}

// HasRequestor reports whether userID is recorded on the request, in either
// the users list or the legacy requestors mirror.
func (tr *TaskRequest) HasRequestor(userID string) bool {
	for _, u := range tr.Users {
		if u.UserID == userID {
			return true
		}
	}
	for _, id := range tr.Requestors {
		if id == userID {
			return true
		}
	}
	return false
}

// UserEntry returns the entry for userID, or nil if the user is not recorded.
func (tr *TaskRequest) UserEntry(userID string) *UserRequestEntry {
	for i := range tr.Users {
		if tr.Users[i].UserID == userID {
			return &tr.Users[i]
		}
	}
	return nil
}

// Terminal reports whether the request has reached a final status. Terminal
// requests reject any further approval or denial.
func (tr *TaskRequest) Terminal() bool {
	return tr.Status == TaskRequestStatusApproved || tr.Status == TaskRequestStatusDenied
}
