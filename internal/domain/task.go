package domain

type TaskStatus string

const (
	TaskStatusAssigned TaskStatus = "ASSIGNED"
)

type TaskType string

const (
	TaskTypeFeature TaskType = "FEATURE"
)

type TaskPriority string

const (
	TaskPriorityDefault TaskPriority = "DEFAULT"
)

// Task is owned by the task subsystem; this workflow only reads and writes
// the fields it touches on assignment. Date fields are second timestamps.
type Task struct {
	ID               string       `json:"-"`
	Title            string       `json:"title,omitempty"`
	Type             TaskType     `json:"type,omitempty"`
	Assignee         string       `json:"assignee,omitempty"`
	Status           TaskStatus   `json:"status,omitempty"`
	Priority         TaskPriority `json:"priority,omitempty"`
	PercentCompleted int          `json:"percentCompleted"`
	StartedOn        int64        `json:"startedOn,omitempty"`
	EndsOn           int64        `json:"endsOn,omitempty"`
	GitHub           *TaskGitHub  `json:"github,omitempty"`
}

type TaskGitHub struct {
	Issue TaskGitHubIssue `json:"issue"`
}

type TaskGitHubIssue struct {
	URL string `json:"url,omitempty"`
}
