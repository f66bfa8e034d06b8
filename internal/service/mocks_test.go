package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/Real-Dev-Squad/website-backend-sub003/internal/domain"
	"github.com/Real-Dev-Squad/website-backend-sub003/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockTaskRequestRepo
type MockTaskRequestRepo struct {
	mock.Mock
}

func (m *MockTaskRequestRepo) Create(ctx context.Context, tr *domain.TaskRequest) error {
	args := m.Called(ctx, tr)
	return args.Error(0)
}
func (m *MockTaskRequestRepo) GetByID(ctx context.Context, id string) (*domain.TaskRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaskRequest), args.Error(1)
}
func (m *MockTaskRequestRepo) Update(ctx context.Context, tr *domain.TaskRequest) error {
	args := m.Called(ctx, tr)
	return args.Error(0)
}
func (m *MockTaskRequestRepo) FindOpenByTask(ctx context.Context, taskID string) (*domain.TaskRequest, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaskRequest), args.Error(1)
}
func (m *MockTaskRequestRepo) FindByIssue(ctx context.Context, issueURL string, statuses []domain.TaskRequestStatus) (*domain.TaskRequest, error) {
	args := m.Called(ctx, issueURL, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaskRequest), args.Error(1)
}
func (m *MockTaskRequestRepo) List(ctx context.Context, f repository.ListFilter) ([]domain.TaskRequest, string, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]domain.TaskRequest), args.String(1), args.Error(2)
}
func (m *MockTaskRequestRepo) ListLegacy(ctx context.Context, afterID string, limit int32) ([]domain.TaskRequest, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.TaskRequest), args.Error(1)
}
func (m *MockTaskRequestRepo) ListIDsWithLegacyFields(ctx context.Context, afterID string, limit int32) ([]string, error) {
	args := m.Called(ctx, afterID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockTaskRequestRepo) UpdateBatch(ctx context.Context, reqs []*domain.TaskRequest) error {
	args := m.Called(ctx, reqs)
	return args.Error(0)
}
func (m *MockTaskRequestRepo) StripLegacyFields(ctx context.Context, ids []string) error {
	args := m.Called(ctx, ids)
	return args.Error(0)
}

// MockTaskRepo
type MockTaskRepo struct {
	mock.Mock
}

func (m *MockTaskRepo) Create(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}
func (m *MockTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}
func (m *MockTaskRepo) Update(ctx context.Context, task *domain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendTaskRequestApprovedNotification(ctx context.Context, email, username, taskTitle string) error {
	args := m.Called(ctx, email, username, taskTitle)
	return args.Error(0)
}
func (m *MockEmailService) SendTaskRequestDeniedNotification(ctx context.Context, email, username, taskTitle string) error {
	args := m.Called(ctx, email, username, taskTitle)
	return args.Error(0)
}

// MockIssueTracker
type MockIssueTracker struct {
	mock.Mock
}

func (m *MockIssueTracker) FetchIssue(ctx context.Context, owner, repo string, number int) (*Issue, error) {
	args := m.Called(ctx, owner, repo, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Issue), args.Error(1)
}

// memApprovalStore runs approval closures against in-memory documents under a
// single mutex. One closure runs at a time, so each observes the committed
// state of the previous one, which is the serializable guarantee the real
// store provides.
type memApprovalStore struct {
	mu       sync.Mutex
	requests map[string]*domain.TaskRequest
	tasks    map[string]*domain.Task
	nextID   int
}

func newMemApprovalStore() *memApprovalStore {
	return &memApprovalStore{
		requests: make(map[string]*domain.TaskRequest),
		tasks:    make(map[string]*domain.Task),
	}
}

func (s *memApprovalStore) RunApproval(ctx context.Context, fn func(tx repository.ApprovalTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn((*memApprovalTx)(s))
}

func (s *memApprovalStore) putRequest(tr *domain.TaskRequest) {
	cp := *tr
	s.requests[tr.ID] = &cp
}

func (s *memApprovalStore) putTask(task *domain.Task) {
	cp := *task
	s.tasks[task.ID] = &cp
}

func (s *memApprovalStore) request(id string) *domain.TaskRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[id]
}

func (s *memApprovalStore) task(id string) *domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[id]
}

type memApprovalTx memApprovalStore

func (tx *memApprovalTx) GetTaskRequest(ctx context.Context, id string) (*domain.TaskRequest, error) {
	tr, ok := tx.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *tr
	cp.Users = append([]domain.UserRequestEntry(nil), tr.Users...)
	return &cp, nil
}

func (tx *memApprovalTx) UpdateTaskRequest(ctx context.Context, tr *domain.TaskRequest) error {
	if _, ok := tx.requests[tr.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *tr
	tx.requests[tr.ID] = &cp
	return nil
}

func (tx *memApprovalTx) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, ok := tx.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *task
	return &cp, nil
}

func (tx *memApprovalTx) UpdateTask(ctx context.Context, task *domain.Task) error {
	if _, ok := tx.tasks[task.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *task
	tx.tasks[task.ID] = &cp
	return nil
}

func (tx *memApprovalTx) CreateTask(ctx context.Context, task *domain.Task) error {
	tx.nextID++
	task.ID = fmt.Sprintf("generated-task-%d", tx.nextID)
	cp := *task
	tx.tasks[task.ID] = &cp
	return nil
}
