package handler_test

import (
	"context"
	"time"

	"taskprogress/internal/auth"
	"taskprogress/internal/model"
	"taskprogress/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) List(ctx context.Context, actor *model.User, status string) ([]model.Task, error) {
	args := m.Called(ctx, actor, status)
	tasks, _ := args.Get(0).([]model.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskService) Get(ctx context.Context, actor *model.User, id uint) (*model.Task, error) {
	args := m.Called(ctx, actor, id)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) Create(ctx context.Context, actor *model.User, in service.TaskInput) (*model.Task, error) {
	args := m.Called(ctx, actor, in)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) Update(ctx context.Context, actor *model.User, id uint, in service.TaskInput) (*model.Task, error) {
	args := m.Called(ctx, actor, id, in)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) Delete(ctx context.Context, actor *model.User, id uint) error {
	args := m.Called(ctx, actor, id)
	return args.Error(0)
}

func (m *MockTaskService) UpdateProgress(ctx context.Context, actor *model.User, id uint, progress int) (*model.Task, error) {
	args := m.Called(ctx, actor, id, progress)
	task, _ := args.Get(0).(*model.Task)
	return task, args.Error(1)
}

func (m *MockTaskService) Stats(ctx context.Context, actor *model.User) (*service.Stats, error) {
	args := m.Called(ctx, actor)
	stats, _ := args.Get(0).(*service.Stats)
	return stats, args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (*model.User, string, error) {
	args := m.Called(ctx, username, password)
	user, _ := args.Get(0).(*model.User)
	return user, args.String(1), args.Error(2)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *auth.Claims) error {
	args := m.Called(ctx, claims)
	return args.Error(0)
}

func (m *MockAuthService) TokenTTL() time.Duration {
	return time.Hour
}
