package service_test

import (
	"context"
	"testing"

	"taskprogress/internal/auth"
	"taskprogress/internal/model"
	"taskprogress/internal/permission"
	"taskprogress/internal/repository"
	"taskprogress/internal/service"
	"taskprogress/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUserService_CreateValidatesAndHashes(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := service.NewUserService(db, zap.NewNop().Sugar())
	admin := testutil.CreateUser(t, db, "admin", model.RoleAdmin)
	ctx := context.Background()

	user, err := svc.Create(ctx, admin, service.UserInput{
		Username: ptr("carol"),
		FullName: ptr("Carol King"),
		Password: ptr("hunter22"),
		Role:     ptr("supervisor"),
	})
	require.NoError(t, err)
	assert.True(t, user.Active)
	assert.Equal(t, model.RoleSupervisor, user.Role)
	assert.NotEqual(t, "hunter22", user.PasswordHash)
	assert.True(t, auth.CheckPassword("hunter22", user.PasswordHash))

	_, err = svc.Create(ctx, admin, service.UserInput{
		Username: ptr("carol"),
		FullName: ptr("C"),
		Password: ptr("123"),
		Role:     ptr("root"),
	})
	require.Error(t, err)
	fields := map[string]bool{}
	for _, ve := range service.ValidationErrors(err) {
		fields[ve.Field] = true
	}
	assert.Equal(t, map[string]bool{"username": true, "full_name": true, "password": true, "role": true}, fields)
}

func TestUserService_UpdateSelfGuards(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := service.NewUserService(db, zap.NewNop().Sugar())
	admin := testutil.CreateUser(t, db, "admin", model.RoleAdmin)
	alice := testutil.CreateUser(t, db, "alice", model.RoleDataEntry)
	ctx := context.Background()

	_, err := svc.Update(ctx, admin, admin.ID, service.UserInput{Active: ptr(false)})
	assert.True(t, service.IsValidation(err))
	_, err = svc.Update(ctx, admin, admin.ID, service.UserInput{Role: ptr("supervisor")})
	assert.True(t, service.IsValidation(err))

	updated, err := svc.Update(ctx, admin, alice.ID, service.UserInput{
		Username: ptr("alice"),
		Role:     ptr("supervisor"),
		Active:   ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleSupervisor, updated.Role)
	assert.False(t, updated.Active)

	_, err = svc.Update(ctx, admin, admin.ID, service.UserInput{Username: ptr("alice")})
	assert.Contains(t, err.Error(), "already exists")
}

func TestUserService_DeleteReleasesTasks(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := service.NewUserService(db, zap.NewNop().Sugar())
	admin := testutil.CreateUser(t, db, "admin", model.RoleAdmin)
	alice := testutil.CreateUser(t, db, "alice", model.RoleDataEntry)
	task := testutil.CreateTask(t, db, "kept", alice, nil)
	ctx := context.Background()

	_, err := svc.Delete(ctx, admin, admin.ID)
	require.Error(t, err)
	assert.Equal(t, "You cannot delete your own account", err.Error())

	deleted, err := svc.Delete(ctx, admin, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", deleted.Username)

	got, err := repository.NewTaskRepository(db).GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CreatorID)

	_, err = svc.Get(ctx, admin, alice.ID)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestUserService_ResetPassword(t *testing.T) {
	db := testutil.OpenDB(t)
	svc := service.NewUserService(db, zap.NewNop().Sugar())
	admin := testutil.CreateUser(t, db, "admin", model.RoleAdmin)
	alice := testutil.CreateUser(t, db, "alice", model.RoleDataEntry)
	ctx := context.Background()

	_, err := svc.ResetPassword(ctx, admin, alice.ID, "abc")
	assert.True(t, service.IsValidation(err))

	user, err := svc.ResetPassword(ctx, admin, alice.ID, "brand-new")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("brand-new", user.PasswordHash))

	_, err = svc.ResetPassword(ctx, alice, admin.ID, "brand-new")
	var denied *permission.DeniedError
	assert.ErrorAs(t, err, &denied)
}
