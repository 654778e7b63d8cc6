package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"taskprogress/internal/auth"
	"taskprogress/internal/config"
	"taskprogress/internal/middleware"
	"taskprogress/internal/model"
	"taskprogress/internal/session"
	"taskprogress/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testApp struct {
	engine *gin.Engine
	db     *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithRevoker(t, session.NopRevoker{})
}

func newTestAppWithRevoker(t *testing.T, revoker session.Revoker) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenDB(t)
	cfg := &config.Config{
		JWTSecret:   "test-secret",
		JWTExpiry:   time.Hour,
		CORSOrigins: []string{"*"},
	}
	r, err := NewEngine(db, cfg, revoker, zap.NewNop().Sugar())
	require.NoError(t, err)
	return &testApp{engine: r, db: db}
}

// userWithID inserts a user with a fixed primary key.
func (a *testApp) userWithID(t *testing.T, id uint, username string, role model.Role) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(testutil.Password)
	require.NoError(t, err)
	u := &model.User{ID: id, Username: username, FullName: "User " + username, PasswordHash: hash, Role: role, Active: true}
	require.NoError(t, a.db.Create(u).Error)
	return u
}

func (a *testApp) login(t *testing.T, username string) string {
	t.Helper()
	return a.loginWith(t, username, testutil.Password)
}

func (a *testApp) loginWith(t *testing.T, username, password string) string {
	t.Helper()
	resp := a.call(t, http.MethodPost, "/api/login", "", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body.Token
}

func (a *testApp) call(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	a.engine.ServeHTTP(resp, req)
	return resp
}

func (a *testApp) form(t *testing.T, path, token string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	resp := httptest.NewRecorder()
	a.engine.ServeHTTP(resp, req)
	return resp
}

func (a *testApp) page(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, path, nil)
	require.NoError(t, err)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	resp := httptest.NewRecorder()
	a.engine.ServeHTTP(resp, req)
	return resp
}

func decode(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body), resp.Body.String())
	return body
}

func taskOf(t *testing.T, resp *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	task, ok := decode(t, resp)["task"].(map[string]interface{})
	require.True(t, ok, resp.Body.String())
	return task
}

func TestAPI_EditOthersTaskNamesCreator(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateCategory(t, app.db, model.DefaultCategoryName, 0)
	creator := app.userWithID(t, 7, "seven", model.RoleDataEntry)
	app.userWithID(t, 9, "nine", model.RoleDataEntry)
	task := testutil.CreateTask(t, app.db, "Owned by seven", creator, nil)

	token := app.login(t, "nine")
	resp := app.call(t, http.MethodPut, "/api/tasks/"+uintString(task.ID), token, map[string]string{"title": "Hijacked"})

	assert.Equal(t, http.StatusForbidden, resp.Code)
	msg := decode(t, resp)["error"].(string)
	assert.Contains(t, msg, "user 7")
	assert.Contains(t, msg, "User seven")

	var stored model.Task
	require.NoError(t, app.db.First(&stored, task.ID).Error)
	assert.Equal(t, "Owned by seven", stored.Title)
}

func TestAPI_CreateThenGetRoundTrip(t *testing.T) {
	app := newTestApp(t)
	design := testutil.CreateCategory(t, app.db, "design", 1)
	testutil.CreateUser(t, app.db, "alice", model.RoleDataEntry)
	token := app.login(t, "alice")

	created := app.call(t, http.MethodPost, "/api/tasks", token, map[string]interface{}{
		"title":              "Draft mockups",
		"description":        "Landing page",
		"status":             "in-progress",
		"progress":           30,
		"planned_start_date": "2024-05-01",
		"planned_end_date":   "2024-05-10",
		"assignee":           "Dana",
		"category_id":        design.ID,
	})
	require.Equal(t, http.StatusCreated, created.Code, created.Body.String())
	want := taskOf(t, created)

	fetched := app.call(t, http.MethodGet, "/api/tasks/"+uintString(uint(want["id"].(float64))), token, nil)
	require.Equal(t, http.StatusOK, fetched.Code)
	got := taskOf(t, fetched)

	assert.Equal(t, want, got)
	assert.Equal(t, "design", got["category"])
	assert.Equal(t, "2024-05-01", got["planned_start_date"])
	assert.Equal(t, "bg-warning", got["progress_color"])
	assert.Equal(t, "User alice", got["creator_name"])
}

func TestAPI_ProgressEndpoint(t *testing.T) {
	app := newTestApp(t)
	alice := testutil.CreateUser(t, app.db, "alice", model.RoleDataEntry)
	task := testutil.CreateTask(t, app.db, "Ship it", alice, nil)
	token := app.login(t, "alice")
	path := "/api/tasks/" + uintString(task.ID) + "/progress"

	resp := app.call(t, http.MethodPut, path, token, map[string]int{"progress": 50})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "in-progress", taskOf(t, resp)["status"])

	resp = app.call(t, http.MethodPut, path, token, map[string]int{"progress": 100})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "completed", taskOf(t, resp)["status"])

	resp = app.call(t, http.MethodPut, path, token, map[string]int{"progress": 150})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	var stored model.Task
	require.NoError(t, app.db.First(&stored, task.ID).Error)
	assert.Equal(t, 100, stored.Progress)
	assert.Equal(t, model.StatusCompleted, stored.Status)
}

func TestAPI_CreateRejectsInvalidInputWithoutWriting(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.db, "alice", model.RoleDataEntry)
	token := app.login(t, "alice")

	resp := app.call(t, http.MethodPost, "/api/tasks", token, map[string]interface{}{
		"title": "Backwards", "planned_start_date": "2024-06-10", "planned_end_date": "2024-06-01",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, decode(t, resp)["error"], "planned start date must not be after planned end date")

	resp = app.call(t, http.MethodPost, "/api/tasks", token, map[string]interface{}{"title": "Too far", "progress": 150})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	var n int64
	require.NoError(t, app.db.Model(&model.Task{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestAPI_CategoryInUseCannotBeDeleted(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.db, "root", model.RoleAdmin)
	alice := testutil.CreateUser(t, app.db, "alice", model.RoleDataEntry)
	design := testutil.CreateCategory(t, app.db, "design", 1)
	testutil.CreateTask(t, app.db, "Uses design", alice, design)
	token := app.login(t, "root")

	resp := app.call(t, http.MethodDelete, "/api/admin/categories/"+uintString(design.ID), token, nil)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, decode(t, resp)["error"], "still used by 1 task(s)")
	var n int64
	require.NoError(t, app.db.Model(&model.TaskCategory{}).Where("id = ?", design.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestAPI_RoleGates(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.db, "root", model.RoleAdmin)
	testutil.CreateUser(t, app.db, "sue", model.RoleSupervisor)
	adminToken := app.login(t, "root")
	supervisorToken := app.login(t, "sue")

	assert.Equal(t, http.StatusForbidden, app.call(t, http.MethodGet, "/api/tasks", adminToken, nil).Code)
	assert.Equal(t, http.StatusForbidden, app.call(t, http.MethodGet, "/api/admin/users", supervisorToken, nil).Code)
	assert.Equal(t, http.StatusCreated, app.call(t, http.MethodPost, "/api/tasks", supervisorToken, map[string]string{"title": "Supervisor task"}).Code)
	assert.Equal(t, http.StatusOK, app.call(t, http.MethodGet, "/api/stats", supervisorToken, nil).Code)
	assert.Equal(t, http.StatusOK, app.call(t, http.MethodGet, "/api/admin/users", adminToken, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.call(t, http.MethodGet, "/api/tasks", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, app.call(t, http.MethodGet, "/api/tasks", "garbage", nil).Code)
}

func TestAPI_DisabledAccount(t *testing.T) {
	app := newTestApp(t)
	alice := testutil.CreateUser(t, app.db, "alice", model.RoleDataEntry)
	token := app.login(t, "alice")
	testutil.Deactivate(t, app.db, alice)

	assert.Equal(t, http.StatusForbidden, app.call(t, http.MethodGet, "/api/tasks", token, nil).Code)

	resp := app.call(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": testutil.Password})
	assert.Equal(t, http.StatusForbidden, resp.Code)
	resp = app.call(t, http.MethodPost, "/api/login", "", map[string]string{"username": "alice", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAPI_AdminUserLifecycle(t *testing.T) {
	app := newTestApp(t)
	root := testutil.CreateUser(t, app.db, "root", model.RoleAdmin)
	token := app.login(t, "root")

	resp := app.call(t, http.MethodPost, "/api/admin/users", token, map[string]interface{}{
		"username": "carol", "full_name": "Carol C", "password": "hunter22", "role": "data_entry", "is_active": true,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	user := decode(t, resp)["user"].(map[string]interface{})
	assert.Equal(t, "Data Entry", user["role_display"])
	assert.NotContains(t, resp.Body.String(), "password")
	id := uintString(uint(user["id"].(float64)))

	carolToken := app.loginWith(t, "carol", "hunter22")
	assert.NotEmpty(t, carolToken)

	resp = app.call(t, http.MethodPost, "/api/admin/users", token, map[string]interface{}{
		"username": "carol", "full_name": "Another", "password": "hunter22", "role": "supervisor",
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = app.call(t, http.MethodDelete, "/api/admin/users/"+uintString(root.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = app.call(t, http.MethodDelete, "/api/admin/users/"+id, token, nil)
	assert.Equal(t, http.StatusOK, resp.Code)
	resp = app.call(t, http.MethodGet, "/api/admin/users/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"User not found"}`, resp.Body.String())

	// the deleted user's token no longer authenticates
	assert.Equal(t, http.StatusUnauthorized, app.call(t, http.MethodGet, "/api/tasks", carolToken, nil).Code)
}

func TestAPI_UnknownRouteIsJSON404(t *testing.T) {
	app := newTestApp(t)

	resp := app.call(t, http.MethodGet, "/api/does-not-exist", "", nil)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.JSONEq(t, `{"error":"Resource not found"}`, resp.Body.String())
}

func newRedisBackedApp(t *testing.T) *testApp {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := session.Connect(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return newTestAppWithRevoker(t, session.NewRedisRevoker(client))
}

func TestAPI_Logout(t *testing.T) {
	app := newRedisBackedApp(t)
	testutil.CreateUser(t, app.db, "alice", model.RoleDataEntry)
	token := app.login(t, "alice")
	other := app.login(t, "alice")
	require.Equal(t, http.StatusOK, app.call(t, http.MethodGet, "/api/tasks", token, nil).Code)

	resp := app.call(t, http.MethodPost, "/api/logout", token, nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"message":"Logged out"}`, resp.Body.String())

	resp = app.call(t, http.MethodGet, "/api/tasks", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.JSONEq(t, `{"error":"Invalid or expired token"}`, resp.Body.String())
	assert.Equal(t, http.StatusUnauthorized, app.call(t, http.MethodPost, "/api/logout", token, nil).Code)

	// only the logged-out token is revoked
	assert.Equal(t, http.StatusOK, app.call(t, http.MethodGet, "/api/tasks", other, nil).Code)
}

func TestAPI_LogoutWithoutRedisKeepsTokenValid(t *testing.T) {
	app := newTestApp(t)
	testutil.CreateUser(t, app.db, "alice", model.RoleDataEntry)
	token := app.login(t, "alice")

	resp := app.call(t, http.MethodPost, "/api/logout", token, nil)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, http.StatusOK, app.call(t, http.MethodGet, "/api/tasks", token, nil).Code)
}

func TestAPI_LoginIgnoresStaleCredentials(t *testing.T) {
	app := newRedisBackedApp(t)
	testutil.CreateUser(t, app.db, "alice", model.RoleDataEntry)
	stale := app.login(t, "alice")
	require.Equal(t, http.StatusOK, app.call(t, http.MethodPost, "/api/logout", stale, nil).Code)
	body := map[string]string{"username": "alice", "password": testutil.Password}

	// revoked token in the Authorization header
	resp := app.call(t, http.MethodPost, "/api/login", stale, body)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// leftover session cookie
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req, err := http.NewRequest(http.MethodPost, "/api/login", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "not-a-token"})
	resp = httptest.NewRecorder()
	app.engine.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// header that is not a Bearer token
	buf.Reset()
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req, err = http.NewRequest(http.MethodPost, "/api/login", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Basic YWxpY2U6c2VjcmV0")
	resp = httptest.NewRecorder()
	app.engine.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.NotEmpty(t, decode(t, resp)["token"])
}

func TestAPI_UpdateKeepsDisabledCategory(t *testing.T) {
	app := newTestApp(t)
	design := testutil.CreateCategory(t, app.db, "design", 1)
	alice := testutil.CreateUser(t, app.db, "alice", model.RoleDataEntry)
	task := testutil.CreateTask(t, app.db, "Draft mockups", alice, design)
	require.NoError(t, app.db.Model(design).Update("active", false).Error)
	token := app.login(t, "alice")

	resp := app.call(t, http.MethodPut, "/api/tasks/"+uintString(task.ID), token, map[string]interface{}{
		"title": "Draft mockups v2", "category_id": design.ID,
	})

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	got := taskOf(t, resp)
	assert.Equal(t, "Draft mockups v2", got["title"])
	assert.Equal(t, float64(design.ID), got["category_id"])
}
