package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/task-manager/internal/auth"
	"github.com/iliyamo/task-manager/internal/metrics"
	mw "github.com/iliyamo/task-manager/internal/middleware"
	"github.com/iliyamo/task-manager/internal/repository"
)

type testServer struct {
	e     *echo.Echo
	store repository.Manager
	users *repository.MemoryUserRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryManager()
	users := store.Users().(*repository.MemoryUserRepo)
	signer, err := auth.NewSigner([]byte("test-secret"), time.Minute)
	require.NoError(t, err)
	reg, m := metrics.New()
	coord := auth.NewCoordinator(users, auth.NewPasswordHasher(bcrypt.MinCost, 4), signer,
		auth.NewSessionStore(users, time.Hour), auth.WithMetrics(m))
	return &testServer{
		e:     New(Deps{Coordinator: coord, Store: store, Registry: reg}),
		store: store,
		users: users,
	}
}

func (s *testServer) do(method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

type session struct {
	id, access, refresh string
}

func (s *testServer) signup(t *testing.T, email string) session {
	t.Helper()
	rec := s.do(http.MethodPost, "/users", `{"email":"`+email+`","password":"password123"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return session{
		id:      body["_id"].(string),
		access:  rec.Header().Get(mw.HeaderAccessToken),
		refresh: rec.Header().Get(mw.HeaderRefreshToken),
	}
}

func (s session) accessHeader() map[string]string {
	return map[string]string{mw.HeaderAccessToken: s.access}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Hello World!!!"}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, "ok", rec.Body.String())

	s.signup(t, "m@example.com")
	rec = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `taskmanager_auth_signups_total{result="ok"} 1`)
}

func TestSignupAndLogin(t *testing.T) {
	s := newTestServer(t)
	sess := s.signup(t, "alice@example.com")
	assert.NotEmpty(t, sess.id)
	assert.NotEmpty(t, sess.access)
	assert.Len(t, sess.refresh, 128)

	t.Run("response never carries the password", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/users/login", `{"email":"alice@example.com","password":"password123"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "password")
		assert.NotContains(t, rec.Body.String(), "sessions")
		assert.NotEmpty(t, rec.Header().Get(mw.HeaderAccessToken))
		assert.NotEqual(t, sess.refresh, rec.Header().Get(mw.HeaderRefreshToken))
	})

	t.Run("duplicate signup", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/users", `{"email":"alice@example.com","password":"password123"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("short password", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/users", `{"email":"bob@example.com","password":"short"}`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Empty(t, rec.Header().Get(mw.HeaderAccessToken))
	})

	t.Run("bad credentials", func(t *testing.T) {
		wrong := s.do(http.MethodPost, "/users/login", `{"email":"alice@example.com","password":"nope12345"}`, nil)
		unknown := s.do(http.MethodPost, "/users/login", `{"email":"who@example.com","password":"password123"}`, nil)
		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/users", `{"email":`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAccessTokenRefresh(t *testing.T) {
	s := newTestServer(t)
	sess := s.signup(t, "alice@example.com")
	hdr := map[string]string{mw.HeaderUserID: sess.id, mw.HeaderRefreshToken: sess.refresh}

	rec := s.do(http.MethodGet, "/users/me/access-token", "", hdr)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.NotEmpty(t, body["accessToken"])
	assert.Equal(t, body["accessToken"], rec.Header().Get(mw.HeaderAccessToken))

	rec = s.do(http.MethodGet, "/lists", "", map[string]string{mw.HeaderAccessToken: body["accessToken"]})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/users/me/access-token", "", map[string]string{mw.HeaderUserID: sess.id})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	require.True(t, s.users.SetSessionExpiry(sess.id, sess.refresh, time.Now().Add(-time.Minute).Unix()))
	rec = s.do(http.MethodGet, "/users/me/access-token", "", hdr)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"invalid session"}`, rec.Body.String())
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t)
	sess := s.signup(t, "alice@example.com")

	rec := s.do(http.MethodPatch, "/users/me/password", `{"currentPassword":"password123","newPassword":"x"}`, sess.accessHeader())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, "/users/me/password", `{"currentPassword":"wrong1234","newPassword":"newpassword1"}`, sess.accessHeader())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPatch, "/users/me/password", `{"currentPassword":"password123","newPassword":"newpassword1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPatch, "/users/me/password", `{"currentPassword":"password123","newPassword":"newpassword1"}`, sess.accessHeader())
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodPost, "/users/login", `{"email":"alice@example.com","password":"newpassword1"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListsAndTasks(t *testing.T) {
	s := newTestServer(t)
	alice := s.signup(t, "alice@example.com")
	bob := s.signup(t, "bob@example.com")

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/lists", "", nil).Code)

	rec := s.do(http.MethodPost, "/lists", `{"title":"Groceries"}`, alice.accessHeader())
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string]any](t, rec)
	listID := list["_id"].(string)
	assert.Equal(t, alice.id, list["_userId"])

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/lists", `{"title":" "}`, alice.accessHeader()).Code)

	rec = s.do(http.MethodGet, "/lists", "", bob.accessHeader())
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(http.MethodPatch, "/lists/"+listID, `{"title":"Food"}`, alice.accessHeader())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPatch, "/lists/"+listID, `{"title":"Mine"}`, bob.accessHeader()).Code)

	rec = s.do(http.MethodPost, "/lists/"+listID+"/tasks", `{"title":"Milk"}`, alice.accessHeader())
	require.Equal(t, http.StatusOK, rec.Code)
	task := decode[map[string]any](t, rec)
	taskID := task["_id"].(string)
	assert.Equal(t, listID, task["_listId"])
	assert.Equal(t, false, task["completed"])

	tasksPath := "/lists/" + listID + "/tasks"
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, tasksPath, `{"title":"Eggs"}`, bob.accessHeader()).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, tasksPath, "", bob.accessHeader()).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, tasksPath+"/"+taskID, "", bob.accessHeader()).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, tasksPath+"/"+taskID, "", bob.accessHeader()).Code)

	rec = s.do(http.MethodPatch, tasksPath+"/"+taskID, `{"completed":true}`, alice.accessHeader())
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, tasksPath+"/"+taskID, "", alice.accessHeader())
	got := decode[map[string]any](t, rec)
	assert.Equal(t, true, got["completed"])
	assert.Equal(t, "Milk", got["title"])

	rec = s.do(http.MethodGet, tasksPath, "", alice.accessHeader())
	assert.Len(t, decode[[]map[string]any](t, rec), 1)

	rec = s.do(http.MethodDelete, "/lists/"+listID, "", alice.accessHeader())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, listID, decode[map[string]any](t, rec)["_id"])

	tasks, err := s.store.Tasks().ListByList(context.Background(), listID)
	require.NoError(t, err)
	assert.Empty(t, tasks, "tasks of a deleted list are removed")
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, tasksPath, "", alice.accessHeader()).Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodOptions, "/lists", "", map[string]string{
		echo.HeaderOrigin:                      "http://localhost:4200",
		echo.HeaderAccessControlRequestMethod:  http.MethodGet,
		echo.HeaderAccessControlRequestHeaders: "x-access-token",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, strings.ToLower(rec.Header().Get(echo.HeaderAccessControlAllowHeaders)), "x-access-token")
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPatch)
}
