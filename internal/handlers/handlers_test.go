package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mathapp/internal/config"
	"mathapp/internal/models"
	"mathapp/internal/observability"
	"mathapp/internal/services"
	contextutils "mathapp/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserService struct {
	users   map[int]*models.User
	admins  map[int]bool
	premium map[int]bool
}

func newFakeUserService() *fakeUserService {
	return &fakeUserService{
		users:   make(map[int]*models.User),
		admins:  make(map[int]bool),
		premium: make(map[int]bool),
	}
}

func (f *fakeUserService) addUser(id int, username string, premium bool) *models.User {
	user := &models.User{ID: id, Username: username, Premium: premium}
	f.users[id] = user
	f.premium[id] = premium
	return user
}

func (f *fakeUserService) CreateUserWithPassword(_ context.Context, username, email, password string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return nil, contextutils.ErrRecordExists
		}
	}
	id := len(f.users) + 1
	user := f.addUser(id, username, false)
	if email != "" {
		user.Email = sql.NullString{String: email, Valid: true}
	}
	return user, nil
}

func (f *fakeUserService) GetUserByID(_ context.Context, id int) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeUserService) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserService) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email.Valid && u.Email.String == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserService) AuthenticateUser(_ context.Context, username, password string) (*models.User, error) {
	if password != "correct-horse" {
		return nil, contextutils.ErrInvalidCredentials
	}
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, contextutils.ErrInvalidCredentials
}

func (f *fakeUserService) UpdateUserPassword(context.Context, int, string) error { return nil }
func (f *fakeUserService) UpdateLastActive(context.Context, int) error           { return nil }
func (f *fakeUserService) GetAllUsers(context.Context) ([]models.User, error) {
	var users []models.User
	for _, u := range f.users {
		users = append(users, *u)
	}
	return users, nil
}

func (f *fakeUserService) DeleteUser(_ context.Context, userID int) error {
	if _, ok := f.users[userID]; !ok {
		return contextutils.ErrRecordNotFound
	}
	delete(f.users, userID)
	return nil
}

func (f *fakeUserService) EnsureAdminUserExists(context.Context, string, string) error { return nil }

func (f *fakeUserService) SetPremium(_ context.Context, userID int, premium bool) error {
	user, ok := f.users[userID]
	if !ok {
		return contextutils.ErrRecordNotFound
	}
	user.Premium = premium
	f.premium[userID] = premium
	return nil
}

func (f *fakeUserService) GetUserRoles(context.Context, int) ([]models.Role, error) {
	return nil, nil
}
func (f *fakeUserService) AssignRoleByName(context.Context, int, string) error { return nil }
func (f *fakeUserService) HasRole(_ context.Context, userID int, roleName string) (bool, error) {
	if roleName == models.RoleAdmin {
		return f.admins[userID], nil
	}
	return false, nil
}

func (f *fakeUserService) IsAdmin(_ context.Context, userID int) (bool, error) {
	return f.admins[userID], nil
}
func (f *fakeUserService) GetDB() *sql.DB { return nil }

type fakeExerciseService struct {
	exercises map[string]*models.Exercise
}

func (f *fakeExerciseService) CreateExercise(_ context.Context, e *models.Exercise) error {
	if _, ok := f.exercises[e.ID]; ok {
		return contextutils.ErrRecordExists
	}
	f.exercises[e.ID] = e
	return nil
}

func (f *fakeExerciseService) GetExercise(_ context.Context, id string) (*models.Exercise, error) {
	return f.exercises[id], nil
}

func (f *fakeExerciseService) GetAllExercises(_ context.Context, enabledOnly bool) ([]*models.Exercise, error) {
	var out []*models.Exercise
	for _, e := range f.exercises {
		if enabledOnly && !e.Enabled {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeExerciseService) UpdateExercise(_ context.Context, e *models.Exercise) error {
	if _, ok := f.exercises[e.ID]; !ok {
		return contextutils.ErrRecordNotFound
	}
	f.exercises[e.ID] = e
	return nil
}

func (f *fakeExerciseService) DeleteExercise(_ context.Context, id string) error {
	if _, ok := f.exercises[id]; !ok {
		return contextutils.ErrRecordNotFound
	}
	delete(f.exercises, id)
	return nil
}

func (f *fakeExerciseService) SetExerciseEnabled(_ context.Context, id string, enabled bool) error {
	e, ok := f.exercises[id]
	if !ok {
		return contextutils.ErrRecordNotFound
	}
	e.Enabled = enabled
	return nil
}

func (f *fakeExerciseService) UpsertLevelConfig(_ context.Context, id string, level int, cfg *models.ExerciseLevelConfig) error {
	e, ok := f.exercises[id]
	if !ok {
		return contextutils.ErrExerciseNotFound
	}
	if e.Levels == nil {
		e.Levels = make(map[int]*models.ExerciseLevelConfig)
	}
	e.Levels[level] = cfg
	return nil
}

func (f *fakeExerciseService) GetLevelConfig(_ context.Context, id string, level int) (*models.ExerciseLevelConfig, error) {
	e, ok := f.exercises[id]
	if !ok {
		return nil, contextutils.ErrExerciseNotFound
	}
	cfg, ok := e.Levels[level]
	if !ok {
		return nil, contextutils.ErrLevelNotConfigured
	}
	return cfg, nil
}

func (f *fakeExerciseService) InvalidateCache() {}

type fakeQuestionService struct{}

func (f *fakeQuestionService) GetQuestion(_ context.Context, exerciseID string, level int) (*models.Question, error) {
	return &models.Question{
		Prompt:        "Combien font 2 + 3 ?",
		Options:       []string{"4", "5", "6", "7"},
		CorrectAnswer: "5",
	}, nil
}

type fakeProgressService struct {
	progress map[int]*models.UserProgress
	applied  []*models.Attempt
}

func (f *fakeProgressService) GetOrCreateProgress(_ context.Context, userID int) (*models.UserProgress, error) {
	if f.progress[userID] == nil {
		if f.progress == nil {
			f.progress = make(map[int]*models.UserProgress)
		}
		f.progress[userID] = models.NewUserProgress(userID)
	}
	return f.progress[userID], nil
}

func (f *fakeProgressService) ApplyOutcome(_ context.Context, userID int, attempt *models.Attempt) (*models.ProgressDelta, error) {
	f.applied = append(f.applied, attempt)
	return &models.ProgressDelta{XPGained: attempt.Level * 10}, nil
}

func (f *fakeProgressService) EnsureDailyQuest(_ context.Context, userID int, subQuests []*models.SubQuest) (*models.DailyQuest, error) {
	return &models.DailyQuest{Date: "2026-08-31", SubQuests: subQuests}, nil
}

func (f *fakeProgressService) GetLeaderboard(context.Context, int) ([]services.LeaderboardEntry, error) {
	return []services.LeaderboardEntry{{UserID: 1, Username: "lea", XP: 120}}, nil
}

func (f *fakeProgressService) GetModeLeaderboard(_ context.Context, mode models.GameMode, _ string, _ int) ([]services.ModeLeaderboardEntry, error) {
	if !models.ValidGameMode(mode) || mode == models.GameModeTraining {
		return nil, contextutils.WrapErrorf(contextutils.ErrUnknownGameMode, "mode %q has no leaderboard", mode)
	}
	return []services.ModeLeaderboardEntry{{UserID: 1, Username: "lea", Score: 42.5}}, nil
}

type fakeEmailService struct {
	welcomed []int
}

func (f *fakeEmailService) SendWelcomeEmail(_ context.Context, user *models.User) error {
	f.welcomed = append(f.welcomed, user.ID)
	return nil
}
func (f *fakeEmailService) SendPremiumConfirmation(context.Context, *models.User) error { return nil }
func (f *fakeEmailService) SendEmail(context.Context, string, string, string, map[string]interface{}) error {
	return nil
}
func (f *fakeEmailService) IsEnabled() bool { return false }

type testEnv struct {
	router   http.Handler
	users    *fakeUserService
	catalog  *fakeExerciseService
	progress *fakeProgressService
	email    *fakeEmailService
}

func newTestEnv() *testEnv {
	cfg := &config.Config{}
	cfg.Server.SessionSecret = "test-secret"
	cfg.Server.Debug = true

	users := newFakeUserService()
	catalog := &fakeExerciseService{exercises: map[string]*models.Exercise{
		"equations": {ID: "equations", Name: "Équations", Topic: "algebre", Enabled: true},
		"thales":    {ID: "thales", Name: "Thalès", Topic: "geometrie", Enabled: true, Premium: true},
	}}
	progress := &fakeProgressService{progress: make(map[int]*models.UserProgress)}
	email := &fakeEmailService{}

	router := NewRouter(cfg, users, catalog, &fakeQuestionService{}, progress, email, observability.NewLogger(nil))
	return &testEnv{router: router, users: users, catalog: catalog, progress: progress, email: email}
}

func (env *testEnv) login(t *testing.T, username string) string {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login",
		strings.NewReader(`{"username":"`+username+`","password":"correct-horse"}`))
	req.Header.Set("Content-Type", "application/json")
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Header().Get("Set-Cookie")
}

func (env *testEnv) do(method, path, body, cookie string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	env.router.ServeHTTP(w, req)
	return w
}

func TestSignupOpensSessionAndSendsWelcome(t *testing.T) {
	env := newTestEnv()

	w := env.do(http.MethodPost, "/v1/auth/signup",
		`{"username":"lea","email":"lea@example.com","password":"longenough"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"))
	assert.Len(t, env.email.welcomed, 1)

	// Duplicate username conflicts
	w = env.do(http.MethodPost, "/v1/auth/signup",
		`{"username":"lea","email":"other@example.com","password":"longenough"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	env := newTestEnv()
	w := env.do(http.MethodPost, "/v1/auth/signup", `{"username":"lea","password":"short"}`, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv()
	env.users.addUser(1, "lea", false)

	w := env.do(http.MethodPost, "/v1/auth/login", `{"username":"lea","password":"wrong-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExerciseListFlagsPremiumLocked(t *testing.T) {
	env := newTestEnv()
	env.users.addUser(1, "lea", false)
	cookie := env.login(t, "lea")

	w := env.do(http.MethodGet, "/v1/exercises", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Exercises []struct {
			ID     string `json:"id"`
			Locked bool   `json:"locked"`
		} `json:"exercises"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))

	locked := make(map[string]bool)
	for _, e := range payload.Exercises {
		locked[e.ID] = e.Locked
	}
	assert.False(t, locked["equations"])
	assert.True(t, locked["thales"])
}

func TestGetQuestionRequiresPremiumForLockedExercise(t *testing.T) {
	env := newTestEnv()
	env.users.addUser(1, "lea", false)
	cookie := env.login(t, "lea")

	w := env.do(http.MethodGet, "/v1/exercises/thales/question?level=1", "", cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)

	env.users.addUser(2, "max", true)
	premiumCookie := env.login(t, "max")
	w = env.do(http.MethodGet, "/v1/exercises/thales/question?level=1", "", premiumCookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Combien font")
}

func TestGetQuestionValidatesLevel(t *testing.T) {
	env := newTestEnv()
	env.users.addUser(1, "lea", false)
	cookie := env.login(t, "lea")

	w := env.do(http.MethodGet, "/v1/exercises/equations/question?level=9", "", cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/v1/exercises/unknown/question?level=1", "", cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitAttemptUsesCatalogTablesFlag(t *testing.T) {
	env := newTestEnv()
	env.catalog.exercises["tables-multiplication"] = &models.Exercise{
		ID: "tables-multiplication", Name: "Tables", Topic: "calcul", Enabled: true, TablesDrill: true,
	}
	env.users.addUser(1, "lea", false)
	cookie := env.login(t, "lea")

	w := env.do(http.MethodPost, "/v1/attempts",
		`{"mode":"training","exercise_id":"tables-multiplication","level":1,"score":9,"tables_drill":false}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, env.progress.applied, 1)
	assert.True(t, env.progress.applied[0].TablesDrill)
	assert.Contains(t, w.Body.String(), "xp_gained")
}

func TestSubmitAttemptRejectsInvalidBody(t *testing.T) {
	env := newTestEnv()
	env.users.addUser(1, "lea", false)
	cookie := env.login(t, "lea")

	w := env.do(http.MethodPost, "/v1/attempts", `{"mode":"arcade","exercise_id":"equations","level":1}`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlayEndpointsRequireAuth(t *testing.T) {
	env := newTestEnv()

	for _, path := range []string{"/v1/exercises", "/v1/progress", "/v1/quests/daily", "/v1/leaderboard"} {
		w := env.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func TestDailyQuestEndpoint(t *testing.T) {
	env := newTestEnv()
	env.users.addUser(1, "lea", false)
	cookie := env.login(t, "lea")

	w := env.do(http.MethodGet, "/v1/quests/daily", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Quest models.DailyQuest `json:"quest"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	// Premium exercises never appear in quests
	for _, sq := range payload.Quest.SubQuests {
		assert.NotEqual(t, "thales", sq.ExerciseID)
	}
}

func TestLeaderboardDefaultsToXP(t *testing.T) {
	env := newTestEnv()
	env.users.addUser(1, "lea", false)
	cookie := env.login(t, "lea")

	w := env.do(http.MethodGet, "/v1/leaderboard", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Leaderboard []services.LeaderboardEntry `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Leaderboard, 1)
	assert.Equal(t, 120, payload.Leaderboard[0].XP)
}

func TestLeaderboardPerModeValidation(t *testing.T) {
	env := newTestEnv()
	env.users.addUser(1, "lea", false)
	cookie := env.login(t, "lea")

	// mode without exercise_id
	w := env.do(http.MethodGet, "/v1/leaderboard?mode=chrono", "", cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// training has no leaderboard
	w = env.do(http.MethodGet, "/v1/leaderboard?mode=training&exercise_id=equations", "", cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/v1/leaderboard?mode=chrono&exercise_id=equations", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Leaderboard []services.ModeLeaderboardEntry `json:"leaderboard"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Leaderboard, 1)
	assert.InDelta(t, 42.5, payload.Leaderboard[0].Score, 0.001)
}

func TestAdminEndpointsRequireAdminRole(t *testing.T) {
	env := newTestEnv()
	env.users.addUser(1, "lea", false)
	cookie := env.login(t, "lea")

	w := env.do(http.MethodGet, "/v1/admin/exercises", "", cookie)
	assert.Equal(t, http.StatusForbidden, w.Code)

	env.users.addUser(2, "admin", false)
	env.users.admins[2] = true
	adminCookie := env.login(t, "admin")

	w = env.do(http.MethodGet, "/v1/admin/exercises", "", adminCookie)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminUserProgressOverview(t *testing.T) {
	env := newTestEnv()
	env.users.addUser(1, "admin", false)
	env.users.admins[1] = true
	env.users.addUser(2, "lea", false)
	cookie := env.login(t, "admin")

	w := env.do(http.MethodGet, "/v1/admin/users/2/progress", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	var payload struct {
		Progress models.UserProgress `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, 2, payload.Progress.UserID)

	w = env.do(http.MethodGet, "/v1/admin/users/99/progress", "", cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminExerciseCRUD(t *testing.T) {
	env := newTestEnv()
	env.users.addUser(1, "admin", false)
	env.users.admins[1] = true
	cookie := env.login(t, "admin")

	w := env.do(http.MethodPost, "/v1/admin/exercises",
		`{"id":"conversions","name":"Conversions","topic":"mesures","enabled":true}`, cookie)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodPut, "/v1/admin/exercises/conversions/levels/1",
		`{"question_template":"Combien font {a} + {b} ?","correct_answer":"{sum}","options":["{sum}","4"]}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPut, "/v1/admin/exercises/conversions/levels/7",
		`{"question_template":"x","correct_answer":"y","options":["y","z"]}`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, "/v1/admin/exercises/conversions/enabled", `{"enabled":false}`, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, "/v1/admin/exercises/conversions", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodDelete, "/v1/admin/exercises/conversions", "", cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv()

	// Billing disabled
	w := env.do(http.MethodPost, "/v1/webhooks/stripe", `{}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStripeWebhookSignatureRequired(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.SessionSecret = "test-secret"
	cfg.Stripe.Enabled = true
	cfg.Stripe.WebhookSecret = "whsec_test"

	users := newFakeUserService()
	router := NewRouter(cfg, users, &fakeExerciseService{exercises: map[string]*models.Exercise{}},
		&fakeQuestionService{}, &fakeProgressService{progress: make(map[int]*models.UserProgress)},
		&fakeEmailService{}, observability.NewLogger(nil))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe",
		strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookUserID(t *testing.T) {
	id, err := webhookUserID("42")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	_, err = webhookUserID("")
	assert.ErrorIs(t, err, contextutils.ErrWebhookPayload)

	_, err = webhookUserID("abc")
	assert.ErrorIs(t, err, contextutils.ErrWebhookPayload)

	_, err = webhookUserID("-3")
	assert.ErrorIs(t, err, contextutils.ErrWebhookPayload)
}
