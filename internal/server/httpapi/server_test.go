package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/common"
	"github.com/dmitrijs2005/flagkeeper/internal/logging"
	"github.com/dmitrijs2005/flagkeeper/internal/server/auth"
	"github.com/dmitrijs2005/flagkeeper/internal/server/challenges"
	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
	"github.com/dmitrijs2005/flagkeeper/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const testSecret = "test-secret"

// --- fakes ---

type fakeAccounts struct {
	users map[string]*models.User
}

func (f *fakeAccounts) Register(ctx context.Context, username, password string) (*models.User, error) {
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password too short", common.ErrorValidation)
	}
	if username == "taken" {
		return nil, common.ErrorAlreadyExists
	}
	return &models.User{ID: "u-new", UserName: username}, nil
}

func (f *fakeAccounts) Login(ctx context.Context, username, password string) (*services.TokenPair, error) {
	if password != "secret123" {
		return nil, common.ErrorUnauthorized
	}
	return &services.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
}

func (f *fakeAccounts) RefreshToken(ctx context.Context, token string) (*services.TokenPair, error) {
	switch token {
	case "old":
		return nil, common.ErrRefreshTokenExpired
	case "good":
		return &services.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
	}
	return nil, common.ErrorUnauthorized
}

func (f *fakeAccounts) Logout(ctx context.Context, userID string) error { return nil }

func (f *fakeAccounts) Me(ctx context.Context, userID string) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return u, nil
}

type fakeTeams struct {
	lastActor string
}

func (f *fakeTeams) Create(ctx context.Context, userID, name string) (*models.Team, error) {
	f.lastActor = userID
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: team name must be 1-64 characters", common.ErrorValidation)
	}
	return &models.Team{ID: "t1", Name: name, CaptainID: &userID, InviteCode: "inv"}, nil
}

func (f *fakeTeams) Join(ctx context.Context, userID, code string) (*models.Team, error) {
	if code != "inv" {
		return nil, common.ErrorNotFound
	}
	return &models.Team{ID: "t1", Name: "alpha", InviteCode: "inv"}, nil
}

func (f *fakeTeams) Leave(ctx context.Context, userID string) error { return common.ErrNotOnTeam }

func (f *fakeTeams) RemoveMember(ctx context.Context, actorID, teamID, userID string) error {
	f.lastActor = actorID
	return common.ErrForbidden
}

func (f *fakeTeams) SetCaptain(ctx context.Context, actorID, teamID, userID string) error {
	f.lastActor = actorID
	return nil
}

func (f *fakeTeams) Get(ctx context.Context, viewerID, teamID string) (*services.TeamView, error) {
	return &services.TeamView{
		Team:    &models.Team{ID: teamID, Name: "alpha"},
		Members: []services.TeamMember{{ID: "u1", UserName: "alice", IsCaptain: true}},
		Score:   100,
		Solves:  []*models.Solve{{ChallengeID: "web1", PointsAwarded: 100, CreatedAt: time.Unix(0, 0).UTC()}},
	}, nil
}

func (f *fakeTeams) List(ctx context.Context) ([]models.TeamSummary, error) {
	return []models.TeamSummary{{ID: "t1", Name: "alpha", Members: 2, Score: 100}}, nil
}

type fakeBoard struct{}

func (fakeBoard) Board(ctx context.Context, userID string) ([]services.CategoryGroup, error) {
	return []services.CategoryGroup{{Category: "web", Challenges: []services.BoardEntry{
		{ID: "web1", Title: "Web 1", Category: "web", Value: 100, Available: true},
	}}}, nil
}

func (fakeBoard) Detail(ctx context.Context, userID, id string) (*services.ChallengeDetail, error) {
	if id != "web1" {
		return nil, common.ErrorNotFound
	}
	return &services.ChallengeDetail{
		BoardEntry:      services.BoardEntry{ID: "web1", Title: "Web 1", Value: 100, Available: true},
		DescriptionHTML: "<p>hi</p>",
	}, nil
}

type fakeSubmissions struct{}

func (fakeSubmissions) Submit(ctx context.Context, userID, id, flag string) (*services.SubmissionResult, error) {
	switch flag {
	case "flag{abc}":
		return &services.SubmissionResult{Outcome: services.OutcomeAccepted, Points: 100, ChallengeID: id}, nil
	case "again":
		return &services.SubmissionResult{Outcome: services.OutcomeAlreadySolved, ChallengeID: id}, nil
	case "":
		return nil, common.ErrEmptyFlag
	case "lonely":
		return nil, common.ErrNotOnTeam
	case "boom":
		return nil, fmt.Errorf("guard: %w", common.ErrChallengeFault)
	}
	return nil, common.ErrIncorrectFlag
}

type fakeScoreboard struct{ err error }

func (f fakeScoreboard) Scoreboard(ctx context.Context) ([]services.ScoreboardRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []services.ScoreboardRow{{Rank: 1, TeamID: "t1", TeamName: "alpha", Score: 100}}, nil
}

type fakeAttachments struct{}

func (fakeAttachments) URL(ctx context.Context, id, file string) (string, error) {
	if file != "notes.txt" {
		return "", common.ErrorNotFound
	}
	return "http://s3.local/challenges/" + id + "/" + file + "?sig=1", nil
}

type fakeReloader struct{ calls int }

func (f *fakeReloader) Load(ctx context.Context) (*challenges.LoadReport, error) {
	f.calls++
	return &challenges.LoadReport{Loaded: 2, Diagnostics: []*challenges.DefinitionLoadError{
		{Dir: "bad", Err: errors.New("missing title")},
	}}, nil
}

// --- harness ---

type harness struct {
	srv      *httptest.Server
	teams    *fakeTeams
	reloader *fakeReloader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{teams: &fakeTeams{}, reloader: &fakeReloader{}}
	deps := Deps{
		Accounts: &fakeAccounts{users: map[string]*models.User{
			"u1":    {ID: "u1", UserName: "alice"},
			"admin": {ID: "admin", UserName: "root", IsAdmin: true},
		}},
		Teams:       h.teams,
		Board:       fakeBoard{},
		Submissions: fakeSubmissions{},
		Scoreboard:  fakeScoreboard{},
		Attachments: fakeAttachments{},
		Reloader:    h.reloader,
	}
	h.srv = httptest.NewServer(NewServer(":0", logging.Nop{}, deps, testSecret).Routes())
	t.Cleanup(h.srv.Close)
	return h
}

func token(t *testing.T, userID string, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, []byte(testSecret), ttl)
	require.NoError(t, err)
	return tok
}

func (h *harness) do(t *testing.T, method, path, bearer, body string) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rd)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+bearer)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

// --- tests ---

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp, body := h.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestRequestSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	h := newHarness(t)
	resp, _ := h.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Eventually(t, func() bool {
		for _, sp := range rec.Ended() {
			if sp.Name() == "GET /healthz" {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestAuthRoutes(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name       string
		path, body string
		wantStatus int
		wantClass  string
	}{
		{"register", "/api/v1/auth/register", `{"username":"bob","password":"secret123"}`, http.StatusCreated, ""},
		{"register short password", "/api/v1/auth/register", `{"username":"bob","password":"x"}`, http.StatusBadRequest, ClassValidation},
		{"register taken", "/api/v1/auth/register", `{"username":"taken","password":"secret123"}`, http.StatusConflict, ClassConflict},
		{"register malformed", "/api/v1/auth/register", `{"username":`, http.StatusBadRequest, ClassBadRequest},
		{"login", "/api/v1/auth/login", `{"username":"bob","password":"secret123"}`, http.StatusOK, ""},
		{"login bad", "/api/v1/auth/login", `{"username":"bob","password":"nope"}`, http.StatusUnauthorized, ClassUnauthorized},
		{"refresh", "/api/v1/auth/refresh", `{"refresh_token":"good"}`, http.StatusOK, ""},
		{"refresh expired", "/api/v1/auth/refresh", `{"refresh_token":"old"}`, http.StatusUnauthorized, ClassRefreshTokenExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.do(t, http.MethodPost, tt.path, "", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantClass != "" {
				assert.Equal(t, tt.wantClass, body["error"])
				assert.NotEmpty(t, body["message"])
			}
		})
	}

	_, body := h.do(t, http.MethodPost, "/api/v1/auth/register", "", `{"username":"bob","password":"x"}`)
	assert.Equal(t, "password too short", body["message"])
}

func TestBearerMiddleware(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodGet, "/api/v1/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, ClassUnauthorized, body["error"])

	resp, body = h.do(t, http.MethodGet, "/api/v1/me", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, ClassUnauthorized, body["error"])

	resp, body = h.do(t, http.MethodGet, "/api/v1/me", token(t, "u1", -time.Minute), "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, ClassTokenExpired, body["error"])

	resp, body = h.do(t, http.MethodGet, "/api/v1/me", token(t, "u1", time.Minute), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", body["username"])

	resp, _ = h.do(t, http.MethodPost, "/api/v1/auth/logout", token(t, "u1", time.Minute), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSubmitRoute(t *testing.T) {
	h := newHarness(t)
	tok := token(t, "u1", time.Minute)

	tests := []struct {
		flag       string
		wantStatus int
		wantClass  string
	}{
		{"flag{abc}", http.StatusOK, ""},
		{"again", http.StatusOK, ""},
		{"", http.StatusBadRequest, ClassEmptyFlag},
		{"wrong", http.StatusUnprocessableEntity, ClassIncorrectFlag},
		{"lonely", http.StatusForbidden, ClassMustJoinTeam},
		{"boom", http.StatusInternalServerError, ClassChallengeError},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			resp, body := h.do(t, http.MethodPost, "/api/v1/challenges/web1/submit", tok, `{"flag":"`+tt.flag+`"}`)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantClass != "" {
				assert.Equal(t, tt.wantClass, body["error"])
			}
		})
	}

	_, body := h.do(t, http.MethodPost, "/api/v1/challenges/web1/submit", tok, `{"flag":"flag{abc}"}`)
	assert.Equal(t, map[string]any{"outcome": "accepted", "points": float64(100)}, body)
	_, body = h.do(t, http.MethodPost, "/api/v1/challenges/web1/submit", tok, `{"flag":"again"}`)
	assert.Equal(t, map[string]any{"outcome": "already_solved"}, body)
	_, body = h.do(t, http.MethodPost, "/api/v1/challenges/web1/submit", tok, `{"flag":"boom"}`)
	assert.NotContains(t, body["message"], "guard")
}

func TestChallengeRoutes(t *testing.T) {
	h := newHarness(t)
	tok := token(t, "u1", time.Minute)

	resp, _ := h.do(t, http.MethodGet, "/api/v1/challenges", tok, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := h.do(t, http.MethodGet, "/api/v1/challenges/web1", tok, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<p>hi</p>", body["description_html"])
	assert.Equal(t, []any{}, body["files"])

	resp, body = h.do(t, http.MethodGet, "/api/v1/challenges/nope", tok, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, ClassNotFound, body["error"])

	resp, _ = h.do(t, http.MethodGet, "/api/v1/challenges/web1/files/notes.txt", tok, "")
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "http://s3.local/challenges/web1/notes.txt?sig=1", resp.Header.Get("Location"))

	resp, _ = h.do(t, http.MethodGet, "/api/v1/challenges/web1/files/other.bin", tok, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTeamRoutes(t *testing.T) {
	h := newHarness(t)
	tok := token(t, "u1", time.Minute)

	resp, body := h.do(t, http.MethodPost, "/api/v1/teams", tok, `{"name":"alpha"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "inv", body["invite_code"])
	assert.Equal(t, "u1", h.teams.lastActor)

	resp, _ = h.do(t, http.MethodPost, "/api/v1/teams", tok, `{"name":" "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/v1/teams/join", tok, `{"invite_code":"inv"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.do(t, http.MethodPost, "/api/v1/teams/join", tok, `{"invite_code":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, "/api/v1/teams/leave", tok, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, ClassMustJoinTeam, body["error"])

	resp, body = h.do(t, http.MethodPost, "/api/v1/teams/t1/members/u2/remove", tok, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, ClassForbidden, body["error"])

	resp, _ = h.do(t, http.MethodPost, "/api/v1/teams/t1/captain/u2", tok, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = h.do(t, http.MethodGet, "/api/v1/teams/t1", tok, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(100), body["score"])
	assert.Len(t, body["members"], 1)
	assert.NotContains(t, body, "invite_code")

	resp, _ = h.do(t, http.MethodGet, "/api/v1/teams", tok, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestScoreboardRoute(t *testing.T) {
	h := newHarness(t)
	req, err := http.Get(h.srv.URL + "/api/v1/scoreboard")
	require.NoError(t, err)
	defer req.Body.Close()
	assert.Equal(t, http.StatusOK, req.StatusCode)

	var rows []services.ScoreboardRow
	require.NoError(t, json.NewDecoder(req.Body).Decode(&rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "alpha", rows[0].TeamName)
}

func TestScoreboardRoute_InternalError(t *testing.T) {
	deps := Deps{Scoreboard: fakeScoreboard{err: errors.New("db down")}}
	srv := httptest.NewServer(NewServer(":0", logging.Nop{}, deps, testSecret).Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/scoreboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body errorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, errorBody{Error: ClassInternal, Message: "internal error"}, body)
}

func TestAdminReload(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(t, http.MethodPost, "/api/v1/admin/reload", token(t, "u1", time.Minute), "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, ClassForbidden, body["error"])
	assert.Zero(t, h.reloader.calls)

	resp, body = h.do(t, http.MethodPost, "/api/v1/admin/reload", token(t, "admin", time.Minute), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["loaded"])
	assert.Equal(t, []any{map[string]any{"dir": "bad", "error": "missing title"}}, body["diagnostics"])
	assert.Equal(t, 1, h.reloader.calls)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := NewServer("127.0.0.1:0", logging.Nop{}, Deps{}, testSecret)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
