package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/client/client"
	"github.com/dmitrijs2005/flagkeeper/internal/client/config"
)

// stubInputs replaces the prompt helpers: each getSimpleText call returns
// the next answer, getPassword returns a fresh copy of password.
func stubInputs(t *testing.T, password string, answers ...string) {
	t.Helper()
	origST, origGP, origNP := getSimpleText, getPassword, getNewPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(answers) == 0 {
			return "", io.EOF
		}
		s := answers[0]
		answers = answers[1:]
		return s, nil
	}
	getPassword = func(_ io.Writer) ([]byte, error) { return []byte(password), nil }
	getNewPassword = getPassword
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
		getNewPassword = origNP
	})
}

func newTestApp(api client.Client) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{
		config: &config.Config{RequestTimeout: time.Second, OnlineCheckInterval: time.Hour},
		api:    api,
		reader: bufio.NewReader(strings.NewReader("")),
		out:    &out,
	}, &out
}

type fakeAPI struct {
	client.Client

	loggedIn bool
	pingErr  error

	regUser, regPass     string
	regErr               error
	loginUser, loginPass string
	loginErr             error
	logoutCalled         bool

	me    *client.User
	meErr error

	board    []client.BoardCategory
	boardErr error

	detail    *client.ChallengeDetail
	detailErr error
	files     map[string]string

	submitID, submitFlag string
	submitRes            *client.SubmitResult
	submitErr            error

	rows []client.ScoreboardRow

	team       *client.TeamView
	created    *client.Team
	createName string
	joinCode   string
	joinErr    error
	leaveErr   error
}

func (f *fakeAPI) LoggedIn() bool                 { return f.loggedIn }
func (f *fakeAPI) Ping(ctx context.Context) error { return f.pingErr }

func (f *fakeAPI) Register(_ context.Context, u, p string) (*client.User, error) {
	f.regUser, f.regPass = u, p
	if f.regErr != nil {
		return nil, f.regErr
	}
	return &client.User{ID: "u1", Username: u}, nil
}

func (f *fakeAPI) Login(_ context.Context, u, p string) error {
	f.loginUser, f.loginPass = u, p
	if f.loginErr == nil {
		f.loggedIn = true
	}
	return f.loginErr
}

func (f *fakeAPI) Logout(context.Context) error {
	f.logoutCalled = true
	f.loggedIn = false
	return nil
}

func (f *fakeAPI) Me(context.Context) (*client.User, error) { return f.me, f.meErr }

func (f *fakeAPI) Board(context.Context) ([]client.BoardCategory, error) {
	return f.board, f.boardErr
}

func (f *fakeAPI) Challenge(context.Context, string) (*client.ChallengeDetail, error) {
	return f.detail, f.detailErr
}

func (f *fakeAPI) AttachmentURL(_ context.Context, _ string, file string) (string, error) {
	u, ok := f.files[file]
	if !ok {
		return "", &client.APIError{Status: 404, Class: "not_found"}
	}
	return u, nil
}

func (f *fakeAPI) Submit(_ context.Context, id, flag string) (*client.SubmitResult, error) {
	f.submitID, f.submitFlag = id, flag
	return f.submitRes, f.submitErr
}

func (f *fakeAPI) Scoreboard(context.Context) ([]client.ScoreboardRow, error) { return f.rows, nil }

func (f *fakeAPI) Team(context.Context, string) (*client.TeamView, error) { return f.team, nil }

func (f *fakeAPI) CreateTeam(_ context.Context, name string) (*client.Team, error) {
	f.createName = name
	return f.created, nil
}

func (f *fakeAPI) JoinTeam(_ context.Context, code string) (*client.Team, error) {
	f.joinCode = code
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	return &client.Team{ID: "t1", Name: "red"}, nil
}

func (f *fakeAPI) LeaveTeam(context.Context) error { return f.leaveErr }
