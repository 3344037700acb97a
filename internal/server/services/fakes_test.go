package services

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/common"
	"github.com/dmitrijs2005/flagkeeper/internal/dbx"
	"github.com/dmitrijs2005/flagkeeper/internal/logging"
	"github.com/dmitrijs2005/flagkeeper/internal/server/challenges"
	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
	refreshtokensrepo "github.com/dmitrijs2005/flagkeeper/internal/server/repositories/refreshtokens"
	solvesrepo "github.com/dmitrijs2005/flagkeeper/internal/server/repositories/solves"
	teamsrepo "github.com/dmitrijs2005/flagkeeper/internal/server/repositories/teams"
	usersrepo "github.com/dmitrijs2005/flagkeeper/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// --- in-memory store behind every fake repository ---

type memStore struct {
	mu     sync.Mutex
	seq    int
	clock  time.Time
	users  map[string]*models.User
	teams  map[string]*models.Team
	solves []*models.Solve
	tokens map[string]*models.RefreshToken

	// failures injected per operation, e.g. "solves.Create"
	fail map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		clock:  time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		users:  map[string]*models.User{},
		teams:  map[string]*models.Team{},
		tokens: map[string]*models.RefreshToken{},
		fail:   map[string]error{},
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s%d", prefix, s.seq)
}

// tick advances the fake clock so every write gets a distinct time.
func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func (s *memStore) failure(op string) error {
	return s.fail[op]
}

func (s *memStore) addUser(t *testing.T, name string) *models.User {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &models.User{ID: s.nextID("u"), UserName: name, CreatedAt: s.tick()}
	s.users[u.ID] = u
	return cloneUser(u)
}

// addTeam creates a team captained by the first member.
func (s *memStore) addTeam(t *testing.T, name string, members ...*models.User) *models.Team {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	team := &models.Team{ID: s.nextID("t"), Name: name, InviteCode: "code-" + name, CreatedAt: s.tick()}
	for i, m := range members {
		id := team.ID
		s.users[m.ID].TeamID = &id
		if i == 0 {
			c := m.ID
			team.CaptainID = &c
		}
	}
	s.teams[team.ID] = team
	return cloneTeam(team)
}

func (s *memStore) user(id string) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.users[id])
}

func (s *memStore) team(id string) *models.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTeam(s.teams[id])
}

func (s *memStore) solveRows() []models.Solve {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Solve, len(s.solves))
	for i, sv := range s.solves {
		out[i] = *sv
	}
	return out
}

func cloneUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	if u.TeamID != nil {
		id := *u.TeamID
		c.TeamID = &id
	}
	return &c
}

func cloneTeam(t *models.Team) *models.Team {
	if t == nil {
		return nil
	}
	c := *t
	if t.CaptainID != nil {
		id := *t.CaptainID
		c.CaptainID = &id
	}
	return &c
}

// --- users ---

type memUsers struct{ s *memStore }

func (r memUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.Create"); err != nil {
		return nil, err
	}
	for _, ex := range r.s.users {
		if ex.UserName == u.UserName {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := cloneUser(u)
	c.ID = r.s.nextID("u")
	c.CreatedAt = r.s.tick()
	r.s.users[c.ID] = c
	return cloneUser(c), nil
}

func (r memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(u), nil
}

func (r memUsers) GetByIDForUpdate(ctx context.Context, id string) (*models.User, error) {
	return r.GetByID(ctx, id)
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.UserName == username {
			return cloneUser(u), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memUsers) SetTeam(ctx context.Context, userID string, teamID *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.TeamID = nil
	if teamID != nil {
		id := *teamID
		u.TeamID = &id
	}
	return nil
}

func (r memUsers) ListByTeam(ctx context.Context, teamID string) ([]*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.User
	for _, u := range r.s.users {
		if u.TeamID != nil && *u.TeamID == teamID {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

// --- teams ---

type memTeams struct{ s *memStore }

func (r memTeams) Create(ctx context.Context, team *models.Team) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ex := range r.s.teams {
		if ex.Name == team.Name {
			return nil, common.ErrorAlreadyExists
		}
	}
	c := cloneTeam(team)
	c.ID = r.s.nextID("t")
	c.CreatedAt = r.s.tick()
	r.s.teams[c.ID] = c
	return cloneTeam(c), nil
}

func (r memTeams) GetByID(ctx context.Context, id string) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneTeam(t), nil
}

func (r memTeams) GetByInviteCode(ctx context.Context, code string) (*models.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.teams {
		if t.InviteCode == code {
			return cloneTeam(t), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memTeams) SetCaptain(ctx context.Context, teamID string, captainID *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.teams[teamID]
	if !ok {
		return common.ErrorNotFound
	}
	t.CaptainID = nil
	if captainID != nil {
		id := *captainID
		t.CaptainID = &id
	}
	return nil
}

func (r memTeams) List(ctx context.Context) ([]models.TeamSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.TeamSummary
	for _, t := range r.s.teams {
		sum := models.TeamSummary{ID: t.ID, Name: t.Name}
		for _, u := range r.s.users {
			if u.TeamID != nil && *u.TeamID == t.ID {
				sum.Members++
			}
		}
		for _, sv := range r.s.solves {
			if sv.TeamID == t.ID {
				sum.Score += sv.PointsAwarded
			}
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- solves ---

type memSolves struct{ s *memStore }

func (r memSolves) LockChallenge(ctx context.Context, challengeID string) error { return nil }

func (r memSolves) Find(ctx context.Context, teamID, challengeID string) (*models.Solve, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sv := range r.s.solves {
		if sv.TeamID == teamID && sv.ChallengeID == challengeID {
			c := *sv
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memSolves) CountByChallenge(ctx context.Context, challengeID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("solves.CountByChallenge"); err != nil {
		return 0, err
	}
	n := 0
	for _, sv := range r.s.solves {
		if sv.ChallengeID == challengeID {
			n++
		}
	}
	return n, nil
}

func (r memSolves) CountsByChallenge(ctx context.Context) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := map[string]int{}
	for _, sv := range r.s.solves {
		out[sv.ChallengeID]++
	}
	return out, nil
}

func (r memSolves) Create(ctx context.Context, solve *models.Solve) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("solves.Create"); err != nil {
		return false, err
	}
	for _, sv := range r.s.solves {
		if sv.TeamID == solve.TeamID && sv.ChallengeID == solve.ChallengeID {
			return false, nil
		}
	}
	c := *solve
	c.ID = int64(len(r.s.solves) + 1)
	c.CreatedAt = r.s.tick()
	r.s.solves = append(r.s.solves, &c)
	solve.ID, solve.CreatedAt = c.ID, c.CreatedAt
	return true, nil
}

func (r memSolves) ListByTeam(ctx context.Context, teamID string) ([]*models.Solve, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Solve
	for _, sv := range r.s.solves {
		if sv.TeamID == teamID {
			c := *sv
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memSolves) TeamScore(ctx context.Context, teamID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("solves.TeamScore"); err != nil {
		return 0, err
	}
	total := 0
	for _, sv := range r.s.solves {
		if sv.TeamID == teamID {
			total += sv.PointsAwarded
		}
	}
	return total, nil
}

func (r memSolves) Standings(ctx context.Context) ([]models.TeamStanding, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("solves.Standings"); err != nil {
		return nil, err
	}
	var out []models.TeamStanding
	for _, t := range r.s.teams {
		st := models.TeamStanding{TeamID: t.ID, TeamName: t.Name}
		for _, sv := range r.s.solves {
			if sv.TeamID != t.ID {
				continue
			}
			st.Score += sv.PointsAwarded
			if st.LastSolveAt == nil || sv.CreatedAt.After(*st.LastSolveAt) {
				at := sv.CreatedAt
				st.LastSolveAt = &at
				st.LastSolveBy = nil
				if sv.UserID != nil {
					if u, ok := r.s.users[*sv.UserID]; ok {
						name := u.UserName
						st.LastSolveBy = &name
					}
				}
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// --- refresh tokens ---

type memTokens struct{ s *memStore }

func (r memTokens) Create(ctx context.Context, userID string, token string, validity time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("tokens.Create"); err != nil {
		return err
	}
	r.s.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r memTokens) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.s.tokens, token)
	c := *rt
	return &c, nil
}

func (r memTokens) DeleteByUser(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, rt := range r.s.tokens {
		if rt.UserID == userID {
			delete(r.s.tokens, k)
		}
	}
	return nil
}

// --- manager ---

type memRepoManager struct{ s *memStore }

func (m memRepoManager) RunMigrations(context.Context, *sql.DB) error        { return nil }
func (m memRepoManager) Users(dbx.DBTX) usersrepo.Repository                 { return memUsers{m.s} }
func (m memRepoManager) Teams(dbx.DBTX) teamsrepo.Repository                 { return memTeams{m.s} }
func (m memRepoManager) Solves(dbx.DBTX) solvesrepo.Repository               { return memSolves{m.s} }
func (m memRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository { return memTokens{m.s} }

// --- helpers ---

// newTxDB returns a real *sql.DB so WithTx can begin and commit; the
// fakes never issue SQL through it.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate(context.Context) { c.n.Add(1) }

func writeChallenge(t *testing.T, root, dir string, files map[string]string) {
	t.Helper()
	d := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(d, 0o755))
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(d, name), []byte(body), 0o644))
	}
}

func loadRegistry(t *testing.T, root string) *challenges.Registry {
	t.Helper()
	reg := challenges.NewRegistry(challenges.Options{Root: root, EvalTimeout: time.Second, ScriptBudget: 100_000}, logging.Nop{})
	_, err := reg.Load(context.Background())
	require.NoError(t, err)
	return reg
}

type faultyCapability struct{}

func (faultyCapability) Solve(context.Context, string) (bool, error) { panic("broken checker") }
func (faultyCapability) Value(context.Context, int) (int, error)     { return 0, fmt.Errorf("no price") }

func init() {
	challenges.RegisterVariant("svc-faulty", func(challenges.Definition) (challenges.Capability, error) {
		return faultyCapability{}, nil
	})
}

// standardChallenges writes web1 (static, 100), dyn (decay 100 -> 20 over 4)
// and broken (faulty variant).
func standardChallenges(t *testing.T) *challenges.Registry {
	t.Helper()
	root := t.TempDir()
	writeChallenge(t, root, "web1", map[string]string{
		"chall.json":     `{"id":"web1","title":"Web 1","category":"web","points":100,"flag":"flag{abc}","files":["notes.txt"]}`,
		"description.md": "# Hello",
		"notes.txt":      "hi",
	})
	writeChallenge(t, root, "dyn", map[string]string{
		"chall.yaml": "id: dyn\ntitle: Dynamic\ncategory: crypto\npoints: 100\ntype: decay\nminimum: 20\ndecay: 4\nflag: flag{dyn}\n",
	})
	writeChallenge(t, root, "broken", map[string]string{
		"chall.json": `{"id":"broken","title":"Broken","category":"misc","points":50,"type":"svc-faulty"}`,
	})
	return loadRegistry(t, root)
}
