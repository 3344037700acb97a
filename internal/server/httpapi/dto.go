package httpapi

import (
	"time"

	"github.com/dmitrijs2005/flagkeeper/internal/server/challenges"
	"github.com/dmitrijs2005/flagkeeper/internal/server/models"
	"github.com/dmitrijs2005/flagkeeper/internal/server/services"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	IsAdmin  bool    `json:"is_admin"`
	TeamID   *string `json:"team_id"`
}

func toUser(u *models.User) userResponse {
	return userResponse{ID: u.ID, Username: u.UserName, IsAdmin: u.IsAdmin, TeamID: u.TeamID}
}

type boardEntryResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Value      int    `json:"value"`
	SolveCount int    `json:"solve_count"`
	Solved     bool   `json:"solved"`
	Available  bool   `json:"available"`
}

type categoryResponse struct {
	Category   string               `json:"category"`
	Challenges []boardEntryResponse `json:"challenges"`
}

func toBoardEntry(e services.BoardEntry) boardEntryResponse {
	return boardEntryResponse{
		ID:         e.ID,
		Title:      e.Title,
		Category:   e.Category,
		Value:      e.Value,
		SolveCount: e.SolveCount,
		Solved:     e.Solved,
		Available:  e.Available,
	}
}

func toBoard(groups []services.CategoryGroup) []categoryResponse {
	out := make([]categoryResponse, 0, len(groups))
	for _, g := range groups {
		c := categoryResponse{Category: g.Category, Challenges: make([]boardEntryResponse, 0, len(g.Challenges))}
		for _, e := range g.Challenges {
			c.Challenges = append(c.Challenges, toBoardEntry(e))
		}
		out = append(out, c)
	}
	return out
}

type teamSolveResponse struct {
	Points   int       `json:"points"`
	SolvedAt time.Time `json:"solved_at"`
}

type detailResponse struct {
	boardEntryResponse
	DescriptionHTML string             `json:"description_html"`
	Author          string             `json:"author,omitempty"`
	Hint            string             `json:"hint,omitempty"`
	Files           []string           `json:"files"`
	TeamSolve       *teamSolveResponse `json:"team_solve,omitempty"`
}

func toDetail(d *services.ChallengeDetail) detailResponse {
	out := detailResponse{
		boardEntryResponse: toBoardEntry(d.BoardEntry),
		DescriptionHTML:    d.DescriptionHTML,
		Author:             d.Author,
		Hint:               d.Hint,
		Files:              d.Files,
	}
	if out.Files == nil {
		out.Files = []string{}
	}
	if d.TeamSolve != nil {
		out.TeamSolve = &teamSolveResponse{Points: d.TeamSolve.Points, SolvedAt: d.TeamSolve.SolvedAt}
	}
	return out
}

type submitRequest struct {
	Flag string `json:"flag"`
}

type submitResponse struct {
	Outcome string `json:"outcome"`
	Points  *int   `json:"points,omitempty"`
}

func toSubmit(res *services.SubmissionResult) submitResponse {
	out := submitResponse{Outcome: string(res.Outcome)}
	if res.Outcome == services.OutcomeAccepted {
		p := res.Points
		out.Points = &p
	}
	return out
}

type createTeamRequest struct {
	Name string `json:"name"`
}

type joinTeamRequest struct {
	InviteCode string `json:"invite_code"`
}

type teamResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	CaptainID  *string `json:"captain_id"`
	InviteCode string  `json:"invite_code,omitempty"`
}

func toTeam(t *models.Team) teamResponse {
	return teamResponse{ID: t.ID, Name: t.Name, CaptainID: t.CaptainID, InviteCode: t.InviteCode}
}

type teamSummaryResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
	Score   int    `json:"score"`
}

type memberResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	IsCaptain bool   `json:"is_captain"`
}

type solveResponse struct {
	ChallengeID string    `json:"challenge_id"`
	Points      int       `json:"points"`
	UserID      *string   `json:"user_id"`
	SolvedAt    time.Time `json:"solved_at"`
}

type teamViewResponse struct {
	teamResponse
	Score   int              `json:"score"`
	Members []memberResponse `json:"members"`
	Solves  []solveResponse  `json:"solves"`
}

func toTeamView(v *services.TeamView) teamViewResponse {
	out := teamViewResponse{
		teamResponse: teamResponse{ID: v.Team.ID, Name: v.Team.Name, CaptainID: v.Team.CaptainID, InviteCode: v.InviteCode},
		Score:        v.Score,
		Members:      make([]memberResponse, 0, len(v.Members)),
		Solves:       make([]solveResponse, 0, len(v.Solves)),
	}
	for _, m := range v.Members {
		out.Members = append(out.Members, memberResponse{ID: m.ID, Username: m.UserName, IsCaptain: m.IsCaptain})
	}
	for _, sv := range v.Solves {
		out.Solves = append(out.Solves, solveResponse{ChallengeID: sv.ChallengeID, Points: sv.PointsAwarded, UserID: sv.UserID, SolvedAt: sv.CreatedAt})
	}
	return out
}

type diagnosticResponse struct {
	Dir   string `json:"dir"`
	Error string `json:"error"`
}

type reloadResponse struct {
	Loaded      int                  `json:"loaded"`
	Diagnostics []diagnosticResponse `json:"diagnostics"`
}

func toReload(rep *challenges.LoadReport) reloadResponse {
	out := reloadResponse{Loaded: rep.Loaded, Diagnostics: make([]diagnosticResponse, 0, len(rep.Diagnostics))}
	for _, d := range rep.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, diagnosticResponse{Dir: d.Dir, Error: d.Err.Error()})
	}
	return out
}
