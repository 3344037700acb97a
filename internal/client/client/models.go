package client

import "time"

type User struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	IsAdmin  bool    `json:"is_admin"`
	TeamID   *string `json:"team_id"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type BoardChallenge struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Value      int    `json:"value"`
	SolveCount int    `json:"solve_count"`
	Solved     bool   `json:"solved"`
	Available  bool   `json:"available"`
}

type BoardCategory struct {
	Category   string           `json:"category"`
	Challenges []BoardChallenge `json:"challenges"`
}

type TeamSolve struct {
	Points   int       `json:"points"`
	SolvedAt time.Time `json:"solved_at"`
}

type ChallengeDetail struct {
	BoardChallenge
	DescriptionHTML string     `json:"description_html"`
	Author          string     `json:"author"`
	Hint            string     `json:"hint"`
	Files           []string   `json:"files"`
	TeamSolve       *TeamSolve `json:"team_solve"`
}

type SubmitResult struct {
	Outcome string `json:"outcome"`
	Points  int    `json:"points"`
}

type ScoreboardRow struct {
	Rank        int        `json:"rank"`
	TeamID      string     `json:"team_id"`
	TeamName    string     `json:"team_name"`
	Score       int        `json:"score"`
	LastSolveAt *time.Time `json:"last_solve_at"`
	LastSolveBy *string    `json:"last_solve_by"`
}

type Team struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	CaptainID  *string `json:"captain_id"`
	InviteCode string  `json:"invite_code"`
}

type TeamSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
	Score   int    `json:"score"`
}

type TeamMember struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	IsCaptain bool   `json:"is_captain"`
}

type Solve struct {
	ChallengeID string    `json:"challenge_id"`
	Points      int       `json:"points"`
	UserID      *string   `json:"user_id"`
	SolvedAt    time.Time `json:"solved_at"`
}

type TeamView struct {
	Team
	Score   int          `json:"score"`
	Members []TeamMember `json:"members"`
	Solves  []Solve      `json:"solves"`
}

type LoadDiagnostic struct {
	Dir   string `json:"dir"`
	Error string `json:"error"`
}

type LoadReport struct {
	Loaded      int              `json:"loaded"`
	Diagnostics []LoadDiagnostic `json:"diagnostics"`
}
