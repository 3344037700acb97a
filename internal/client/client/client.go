package client

import "context"

// Client is the API surface the CLI needs.
type Client interface {
	Register(ctx context.Context, username, password string) (*User, error)
	Login(ctx context.Context, username, password string) error
	Logout(ctx context.Context) error
	LoggedIn() bool
	Ping(ctx context.Context) error
	Me(ctx context.Context) (*User, error)

	Board(ctx context.Context) ([]BoardCategory, error)
	Challenge(ctx context.Context, id string) (*ChallengeDetail, error)
	Submit(ctx context.Context, id, flag string) (*SubmitResult, error)
	AttachmentURL(ctx context.Context, id, file string) (string, error)
	Scoreboard(ctx context.Context) ([]ScoreboardRow, error)

	Teams(ctx context.Context) ([]TeamSummary, error)
	Team(ctx context.Context, id string) (*TeamView, error)
	CreateTeam(ctx context.Context, name string) (*Team, error)
	JoinTeam(ctx context.Context, inviteCode string) (*Team, error)
	LeaveTeam(ctx context.Context) error

	Reload(ctx context.Context) (*LoadReport, error)
}
