package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
)

// Team prints the current user's team with members and solves.
func (a *App) Team(ctx context.Context) error {
	me, err := a.api.Me(ctx)
	if err != nil {
		return a.report(err)
	}
	if me.TeamID == nil {
		fmt.Fprintln(a.out, "You are not on a team (see 'createteam' and 'join')")
		return nil
	}

	v, err := a.api.Team(ctx, *me.TeamID)
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "Team %s, %d pts\n", v.Name, v.Score)
	if v.InviteCode != "" {
		fmt.Fprintf(a.out, "Invite code: %s\n", v.InviteCode)
	}

	w := tabwriter.NewWriter(a.out, 0, 2, 2, ' ', 0)
	for _, m := range v.Members {
		role := ""
		if m.IsCaptain {
			role = "captain"
		}
		fmt.Fprintf(w, "  %s\t%s\n", m.Username, role)
	}
	for _, s := range v.Solves {
		fmt.Fprintf(w, "  %s\t%d pts\t%s\n", s.ChallengeID, s.Points, s.SolvedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func (a *App) CreateTeam(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter team name", os.Stdout)
	if err != nil {
		return err
	}

	t, err := a.api.CreateTeam(ctx, name)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Team %s created, invite code: %s\n", t.Name, t.InviteCode)
	return nil
}

func (a *App) Join(ctx context.Context) error {
	code, err := getSimpleText(a.reader, "Enter invite code", os.Stdout)
	if err != nil {
		return err
	}

	t, err := a.api.JoinTeam(ctx, code)
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Joined team %s\n", t.Name)
	return nil
}

func (a *App) Leave(ctx context.Context) error {
	if err := a.api.LeaveTeam(ctx); err != nil {
		return a.report(err)
	}
	fmt.Fprintln(a.out, "You left the team")
	return nil
}
