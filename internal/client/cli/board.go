package cli

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"os"
	"regexp"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/flagkeeper/internal/client/client"
)

var errUsage = errors.New("usage")

// report prints a user-facing message for err and returns it.
func (a *App) report(err error) error {
	switch {
	case err == nil:
	case errors.Is(err, client.ErrNotLoggedIn):
		fmt.Fprintln(a.out, "Please log in first")
	case errors.Is(err, client.ErrUnavailable):
		a.setMode(ModeOffline)
		fmt.Fprintln(a.out, "Server unavailable, try again later")
	case client.HasClass(err, "must_join_team"):
		fmt.Fprintln(a.out, "You must join a team first (see 'createteam' and 'join')")
	default:
		log.Printf("error: %s", err.Error())
	}
	return err
}

// Challenges prints the board grouped by category.
func (a *App) Challenges(ctx context.Context) error {
	board, err := a.api.Board(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(board) == 0 {
		fmt.Fprintln(a.out, "No challenges yet")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 2, 2, ' ', 0)
	for _, cat := range board {
		fmt.Fprintf(w, "[%s]\n", cat.Category)
		for _, c := range cat.Challenges {
			mark := " "
			if c.Solved {
				mark = "*"
			}
			value := fmt.Sprint(c.Value)
			if !c.Available {
				value = "n/a"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s pts\t%d solves\n", mark, c.ID, c.Title, value, c.SolveCount)
		}
	}
	return w.Flush()
}

var tagRe = regexp.MustCompile(`<[^>]+>`)

// plainText renders description HTML for a terminal.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(s, "")))
}

// Show prints a single challenge with its attachments.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: show <id>")
		return errUsage
	}

	d, err := a.api.Challenge(ctx, args[0])
	if err != nil {
		return a.report(err)
	}

	fmt.Fprintf(a.out, "%s [%s] %d pts, %d solves\n", d.Title, d.Category, d.Value, d.SolveCount)
	if d.Author != "" {
		fmt.Fprintf(a.out, "Author: %s\n", d.Author)
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, plainText(d.DescriptionHTML))
	if d.Hint != "" {
		fmt.Fprintf(a.out, "\nHint: %s\n", d.Hint)
	}
	for _, f := range d.Files {
		u, err := a.api.AttachmentURL(ctx, d.ID, f)
		if err != nil {
			fmt.Fprintf(a.out, "File: %s (unavailable)\n", f)
			continue
		}
		fmt.Fprintf(a.out, "File: %s %s\n", f, u)
	}
	if d.TeamSolve != nil {
		fmt.Fprintf(a.out, "Solved by your team for %d pts at %s\n", d.TeamSolve.Points, d.TeamSolve.SolvedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// Submit asks for a flag and submits it for the given challenge.
func (a *App) Submit(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprintln(a.out, "Usage: submit <id>")
		return errUsage
	}

	flag, err := getSimpleText(a.reader, "Enter flag", os.Stdout)
	if err != nil {
		return err
	}

	res, err := a.api.Submit(ctx, args[0], flag)
	switch {
	case client.HasClass(err, client.ClassIncorrect):
		fmt.Fprintln(a.out, "Incorrect flag, try again")
		return err
	case client.HasClass(err, "empty_flag"):
		fmt.Fprintln(a.out, "Flag must not be empty")
		return err
	case err != nil:
		return a.report(err)
	}

	if res.Outcome == "already_solved" {
		fmt.Fprintln(a.out, "Your team has already solved this challenge")
		return nil
	}
	fmt.Fprintf(a.out, "Correct! +%d pts\n", res.Points)
	return nil
}

// Scoreboard prints the ranked standings.
func (a *App) Scoreboard(ctx context.Context) error {
	rows, err := a.api.Scoreboard(ctx)
	if err != nil {
		return a.report(err)
	}
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "No teams yet")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTeam\tScore\tLast solve")
	for _, r := range rows {
		last := "-"
		if r.LastSolveAt != nil {
			last = r.LastSolveAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", r.Rank, r.TeamName, r.Score, last)
	}
	return w.Flush()
}
