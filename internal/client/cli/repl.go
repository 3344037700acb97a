package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Challenges(ctx context.Context) error
	Show(ctx context.Context, args []string) error
	Submit(ctx context.Context, args []string) error
	Download(ctx context.Context, args []string) error
	Scoreboard(ctx context.Context) error
	Team(ctx context.Context) error
	CreateTeam(ctx context.Context) error
	Join(ctx context.Context) error
	Leave(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a
// until EOF or "exit"/"quit". Command prompts read from the same reader, so
// it must be the only consumer of the input stream.
//
// Handler errors are ignored here; handlers report their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("fk %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: challenges (c), show <id>, submit <id>, download <id> <file>, scoreboard (s), team, createteam, join, leave, logout, exit")
			} else {
				printlnFn("Available commands: register, login, scoreboard, exit")
			}

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "c", "challenges":
			_ = a.Challenges(ctx)

		case "show":
			_ = a.Show(ctx, args)

		case "submit":
			_ = a.Submit(ctx, args)

		case "download":
			_ = a.Download(ctx, args)

		case "s", "scoreboard":
			_ = a.Scoreboard(ctx)

		case "team":
			_ = a.Team(ctx)

		case "createteam":
			_ = a.CreateTeam(ctx)

		case "join":
			_ = a.Join(ctx)

		case "leave":
			_ = a.Leave(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
