package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/grpc/status"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

var errUsage = errors.New("usage")

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	New(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	Publish(ctx context.Context, args []string) error
	Unpublish(ctx context.Context, args []string) error
	Rollback(ctx context.Context, args []string) error
	Revert(ctx context.Context, args []string) error
	Diff(ctx context.Context, args []string) error
	Move(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Link(ctx context.Context, args []string) error
	Crumbs(ctx context.Context, args []string) error
	Duplicate(ctx context.Context, args []string) error
}

var usage = map[string]string{
	"ls":        "ls [parent-id]",
	"show":      "show <id> [draft|live]",
	"new":       "new [parent-id]",
	"edit":      "edit <id>",
	"publish":   "publish <id>",
	"unpublish": "unpublish <id>",
	"rollback":  "rollback <id>",
	"revert":    "revert <id>",
	"diff":      "diff <id>",
	"mv":        "mv <id> <parent-id|->",
	"rm":        "rm <id>",
	"link":      "link <id> [draft|live]",
	"crumbs":    "crumbs <id> [draft|live]",
	"dup":       "dup <id> [deep] [parent-id]",
}

func help(loggedIn bool) string {
	if loggedIn {
		return "Available commands: ping, ls, show, new, edit, publish, unpublish, rollback, revert, diff, mv, rm, link, crumbs, dup, logout, exit"
	}
	return "Available commands: ping, login, ls, show, link, crumbs, exit"
}

// runREPL reads one command per line from reader and dispatches it to a
// until EOF or "exit". Handler errors are reported and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("pt (%s)> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			if err != nil {
				return
			}
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(help(a.isLoggedIn()))
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "ping":
			cmdErr = a.Ping(ctx)
		case "ls":
			cmdErr = a.List(ctx, args)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "new":
			cmdErr = a.New(ctx, args)
		case "edit":
			cmdErr = a.Edit(ctx, args)
		case "publish":
			cmdErr = a.Publish(ctx, args)
		case "unpublish":
			cmdErr = a.Unpublish(ctx, args)
		case "rollback":
			cmdErr = a.Rollback(ctx, args)
		case "revert":
			cmdErr = a.Revert(ctx, args)
		case "diff":
			cmdErr = a.Diff(ctx, args)
		case "mv":
			cmdErr = a.Move(ctx, args)
		case "rm":
			cmdErr = a.Remove(ctx, args)
		case "link":
			cmdErr = a.Link(ctx, args)
		case "crumbs":
			cmdErr = a.Crumbs(ctx, args)
		case "dup":
			cmdErr = a.Duplicate(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			report(cmd, cmdErr)
		}
		if err != nil {
			return
		}
	}
}

func report(cmd string, err error) {
	if errors.Is(err, errUsage) {
		printlnFn("Usage:", usage[cmd])
		return
	}
	if s, ok := status.FromError(err); ok {
		printlnFn(fmt.Sprintf("Error (%s): %s", s.Code(), s.Message()))
		return
	}
	printlnFn("Error:", err)
}
