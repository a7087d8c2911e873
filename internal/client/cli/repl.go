package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	touch()
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error
	SwitchMode(ctx context.Context, arg string) error
	List(ctx context.Context) error
	New(ctx context.Context) error
	Doctors(ctx context.Context) error
	Pick(ctx context.Context, arg string) error
	Open(ctx context.Context, arg string) error
	History(ctx context.Context) error
	Send(ctx context.Context, text string) error
	Attach(ctx context.Context, path, caption string) error
	Typing(ctx context.Context) error
	Remove(ctx context.Context, id string) error
	Close(ctx context.Context, arg string) error
}

const (
	helpLoggedOut = "Available commands: login, help, exit"
	helpLoggedIn  = "Available commands: whoami, mode ai|doctor, (l)ist, new, doctors, pick <n>, open <n|id>, " +
		"history, send <text>, attach <path> [caption], typing, rm <message id>, close <n|id>, logout, exit\n" +
		"Any other line is sent as a message to the open conversation."
)

// runREPL starts the read–eval–print loop of the medchat CLI.
//
// It reads a line from reader, parses the first token as the command and
// dispatches to methods on 'a'. While logged in, a line that is not a
// command is sent as a message. The loop exits on EOF or when the user types
// "exit" or "quit".
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("medchat %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		a.touch()

		cmd := parts[0]
		rest := strings.TrimSpace(strings.TrimPrefix(line, cmd))
		arg := ""
		if len(parts) > 1 {
			arg = parts[1]
		}

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if cmd == "help" {
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue
		}
		if !a.isLoggedIn() {
			if cmd == "login" {
				_ = a.Login(ctx)
			} else {
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "login":
			printlnFn("Already logged in. Type 'logout' first.")
		case "logout":
			_ = a.Logout(ctx)
		case "whoami":
			_ = a.Whoami(ctx)
		case "mode":
			_ = a.SwitchMode(ctx, arg)
		case "l", "list":
			_ = a.List(ctx)
		case "new":
			_ = a.New(ctx)
		case "doctors":
			_ = a.Doctors(ctx)
		case "pick":
			_ = a.Pick(ctx, arg)
		case "open":
			_ = a.Open(ctx, arg)
		case "history":
			_ = a.History(ctx)
		case "send":
			_ = a.Send(ctx, rest)
		case "attach":
			caption := ""
			if len(parts) > 2 {
				caption = strings.TrimSpace(strings.TrimPrefix(rest, arg))
			}
			_ = a.Attach(ctx, arg, caption)
		case "typing":
			_ = a.Typing(ctx)
		case "rm":
			_ = a.Remove(ctx, arg)
		case "close":
			_ = a.Close(ctx, arg)
		default:
			_ = a.Send(ctx, line)
		}
	}
}

func (a *App) touch() {
	a.presence.Touch()
}
