package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/fieldcrm/internal/client/client"
	"github.com/dmitrijs2005/fieldcrm/internal/client/guard"
	"github.com/dmitrijs2005/fieldcrm/internal/client/settings"
	"github.com/dmitrijs2005/fieldcrm/internal/client/supervise"
	"github.com/dmitrijs2005/fieldcrm/internal/client/syncqueue"
	"github.com/dmitrijs2005/fieldcrm/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Whoami(ctx context.Context) error

	Orders(ctx context.Context) error
	Order(ctx context.Context, id string) error
	Status(ctx context.Context, id, status string) error
	Comment(ctx context.Context, id, text string) error
	Photo(ctx context.Context, id, path string) error
	Update(ctx context.Context, id string, pairs []string) error

	Queue(ctx context.Context) error
	Retry(ctx context.Context, id string) error
	Discard(ctx context.Context, id string) error
	Sync(ctx context.Context) error

	Theme(ctx context.Context, value string) error
	Design(ctx context.Context, value string) error

	Notifications(ctx context.Context) error
	Read(ctx context.Context, id string) error
	Dismiss(ctx context.Context, id string) error
}

const (
	helpSignedOut = "Available commands: login, theme <light|dark>, design <v1|v2>, help, exit"
	helpSignedIn  = "Available commands: orders, order <id>, status <id> <status>, comment <id> <text>, " +
		"photo <id> <path>, update <id> key=value..., queue, retry <id>, discard <id>, sync, " +
		"notifications, read <id>, dismiss <id>, whoami, theme <light|dark>, design <v1|v2>, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the fieldcrm CLI.
//
// It reads a line from reader, splits it into arguments (double quotes
// group words) and dispatches the first one as the command. Unknown
// commands and missing arguments are reported back to the user. The loop
// exits on EOF or when the user types "exit" or "quit".
//
// The prompt shows the current status (from statusFn): who is signed in,
// online/offline/syncing and the number of queued changes.
//
// Command errors are printed, not returned; a failed command never ends the
// loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("fieldcrm %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
			return
		}
		args := splitArgs(line)
		if len(args) == 0 {
			continue
		}
		cmd, args := args[0], args[1:]

		if cmd == "exit" || cmd == "quit" {
			printlnFn("Bye!")
			return
		}
		if err := dispatch(ctx, a, cmd, args); err != nil {
			printlnFn("Error:", describeError(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

func need(args []string, n int, usage string) error {
	if len(args) < n {
		return usageError(usage)
	}
	return nil
}

func dispatch(ctx context.Context, a execIface, cmd string, args []string) error {
	switch cmd {
	case "help":
		if a.isLoggedIn() {
			printlnFn(helpSignedIn)
		} else {
			printlnFn(helpSignedOut)
		}
		return nil

	case "login":
		return a.Login(ctx)
	case "logout":
		return a.Logout(ctx)
	case "whoami":
		return a.Whoami(ctx)

	case "orders", "l", "list":
		return a.Orders(ctx)
	case "order", "show":
		if err := need(args, 1, "order <id>"); err != nil {
			return err
		}
		return a.Order(ctx, args[0])
	case "status":
		if err := need(args, 2, "status <id> <status>"); err != nil {
			return err
		}
		return a.Status(ctx, args[0], args[1])
	case "comment":
		if err := need(args, 2, "comment <id> <text>"); err != nil {
			return err
		}
		return a.Comment(ctx, args[0], strings.Join(args[1:], " "))
	case "photo":
		if err := need(args, 2, "photo <id> <path>"); err != nil {
			return err
		}
		return a.Photo(ctx, args[0], args[1])
	case "update":
		if err := need(args, 2, "update <id> key=value..."); err != nil {
			return err
		}
		return a.Update(ctx, args[0], args[1:])

	case "queue":
		return a.Queue(ctx)
	case "retry":
		if err := need(args, 1, "retry <id>"); err != nil {
			return err
		}
		return a.Retry(ctx, args[0])
	case "discard":
		if err := need(args, 1, "discard <id>"); err != nil {
			return err
		}
		return a.Discard(ctx, args[0])
	case "sync":
		return a.Sync(ctx)

	case "theme":
		if err := need(args, 1, "theme <light|dark>"); err != nil {
			return err
		}
		return a.Theme(ctx, args[0])
	case "design":
		if err := need(args, 1, "design <v1|v2>"); err != nil {
			return err
		}
		return a.Design(ctx, args[0])

	case "notifications", "n":
		return a.Notifications(ctx)
	case "read":
		if err := need(args, 1, "read <id>"); err != nil {
			return err
		}
		return a.Read(ctx, args[0])
	case "dismiss":
		if err := need(args, 1, "dismiss <id>"); err != nil {
			return err
		}
		return a.Dismiss(ctx, args[0])
	}
	return fmt.Errorf("unknown command %q (type 'help')", cmd)
}

// describeError turns service errors into something a technician can act on.
func describeError(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, guard.ErrStale), errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, supervise.ErrPanic):
		return "something went wrong while showing this screen"
	case errors.Is(err, client.ErrUnauthorized):
		return "not signed in or session expired (type 'login')"
	case errors.Is(err, client.ErrLocalDataNotAvailable):
		return "not available offline yet; open it once while online"
	case errors.Is(err, client.ErrUnavailable):
		return "server unreachable"
	case errors.Is(err, common.ErrorNotFound):
		return "not found"
	case errors.As(err, &apiErr) && len(apiErr.Fields) > 0:
		return apiErr.Error()
	case errors.Is(err, syncqueue.ErrInvalidItem), errors.Is(err, settings.ErrInvalidSettings):
		return "invalid input: " + err.Error()
	}
	return err.Error()
}
