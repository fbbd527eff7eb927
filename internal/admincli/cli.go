package admincli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/adminaccess/internal/common"
	"github.com/dmitrijs2005/adminaccess/internal/server/auth"
)

// Exit codes.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitUsage  = 2
	ExitDenied = 3
)

var (
	errUsage            = errors.New("usage")
	errPasswordMismatch = errors.New("passwords do not match")
)

// Access is the part of the access service the CLI drives.
type Access interface {
	Register(ctx context.Context, email, password, displayName string) error
	Login(ctx context.Context, email, password string) (string, error)
	RequestRecovery(ctx context.Context, email string) (string, error)
	CompleteRecovery(ctx context.Context, token, newPassword string) error
	CheckPermission(ctx context.Context, email, permission string) (bool, error)
	VerifySession(token string) (*auth.SessionClaims, error)
}

type command struct {
	usage   string
	minArgs int
	run     func(ctx context.Context, c *CLI, args []string) (int, error)
}

var commands = map[string]command{
	"register": {"register <email> [display name]", 1, runRegister},
	"login":    {"login <email>", 1, runLogin},
	"recover":  {"recover <email>", 1, runRecover},
	"reset":    {"reset <recovery-token>", 1, runReset},
	"check":    {"check <email> <permission>", 2, runCheck},
	"verify":   {"verify <session-token>", 1, runVerify},
}

var commandOrder = []string{"register", "login", "recover", "reset", "check", "verify"}

type CLI struct {
	access Access
	out    io.Writer
	errOut io.Writer
}

func New(access Access, out, errOut io.Writer) *CLI {
	return &CLI{access: access, out: out, errOut: errOut}
}

// Run executes one command and returns the process exit code.
func (c *CLI) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		c.usage()
		return ExitUsage
	}

	cmd, ok := commands[args[0]]
	if !ok || len(args)-1 < cmd.minArgs {
		c.usage()
		return ExitUsage
	}

	code, err := cmd.run(ctx, c, args[1:])
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(c.errOut, "usage: admin", cmd.usage)
			return ExitUsage
		}
		kind := common.Kind(err)
		if errors.Is(err, errPasswordMismatch) {
			kind = "invalid_input"
		}
		fmt.Fprintf(c.errOut, "error [%s]: %v\n", kind, err)
		return ExitFailed
	}
	return code
}

func (c *CLI) usage() {
	fmt.Fprintln(c.errOut, "usage:")
	for _, name := range commandOrder {
		fmt.Fprintln(c.errOut, "  admin [flags]", commands[name].usage)
	}
}

func runRegister(ctx context.Context, c *CLI, args []string) (int, error) {
	password, err := GetNewPassword(c.errOut)
	if err != nil {
		return ExitFailed, err
	}
	displayName := strings.Join(args[1:], " ")
	if err := c.access.Register(ctx, args[0], password, displayName); err != nil {
		return ExitFailed, err
	}
	fmt.Fprintf(c.out, "registered %s\n", args[0])
	return ExitOK, nil
}

func runLogin(ctx context.Context, c *CLI, args []string) (int, error) {
	password, err := GetPassword(c.errOut, "Password")
	if err != nil {
		return ExitFailed, err
	}
	token, err := c.access.Login(ctx, args[0], password)
	if err != nil {
		return ExitFailed, err
	}
	fmt.Fprintln(c.out, token)
	return ExitOK, nil
}

func runRecover(ctx context.Context, c *CLI, args []string) (int, error) {
	token, err := c.access.RequestRecovery(ctx, args[0])
	if err != nil {
		return ExitFailed, err
	}
	fmt.Fprintln(c.out, token)
	return ExitOK, nil
}

func runReset(ctx context.Context, c *CLI, args []string) (int, error) {
	password, err := GetNewPassword(c.errOut)
	if err != nil {
		return ExitFailed, err
	}
	if err := c.access.CompleteRecovery(ctx, args[0], password); err != nil {
		return ExitFailed, err
	}
	fmt.Fprintln(c.out, "password updated")
	return ExitOK, nil
}

func runCheck(ctx context.Context, c *CLI, args []string) (int, error) {
	if len(args) != 2 {
		return ExitUsage, errUsage
	}
	ok, err := c.access.CheckPermission(ctx, args[0], args[1])
	if err != nil {
		return ExitFailed, err
	}
	if !ok {
		fmt.Fprintln(c.out, "denied")
		return ExitDenied, nil
	}
	fmt.Fprintln(c.out, "granted")
	return ExitOK, nil
}

func runVerify(_ context.Context, c *CLI, args []string) (int, error) {
	claims, err := c.access.VerifySession(args[0])
	if err != nil {
		return ExitFailed, err
	}
	fmt.Fprintf(c.out, "user_id=%s email=%s role=%s expires=%s\n",
		claims.UserID, claims.Email, claims.RoleName, claims.ExpiresAt.UTC().Format(time.RFC3339))
	return ExitOK, nil
}
