// Package zikr implements the command-line client built on the client core:
// signup with pending-join redemption, circle management, and the live
// counting screen with its polling loop and optimistic taps.
package zikr

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/zikrcircle/zikrcircle/internal/client"
	apperrors "github.com/zikrcircle/zikrcircle/internal/errors"
	platformcmd "github.com/zikrcircle/zikrcircle/internal/platform/cmd"
)

// Config captures the environment configuration for the CLI client.
type Config struct {
	ServerURL string `env:"ZIKR_CIRCLE_SERVER_URL" envDefault:"http://localhost:8080"`
	StateDir  string `env:"ZIKR_CIRCLE_STATE_DIR" envDefault:".zikrcircle"`
}

// Run executes one CLI command.
func Run(ctx context.Context, args []string) error {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	fs := flag.NewFlagSet("zikr", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "backend base URL")
	fs.StringVar(&cfg.StateDir, "state", cfg.StateDir, "local state directory")
	fs.Usage = usage(fs)
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("a command is required")
	}

	app, err := newApp(cfg)
	if err != nil {
		return err
	}

	command, rest := fs.Arg(0), fs.Args()[1:]
	switch command {
	case "signup":
		return app.signup(ctx, rest)
	case "circles":
		return app.circles(ctx)
	case "create":
		return app.createCircle(ctx, rest)
	case "invite":
		return app.invite(ctx, rest)
	case "join":
		return app.join(ctx, rest)
	case "live":
		return app.live(ctx, rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintln(fs.Output(), "usage: zikr [flags] <command>")
		fmt.Fprintln(fs.Output(), "commands: signup, circles, create, invite, join, live")
		fs.PrintDefaults()
	}
}

type app struct {
	backend    *client.HTTPBackend
	controller *client.Controller
	tokenPath  string
}

func newApp(cfg Config) (*app, error) {
	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	backend := client.NewHTTPBackend(cfg.ServerURL)
	a := &app{
		backend:   backend,
		tokenPath: filepath.Join(cfg.StateDir, "token"),
	}
	if raw, err := os.ReadFile(a.tokenPath); err == nil {
		backend.SetToken(strings.TrimSpace(string(raw)))
	}

	joins := client.NewJoinStore(filepath.Join(cfg.StateDir, "pending_join"))
	a.controller = client.NewController(backend, joins,
		client.WithOnComplete(func(snap client.Snapshot) {
			fmt.Printf("\ncircle complete: %d/%d (you contributed %d)\n",
				snap.CircleCount, snap.TargetCount, snap.YouCount)
		}))
	return a, nil
}

func (a *app) saveToken() error {
	if err := os.WriteFile(a.tokenPath, []byte(a.backend.Token()+"\n"), 0o600); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	name := fs.String("name", "", "display name")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}

	u, err := a.controller.Signup(ctx, *email, *name)
	if err != nil {
		return err
	}
	if err := a.saveToken(); err != nil {
		return err
	}
	fmt.Printf("signed in as %s <%s>\n", u.Name, u.Email)
	return nil
}

func (a *app) circles(ctx context.Context) error {
	circles, err := a.controller.Circles(ctx)
	if err != nil {
		return err
	}
	if len(circles) == 0 {
		fmt.Println("no circles yet; create one or join with an invite")
		return nil
	}
	for _, c := range circles {
		line := fmt.Sprintf("%s  %s (%s x%d)", c.ID, c.Name, c.RecitationText, c.TargetCount)
		if c.SessionStatus != "" {
			line += fmt.Sprintf("  [%s %d/%d %d%%]",
				c.SessionStatus, c.CompletedCount, c.CurrentTarget, c.ProgressPct)
		}
		fmt.Println(line)
	}
	return nil
}

func (a *app) createCircle(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	name := fs.String("name", "", "circle name")
	recitation := fs.String("recitation", "", "recitation text (default SubhanAllah)")
	target := fs.Int64("target", 0, "default target count (default 100)")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}

	c, err := a.backend.CreateCircle(ctx, *name, *recitation, *target)
	if err != nil {
		return err
	}
	fmt.Printf("created circle %s: %s (%s x%d)\n", c.ID, c.Name, c.RecitationText, c.TargetCount)
	return nil
}

func (a *app) invite(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("invite", flag.ContinueOnError)
	circleID := fs.String("circle", "", "circle id")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}

	token, err := a.backend.CreateInvite(ctx, *circleID)
	if err != nil {
		return err
	}
	fmt.Printf("invite token: %s\nshare link: ?join=%s\n", token, token)
	return nil
}

func (a *app) join(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("join", flag.ContinueOnError)
	token := fs.String("token", "", "invite token")
	link := fs.String("link", "", "invite link carrying ?join=")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}

	tok := strings.TrimSpace(*token)
	if tok == "" {
		tok = client.JoinTokenFromURL(*link)
	}
	if tok == "" {
		return fmt.Errorf("an invite token or link is required")
	}

	err := a.backend.AcceptInvite(ctx, tok)
	switch {
	case err == nil:
		fmt.Println("joined")
		return nil
	case apperrors.IsCode(err, apperrors.CodeUnauthenticated):
		// Keep the token for redemption right after signup.
		if saveErr := a.controller.CaptureJoinLink("?join=" + tok); saveErr != nil {
			return saveErr
		}
		fmt.Println("sign up first; the invite will be redeemed automatically")
		return nil
	default:
		return err
	}
}

// live starts a session and runs the counting screen: the poller refreshes
// the shared total while stdin lines add taps.
func (a *app) live(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("live", flag.ContinueOnError)
	circleID := fs.String("circle", "", "circle id")
	sessionID := fs.String("session", "", "join an existing open session instead")
	target := fs.Int64("target", 100, "target count")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return err
	}

	var state *client.SessionContext
	var err error
	if *sessionID != "" {
		state, err = a.controller.JoinLive(ctx, *sessionID)
	} else {
		state, err = a.controller.StartLive(ctx, *circleID, *target)
	}
	if err != nil {
		return err
	}
	defer a.controller.StopPolling()

	fmt.Printf("session %s live; enter a count per line, q to close\n", state.SessionID())

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			snap := state.Snapshot()
			fmt.Printf("%d/%d (you: %d)\n", snap.CircleCount, snap.TargetCount, snap.YouCount)
			continue
		}
		if line == "q" {
			return a.controller.CloseSession(ctx)
		}

		delta, convErr := strconv.ParseInt(line, 10, 64)
		if convErr != nil {
			fmt.Println("enter a number, an empty line for progress, or q to close")
			continue
		}

		outcome, err := a.controller.AddDelta(ctx, delta)
		switch {
		case err == nil:
			fmt.Printf("%d/%d\n", outcome.CompletedCount, state.Snapshot().TargetCount)
		case apperrors.IsCode(err, apperrors.CodeSessionClosed):
			// Completion or closure already reported by the callback.
			return nil
		case apperrors.IsRetryable(err):
			fmt.Println("count not delivered, try again")
		default:
			log.Printf("increment: %v", err)
		}
	}
	return scanner.Err()
}
