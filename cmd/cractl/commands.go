package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nsouzarj/craweb/internal/app"
	"github.com/nsouzarj/craweb/internal/domain"
	"github.com/nsouzarj/craweb/internal/guard"
	"github.com/nsouzarj/craweb/internal/permission"
	apperrors "github.com/nsouzarj/craweb/pkg/errors"
	"github.com/nsouzarj/craweb/pkg/health"
)

// env is what a command runs against.
type env struct {
	app    *app.App
	out    io.Writer
	errOut io.Writer
	opts   cliOptions
}

type commandFunc func(ctx context.Context, e *env, args []string) error

var commands = map[string]commandFunc{
	"login":    runLogin,
	"logout":   runLogout,
	"whoami":   runWhoami,
	"refresh":  runRefresh,
	"validate": runValidate,
	"register": runRegister,
	"status":   runStatus,
	"open":     runOpen,
	"routes":   runRoutes,
	"doctor":   runDoctor,
}

func newFlagSet(e *env, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.errOut)
	return fs
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "login")
	login := fs.String("u", "", "login")
	password := fs.String("p", "", "password (default $CRA_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("CRA_PASSWORD")
	}

	resp, err := e.app.Auth().Login(ctx, *login, *password)
	if apperrors.IsSessionExpired(err) {
		return errors.New("invalid login or password")
	}
	if err != nil {
		return err
	}
	if e.opts.jsonOutput {
		return printJSON(e.out, resp.User())
	}
	fmt.Fprintf(e.out, "Signed in as %s (%s), roles: %s\n",
		resp.User().FullName, resp.Login, strings.Join(resp.Roles, ", "))
	return nil
}

func runLogout(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: cractl logout")
	}
	e.app.Auth().Logout(ctx)
	fmt.Fprintln(e.out, "Signed out")
	return nil
}

func runWhoami(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: cractl whoami")
	}
	user, err := e.app.Auth().Whoami(ctx)
	if err != nil {
		return err
	}
	if e.opts.jsonOutput {
		return printJSON(e.out, user)
	}
	renderUser(e.out, user)
	return nil
}

func runRefresh(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: cractl refresh")
	}
	resp, err := e.app.Auth().Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Tokens refreshed, access token %s\n", expiryText(e, resp.Token))
	return nil
}

func runValidate(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: cractl validate")
	}
	raw, err := e.app.Auth().Validate(ctx)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		fmt.Fprintln(e.out, "Token accepted")
		return nil
	}
	return printJSON(e.out, raw)
}

func runRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlagSet(e, "register")
	var req domain.RegisterRequest
	fs.StringVar(&req.Login, "login", "", "login of the new user")
	fs.StringVar(&req.Password, "password", "", "password of the new user")
	fs.StringVar(&req.FullName, "name", "", "full name")
	fs.StringVar(&req.PrimaryEmail, "email", "", "primary email")
	fs.StringVar(&req.SecondaryEmail, "email2", "", "secondary email")
	fs.StringVar(&req.ResponsibleEmail, "email3", "", "responsible email")
	kind := fs.String("type", "", "admin, lawyer or correspondent")
	correspondent := fs.Int64("correspondent", 0, "correspondent ID to link")
	if err := fs.Parse(args); err != nil {
		return err
	}

	t, ok := domain.ParseUserType(*kind)
	if !ok {
		return fmt.Errorf("invalid -type %q: want admin, lawyer or correspondent", *kind)
	}
	req.Type = t
	if *correspondent != 0 {
		req.CorrespondentID = correspondent
	}

	resp, err := e.app.Auth().Register(ctx, req)
	if err != nil {
		return err
	}
	if e.opts.jsonOutput {
		return printJSON(e.out, resp)
	}
	msg := resp.Message
	if msg == "" {
		msg = "User registered"
	}
	fmt.Fprintln(e.out, msg)
	return nil
}

func runStatus(_ context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: cractl status")
	}
	s := e.app.Store().Get()
	perms := e.app.Permissions()

	if e.opts.jsonOutput {
		granted := []permission.Permission{}
		for _, p := range permission.All() {
			if perms.Allowed(p) {
				granted = append(granted, p)
			}
		}
		return printJSON(e.out, map[string]any{
			"authenticated": e.app.Auth().IsAuthenticated(),
			"user":          s.CurrentUser,
			"storage":       e.app.StorageDescription(),
			"permissions":   granted,
		})
	}

	rows := [][]string{
		{"authenticated", strconv.FormatBool(e.app.Auth().IsAuthenticated())},
		{"storage", e.app.StorageDescription()},
		{"access token", expiryText(e, s.AccessToken)},
		{"refresh token", presence(s.RefreshToken)},
	}
	if u := s.CurrentUser; u != nil {
		rows = append(rows,
			[]string{"login", u.Login},
			[]string{"name", u.FullName},
			[]string{"roles", strings.Join(u.Roles, ", ")},
		)
	}
	for _, p := range permission.All() {
		rows = append(rows, []string{string(p), yesNo(perms.Allowed(p))})
	}
	renderTable(e.out, []string{"FIELD", "VALUE"}, rows)
	return nil
}

func runOpen(ctx context.Context, e *env, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: cractl open <path>")
	}
	res, err := e.app.Router().Open(ctx, args[0])
	if err != nil {
		return err
	}
	if !res.Decision.Allowed {
		fmt.Fprintf(e.errOut, "access to %s denied\n", res.Requested)
	}
	return nil
}

func runRoutes(_ context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: cractl routes")
	}
	checker := guard.NewChecker(e.app.Tokens())
	s := e.app.Store().Get()

	var rows [][]string
	for _, rt := range e.app.Router().Routes() {
		access := "-> " + rt.RedirectTo
		if rt.RedirectTo == "" {
			d := checker.For(rt.Guard)(s, guard.RouteMeta{Path: rt.Path, ExpectedRoles: rt.ExpectedRoles})
			access = "allowed"
			if !d.Allowed {
				access = "-> " + d.Redirect
			}
		}
		rows = append(rows, []string{
			rt.Path, rt.Title, string(rt.Guard), strings.Join(rt.ExpectedRoles, ","), access,
		})
	}
	renderTable(e.out, []string{"PATH", "TITLE", "GUARD", "ROLES", "ACCESS"}, rows)
	return nil
}

func runDoctor(ctx context.Context, e *env, args []string) error {
	if len(args) != 0 {
		return errors.New("usage: cractl doctor")
	}
	reg := e.app.Health()
	rep := reg.Check(ctx)

	if e.opts.jsonOutput {
		if err := printJSON(e.out, rep); err != nil {
			return err
		}
	} else {
		var rows [][]string
		for _, name := range reg.Names() {
			res := rep.Checks[name]
			rows = append(rows, []string{
				name, string(res.Status), yesNo(res.Critical), res.Duration.Round(time.Millisecond).String(), res.Error,
			})
		}
		renderTable(e.out, []string{"CHECK", "STATUS", "CRITICAL", "TOOK", "ERROR"}, rows)
		fmt.Fprintf(e.out, "overall: %s\n", rep.Status)
	}

	if rep.Status == health.StatusDown {
		return errors.New("a critical dependency is down")
	}
	return nil
}

func expiryText(e *env, tok string) string {
	if tok == "" {
		return "absent"
	}
	exp, err := e.app.Tokens().ExpiresAt(tok)
	if err != nil {
		return "unreadable"
	}
	if e.app.Tokens().IsExpired(tok) {
		return "expired at " + exp.Local().Format(time.RFC3339)
	}
	return "expires at " + exp.Local().Format(time.RFC3339)
}

func renderUser(out io.Writer, u *domain.User) {
	rows := [][]string{
		{"id", strconv.FormatInt(u.ID, 10)},
		{"login", u.Login},
		{"name", u.FullName},
		{"email", u.PrimaryEmail},
		{"type", u.Type.String()},
		{"active", yesNo(u.Active)},
		{"roles", strings.Join(u.Roles, ", ")},
	}
	if u.Correspondent != nil {
		rows = append(rows, []string{"correspondent", u.Correspondent.Name})
	}
	renderTable(out, []string{"FIELD", "VALUE"}, rows)
}

func presence(s string) string {
	if s == "" {
		return "absent"
	}
	return "present"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
