// Package routes is the navigation layer: it owns the view table, runs a
// view's guard on the current session and commits or redirects.
package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nsouzarj/craweb/internal/domain"
	"github.com/nsouzarj/craweb/internal/guard"
	"github.com/nsouzarj/craweb/internal/session"
)

// ErrNotFound is returned for a path no route matches.
var ErrNotFound = errors.New("route not found")

// Route is one navigable view.
type Route struct {
	Path          string
	Title         string
	Guard         guard.Kind
	ExpectedRoles []string
	// RedirectTo makes the route an alias of another path.
	RedirectTo string
}

// Default returns the console's view table.
func Default() []Route {
	return []Route{
		{Path: "/", RedirectTo: "/dashboard"},
		{Path: guard.LoginPath, Title: "Login"},
		{Path: "/register", Title: "Cadastro de usuário", Guard: guard.KindAdmin, ExpectedRoles: []string{domain.RoleAdmin}},
		{Path: "/dashboard", Title: "Dashboard", Guard: guard.KindAuth},
		{Path: "/profile", Title: "Perfil", Guard: guard.KindAuth},
		{Path: "/usuarios", Title: "Usuários", Guard: guard.KindRole, ExpectedRoles: []string{domain.RoleAdmin, domain.RoleLawyer}},
		{Path: "/correspondentes", Title: "Correspondentes", Guard: guard.KindAuth},
		{Path: "/processos", Title: "Processos", Guard: guard.KindAuth},
		{Path: "/solicitacoes", Title: "Solicitações", Guard: guard.KindAuth},
		{Path: "/correspondent-dashboard", Title: "Painel do correspondente", Guard: guard.KindCorrespondent},
		{Path: "/correspondent-requests", Title: "Minhas solicitações", Guard: guard.KindCorrespondent},
		{Path: guard.UnauthorizedPath, Title: "Acesso negado"},
	}
}

// Validate checks a view table before it is served: paths are absolute and
// unique, guard kinds and expected roles are known, and aliases point at a
// real view.
func Validate(table []Route) error {
	seen := make(map[string]bool, len(table))
	for _, r := range table {
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("route %q: path must start with /", r.Path)
		}
		if seen[r.Path] {
			return fmt.Errorf("route %q: duplicate path", r.Path)
		}
		seen[r.Path] = true

		switch r.Guard {
		case guard.KindNone, guard.KindAuth, guard.KindAdmin, guard.KindRole, guard.KindCorrespondent:
		default:
			return fmt.Errorf("route %q: unknown guard %q", r.Path, r.Guard)
		}
		for _, role := range r.ExpectedRoles {
			if !domain.IsValidRole(role) {
				return fmt.Errorf("route %q: unknown role %q", r.Path, role)
			}
		}
	}

	for _, r := range table {
		if r.RedirectTo != "" && !seen[r.RedirectTo] {
			return fmt.Errorf("route %q: redirect to unknown path %q", r.Path, r.RedirectTo)
		}
	}
	return nil
}

// Navigator shows a view. The console prints it; a UI would render it.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, path string)

func (f NavigatorFunc) Navigate(ctx context.Context, path string) { f(ctx, path) }

// SessionSource supplies the current session snapshot.
type SessionSource interface {
	Get() session.Session
}

// Result describes a completed navigation.
type Result struct {
	Requested string
	Route     Route
	Decision  guard.Decision
	// Path is where navigation ended up: the requested path when allowed,
	// the redirect target when denied.
	Path string
}

// Router resolves paths against a route table and guards them.
type Router struct {
	routes  []Route
	checker *guard.Checker
	src     SessionSource
	nav     Navigator
	logger  *slog.Logger
}

// NewRouter creates a Router.
func NewRouter(routes []Route, checker *guard.Checker, src SessionSource, nav Navigator, logger *slog.Logger) *Router {
	return &Router{
		routes:  routes,
		checker: checker,
		src:     src,
		nav:     nav,
		logger:  logger,
	}
}

// Routes returns the route table.
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}

// Resolve finds the route serving path. A nested path such as
// /solicitacoes/42 is served by its longest matching parent.
func (r *Router) Resolve(path string) (Route, bool) {
	path = clean(path)

	var (
		best  Route
		found bool
	)
	for _, rt := range r.routes {
		if !matches(rt.Path, path) {
			continue
		}
		if !found || len(rt.Path) > len(best.Path) {
			best, found = rt, true
		}
	}
	return best, found
}

// Open runs the guard of the route serving path and navigates to it, or to
// the guard's redirect target when denied. The session is only read.
func (r *Router) Open(ctx context.Context, path string) (Result, error) {
	requested := clean(path)
	rt, ok := r.Resolve(requested)
	if !ok {
		return Result{Requested: requested}, fmt.Errorf("%w: %s", ErrNotFound, requested)
	}

	if rt.RedirectTo != "" {
		target, ok := r.Resolve(rt.RedirectTo)
		if !ok || target.RedirectTo != "" {
			return Result{Requested: requested}, fmt.Errorf("%w: %s", ErrNotFound, rt.RedirectTo)
		}
		rt = target
		requested = target.Path
	}

	decision := r.checker.For(rt.Guard)(r.src.Get(), guard.RouteMeta{
		Path:          requested,
		ExpectedRoles: rt.ExpectedRoles,
	})

	res := Result{Requested: requested, Route: rt, Decision: decision, Path: requested}
	if !decision.Allowed {
		r.logger.DebugContext(ctx, "navigation denied",
			slog.String("path", requested),
			slog.String("guard", string(rt.Guard)),
			slog.String("redirect", decision.Redirect),
		)
		res.Path = decision.Redirect
	}

	r.nav.Navigate(ctx, res.Path)
	return res, nil
}

func clean(path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

func matches(routePath, path string) bool {
	if routePath == "/" {
		return path == "/"
	}
	return path == routePath || strings.HasPrefix(path, routePath+"/")
}
