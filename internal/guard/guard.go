// Package guard holds the predicates the navigation layer runs before
// entering a protected view. Guards read a session snapshot and never
// mutate it; a denial names the view to redirect to.
package guard

import (
	"github.com/nsouzarj/craweb/internal/permission"
	"github.com/nsouzarj/craweb/internal/session"
)

// Redirect targets.
const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
)

// Decision is the outcome of a guard.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Allow lets the navigation through.
func Allow() Decision { return Decision{Allowed: true} }

// Deny blocks the navigation and redirects to target.
func Deny(target string) Decision { return Decision{Redirect: target} }

// RouteMeta is the metadata of the route being entered.
type RouteMeta struct {
	Path          string
	ExpectedRoles []string
}

// Func is a guard.
type Func func(s session.Session, route RouteMeta) Decision

// Kind names a guard in a route table.
type Kind string

const (
	KindNone          Kind = ""
	KindAuth          Kind = "auth"
	KindAdmin         Kind = "admin"
	KindRole          Kind = "role"
	KindCorrespondent Kind = "correspondent"
)

// ExpiryChecker decides whether an access token is still usable.
type ExpiryChecker interface {
	IsExpired(token string) bool
}

// Checker builds the guards. It needs the token codec to decide whether a
// snapshot is authenticated.
type Checker struct {
	tokens ExpiryChecker
}

// NewChecker creates a Checker.
func NewChecker(tokens ExpiryChecker) *Checker {
	return &Checker{tokens: tokens}
}

// Authenticated reports whether s holds an access token that is not expired.
func (c *Checker) Authenticated(s session.Session) bool {
	return s.AccessToken != "" && !c.tokens.IsExpired(s.AccessToken)
}

// Auth requires an authenticated session.
func (c *Checker) Auth(s session.Session, _ RouteMeta) Decision {
	if !c.Authenticated(s) {
		return Deny(LoginPath)
	}
	return Allow()
}

// Admin requires an authenticated administrator.
func (c *Checker) Admin(s session.Session, _ RouteMeta) Decision {
	if !c.Authenticated(s) {
		return Deny(LoginPath)
	}
	if !permission.IsAdmin(s) {
		return Deny(UnauthorizedPath)
	}
	return Allow()
}

// Role requires an authenticated user holding any of the route's expected
// roles. A route without expected roles admits every authenticated user.
func (c *Checker) Role(s session.Session, route RouteMeta) Decision {
	if !c.Authenticated(s) {
		return Deny(LoginPath)
	}
	if len(route.ExpectedRoles) == 0 {
		return Allow()
	}
	if !permission.HasAnyRole(s, route.ExpectedRoles) {
		return Deny(UnauthorizedPath)
	}
	return Allow()
}

// Correspondent requires an authenticated correspondent. Both failures
// lead to the unauthorized view.
func (c *Checker) Correspondent(s session.Session, _ RouteMeta) Decision {
	if c.Authenticated(s) && permission.IsCorrespondent(s) {
		return Allow()
	}
	return Deny(UnauthorizedPath)
}

// For returns the guard of kind k. KindNone and unknown kinds admit everyone.
func (c *Checker) For(k Kind) Func {
	switch k {
	case KindAuth:
		return c.Auth
	case KindAdmin:
		return c.Admin
	case KindRole:
		return c.Role
	case KindCorrespondent:
		return c.Correspondent
	default:
		return func(session.Session, RouteMeta) Decision { return Allow() }
	}
}
