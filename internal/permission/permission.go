// Package permission derives role membership and feature permissions from
// the signed-in user. Everything here is a pure function of a session
// snapshot; Resolver only fetches the snapshot at call time.
package permission

import (
	"github.com/nsouzarj/craweb/internal/domain"
	"github.com/nsouzarj/craweb/internal/session"
)

// PrimaryRole returns the first role of the current user, or "".
func PrimaryRole(s session.Session) string {
	return s.CurrentUser.PrimaryRole()
}

// HasRole reports whether the current user holds role.
func HasRole(s session.Session, role string) bool {
	for _, r := range s.Roles() {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the current user holds at least one of roles.
// An empty list is never satisfied.
func HasAnyRole(s session.Session, roles []string) bool {
	for _, r := range roles {
		if HasRole(s, r) {
			return true
		}
	}
	return false
}

// HasAllRoles reports whether the current user holds every one of roles.
// An empty list is never satisfied.
func HasAllRoles(s session.Session, roles []string) bool {
	if len(roles) == 0 {
		return false
	}
	for _, r := range roles {
		if !HasRole(s, r) {
			return false
		}
	}
	return true
}

func IsAdmin(s session.Session) bool { return HasRole(s, domain.RoleAdmin) }
func IsLawyer(s session.Session) bool { return HasRole(s, domain.RoleLawyer) }
func IsCorrespondent(s session.Session) bool { return HasRole(s, domain.RoleCorrespondent) }

func adminOrLawyer(s session.Session) bool { return IsAdmin(s) || IsLawyer(s) }

// Permission names a feature-level capability.
type Permission string

const (
	EditRequests         Permission = "edit-requests"
	CreateRequests       Permission = "create-requests"
	ViewAllRequests      Permission = "view-all-requests"
	ManageCorrespondents Permission = "manage-correspondents"
	DeleteRequests       Permission = "delete-requests"
	AssignRequests       Permission = "assign-requests"
	ViewReports          Permission = "view-reports"
	ManageUsers          Permission = "manage-users"
)

// All lists every permission in display order.
func All() []Permission {
	return []Permission{
		EditRequests, CreateRequests, ViewAllRequests, ManageCorrespondents,
		DeleteRequests, AssignRequests, ViewReports, ManageUsers,
	}
}

// Allowed reports whether the current user has p. Administrators have every
// permission; lawyers have the request-handling and correspondent ones.
func Allowed(s session.Session, p Permission) bool {
	switch p {
	case EditRequests, CreateRequests, ViewAllRequests, ManageCorrespondents:
		return adminOrLawyer(s)
	case DeleteRequests, AssignRequests, ViewReports, ManageUsers:
		return IsAdmin(s)
	default:
		return false
	}
}

// Visible decides whether a role-restricted element is shown. Unlike
// HasAnyRole, an empty requirement means no restriction.
func Visible(s session.Session, roles []string, requireAll bool) bool {
	if len(roles) == 0 {
		return true
	}
	if requireAll {
		return HasAllRoles(s, roles)
	}
	return HasAnyRole(s, roles)
}

// Source supplies the current session snapshot.
type Source interface {
	Get() session.Session
}

// Resolver answers role and permission questions against the live session.
type Resolver struct {
	src Source
}

// NewResolver creates a Resolver reading from src.
func NewResolver(src Source) *Resolver {
	return &Resolver{src: src}
}

// The methods below evaluate the package-level functions on a fresh
// snapshot at every call.

func (r *Resolver) PrimaryRole() string { return PrimaryRole(r.src.Get()) }
func (r *Resolver) HasRole(role string) bool { return HasRole(r.src.Get(), role) }
func (r *Resolver) HasAnyRole(roles []string) bool { return HasAnyRole(r.src.Get(), roles) }
func (r *Resolver) HasAllRoles(roles []string) bool { return HasAllRoles(r.src.Get(), roles) }
func (r *Resolver) IsAdmin() bool { return IsAdmin(r.src.Get()) }
func (r *Resolver) IsLawyer() bool { return IsLawyer(r.src.Get()) }
func (r *Resolver) IsCorrespondent() bool { return IsCorrespondent(r.src.Get()) }
func (r *Resolver) Allowed(p Permission) bool { return Allowed(r.src.Get(), p) }
func (r *Resolver) CanEditRequests() bool { return r.Allowed(EditRequests) }
func (r *Resolver) CanCreateRequests() bool { return r.Allowed(CreateRequests) }
func (r *Resolver) CanViewAllRequests() bool { return r.Allowed(ViewAllRequests) }
func (r *Resolver) CanManageCorrespondents() bool { return r.Allowed(ManageCorrespondents) }
func (r *Resolver) CanDeleteRequests() bool { return r.Allowed(DeleteRequests) }
func (r *Resolver) CanAssignRequests() bool { return r.Allowed(AssignRequests) }
func (r *Resolver) CanViewReports() bool { return r.Allowed(ViewReports) }
func (r *Resolver) CanManageUsers() bool { return r.Allowed(ManageUsers) }

// HasPermissions checks role identifiers with any or all semantics.
func (r *Resolver) HasPermissions(roles []string, requireAll bool) bool {
	if requireAll {
		return r.HasAllRoles(roles)
	}
	return r.HasAnyRole(roles)
}

// Visible is the package-level Visible against the live session.
func (r *Resolver) Visible(roles []string, requireAll bool) bool {
	return Visible(r.src.Get(), roles, requireAll)
}
