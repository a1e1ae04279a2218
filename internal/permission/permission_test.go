package permission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nsouzarj/craweb/internal/domain"
	"github.com/nsouzarj/craweb/internal/session"
	"github.com/nsouzarj/craweb/pkg/logger"
)

func withRoles(roles ...string) session.Session {
	return session.Session{
		AccessToken: "token",
		CurrentUser: &domain.User{Login: "u", Roles: roles},
	}
}

var (
	admin         = withRoles(domain.RoleAdmin)
	lawyer        = withRoles(domain.RoleLawyer)
	correspondent = withRoles(domain.RoleCorrespondent)
	anonymous     = session.Session{}
)

func TestPrimaryRole(t *testing.T) {
	assert.Equal(t, "", PrimaryRole(anonymous))
	assert.Equal(t, "", PrimaryRole(withRoles()))
	assert.Equal(t, domain.RoleLawyer, PrimaryRole(withRoles(domain.RoleLawyer, domain.RoleAdmin)))
}

func TestHasRole(t *testing.T) {
	assert.True(t, HasRole(admin, domain.RoleAdmin))
	assert.False(t, HasRole(admin, domain.RoleLawyer))
	assert.False(t, HasRole(anonymous, domain.RoleAdmin))
}

func TestHasAnyRole(t *testing.T) {
	assert.True(t, HasAnyRole(lawyer, []string{domain.RoleAdmin, domain.RoleLawyer}))
	assert.False(t, HasAnyRole(correspondent, []string{domain.RoleAdmin, domain.RoleLawyer}))
	assert.False(t, HasAnyRole(anonymous, []string{domain.RoleAdmin}))
}

func TestHasAnyRole_EmptyListIsFalse(t *testing.T) {
	for _, s := range []session.Session{admin, lawyer, correspondent, anonymous} {
		assert.False(t, HasAnyRole(s, nil))
		assert.False(t, HasAnyRole(s, []string{}))
	}
}

func TestHasAllRoles(t *testing.T) {
	both := withRoles(domain.RoleAdmin, domain.RoleLawyer)
	assert.True(t, HasAllRoles(both, []string{domain.RoleAdmin, domain.RoleLawyer}))
	assert.False(t, HasAllRoles(admin, []string{domain.RoleAdmin, domain.RoleLawyer}))
	assert.False(t, HasAllRoles(both, nil))
}

func TestRoleShortcuts(t *testing.T) {
	assert.True(t, IsAdmin(admin))
	assert.False(t, IsLawyer(admin))
	assert.True(t, IsLawyer(lawyer))
	assert.True(t, IsCorrespondent(correspondent))
	assert.False(t, IsAdmin(anonymous))
	assert.False(t, IsCorrespondent(anonymous))
}

func TestAllowed_TruthTable(t *testing.T) {
	table := map[Permission][4]bool{
		//                     admin lawyer corr  anon
		EditRequests:         {true, true, false, false},
		CreateRequests:       {true, true, false, false},
		ViewAllRequests:      {true, true, false, false},
		ManageCorrespondents: {true, true, false, false},
		DeleteRequests:       {true, false, false, false},
		AssignRequests:       {true, false, false, false},
		ViewReports:          {true, false, false, false},
		ManageUsers:          {true, false, false, false},
	}
	assert.Len(t, table, len(All()))

	subjects := []session.Session{admin, lawyer, correspondent, anonymous}
	for p, want := range table {
		for i, s := range subjects {
			assert.Equal(t, want[i], Allowed(s, p), "%s for subject %d", p, i)
		}
	}

	assert.False(t, Allowed(admin, Permission("launch-missiles")))
}

func TestVisible(t *testing.T) {
	assert.True(t, Visible(anonymous, nil, false), "no restriction means visible")
	assert.True(t, Visible(anonymous, []string{}, true))
	assert.False(t, Visible(anonymous, []string{domain.RoleAdmin}, false))
	assert.True(t, Visible(lawyer, []string{domain.RoleAdmin, domain.RoleLawyer}, false))
	assert.False(t, Visible(lawyer, []string{domain.RoleAdmin, domain.RoleLawyer}, true))
}

func TestResolver_ReadsLiveSession(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(ctx, session.NewMemoryStorage(), logger.Discard())
	r := NewResolver(store)

	assert.False(t, r.IsAdmin())
	assert.Equal(t, "", r.PrimaryRole())

	store.Set(ctx, admin)
	assert.True(t, r.IsAdmin())
	assert.False(t, r.IsLawyer())
	assert.True(t, r.CanManageUsers())
	assert.True(t, r.CanDeleteRequests())
	assert.Equal(t, domain.RoleAdmin, r.PrimaryRole())

	store.Set(ctx, lawyer)
	assert.True(t, r.IsLawyer())
	assert.True(t, r.CanEditRequests())
	assert.True(t, r.CanCreateRequests())
	assert.True(t, r.CanViewAllRequests())
	assert.True(t, r.CanManageCorrespondents())
	assert.False(t, r.CanDeleteRequests())
	assert.False(t, r.CanAssignRequests())
	assert.False(t, r.CanViewReports())
	assert.False(t, r.CanManageUsers())

	store.Clear(ctx)
	assert.False(t, r.CanEditRequests())
	assert.False(t, r.IsCorrespondent())
}

func TestResolver_HasPermissions(t *testing.T) {
	store := session.NewStore(context.Background(), session.NewMemoryStorage(), logger.Discard())
	store.Set(context.Background(), withRoles(domain.RoleLawyer))
	r := NewResolver(store)

	assert.True(t, r.HasPermissions([]string{domain.RoleAdmin, domain.RoleLawyer}, false))
	assert.False(t, r.HasPermissions([]string{domain.RoleAdmin, domain.RoleLawyer}, true))
	assert.False(t, r.HasPermissions(nil, false))
	assert.True(t, r.Visible(nil, false))
	assert.True(t, r.HasRole(domain.RoleLawyer))
	assert.True(t, r.HasAnyRole([]string{domain.RoleLawyer}))
	assert.False(t, r.HasAllRoles([]string{domain.RoleLawyer, domain.RoleCorrespondent}))
}
