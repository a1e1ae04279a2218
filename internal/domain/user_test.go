package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Role Tests
// ============================================================================

func TestIsValidRole(t *testing.T) {
	assert.True(t, IsValidRole("ROLE_ADMIN"))
	assert.True(t, IsValidRole("ROLE_ADVOGADO"))
	assert.True(t, IsValidRole("ROLE_CORRESPONDENTE"))
	assert.False(t, IsValidRole("admin"))
	assert.False(t, IsValidRole(""))
}

func TestUserType(t *testing.T) {
	assert.Equal(t, UserType(1), UserTypeAdmin)
	assert.Equal(t, UserType(2), UserTypeLawyer)
	assert.Equal(t, UserType(3), UserTypeCorrespondent)
	assert.Equal(t, "lawyer", UserTypeLawyer.String())
	assert.Equal(t, "unknown", UserType(9).String())

	typ, ok := ParseUserType("correspondente")
	assert.True(t, ok)
	assert.Equal(t, UserTypeCorrespondent, typ)
	_, ok = ParseUserType("boss")
	assert.False(t, ok)
}

// ============================================================================
// User Tests
// ============================================================================

func TestUser_PrimaryRole(t *testing.T) {
	var nilUser *User
	assert.Equal(t, "", nilUser.PrimaryRole())
	assert.Equal(t, "", (&User{}).PrimaryRole())
	assert.Equal(t, RoleLawyer, (&User{Roles: []string{RoleLawyer, RoleAdmin}}).PrimaryRole())
}

func TestUser_CloneIsDeep(t *testing.T) {
	id := int64(4)
	u := &User{
		Login:           "maria",
		Roles:           []string{RoleCorrespondent},
		CorrespondentID: &id,
		Correspondent:   &Correspondent{ID: 4, Name: "Maria"},
	}

	c := u.Clone()
	c.Roles[0] = RoleAdmin
	*c.CorrespondentID = 99
	c.Correspondent.Name = "changed"

	assert.Equal(t, RoleCorrespondent, u.Roles[0])
	assert.Equal(t, int64(4), *u.CorrespondentID)
	assert.Equal(t, "Maria", u.Correspondent.Name)

	var nilUser *User
	assert.Nil(t, nilUser.Clone())
}

func TestJwtResponse_User(t *testing.T) {
	resp := &JwtResponse{
		Token:        "t",
		RefreshToken: "r",
		ID:           1,
		Login:        "admin",
		FullName:     "Administrador",
		PrimaryEmail: "admin@cra.adv.br",
		UserType:     UserTypeAdmin,
		Roles:        []string{RoleAdmin},
	}

	u := resp.User()
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "admin", u.Login)
	assert.Equal(t, "Administrador", u.FullName)
	assert.Equal(t, UserTypeAdmin, u.Type)
	assert.True(t, u.Active)
	assert.Equal(t, []string{RoleAdmin}, u.Roles)

	resp.FullName = ""
	assert.Equal(t, "admin", resp.User().FullName)
}

func TestUser_JSONUsesBackendNames(t *testing.T) {
	b, err := json.Marshal(&User{ID: 2, Login: "joao", FullName: "João", Type: UserTypeLawyer, Active: true, Roles: []string{RoleLawyer}})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "João", m["nomecompleto"])
	assert.Equal(t, float64(2), m["tipo"])
	assert.Equal(t, true, m["ativo"])
	assert.Equal(t, []any{RoleLawyer}, m["authorities"])
}
