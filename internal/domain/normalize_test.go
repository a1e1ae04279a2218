package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeFields_CopiesVariantWhenCanonicalAbsent(t *testing.T) {
	raw := map[string]json.RawMessage{
		"emailPrincipal": json.RawMessage(`"a@b.c"`),
	}
	NormalizeFields(raw, UserAliases)

	assert.Equal(t, json.RawMessage(`"a@b.c"`), raw["emailprincipal"])
	_, hasVariant := raw["emailPrincipal"]
	assert.False(t, hasVariant)
}

func TestNormalizeFields_CanonicalWins(t *testing.T) {
	raw := map[string]json.RawMessage{
		"nomecompleto": json.RawMessage(`"Canonical"`),
		"nomeCompleto": json.RawMessage(`"Variant"`),
	}
	NormalizeFields(raw, UserAliases)

	assert.Equal(t, json.RawMessage(`"Canonical"`), raw["nomecompleto"])
	assert.Len(t, raw, 1)
}

func TestNormalizeFields_NullOrEmptyCanonicalIsAbsent(t *testing.T) {
	for _, canonical := range []string{`null`, `""`} {
		raw := map[string]json.RawMessage{
			"nomecompleto": json.RawMessage(canonical),
			"nomeCompleto": json.RawMessage(`"From Variant"`),
		}
		NormalizeFields(raw, UserAliases)
		assert.Equal(t, json.RawMessage(`"From Variant"`), raw["nomecompleto"], canonical)
	}
}

func TestNormalizeFields_FirstMatchingVariantWins(t *testing.T) {
	raw := map[string]json.RawMessage{
		"nomeCompleto": json.RawMessage(`"first"`),
		"NomeCompleto": json.RawMessage(`"second"`),
	}
	NormalizeFields(raw, UserAliases)

	assert.Equal(t, json.RawMessage(`"first"`), raw["nomecompleto"])
	assert.Len(t, raw, 1)
}

func TestDecodeUser_MeResponse(t *testing.T) {
	body := `{
		"id": 7,
		"login": "maria",
		"nomecompleto": "Maria Souza",
		"emailPrincipal": "maria@cra.adv.br",
		"tipo": 3,
		"ativo": true,
		"authorities": ["ROLE_CORRESPONDENTE"]
	}`

	u, err := DecodeUser([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "Maria Souza", u.FullName)
	assert.Equal(t, "maria@cra.adv.br", u.PrimaryEmail)
	assert.Equal(t, UserTypeCorrespondent, u.Type)
	assert.True(t, u.Active)
	assert.Equal(t, []string{RoleCorrespondent}, u.Roles)
}

func TestDecodeUser_RolesVariant(t *testing.T) {
	u, err := DecodeUser([]byte(`{"login":"x","roles":["ROLE_ADMIN"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{RoleAdmin}, u.Roles)
}

func TestDecodeUser_DisplayNameFallsBackToLogin(t *testing.T) {
	u, err := DecodeUser([]byte(`{"login":"joao","tipo":2}`))
	require.NoError(t, err)
	assert.Equal(t, "joao", u.FullName)
}

func TestDecodeUser_Invalid(t *testing.T) {
	_, err := DecodeUser([]byte(`not json`))
	assert.Error(t, err)

	_, err = DecodeUser([]byte(`null`))
	assert.Error(t, err)

	_, err = DecodeUser([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestDecodeUser_Idempotent(t *testing.T) {
	inputs := []string{
		`{"id":1,"login":"admin","nomeCompleto":"Admin","EmailPrincipal":"a@x.com","tipo":1,"ativo":true,"roles":["ROLE_ADMIN"]}`,
		`{"login":"joao","emailSecundario":"j2@x.com","emailResponsavel":"chefe@x.com","tipo":2,"authorities":["ROLE_ADVOGADO"]}`,
		`{"login":"corr","tipo":3,"correspondenteID":12,"correspondente":{"id":12,"nome":"Escritório X","ativo":true}}`,
	}

	for _, in := range inputs {
		first, err := DecodeUser([]byte(in))
		require.NoError(t, err)

		stored, err := json.Marshal(first)
		require.NoError(t, err)

		second, err := DecodeUser(stored)
		require.NoError(t, err)
		assert.Equal(t, first, second, in)
	}
}

func TestDecodeJwtResponse_LoginAnswer(t *testing.T) {
	body := `{
		"token": "access",
		"refreshToken": "refresh",
		"type": "Bearer",
		"id": 1,
		"login": "admin",
		"nomeCompleto": "Administrador",
		"emailPrincipal": "admin@cra.adv.br",
		"tipo": 1,
		"roles": ["ROLE_ADMIN"],
		"expiresAt": "2026-10-15T10:00:00"
	}`

	r, err := DecodeJwtResponse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "access", r.Token)
	assert.Equal(t, "refresh", r.RefreshToken)
	assert.Equal(t, "Bearer", r.TokenType)
	assert.Equal(t, "Administrador", r.FullName)
	assert.Equal(t, UserTypeAdmin, r.UserType)
	assert.Equal(t, []string{RoleAdmin}, r.Roles)
}

func TestDecodeJwtResponse_Variants(t *testing.T) {
	r, err := DecodeJwtResponse([]byte(`{"token":"a","login":"x","nomecompleto":"X","emailprincipal":"x@y.z","authorities":["ROLE_ADVOGADO"]}`))
	require.NoError(t, err)
	assert.Equal(t, "X", r.FullName)
	assert.Equal(t, "x@y.z", r.PrimaryEmail)
	assert.Equal(t, []string{RoleLawyer}, r.Roles)
}
