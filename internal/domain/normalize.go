package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FieldAlias pairs a canonical JSON key with a variant spelling the backend
// also uses for the same field.
type FieldAlias struct {
	Canonical string
	Variant   string
}

// UserAliases lists the variant keys seen in user documents, checked in order.
// /auth/me answers "emailPrincipal" where the user record says
// "emailprincipal", and the login answer carries "roles" instead of
// "authorities".
var UserAliases = []FieldAlias{
	{Canonical: "nomecompleto", Variant: "nomeCompleto"},
	{Canonical: "nomecompleto", Variant: "NomeCompleto"},
	{Canonical: "emailprincipal", Variant: "emailPrincipal"},
	{Canonical: "emailprincipal", Variant: "EmailPrincipal"},
	{Canonical: "emailsecundario", Variant: "emailSecundario"},
	{Canonical: "emailresponsavel", Variant: "emailResponsavel"},
	{Canonical: "authorities", Variant: "roles"},
	{Canonical: "correspondenteId", Variant: "correspondenteID"},
	{Canonical: "correspondenteId", Variant: "CorrespondenteId"},
}

// JwtAliases lists the variant keys seen in login and refresh answers.
var JwtAliases = []FieldAlias{
	{Canonical: "nomeCompleto", Variant: "nomecompleto"},
	{Canonical: "nomeCompleto", Variant: "NomeCompleto"},
	{Canonical: "emailPrincipal", Variant: "emailprincipal"},
	{Canonical: "roles", Variant: "authorities"},
}

// NormalizeFields copies each variant into its canonical key when the
// canonical one is absent, then drops the variant. encoding/json matches
// keys case-insensitively, so a variant left behind could overwrite the
// canonical value during decoding.
func NormalizeFields(raw map[string]json.RawMessage, aliases []FieldAlias) {
	for _, a := range aliases {
		v, ok := raw[a.Variant]
		if !ok {
			continue
		}
		if absent(raw[a.Canonical]) && !absent(v) {
			raw[a.Canonical] = v
		}
		delete(raw, a.Variant)
	}
}

// absent reports whether a raw value is missing, null or an empty string.
func absent(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) == 0 || bytes.Equal(v, []byte("null")) || bytes.Equal(v, []byte(`""`))
}

// DecodeUser decodes a user document, reconciling variant field names and
// falling back to the login for a missing display name.
func DecodeUser(data []byte) (*User, error) {
	var u User
	if err := decodeNormalized(data, UserAliases, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	if u.FullName == "" {
		u.FullName = u.Login
	}
	return &u, nil
}

// DecodeJwtResponse decodes a login or refresh answer.
func DecodeJwtResponse(data []byte) (*JwtResponse, error) {
	var r JwtResponse
	if err := decodeNormalized(data, JwtAliases, &r); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &r, nil
}

func decodeNormalized(data []byte, aliases []FieldAlias, out any) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("empty document")
	}

	NormalizeFields(raw, aliases)

	normalized, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(normalized, out)
}
