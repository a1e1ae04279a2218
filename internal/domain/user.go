package domain

import (
	"encoding/json"
)

// User is the cached profile of the signed-in user. JSON names follow the
// backend's user record.
type User struct {
	ID               int64          `json:"id,omitempty"`
	Login            string         `json:"login"`
	FullName         string         `json:"nomecompleto"`
	PrimaryEmail     string         `json:"emailprincipal,omitempty"`
	SecondaryEmail   string         `json:"emailsecundario,omitempty"`
	ResponsibleEmail string         `json:"emailresponsavel,omitempty"`
	Type             UserType       `json:"tipo"`
	Active           bool           `json:"ativo"`
	Roles            []string       `json:"authorities"`
	CorrespondentID  *int64         `json:"correspondenteId,omitempty"`
	Correspondent    *Correspondent `json:"correspondente,omitempty"`
}

// Correspondent is the external legal correspondent a user may be linked to.
// It is carried along opaquely; only the identifying fields are typed.
type Correspondent struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"nome"`
	Document     string `json:"cpfcnpj,omitempty"`
	BarNumber    string `json:"oab,omitempty"`
	PrimaryEmail string `json:"emailprimario,omitempty"`
	Active       bool   `json:"ativo"`
	Kind         string `json:"tipo,omitempty"`
}

// PrimaryRole returns the first role, which is the one shown for display.
func (u *User) PrimaryRole() string {
	if u == nil || len(u.Roles) == 0 {
		return ""
	}
	return u.Roles[0]
}

// Clone returns a deep copy of u. A nil user clones to nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Roles != nil {
		c.Roles = append([]string(nil), u.Roles...)
	}
	if u.CorrespondentID != nil {
		id := *u.CorrespondentID
		c.CorrespondentID = &id
	}
	if u.Correspondent != nil {
		corr := *u.Correspondent
		c.Correspondent = &corr
	}
	return &c
}

// LoginRequest is the credential body of POST /auth/login.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"senha" validate:"required"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Login            string   `json:"login" validate:"required,min=3,max=50"`
	Password         string   `json:"senha" validate:"required,min=6,max=100"`
	FullName         string   `json:"nomeCompleto" validate:"required,max=255"`
	PrimaryEmail     string   `json:"emailPrincipal,omitempty" validate:"omitempty,email"`
	SecondaryEmail   string   `json:"emailSecundario,omitempty" validate:"omitempty,email"`
	ResponsibleEmail string   `json:"emailResponsavel,omitempty" validate:"omitempty,email"`
	Type             UserType `json:"tipo" validate:"required,oneof=1 2 3"`
	CorrespondentID  *int64   `json:"correspondenteId,omitempty"`
}

// JwtResponse is the answer to login and refresh.
type JwtResponse struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refreshToken"`
	TokenType    string   `json:"type,omitempty"`
	ID           int64    `json:"id"`
	Login        string   `json:"login"`
	FullName     string   `json:"nomeCompleto"`
	PrimaryEmail string   `json:"emailPrincipal,omitempty"`
	UserType     UserType `json:"tipo"`
	Roles        []string `json:"roles"`
	ExpiresAt    string   `json:"expiresAt,omitempty"`
}

// User builds the session user carried by a login answer. A freshly
// authenticated user is always active.
func (r *JwtResponse) User() *User {
	u := &User{
		ID:           r.ID,
		Login:        r.Login,
		FullName:     r.FullName,
		PrimaryEmail: r.PrimaryEmail,
		Type:         r.UserType,
		Active:       true,
		Roles:        append([]string(nil), r.Roles...),
	}
	if u.FullName == "" {
		u.FullName = u.Login
	}
	return u
}

// APIResponse is the generic envelope returned by register.
type APIResponse struct {
	Data      json.RawMessage `json:"data,omitempty"`
	Message   string          `json:"message,omitempty"`
	Status    int             `json:"status,omitempty"`
	Error     string          `json:"error,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
	Path      string          `json:"path,omitempty"`
}
