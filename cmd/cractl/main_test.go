package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionMetadataDefaults(t *testing.T) {
	assert.Equal(t, "dev", version)
	assert.Equal(t, "none", commit)
	assert.NotEmpty(t, date)
}

func TestParseArgs(t *testing.T) {
	opts, cmd, rest, err := parseArgs([]string{"--json", "open", "/dashboard"})
	require.NoError(t, err)
	assert.True(t, opts.jsonOutput)
	assert.Equal(t, "open", cmd)
	assert.Equal(t, []string{"/dashboard"}, rest)

	_, _, _, err = parseArgs(nil)
	assert.ErrorIs(t, err, errShowUsage)

	_, _, _, err = parseArgs([]string{"--server", "x"})
	assert.EqualError(t, err, "unknown flag: --server")
}

// cli runs commands against a fake backend with a file-backed session.
type cli struct {
	t *testing.T
}

func newCLI(t *testing.T, handler http.Handler) *cli {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("CRA_API_URL", srv.URL+"/api")
	t.Setenv("CRA_SESSION_BACKEND", "file")
	t.Setenv("CRA_SESSION_FILE", filepath.Join(t.TempDir(), "session.json"))
	t.Setenv("CRA_HTTP_MAX_RETRIES", "0")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CRA_PASSWORD", "")
	return &cli{t: t}
}

func (c *cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func backend(t *testing.T, roles ...string) http.Handler {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["senha"] != "secret123" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Bad credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token":        tok,
			"refreshToken": "r1",
			"id":           1,
			"login":        body["login"],
			"nomecompleto": "Administrador",
			"roles":        roles,
		})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":           1,
			"login":        "admin",
			"nomeCompleto": "Administrador",
			"tipo":         1,
			"ativo":        true,
			"authorities":  roles,
		})
	})
	mux.HandleFunc("POST /api/auth/register", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "CPF already exists"})
	})
	return mux
}

func TestRun_LoginStatusOpenLogout(t *testing.T) {
	c := newCLI(t, backend(t, "ROLE_ADMIN"))

	code, out, _ := c.run("login", "-u", "admin", "-p", "secret123")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Signed in as Administrador (admin), roles: ROLE_ADMIN")

	code, out, _ = c.run("status")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "authenticated")
	assert.Contains(t, out, "true")
	assert.Contains(t, out, "manage-users")

	code, out, _ = c.run("open", "/register")
	require.Equal(t, 0, code)
	assert.Equal(t, "-> /register\n", out)

	code, out, _ = c.run("whoami")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Administrador")

	code, out, _ = c.run("logout")
	require.Equal(t, 0, code)
	assert.Equal(t, "-> /login\nSigned out\n", out)

	code, out, stderr := c.run("open", "/dashboard")
	require.Equal(t, 0, code)
	assert.Equal(t, "-> /login\n", out)
	assert.Contains(t, stderr, "access to /dashboard denied")
}

func TestRun_PasswordFromEnvironment(t *testing.T) {
	c := newCLI(t, backend(t, "ROLE_ADVOGADO"))
	t.Setenv("CRA_PASSWORD", "secret123")

	code, out, _ := c.run("login", "-u", "maria")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "roles: ROLE_ADVOGADO")
}

func TestRun_CorrespondentDeniedAdminView(t *testing.T) {
	c := newCLI(t, backend(t, "ROLE_CORRESPONDENTE"))

	code, _, _ := c.run("login", "-u", "joana", "-p", "secret123")
	require.Equal(t, 0, code)

	code, out, _ := c.run("open", "/register")
	require.Equal(t, 0, code)
	assert.Equal(t, "-> /unauthorized\n", out)

	code, out, _ = c.run("--json", "status")
	require.Equal(t, 0, code)
	var status struct {
		Authenticated bool     `json:"authenticated"`
		Permissions   []string `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Authenticated, "a denied navigation keeps the session")
	assert.Empty(t, status.Permissions)
}

func TestRun_BadCredentials(t *testing.T) {
	c := newCLI(t, backend(t, "ROLE_ADMIN"))

	code, _, stderr := c.run("login", "-u", "admin", "-p", "wrong")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error: invalid login or password")
}

func TestRun_RefreshWithoutSession(t *testing.T) {
	c := newCLI(t, backend(t, "ROLE_ADMIN"))

	code, _, stderr := c.run("refresh")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "error: no refresh token available")
}

func TestRun_RegisterConflictIsNotifiedOnce(t *testing.T) {
	c := newCLI(t, backend(t, "ROLE_ADMIN"))
	code, _, _ := c.run("login", "-u", "admin", "-p", "secret123")
	require.Equal(t, 0, code)

	code, _, stderr := c.run("register",
		"-login", "joana", "-password", "123456", "-name", "Joana Lima", "-type", "lawyer")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "[CONFLICT] CPF already exists")
	assert.NotContains(t, stderr, "error: CPF")
}

func TestRun_RegisterRejectsUnknownType(t *testing.T) {
	c := newCLI(t, backend(t, "ROLE_ADMIN"))

	code, _, stderr := c.run("register", "-login", "joana", "-type", "intern")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `invalid -type "intern"`)
}

func TestRun_Routes(t *testing.T) {
	c := newCLI(t, backend(t, "ROLE_ADMIN"))

	code, out, _ := c.run("routes")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "/usuarios")
	assert.Contains(t, out, "ROLE_ADMIN,ROLE_ADVOGADO")
	assert.Contains(t, out, "-> /login")
}

func TestRun_UsageAndUnknownCommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Usage: cractl")

	stdout.Reset()
	assert.Equal(t, 0, run(context.Background(), []string{"version"}, &stdout, &stderr))
	assert.Equal(t, "cractl dev (commit: none, built: unknown)\n", stdout.String())

	stderr.Reset()
	assert.Equal(t, 1, run(context.Background(), []string{"frobnicate"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "unknown command: frobnicate")
}

func TestRun_Doctor(t *testing.T) {
	c := newCLI(t, backend(t, "ROLE_ADMIN"))

	code, out, _ := c.run("doctor")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "session_storage")
	assert.Contains(t, out, "overall: degraded")

	code, _, _ = c.run("login", "-u", "admin", "-p", "secret123")
	require.Equal(t, 0, code)

	code, out, _ = c.run("doctor")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "overall: up")
}
