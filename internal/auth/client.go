// Package auth talks to the backend's authentication endpoints and keeps the
// session store in step with their answers.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nsouzarj/craweb/internal/domain"
	"github.com/nsouzarj/craweb/internal/guard"
	"github.com/nsouzarj/craweb/internal/routes"
	"github.com/nsouzarj/craweb/internal/session"
	apperrors "github.com/nsouzarj/craweb/pkg/errors"
	"github.com/nsouzarj/craweb/pkg/httpclient"
	"github.com/nsouzarj/craweb/pkg/logger"
	"github.com/nsouzarj/craweb/pkg/validator"
)

// DefaultBaseURL is the backend API root used when none is configured.
const DefaultBaseURL = "http://localhost:8080/cra-api/api"

// Endpoint paths, relative to the base URL.
const (
	PathLogin    = "/auth/login"
	PathRefresh  = "/auth/refresh"
	PathMe       = "/auth/me"
	PathValidate = "/auth/validate"
	PathRegister = "/auth/register"
)

// Local failures. These are returned before any request is sent.
var (
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrNoAccessToken  = errors.New("no access token available")
)

// ExpiryChecker decides whether an access token is still usable.
type ExpiryChecker interface {
	IsExpired(token string) bool
}

// Client is the authentication client.
type Client struct {
	baseURL string
	http    httpclient.Doer
	store   *session.Store
	tokens  ExpiryChecker
	nav     routes.Navigator
	logger  *slog.Logger
}

// NewClient creates a Client. An empty baseURL means DefaultBaseURL.
func NewClient(
	baseURL string,
	doer httpclient.Doer,
	store *session.Store,
	tokens ExpiryChecker,
	nav routes.Navigator,
	logger *slog.Logger,
) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    doer,
		store:   store,
		tokens:  tokens,
		nav:     nav,
		logger:  logger,
	}
}

// BaseURL returns the API root requests are sent to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) url(path string) string { return c.baseURL + path }

// Login exchanges credentials for a token pair and starts a new session.
// A failed login leaves the store untouched.
func (c *Client) Login(ctx context.Context, login, password string) (*domain.JwtResponse, error) {
	req := domain.LoginRequest{Login: login, Password: password}
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	ctx = logger.WithLogin(ctx, login)

	var raw json.RawMessage
	if err := httpclient.DoJSON(ctx, c.http, http.MethodPost, c.url(PathLogin), "", req, &raw); err != nil {
		return nil, err
	}
	resp, err := domain.DecodeJwtResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	c.store.Set(ctx, session.Session{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
		CurrentUser:  resp.User(),
	})
	logger.WithContext(ctx, c.logger).InfoContext(ctx, "signed in",
		slog.Int64("user_id", resp.ID),
		slog.Any("roles", resp.Roles),
	)
	return resp, nil
}

// Refresh exchanges the stored refresh token for a new token pair. Only the
// tokens are replaced; the cached user stays. When the session changed
// identity while the request was in flight the answer is returned but not
// stored.
func (c *Client) Refresh(ctx context.Context) (*domain.JwtResponse, error) {
	cur, epoch := c.store.Snapshot()
	if cur.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}

	var raw json.RawMessage
	body := domain.RefreshRequest{RefreshToken: cur.RefreshToken}
	if err := httpclient.DoJSON(ctx, c.http, http.MethodPost, c.url(PathRefresh), "", body, &raw); err != nil {
		if apperrors.IsSessionExpired(err) {
			c.expire(ctx, c.store.ClearIfRefreshToken(ctx, cur.RefreshToken))
		}
		return nil, err
	}
	resp, err := domain.DecodeJwtResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}

	if !c.store.CompareAndSetTokens(ctx, epoch, resp.Token, resp.RefreshToken) {
		c.logger.WarnContext(ctx, "discarding refresh answer for a replaced session")
	}
	return resp, nil
}

// Whoami fetches the signed-in user and replaces the cached copy.
func (c *Client) Whoami(ctx context.Context) (*domain.User, error) {
	cur, epoch := c.store.Snapshot()
	if cur.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	var raw json.RawMessage
	if err := httpclient.DoJSON(ctx, c.http, http.MethodGet, c.url(PathMe), cur.AccessToken, nil, &raw); err != nil {
		// The interceptor hook normally ended the session already; this
		// covers a Doer without one.
		if apperrors.IsSessionExpired(err) {
			c.expire(ctx, c.store.ClearIfAccessToken(ctx, cur.AccessToken))
		}
		return nil, err
	}
	user, err := domain.DecodeUser(raw)
	if err != nil {
		return nil, fmt.Errorf("decode current user: %w", err)
	}

	if !c.store.CompareAndUpdateCurrentUser(ctx, epoch, user) {
		c.logger.WarnContext(ctx, "discarding current user for a replaced session")
	}
	return user, nil
}

// Validate asks the backend whether the stored access token is valid and
// returns its answer untouched.
func (c *Client) Validate(ctx context.Context) (json.RawMessage, error) {
	tok := c.store.Get().AccessToken
	if tok == "" {
		return nil, ErrNoAccessToken
	}

	var raw json.RawMessage
	if err := httpclient.DoJSON(ctx, c.http, http.MethodGet, c.url(PathValidate), tok, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Register creates a user account. It needs an authenticated caller and
// does not change the session.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.APIResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	tok := c.store.Get().AccessToken
	if tok == "" {
		return nil, ErrNoAccessToken
	}

	var resp domain.APIResponse
	if err := httpclient.DoJSON(ctx, c.http, http.MethodPost, c.url(PathRegister), tok, req, &resp); err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "user registered", slog.String("login", req.Login))
	return &resp, nil
}

// Logout ends the session and shows the login view. It never fails and may
// be called with nobody signed in.
func (c *Client) Logout(ctx context.Context) {
	c.store.Clear(ctx)
	c.nav.Navigate(ctx, guard.LoginPath)
}

// IsAuthenticated reports whether an unexpired access token is stored.
func (c *Client) IsAuthenticated() bool {
	tok := c.store.Get().AccessToken
	return tok != "" && !c.tokens.IsExpired(tok)
}

// CurrentUser returns a copy of the cached user, or nil.
func (c *Client) CurrentUser() *domain.User { return c.store.Get().CurrentUser }

// Token returns the stored access token, or "".
func (c *Client) Token() string { return c.store.Get().AccessToken }

// RefreshToken returns the stored refresh token, or "".
func (c *Client) RefreshToken() string { return c.store.Get().RefreshToken }

// UpdateCurrentUser replaces the cached user, e.g. after a profile edit.
func (c *Client) UpdateCurrentUser(ctx context.Context, user *domain.User) {
	c.store.UpdateCurrentUser(ctx, user)
}

// Subscribe calls fn with the current user now and after every change.
func (c *Client) Subscribe(fn func(*domain.User)) (unsubscribe func()) {
	return c.store.Subscribe(func(s session.Session) { fn(s.CurrentUser) })
}

// expire shows the login view once a rejected credential ended the
// session. A credential replaced in the meantime leaves the session alone.
func (c *Client) expire(ctx context.Context, cleared bool) {
	if cleared {
		c.logger.InfoContext(ctx, "session expired")
		c.nav.Navigate(ctx, guard.LoginPath)
	}
}

// SessionExpiredHandler returns the interceptor hook that ends a session
// whose bearer the backend rejected and shows the login view. A rejection
// of a token that is no longer stored is ignored.
func SessionExpiredHandler(store *session.Store, nav routes.Navigator, logger *slog.Logger) httpclient.SessionExpiredHandler {
	return func(ctx context.Context, bearer string) {
		if !store.ClearIfAccessToken(ctx, bearer) {
			logger.DebugContext(ctx, "ignoring rejection of a replaced token")
			return
		}
		logger.InfoContext(ctx, "session expired")
		nav.Navigate(ctx, guard.LoginPath)
	}
}

func validateRequest(req any) error {
	if err := validator.Validate(req); err != nil {
		appErr := apperrors.Validation(err.Error())
		appErr.Status = 0
		appErr.Err = err
		return appErr
	}
	return nil
}
