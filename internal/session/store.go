package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/nsouzarj/craweb/internal/domain"
)

// Session is the signed-in state. An empty string means the token is absent.
type Session struct {
	AccessToken  string
	RefreshToken string
	CurrentUser  *domain.User
}

// Roles returns the current user's roles, or nil when nobody is signed in.
func (s Session) Roles() []string {
	if s.CurrentUser == nil {
		return nil
	}
	return s.CurrentUser.Roles
}

func (s Session) clone() Session {
	s.CurrentUser = s.CurrentUser.Clone()
	return s
}

// Handler receives a session snapshot after every change.
type Handler func(Session)

type subscriber struct {
	id int
	fn Handler
}

type delivery struct {
	snapshot Session
	subs     []subscriber
}

// Store owns the session. All writes go through it; every write is persisted
// to Storage and then published to subscribers.
//
// The epoch counts identity changes (Set and Clear). Writers that started
// before an identity change use the CompareAnd* methods so a late answer
// for the previous identity cannot land on the new one.
//
// Notifications are queued under the lock and delivered by one goroutine at
// a time, so every subscriber sees snapshots in commit order.
type Store struct {
	mu         sync.Mutex
	session    Session
	epoch      uint64
	subs       []subscriber
	nextID     int
	pending    []delivery
	delivering bool

	storage Storage
	logger  *slog.Logger
}

// NewStore creates a Store and hydrates it from storage. Hydration never
// fails: unreadable or malformed values are logged and treated as absent.
func NewStore(ctx context.Context, storage Storage, logger *slog.Logger) *Store {
	s := &Store{
		storage: storage,
		logger:  logger,
	}
	s.session = s.hydrate(ctx)
	return s
}

func (s *Store) hydrate(ctx context.Context) Session {
	var sess Session
	sess.AccessToken = s.load(ctx, KeyAccessToken)
	sess.RefreshToken = s.load(ctx, KeyRefreshToken)

	if raw := s.load(ctx, KeyCurrentUser); raw != "" {
		user, err := domain.DecodeUser([]byte(raw))
		if err != nil {
			s.logger.WarnContext(ctx, "discarding malformed stored user", slog.String("error", err.Error()))
		} else {
			sess.CurrentUser = user
		}
	}

	// A user is only meaningful alongside the token it came with.
	if sess.CurrentUser != nil && sess.AccessToken == "" {
		s.logger.WarnContext(ctx, "discarding stored user without access token")
		sess.CurrentUser = nil
	}
	return sess
}

func (s *Store) load(ctx context.Context, key string) string {
	v, ok, err := s.storage.Load(ctx, key)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read session storage",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return ""
	}
	if !ok {
		return ""
	}
	return v
}

// Get returns a snapshot of the session.
func (s *Store) Get() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.clone()
}

// Snapshot returns the session together with its epoch, read atomically.
func (s *Store) Snapshot() (Session, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.clone(), s.epoch
}

// Epoch returns the identity generation.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Set replaces all three fields and starts a new identity epoch.
func (s *Store) Set(ctx context.Context, sess Session) {
	s.apply(ctx, nil, true, func(cur *Session) { *cur = sess.clone() })
}

// SetTokens replaces the token pair and leaves the user untouched.
func (s *Store) SetTokens(ctx context.Context, access, refresh string) {
	s.apply(ctx, nil, false, func(cur *Session) {
		cur.AccessToken = access
		cur.RefreshToken = refresh
	})
}

// UpdateCurrentUser replaces the cached user and leaves the tokens untouched.
func (s *Store) UpdateCurrentUser(ctx context.Context, user *domain.User) {
	s.apply(ctx, nil, false, func(cur *Session) { cur.CurrentUser = user.Clone() })
}

// CompareAndSetTokens is SetTokens applied only while the epoch still
// equals epoch. It reports whether the write happened.
func (s *Store) CompareAndSetTokens(ctx context.Context, epoch uint64, access, refresh string) bool {
	return s.apply(ctx, &epoch, false, func(cur *Session) {
		cur.AccessToken = access
		cur.RefreshToken = refresh
	})
}

// CompareAndUpdateCurrentUser is UpdateCurrentUser applied only while the
// epoch still equals epoch. It reports whether the write happened.
func (s *Store) CompareAndUpdateCurrentUser(ctx context.Context, epoch uint64, user *domain.User) bool {
	return s.apply(ctx, &epoch, false, func(cur *Session) { cur.CurrentUser = user.Clone() })
}

// Clear removes all three fields and starts a new identity epoch. Clearing
// an empty session is allowed and still notifies.
func (s *Store) Clear(ctx context.Context) {
	s.apply(ctx, nil, true, func(cur *Session) { *cur = Session{} })
}

// ClearIfAccessToken clears the session only while token is still the
// stored access token. A rejection of a token that has since been replaced
// says nothing about the current session.
func (s *Store) ClearIfAccessToken(ctx context.Context, token string) bool {
	return s.clearIf(ctx, token, func(cur Session) string { return cur.AccessToken })
}

// ClearIfRefreshToken is ClearIfAccessToken for the refresh token.
func (s *Store) ClearIfRefreshToken(ctx context.Context, token string) bool {
	return s.clearIf(ctx, token, func(cur Session) string { return cur.RefreshToken })
}

func (s *Store) clearIf(ctx context.Context, token string, stored func(Session) string) bool {
	return s.applyIf(ctx, true, func(cur *Session) bool {
		if token == "" || stored(*cur) != token {
			return false
		}
		*cur = Session{}
		return true
	})
}

// Subscribe registers fn. It is called once with the current snapshot and
// then after every change, in registration order. The returned function
// unregisters fn.
func (s *Store) Subscribe(fn Handler) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	sub := subscriber{id: id, fn: fn}
	s.subs = append(s.subs, sub)
	s.pending = append(s.pending, delivery{snapshot: s.session.clone(), subs: []subscriber{sub}})
	s.mu.Unlock()

	s.deliver()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *Store) apply(ctx context.Context, expect *uint64, bump bool, mutate func(*Session)) bool {
	return s.applyIf(ctx, bump, func(cur *Session) bool {
		if expect != nil && *expect != s.epoch {
			return false
		}
		mutate(cur)
		return true
	})
}

// applyIf runs mutate under the lock, persists and queues the result when
// mutate reports a change, then delivers.
func (s *Store) applyIf(ctx context.Context, bump bool, mutate func(*Session) bool) bool {
	s.mu.Lock()
	if !mutate(&s.session) {
		s.mu.Unlock()
		return false
	}
	if bump {
		s.epoch++
	}
	s.persist(ctx, s.session)
	s.pending = append(s.pending, delivery{
		snapshot: s.session.clone(),
		subs:     append([]subscriber(nil), s.subs...),
	})
	s.mu.Unlock()

	s.deliver()
	return true
}

// deliver drains the notification queue unless another call is already
// draining it; that call then delivers what was queued here. A write made
// from inside a handler is delivered once the handler returns.
func (s *Store) deliver() {
	s.mu.Lock()
	if s.delivering {
		s.mu.Unlock()
		return
	}
	s.delivering = true

	drained := false
	defer func() {
		// A panicking handler must not leave the queue stuck.
		if !drained {
			s.mu.Lock()
			s.delivering = false
			s.mu.Unlock()
		}
	}()

	for len(s.pending) > 0 {
		d := s.pending[0]
		s.pending[0] = delivery{}
		s.pending = s.pending[1:]
		s.mu.Unlock()

		for _, sub := range d.subs {
			sub.fn(d.snapshot.clone())
		}

		s.mu.Lock()
	}
	s.delivering = false
	drained = true
	s.mu.Unlock()
}

// persist writes sess to storage. Write failures are logged; the in-memory
// session stays authoritative for this process.
func (s *Store) persist(ctx context.Context, sess Session) {
	entries := make(map[string]string, 3)
	var gone []string

	put := func(key, value string) {
		if value == "" {
			gone = append(gone, key)
			return
		}
		entries[key] = value
	}
	put(KeyAccessToken, sess.AccessToken)
	put(KeyRefreshToken, sess.RefreshToken)

	if sess.CurrentUser != nil {
		data, err := json.Marshal(sess.CurrentUser)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to encode current user", slog.String("error", err.Error()))
			gone = append(gone, KeyCurrentUser)
		} else {
			entries[KeyCurrentUser] = string(data)
		}
	} else {
		gone = append(gone, KeyCurrentUser)
	}

	if len(entries) > 0 {
		if err := s.storage.Save(ctx, entries); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist session", slog.String("error", err.Error()))
		}
	}
	if len(gone) > 0 {
		if err := s.storage.Delete(ctx, gone...); err != nil {
			s.logger.ErrorContext(ctx, "failed to erase session keys", slog.String("error", err.Error()))
		}
	}
}
