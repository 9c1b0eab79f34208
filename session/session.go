package session

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// ErrUnauthenticated is returned when a mutation is attempted without a
// signed-in session. It is raised synchronously, before any network call.
var ErrUnauthenticated = errors.New("authentication required")

// Profile is the locally held view of the signed-in user.
type Profile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Bio      string `json:"bio,omitempty"`
	Image    string `json:"image,omitempty"`
}

// Store persists the credential token and profile between runs.
type Store interface {
	Load() (token string, profile *Profile, err error)
	Save(token string, profile *Profile) error
	Clear() error
}

// Session holds the process-wide credential token and current-user profile.
// It is populated from the store at construction, set on successful login or
// registration, and cleared on logout. Reads never require a session;
// mutations go through Require.
type Session struct {
	logger zerolog.Logger
	store  Store

	mu      sync.RWMutex
	token   string
	profile *Profile
}

// Option mutates session configuration.
type Option func(*Session)

// WithLogger injects a logger; the default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger.With().Str("component", "session").Logger()
	}
}

// New creates a session seeded from the store. A nil store keeps the session
// in memory only. Persisted JWTs that are already expired are discarded
// without a network round-trip; opaque tokens are kept as-is.
func New(store Store, opts ...Option) (*Session, error) {
	s := &Session{logger: zerolog.Nop(), store: store}
	for _, opt := range opts {
		opt(s)
	}

	if store == nil {
		return s, nil
	}

	token, profile, err := store.Load()
	if err != nil {
		return nil, err
	}
	if token != "" && tokenExpired(token) {
		s.logger.Debug().Msg("discarding expired persisted token")
		if err := store.Clear(); err != nil {
			return nil, err
		}
		return s, nil
	}

	s.token = token
	s.profile = profile
	return s, nil
}

// Authenticated reports whether a credential token is present.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the current credential token, empty when anonymous.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Profile returns the locally held user profile, if any.
func (s *Session) Profile() (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return Profile{}, false
	}
	return *s.profile, true
}

// Require refuses with ErrUnauthenticated when no token is present.
func (s *Session) Require() error {
	if !s.Authenticated() {
		return ErrUnauthenticated
	}
	return nil
}

// Attach adds the credential header to an outgoing request when a token is
// present.
func (s *Session) Attach(req *http.Request) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// Set installs a new token and profile, persisting them when a store is
// configured.
func (s *Session) Set(token string, profile Profile) error {
	s.mu.Lock()
	s.token = token
	p := profile
	s.profile = &p
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	return s.store.Save(token, &profile)
}

// UpdateProfile replaces the locally held profile, keeping the token.
func (s *Session) UpdateProfile(profile Profile) error {
	s.mu.Lock()
	p := profile
	s.profile = &p
	token := s.token
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	return s.store.Save(token, &profile)
}

// Clear drops the token and profile and wipes persisted state.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.profile = nil
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	return s.store.Clear()
}

// tokenExpired reports whether a token is a JWT whose exp claim is in the
// past. Tokens that do not parse as JWTs are treated as opaque and kept.
func tokenExpired(token string) bool {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
