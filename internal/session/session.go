// Package session tracks the browser's authentication state.
//
// A process-wide Manager opens one Session per request from the browser's
// cookies. A Session starts Unknown and leaves that state only through
// Resolve, Login, Register, Logout or Expire.
package session

import (
	"context"
	"errors"
	"sync"

	"dotproduct/internal/api"
	"dotproduct/internal/core"
	"dotproduct/internal/log"
)

type State int

const (
	Unknown State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

const (
	defaultLoginDetail    = "Login failed"
	defaultRegisterDetail = "Registration failed"
)

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrRegistrationFailed   = errors.New("registration failed")
)

// AuthError carries the backend's message for a failed login or registration.
type AuthError struct {
	Kind   error
	Detail string
	Err    error
}

func (e *AuthError) Error() string { return e.Detail }

func (e *AuthError) Is(target error) bool { return target == e.Kind }

func (e *AuthError) Unwrap() error { return e.Err }

// Gateway is the subset of the backend client the state machine needs.
type Gateway interface {
	Login(ctx context.Context, creds core.Credentials) (*api.LoginResult, error)
	Register(ctx context.Context, reg core.Registration) (core.User, error)
	Logout(ctx context.Context, tokens api.Tokens) error
	CurrentUser(ctx context.Context, tokens api.Tokens) (core.User, error)
}

// CookieStore persists tokens in the browser.
type CookieStore interface {
	Tokens() api.Tokens
	Save(tokens api.Tokens)
	// ClearSession removes the session id and keeps the anti-forgery token.
	ClearSession()
}

type Session struct {
	mu      sync.Mutex
	state   State
	user    core.User
	store   CookieStore
	gateway Gateway
	logger  *log.Logger
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsAuthenticated() bool {
	return s.State() == Authenticated
}

// User returns the current identity when authenticated.
func (s *Session) User() (core.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.state == Authenticated
}

// Tokens returns the credentials forwarded to the backend.
func (s *Session) Tokens() api.Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Tokens()
}

// Key identifies the browser session; empty when there is none.
func (s *Session) Key() string {
	return s.Tokens().SessionID
}

// Resolve queries the backend for the current identity. Any failure,
// including a missing session cookie, resolves to Unauthenticated.
func (s *Session) Resolve(ctx context.Context) State {
	s.mu.Lock()
	if s.state != Unknown {
		state := s.state
		s.mu.Unlock()
		return state
	}
	tokens := s.store.Tokens()
	s.mu.Unlock()

	if tokens.Empty() {
		s.setUnauthenticated()
		return Unauthenticated
	}

	user, err := s.gateway.CurrentUser(ctx, tokens)
	if err != nil {
		s.logger.DebugContext(ctx, "Session did not resolve",
			log.FieldOperation, log.OpResolve,
			log.FieldError, err)
		s.setUnauthenticated()
		return Unauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// A concurrent Expire wins over a late identity response.
	if s.state == Unknown {
		s.state = Authenticated
		s.user = user
	}
	return s.state
}

// Login authenticates, re-queries identity with the new tokens and persists
// them. On failure state and cookies are left untouched.
func (s *Session) Login(ctx context.Context, creds core.Credentials) (core.User, error) {
	res, err := s.gateway.Login(ctx, creds)
	if err != nil {
		return core.User{}, &AuthError{Kind: ErrAuthenticationFailed, Detail: api.DetailOf(err, defaultLoginDetail), Err: err}
	}
	if res.Tokens.SessionID == "" {
		return core.User{}, &AuthError{Kind: ErrAuthenticationFailed, Detail: defaultLoginDetail}
	}

	user, err := s.gateway.CurrentUser(ctx, res.Tokens)
	if err != nil {
		return core.User{}, &AuthError{Kind: ErrAuthenticationFailed, Detail: api.DetailOf(err, defaultLoginDetail), Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Save(res.Tokens)
	s.state = Authenticated
	s.user = user

	s.logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, user.ID,
		log.FieldUsername, user.Username)
	return user, nil
}

// Register creates the account and then logs in with the same credentials.
func (s *Session) Register(ctx context.Context, reg core.Registration) (core.User, error) {
	if _, err := s.gateway.Register(ctx, reg); err != nil {
		return core.User{}, &AuthError{Kind: ErrRegistrationFailed, Detail: api.DetailOf(err, defaultRegisterDetail), Err: err}
	}

	user, err := s.Login(ctx, reg.Credentials())
	if err != nil {
		detail := defaultRegisterDetail
		var authErr *AuthError
		if errors.As(err, &authErr) && authErr.Detail != "" {
			detail = authErr.Detail
		}
		return core.User{}, &AuthError{Kind: ErrRegistrationFailed, Detail: detail, Err: err}
	}
	return user, nil
}

// Logout tells the backend best-effort and always clears local state.
func (s *Session) Logout(ctx context.Context) {
	tokens := s.Tokens()
	if !tokens.Empty() {
		if err := s.gateway.Logout(ctx, tokens); err != nil {
			s.logger.WarnContext(ctx, "Backend logout failed, clearing session anyway",
				log.FieldOperation, log.OpLogout,
				log.FieldError, err)
		}
	}
	s.clear()
}

// Expire drops the session after the backend rejected it.
func (s *Session) Expire() {
	s.clear()
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.ClearSession()
	s.state = Unauthenticated
	s.user = core.User{}
}

func (s *Session) setUnauthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Unknown {
		s.state = Unauthenticated
	}
}
