package session

import (
	"net/http"
	"time"

	"dotproduct/internal/api"
)

// CookiePolicy names and scopes the browser cookies holding the tokens.
type CookiePolicy struct {
	SessionName string
	CSRFName    string
	MaxAge      time.Duration
	Secure      bool
}

// DefaultCookiePolicy stores the anti-forgery token as csrftoken2 so it does
// not collide with the backend's own csrftoken cookie.
func DefaultCookiePolicy() CookiePolicy {
	return CookiePolicy{
		SessionName: "sessionid",
		CSRFName:    "csrftoken2",
		MaxAge:      7 * 24 * time.Hour,
	}
}

type httpCookieStore struct {
	w      http.ResponseWriter
	policy CookiePolicy
	tokens api.Tokens
}

// NewHTTPCookieStore reads tokens from r and writes updates to w.
func NewHTTPCookieStore(w http.ResponseWriter, r *http.Request, policy CookiePolicy) CookieStore {
	store := &httpCookieStore{w: w, policy: policy}
	if c, err := r.Cookie(policy.SessionName); err == nil {
		store.tokens.SessionID = c.Value
	}
	if c, err := r.Cookie(policy.CSRFName); err == nil {
		store.tokens.CSRFToken = c.Value
	}
	return store
}

func (s *httpCookieStore) Tokens() api.Tokens {
	return s.tokens
}

func (s *httpCookieStore) Save(tokens api.Tokens) {
	s.tokens = tokens
	http.SetCookie(s.w, s.cookie(s.policy.SessionName, tokens.SessionID))
	if tokens.CSRFToken != "" {
		http.SetCookie(s.w, s.cookie(s.policy.CSRFName, tokens.CSRFToken))
	}
}

func (s *httpCookieStore) ClearSession() {
	s.tokens.SessionID = ""
	c := s.cookie(s.policy.SessionName, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	http.SetCookie(s.w, c)
}

func (s *httpCookieStore) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(s.policy.MaxAge.Seconds()),
		Expires:  time.Now().Add(s.policy.MaxAge),
		HttpOnly: true,
		Secure:   s.policy.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// MemoryStore is a CookieStore without a browser, for background callers
// and tests.
type MemoryStore struct {
	Current api.Tokens
	Saves   int
	Clears  int
}

func (m *MemoryStore) Tokens() api.Tokens { return m.Current }

func (m *MemoryStore) Save(tokens api.Tokens) {
	m.Current = tokens
	m.Saves++
}

func (m *MemoryStore) ClearSession() {
	m.Current.SessionID = ""
	m.Clears++
}
