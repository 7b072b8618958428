package session

import (
	"context"
	"net/http"

	"dotproduct/internal/log"
)

type contextKey struct{}

// Manager is the process-wide factory for per-request sessions.
type Manager struct {
	gateway Gateway
	policy  CookiePolicy
	logger  *log.Logger
}

func NewManager(gateway Gateway, policy CookiePolicy, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		gateway: gateway,
		policy:  policy,
		logger:  logger.WithComponent(log.ComponentSession),
	}
}

// New opens a session over an arbitrary store, in state Unknown.
func (m *Manager) New(store CookieStore) *Session {
	return &Session{
		state:   Unknown,
		store:   store,
		gateway: m.gateway,
		logger:  m.logger,
	}
}

// Open opens a session bound to the request's cookies.
func (m *Manager) Open(w http.ResponseWriter, r *http.Request) *Session {
	return m.New(NewHTTPCookieStore(w, r, m.policy))
}

// Middleware attaches an unresolved Session to every request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.Open(w, r)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}

// ExpireFromContext is the backend client's 401 hook: it expires the
// session carried by ctx, if any.
func (m *Manager) ExpireFromContext(ctx context.Context) {
	s, ok := FromContext(ctx)
	if !ok {
		return
	}
	s.Expire()
	m.logger.InfoContext(ctx, "Session expired by backend")
}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

// RequireAuth resolves the session and only serves authenticated requests.
// Unauthenticated requests are sent to /login.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := FromContext(r.Context())
		if !ok {
			RedirectToLogin(w, r)
			return
		}
		switch s.Resolve(r.Context()) {
		case Authenticated:
			next.ServeHTTP(w, r)
		case Unauthenticated:
			RedirectToLogin(w, r)
		default:
			// Render nothing until identity is known.
			w.WriteHeader(http.StatusNoContent)
		}
	})
}

// RedirectToLogin navigates the browser to /login. HTMX requests get an
// HX-Redirect header so the whole page navigates, not the swapped fragment.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
