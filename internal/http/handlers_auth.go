package http

import (
	"errors"
	"net/http"

	"dotproduct/internal/core"
	"dotproduct/internal/log"
	"dotproduct/internal/session"
)

type loginPage struct {
	page
	Username string
	Error    string
}

type registerPage struct {
	page
	Form  core.Registration
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.alreadySignedIn(w, r) {
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginPage{page: s.page(r, "Sign in", "login")})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	sess, ok := sessionFrom(r)
	if !ok {
		InternalServerError("Session unavailable").Write(w)
		return
	}

	creds := ParseCredentials(r.PostForm)
	data := loginPage{page: s.page(r, "Sign in", "login"), Username: creds.Username}
	if err := creds.Validate(); err != nil {
		data.Error = err.Error()
		s.render(w, r, http.StatusUnprocessableEntity, "login.html", data)
		return
	}

	previous := sess.Key()
	user, err := sess.Login(r.Context(), creds)
	if err != nil {
		s.logger.InfoContext(r.Context(), "Login failed",
			log.FieldUsername, creds.Username,
			log.FieldOperation, log.OpLogin,
			log.FieldError, err)
		data.Error = authDetail(err)
		s.render(w, r, http.StatusUnauthorized, "login.html", data)
		return
	}
	s.registry.Forget(previous)

	s.record(r.Context(), core.ActivityLogin, user, 0, "")
	s.redirect(w, r, "/dashboard")
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if s.alreadySignedIn(w, r) {
		return
	}
	s.render(w, r, http.StatusOK, "register.html", registerPage{page: s.page(r, "Create account", "register")})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	sess, ok := sessionFrom(r)
	if !ok {
		InternalServerError("Session unavailable").Write(w)
		return
	}

	reg := ParseRegistration(r.PostForm)
	// never echo the password back
	echo := reg
	echo.Password = ""
	data := registerPage{page: s.page(r, "Create account", "register"), Form: echo}
	if err := reg.Validate(); err != nil {
		data.Error = err.Error()
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", data)
		return
	}

	user, err := sess.Register(r.Context(), reg)
	if err != nil {
		s.logger.InfoContext(r.Context(), "Registration failed",
			log.FieldUsername, reg.Username,
			log.FieldOperation, log.OpRegister,
			log.FieldError, err)
		data.Error = authDetail(err)
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", data)
		return
	}

	s.record(r.Context(), core.ActivityRegister, user, 0, "")
	s.redirect(w, r, "/dashboard")
}

// handleLogout always ends the local session, whatever the backend says.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFrom(r)
	if !ok {
		s.redirect(w, r, "/login")
		return
	}

	key := sess.Key()
	var user core.User
	if key != "" && sess.Resolve(r.Context()) == session.Authenticated {
		user, _ = sess.User()
	}
	sess.Logout(r.Context())
	s.registry.Forget(key)

	if user.ID != 0 {
		s.logger.InfoContext(r.Context(), "User signed out",
			log.FieldUserID, user.ID,
			log.FieldOperation, log.OpLogout)
		s.record(r.Context(), core.ActivityLogout, user, 0, "")
	}
	s.redirect(w, r, "/login")
}

// alreadySignedIn redirects authenticated visitors of the auth pages.
func (s *Server) alreadySignedIn(w http.ResponseWriter, r *http.Request) bool {
	sess, ok := sessionFrom(r)
	if !ok || sess.Key() == "" {
		return false
	}
	if sess.Resolve(r.Context()) != session.Authenticated {
		return false
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	return true
}

// redirect navigates the whole page, through HX-Redirect for htmx requests.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(url).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

func authDetail(err error) string {
	var authErr *session.AuthError
	if errors.As(err, &authErr) {
		return authErr.Detail
	}
	return err.Error()
}
