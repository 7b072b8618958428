package http

import (
	"context"
	"errors"
	"net/http"

	"dotproduct/internal/activity"
	"dotproduct/internal/api"
	"dotproduct/internal/core"
	"dotproduct/internal/log"
	"dotproduct/internal/session"
)

// caller is the authenticated identity behind a protected request. The
// session key is captured up front since a 401 clears it.
type caller struct {
	session *session.Session
	user    core.User
	tokens  api.Tokens
	key     string
}

func sessionFrom(r *http.Request) (*session.Session, bool) {
	return session.FromContext(r.Context())
}

// callerFrom is only valid behind session.RequireAuth.
func callerFrom(r *http.Request) caller {
	sess, ok := sessionFrom(r)
	if !ok {
		return caller{}
	}
	u, _ := sess.User()
	return caller{session: sess, user: u, tokens: sess.Tokens(), key: sess.Key()}
}

// unauthorized handles a backend 401: the gateway hook has already expired
// the session, so drop the list state and send the browser to /login.
// It reports whether the response was written.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request, c caller, err error) bool {
	if !errors.Is(err, api.ErrUnauthorized) {
		return false
	}
	s.registry.Forget(c.key)
	s.logger.InfoContext(r.Context(), "Backend rejected session, redirecting to login",
		log.FieldPath, r.URL.Path,
		log.FieldUserID, c.user.ID)
	session.RedirectToLogin(w, r)
	return true
}

// mutationStatus maps a failed create, update or delete to a response code:
// the backend refusing the input is 422, anything else is 502.
func mutationStatus(err error) int {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadGateway
}

func (s *Server) logMutationFailure(ctx context.Context, resource, op string, err error) {
	fields := log.NewFields().WithResource(resource, 0)
	errorType := log.ErrorTypeBackend
	if api.IsTransport(err) {
		errorType = log.ErrorTypeNetwork
	}
	fields["error_type"] = errorType
	s.access.LogError(ctx, "Mutation failed", err, log.ComponentAPI, op, fields)
}

func (s *Server) logFetchFailure(ctx context.Context, what string, err error) {
	s.logger.ErrorContext(ctx, "Fetch failed",
		log.FieldResource, what,
		log.FieldOperation, log.OpRead,
		log.FieldError, err)
}

// record appends to the activity log. Failures are logged and counted, and
// never affect the response.
func (s *Server) record(ctx context.Context, kind core.ActivityKind, user core.User, resourceID int64, summary string) {
	e := activity.NewEvent(kind, user.ID, user.Username, resourceID, summary)
	if err := s.activity.Recorder.Record(ctx, e); err != nil {
		s.appMetrics.activityFailed.Add(1)
		s.logger.WarnContext(ctx, "Failed to record activity",
			log.FieldEventID, e.ID,
			"kind", kind,
			log.FieldError, err)
		return
	}
	s.appMetrics.activityRecorded.Add(1)
}
