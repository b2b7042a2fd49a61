package store

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/anjiri1684/skill_exchange/api"
	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/models"
)

type AuthState struct {
	Session *models.Session
	// TokenExpired is set when the session ended because the credential was
	// rejected or had expired.
	TokenExpired bool
	Lifecycle
}

func reduceAuth(st *AuthState, a Action) {
	switch a.Type {
	case ActionSessionEnded:
		reason := EndLogout
		if p, ok := a.Payload.(SessionEnded); ok {
			reason = p.Reason
		}
		*st = AuthState{TokenExpired: reason == EndExpired}
		return
	case ActionSessionRestored:
		if sess, ok := a.Payload.(models.Session); ok {
			st.Session = &sess
			st.TokenExpired = false
		}
		return
	case ActionClearAuthError:
		st.clearError()
		return
	}

	switch {
	case a.Is(OpLogin, PhaseFulfilled), a.Is(OpRegister, PhaseFulfilled), a.Is(OpRefresh, PhaseFulfilled):
		sess := a.Payload.(models.Session)
		st.Session = &sess
		st.TokenExpired = false
	case a.Is(OpVerify, PhaseFulfilled):
		sess := a.Payload.(models.Session)
		if st.Session != nil {
			merged := st.Session.WithProfile(sess.User)
			if sess.Token != "" {
				merged.Token = sess.Token
			}
			sess = merged
		}
		st.Session = &sess
		st.TokenExpired = false
	case a.Is(OpUpdateProfile, PhaseFulfilled):
		u := a.Payload.(models.User)
		if st.Session != nil && st.Session.ID == u.ID {
			merged := st.Session.WithProfile(u)
			st.Session = &merged
		}
	}

	if a.Slice() == "auth" {
		st.track(a)
	}
}

// Register creates an account and starts a session with it.
func (s *Store) Register(ctx context.Context, in models.Registration) (models.Session, error) {
	return run(ctx, s, thunk{op: OpRegister, arg: in.Email, after: s.persistSession},
		func(ctx context.Context) (models.Session, error) {
			var sess models.Session
			if err := api.Validate(in); err != nil {
				return sess, err
			}
			err := s.request(ctx, api.Request{Method: http.MethodPost, Path: "/auth/register", Body: in}, &sess)
			return sess, err
		})
}

// Login replaces the current session and registers its token as the default
// credential for later requests.
func (s *Store) Login(ctx context.Context, in models.Credentials) (models.Session, error) {
	return run(ctx, s, thunk{op: OpLogin, arg: in.Email, after: s.persistSession},
		func(ctx context.Context) (models.Session, error) {
			var sess models.Session
			if err := api.Validate(in); err != nil {
				return sess, err
			}
			err := s.request(ctx, api.Request{Method: http.MethodPost, Path: "/auth/login", Body: in}, &sess)
			return sess, err
		})
}

// VerifySession asks the server who the current credential belongs to and
// refreshes the profile part of the session.
func (s *Store) VerifySession(ctx context.Context) (models.Session, error) {
	return run(ctx, s, thunk{op: OpVerify, auth: true, after: s.persistSession},
		func(ctx context.Context) (models.Session, error) {
			var sess models.Session
			err := s.request(ctx, api.Request{Method: http.MethodGet, Path: "/auth/me", Auth: true}, &sess)
			return sess, err
		})
}

// RefreshToken rotates the credential.
func (s *Store) RefreshToken(ctx context.Context) (models.Session, error) {
	return run(ctx, s, thunk{op: OpRefresh, auth: true, after: s.persistSession},
		func(ctx context.Context) (models.Session, error) {
			var sess models.Session
			err := s.request(ctx, api.Request{Method: http.MethodPost, Path: "/auth/refresh-token", Auth: true}, &sess)
			return sess, err
		})
}

// Restore loads the persisted session at startup. A session whose token has
// expired is discarded and the auth slice is marked expired.
func (s *Store) Restore(ctx context.Context) (*models.Session, error) {
	if s.sessions == nil {
		return nil, nil
	}
	sess, err := s.sessions.Load(ctx)
	if err != nil || sess == nil {
		return nil, err
	}
	if sess.Expired(s.now()) {
		s.log.Info("stored session expired", zap.String(logger.FieldUserID, sess.ID))
		s.Dispatch(Action{Type: ActionSessionEnded, Payload: SessionEnded{Reason: EndExpired}})
		return nil, nil
	}
	restored := *sess
	s.Dispatch(Action{
		Type:    ActionSessionRestored,
		Payload: restored,
		effect:  func() { s.client.SetToken(restored.Token) },
	})
	return &restored, nil
}

// Logout ends the session. Every slice resets in the same dispatch, the
// stored session is removed and the default credential header is dropped.
func (s *Store) Logout() {
	s.Dispatch(Action{Type: ActionSessionEnded, Payload: SessionEnded{Reason: EndLogout}})
}

func (s *Store) ClearAuthError() {
	s.Dispatch(Action{Type: ActionClearAuthError})
}
