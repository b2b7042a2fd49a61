package store

import (
	"context"
	"net/http"
	"net/url"

	"github.com/anjiri1684/skill_exchange/api"
	"github.com/anjiri1684/skill_exchange/models"
)

type UsersState struct {
	Profile *models.User
	Users   []models.User
	Stats   *models.UserStats
	Updated bool
	Lifecycle
}

func reduceUsers(st *UsersState, a Action) {
	switch a.Type {
	case ActionSessionEnded, ActionResetUsers:
		*st = UsersState{}
		return
	}
	if a.Slice() != "users" {
		return
	}

	st.track(a)
	if a.Phase() == PhasePending {
		st.Updated = false
	}
	switch {
	case a.Is(OpFetchUser, PhaseFulfilled):
		u := a.Payload.(models.User)
		st.Profile = &u
	case a.Is(OpUpdateProfile, PhaseFulfilled):
		u := a.Payload.(models.User)
		st.Profile = &u
		st.Updated = true
	case a.Is(OpFetchAllUsers, PhaseFulfilled):
		st.Users = a.Payload.([]models.User)
	case a.Is(OpFetchUserStats, PhaseFulfilled):
		stats := a.Payload.(models.UserStats)
		st.Stats = &stats
	}
}

func (s *Store) FetchUser(ctx context.Context, id string) (models.User, error) {
	return run(ctx, s, thunk{op: OpFetchUser, arg: id, auth: true},
		func(ctx context.Context) (models.User, error) {
			var u models.User
			err := s.request(ctx, api.Request{Method: http.MethodGet, Path: "/users/" + url.PathEscape(id), Auth: true}, &u)
			return u, err
		})
}

// UpdateProfile saves a profile. When it is the caller's own profile the
// session and its stored copy pick up the new details.
func (s *Store) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (models.User, error) {
	after := func() {
		if sess := s.state.Auth.Session; sess != nil && sess.ID == in.ID {
			s.persistSession()
		}
	}
	return run(ctx, s, thunk{op: OpUpdateProfile, arg: in, auth: true, after: after},
		func(ctx context.Context) (models.User, error) {
			var u models.User
			if err := api.Validate(in); err != nil {
				return u, err
			}
			err := s.request(ctx, api.Request{Method: http.MethodPut, Path: "/users/" + url.PathEscape(in.ID), Body: in, Auth: true}, &u)
			return u, err
		})
}

func (s *Store) FetchAllUsers(ctx context.Context) ([]models.User, error) {
	return run(ctx, s, thunk{op: OpFetchAllUsers, auth: true},
		func(ctx context.Context) ([]models.User, error) {
			var out []models.User
			err := s.request(ctx, api.Request{Method: http.MethodGet, Path: "/users", Auth: true}, &out)
			return out, err
		})
}

func (s *Store) FetchUserStats(ctx context.Context) (models.UserStats, error) {
	return run(ctx, s, thunk{op: OpFetchUserStats, auth: true},
		func(ctx context.Context) (models.UserStats, error) {
			var stats models.UserStats
			err := s.request(ctx, api.Request{Method: http.MethodGet, Path: "/users/stats", Auth: true}, &stats)
			return stats, err
		})
}

func (s *Store) ResetUsers() {
	s.Dispatch(Action{Type: ActionResetUsers})
}
