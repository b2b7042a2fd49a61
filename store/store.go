// Package store holds the client's state slices. Every change goes through
// Dispatch, which runs all slice reducers for an action in one locked pass
// and then notifies subscribers. Asynchronous operations ("thunks") dispatch
// a pending action, perform their request and settle with a fulfilled or
// rejected action.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anjiri1684/skill_exchange/api"
	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/models"
	"github.com/anjiri1684/skill_exchange/storage"
)

// ErrStale is returned by an operation whose result arrived after the session
// it was started under had ended. The result is not committed.
var ErrStale = errors.New("session changed while the request was in flight")

// Requester is the part of *api.Client the store needs.
type Requester interface {
	Do(ctx context.Context, r api.Request, out any) error
	SetToken(token string)
	ClearToken()
}

type State struct {
	Auth     AuthState
	Skills   SkillsState
	Bookings BookingsState
	Reviews  ReviewsState
	Users    UsersState
	Chat     ChatState
}

type Store struct {
	client   Requester
	sessions *storage.SessionStore
	log      *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	epoch uint64
	state State

	subMu   sync.RWMutex
	subs    map[int]func(Action)
	nextSub int
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = logger.OrNop(l) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a store over client. sessions may be nil, in which case the
// session is kept in memory only.
func New(client Requester, sessions *storage.SessionStore, opts ...Option) *Store {
	s := &Store{
		client:   client,
		sessions: sessions,
		log:      zap.NewNop(),
		now:      time.Now,
		epoch:    1,
		subs:     make(map[int]func(Action)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot of every slice.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Session returns the current session, or nil when logged out.
func (s *Store) Session() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Auth.Session == nil {
		return nil
	}
	sess := *s.state.Auth.Session
	return &sess
}

// Subscribe registers fn to be called after every applied action. The
// returned function removes it.
func (s *Store) Subscribe(fn func(Action)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) Dispatch(a Action) {
	s.dispatch(a)
}

// dispatch applies a and reports whether it was committed. Actions tagged
// with an epoch other than the current one are dropped.
func (s *Store) dispatch(a Action) bool {
	s.mu.Lock()
	applied := s.apply(a)
	s.mu.Unlock()

	for _, done := range applied {
		s.notify(done)
	}
	return len(applied) > 0
}

func (s *Store) apply(a Action) []Action {
	if a.epoch != 0 && a.epoch != s.epoch {
		s.log.Debug("dropping action from ended session",
			zap.String(logger.FieldAction, a.Type),
			zap.String(logger.FieldRequestID, a.RequestID))
		return nil
	}

	s.reduce(a)
	if a.effect != nil {
		a.effect()
	}
	applied := []Action{a}

	if a.Type == ActionSessionEnded {
		s.endSession()
	} else if s.expires(a) {
		s.log.Info("credential rejected, ending session", zap.String(logger.FieldAction, a.Type))
		end := Action{Type: ActionSessionEnded, Payload: SessionEnded{Reason: EndExpired}}
		s.reduce(end)
		s.endSession()
		applied = append(applied, end)
	}
	return applied
}

func (s *Store) reduce(a Action) {
	reduceAuth(&s.state.Auth, a)
	reduceSkills(&s.state.Skills, a)
	reduceBookings(&s.state.Bookings, a)
	reduceReviews(&s.state.Reviews, a)
	reduceUsers(&s.state.Users, a)
	reduceChat(&s.state.Chat, a)
}

func (s *Store) expires(a Action) bool {
	return a.Phase() == PhaseRejected &&
		a.Authenticated &&
		a.Err != nil && a.Err.Kind == api.KindUnauthorized &&
		s.state.Auth.Session != nil
}

// endSession releases the credential. Runs with mu held, after the slices
// have been reset.
func (s *Store) endSession() {
	s.epoch++
	s.client.ClearToken()
	if s.sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sessions.Clear(ctx); err != nil {
		s.log.Warn("clearing stored session failed", zap.Error(err))
	}
}

// persistSession writes the current session. Runs with mu held.
func (s *Store) persistSession() {
	sess := s.state.Auth.Session
	if sess == nil {
		return
	}
	if sess.Token != "" {
		s.client.SetToken(sess.Token)
	}
	if s.sessions == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.sessions.Save(ctx, *sess); err != nil {
		s.log.Warn("persisting session failed", zap.String(logger.FieldUserID, sess.ID), zap.Error(err))
	}
}

func (s *Store) notify(a Action) {
	s.subMu.RLock()
	fns := make([]func(Action), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.RUnlock()
	for _, fn := range fns {
		fn(a)
	}
}

func (s *Store) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// thunk describes one asynchronous operation.
type thunk struct {
	op   string
	arg  any
	auth bool
	// after runs inside the fulfilled dispatch, once the reducers have seen
	// the result.
	after func()
}

// run dispatches the lifecycle of t around call and returns call's result.
// Failures come back as *api.Error.
func run[T any](ctx context.Context, s *Store, t thunk, call func(ctx context.Context) (T, error)) (T, error) {
	reqID := uuid.NewString()
	epoch := s.currentEpoch()
	s.dispatch(Action{Type: Settled(t.op, PhasePending), Arg: t.arg, RequestID: reqID, epoch: epoch})

	res, err := call(ctx)
	if err == nil && ctx.Err() != nil {
		err = &api.Error{Kind: api.KindNetwork, Message: "Request cancelled", Err: ctx.Err()}
	}
	if err != nil {
		apiErr := api.AsError(err)
		s.log.Debug("operation rejected",
			zap.String(logger.FieldOperation, t.op),
			zap.String(logger.FieldRequestID, reqID),
			zap.String("kind", string(apiErr.Kind)),
			zap.String(logger.FieldError, apiErr.Message))
		s.dispatch(Action{
			Type:          Settled(t.op, PhaseRejected),
			Err:           apiErr,
			Arg:           t.arg,
			RequestID:     reqID,
			Authenticated: t.auth,
			epoch:         epoch,
		})
		return res, apiErr
	}

	ok := s.dispatch(Action{
		Type:          Settled(t.op, PhaseFulfilled),
		Payload:       res,
		Arg:           t.arg,
		RequestID:     reqID,
		Authenticated: t.auth,
		epoch:         epoch,
		effect:        t.after,
	})
	if !ok {
		return res, ErrStale
	}
	return res, nil
}

func (s *Store) request(ctx context.Context, r api.Request, out any) error {
	return s.client.Do(ctx, r, out)
}
