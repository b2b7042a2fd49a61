package livechat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/anjiri1684/skill_exchange/chatcache"
	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/models"
	"github.com/anjiri1684/skill_exchange/store"
)

// Session drives the conversation view of one booking: cached preview first,
// then the authoritative history, with live messages on top.
type Session struct {
	store *store.Store
	cache *chatcache.Cache
	cfg   Config
	log   *zap.Logger

	mu          sync.Mutex
	bookingID   string
	channel     *Channel
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
	history     chan struct{}
	historyErr  error
}

// NewSession returns an unmounted session. cache may be nil.
func NewSession(st *store.Store, cache *chatcache.Cache, cfg Config) *Session {
	return &Session{
		store: st,
		cache: cache,
		cfg:   cfg,
		log:   logger.OrNop(cfg.Logger),
	}
}

// Mount makes bookingID the active conversation. Any previous conversation
// is torn down first. The history fetch and the live channel start in the
// background; Mount itself does no network I/O.
func (s *Session) Mount(bookingID string) error {
	if bookingID == "" {
		return ErrMissingInputs
	}
	s.Unmount()

	s.store.SetConversation(bookingID)
	if s.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if msgs, ok := s.cache.Read(ctx, bookingID); ok {
			s.store.LoadCachedPreview(bookingID, msgs)
		}
		cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.bookingID = bookingID
	s.ctx = ctx
	s.cancel = cancel
	s.unsubscribe = s.store.Subscribe(s.observe(bookingID))
	s.mu.Unlock()

	s.fetchHistory(bookingID)
	return s.syncChannel(bookingID)
}

// fetchHistory loads the authoritative history in the background.
// WaitHistory waits on the latest fetch.
func (s *Session) fetchHistory(bookingID string) {
	history := make(chan struct{})
	s.mu.Lock()
	if s.bookingID != bookingID {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.history = history
	s.historyErr = nil
	s.mu.Unlock()

	go func() {
		defer close(history)
		_, err := s.store.FetchMessages(ctx, bookingID)
		if err != nil && !errors.Is(err, store.ErrStale) {
			s.log.Warn("chat history fetch failed", zap.String(logger.FieldBookingID, bookingID), zap.Error(err))
		}
		s.mu.Lock()
		if s.history == history {
			s.historyErr = err
		}
		s.mu.Unlock()
	}()
}

// syncChannel makes the live channel match the current credential. A new or
// rotated token replaces the open channel; without a token nothing opens.
func (s *Session) syncChannel(bookingID string) error {
	sess := s.store.Session()
	if sess == nil || sess.Token == "" {
		return nil
	}

	s.mu.Lock()
	if s.bookingID != bookingID {
		s.mu.Unlock()
		return nil
	}
	prev := s.channel
	if prev != nil && prev.Token() == sess.Token {
		s.mu.Unlock()
		return nil
	}
	ch, err := Open(s.cfg, bookingID, sess.Token, s.store)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.channel = ch
	s.mu.Unlock()

	if prev != nil {
		prev.Close()
		s.log.Info("live channel reopened with new credential", zap.String(logger.FieldBookingID, bookingID))
	}
	return nil
}

// credentialChanged reports actions after which the session token may differ.
func credentialChanged(a store.Action) bool {
	if a.Type == store.ActionSessionRestored {
		return true
	}
	for _, op := range []string{store.OpLogin, store.OpRegister, store.OpVerify, store.OpRefresh} {
		if a.Is(op, store.PhaseFulfilled) {
			return true
		}
	}
	return false
}

// observe mirrors the active conversation into the cache, follows credential
// changes and tears the session down when the user's session ends.
func (s *Session) observe(bookingID string) func(store.Action) {
	return func(a store.Action) {
		if a.Type == store.ActionSessionEnded {
			go s.Unmount()
			return
		}
		if credentialChanged(a) {
			go s.reauthenticate(bookingID)
			return
		}
		if a.Slice() != "chat" || s.cache == nil {
			return
		}
		chat := s.store.State().Chat
		if chat.BookingID != bookingID || len(chat.Messages) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.Write(ctx, bookingID, chat.Messages); err != nil {
			s.log.Debug("chat cache write failed", zap.String(logger.FieldBookingID, bookingID), zap.Error(err))
		}
	}
}

// reauthenticate follows a credential change. When the conversation was
// mounted without a credential its history is fetched again too.
func (s *Session) reauthenticate(bookingID string) {
	s.mu.Lock()
	hadChannel := s.channel != nil
	s.mu.Unlock()
	if err := s.syncChannel(bookingID); err != nil {
		s.log.Warn("live channel reopen failed", zap.String(logger.FieldBookingID, bookingID), zap.Error(err))
		return
	}
	if !hadChannel && s.Channel() != nil {
		s.fetchHistory(bookingID)
	}
}

// Unmount closes the live channel and stops observing the store. The
// message list is left as it is. It is safe to call at any time.
func (s *Session) Unmount() {
	s.mu.Lock()
	ch, unsub, cancel := s.channel, s.unsubscribe, s.cancel
	s.channel, s.unsubscribe, s.cancel, s.ctx = nil, nil, nil, nil
	s.bookingID = ""
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
	if ch != nil {
		ch.Close()
	}
}

func (s *Session) BookingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookingID
}

// Channel returns the live channel, or nil when none is open.
func (s *Session) Channel() *Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// WaitHistory blocks until the history fetch started by Mount settles and
// returns its error.
func (s *Session) WaitHistory(ctx context.Context) error {
	s.mu.Lock()
	history := s.history
	s.mu.Unlock()
	if history == nil {
		return ErrNotConnected
	}
	select {
	case <-history:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyErr
}

// Send pushes text over the live channel as the logged-in user. Without a
// connected channel it falls back to the REST endpoint, whose response is
// appended directly.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	bookingID, ch := s.bookingID, s.channel
	s.mu.Unlock()
	if bookingID == "" {
		return ErrNotConnected
	}
	sess := s.store.Session()
	if sess == nil {
		return ErrMissingInputs
	}
	if ch != nil {
		err := ch.Send(text, models.SenderFor(sess.User))
		if !errors.Is(err, ErrNotConnected) {
			return err
		}
	}
	_, err := s.store.SendMessage(ctx, store.SendArg{BookingID: bookingID, Message: text})
	return err
}

// SendAttachment posts a file, with optional text, through the REST
// endpoint.
func (s *Session) SendAttachment(ctx context.Context, text string, file models.ChatAttachment) error {
	bookingID := s.BookingID()
	if bookingID == "" {
		return ErrNotConnected
	}
	_, err := s.store.SendMessage(ctx, store.SendArg{BookingID: bookingID, Message: text, Attachment: &file})
	return err
}
