package storage

import (
	"context"
	"encoding/json"

	"github.com/anjiri1684/skill_exchange/models"
)

// SessionKey is where the logged-in user record is kept.
const SessionKey = "userInfo"

// SessionStore persists the single credential session. Only the auth
// operations write it.
type SessionStore struct {
	store Storage
}

func NewSessionStore(s Storage) *SessionStore {
	return &SessionStore{store: s}
}

// Load returns the persisted session, or nil when there is none. A record
// that fails to parse is removed.
func (s *SessionStore) Load(ctx context.Context) (*models.Session, error) {
	raw, ok, err := s.store.Get(ctx, SessionKey)
	if err != nil || !ok {
		return nil, err
	}
	var sess models.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, s.store.Remove(ctx, SessionKey)
	}
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess models.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, SessionKey, string(b))
}

func (s *SessionStore) Clear(ctx context.Context) error {
	return s.store.Remove(ctx, SessionKey)
}
