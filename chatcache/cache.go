// Package chatcache keeps a short, recent slice of each conversation in client
// storage so the chat view has something to show while history loads.
package chatcache

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/models"
	"github.com/anjiri1684/skill_exchange/storage"
)

const (
	KeyPrefix   = "chat-"
	MaxMessages = 50
	MaxBytes    = 2 << 20
	MaxAge      = time.Hour
)

// entry is the stored form. Timestamp is unix milliseconds.
type entry struct {
	Messages  []models.ChatMessage `json:"messages"`
	Timestamp int64                `json:"timestamp"`
}

type Cache struct {
	store storage.Storage
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = logger.OrNop(l) }
}

func New(store storage.Storage, opts ...Option) *Cache {
	c := &Cache{store: store, now: time.Now, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func Key(bookingID string) string { return KeyPrefix + bookingID }

// Write stores the most recent MaxMessages of msgs. Oversized payloads are
// not written.
func (c *Cache) Write(ctx context.Context, bookingID string, msgs []models.ChatMessage) error {
	if bookingID == "" {
		return nil
	}
	if len(msgs) > MaxMessages {
		msgs = msgs[len(msgs)-MaxMessages:]
	}
	b, err := json.Marshal(entry{Messages: msgs, Timestamp: c.now().UnixMilli()})
	if err != nil {
		return err
	}
	if len(b) > MaxBytes {
		c.log.Warn("chat cache entry too large, skipping write",
			zap.String(logger.FieldBookingID, bookingID),
			zap.Int("bytes", len(b)))
		return nil
	}
	return c.store.Set(ctx, Key(bookingID), string(b))
}

// Read returns the cached messages for bookingID. Entries that are stale,
// oversized or unparseable are deleted and reported as missing.
func (c *Cache) Read(ctx context.Context, bookingID string) ([]models.ChatMessage, bool) {
	key := Key(bookingID)
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("chat cache read failed", zap.String(logger.FieldStorageKey, key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	e, reason := c.decode(raw)
	if reason != "" {
		c.discard(ctx, key, reason)
		return nil, false
	}
	return e.Messages, true
}

func (c *Cache) Remove(ctx context.Context, bookingID string) error {
	return c.store.Remove(ctx, Key(bookingID))
}

// Sweep deletes every cached conversation that Read would reject and returns
// how many were removed.
func (c *Cache) Sweep(ctx context.Context) (int, error) {
	keys, err := c.store.Keys(ctx, KeyPrefix)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, key := range keys {
		raw, ok, err := c.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		if _, reason := c.decode(raw); reason != "" {
			c.discard(ctx, key, reason)
			removed++
		}
	}
	return removed, nil
}

// Schedule registers Sweep on cr with a cron spec such as "@every 10m".
func (c *Cache) Schedule(cr *cron.Cron, spec string) (cron.EntryID, error) {
	return cr.AddFunc(spec, func() {
		n, err := c.Sweep(context.Background())
		if err != nil {
			c.log.Warn("chat cache sweep failed", zap.Error(err))
			return
		}
		if n > 0 {
			c.log.Info("chat cache swept", zap.Int("removed", n))
		}
	})
}

func (c *Cache) decode(raw string) (entry, string) {
	if len(raw) > MaxBytes {
		return entry{}, "oversized"
	}
	var e entry
	if err := json.NewDecoder(strings.NewReader(raw)).Decode(&e); err != nil {
		return entry{}, "corrupt"
	}
	age := c.now().Sub(time.UnixMilli(e.Timestamp))
	if age >= MaxAge {
		return entry{}, "stale"
	}
	return e, ""
}

func (c *Cache) discard(ctx context.Context, key, reason string) {
	c.log.Debug("discarding chat cache entry",
		zap.String(logger.FieldStorageKey, key),
		zap.String("reason", reason))
	if err := c.store.Remove(ctx, key); err != nil {
		c.log.Warn("chat cache remove failed", zap.String(logger.FieldStorageKey, key), zap.Error(err))
	}
}
