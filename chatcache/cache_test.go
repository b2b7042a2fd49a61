package chatcache

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjiri1684/skill_exchange/models"
	"github.com/anjiri1684/skill_exchange/storage"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func messages(n int) []models.ChatMessage {
	out := make([]models.ChatMessage, n)
	for i := range out {
		out[i] = models.NormalizeMessage(models.ChatMessage{
			ID:        fmt.Sprintf("m%d", i),
			BookingID: "B1",
			SenderID:  "u1",
			Message:   fmt.Sprintf("hello %d", i),
		})
	}
	return out
}

func newCache(t *testing.T) (*Cache, *storage.Memory, *clock) {
	t.Helper()
	mem := storage.NewMemory()
	clk := &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	return New(mem, WithClock(clk.now)), mem, clk
}

func TestWrite_KeepsMostRecentFifty(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newCache(t)

	require.NoError(t, c.Write(ctx, "B1", messages(60)))

	got, ok := c.Read(ctx, "B1")
	require.True(t, ok)
	require.Len(t, got, MaxMessages)
	assert.Equal(t, "m10", got[0].ID)
	assert.Equal(t, "m59", got[len(got)-1].ID)
}

func TestRead_StaleEntryIsDiscarded(t *testing.T) {
	ctx := context.Background()
	c, mem, clk := newCache(t)

	require.NoError(t, c.Write(ctx, "B1", messages(3)))

	clk.t = clk.t.Add(59 * time.Minute)
	_, ok := c.Read(ctx, "B1")
	assert.True(t, ok, "entry within the freshness window is served")

	clk.t = clk.t.Add(2 * time.Minute)
	_, ok = c.Read(ctx, "B1")
	assert.False(t, ok)

	_, present, _ := mem.Get(ctx, Key("B1"))
	assert.False(t, present, "stale entry is deleted")
}

func TestRead_CorruptEntryIsDiscarded(t *testing.T) {
	ctx := context.Background()
	c, mem, _ := newCache(t)
	require.NoError(t, mem.Set(ctx, Key("B1"), "{\"messages\": [oops"))

	_, ok := c.Read(ctx, "B1")
	assert.False(t, ok)
	_, present, _ := mem.Get(ctx, Key("B1"))
	assert.False(t, present)
}

func TestRead_OversizedEntryIsDiscarded(t *testing.T) {
	ctx := context.Background()
	c, mem, _ := newCache(t)
	require.NoError(t, mem.Set(ctx, Key("B1"), strings.Repeat("x", MaxBytes+1)))

	_, ok := c.Read(ctx, "B1")
	assert.False(t, ok)
	_, present, _ := mem.Get(ctx, Key("B1"))
	assert.False(t, present)
}

func TestWrite_SkipsOversizedPayload(t *testing.T) {
	ctx := context.Background()
	c, mem, _ := newCache(t)

	msgs := messages(2)
	msgs[1].Message = strings.Repeat("a", MaxBytes)
	require.NoError(t, c.Write(ctx, "B1", msgs))

	_, present, _ := mem.Get(ctx, Key("B1"))
	assert.False(t, present)
}

func TestRead_Missing(t *testing.T) {
	c, _, _ := newCache(t)
	_, ok := c.Read(context.Background(), "nope")
	assert.False(t, ok)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	c, mem, clk := newCache(t)

	require.NoError(t, c.Write(ctx, "old", messages(1)))
	clk.t = clk.t.Add(90 * time.Minute)
	require.NoError(t, c.Write(ctx, "fresh", messages(1)))
	require.NoError(t, mem.Set(ctx, Key("broken"), "not json"))
	require.NoError(t, mem.Set(ctx, storage.SessionKey, "{}"))

	n, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys, err := mem.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{Key("fresh"), storage.SessionKey}, keys)
}

func TestSchedule(t *testing.T) {
	c, _, _ := newCache(t)
	cr := cron.New()
	id, err := c.Schedule(cr, "@every 10m")
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = c.Schedule(cr, "not a schedule")
	assert.Error(t, err)
}
