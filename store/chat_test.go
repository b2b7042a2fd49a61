package store

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anjiri1684/skill_exchange/api"
	"github.com/anjiri1684/skill_exchange/models"
)

func TestAddMessage_OnlyForActiveConversation(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversation("C2")

	f.store.AddMessage(models.ChatMessage{ID: "m1", BookingID: "C1", SenderID: "u1", Message: "one"})
	f.store.AddMessage(models.ChatMessage{ID: "m2", BookingID: "C1", SenderID: "u1", Message: "two"})
	assert.Empty(t, f.store.State().Chat.Messages)

	f.store.AddMessage(models.ChatMessage{ID: "m3", BookingID: "C2", SenderID: "u1", Message: "three",
		Sender: &models.Sender{Role: models.RoleInstructor}})
	msgs := f.store.State().Chat.Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, "m3", msgs[0].ID)
	assert.Equal(t, "Instructor", msgs[0].Sender.Name, "live messages are normalized")
	assert.Equal(t, "u1", msgs[0].Sender.ID)
}

func TestAddMessage_NoActiveConversation(t *testing.T) {
	f := newFixture(t)
	f.store.AddMessage(models.ChatMessage{BookingID: "C1", Message: "hi"})
	assert.Empty(t, f.store.State().Chat.Messages)
}

func TestSetConversation_ClearsOnSwitch(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversation("C1")
	f.store.AddMessage(models.ChatMessage{BookingID: "C1", Message: "hi"})

	f.store.SetConversation("C1")
	assert.Len(t, f.store.State().Chat.Messages, 1, "same conversation keeps its messages")

	f.store.SetConversation("C2")
	st := f.store.State().Chat
	assert.Empty(t, st.Messages)
	assert.Equal(t, "C2", st.BookingID)
}

func TestFetchMessages_ReplacesAndSupersedesPreview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t, "u1", "student")
	f.api.reply(http.MethodGet, "/messages/C1", []map[string]any{
		{"_id": "h1", "bookingId": "C1", "senderId": "u2", "message": "first", "createdAt": "2024-06-01T10:00:00Z"},
		{"_id": "h2", "bookingId": "C1", "sender": map[string]any{"_id": "u1", "name": "Ada", "role": "student"}, "message": "second", "createdAt": "2024-06-01T10:01:00Z"},
	})

	f.store.SetConversation("C1")
	f.store.LoadCachedPreview("C1", []models.ChatMessage{{ID: "cached", BookingID: "C1", Message: "from cache"}})
	require.Len(t, f.store.State().Chat.Messages, 1)

	_, err := f.store.FetchMessages(ctx, "C1")
	require.NoError(t, err)
	st := f.store.State().Chat
	require.Len(t, st.Messages, 2)
	assert.Equal(t, "h1", st.Messages[0].ID)
	assert.Equal(t, "u2", st.Messages[0].Sender.ID)
	assert.Equal(t, "Student", st.Messages[0].Sender.Name)
	assert.Equal(t, "Ada", st.Messages[1].Sender.Name)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 1, 0, 0, time.UTC), st.LastMessageAt)
	assert.False(t, st.Loading)
}

func TestLoadCachedPreview_OnlyWhenEmptyAndIdle(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversation("C1")
	cached := []models.ChatMessage{{ID: "cached", BookingID: "C1", Message: "from cache"}}

	f.store.LoadCachedPreview("C9", cached)
	assert.Empty(t, f.store.State().Chat.Messages, "preview for another conversation")

	f.store.AddMessage(models.ChatMessage{ID: "live", BookingID: "C1", Message: "live"})
	f.store.LoadCachedPreview("C1", cached)
	msgs := f.store.State().Chat.Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, "live", msgs[0].ID)

	f.store.ClearMessages()
	f.store.Dispatch(Action{Type: Settled(OpFetchMessages, PhasePending), Arg: "C1"})
	f.store.LoadCachedPreview("C1", cached)
	assert.Empty(t, f.store.State().Chat.Messages, "a fetch is in flight")
}

func TestFetchMessages_ForInactiveConversationIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t, "u1", "student")

	started := make(chan struct{})
	release := make(chan struct{})
	f.api.on(http.MethodGet, "/messages/C1", func(api.Request) (any, error) {
		close(started)
		<-release
		return []map[string]any{{"_id": "old", "bookingId": "C1", "message": "late"}}, nil
	})

	f.store.SetConversation("C1")
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.store.FetchMessages(ctx, "C1")
	}()
	<-started
	f.store.SetConversation("C2")
	close(release)
	<-done

	st := f.store.State().Chat
	assert.Equal(t, "C2", st.BookingID)
	assert.Empty(t, st.Messages)
	assert.False(t, st.Loading)
}

func TestSendMessage_RestFallback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t, "u1", "student")
	f.api.on(http.MethodPost, "/messages", func(r api.Request) (any, error) {
		if r.Multipart != nil {
			assert.Equal(t, "C1", r.Multipart.Fields["bookingId"])
			assert.Equal(t, "notes.txt", r.Multipart.File.Name)
			return map[string]any{"_id": "m2", "bookingId": "C1", "senderId": "u1", "message": "file",
				"attachment": map[string]any{"url": "data:text/plain;base64,aGk=", "name": "notes.txt"}}, nil
		}
		return map[string]any{"_id": "m1", "bookingId": "C1", "senderId": "u1", "message": "hello"}, nil
	})

	f.store.SetConversation("C1")
	_, err := f.store.SendMessage(ctx, SendArg{BookingID: "C1", Message: "hello"})
	require.NoError(t, err)
	_, err = f.store.SendMessage(ctx, SendArg{BookingID: "C1", Message: "file",
		Attachment: &models.ChatAttachment{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hi")}})
	require.NoError(t, err)

	st := f.store.State().Chat
	require.Len(t, st.Messages, 2)
	assert.Equal(t, models.MessageSent, st.Messages[0].Status)
	assert.Equal(t, "notes.txt", st.Messages[1].Attachment.Name)
	assert.False(t, st.Sending)

	_, err = f.store.SendMessage(ctx, SendArg{BookingID: "C1"})
	assert.Equal(t, api.KindValidation, api.KindOf(err))
	assert.Equal(t, api.KindValidation, f.store.State().Chat.ErrorKind)
}

func TestUpdateSenderInfo(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversation("C1")
	f.store.AddMessage(models.ChatMessage{ID: "a", BookingID: "C1", SenderID: "u1", Message: "x"})
	f.store.AddMessage(models.ChatMessage{ID: "b", BookingID: "C1", SenderID: "u2", Message: "y"})

	f.store.UpdateSenderInfo(models.Sender{ID: "u1", Name: "Ines", Role: models.RoleInstructor})

	msgs := f.store.State().Chat.Messages
	assert.Equal(t, "Ines", msgs[0].Sender.Name)
	assert.Equal(t, models.RoleInstructor, msgs[0].Sender.Role)
	assert.Equal(t, "Student", msgs[1].Sender.Name)
}

func TestSnapshotsAreNotAliased(t *testing.T) {
	f := newFixture(t)
	f.store.SetConversation("C1")
	f.store.AddMessage(models.ChatMessage{ID: "a", BookingID: "C1", Message: "x"})
	snap := f.store.State().Chat.Messages

	f.store.AddMessage(models.ChatMessage{ID: "b", BookingID: "C1", Message: "y"})
	f.store.UpdateSenderInfo(models.Sender{ID: "", Name: "changed"})
	assert.Len(t, snap, 1)
	assert.Equal(t, "a", snap[0].ID)
}
