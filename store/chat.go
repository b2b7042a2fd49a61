package store

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/anjiri1684/skill_exchange/api"
	"github.com/anjiri1684/skill_exchange/models"
)

// ChatState holds the messages of the active conversation only. Loading
// tracks the history fetch and Sending the REST fallback send.
type ChatState struct {
	BookingID     string
	Messages      []models.ChatMessage
	Loading       bool
	Sending       bool
	Error         string
	ErrorKind     api.ErrorKind
	LastMessageAt time.Time
}

type SendArg struct {
	BookingID  string
	Message    string
	Attachment *models.ChatAttachment
}

type CachedPreview struct {
	BookingID string
	Messages  []models.ChatMessage
}

func (st *ChatState) touch() {
	if n := len(st.Messages); n > 0 {
		st.LastMessageAt = st.Messages[n-1].CreatedAt
	} else {
		st.LastMessageAt = time.Time{}
	}
}

func (st *ChatState) clear() {
	st.Messages = nil
	st.LastMessageAt = time.Time{}
	st.Error, st.ErrorKind = "", ""
}

func (st *ChatState) fail(err *api.Error) {
	if err == nil {
		st.Error, st.ErrorKind = "Request failed", api.KindUnknown
		return
	}
	st.Error, st.ErrorKind = err.Message, err.Kind
}

func reduceChat(st *ChatState, a Action) {
	switch a.Type {
	case ActionSessionEnded:
		*st = ChatState{}
	case ActionSetConversation:
		if id := a.Payload.(string); id != st.BookingID {
			st.clear()
			st.BookingID = id
		}
	case ActionClearMessages:
		st.clear()
	case ActionAddMessage:
		m := models.NormalizeMessage(a.Payload.(models.ChatMessage))
		if st.BookingID == "" || m.BookingID != st.BookingID {
			return
		}
		st.Messages = appendCopy(st.Messages, m)
		st.touch()
	case ActionLoadCachedPreview:
		p := a.Payload.(CachedPreview)
		if p.BookingID != st.BookingID || len(st.Messages) > 0 || st.Loading {
			return
		}
		st.Messages = models.NormalizeMessages(p.Messages)
		st.touch()
	case ActionUpdateSenderInfo:
		st.Messages = updateSender(st.Messages, a.Payload.(models.Sender))

	case Settled(OpFetchMessages, PhasePending):
		st.Loading = true
		st.Error, st.ErrorKind = "", ""
	case Settled(OpFetchMessages, PhaseFulfilled):
		st.Loading = false
		if a.Arg.(string) != st.BookingID {
			return
		}
		st.Messages = models.NormalizeMessages(a.Payload.([]models.ChatMessage))
		st.touch()
	case Settled(OpFetchMessages, PhaseRejected):
		st.Loading = false
		st.fail(a.Err)

	case Settled(OpSendMessage, PhasePending):
		st.Sending = true
		st.Error, st.ErrorKind = "", ""
	case Settled(OpSendMessage, PhaseFulfilled):
		st.Sending = false
		m := models.NormalizeMessage(a.Payload.(models.ChatMessage))
		if m.BookingID != st.BookingID {
			return
		}
		st.Messages = appendCopy(st.Messages, m)
		st.touch()
	case Settled(OpSendMessage, PhaseRejected):
		st.Sending = false
		st.fail(a.Err)
	}
}

func updateSender(list []models.ChatMessage, info models.Sender) []models.ChatMessage {
	if info.ID == "" {
		return list
	}
	match := func(m models.ChatMessage) bool {
		return m.SenderID == info.ID || (m.Sender != nil && m.Sender.ID == info.ID)
	}
	out := make([]models.ChatMessage, len(list))
	for i, m := range list {
		if !match(m) {
			out[i] = m
			continue
		}
		var s models.Sender
		if m.Sender != nil {
			s = *m.Sender
		}
		s.ID = info.ID
		if info.Name != "" {
			s.Name = info.Name
		}
		if info.Role != "" {
			s.Role = info.Role
		}
		if info.Avatar != "" {
			s.Avatar = info.Avatar
		}
		m.Sender = &s
		out[i] = models.NormalizeMessage(m)
	}
	return out
}

// SetConversation makes bookingID the active conversation. Switching to a
// different conversation clears the message list.
func (s *Store) SetConversation(bookingID string) {
	s.Dispatch(Action{Type: ActionSetConversation, Payload: bookingID})
}

// FetchMessages loads the full history of bookingID and replaces the list.
// A result for a conversation that is no longer active is ignored.
func (s *Store) FetchMessages(ctx context.Context, bookingID string) ([]models.ChatMessage, error) {
	return run(ctx, s, thunk{op: OpFetchMessages, arg: bookingID, auth: true},
		func(ctx context.Context) ([]models.ChatMessage, error) {
			var out []models.ChatMessage
			err := s.request(ctx, api.Request{Method: http.MethodGet, Path: "/messages/" + url.PathEscape(bookingID), Auth: true}, &out)
			return out, err
		})
}

// SendMessage posts a message through the REST fallback, with an optional
// attachment sent as multipart form data.
func (s *Store) SendMessage(ctx context.Context, arg SendArg) (models.ChatMessage, error) {
	return run(ctx, s, thunk{op: OpSendMessage, arg: arg, auth: true},
		func(ctx context.Context) (models.ChatMessage, error) {
			var m models.ChatMessage
			if arg.BookingID == "" || (arg.Message == "" && arg.Attachment == nil) {
				return m, &api.Error{
					Kind:    api.KindValidation,
					Message: "A message needs a conversation and some content",
					Fields:  []api.FieldError{{Field: "message", Message: "message is required"}},
				}
			}
			req := api.Request{Method: http.MethodPost, Path: "/messages", Auth: true}
			if f := arg.Attachment; f != nil {
				req.Multipart = &api.Multipart{
					Fields: map[string]string{"bookingId": arg.BookingID, "message": arg.Message},
					File:   &api.FilePart{Field: "attachment", Name: f.Name, ContentType: f.ContentType, Data: f.Data},
				}
			} else {
				req.Body = map[string]string{"bookingId": arg.BookingID, "message": arg.Message}
			}
			err := s.request(ctx, req, &m)
			return m, err
		})
}

// AddMessage appends a live message. Messages for any conversation other than
// the active one are discarded.
func (s *Store) AddMessage(m models.ChatMessage) {
	s.Dispatch(Action{Type: ActionAddMessage, Payload: m})
}

// LoadCachedPreview shows cached messages for bookingID, but only while the
// list is empty and no history fetch is in flight.
func (s *Store) LoadCachedPreview(bookingID string, msgs []models.ChatMessage) {
	s.Dispatch(Action{Type: ActionLoadCachedPreview, Payload: CachedPreview{BookingID: bookingID, Messages: msgs}})
}

func (s *Store) ClearMessages() {
	s.Dispatch(Action{Type: ActionClearMessages})
}

// UpdateSenderInfo rewrites the sender details of every message from
// info.ID.
func (s *Store) UpdateSenderInfo(info models.Sender) {
	s.Dispatch(Action{Type: ActionUpdateSenderInfo, Payload: info})
}
