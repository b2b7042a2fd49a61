package devserver

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/gofiber/contrib/websocket"
	"go.uber.org/zap"

	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/models"
)

const clientBuffer = 32

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan models.SocketEnvelope
}

type membership struct {
	room   string
	client *client
}

type delivery struct {
	room     string
	envelope models.SocketEnvelope
}

// Hub relays messages to every socket joined to a booking room. All room
// state is owned by the Run goroutine.
type Hub struct {
	log       *zap.Logger
	join      chan membership
	leave     chan *client
	broadcast chan delivery
	done      chan struct{}
	stopOnce  sync.Once
	rooms     map[string]map[*client]struct{}
	memberOf  map[*client]map[string]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:       log,
		join:      make(chan membership),
		leave:     make(chan *client),
		broadcast: make(chan delivery),
		done:      make(chan struct{}),
		rooms:     make(map[string]map[*client]struct{}),
		memberOf:  make(map[*client]map[string]struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case m := <-h.join:
			if h.rooms[m.room] == nil {
				h.rooms[m.room] = make(map[*client]struct{})
			}
			h.rooms[m.room][m.client] = struct{}{}
			if h.memberOf[m.client] == nil {
				h.memberOf[m.client] = make(map[string]struct{})
			}
			h.memberOf[m.client][m.room] = struct{}{}
			h.log.Debug("socket joined room", zap.String(logger.FieldUserID, m.client.userID), zap.String(logger.FieldBookingID, m.room))
		case c := <-h.leave:
			for room := range h.memberOf[c] {
				delete(h.rooms[room], c)
				if len(h.rooms[room]) == 0 {
					delete(h.rooms, room)
				}
			}
			delete(h.memberOf, c)
			close(c.send)
		case d := <-h.broadcast:
			for c := range h.rooms[d.room] {
				select {
				case c.send <- d.envelope:
				default:
					h.log.Warn("socket send buffer full, dropping message",
						zap.String(logger.FieldUserID, c.userID),
						zap.String(logger.FieldBookingID, d.room))
				}
			}
		case <-h.done:
			return
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) Join(room string, c *client) bool {
	select {
	case h.join <- membership{room: room, client: c}:
		return true
	case <-h.done:
		return false
	}
}

// Leave removes c from every room and closes its send channel.
func (h *Hub) Leave(c *client) {
	select {
	case h.leave <- c:
	case <-h.done:
		close(c.send)
	}
}

func (h *Hub) Broadcast(room string, env models.SocketEnvelope) {
	select {
	case h.broadcast <- delivery{room: room, envelope: env}:
	case <-h.done:
	}
}

// ServeSocket runs one relay connection. The first frame must be an auth
// envelope carrying a valid token.
func (s *Server) ServeSocket(conn *websocket.Conn) {
	var first models.SocketEnvelope
	if err := conn.ReadJSON(&first); err != nil || first.Event != models.EventAuth {
		s.log.Debug("socket auth failed: missing auth envelope", zap.Error(err))
		writeSocketError(conn, "Authentication required")
		_ = conn.Close()
		return
	}
	var auth models.SocketAuth
	_ = json.Unmarshal(first.Data, &auth)
	who, err := s.parseToken(auth.Token)
	if err != nil {
		s.log.Debug("socket auth failed: invalid token", zap.Error(err))
		writeSocketError(conn, "Invalid token")
		_ = conn.Close()
		return
	}
	var user UserRecord
	if err := s.db.First(&user, "id = ?", who.ID).Error; err != nil {
		writeSocketError(conn, "User no longer exists")
		_ = conn.Close()
		return
	}

	c := &client{userID: user.ID, conn: conn, send: make(chan models.SocketEnvelope, clientBuffer)}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for env := range c.send {
			if err := conn.WriteJSON(env); err != nil {
				s.log.Debug("socket write failed", zap.Error(err), zap.String(logger.FieldUserID, c.userID))
				return
			}
		}
	}()
	defer func() {
		s.hub.Leave(c)
		_ = conn.Close()
		<-writerDone
	}()
	s.log.Info("socket authenticated", zap.String(logger.FieldUserID, user.ID))

	for {
		var env models.SocketEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Debug("socket closed", zap.String(logger.FieldUserID, user.ID))
			} else {
				s.log.Debug("socket read failed", zap.Error(err), zap.String(logger.FieldUserID, user.ID))
			}
			return
		}
		switch env.Event {
		case models.EventJoinRoom:
			s.joinRoom(c, env.Data)
		case models.EventSendMessage:
			s.relayMessage(c, user, env.Data)
		default:
			s.reply(c, "Unknown event "+env.Event)
		}
	}
}

func (s *Server) reply(c *client, msg string) {
	env, err := models.NewEnvelope(models.EventError, models.SocketError{Message: msg})
	if err != nil {
		return
	}
	select {
	case c.send <- env:
	default:
	}
}

func (s *Server) joinRoom(c *client, data json.RawMessage) {
	var room string
	if err := json.Unmarshal(data, &room); err != nil || room == "" {
		s.reply(c, "joinRoom expects a booking id")
		return
	}
	var booking BookingRecord
	if err := s.db.First(&booking, "id = ?", room).Error; err != nil {
		s.reply(c, "Booking not found")
		return
	}
	if !booking.participant(c.userID) {
		s.reply(c, "Not a participant of this booking")
		return
	}
	s.hub.Join(room, c)
}

func (s *Server) relayMessage(c *client, user UserRecord, data json.RawMessage) {
	var out models.OutgoingMessage
	if err := json.Unmarshal(data, &out); err != nil {
		s.reply(c, "Malformed message")
		return
	}
	out.Message = strings.TrimSpace(out.Message)
	if out.BookingID == "" || out.Message == "" {
		s.reply(c, "bookingId and message are required")
		return
	}
	var booking BookingRecord
	if err := s.db.First(&booking, "id = ?", out.BookingID).Error; err != nil {
		s.reply(c, "Booking not found")
		return
	}
	if !booking.participant(c.userID) {
		s.reply(c, "Not a participant of this booking")
		return
	}

	rec := MessageRecord{BookingID: booking.ID, SenderID: user.ID, Sender: user, Message: out.Message}
	if err := s.db.Omit("Sender").Create(&rec).Error; err != nil {
		s.log.Error("failed to save message", zap.Error(err), zap.String(logger.FieldBookingID, booking.ID))
		s.reply(c, "Failed to save message")
		return
	}
	env, err := models.NewEnvelope(models.EventReceiveMessage, rec.toModel())
	if err != nil {
		return
	}
	s.hub.Broadcast(booking.ID, env)
}

func writeSocketError(conn *websocket.Conn, msg string) {
	env, err := models.NewEnvelope(models.EventError, models.SocketError{Message: msg})
	if err != nil {
		return
	}
	_ = conn.WriteJSON(env)
}
