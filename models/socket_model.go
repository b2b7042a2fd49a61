package models

import "encoding/json"

// Live channel event names.
const (
	EventAuth           = "auth"
	EventJoinRoom       = "joinRoom"
	EventSendMessage    = "sendMessage"
	EventReceiveMessage = "receiveMessage"
	EventError          = "error"
)

// SocketEnvelope is one websocket frame.
type SocketEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type SocketAuth struct {
	Token string `json:"token"`
}

type SocketError struct {
	Message string `json:"message"`
}

func NewEnvelope(event string, data any) (SocketEnvelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return SocketEnvelope{}, err
	}
	return SocketEnvelope{Event: event, Data: raw}, nil
}
