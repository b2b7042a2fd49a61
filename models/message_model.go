package models

import "time"

type MessageStatus string

// MessageSent is the only delivery state the client models.
const MessageSent MessageStatus = "sent"

type Sender struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar"`
}

type Attachment struct {
	URL         string `json:"url"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

type ChatMessage struct {
	ID         string        `json:"_id,omitempty"`
	BookingID  string        `json:"bookingId"`
	SenderID   string        `json:"senderId,omitempty"`
	Sender     *Sender       `json:"sender,omitempty"`
	Message    string        `json:"message"`
	Attachment *Attachment   `json:"attachment,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	Status     MessageStatus `json:"status,omitempty"`
}

// OutgoingMessage is what the live channel pushes for a user submission.
type OutgoingMessage struct {
	BookingID string `json:"bookingId"`
	Message   string `json:"message"`
	Sender    Sender `json:"sender"`
}

// ChatAttachment is a file sent through the REST fallback.
type ChatAttachment struct {
	Name        string
	ContentType string
	Data        []byte
}
