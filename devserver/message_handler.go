package devserver

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/models"
)

// MessageHistory returns the booking's conversation, oldest first.
func (s *Server) MessageHistory(c *fiber.Ctx) error {
	rec, err := s.participantBooking(c, c.Params("bookingId"))
	if rec == nil {
		return err
	}
	msgs, err := s.history(rec.ID)
	if err != nil {
		return err
	}
	return c.JSON(msgs)
}

func (s *Server) history(bookingID string) ([]models.ChatMessage, error) {
	var records []MessageRecord
	err := s.db.Preload("Sender").
		Where("booking_id = ?", bookingID).
		Order("created_at asc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.ChatMessage, 0, len(records))
	for _, r := range records {
		out = append(out, r.toModel())
	}
	return out, nil
}

type postMessageRequest struct {
	BookingID string `json:"bookingId" form:"bookingId"`
	Message   string `json:"message" form:"message"`
}

// PostMessage stores a message sent over REST. It accepts JSON or a multipart
// form with an optional "attachment" file. The message is not relayed to
// connected sockets; the sender already appends the response.
func (s *Server) PostMessage(c *fiber.Ctx) error {
	var req postMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cannot parse request body")
	}
	req.Message = strings.TrimSpace(req.Message)

	file, err := c.FormFile("attachment")
	if err != nil {
		file = nil
	}
	if req.BookingID == "" {
		return fail(c, fiber.StatusBadRequest, "bookingId is required")
	}
	if req.Message == "" && file == nil {
		return fail(c, fiber.StatusBadRequest, "Message or attachment is required")
	}

	booking, err := s.participantBooking(c, req.BookingID)
	if booking == nil {
		return err
	}

	rec := MessageRecord{
		BookingID: booking.ID,
		SenderID:  currentUser(c).ID,
		Message:   req.Message,
	}
	if file != nil {
		att, err := s.attachments.Save(c.UserContext(), booking.ID, file)
		if errors.Is(err, errAttachmentTooLarge) {
			return fail(c, fiber.StatusRequestEntityTooLarge, err.Error())
		}
		if err != nil {
			s.log.Error("attachment upload failed", zap.Error(err), zap.String(logger.FieldBookingID, booking.ID))
			return fail(c, fiber.StatusInternalServerError, "Failed to store attachment")
		}
		rec.AttachmentURL = att.URL
		rec.AttachmentName = att.Name
		rec.AttachmentType = att.ContentType
	}

	if err := s.db.Create(&rec).Error; err != nil {
		return err
	}
	if err := s.db.Preload("Sender").First(&rec, "id = ?", rec.ID).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(rec.toModel())
}
