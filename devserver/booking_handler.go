package devserver

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/models"
)

func (s *Server) bookingQuery() *gorm.DB {
	return s.db.Preload("Skill").Preload("Student").Preload("Instructor")
}

func bookingModels(records []BookingRecord) []models.Booking {
	out := make([]models.Booking, 0, len(records))
	for _, r := range records {
		out = append(out, r.toModel())
	}
	return out
}

func (s *Server) CreateBooking(c *fiber.Ctx) error {
	var req models.BookingInput
	if handled, err := parseBody(c, &req); handled {
		return err
	}
	me := currentUser(c)

	var skill SkillRecord
	if err := s.db.First(&skill, "id = ?", req.SkillID).Error; err != nil {
		if notFound(err) {
			return fail(c, fiber.StatusNotFound, "Skill not found")
		}
		return err
	}
	if skill.CreatedBy != req.InstructorID {
		return fail(c, fiber.StatusUnprocessableEntity, "Instructor does not offer this skill")
	}
	if req.InstructorID == me.ID {
		return fail(c, fiber.StatusConflict, "You cannot book your own skill")
	}

	rec := BookingRecord{
		SkillID:      skill.ID,
		StudentID:    me.ID,
		InstructorID: req.InstructorID,
		Date:         req.Date,
		Duration:     req.Duration,
		Status:       string(models.BookingPending),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return err
	}
	if err := s.bookingQuery().First(&rec, "id = ?", rec.ID).Error; err != nil {
		return err
	}
	s.log.Info("booking created", zap.String(logger.FieldBookingID, rec.ID), zap.String(logger.FieldUserID, me.ID))
	return c.Status(fiber.StatusCreated).JSON(rec.toModel())
}

func (s *Server) listBookings(c *fiber.Ctx, column, id string) error {
	if me := currentUser(c); me.ID != id && !me.admin() {
		return fail(c, fiber.StatusForbidden, "Not authorized to view these bookings")
	}
	var records []BookingRecord
	if err := s.bookingQuery().Where(column+" = ?", id).Order("date asc").Find(&records).Error; err != nil {
		return err
	}
	return c.JSON(bookingModels(records))
}

func (s *Server) UserBookings(c *fiber.Ctx) error {
	return s.listBookings(c, "student_id", c.Params("userId"))
}

func (s *Server) InstructorBookings(c *fiber.Ctx) error {
	return s.listBookings(c, "instructor_id", c.Params("instructorId"))
}

func (s *Server) AllBookings(c *fiber.Ctx) error {
	var records []BookingRecord
	if err := s.bookingQuery().Order("created_at desc").Find(&records).Error; err != nil {
		return err
	}
	return c.JSON(bookingModels(records))
}

// participantBooking loads the booking in the id param for a participant or
// an admin. A nil record means the response was already written.
func (s *Server) participantBooking(c *fiber.Ctx, id string) (*BookingRecord, error) {
	var rec BookingRecord
	if err := s.bookingQuery().First(&rec, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return nil, fail(c, fiber.StatusNotFound, "Booking not found")
		}
		return nil, err
	}
	if me := currentUser(c); !rec.participant(me.ID) && !me.admin() {
		return nil, fail(c, fiber.StatusForbidden, "Not authorized for this booking")
	}
	return &rec, nil
}

func (s *Server) UpdateBookingStatus(c *fiber.Ctx) error {
	rec, err := s.participantBooking(c, c.Params("id"))
	if rec == nil {
		return err
	}
	var req models.StatusUpdate
	if handled, err := parseBody(c, &req); handled {
		return err
	}

	me := currentUser(c)
	next := req.Status
	if next != models.BookingCancelled && me.ID != rec.InstructorID && !me.admin() {
		return fail(c, fiber.StatusForbidden, "Only the instructor can change this booking's status")
	}
	if err := models.BookingStatus(rec.Status).CheckTransition(next); err != nil {
		return fail(c, fiber.StatusConflict, fmt.Sprintf("Cannot change a %s booking to %s", rec.Status, next))
	}

	rec.Status = string(next)
	if req.MeetingLink != "" {
		rec.MeetingLink = req.MeetingLink
	}
	err = s.db.Model(&BookingRecord{}).Where("id = ?", rec.ID).
		Updates(map[string]any{"status": rec.Status, "meeting_link": rec.MeetingLink}).Error
	if err != nil {
		return err
	}
	s.log.Info("booking status changed",
		zap.String(logger.FieldBookingID, rec.ID),
		zap.String(logger.FieldState, rec.Status))
	return c.JSON(rec.toModel())
}

// CancelBooking marks the booking cancelled.
func (s *Server) CancelBooking(c *fiber.Ctx) error {
	rec, err := s.participantBooking(c, c.Params("id"))
	if rec == nil {
		return err
	}
	if err := models.BookingStatus(rec.Status).CheckTransition(models.BookingCancelled); err != nil {
		return fail(c, fiber.StatusConflict, fmt.Sprintf("Cannot cancel a %s booking", rec.Status))
	}
	err = s.db.Model(&BookingRecord{}).Where("id = ?", rec.ID).
		Update("status", string(models.BookingCancelled)).Error
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Booking cancelled", "_id": rec.ID})
}
