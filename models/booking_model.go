package models

import (
	"errors"
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

var ErrInvalidTransition = errors.New("invalid booking status transition")

// bookingTransitions lists the allowed next states. Completed and cancelled
// have no entry and are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCompleted, BookingCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return len(bookingTransitions[s]) == 0
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CheckTransition returns an error wrapping ErrInvalidTransition when the
// move from s to next is not allowed.
func (s BookingStatus) CheckTransition(next BookingStatus) error {
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return nil
}

type Booking struct {
	ID          string        `json:"_id"`
	Skill       SkillRef      `json:"skillId"`
	Student     UserRef       `json:"userId"`
	Instructor  UserRef       `json:"instructorId"`
	Date        time.Time     `json:"date"`
	Duration    int           `json:"duration"`
	Status      BookingStatus `json:"status"`
	MeetingLink string        `json:"meetingLink,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// Participant reports whether userID is the student or the instructor.
func (b Booking) Participant(userID string) bool {
	return userID != "" && (b.Student.ID == userID || b.Instructor.ID == userID)
}

type BookingInput struct {
	SkillID      string    `json:"skillId" validate:"required"`
	InstructorID string    `json:"instructorId" validate:"required"`
	Date         time.Time `json:"date" validate:"required"`
	Duration     int       `json:"duration" validate:"min=1,max=12"`
}

type StatusUpdate struct {
	Status      BookingStatus `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
	MeetingLink string        `json:"meetingLink,omitempty" validate:"omitempty,url"`
}
