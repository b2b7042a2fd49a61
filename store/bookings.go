package store

import (
	"context"
	"net/http"
	"net/url"

	"github.com/anjiri1684/skill_exchange/api"
	"github.com/anjiri1684/skill_exchange/models"
)

// BookingsState holds three projections over the same bookings. A status
// change or cancellation is applied to all of them in one reducer pass.
type BookingsState struct {
	User       []models.Booking
	Instructor []models.Booking
	Admin      []models.Booking
	Lifecycle
}

// Find returns the first copy of id found in any projection.
func (st BookingsState) Find(id string) (models.Booking, bool) {
	for _, list := range [][]models.Booking{st.User, st.Instructor, st.Admin} {
		for _, b := range list {
			if b.ID == id {
				return b, true
			}
		}
	}
	return models.Booking{}, false
}

type StatusChange struct {
	BookingID   string
	Status      models.BookingStatus
	MeetingLink string
}

func bookingID(id string) func(models.Booking) bool {
	return func(b models.Booking) bool { return b.ID == id }
}

func reduceBookings(st *BookingsState, a Action) {
	switch a.Type {
	case ActionSessionEnded, ActionResetBookings:
		*st = BookingsState{}
		return
	case ActionClearBookingError:
		st.clearError()
		return
	}
	if a.Slice() != "bookings" {
		return
	}

	st.track(a)
	switch {
	case a.Is(OpCreateBooking, PhaseFulfilled):
		st.User = prepend(st.User, a.Payload.(models.Booking))
	case a.Is(OpFetchUserBookings, PhaseFulfilled):
		st.User = a.Payload.([]models.Booking)
	case a.Is(OpFetchInstructorBookings, PhaseFulfilled):
		st.Instructor = a.Payload.([]models.Booking)
	case a.Is(OpFetchAllBookings, PhaseFulfilled):
		st.Admin = a.Payload.([]models.Booking)
	case a.Is(OpUpdateBookingStatus, PhaseFulfilled):
		b := a.Payload.(models.Booking)
		match := bookingID(b.ID)
		st.User = mergeBooking(st.User, match, b)
		st.Instructor = mergeBooking(st.Instructor, match, b)
		st.Admin = mergeBooking(st.Admin, match, b)
	case a.Is(OpCancelBooking, PhaseFulfilled):
		match := bookingID(a.Payload.(string))
		st.User = removeWhere(st.User, match)
		st.Instructor = removeWhere(st.Instructor, match)
		st.Admin = removeWhere(st.Admin, match)
	}
}

// mergeBooking replaces the matching entries with updated. References the
// server returned unpopulated keep the details already held locally.
func mergeBooking(list []models.Booking, match func(models.Booking) bool, updated models.Booking) []models.Booking {
	if list == nil {
		return nil
	}
	out := make([]models.Booking, len(list))
	for i, b := range list {
		if !match(b) {
			out[i] = b
			continue
		}
		next := updated
		if next.Skill.Title == "" {
			next.Skill = b.Skill
		}
		if next.Student.Name == "" {
			next.Student = b.Student
		}
		if next.Instructor.Name == "" {
			next.Instructor = b.Instructor
		}
		out[i] = next
	}
	return out
}

func (s *Store) CreateBooking(ctx context.Context, in models.BookingInput) (models.Booking, error) {
	return run(ctx, s, thunk{op: OpCreateBooking, arg: in, auth: true},
		func(ctx context.Context) (models.Booking, error) {
			var b models.Booking
			if err := api.Validate(in); err != nil {
				return b, err
			}
			err := s.request(ctx, api.Request{Method: http.MethodPost, Path: "/bookings", Body: in, Auth: true}, &b)
			return b, err
		})
}

func (s *Store) FetchUserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.fetchBookings(ctx, OpFetchUserBookings, userID, "/bookings/user/"+url.PathEscape(userID))
}

func (s *Store) FetchInstructorBookings(ctx context.Context, instructorID string) ([]models.Booking, error) {
	return s.fetchBookings(ctx, OpFetchInstructorBookings, instructorID, "/bookings/instructor/"+url.PathEscape(instructorID))
}

func (s *Store) FetchAllBookings(ctx context.Context) ([]models.Booking, error) {
	return s.fetchBookings(ctx, OpFetchAllBookings, nil, "/bookings/admin/all")
}

func (s *Store) fetchBookings(ctx context.Context, op string, arg any, path string) ([]models.Booking, error) {
	return run(ctx, s, thunk{op: op, arg: arg, auth: true},
		func(ctx context.Context) ([]models.Booking, error) {
			var out []models.Booking
			err := s.request(ctx, api.Request{Method: http.MethodGet, Path: path, Auth: true}, &out)
			return out, err
		})
}

// UpdateBookingStatus moves a booking to a new status. When the booking is
// held locally the transition is checked first and an illegal one is
// rejected with a domain error without contacting the server.
func (s *Store) UpdateBookingStatus(ctx context.Context, c StatusChange) (models.Booking, error) {
	return run(ctx, s, thunk{op: OpUpdateBookingStatus, arg: c, auth: true},
		func(ctx context.Context) (models.Booking, error) {
			var b models.Booking
			if current, ok := s.State().Bookings.Find(c.BookingID); ok {
				if err := current.Status.CheckTransition(c.Status); err != nil {
					return b, api.DomainError("Cannot change a "+string(current.Status)+" booking to "+string(c.Status), err)
				}
			}
			body := models.StatusUpdate{Status: c.Status, MeetingLink: c.MeetingLink}
			if err := api.Validate(body); err != nil {
				return b, err
			}
			err := s.request(ctx, api.Request{
				Method: http.MethodPut,
				Path:   "/bookings/" + url.PathEscape(c.BookingID) + "/status",
				Body:   body,
				Auth:   true,
			}, &b)
			return b, err
		})
}

// CancelBooking cancels a booking on the server and drops it from every
// projection.
func (s *Store) CancelBooking(ctx context.Context, id string) error {
	_, err := run(ctx, s, thunk{op: OpCancelBooking, arg: id, auth: true},
		func(ctx context.Context) (string, error) {
			if current, ok := s.State().Bookings.Find(id); ok {
				if err := current.Status.CheckTransition(models.BookingCancelled); err != nil {
					return id, api.DomainError("Cannot cancel a "+string(current.Status)+" booking", err)
				}
			}
			err := s.request(ctx, api.Request{Method: http.MethodDelete, Path: "/bookings/" + url.PathEscape(id), Auth: true}, nil)
			return id, err
		})
	return err
}

func (s *Store) ClearBookingError() {
	s.Dispatch(Action{Type: ActionClearBookingError})
}

// ResetBookings empties every projection, e.g. before switching views.
func (s *Store) ResetBookings() {
	s.Dispatch(Action{Type: ActionResetBookings})
}
