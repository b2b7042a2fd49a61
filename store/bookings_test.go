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

func booking(id, status string) map[string]any {
	return map[string]any{
		"_id":          id,
		"skillId":      map[string]any{"_id": "s1", "title": "Guitar"},
		"userId":       map[string]any{"_id": "stu", "name": "Sam"},
		"instructorId": map[string]any{"_id": "ins", "name": "Ines"},
		"date":         "2024-06-01T10:00:00Z",
		"duration":     1,
		"status":       status,
	}
}

// loadProjections fills all three projections. B1 appears in every one.
func loadProjections(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	f.api.reply(http.MethodGet, "/bookings/user/stu", []map[string]any{booking("B1", "pending"), booking("B3", "completed")})
	f.api.reply(http.MethodGet, "/bookings/instructor/ins", []map[string]any{booking("B2", "confirmed"), booking("B1", "pending"), booking("B3", "completed")})
	f.api.reply(http.MethodGet, "/bookings/admin/all", []map[string]any{booking("B1", "pending"), booking("B2", "confirmed"), booking("B3", "completed")})

	_, err := f.store.FetchUserBookings(ctx, "stu")
	require.NoError(t, err)
	_, err = f.store.FetchInstructorBookings(ctx, "ins")
	require.NoError(t, err)
	_, err = f.store.FetchAllBookings(ctx)
	require.NoError(t, err)
}

func statusIn(list []models.Booking, id string) (models.BookingStatus, bool) {
	for _, b := range list {
		if b.ID == id {
			return b.Status, true
		}
	}
	return "", false
}

func TestUpdateBookingStatus_AppliesToEveryProjection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t, "ins", "instructor")
	loadProjections(t, f)

	f.api.on(http.MethodPut, "/bookings/B1/status", func(r api.Request) (any, error) {
		b := booking("B1", string(r.Body.(models.StatusUpdate).Status))
		b["skillId"] = "s1"
		b["meetingLink"] = "https://meet.example.com/b1"
		return b, nil
	})

	var observed []BookingsState
	f.store.Subscribe(func(a Action) {
		if a.Is(OpUpdateBookingStatus, PhaseFulfilled) {
			observed = append(observed, f.store.State().Bookings)
		}
	})

	updated, err := f.store.UpdateBookingStatus(ctx, StatusChange{BookingID: "B1", Status: models.BookingConfirmed, MeetingLink: "https://meet.example.com/b1"})
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, updated.Status)

	require.Len(t, observed, 1)
	st := observed[0]
	for name, list := range map[string][]models.Booking{"user": st.User, "instructor": st.Instructor, "admin": st.Admin} {
		status, ok := statusIn(list, "B1")
		require.True(t, ok, name)
		assert.Equal(t, models.BookingConfirmed, status, name)
	}

	b, _ := st.Find("B1")
	assert.Equal(t, "Guitar", b.Skill.Title, "unpopulated reference keeps the local details")
	assert.Equal(t, "https://meet.example.com/b1", b.MeetingLink)

	status, _ := statusIn(st.Instructor, "B2")
	assert.Equal(t, models.BookingConfirmed, status, "other bookings are untouched")
}

func TestUpdateBookingStatus_TerminalBookingIsRejectedLocally(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t, "ins", "instructor")
	loadProjections(t, f)
	before := f.store.State().Bookings

	_, err := f.store.UpdateBookingStatus(ctx, StatusChange{BookingID: "B3", Status: models.BookingConfirmed})
	require.Error(t, err)
	assert.Equal(t, api.KindDomain, api.KindOf(err))
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Empty(t, f.api.callsTo(http.MethodPut, "/bookings/B3/status"), "no request is made")

	after := f.store.State().Bookings
	assert.Equal(t, before.User, after.User)
	assert.Equal(t, before.Instructor, after.Instructor)
	assert.Equal(t, before.Admin, after.Admin)
	assert.Equal(t, api.KindDomain, after.ErrorKind)
	assert.NotEmpty(t, after.Error)
	assert.False(t, after.Loading)

	f.store.ClearBookingError()
	assert.Empty(t, f.store.State().Bookings.Error)
}

func TestUpdateBookingStatus_ServerConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t, "ins", "instructor")
	f.api.on(http.MethodPut, "/bookings/B9/status", func(api.Request) (any, error) {
		return nil, &api.Error{Kind: api.KindDomain, Status: 409, Message: "Booking already completed"}
	})

	_, err := f.store.UpdateBookingStatus(ctx, StatusChange{BookingID: "B9", Status: models.BookingConfirmed})
	require.Error(t, err)
	assert.Equal(t, "Booking already completed", f.store.State().Bookings.Error)
}

func TestCancelBooking_RemovesFromEveryProjection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t, "ins", "instructor")
	loadProjections(t, f)
	f.api.reply(http.MethodDelete, "/bookings/B1", map[string]any{"message": "Booking cancelled"})

	require.NoError(t, f.store.CancelBooking(ctx, "B1"))

	st := f.store.State().Bookings
	for _, list := range [][]models.Booking{st.User, st.Instructor, st.Admin} {
		_, ok := statusIn(list, "B1")
		assert.False(t, ok)
	}
	assert.Len(t, st.Admin, 2)

	err := f.store.CancelBooking(ctx, "B3")
	assert.Equal(t, api.KindDomain, api.KindOf(err), "completed bookings cannot be cancelled")
}

func TestCreateBooking_PrependsToUserProjection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.login(t, "stu", "student")
	loadProjections(t, f)
	f.api.reply(http.MethodPost, "/bookings", booking("B4", "pending"))

	_, err := f.store.CreateBooking(ctx, models.BookingInput{
		SkillID: "s1", InstructorID: "ins", Date: time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC), Duration: 2,
	})
	require.NoError(t, err)
	st := f.store.State().Bookings
	require.Len(t, st.User, 3)
	assert.Equal(t, "B4", st.User[0].ID)

	_, err = f.store.CreateBooking(ctx, models.BookingInput{SkillID: "s1", InstructorID: "ins", Duration: 0})
	require.Error(t, err)
	assert.Equal(t, api.KindValidation, api.KindOf(err))
	assert.Len(t, f.api.callsTo(http.MethodPost, "/bookings"), 1)
}

func TestResetBookings_EmptiesEveryProjection(t *testing.T) {
	f := newFixture(t)
	f.login(t, "ins", "instructor")
	loadProjections(t, f)
	f.store.ClearBookingError()
	require.NotEmpty(t, f.store.State().Bookings.Admin)

	var seen []string
	unsubscribe := f.store.Subscribe(func(a Action) { seen = append(seen, a.Type) })
	defer unsubscribe()

	f.store.ResetBookings()
	assert.Equal(t, BookingsState{}, f.store.State().Bookings)
	assert.Equal(t, []string{ActionResetBookings}, seen)
	assert.NotNil(t, f.store.Session(), "resetting bookings keeps the session")
}
