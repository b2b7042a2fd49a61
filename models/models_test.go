package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		ok       bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingPending, BookingCompleted, false},
		{BookingConfirmed, BookingCompleted, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingConfirmed, BookingPending, false},
		{BookingCompleted, BookingConfirmed, false},
		{BookingCompleted, BookingCancelled, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingCancelled, BookingPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
		err := tt.from.CheckTransition(tt.to)
		if tt.ok {
			assert.NoError(t, err)
		} else {
			assert.True(t, errors.Is(err, ErrInvalidTransition))
		}
	}

	assert.True(t, BookingCompleted.Terminal())
	assert.True(t, BookingCancelled.Terminal())
	assert.False(t, BookingPending.Terminal())
}

func TestBooking_DecodesPopulatedAndBareRefs(t *testing.T) {
	raw := `[
		{"_id":"B1","skillId":"S1","userId":"U1","instructorId":{"_id":"I1","name":"Ada","avatar":"a.png"},"status":"pending","duration":2},
		{"_id":"B2","skillId":{"_id":"S2","title":"Go","pricePerHour":30},"userId":null,"instructorId":"I2","status":"confirmed"}
	]`
	var got []Booking
	require.NoError(t, json.Unmarshal([]byte(raw), &got))

	assert.Equal(t, "S1", got[0].Skill.ID)
	assert.Equal(t, "U1", got[0].Student.ID)
	assert.Equal(t, "Ada", got[0].Instructor.Name)
	assert.Equal(t, "Go", got[1].Skill.Title)
	assert.Equal(t, "", got[1].Student.ID)
	assert.Equal(t, "I2", got[1].Instructor.ID)
	assert.True(t, got[0].Participant("I1"))
	assert.False(t, got[0].Participant(""))
}

func TestNormalizeMessage_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		in   ChatMessage
		want Sender
	}{
		{
			name: "no sender object",
			in:   ChatMessage{SenderID: "u1", Message: "hi"},
			want: Sender{ID: "u1", Name: "Student", Role: RoleStudent, Avatar: DefaultAvatar(RoleStudent)},
		},
		{
			name: "instructor role only",
			in:   ChatMessage{SenderID: "u2", Sender: &Sender{Role: RoleInstructor}},
			want: Sender{ID: "u2", Name: "Instructor", Role: RoleInstructor, Avatar: DefaultAvatar(RoleInstructor)},
		},
		{
			name: "nested id wins over flat id",
			in:   ChatMessage{SenderID: "flat", Sender: &Sender{ID: "nested", Name: "Grace"}},
			want: Sender{ID: "nested", Name: "Grace", Role: RoleStudent, Avatar: DefaultAvatar(RoleStudent)},
		},
		{
			name: "admin gets student defaults but keeps role",
			in:   ChatMessage{Sender: &Sender{ID: "a", Role: RoleAdmin}},
			want: Sender{ID: "a", Name: "Student", Role: RoleAdmin, Avatar: DefaultAvatar(RoleStudent)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeMessage(tt.in)
			require.NotNil(t, got.Sender)
			assert.Equal(t, tt.want, *got.Sender)
			assert.Equal(t, MessageSent, got.Status)
			assert.NotEmpty(t, got.SenderID)
		})
	}
}

func TestNormalizeMessage_Idempotent(t *testing.T) {
	inputs := []ChatMessage{
		{},
		{SenderID: "x"},
		{Sender: &Sender{Role: RoleInstructor}},
		{Sender: &Sender{ID: "a", Name: "N", Role: RoleAdmin, Avatar: "img"}, SenderID: "b", Status: "sent"},
		{BookingID: "C1", Message: "hello", CreatedAt: time.Unix(1700000000, 0)},
	}
	for _, m := range inputs {
		once := NormalizeMessage(m)
		twice := NormalizeMessage(once)
		assert.Equal(t, once, twice)
	}
}

func TestNormalizeMessage_DoesNotAliasInput(t *testing.T) {
	in := ChatMessage{Sender: &Sender{ID: "a"}}
	out := NormalizeMessage(in)
	out.Sender.Name = "changed"
	assert.Equal(t, "", in.Sender.Name)
}

func TestSenderFor(t *testing.T) {
	s := SenderFor(User{ID: "i1", Role: RoleInstructor})
	assert.Equal(t, "Instructor", s.Name)
	assert.Equal(t, DefaultAvatar(RoleInstructor), s.Avatar)
}

func TestAverageRating(t *testing.T) {
	_, ok := AverageRating(nil)
	assert.False(t, ok)

	avg, ok := AverageRating([]Review{{Rating: 5}, {Rating: 4}, {Rating: 4}})
	assert.True(t, ok)
	assert.Equal(t, 4.3, avg)
}

func TestSession_Expiry(t *testing.T) {
	now := time.Now()
	sign := func(exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()})
		s, err := tok.SignedString([]byte("k"))
		require.NoError(t, err)
		return s
	}

	live := Session{Token: sign(now.Add(time.Hour))}
	assert.False(t, live.Expired(now))

	dead := Session{Token: sign(now.Add(-time.Minute))}
	assert.True(t, dead.Expired(now))

	opaque := Session{Token: "not-a-jwt"}
	assert.False(t, opaque.Expired(now))
}

func TestSession_JSONIsFlat(t *testing.T) {
	var s Session
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"u1","name":"Ada","role":"instructor","token":"t"}`), &s))
	assert.Equal(t, "u1", s.ID)
	assert.Equal(t, RoleInstructor, s.Role)
	assert.Equal(t, "t", s.Token)

	merged := s.WithProfile(User{Name: "Ada L.", Bio: "math"})
	assert.Equal(t, "Ada L.", merged.Name)
	assert.Equal(t, "t", merged.Token)
}
