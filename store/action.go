package store

import (
	"strings"

	"github.com/anjiri1684/skill_exchange/api"
)

type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseFulfilled Phase = "fulfilled"
	PhaseRejected  Phase = "rejected"
)

// Asynchronous operations. The dispatched action type is the operation
// followed by its phase, e.g. "bookings/updateStatus/fulfilled".
const (
	OpRegister = "auth/register"
	OpLogin    = "auth/login"
	OpVerify   = "auth/verify"
	OpRefresh  = "auth/refresh"

	OpFetchSkills           = "skills/fetchAll"
	OpFetchSkill            = "skills/fetchById"
	OpFetchInstructorSkills = "skills/fetchInstructorSkills"
	OpCreateSkill           = "skills/create"
	OpUpdateSkill           = "skills/update"
	OpDeleteSkill           = "skills/delete"

	OpCreateBooking           = "bookings/create"
	OpFetchUserBookings       = "bookings/fetchUser"
	OpFetchInstructorBookings = "bookings/fetchInstructor"
	OpFetchAllBookings        = "bookings/fetchAll"
	OpUpdateBookingStatus     = "bookings/updateStatus"
	OpCancelBooking           = "bookings/cancel"

	OpAddReview    = "reviews/add"
	OpFetchReviews = "reviews/fetchSkillReviews"

	OpFetchUser      = "users/getDetails"
	OpUpdateProfile  = "users/updateProfile"
	OpFetchAllUsers  = "users/fetchAll"
	OpFetchUserStats = "users/getStats"

	OpFetchMessages = "chat/fetchMessages"
	OpSendMessage   = "chat/sendMessage"
)

// Plain synchronous actions.
const (
	ActionSessionEnded    = "auth/sessionEnded"
	ActionSessionRestored = "auth/restored"
	ActionClearAuthError  = "auth/clearError"

	ActionResetSkillDetail = "skills/resetDetail"
	ActionClearSkillError  = "skills/clearError"

	ActionClearBookingError = "bookings/clearError"
	ActionResetBookings     = "bookings/reset"

	ActionResetReviews = "reviews/reset"

	ActionResetUsers = "users/reset"

	ActionSetConversation   = "chat/setConversation"
	ActionAddMessage        = "chat/addMessage"
	ActionLoadCachedPreview = "chat/loadCachedPreview"
	ActionClearMessages     = "chat/clearMessages"
	ActionUpdateSenderInfo  = "chat/updateSenderInfo"
)

type EndReason string

const (
	EndLogout  EndReason = "logout"
	EndExpired EndReason = "expired"
)

// SessionEnded is the payload of ActionSessionEnded. Every slice resets when
// it sees that action.
type SessionEnded struct {
	Reason EndReason
}

type Action struct {
	Type    string
	Payload any
	// Err is set on rejected actions.
	Err *api.Error
	// Arg is the argument the operation was started with.
	Arg       any
	RequestID string
	// Authenticated marks settlements of requests that carried the bearer
	// credential. An unauthorized rejection of such a request ends the
	// session.
	Authenticated bool

	epoch  uint64
	effect func()
}

func Settled(op string, phase Phase) string { return op + "/" + string(phase) }

// Slice returns the owning slice name, the part before the first slash.
func (a Action) Slice() string {
	slice, _, _ := strings.Cut(a.Type, "/")
	return slice
}

// Phase returns the lifecycle tag of an operation action, or "" for plain
// actions.
func (a Action) Phase() Phase {
	i := strings.LastIndexByte(a.Type, '/')
	if i < 0 {
		return ""
	}
	switch p := Phase(a.Type[i+1:]); p {
	case PhasePending, PhaseFulfilled, PhaseRejected:
		return p
	}
	return ""
}

// Op strips the lifecycle tag.
func (a Action) Op() string {
	if a.Phase() == "" {
		return a.Type
	}
	return a.Type[:strings.LastIndexByte(a.Type, '/')]
}

// Is reports whether a is op settled in phase.
func (a Action) Is(op string, phase Phase) bool {
	return a.Type == Settled(op, phase)
}
