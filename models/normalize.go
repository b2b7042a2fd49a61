package models

type roleDefaults struct {
	Name   string
	Avatar string
}

var senderDefaults = map[Role]roleDefaults{
	RoleInstructor: {Name: "Instructor", Avatar: "https://placehold.co/40x40/3b82f6/white?text=I"},
}

var fallbackSenderDefaults = roleDefaults{Name: "Student", Avatar: "https://placehold.co/40x40/10b981/white?text=S"}

func defaultsFor(role Role) roleDefaults {
	if d, ok := senderDefaults[role]; ok {
		return d
	}
	return fallbackSenderDefaults
}

// DefaultName is the display name shown for a sender of role with no name.
func DefaultName(role Role) string { return defaultsFor(role).Name }

// DefaultAvatar is the placeholder image for a sender of role with no avatar.
func DefaultAvatar(role Role) string { return defaultsFor(role).Avatar }

// SenderFor packages a user identity as a chat sender, filling the same
// fallbacks NormalizeMessage applies.
func SenderFor(u User) Sender {
	s := Sender{ID: u.ID, Name: u.Name, Role: u.Role, Avatar: u.Avatar}
	return normalizeSender(s, "")
}

// NormalizeMessage returns m with a fully populated sender. History and live
// messages arrive with the sender partially or entirely missing; the id falls
// back to senderId, the name and avatar to role defaults and the role to
// student. Normalizing twice yields the same message.
func NormalizeMessage(m ChatMessage) ChatMessage {
	var s Sender
	if m.Sender != nil {
		s = *m.Sender
	}
	s = normalizeSender(s, m.SenderID)
	m.Sender = &s
	if m.SenderID == "" {
		m.SenderID = s.ID
	}
	if m.Status == "" {
		m.Status = MessageSent
	}
	return m
}

func NormalizeMessages(in []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(in))
	for i, m := range in {
		out[i] = NormalizeMessage(m)
	}
	return out
}

func normalizeSender(s Sender, flatID string) Sender {
	if s.ID == "" {
		s.ID = flatID
	}
	d := defaultsFor(s.Role)
	if s.Name == "" {
		s.Name = d.Name
	}
	if s.Avatar == "" {
		s.Avatar = d.Avatar
	}
	if s.Role == "" {
		s.Role = RoleStudent
	}
	return s
}
