package models

import (
	"bytes"
	"encoding/json"
)

// UserRef is a reference to a user that the API sends either as a bare id or
// as a populated object.
type UserRef struct {
	ID     string `json:"_id"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   Role   `json:"role,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func (r *UserRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = UserRef{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		*r = UserRef{}
		return json.Unmarshal(b, &r.ID)
	}
	type plain UserRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = UserRef(p)
	return nil
}

func RefOf(u User) UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, Avatar: u.Avatar}
}

// SkillRef is the booking's skill reference, bare id or populated.
type SkillRef struct {
	ID           string  `json:"_id"`
	Title        string  `json:"title,omitempty"`
	Category     string  `json:"category,omitempty"`
	PricePerHour float64 `json:"pricePerHour,omitempty"`
}

func (r *SkillRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = SkillRef{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		*r = SkillRef{}
		return json.Unmarshal(b, &r.ID)
	}
	type plain SkillRef
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = SkillRef(p)
	return nil
}
