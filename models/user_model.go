package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

type User struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	Avatar    string    `json:"avatar,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is the logged-in user plus the bearer credential. It is what the
// login and register endpoints return and what the client persists.
type Session struct {
	User
	Token string `json:"token"`
}

// ExpiresAt reads the exp claim of the session token without verifying its
// signature. ok is false for opaque tokens or tokens without exp.
func (s Session) ExpiresAt() (exp time.Time, ok bool) {
	if s.Token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.Token, claims); err != nil {
		return time.Time{}, false
	}
	v, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(v), 0), true
}

func (s Session) Expired(now time.Time) bool {
	exp, ok := s.ExpiresAt()
	return ok && !now.Before(exp)
}

// WithProfile returns a copy of s carrying the profile fields of u. The token
// is kept.
func (s Session) WithProfile(u User) Session {
	out := s
	if u.Name != "" {
		out.Name = u.Name
	}
	if u.Email != "" {
		out.Email = u.Email
	}
	if u.Avatar != "" {
		out.Avatar = u.Avatar
	}
	if u.Bio != "" {
		out.Bio = u.Bio
	}
	if u.Role != "" {
		out.Role = u.Role
	}
	return out
}

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Registration struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=student instructor"`
}

type ProfileUpdate struct {
	ID     string `json:"_id" validate:"required"`
	Name   string `json:"name,omitempty" validate:"omitempty,min=2"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
	Bio    string `json:"bio,omitempty" validate:"max=1000"`
	Avatar string `json:"avatar,omitempty" validate:"omitempty,url"`
}

// UserStats is the admin dashboard aggregate.
type UserStats struct {
	TotalUsers        int64 `json:"totalUsers"`
	TotalStudents     int64 `json:"totalStudents"`
	TotalInstructors  int64 `json:"totalInstructors"`
	NewUsersThisMonth int64 `json:"newUsersThisMonth"`
}
