package devserver

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anjiri1684/skill_exchange/models"
)

type UserRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:255;not null"`
	Email     string `gorm:"size:255;not null;uniqueIndex"`
	Password  string `gorm:"not null"`
	Role      string `gorm:"size:20;not null;default:'student'"`
	Avatar    string `gorm:"size:255"`
	Bio       string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserRecord) TableName() string { return "users" }

func (u *UserRecord) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u UserRecord) toModel() models.User {
	return models.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      models.Role(u.Role),
		Avatar:    u.Avatar,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
	}
}

// ref returns a populated reference, or a bare id when the relation was not
// preloaded.
func (u UserRecord) ref(id string) models.UserRef {
	if u.ID == "" {
		return models.UserRef{ID: id}
	}
	return models.RefOf(u.toModel())
}

type SkillRecord struct {
	ID           string `gorm:"primaryKey;size:36"`
	Title        string `gorm:"size:255;not null"`
	Description  string `gorm:"type:text"`
	Category     string `gorm:"size:100;index"`
	PricePerHour float64
	CreatedBy    string     `gorm:"size:36;index;not null"`
	Creator      UserRecord `gorm:"foreignKey:CreatedBy"`
	AvgRating    float64
	NumReviews   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (SkillRecord) TableName() string { return "skills" }

func (s *SkillRecord) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (s SkillRecord) toModel() models.Skill {
	return models.Skill{
		ID:           s.ID,
		Title:        s.Title,
		Description:  s.Description,
		Category:     s.Category,
		PricePerHour: s.PricePerHour,
		CreatedBy:    s.Creator.ref(s.CreatedBy),
		AvgRating:    s.AvgRating,
		NumReviews:   s.NumReviews,
		CreatedAt:    s.CreatedAt,
	}
}

type BookingRecord struct {
	ID           string      `gorm:"primaryKey;size:36"`
	SkillID      string      `gorm:"size:36;index;not null"`
	Skill        SkillRecord `gorm:"foreignKey:SkillID"`
	StudentID    string      `gorm:"size:36;index;not null"`
	Student      UserRecord  `gorm:"foreignKey:StudentID"`
	InstructorID string      `gorm:"size:36;index;not null"`
	Instructor   UserRecord  `gorm:"foreignKey:InstructorID"`
	Date         time.Time
	Duration     int
	Status       string `gorm:"size:20;not null;default:'pending'"`
	MeetingLink  string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (BookingRecord) TableName() string { return "bookings" }

func (b *BookingRecord) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (b BookingRecord) participant(userID string) bool {
	return userID == b.StudentID || userID == b.InstructorID
}

func (b BookingRecord) toModel() models.Booking {
	skill := models.SkillRef{ID: b.SkillID}
	if b.Skill.ID != "" {
		skill = models.SkillRef{ID: b.Skill.ID, Title: b.Skill.Title, Category: b.Skill.Category, PricePerHour: b.Skill.PricePerHour}
	}
	return models.Booking{
		ID:          b.ID,
		Skill:       skill,
		Student:     b.Student.ref(b.StudentID),
		Instructor:  b.Instructor.ref(b.InstructorID),
		Date:        b.Date,
		Duration:    b.Duration,
		Status:      models.BookingStatus(b.Status),
		MeetingLink: b.MeetingLink,
		CreatedAt:   b.CreatedAt,
	}
}

type ReviewRecord struct {
	ID        string     `gorm:"primaryKey;size:36"`
	SkillID   string     `gorm:"size:36;not null;uniqueIndex:idx_review_author_skill"`
	UserID    string     `gorm:"size:36;not null;uniqueIndex:idx_review_author_skill"`
	Author    UserRecord `gorm:"foreignKey:UserID"`
	Rating    int        `gorm:"not null"`
	Comment   string     `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ReviewRecord) TableName() string { return "reviews" }

func (r *ReviewRecord) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (r ReviewRecord) toModel() models.Review {
	return models.Review{
		ID:        r.ID,
		SkillID:   r.SkillID,
		Author:    r.Author.ref(r.UserID),
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
	}
}

type MessageRecord struct {
	ID             string     `gorm:"primaryKey;size:36"`
	BookingID      string     `gorm:"size:36;index;not null"`
	SenderID       string     `gorm:"size:36;not null"`
	Sender         UserRecord `gorm:"foreignKey:SenderID"`
	Message        string     `gorm:"type:text"`
	AttachmentURL  string     `gorm:"type:text"`
	AttachmentName string     `gorm:"size:255"`
	AttachmentType string     `gorm:"size:100"`
	CreatedAt      time.Time
}

func (MessageRecord) TableName() string { return "messages" }

func (m *MessageRecord) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (m MessageRecord) toModel() models.ChatMessage {
	out := models.ChatMessage{
		ID:        m.ID,
		BookingID: m.BookingID,
		SenderID:  m.SenderID,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
		Status:    models.MessageSent,
	}
	if m.Sender.ID != "" {
		out.Sender = &models.Sender{ID: m.Sender.ID, Name: m.Sender.Name, Role: models.Role(m.Sender.Role), Avatar: m.Sender.Avatar}
	}
	if m.AttachmentURL != "" {
		out.Attachment = &models.Attachment{URL: m.AttachmentURL, Name: m.AttachmentName, ContentType: m.AttachmentType}
	}
	return out
}

func allRecords() []any {
	return []any{&UserRecord{}, &SkillRecord{}, &BookingRecord{}, &ReviewRecord{}, &MessageRecord{}}
}
