package models

import "time"

type Skill struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	PricePerHour float64   `json:"pricePerHour"`
	CreatedBy    UserRef   `json:"createdBy"`
	AvgRating    float64   `json:"avgRating"`
	NumReviews   int       `json:"numReviews"`
	Reviews      []Review  `json:"reviews,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type SkillInput struct {
	Title        string  `json:"title" validate:"required,max=120"`
	Description  string  `json:"description" validate:"required"`
	Category     string  `json:"category" validate:"required"`
	PricePerHour float64 `json:"pricePerHour" validate:"gt=0"`
}

type SkillFilter struct {
	Category string
	Search   string
}
