package models

import (
	"math"
	"time"
)

type Review struct {
	ID        string    `json:"_id"`
	SkillID   string    `json:"skillId"`
	Author    UserRef   `json:"userId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

type ReviewInput struct {
	SkillID string `json:"skillId" validate:"required"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// AverageRating returns the mean rating rounded to one decimal, and false
// when there are no reviews.
func AverageRating(reviews []Review) (float64, bool) {
	if len(reviews) == 0 {
		return 0, false
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return math.Round(avg*10) / 10, true
}
