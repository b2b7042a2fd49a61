package devserver

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/anjiri1684/skill_exchange/models"
)

func (s *Server) reviewsFor(skillID string) ([]models.Review, error) {
	var records []ReviewRecord
	err := s.db.Preload("Author").
		Where("skill_id = ?", skillID).
		Order("created_at desc").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Review, 0, len(records))
	for _, r := range records {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Server) SkillReviews(c *fiber.Ctx) error {
	reviews, err := s.reviewsFor(c.Params("skillId"))
	if err != nil {
		return err
	}
	return c.JSON(reviews)
}

// AddReview creates the caller's review of a skill or replaces the one they
// already left, then refreshes the skill's rating aggregate.
func (s *Server) AddReview(c *fiber.Ctx) error {
	var req models.ReviewInput
	if handled, err := parseBody(c, &req); handled {
		return err
	}
	me := currentUser(c)

	var skill SkillRecord
	if err := s.db.First(&skill, "id = ?", req.SkillID).Error; err != nil {
		if notFound(err) {
			return fail(c, fiber.StatusNotFound, "Skill not found")
		}
		return err
	}
	if skill.CreatedBy == me.ID {
		return fail(c, fiber.StatusForbidden, "You cannot review your own skill")
	}

	var rec ReviewRecord
	err := s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("skill_id = ? AND user_id = ?", skill.ID, me.ID).First(&rec).Error
		switch {
		case notFound(err):
			rec = ReviewRecord{SkillID: skill.ID, UserID: me.ID, Rating: req.Rating, Comment: req.Comment}
			if err := tx.Create(&rec).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			rec.Rating, rec.Comment = req.Rating, req.Comment
			if err := tx.Omit("Author").Save(&rec).Error; err != nil {
				return err
			}
		}

		var agg struct {
			Avg   float64
			Count int
		}
		if err := tx.Model(&ReviewRecord{}).
			Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
			Where("skill_id = ?", skill.ID).
			Scan(&agg).Error; err != nil {
			return err
		}
		return tx.Model(&SkillRecord{}).Where("id = ?", skill.ID).
			Updates(map[string]any{"avg_rating": agg.Avg, "num_reviews": agg.Count}).Error
	})
	if err != nil {
		return err
	}

	if err := s.db.Preload("Author").First(&rec, "id = ?", rec.ID).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(rec.toModel())
}
