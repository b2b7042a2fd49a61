package devserver

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/anjiri1684/skill_exchange/models"
)

func skillModels(records []SkillRecord) []models.Skill {
	out := make([]models.Skill, 0, len(records))
	for _, r := range records {
		out = append(out, r.toModel())
	}
	return out
}

func (s *Server) ListSkills(c *fiber.Ctx) error {
	q := s.db.Preload("Creator").Order("created_at desc")
	if category := c.Query("category"); category != "" {
		q = q.Where("category = ?", category)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	var records []SkillRecord
	if err := q.Find(&records).Error; err != nil {
		return err
	}
	return c.JSON(skillModels(records))
}

// GetSkill returns one skill with its reviews.
func (s *Server) GetSkill(c *fiber.Ctx) error {
	var rec SkillRecord
	if err := s.db.Preload("Creator").First(&rec, "id = ?", c.Params("id")).Error; err != nil {
		if notFound(err) {
			return fail(c, fiber.StatusNotFound, "Skill not found")
		}
		return err
	}
	reviews, err := s.reviewsFor(rec.ID)
	if err != nil {
		return err
	}
	skill := rec.toModel()
	skill.Reviews = reviews
	return c.JSON(skill)
}

func (s *Server) InstructorSkills(c *fiber.Ctx) error {
	var records []SkillRecord
	err := s.db.Preload("Creator").
		Where("created_by = ?", currentUser(c).ID).
		Order("created_at desc").
		Find(&records).Error
	if err != nil {
		return err
	}
	return c.JSON(skillModels(records))
}

func (s *Server) CreateSkill(c *fiber.Ctx) error {
	var req models.SkillInput
	if handled, err := parseBody(c, &req); handled {
		return err
	}
	rec := SkillRecord{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		PricePerHour: req.PricePerHour,
		CreatedBy:    currentUser(c).ID,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return err
	}
	if err := s.db.Preload("Creator").First(&rec, "id = ?", rec.ID).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(rec.toModel())
}

// ownedSkill loads the skill in the id param and checks the caller may
// change it. A nil record means the response was already written.
func (s *Server) ownedSkill(c *fiber.Ctx) (*SkillRecord, error) {
	var rec SkillRecord
	if err := s.db.First(&rec, "id = ?", c.Params("id")).Error; err != nil {
		if notFound(err) {
			return nil, fail(c, fiber.StatusNotFound, "Skill not found")
		}
		return nil, err
	}
	if me := currentUser(c); rec.CreatedBy != me.ID && !me.admin() {
		return nil, fail(c, fiber.StatusForbidden, "Not authorized to modify this skill")
	}
	return &rec, nil
}

func (s *Server) UpdateSkill(c *fiber.Ctx) error {
	rec, err := s.ownedSkill(c)
	if rec == nil {
		return err
	}
	var req models.SkillInput
	if handled, err := parseBody(c, &req); handled {
		return err
	}
	rec.Title = req.Title
	rec.Description = req.Description
	rec.Category = req.Category
	rec.PricePerHour = req.PricePerHour
	if err := s.db.Omit("Creator").Save(rec).Error; err != nil {
		return err
	}
	if err := s.db.Preload("Creator").First(rec, "id = ?", rec.ID).Error; err != nil {
		return err
	}
	return c.JSON(rec.toModel())
}

func (s *Server) DeleteSkill(c *fiber.Ctx) error {
	rec, err := s.ownedSkill(c)
	if rec == nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("skill_id = ?", rec.ID).Delete(&ReviewRecord{}).Error; err != nil {
			return err
		}
		return tx.Delete(rec).Error
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Skill removed"})
}
