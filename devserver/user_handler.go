package devserver

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/anjiri1684/skill_exchange/models"
)

func (s *Server) GetUser(c *fiber.Ctx) error {
	var user UserRecord
	if err := s.db.First(&user, "id = ?", c.Params("id")).Error; err != nil {
		if notFound(err) {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		return err
	}
	return c.JSON(user.toModel())
}

// UpdateUser changes profile fields of the user in the id param. Users may
// edit themselves; admins may edit anyone.
func (s *Server) UpdateUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if me := currentUser(c); me.ID != id && !me.admin() {
		return fail(c, fiber.StatusForbidden, "Not authorized to update this profile")
	}
	var req models.ProfileUpdate
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Cannot parse request body")
	}
	req.ID = id
	if err := validate(&req); err != nil {
		return validationFailed(c, err)
	}

	var user UserRecord
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if notFound(err) {
			return fail(c, fiber.StatusNotFound, "User not found")
		}
		return err
	}

	if req.Email != "" {
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email != user.Email {
			var count int64
			if err := s.db.Model(&UserRecord{}).Where("email = ? AND id <> ?", email, id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return fail(c, fiber.StatusConflict, "Email already in use")
			}
			user.Email = email
		}
	}
	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Avatar != "" {
		user.Avatar = req.Avatar
	}
	user.Bio = req.Bio

	if err := s.db.Save(&user).Error; err != nil {
		return err
	}
	return c.JSON(user.toModel())
}

func (s *Server) ListUsers(c *fiber.Ctx) error {
	var records []UserRecord
	if err := s.db.Order("created_at desc").Find(&records).Error; err != nil {
		return err
	}
	out := make([]models.User, 0, len(records))
	for _, r := range records {
		out = append(out, r.toModel())
	}
	return c.JSON(out)
}

func (s *Server) UserStats(c *fiber.Ctx) error {
	var stats models.UserStats
	if err := s.db.Model(&UserRecord{}).Count(&stats.TotalUsers).Error; err != nil {
		return err
	}
	if err := s.db.Model(&UserRecord{}).Where("role = ?", models.RoleStudent).Count(&stats.TotalStudents).Error; err != nil {
		return err
	}
	if err := s.db.Model(&UserRecord{}).Where("role = ?", models.RoleInstructor).Count(&stats.TotalInstructors).Error; err != nil {
		return err
	}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if err := s.db.Model(&UserRecord{}).Where("created_at >= ?", monthStart).Count(&stats.NewUsersThisMonth).Error; err != nil {
		return err
	}
	return c.JSON(stats)
}
