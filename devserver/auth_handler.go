package devserver

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/models"
)

func (s *Server) sessionFor(c *fiber.Ctx, status int, u UserRecord) error {
	token, err := s.issueToken(u)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to create token")
	}
	return c.Status(status).JSON(models.Session{User: u.toModel(), Token: token})
}

func (s *Server) Register(c *fiber.Ctx) error {
	var req models.Registration
	if handled, err := parseBody(c, &req); handled {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := s.db.Model(&UserRecord{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fail(c, fiber.StatusConflict, "User already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to hash password")
	}
	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}
	user := UserRecord{Name: req.Name, Email: email, Password: string(hashed), Role: string(role)}
	if err := s.db.Create(&user).Error; err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to create user")
	}
	s.log.Info("user registered", zap.String(logger.FieldUserID, user.ID), zap.String("role", user.Role))
	return s.sessionFor(c, fiber.StatusCreated, user)
}

func (s *Server) Login(c *fiber.Ctx) error {
	var req models.Credentials
	if handled, err := parseBody(c, &req); handled {
		return err
	}

	var user UserRecord
	if err := s.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	}
	return s.sessionFor(c, fiber.StatusOK, user)
}

// Me returns the profile behind the presented token.
func (s *Server) Me(c *fiber.Ctx) error {
	var user UserRecord
	if err := s.db.First(&user, "id = ?", currentUser(c).ID).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "User no longer exists")
	}
	return c.JSON(user.toModel())
}

func (s *Server) RefreshToken(c *fiber.Ctx) error {
	var user UserRecord
	if err := s.db.First(&user, "id = ?", currentUser(c).ID).Error; err != nil {
		return fail(c, fiber.StatusUnauthorized, "User no longer exists")
	}
	return s.sessionFor(c, fiber.StatusOK, user)
}
