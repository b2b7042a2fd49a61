package devserver

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/anjiri1684/skill_exchange/models"
)

func (s *Server) protected() fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(s.cfg.JWTSecret),
		ErrorHandler: jwtError,
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not authorized, no token"})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not authorized, token failed"})
}

type principal struct {
	ID   string
	Role models.Role
}

func (p principal) admin() bool { return p.Role == models.RoleAdmin }

func currentUser(c *fiber.Ctx) principal {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return principal{}
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return principal{}
	}
	id, _ := claims["user_id"].(string)
	role, _ := claims["role"].(string)
	return principal{ID: id, Role: models.Role(role)}
}

func adminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !currentUser(c).admin() {
			return fail(c, fiber.StatusForbidden, "Forbidden: admin access required")
		}
		return c.Next()
	}
}

func instructorRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch currentUser(c).Role {
		case models.RoleInstructor, models.RoleAdmin:
			return c.Next()
		}
		return fail(c, fiber.StatusForbidden, "Forbidden: instructor access required")
	}
}

func (s *Server) issueToken(u UserRecord) (string, error) {
	claims := jwt.MapClaims{
		"user_id": u.ID,
		"role":    u.Role,
		"exp":     time.Now().Add(s.cfg.TokenTTL).Unix(),
		"jti":     uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

// parseToken verifies a token presented outside the HTTP middleware, as on
// the websocket.
func (s *Server) parseToken(tokenString string) (principal, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return principal{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return principal{}, errors.New("invalid token")
	}
	id, _ := claims["user_id"].(string)
	if id == "" {
		return principal{}, errors.New("token has no user")
	}
	role, _ := claims["role"].(string)
	return principal{ID: id, Role: models.Role(role)}, nil
}
