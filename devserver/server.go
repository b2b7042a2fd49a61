// Package devserver is a reference implementation of the marketplace REST API
// and message relay. It backs integration tests and local development of the
// client.
package devserver

import (
	"errors"
	"net"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	config "github.com/anjiri1684/skill_exchange/configs"
	"github.com/anjiri1684/skill_exchange/database"
	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/models"
)

// SocketPath is where the message relay accepts websocket connections.
const SocketPath = "/api/socket"

type Server struct {
	db          *gorm.DB
	cfg         config.ServerConfig
	log         *zap.Logger
	hub         *Hub
	attachments AttachmentStore
	app         *fiber.App
}

// New migrates db, seeds the admin account when one is configured and builds
// the HTTP application. The relay hub starts immediately.
func New(db *gorm.DB, cfg config.ServerConfig, log *zap.Logger) (*Server, error) {
	log = logger.OrNop(log)
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 72 * time.Hour
	}
	if err := database.Migrate(db, allRecords()...); err != nil {
		return nil, err
	}

	attachments, err := NewAttachmentStore(cfg.CloudinaryURL, log)
	if err != nil {
		return nil, err
	}

	s := &Server{
		db:          db,
		cfg:         cfg,
		log:         log,
		hub:         NewHub(log),
		attachments: attachments,
	}
	if err := s.seedAdmin(); err != nil {
		return nil, err
	}
	s.app = s.newApp()
	go s.hub.Run()
	return s, nil
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.log.Info("server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

func (s *Server) Shutdown() error {
	s.hub.Stop()
	return s.app.Shutdown()
}

func (s *Server) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "SkillSwap Dev API",
		CaseSensitive:         true,
		StrictRouting:         true,
		DisableStartupMessage: true,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           60 * time.Second,
		BodyLimit:             8 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			s.log.Error("request failed",
				zap.Error(err),
				zap.String(logger.FieldPath, c.Path()),
				zap.String(logger.FieldMethod, c.Method()))
			return c.Status(code).JSON(fiber.Map{"message": err.Error()})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	app.Use(s.requestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", s.Register)
	auth.Post("/login", s.Login)
	auth.Get("/me", s.protected(), s.Me)
	auth.Post("/refresh-token", s.protected(), s.RefreshToken)

	skills := api.Group("/skills")
	skills.Get("", s.ListSkills)
	skills.Get("/instructor", s.protected(), instructorRequired(), s.InstructorSkills)
	skills.Get("/:id", s.GetSkill)
	skills.Post("", s.protected(), instructorRequired(), s.CreateSkill)
	skills.Put("/:id", s.protected(), s.UpdateSkill)
	skills.Delete("/:id", s.protected(), s.DeleteSkill)

	bookings := api.Group("/bookings", s.protected())
	bookings.Post("", s.CreateBooking)
	bookings.Get("/user/:userId", s.UserBookings)
	bookings.Get("/instructor/:instructorId", s.InstructorBookings)
	bookings.Get("/admin/all", adminRequired(), s.AllBookings)
	bookings.Put("/:id/status", s.UpdateBookingStatus)
	bookings.Delete("/:id", s.CancelBooking)

	reviews := api.Group("/reviews")
	reviews.Post("", s.protected(), s.AddReview)
	reviews.Get("/:skillId", s.SkillReviews)

	users := api.Group("/users", s.protected())
	users.Get("", adminRequired(), s.ListUsers)
	users.Get("/stats", adminRequired(), s.UserStats)
	users.Get("/:id", s.GetUser)
	users.Put("/:id", s.UpdateUser)

	messages := api.Group("/messages", s.protected())
	messages.Get("/:bookingId", s.MessageHistory)
	messages.Post("", s.PostMessage)

	api.Use("/socket", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/socket", websocket.New(s.ServeSocket))

	return app
}

func (s *Server) requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		s.log.Debug("request",
			zap.String(logger.FieldMethod, c.Method()),
			zap.String(logger.FieldPath, c.Path()),
			zap.Int(logger.FieldStatusCode, c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)))
		return err
	}
}

func (s *Server) seedAdmin() error {
	if s.cfg.AdminEmail == "" || s.cfg.AdminPassword == "" {
		return nil
	}
	var count int64
	if err := s.db.Model(&UserRecord{}).Where("email = ?", s.cfg.AdminEmail).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		s.log.Debug("admin user already exists")
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(s.cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin := UserRecord{
		Name:     s.cfg.AdminName,
		Email:    s.cfg.AdminEmail,
		Password: string(hashed),
		Role:     string(models.RoleAdmin),
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return err
	}
	s.log.Info("admin user seeded", zap.String(logger.FieldUserID, admin.ID))
	return nil
}
