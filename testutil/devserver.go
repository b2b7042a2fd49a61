// Package testutil runs the reference server in memory for integration tests.
package testutil

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap/zaptest"

	"github.com/anjiri1684/skill_exchange/api"
	config "github.com/anjiri1684/skill_exchange/configs"
	"github.com/anjiri1684/skill_exchange/database"
	"github.com/anjiri1684/skill_exchange/devserver"
	"github.com/anjiri1684/skill_exchange/models"
)

const (
	BaseURL   = "http://skillswap.test/api"
	SocketURL = "ws://skillswap.test" + devserver.SocketPath

	AdminEmail    = "admin@skillswap.test"
	AdminPassword = "admin-secret"
	Password      = "secret123"
)

// Env is a running devserver reachable only through its in-memory listener.
type Env struct {
	Server *devserver.Server
	ln     *fasthttputil.InmemoryListener
}

// Start boots a devserver on a private in-memory database. It is shut down
// when the test ends.
func Start(t testing.TB) *Env {
	t.Helper()
	log := zaptest.NewLogger(t)

	db, err := database.Connect("sqlite", database.MemoryDSN(uuid.NewString()), nil)
	require.NoError(t, err)

	srv, err := devserver.New(db, config.ServerConfig{
		JWTSecret:     "test-secret",
		TokenTTL:      time.Hour,
		AdminName:     "Site Admin",
		AdminEmail:    AdminEmail,
		AdminPassword: AdminPassword,
	}, log)
	require.NoError(t, err)

	ln := fasthttputil.NewInmemoryListener()
	go func() { _ = srv.Serve(ln) }()

	t.Cleanup(func() {
		_ = srv.Shutdown()
		_ = ln.Close()
		_ = database.Close(db)
	})
	return &Env{Server: srv, ln: ln}
}

// Dial connects to the server regardless of addr.
func (e *Env) Dial(string) (net.Conn, error) { return e.ln.Dial() }

func (e *Env) NetDial(string, string) (net.Conn, error) { return e.ln.Dial() }

// APIConfig returns a client config that talks to this server.
func (e *Env) APIConfig() api.Config {
	return api.Config{BaseURL: BaseURL, Timeout: 5 * time.Second, Dial: e.Dial}
}

func (e *Env) Client() *api.Client {
	return api.New(e.APIConfig())
}

// Dialer returns a websocket dialer bound to this server.
func (e *Env) Dialer() *websocket.Dialer {
	return &websocket.Dialer{NetDial: e.NetDial, HandshakeTimeout: 5 * time.Second}
}

// Register creates a user and returns its session.
func (e *Env) Register(t testing.TB, name string, role models.Role) models.Session {
	t.Helper()
	var sess models.Session
	err := e.Client().Do(context.Background(), api.Request{
		Method: fasthttp.MethodPost,
		Path:   "/auth/register",
		Body: models.Registration{
			Name:     name,
			Email:    uuid.NewString()[:8] + "@skillswap.test",
			Password: Password,
			Role:     role,
		},
	}, &sess)
	require.NoError(t, err)
	return sess
}

// Admin logs in as the seeded admin.
func (e *Env) Admin(t testing.TB) models.Session {
	t.Helper()
	var sess models.Session
	err := e.Client().Do(context.Background(), api.Request{
		Method: fasthttp.MethodPost,
		Path:   "/auth/login",
		Body:   models.Credentials{Email: AdminEmail, Password: AdminPassword},
	}, &sess)
	require.NoError(t, err)
	return sess
}

// As returns a client carrying sess's token.
func (e *Env) As(sess models.Session) *api.Client {
	c := e.Client()
	c.SetToken(sess.Token)
	return c
}

// Booking is a skill plus a pending booking of it between two fresh users.
type Booking struct {
	Instructor models.Session
	Student    models.Session
	Skill      models.Skill
	Booking    models.Booking
}

// Book registers an instructor and a student, publishes a skill and books it.
func (e *Env) Book(t testing.TB) Booking {
	t.Helper()
	ctx := context.Background()
	out := Booking{
		Instructor: e.Register(t, "Ada Instructor", models.RoleInstructor),
		Student:    e.Register(t, "Sam Student", models.RoleStudent),
	}
	err := e.As(out.Instructor).Do(ctx, api.Request{
		Method: fasthttp.MethodPost,
		Path:   "/skills",
		Auth:   true,
		Body: models.SkillInput{
			Title:        "Go concurrency",
			Description:  "Channels and goroutines",
			Category:     "programming",
			PricePerHour: 40,
		},
	}, &out.Skill)
	require.NoError(t, err)

	err = e.As(out.Student).Do(ctx, api.Request{
		Method: fasthttp.MethodPost,
		Path:   "/bookings",
		Auth:   true,
		Body: models.BookingInput{
			SkillID:      out.Skill.ID,
			InstructorID: out.Instructor.ID,
			Date:         time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second),
			Duration:     1,
		},
	}, &out.Booking)
	require.NoError(t, err)
	return out
}
