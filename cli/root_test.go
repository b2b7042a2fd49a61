package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/anjiri1684/skill_exchange/api"
	config "github.com/anjiri1684/skill_exchange/configs"
	"github.com/anjiri1684/skill_exchange/logger"
	"github.com/anjiri1684/skill_exchange/models"
	"github.com/anjiri1684/skill_exchange/storage"
	"github.com/anjiri1684/skill_exchange/testutil"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "skillswap", cmd.Use)
	assert.Contains(t, cmd.Long, "chat with instructors")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"register", "login", "logout", "whoami", "skills", "bookings", "reviews", "profile", "admin", "chat"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestBookingsCreateFlags(t *testing.T) {
	cmd := NewRootCommand()
	createCmd, _, err := cmd.Find([]string{"bookings", "create"})
	require.NoError(t, err)

	for _, name := range []string{"skill", "instructor", "date"} {
		require.NotNil(t, createCmd.Flags().Lookup(name), name)
	}
	hours := createCmd.Flags().Lookup("hours")
	require.NotNil(t, hours)
	assert.Equal(t, "1", hours.DefValue)
}

func TestChatCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	chatCmd, _, err := cmd.Find([]string{"chat"})
	require.NoError(t, err)

	once := chatCmd.Flags().Lookup("once")
	require.NotNil(t, once)
	assert.Equal(t, "false", once.DefValue)
}

func TestInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"skills", "list", "--format", "yaml"})
	cmd.SetOut(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestParseDate(t *testing.T) {
	got, err := parseDate("2026-11-02 18:00")
	require.NoError(t, err)
	assert.Equal(t, 18, got.Hour())

	got, err = parseDate("2026-11-02T18:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())

	_, err = parseDate("next tuesday")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(&api.Error{Kind: api.KindValidation, Message: "bad"}))
	assert.Equal(t, ExitFailure, ExitCode(&api.Error{Kind: api.KindUnauthorized, Message: "no"}))
	assert.Equal(t, ExitCommandError, ExitCode(errNotLoggedIn))
	assert.Equal(t, ExitCommandError, ExitCode(&api.Error{Kind: api.KindNetwork, Message: "down"}))
}

func TestDescribe_ListsFieldErrors(t *testing.T) {
	err := &api.Error{
		Kind:    api.KindValidation,
		Message: "Validation failed",
		Fields:  []api.FieldError{{Field: "email", Message: "email must be a valid email"}},
	}
	assert.Equal(t, "Validation failed\n  email: email must be a valid email", Describe(err))
}

// harness runs commands against an in-process server. Invocations share one
// storage backend, so a login persists like it would on disk.
type harness struct {
	env     *testutil.Env
	storage storage.Storage
}

func newHarness(t *testing.T) *harness {
	return &harness{env: testutil.Start(t), storage: storage.NewMemory()}
}

func (h *harness) run(t *testing.T, in io.Reader, args ...string) (string, error) {
	t.Helper()
	return h.runWithStderr(t, in, io.Discard, args...)
}

func (h *harness) runWithStderr(t *testing.T, in io.Reader, stderr io.Writer, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := NewRootCommandWith(&RootOptions{
		Config: &config.ClientConfig{
			APIURL:          testutil.BaseURL,
			SocketPath:      "/api/socket",
			RequestTimeout:  5 * time.Second,
			WithCredentials: true,
			ChatCacheSweep:  "@every 10m",
			Log:             logger.Config{Level: "error", Output: "stderr"},
		},
		Storage: h.storage,
		Dial:    h.env.Dial,
		Dialer:  h.env.Dialer(),
		In:      in,
	})
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func (h *harness) login(t *testing.T, sess models.Session) {
	t.Helper()
	out, err := h.run(t, nil, "login", "--email", sess.Email, "--password", testutil.Password)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as "+sess.Name)
}

func TestCLI_LoginPersistsAcrossInvocations(t *testing.T) {
	h := newHarness(t)
	student := h.env.Register(t, "Sam Student", models.RoleStudent)

	_, err := h.run(t, nil, "whoami")
	require.ErrorIs(t, err, errNotLoggedIn)
	assert.Equal(t, ExitCommandError, ExitCode(err))

	h.login(t, student)

	out, err := h.run(t, nil, "whoami", "--verify", "--format", "json")
	require.NoError(t, err)
	var me models.User
	require.NoError(t, json.Unmarshal([]byte(out), &me))
	assert.Equal(t, student.ID, me.ID)
	assert.Equal(t, models.RoleStudent, me.Role)

	out, err = h.run(t, nil, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")

	_, err = h.run(t, nil, "whoami")
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestCLI_LoginRejected(t *testing.T) {
	h := newHarness(t)
	student := h.env.Register(t, "Sam Student", models.RoleStudent)

	_, err := h.run(t, nil, "login", "--email", student.Email, "--password", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))

	_, err = h.run(t, nil, "login", "--email", "not-an-email", "--password", "x")
	require.Error(t, err)
	assert.Equal(t, api.KindValidation, api.KindOf(err))
	assert.Contains(t, Describe(err), "email")
}

func TestCLI_SkillsAndBookings(t *testing.T) {
	h := newHarness(t)
	b := h.env.Book(t)

	out, err := h.run(t, nil, "skills", "list", "--format", "json")
	require.NoError(t, err)
	var skills []models.Skill
	require.NoError(t, json.Unmarshal([]byte(out), &skills))
	require.Len(t, skills, 1)
	assert.Equal(t, b.Skill.ID, skills[0].ID)

	out, err = h.run(t, nil, "skills", "list", "--category", "cooking")
	require.NoError(t, err)
	assert.NotContains(t, out, b.Skill.Title)

	h.login(t, b.Student)
	out, err = h.run(t, nil, "bookings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, b.Booking.ID)
	assert.Contains(t, out, "pending")

	// Only the instructor confirms.
	_, err = h.run(t, nil, "bookings", "status", b.Booking.ID, "confirmed")
	require.Error(t, err)
	assert.Equal(t, api.KindDomain, api.KindOf(err))

	h.login(t, b.Instructor)
	out, err = h.run(t, nil, "bookings", "status", b.Booking.ID, "confirmed", "--meeting-link", "https://meet.example.com/go")
	require.NoError(t, err)
	assert.Contains(t, out, "is now confirmed")
	assert.Contains(t, out, "https://meet.example.com/go")

	out, err = h.run(t, nil, "bookings", "status", b.Booking.ID, "completed")
	require.NoError(t, err)
	assert.Contains(t, out, "is now completed")

	_, err = h.run(t, nil, "bookings", "cancel", b.Booking.ID)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestCLI_ReviewsAndProfile(t *testing.T) {
	h := newHarness(t)
	b := h.env.Book(t)

	h.login(t, b.Student)
	out, err := h.run(t, nil, "reviews", "add", b.Skill.ID, "--rating", "4", "--comment", "clear and patient")
	require.NoError(t, err)
	assert.Contains(t, out, "4/5")

	_, err = h.run(t, nil, "reviews", "add", b.Skill.ID, "--rating", "9")
	require.Error(t, err)
	assert.Equal(t, api.KindValidation, api.KindOf(err))

	out, err = h.run(t, nil, "reviews", "list", b.Skill.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "clear and patient")

	out, err = h.run(t, nil, "profile", "update", "--bio", "learning Go")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile updated.")

	out, err = h.run(t, nil, "profile", "show", "--format", "json")
	require.NoError(t, err)
	var me models.User
	require.NoError(t, json.Unmarshal([]byte(out), &me))
	assert.Equal(t, "learning Go", me.Bio)
}

func TestCLI_AdminViews(t *testing.T) {
	h := newHarness(t)
	student := h.env.Register(t, "Sam Student", models.RoleStudent)

	h.login(t, student)
	_, err := h.run(t, nil, "admin", "stats")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))

	out, err := h.run(t, nil, "login", "--email", testutil.AdminEmail, "--password", testutil.AdminPassword)
	require.NoError(t, err)
	assert.Contains(t, out, "admin")

	out, err = h.run(t, nil, "admin", "stats", "--format", "json")
	require.NoError(t, err)
	var stats models.UserStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.TotalStudents)

	out, err = h.run(t, nil, "admin", "users")
	require.NoError(t, err)
	assert.Contains(t, out, student.Email)
}

func TestCLI_ChatHistoryOnce(t *testing.T) {
	h := newHarness(t)
	b := h.env.Book(t)

	err := h.env.As(b.Instructor).Do(context.Background(), api.Request{
		Method: fasthttp.MethodPost,
		Path:   "/messages",
		Auth:   true,
		Body:   map[string]string{"bookingId": b.Booking.ID, "message": "welcome aboard"},
	}, nil)
	require.NoError(t, err)

	h.login(t, b.Student)
	out, err := h.run(t, nil, "chat", b.Booking.ID, "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "Ada Instructor (instructor): welcome aboard")
}

func TestCLI_ChatSendsTypedLines(t *testing.T) {
	h := newHarness(t)
	b := h.env.Book(t)
	h.login(t, b.Student)

	in, typed := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := h.run(t, in, "chat", b.Booking.ID)
		done <- err
	}()

	_, err := io.WriteString(typed, "see you at six\n")
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		var history []models.ChatMessage
		err := h.env.As(b.Instructor).Do(context.Background(), api.Request{
			Method: fasthttp.MethodGet,
			Path:   "/messages/" + b.Booking.ID,
			Auth:   true,
		}, &history)
		return err == nil && len(history) == 1 && history[0].Message == "see you at six"
	}, 5*time.Second, 20*time.Millisecond)

	_, err = io.WriteString(typed, "/quit\n")
	require.NoError(t, err)
	require.NoError(t, typed.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("chat did not exit on /quit")
	}
}

func TestCLI_ChatStaysOpenWithoutHistory(t *testing.T) {
	h := newHarness(t)
	b := h.env.Book(t)
	outsider := h.env.Register(t, "Eve Outsider", models.RoleStudent)
	h.login(t, outsider)

	_, err := h.run(t, nil, "chat", b.Booking.ID, "--once")
	require.Error(t, err)
	assert.Equal(t, fasthttp.StatusForbidden, api.AsError(err).Status)

	var stderr bytes.Buffer
	out, err := h.runWithStderr(t, strings.NewReader("/quit\n"), &stderr, "chat", b.Booking.ID)
	require.NoError(t, err)
	assert.Contains(t, stderr.String(), "history unavailable:")
	assert.Contains(t, out, "No messages yet.")
}

func TestCLI_ChatRequiresLogin(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, nil, "chat", "some-booking", "--once")
	assert.ErrorIs(t, err, errNotLoggedIn)
}
