package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/anjiri1684/skill_exchange/api"
	"github.com/anjiri1684/skill_exchange/models"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // rejected by the server or failed validation
	ExitCommandError = 2 // bad flags, missing session, unreachable server
)

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	switch api.KindOf(err) {
	case api.KindValidation, api.KindDomain, api.KindUnauthorized:
		return ExitFailure
	}
	return ExitCommandError
}

// Describe renders err for the terminal, listing field errors one per line.
func Describe(err error) string {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	var b strings.Builder
	b.WriteString(apiErr.Message)
	for _, f := range apiErr.Fields {
		fmt.Fprintf(&b, "\n  %s: %s", f.Field, f.Message)
	}
	return b.String()
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Emit writes data as indented JSON, or calls text for the text format.
func (f *OutputFormatter) Emit(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	text(f.Writer)
	return nil
}

func (f *OutputFormatter) Message(format string, args ...any) error {
	return f.Emit(map[string]string{"message": fmt.Sprintf(format, args...)}, func(w io.Writer) {
		fmt.Fprintf(w, format+"\n", args...)
	})
}

func table(w io.Writer, header string, rows func(tw io.Writer)) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	_ = tw.Flush()
}

func printUser(w io.Writer, u models.User) {
	fmt.Fprintf(w, "%s <%s>\n", u.Name, u.Email)
	fmt.Fprintf(w, "  id:   %s\n", u.ID)
	fmt.Fprintf(w, "  role: %s\n", u.Role)
	if u.Bio != "" {
		fmt.Fprintf(w, "  bio:  %s\n", u.Bio)
	}
}

func printSkills(w io.Writer, skills []models.Skill) {
	table(w, "ID\tTITLE\tCATEGORY\tPRICE/H\tRATING\tINSTRUCTOR", func(tw io.Writer) {
		for _, s := range skills {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.1f (%d)\t%s\n",
				s.ID, s.Title, s.Category, s.PricePerHour, s.AvgRating, s.NumReviews, refName(s.CreatedBy))
		}
	})
}

func printBookings(w io.Writer, bookings []models.Booking) {
	table(w, "ID\tSKILL\tSTUDENT\tINSTRUCTOR\tDATE\tHOURS\tSTATUS", func(tw io.Writer) {
		for _, b := range bookings {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				b.ID, firstNonEmpty(b.Skill.Title, b.Skill.ID), refName(b.Student), refName(b.Instructor),
				b.Date.Format("2006-01-02 15:04"), b.Duration, b.Status)
		}
	})
}

func printReviews(w io.Writer, reviews []models.Review) {
	if avg, ok := models.AverageRating(reviews); ok {
		fmt.Fprintf(w, "Average rating: %.1f from %d reviews\n", avg, len(reviews))
	} else {
		fmt.Fprintln(w, "No reviews yet")
		return
	}
	for _, r := range reviews {
		fmt.Fprintf(w, "%d/5 %s: %s\n", r.Rating, refName(r.Author), r.Comment)
	}
}

func printMessage(w io.Writer, m models.ChatMessage) {
	m = models.NormalizeMessage(m)
	line := m.Message
	if m.Attachment != nil {
		line = strings.TrimSpace(line + " [attachment: " + firstNonEmpty(m.Attachment.Name, m.Attachment.URL) + "]")
	}
	fmt.Fprintf(w, "[%s] %s (%s): %s\n", m.CreatedAt.Local().Format("15:04"), m.Sender.Name, m.Sender.Role, line)
}

func refName(r models.UserRef) string {
	return firstNonEmpty(r.Name, r.ID)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
