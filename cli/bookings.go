package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/anjiri1684/skill_exchange/models"
	"github.com/anjiri1684/skill_exchange/store"
)

func NewBookingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "Book sessions and manage their status",
	}
	cmd.AddCommand(newBookingsListCommand(rootOpts))
	cmd.AddCommand(newBookingsCreateCommand(rootOpts))
	cmd.AddCommand(newBookingsStatusCommand(rootOpts))
	cmd.AddCommand(newBookingsCancelCommand(rootOpts))
	return cmd
}

// loadBookings fetches the projection matching view, or the caller's role
// when view is empty.
func loadBookings(ctx context.Context, rt *runtime, view string) ([]models.Booking, error) {
	sess := rt.store.Session()
	if sess == nil {
		return nil, errNotLoggedIn
	}
	if view == "" {
		view = string(sess.Role)
	}
	switch models.Role(view) {
	case models.RoleAdmin:
		return rt.store.FetchAllBookings(ctx)
	case models.RoleInstructor:
		return rt.store.FetchInstructorBookings(ctx, sess.ID)
	case models.RoleStudent:
		return rt.store.FetchUserBookings(ctx, sess.ID)
	}
	return nil, fmt.Errorf("unknown view %q: must be student, instructor or admin", view)
}

func newBookingsListCommand(rootOpts *RootOptions) *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your bookings",
		Args:  cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			bookings, err := loadBookings(cmd.Context(), rt, view)
			if err != nil {
				return err
			}
			return rt.out.Emit(bookings, func(w io.Writer) { printBookings(w, bookings) })
		}),
	}
	cmd.Flags().StringVar(&view, "as", "", "student, instructor or admin (defaults to your role)")
	return cmd
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use YYYY-MM-DD HH:MM", s)
}

func newBookingsCreateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		in   models.BookingInput
		date string
	)
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Book a session of a skill",
		Example: `  skillswap bookings create --skill 5f1c... --instructor 9a2b... --date "2026-11-02 18:00" --hours 2`,
		Args:    cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			if _, err := rt.requireSession(); err != nil {
				return err
			}
			when, err := parseDate(date)
			if err != nil {
				return err
			}
			in.Date = when
			if in.InstructorID == "" && in.SkillID != "" {
				skill, err := rt.store.FetchSkill(cmd.Context(), in.SkillID)
				if err != nil {
					return err
				}
				in.InstructorID = skill.CreatedBy.ID
			}
			b, err := rt.store.CreateBooking(cmd.Context(), in)
			if err != nil {
				return err
			}
			return rt.out.Emit(b, func(w io.Writer) {
				fmt.Fprintf(w, "Booked %s on %s (%s).\n", firstNonEmpty(b.Skill.Title, b.Skill.ID), b.Date.Local().Format("2006-01-02 15:04"), b.ID)
			})
		}),
	}
	cmd.Flags().StringVar(&in.SkillID, "skill", "", "skill id")
	cmd.Flags().StringVar(&in.InstructorID, "instructor", "", "instructor id (defaults to the skill's owner)")
	cmd.Flags().StringVar(&date, "date", "", "session start, YYYY-MM-DD HH:MM")
	cmd.Flags().IntVar(&in.Duration, "hours", 1, "duration in hours")
	return cmd
}

func newBookingsStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var link string
	cmd := &cobra.Command{
		Use:   "status <booking-id> <pending|confirmed|completed|cancelled>",
		Short: "Move a booking to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, args []string) error {
			// Load the caller's projection so illegal moves are caught
			// before contacting the server.
			if _, err := loadBookings(cmd.Context(), rt, ""); err != nil {
				return err
			}
			b, err := rt.store.UpdateBookingStatus(cmd.Context(), store.StatusChange{
				BookingID:   args[0],
				Status:      models.BookingStatus(args[1]),
				MeetingLink: link,
			})
			if err != nil {
				return err
			}
			return rt.out.Emit(b, func(w io.Writer) {
				fmt.Fprintf(w, "Booking %s is now %s.\n", b.ID, b.Status)
				if b.MeetingLink != "" {
					fmt.Fprintf(w, "Meeting link: %s\n", b.MeetingLink)
				}
			})
		}),
	}
	cmd.Flags().StringVar(&link, "meeting-link", "", "video call link to share when confirming")
	return cmd
}

func newBookingsCancelCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <booking-id>",
		Short: "Cancel a booking",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, args []string) error {
			if _, err := loadBookings(cmd.Context(), rt, ""); err != nil {
				return err
			}
			if err := rt.store.CancelBooking(cmd.Context(), args[0]); err != nil {
				return err
			}
			return rt.out.Message("Cancelled booking %s.", args[0])
		}),
	}
}
