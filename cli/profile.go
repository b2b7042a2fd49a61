package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anjiri1684/skill_exchange/models"
)

func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit profiles",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show [user-id]",
		Short: "Show a profile, yours by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, args []string) error {
			id, err := rt.requireSession()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				id = args[0]
			}
			u, err := rt.store.FetchUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			return rt.out.Emit(u, func(w io.Writer) { printUser(w, u) })
		}),
	})
	cmd.AddCommand(newProfileUpdateCommand(rootOpts))
	return cmd
}

func newProfileUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var in models.ProfileUpdate
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Edit your profile",
		Args:  cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			id, err := rt.requireSession()
			if err != nil {
				return err
			}
			in.ID = id
			u, err := rt.store.UpdateProfile(cmd.Context(), in)
			if err != nil {
				return err
			}
			return rt.out.Emit(u, func(w io.Writer) {
				fmt.Fprintln(w, "Profile updated.")
				printUser(w, u)
			})
		}),
	}
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "email address")
	cmd.Flags().StringVar(&in.Bio, "bio", "", "short bio")
	cmd.Flags().StringVar(&in.Avatar, "avatar", "", "avatar image URL")
	return cmd
}

func NewAdminCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator views",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "users",
		Short: "List every user",
		Args:  cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			if _, err := rt.requireSession(); err != nil {
				return err
			}
			users, err := rt.store.FetchAllUsers(cmd.Context())
			if err != nil {
				return err
			}
			return rt.out.Emit(users, func(w io.Writer) {
				table(w, "ID\tNAME\tEMAIL\tROLE\tJOINED", func(tw io.Writer) {
					for _, u := range users {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Local().Format("2006-01-02"))
					}
				})
			})
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show user counts",
		Args:  cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			if _, err := rt.requireSession(); err != nil {
				return err
			}
			stats, err := rt.store.FetchUserStats(cmd.Context())
			if err != nil {
				return err
			}
			return rt.out.Emit(stats, func(w io.Writer) {
				fmt.Fprintf(w, "Users:          %d\n", stats.TotalUsers)
				fmt.Fprintf(w, "Students:       %d\n", stats.TotalStudents)
				fmt.Fprintf(w, "Instructors:    %d\n", stats.TotalInstructors)
				fmt.Fprintf(w, "New this month: %d\n", stats.NewUsersThisMonth)
			})
		}),
	})
	return cmd
}
