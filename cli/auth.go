package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anjiri1684/skill_exchange/models"
)

type RegisterOptions struct {
	*RootOptions
	Name       string
	Email      string
	Password   string
	Instructor bool
}

func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RegisterOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Example: `  skillswap register --name "Ada Lovelace" --email ada@example.com --password s3cret!
  skillswap register --name "Alan" --email alan@example.com --password s3cret! --instructor`,
		Args: cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			role := models.RoleStudent
			if opts.Instructor {
				role = models.RoleInstructor
			}
			sess, err := rt.store.Register(cmd.Context(), models.Registration{
				Name:     opts.Name,
				Email:    opts.Email,
				Password: opts.Password,
				Role:     role,
			})
			if err != nil {
				return err
			}
			return rt.out.Emit(sess.User, func(w io.Writer) {
				fmt.Fprintf(w, "Welcome, %s! You are registered as %s.\n", sess.Name, sess.Role)
			})
		}),
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password (at least 6 characters)")
	cmd.Flags().BoolVar(&opts.Instructor, "instructor", false, "register as an instructor")

	return cmd
}

type LoginOptions struct {
	*RootOptions
	Email    string
	Password string
}

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			sess, err := rt.store.Login(cmd.Context(), models.Credentials{Email: opts.Email, Password: opts.Password})
			if err != nil {
				return err
			}
			return rt.out.Emit(sess.User, func(w io.Writer) {
				fmt.Fprintf(w, "Logged in as %s (%s).\n", sess.Name, sess.Role)
			})
		}),
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "email address")
	cmd.Flags().StringVar(&opts.Password, "password", "", "password")

	return cmd
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			rt.store.Logout()
			return rt.out.Message("Logged out.")
		}),
	}
}

type WhoamiOptions struct {
	*RootOptions
	Verify  bool
	Refresh bool
}

func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WhoamiOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Long: `Show the logged-in user.

With --verify the session is checked against the server and the stored
profile refreshed. With --refresh the token is rotated.`,
		Args: cobra.NoArgs,
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			if _, err := rt.requireSession(); err != nil {
				return err
			}
			if opts.Verify {
				if _, err := rt.store.VerifySession(cmd.Context()); err != nil {
					return err
				}
			}
			if opts.Refresh {
				if _, err := rt.store.RefreshToken(cmd.Context()); err != nil {
					return err
				}
			}
			sess := rt.store.Session()
			if sess == nil {
				return errNotLoggedIn
			}
			return rt.out.Emit(sess.User, func(w io.Writer) {
				printUser(w, sess.User)
				if exp, ok := sess.ExpiresAt(); ok {
					fmt.Fprintf(w, "  session expires %s\n", exp.Local().Format("2006-01-02 15:04"))
				}
			})
		}),
	}

	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "check the session with the server")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "rotate the session token")

	return cmd
}
