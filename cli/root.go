// Package cli is the skillswap command line: one command per marketplace
// view, each driving the client store.
package cli

import (
	"fmt"
	"io"

	"github.com/fasthttp/websocket"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"

	config "github.com/anjiri1684/skill_exchange/configs"
	"github.com/anjiri1684/skill_exchange/storage"
)

// RootOptions holds global flags and the hooks tests use to point the CLI at
// an in-process server.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	Config  *config.ClientConfig
	Storage storage.Storage
	Dial    fasthttp.DialFunc
	Dialer  *websocket.Dialer
	In      io.Reader
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{})
}

// NewRootCommandWith builds the command tree around opts.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skillswap",
		Short: "SkillSwap marketplace client",
		Long:  "Browse skills, manage bookings and chat with instructors on the SkillSwap marketplace.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewSkillsCommand(opts))
	cmd.AddCommand(NewBookingsCommand(opts))
	cmd.AddCommand(NewReviewsCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))
	cmd.AddCommand(NewAdminCommand(opts))
	cmd.AddCommand(NewChatCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
