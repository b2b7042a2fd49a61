package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/anjiri1684/skill_exchange/livechat"
	"github.com/anjiri1684/skill_exchange/models"
	"github.com/anjiri1684/skill_exchange/store"
)

type ChatOptions struct {
	*RootOptions
	Once bool
}

func NewChatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "chat <booking-id>",
		Short: "Open the conversation of a booking",
		Long: `Open the conversation of a booking.

The history is printed first, then new messages as they arrive. Type a line
to send it. "/attach <path> [text]" sends a file and "/quit" leaves.`,
		Args: cobra.ExactArgs(1),
		RunE: withRuntime(rootOpts, func(cmd *cobra.Command, rt *runtime, args []string) error {
			if _, err := rt.requireSession(); err != nil {
				return err
			}
			return opts.run(cmd, rt, args[0])
		}),
	}

	cmd.Flags().BoolVar(&opts.Once, "once", false, "print the history and exit")

	return cmd
}

func (o *ChatOptions) run(cmd *cobra.Command, rt *runtime, bookingID string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sweeper := cron.New()
	if _, err := rt.cache.Schedule(sweeper, rt.cfg.ChatCacheSweep); err != nil {
		return fmt.Errorf("schedule chat cache sweep: %w", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	chCfg, err := rt.channelConfig()
	if err != nil {
		return err
	}
	session := livechat.NewSession(rt.store, rt.cache, chCfg)
	if err := session.Mount(bookingID); err != nil {
		return err
	}
	defer session.Unmount()

	if err := session.WaitHistory(ctx); err != nil {
		if o.Once || ctx.Err() != nil {
			return err
		}
		// Stay in the conversation with whatever the cache had.
		fmt.Fprintf(cmd.ErrOrStderr(), "history unavailable: %s\n", Describe(err))
	}
	history := rt.store.State().Chat.Messages
	if err := rt.out.Emit(history, func(w io.Writer) {
		if len(history) == 0 {
			fmt.Fprintln(w, "No messages yet.")
		}
		for _, m := range history {
			printMessage(w, m)
		}
	}); err != nil {
		return err
	}
	if o.Once {
		return nil
	}

	var mu sync.Mutex
	unsubscribe := rt.store.Subscribe(func(a store.Action) {
		var m models.ChatMessage
		switch {
		case a.Type == store.ActionAddMessage:
			m, _ = a.Payload.(models.ChatMessage)
		case a.Is(store.OpSendMessage, store.PhaseFulfilled):
			m, _ = a.Payload.(models.ChatMessage)
		default:
			return
		}
		if m.BookingID != bookingID {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_ = rt.out.Emit(m, func(w io.Writer) { printMessage(w, m) })
	})
	defer unsubscribe()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(rt.input(cmd))
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if line == "/quit" {
				return nil
			}
			if err := o.submit(ctx, session, line); err != nil {
				mu.Lock()
				fmt.Fprintf(cmd.ErrOrStderr(), "send failed: %s\n", Describe(err))
				mu.Unlock()
			}
		}
	}
}

func (o *ChatOptions) submit(ctx context.Context, session *livechat.Session, line string) error {
	rest, ok := strings.CutPrefix(line, "/attach ")
	if !ok {
		return session.Send(ctx, line)
	}
	path, text, _ := strings.Cut(strings.TrimSpace(rest), " ")
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return session.SendAttachment(ctx, strings.TrimSpace(text), models.ChatAttachment{
		Name:        name,
		ContentType: contentType,
		Data:        data,
	})
}
