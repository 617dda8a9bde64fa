package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"nova-bot/internal/chat"
	"nova-bot/internal/chatview"
	"nova-bot/internal/route"
	"nova-bot/internal/tui"
)

// ErrNotSignedIn is returned by commands that need a stored session.
var ErrNotSignedIn = errors.New(`not signed in; run "novabot signin" first`)

func (a *app) newChatCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the terminal chat",
		Long: `Open the terminal chat.

Without a stored session the sign-in screen comes first. --start opens
another screen: /homepage, /team, /signup or /home.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runChat(cmd, start)
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "initial screen path")
	return cmd
}

func (a *app) runChat(cmd *cobra.Command, start string) error {
	if start != "" {
		if _, ok := route.Resolve(start); !ok {
			return fmt.Errorf("unknown screen %q", start)
		}
	}
	return tui.Run(cmd.Context(), tui.Deps{
		Store:     a.store,
		API:       a.api,
		Provider:  a.provider,
		Content:   a.content,
		Timeout:   a.cfg.API.Timeout.Duration,
		Logger:    a.logger,
		StartPath: start,
	})
}

func (a *app) newAskCmd() *cobra.Command {
	var (
		newChat bool
		plain   bool
	)
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the answer",
		Long: `Ask one question and print the answer with its suggested follow-ups.

Consecutive asks continue the same conversation; --new starts a fresh one.

Examples:
  novabot ask "Where is my order?"
  novabot ask --new "How can I return a product?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.store.Read(ctx)
			if err != nil {
				return err
			}
			if !sess.SignedIn() {
				return ErrNotSignedIn
			}

			conv, err := chat.NewConversation(a.store, a.api,
				chat.WithTimeout(a.cfg.API.Timeout.Duration),
				chat.WithLogger(a.logger))
			if err != nil {
				return err
			}
			defer conv.Close()
			if newChat {
				if err := conv.NewChat(ctx); err != nil {
					return err
				}
			}

			out, ok, err := conv.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if !ok {
				return errors.New("question must not be blank")
			}
			if out.Failed() {
				return out.Err
			}
			return printAnswer(cmd.OutOrStdout(), out, plain)
		},
	}
	cmd.Flags().BoolVar(&newChat, "new", false, "start a new conversation")
	cmd.Flags().BoolVar(&plain, "plain", false, "print Markdown as is")
	return cmd
}

func printAnswer(w io.Writer, out chatview.Outcome, plain bool) error {
	answer := out.Answer
	if !plain {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
		if err == nil {
			if rendered, err := r.Render(answer); err == nil {
				answer = rendered
			}
		}
	}
	fmt.Fprintln(w, strings.TrimRight(answer, "\n"))

	if len(out.Followups) > 0 {
		fmt.Fprintln(w, "\nYou could also ask:")
		for i, f := range out.Followups {
			fmt.Fprintf(w, "  %d. %s\n", i+1, f)
		}
	}
	return nil
}
