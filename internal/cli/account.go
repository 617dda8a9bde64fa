package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"nova-bot/internal/auth"
	"nova-bot/internal/identity"
	"nova-bot/internal/route"
)

// newSigninCmd builds "signin", or "signup" when signup is set. Both end in the same bridge
// sequence the chat's forms use.
func (a *app) newSigninCmd(signup bool) *cobra.Command {
	var email string
	use, short := "signin", "Sign in and register the session with the API"
	if signup {
		use, short = "signup", "Create an account and sign in"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

The password is read from the terminal without echo, or as the first line of
standard input when it is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			if email == "" {
				fmt.Fprint(out, "Email: ")
				line, err := readLine(in)
				if err != nil {
					return err
				}
				email = line
			}
			fmt.Fprint(out, "Password: ")
			password, err := readPassword(cmd.InOrStdin(), in)
			fmt.Fprintln(out)
			if err != nil {
				return err
			}

			creds := identity.Credentials{Email: strings.TrimSpace(email), Password: password}
			var u identity.User
			if signup {
				u, err = a.provider.SignUp(ctx, creds)
			} else {
				u, err = a.provider.SignIn(ctx, creds)
			}
			if err != nil {
				return err
			}

			router := route.NewRouter(route.SignIn)
			bridge, err := auth.NewBridge(a.store, a.api, a.provider, router, a.logger)
			if err != nil {
				return err
			}
			if signup {
				err = bridge.SignedUp(ctx, u)
			} else {
				err = bridge.SignedIn(ctx, u)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Signed in as %s\n", u.PrimaryEmail())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	return cmd
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword reads without echo from a terminal, otherwise one line from buffered.
func readPassword(raw io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := raw.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	return readLine(buffered)
}

func (a *app) newSignoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bridge, err := auth.NewBridge(a.store, a.api, a.provider, route.NewRouter(route.ChatHome), a.logger)
			if err != nil {
				return err
			}
			if err := bridge.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func (a *app) newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.store.Read(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !sess.SignedIn() {
				fmt.Fprintln(out, "Not signed in")
				return nil
			}
			fmt.Fprintf(out, "User:  %s\nEmail: %s\n", sess.UserID, sess.Email)
			if sess.ChatID != "" {
				fmt.Fprintf(out, "Chat:  %s\n", sess.ChatID)
			}
			return nil
		},
	}
}
