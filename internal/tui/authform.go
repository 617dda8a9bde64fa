package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nova-bot/internal/identity"
	"nova-bot/internal/route"
)

const (
	fieldEmail = iota
	fieldPassword
)

// authScreen is the sign-in form at "/" and the sign-up form at "/signup".
type authScreen struct {
	env    *env
	signup bool
	inputs []textinput.Model
	focus  int
	busy   bool
	err    error
}

func newAuthScreen(e *env, signup bool) *authScreen {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email    "
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "at least 8 characters"
	password.Prompt = "Password "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	s := &authScreen{env: e, signup: signup, inputs: []textinput.Model{email, password}}
	s.setFocus(fieldEmail)
	return s
}

func (s *authScreen) init() tea.Cmd {
	return textinput.Blink
}

func (s *authScreen) close() {}

func (s *authScreen) setFocus(i int) {
	s.focus = i
	for j := range s.inputs {
		if j == i {
			s.inputs[j].Focus()
			s.inputs[j].PromptStyle = focusedStyle
		} else {
			s.inputs[j].Blur()
			s.inputs[j].PromptStyle = lipgloss.NewStyle()
		}
	}
}

func (s *authScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case authResultMsg:
		s.busy = false
		s.err = msg.err
		return nil
	case signOutMsg:
		s.err = msg.err
		return nil
	case tea.KeyMsg:
		if s.busy {
			return nil
		}
		switch msg.String() {
		case "tab", "down":
			s.setFocus((s.focus + 1) % len(s.inputs))
			return nil
		case "shift+tab", "up":
			s.setFocus((s.focus + len(s.inputs) - 1) % len(s.inputs))
			return nil
		case "ctrl+s":
			if s.signup {
				s.env.router.Navigate(route.SignIn)
			} else {
				s.env.router.Navigate(route.SignUp)
			}
			return nil
		case "ctrl+t":
			s.env.router.Navigate(route.Homepage)
			return nil
		case "enter":
			if s.focus == fieldEmail {
				s.setFocus(fieldPassword)
				return nil
			}
			return s.submit()
		}
	}

	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return cmd
}

// submit authenticates with the provider, then hands the user to the auth bridge, which saves the
// session, performs the handshake and navigates.
func (s *authScreen) submit() tea.Cmd {
	creds := identity.Credentials{
		Email:    strings.TrimSpace(s.inputs[fieldEmail].Value()),
		Password: s.inputs[fieldPassword].Value(),
	}
	if creds.Email == "" || creds.Password == "" {
		s.err = errors.New("email and password are required")
		return nil
	}
	s.busy = true
	s.err = nil

	e, signup := s.env, s.signup
	return func() tea.Msg {
		if signup {
			u, err := e.deps.Provider.SignUp(e.ctx, creds)
			if err != nil {
				return authResultMsg{err: err}
			}
			return authResultMsg{err: e.bridge.SignedUp(e.ctx, u)}
		}
		u, err := e.deps.Provider.SignIn(e.ctx, creds)
		if err != nil {
			return authResultMsg{err: err}
		}
		return authResultMsg{err: e.bridge.SignedIn(e.ctx, u)}
	}
}

func (s *authScreen) view() string {
	title, switchHint := "Sign in to "+s.env.deps.Content.Product, "create an account"
	if s.signup {
		title, switchHint = "Create your "+s.env.deps.Content.Product+" account", "sign in instead"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n")
	if s.env.deps.Content.Tagline != "" {
		b.WriteString(subtleStyle.Render(s.env.deps.Content.Tagline) + "\n")
	}
	b.WriteString("\n")
	for _, in := range s.inputs {
		b.WriteString(in.View() + "\n")
	}
	b.WriteString("\n")
	switch {
	case s.busy:
		b.WriteString(subtleStyle.Render("Signing in…") + "\n")
	case s.err != nil:
		b.WriteString(errorStyle.Render(s.err.Error()) + "\n")
	default:
		b.WriteString("\n")
	}
	b.WriteString("\n" + help("enter", "submit", "tab", "next field", "ctrl+s", switchHint, "ctrl+t", "about", "ctrl+c", "quit"))
	return pageStyle.Render(b.String())
}
