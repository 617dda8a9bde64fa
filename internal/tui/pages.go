package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"nova-bot/internal/route"
)

// homepageScreen is the marketing page at "/homepage".
type homepageScreen struct {
	env    *env
	notice string
}

func newHomepageScreen(e *env) *homepageScreen {
	return &homepageScreen{env: e}
}

func (s *homepageScreen) init() tea.Cmd { return nil }
func (s *homepageScreen) close()        {}

func (s *homepageScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case signOutMsg:
		if msg.err != nil {
			s.notice = "Sign-out failed: " + msg.err.Error()
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "c", "enter":
			s.env.router.Navigate(route.ChatHome)
		case "t":
			s.env.router.Navigate(route.Team)
		case "ctrl+o":
			return s.env.signOutCmd()
		case "q":
			return tea.Quit
		}
	}
	return nil
}

func (s *homepageScreen) view() string {
	c := s.env.deps.Content

	width := 30
	if s.env.width > 0 {
		width = max(min((s.env.width-8)/3-2, 40), 20)
	}
	cards := make([]string, 0, len(c.Features))
	for _, f := range c.Features {
		body := titleStyle.Render(f.Title) + "\n" + f.Description
		cards = append(cards, cardStyle.Width(width).Render(body))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(c.Product) + "\n")
	b.WriteString(subtleStyle.Render(c.Tagline) + "\n\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...) + "\n\n")
	if s.notice != "" {
		b.WriteString(errorStyle.Render(s.notice) + "\n")
	}
	b.WriteString(help("c", "chat", "t", "team", "ctrl+o", "sign out", "q", "quit"))
	return pageStyle.Render(b.String())
}

// teamScreen lists the people behind the product at "/team".
type teamScreen struct {
	env *env
}

func newTeamScreen(e *env) *teamScreen {
	return &teamScreen{env: e}
}

func (s *teamScreen) init() tea.Cmd { return nil }
func (s *teamScreen) close()        {}

func (s *teamScreen) update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc", "b":
			s.env.router.Navigate(route.Homepage)
		case "q":
			return tea.Quit
		}
	}
	return nil
}

func (s *teamScreen) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Meet the team") + "\n\n")
	for _, m := range s.env.deps.Content.Team {
		fmt.Fprintf(&b, "%s\n%s\n", botStyle.Render(m.Name), m.Description)
		if m.LinkedIn != "" {
			b.WriteString(subtleStyle.Render(m.LinkedIn) + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(help("esc", "back", "q", "quit"))
	return pageStyle.Render(b.String())
}

// notFoundScreen covers paths outside the route table.
type notFoundScreen struct {
	env  *env
	path string
}

func newNotFoundScreen(e *env, path string) *notFoundScreen {
	return &notFoundScreen{env: e, path: path}
}

func (s *notFoundScreen) init() tea.Cmd { return nil }
func (s *notFoundScreen) close()        {}

func (s *notFoundScreen) update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok && (key.String() == "esc" || key.String() == "enter") {
		s.env.router.Navigate(route.SignIn)
	}
	return nil
}

func (s *notFoundScreen) view() string {
	return pageStyle.Render(
		errorStyle.Render(fmt.Sprintf("Nothing lives at %q.", s.path)) + "\n\n" +
			help("esc", "back to sign-in"))
}
