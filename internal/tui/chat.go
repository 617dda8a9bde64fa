package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"nova-bot/internal/chat"
	"nova-bot/internal/chatview"
	"nova-bot/internal/route"
)

// Lines outside the transcript: header, status, suggestions, input, footer and padding.
const chatChromeLines = 11

type (
	welcomeMsg struct {
		text string
		err  error
	}
	outcomeMsg struct {
		conv *chat.Conversation
		req  *chat.Request
		out  chatview.Outcome
	}
)

// chatScreen is the chat at "/home".
type chatScreen struct {
	env  *env
	conv *chat.Conversation

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	renderer      *glamour.TermRenderer
	rendererWidth int

	welcome string
	notice  string
}

func newChatScreen(e *env) (*chatScreen, error) {
	conv, err := chat.NewConversation(e.deps.Store, e.deps.API,
		chat.WithTimeout(e.deps.Timeout),
		chat.WithLogger(e.deps.Logger))
	if err != nil {
		return nil, err
	}

	in := textinput.New()
	in.Placeholder = "Ask Nova-Bot anything…"
	in.Prompt = "› "
	in.PromptStyle = focusedStyle
	in.CharLimit = 2000
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = focusedStyle

	return &chatScreen{
		env:      e,
		conv:     conv,
		input:    in,
		viewport: viewport.New(0, 0),
		spinner:  sp,
	}, nil
}

func (s *chatScreen) init() tea.Cmd {
	e := s.env
	fetchWelcome := func() tea.Msg {
		w, err := e.deps.API.Welcome(e.ctx)
		return welcomeMsg{text: w.Message, err: err}
	}
	return tea.Batch(textinput.Blink, fetchWelcome)
}

func (s *chatScreen) close() {
	s.conv.Close()
}

func (s *chatScreen) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.resize(msg.Width, msg.Height)
		return nil

	case welcomeMsg:
		if msg.err != nil {
			s.env.deps.Logger.Debug("welcome check failed", "error", msg.err)
			return nil
		}
		s.welcome = msg.text
		return nil

	case outcomeMsg:
		if msg.conv != s.conv {
			return nil
		}
		applied, err := s.conv.Finish(s.env.ctx, msg.req, msg.out)
		if err != nil {
			s.notice = err.Error()
		}
		if applied {
			s.input.SetValue(s.conv.View().Draft())
		}
		s.refresh()
		return nil

	case signOutMsg:
		if msg.err != nil {
			s.notice = "Sign-out failed: " + msg.err.Error()
		}
		return nil

	case spinner.TickMsg:
		if !s.conv.View().Awaiting() {
			return nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return cmd

	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return cmd
}

func (s *chatScreen) handleKey(msg tea.KeyMsg) tea.Cmd {
	view := s.conv.View()
	switch key := msg.String(); key {
	case "enter":
		return s.send()
	case "ctrl+n":
		s.notice = ""
		if err := s.conv.NewChat(s.env.ctx); err != nil {
			s.notice = err.Error()
		}
		s.input.SetValue(view.Draft())
		s.refresh()
		return nil
	case "ctrl+e":
		view.DismissError()
		s.notice = ""
		return nil
	case "ctrl+o":
		return s.env.signOutCmd()
	case "esc":
		s.env.router.Navigate(route.Homepage)
		return nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		s.viewport, cmd = s.viewport.Update(msg)
		return cmd
	case "alt+1", "alt+2", "alt+3", "alt+4":
		s.pickSuggestion(int(key[len(key)-1] - '1'))
		return nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	if v := s.input.Value(); v != view.Draft() {
		view.SetDraft(v)
	}
	return cmd
}

// send submits the draft; the request runs off the event loop and reports back as outcomeMsg.
func (s *chatScreen) send() tea.Cmd {
	req, ok := s.conv.Begin(s.env.ctx)
	if !ok {
		return nil
	}
	s.notice = ""
	s.refresh()

	conv := s.conv
	do := func() tea.Msg {
		return outcomeMsg{conv: conv, req: req, out: req.Do()}
	}
	return tea.Batch(do, s.spinner.Tick)
}

// pickSuggestion copies the i-th follow-up, or starter on an empty chat, into the draft.
func (s *chatScreen) pickSuggestion(i int) {
	view := s.conv.View()
	if followups := view.Followups(); len(followups) > 0 {
		if i < len(followups) {
			view.SelectFollowup(followups[i])
		}
	} else if starters := s.starters(); i < len(starters) {
		view.SetDraft(starters[i])
	}
	s.input.SetValue(view.Draft())
	s.input.CursorEnd()
}

// starters are offered only before the first message.
func (s *chatScreen) starters() []string {
	if len(s.conv.View().Messages()) > 0 {
		return nil
	}
	return s.env.deps.Content.Starters
}

func (s *chatScreen) resize(width, height int) {
	s.viewport.Width = max(width-4, 10)
	s.viewport.Height = max(height-chatChromeLines, 3)
	s.input.Width = max(width-8, 10)
	s.refresh()
}

func (s *chatScreen) markdown(text string) string {
	width := max(s.viewport.Width-2, 20)
	if s.renderer == nil || s.rendererWidth != width {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
		if err != nil {
			return text
		}
		s.renderer, s.rendererWidth = r, width
	}
	out, err := s.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSpace(out)
}

// refresh re-renders the transcript into the viewport and scrolls to the newest message.
func (s *chatScreen) refresh() {
	var b strings.Builder
	msgs := s.conv.View().Messages()
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch m.Role {
		case chatview.RoleUser:
			b.WriteString(userStyle.Render("You") + "\n" + m.Text)
		default:
			b.WriteString(botStyle.Render("Nova-Bot") + "\n" + s.markdown(m.Text))
		}
	}
	if len(msgs) == 0 {
		b.WriteString(subtleStyle.Render("Start with one of these, or type your own question:") + "\n")
		for i, st := range s.starters() {
			fmt.Fprintf(&b, "%s %s\n", keyStyle.Render(fmt.Sprintf("alt+%d", i+1)), st)
		}
	}
	s.viewport.SetContent(b.String())
	s.viewport.GotoBottom()
}

func (s *chatScreen) view() string {
	view := s.conv.View()

	var b strings.Builder
	b.WriteString(titleStyle.Render(s.env.deps.Content.Product))
	if s.welcome != "" {
		b.WriteString("  " + subtleStyle.Render(s.welcome))
	}
	b.WriteString("\n\n")
	b.WriteString(s.viewport.View() + "\n\n")

	switch {
	case view.Awaiting():
		b.WriteString(s.spinner.View() + subtleStyle.Render(" Nova-Bot is typing…"))
	case view.Err() != nil:
		b.WriteString(errorStyle.Render("Request failed: "+view.Err().Error()) + subtleStyle.Render("  (ctrl+e to dismiss)"))
	case s.notice != "":
		b.WriteString(errorStyle.Render(s.notice))
	}
	b.WriteString("\n")

	for i, f := range view.Followups() {
		fmt.Fprintf(&b, "%s %s\n", keyStyle.Render(fmt.Sprintf("alt+%d", i+1)), f)
	}
	b.WriteString(s.input.View() + "\n")
	b.WriteString(help("enter", "send", "ctrl+n", "new chat", "esc", "home", "ctrl+o", "sign out", "ctrl+c", "quit"))
	return pageStyle.Render(b.String())
}
