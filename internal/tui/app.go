// Package tui is the Nova-Bot terminal interface. Screens follow the client routes: sign-in,
// sign-up, chat, homepage and team.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"nova-bot/internal/auth"
	"nova-bot/internal/chat"
	"nova-bot/internal/chatclient"
	"nova-bot/internal/content"
	"nova-bot/internal/identity"
	"nova-bot/internal/route"
	"nova-bot/internal/session"
)

// API is the part of the Nova-Bot API client the interface uses.
type API interface {
	chat.Querier
	auth.Handshaker
	Welcome(ctx context.Context) (chatclient.Welcome, error)
}

// Deps wires the interface to the rest of the client.
type Deps struct {
	Store    session.Store
	API      API
	Provider identity.Provider
	Content  content.Content
	Timeout  time.Duration
	Logger   *slog.Logger
	// StartPath overrides the initial route. Empty picks chat for a stored session, sign-in
	// otherwise.
	StartPath string
}

// screen is one routed page.
type screen interface {
	init() tea.Cmd
	update(msg tea.Msg) tea.Cmd
	view() string
	close()
}

// env is shared by all screens.
type env struct {
	ctx    context.Context
	deps   Deps
	router *route.Router
	bridge *auth.Bridge
	width  int
	height int
}

type (
	authResultMsg struct{ err error }
	signOutMsg    struct{ err error }
)

// signOutCmd runs the sign-out sequence off the event loop.
func (e *env) signOutCmd() tea.Cmd {
	return func() tea.Msg {
		return signOutMsg{err: e.bridge.SignOut(e.ctx)}
	}
}

// App is the root Bubble Tea model.
type App struct {
	env *env

	screen       screen
	shownPath    string
	shownReloads int
}

func New(ctx context.Context, deps Deps) (*App, error) {
	if deps.Store == nil {
		return nil, errors.New("tui: session store must not be nil")
	}
	if deps.API == nil {
		return nil, errors.New("tui: api client must not be nil")
	}
	if deps.Provider == nil {
		return nil, errors.New("tui: identity provider must not be nil")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Timeout == 0 {
		deps.Timeout = chat.DefaultTimeout
	}

	start := deps.StartPath
	if start == "" {
		start = route.SignIn
		sess, err := deps.Store.Read(ctx)
		if err != nil {
			return nil, err
		}
		if sess.SignedIn() {
			start = route.ChatHome
		}
	}

	router := route.NewRouter(start)
	router.OnNavigate(func(ev route.Event) {
		deps.Logger.Debug("navigate", "path", ev.Path, "view", ev.View.String(), "reload", ev.Reload)
	})
	bridge, err := auth.NewBridge(deps.Store, deps.API, deps.Provider, router, deps.Logger)
	if err != nil {
		return nil, err
	}
	return &App{env: &env{ctx: ctx, deps: deps, router: router, bridge: bridge}}, nil
}

// Router exposes navigation state.
func (a *App) Router() *route.Router {
	return a.env.router
}

func (a *App) Init() tea.Cmd {
	return a.syncRoute()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.Close()
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.env.width, a.env.height = msg.Width, msg.Height
	}

	var cmd tea.Cmd
	if a.screen != nil {
		cmd = a.screen.update(msg)
	}
	return a, tea.Batch(cmd, a.syncRoute())
}

func (a *App) View() string {
	if a.screen == nil {
		return ""
	}
	return a.screen.view()
}

// Close releases the current screen and cancels any request in flight.
func (a *App) Close() {
	if a.screen != nil {
		a.screen.close()
	}
}

// syncRoute rebuilds the screen when the router moved or reloaded since the last render.
func (a *App) syncRoute() tea.Cmd {
	path, reloads := a.env.router.Current(), a.env.router.Reloads()
	if a.screen != nil && path == a.shownPath && reloads == a.shownReloads {
		return nil
	}

	view, _ := route.Resolve(path)
	if view == route.ViewChat && !a.signedIn() {
		a.env.router.Navigate(route.SignIn)
		return a.syncRoute()
	}

	if a.screen != nil {
		a.screen.close()
	}
	a.shownPath, a.shownReloads = path, reloads
	a.screen = a.build(view, path)
	a.env.deps.Logger.Debug("screen changed", "path", path, "view", view.String())

	cmd := a.screen.init()
	if a.env.width > 0 {
		size := tea.WindowSizeMsg{Width: a.env.width, Height: a.env.height}
		cmd = tea.Batch(cmd, a.screen.update(size))
	}
	return cmd
}

func (a *App) build(view route.View, path string) screen {
	switch view {
	case route.ViewSignIn:
		return newAuthScreen(a.env, false)
	case route.ViewSignUp:
		return newAuthScreen(a.env, true)
	case route.ViewChat:
		s, err := newChatScreen(a.env)
		if err != nil {
			a.env.deps.Logger.Error("failed to open chat", "error", err)
			return newNotFoundScreen(a.env, path)
		}
		return s
	case route.ViewHomepage:
		return newHomepageScreen(a.env)
	case route.ViewTeam:
		return newTeamScreen(a.env)
	default:
		return newNotFoundScreen(a.env, path)
	}
}

func (a *App) signedIn() bool {
	sess, err := a.env.deps.Store.Read(a.env.ctx)
	if err != nil {
		a.env.deps.Logger.Error("failed to read session", "error", err)
		return false
	}
	return sess.SignedIn()
}

// Run starts the interface on the alternate screen and blocks until the user quits.
func Run(ctx context.Context, deps Deps) error {
	app, err := New(ctx, deps)
	if err != nil {
		return err
	}
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
