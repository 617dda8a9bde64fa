// Package route maps client paths to views and tracks navigation.
package route

import "sync"

// Client-side paths.
const (
	SignIn   = "/"
	SignUp   = "/signup"
	ChatHome = "/home"
	Homepage = "/homepage"
	Team     = "/team"
)

// View is the screen rendered for a path.
type View int

const (
	ViewNone View = iota
	ViewSignIn
	ViewSignUp
	ViewChat
	ViewHomepage
	ViewTeam
)

var views = map[string]View{
	SignIn:   ViewSignIn,
	SignUp:   ViewSignUp,
	ChatHome: ViewChat,
	Homepage: ViewHomepage,
	Team:     ViewTeam,
}

func (v View) String() string {
	switch v {
	case ViewSignIn:
		return "signin"
	case ViewSignUp:
		return "signup"
	case ViewChat:
		return "chat"
	case ViewHomepage:
		return "homepage"
	case ViewTeam:
		return "team"
	default:
		return "none"
	}
}

// Resolve returns the view for an exact path match.
func Resolve(path string) (View, bool) {
	v, ok := views[path]
	return v, ok
}

// Navigator is what the auth flow needs from the navigation layer.
type Navigator interface {
	// Navigate performs a client-side transition; screen state survives.
	Navigate(path string)
	// Reload performs a full navigation; every screen is rebuilt from scratch.
	Reload(path string)
}

// Event describes one navigation.
type Event struct {
	Path   string
	View   View
	Reload bool
}

// Router is a Navigator that records the current path and notifies a listener.
type Router struct {
	mu       sync.Mutex
	current  string
	reloads  int
	listener func(Event)
}

// NewRouter starts at path.
func NewRouter(path string) *Router {
	return &Router{current: path}
}

// OnNavigate registers the single listener called after every navigation.
func (r *Router) OnNavigate(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = fn
}

func (r *Router) Navigate(path string) {
	r.move(path, false)
}

func (r *Router) Reload(path string) {
	r.move(path, true)
}

func (r *Router) move(path string, reload bool) {
	r.mu.Lock()
	r.current = path
	if reload {
		r.reloads++
	}
	listener := r.listener
	r.mu.Unlock()

	if listener != nil {
		v, _ := Resolve(path)
		listener(Event{Path: path, View: v, Reload: reload})
	}
}

// Current returns the current path.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// CurrentView resolves the current path.
func (r *Router) CurrentView() View {
	v, _ := Resolve(r.Current())
	return v
}

// Reloads counts full navigations.
func (r *Router) Reloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}
