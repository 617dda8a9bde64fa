package route

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		path string
		want View
		ok   bool
	}{
		{"/", ViewSignIn, true},
		{"/signup", ViewSignUp, true},
		{"/home", ViewChat, true},
		{"/homepage", ViewHomepage, true},
		{"/team", ViewTeam, true},
		{"/home/", ViewNone, false},
		{"/unknown", ViewNone, false},
		{"/home?tab=1", ViewNone, false},
	}
	for _, tc := range cases {
		got, ok := Resolve(tc.path)
		require.Equal(t, tc.want, got, "path=%q", tc.path)
		require.Equal(t, tc.ok, ok, "path=%q", tc.path)
	}
}

func TestRouter_NavigateAndReload(t *testing.T) {
	r := NewRouter(SignIn)
	require.Equal(t, ViewSignIn, r.CurrentView())

	var events []Event
	r.OnNavigate(func(e Event) { events = append(events, e) })

	r.Navigate(ChatHome)
	require.Equal(t, ChatHome, r.Current())
	require.Equal(t, 0, r.Reloads())

	r.Reload(SignIn)
	require.Equal(t, SignIn, r.Current())
	require.Equal(t, 1, r.Reloads())

	require.Equal(t, []Event{
		{Path: ChatHome, View: ViewChat},
		{Path: SignIn, View: ViewSignIn, Reload: true},
	}, events)
}

func TestView_String(t *testing.T) {
	require.Equal(t, "chat", ViewChat.String())
	require.Equal(t, "none", View(99).String())
}
